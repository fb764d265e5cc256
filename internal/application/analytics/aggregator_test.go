package analytics

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/bizops/backend/internal/application/tenantsync"
	"github.com/bizops/backend/internal/domain/document"
	"github.com/bizops/backend/internal/domain/identity"
	"github.com/bizops/backend/internal/domain/shared"
	"github.com/bizops/backend/internal/infrastructure/telemetry"
	"github.com/bizops/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

func put(t *testing.T, store shared.DocumentStore, c shared.Collection, companyID, id string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, store.Insert(context.Background(), &shared.Record{
		Collection: c,
		ID:         id,
		CompanyID:  companyID,
		Data:       data,
		CreatedAt:  today,
		UpdatedAt:  today,
	}))
}

func seedAcme(t *testing.T, store shared.DocumentStore) {
	t.Helper()
	paid := invoice("INV-0001", document.StatusPaid, "1000", "")
	sent := invoice("INV-0002", document.StatusSent, "500", "2026-02-01")
	put(t, store, shared.CollectionInvoices, "acme", paid.ID, paid)
	put(t, store, shared.CollectionInvoices, "acme", sent.ID, sent)
	put(t, store, shared.CollectionVouchers, "acme", "EXP-0001", voucher(document.VoucherExpense, "250"))
	put(t, store, shared.CollectionClients, "acme", "c-1", map[string]string{"name": "Globex"})
}

func TestService_Get(t *testing.T) {
	store := testutil.NewDocumentStore(t)
	seedAcme(t, store)
	put(t, store, shared.CollectionVouchers, "initech", "RCT-0001", voucher(document.VoucherReceipt, "99999"))

	bm, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{Meter: noop.NewMeterProvider().Meter("test")})
	require.NoError(t, err)

	svc := NewService(tenantsync.NewStoreSource(store),
		WithClock(func() time.Time { return today }),
		WithBusinessMetrics(bm),
	)

	got, err := svc.Get(context.Background(), "acme")
	require.NoError(t, err)
	assertDecimal(t, "1000", got.TotalEarnings)
	assertDecimal(t, "250", got.TotalExpenses)
	assertDecimal(t, "75", got.ProfitMargin)
	assertDecimal(t, "500", got.PendingRevenue)
	assert.Equal(t, 1, got.OverdueCount)
	assert.Equal(t, 1, got.ClientCount)

	m, err := svc.TenantTelemetry(context.Background(), "initech")
	require.NoError(t, err)
	assert.InDelta(t, 99999.0, m.TotalEarnings, 1e-6)
	assert.InDelta(t, 100.0, m.ProfitMargin, 1e-9)
}

func TestService_SkipsUndecodableRecords(t *testing.T) {
	store := testutil.NewDocumentStore(t)
	seedAcme(t, store)
	put(t, store, shared.CollectionInvoices, "acme", "INV-0003", map[string]any{"amountAED": []int{1}})

	got, err := NewService(tenantsync.NewStoreSource(store), WithClock(func() time.Time { return today })).
		Get(context.Background(), "acme")
	require.NoError(t, err)
	assertDecimal(t, "1000", got.TotalEarnings)
	assert.Equal(t, 2, got.InvoiceCount)
}

func TestService_RequiresTenant(t *testing.T) {
	_, err := NewService(tenantsync.NewStoreSource(testutil.NewDocumentStore(t))).Get(context.Background(), "")
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestAggregator_FollowsLayer(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewDocumentStore(t)
	seedAcme(t, store)
	put(t, store, shared.CollectionVouchers, "initech", "RCT-0001", voucher(document.VoucherReceipt, "42"))

	layer := tenantsync.NewLayer(store, tenantsync.WithCollections(InputCollections...))
	t.Cleanup(func() { _ = layer.Close() })

	agg := NewAggregator(layer, WithClock(func() time.Time { return today }))
	t.Cleanup(agg.Close)

	require.NotNil(t, agg.Latest())
	assert.Empty(t, agg.Latest().TenantID)
	assertDecimal(t, "0", agg.Latest().TotalEarnings)

	acme, err := tenantsync.NewScope(identity.Actor{UserID: "u-1", CompanyID: "acme", Role: identity.RoleOwner})
	require.NoError(t, err)
	require.NoError(t, layer.Switch(ctx, acme))

	require.True(t, testutil.WaitForCondition(t, func() bool {
		latest := agg.Latest()
		return latest.TenantID == "acme" && latest.ClientCount == 1 && latest.TotalExpenses.Equal(d("250"))
	}, 5*time.Second, 10*time.Millisecond))
	assertDecimal(t, "1000", agg.Latest().TotalEarnings)

	receipt := voucher(document.VoucherReceipt, "200")
	put(t, store, shared.CollectionVouchers, "acme", "RCT-0001", receipt)
	require.True(t, testutil.WaitForCondition(t, func() bool {
		return agg.Latest().TotalEarnings.Equal(d("1200"))
	}, 5*time.Second, 10*time.Millisecond))

	initech, err := tenantsync.NewScope(identity.Actor{UserID: "u-2", CompanyID: "initech", Role: identity.RoleOwner})
	require.NoError(t, err)
	require.NoError(t, layer.Switch(ctx, initech))

	// right after the switch nothing from acme is visible
	latest := agg.Latest()
	assert.Equal(t, "initech", latest.TenantID)
	assert.True(t, latest.TotalEarnings.LessThanOrEqual(d("42")))

	require.True(t, testutil.WaitForCondition(t, func() bool {
		return agg.Latest().TotalEarnings.Equal(d("42"))
	}, 5*time.Second, 10*time.Millisecond))
	assert.Zero(t, agg.Latest().ClientCount)

	require.NoError(t, layer.Switch(ctx, nil))
	assert.Empty(t, agg.Latest().TenantID)
	assertDecimal(t, "0", agg.Latest().TotalEarnings)
}

func TestAggregator_IgnoresOtherCollections(t *testing.T) {
	store := testutil.NewDocumentStore(t)
	layer := tenantsync.NewLayer(store, tenantsync.WithCollections(shared.CollectionChatThreads))
	t.Cleanup(func() { _ = layer.Close() })

	agg := NewAggregator(layer)
	first := agg.Latest()

	scope, err := tenantsync.NewScope(identity.Actor{UserID: "u-1", CompanyID: "acme", Role: identity.RoleOwner})
	require.NoError(t, err)
	require.NoError(t, layer.Switch(context.Background(), scope))

	assert.Same(t, first, agg.Latest())

	agg.Close()
	agg.Close()
}

func TestAggregator_RecomputeHook(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewDocumentStore(t)
	seedAcme(t, store)

	layer := tenantsync.NewLayer(store, tenantsync.WithCollections(InputCollections...))
	t.Cleanup(func() { _ = layer.Close() })

	results := make(chan *Telemetry, 64)
	agg := NewAggregator(layer,
		WithClock(func() time.Time { return today }),
		WithRecomputeHook(func(tm *Telemetry) {
			select {
			case results <- tm:
			default:
			}
		}),
	)
	t.Cleanup(agg.Close)

	first := <-results
	assert.Empty(t, first.TenantID)
	assert.Same(t, first, agg.Latest())

	scope, err := tenantsync.NewScope(identity.Actor{UserID: "u-1", CompanyID: "acme", Role: identity.RoleOwner})
	require.NoError(t, err)
	require.NoError(t, layer.Switch(ctx, scope))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case tm := <-results:
			if tm.TenantID == "acme" && tm.TotalEarnings.Equal(d("1000")) && tm.ClientCount == 1 {
				return
			}
		case <-deadline:
			require.FailNow(t, "no recompute for acme")
		}
	}
}
