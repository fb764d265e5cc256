package persistence_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/bizops/backend/internal/domain/shared"
	"github.com/bizops/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newRecord(c shared.Collection, companyID, id string, offset time.Duration, body string) *shared.Record {
	return &shared.Record{
		Collection: c,
		ID:         id,
		CompanyID:  companyID,
		Data:       json.RawMessage(body),
		CreatedAt:  base.Add(offset),
		UpdatedAt:  base.Add(offset),
	}
}

func TestGormDocumentStore_InsertAndGet(t *testing.T) {
	store := testutil.NewDocumentStore(t)
	ctx := context.Background()

	rec := newRecord(shared.CollectionInvoices, "acme", "INV-0001", 0, `{"id":"INV-0001","status":"Draft"}`)
	require.NoError(t, store.Insert(ctx, rec))
	assert.Equal(t, int64(1), rec.Version)

	got, err := store.Get(ctx, shared.CollectionInvoices, "acme", "INV-0001")
	require.NoError(t, err)
	assert.Equal(t, "INV-0001", got.ID)
	assert.Equal(t, int64(1), got.Version)
	assert.JSONEq(t, `{"id":"INV-0001","status":"Draft"}`, string(got.Data))

	t.Run("duplicate id is AlreadyExists", func(t *testing.T) {
		dup := newRecord(shared.CollectionInvoices, "acme", "INV-0001", time.Second, `{}`)
		err := store.Insert(ctx, dup)
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	})

	t.Run("same id in another tenant is independent", func(t *testing.T) {
		other := newRecord(shared.CollectionInvoices, "globex", "INV-0001", 0, `{}`)
		require.NoError(t, store.Insert(ctx, other))
	})

	t.Run("missing document is NotFound", func(t *testing.T) {
		_, err := store.Get(ctx, shared.CollectionInvoices, "acme", "INV-9999")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormDocumentStore_Validation(t *testing.T) {
	store := testutil.NewDocumentStore(t)
	ctx := context.Background()

	tests := []struct {
		name string
		rec  *shared.Record
	}{
		{"unknown collection", newRecord("orders", "acme", "X-1", 0, `{}`)},
		{"missing company", newRecord(shared.CollectionInvoices, " ", "INV-0001", 0, `{}`)},
		{"missing id", newRecord(shared.CollectionInvoices, "acme", "", 0, `{}`)},
		{"invalid body", newRecord(shared.CollectionInvoices, "acme", "INV-0001", 0, `{"broken"`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.Insert(ctx, tt.rec)
			assert.ErrorIs(t, err, shared.ErrValidation)
		})
	}

	_, err := store.List(ctx, shared.CollectionInvoices, "")
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestGormDocumentStore_ListOrder(t *testing.T) {
	store := testutil.NewDocumentStore(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, newRecord(shared.CollectionClients, "acme", "c-b", 2*time.Minute, `{}`)))
	require.NoError(t, store.Insert(ctx, newRecord(shared.CollectionClients, "acme", "c-a", time.Minute, `{}`)))
	require.NoError(t, store.Insert(ctx, newRecord(shared.CollectionClients, "acme", "c-c", 3*time.Minute, `{}`)))
	require.NoError(t, store.Insert(ctx, newRecord(shared.CollectionClients, "globex", "c-z", 0, `{}`)))

	records, err := store.List(ctx, shared.CollectionClients, "acme")
	require.NoError(t, err)
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	assert.Equal(t, []string{"c-a", "c-b", "c-c"}, ids)

	empty, err := store.List(ctx, shared.CollectionCampaigns, "acme")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestGormDocumentStore_UpdateCompareAndSwap(t *testing.T) {
	store := testutil.NewDocumentStore(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, newRecord(shared.CollectionInvoices, "acme", "INV-0001", 0, `{"status":"Draft"}`)))

	first, err := store.Get(ctx, shared.CollectionInvoices, "acme", "INV-0001")
	require.NoError(t, err)
	second, err := store.Get(ctx, shared.CollectionInvoices, "acme", "INV-0001")
	require.NoError(t, err)

	first.Data = json.RawMessage(`{"status":"Sent"}`)
	require.NoError(t, store.Update(ctx, first))
	assert.Equal(t, int64(2), first.Version)

	second.Data = json.RawMessage(`{"status":"Paid"}`)
	err = store.Update(ctx, second)
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)

	got, err := store.Get(ctx, shared.CollectionInvoices, "acme", "INV-0001")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Version)
	assert.JSONEq(t, `{"status":"Sent"}`, string(got.Data))

	missing := newRecord(shared.CollectionInvoices, "acme", "INV-0404", 0, `{}`)
	missing.Version = 1
	assert.ErrorIs(t, store.Update(ctx, missing), shared.ErrNotFound)
}

func TestGormDocumentStore_Delete(t *testing.T) {
	store := testutil.NewDocumentStore(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, newRecord(shared.CollectionVouchers, "acme", "EXP-0001", 0, `{}`)))
	require.NoError(t, store.Delete(ctx, shared.CollectionVouchers, "acme", "EXP-0001"))

	_, err := store.Get(ctx, shared.CollectionVouchers, "acme", "EXP-0001")
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, shared.CollectionVouchers, "acme", "EXP-0001"), shared.ErrNotFound)
}

func TestGormDocumentStore_ActiveTenantIDs(t *testing.T) {
	store := testutil.NewDocumentStore(t)
	ctx := context.Background()

	ids, err := store.ActiveTenantIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, store.Insert(ctx, newRecord(shared.CollectionClients, "globex", "c-1", 0, `{}`)))
	require.NoError(t, store.Insert(ctx, newRecord(shared.CollectionClients, "acme", "c-1", 0, `{}`)))
	require.NoError(t, store.Insert(ctx, newRecord(shared.CollectionInvoices, "acme", "INV-0001", 0, `{}`)))

	ids, err = store.ActiveTenantIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"acme", "globex"}, ids)
}

func TestGormDocumentStore_Subscribe(t *testing.T) {
	store := testutil.NewDocumentStore(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, newRecord(shared.CollectionInvoices, "acme", "INV-0001", 0, `{}`)))

	recorder := testutil.NewFeedRecorder()
	sub, err := store.Subscribe(ctx, shared.CollectionInvoices, "acme", recorder.Handle)
	require.NoError(t, err)
	defer sub.Close()

	require.Eventually(t, func() bool { return recorder.Count() >= 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"INV-0001"}, recorder.LastIDs())

	require.NoError(t, store.Insert(ctx, newRecord(shared.CollectionInvoices, "acme", "INV-0002", time.Minute, `{}`)))
	require.Eventually(t, func() bool { return len(recorder.LastIDs()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"INV-0001", "INV-0002"}, recorder.LastIDs())

	t.Run("other tenants and collections do not reach the feed", func(t *testing.T) {
		before := recorder.Count()
		require.NoError(t, store.Insert(ctx, newRecord(shared.CollectionInvoices, "globex", "INV-0003", 0, `{}`)))
		require.NoError(t, store.Insert(ctx, newRecord(shared.CollectionClients, "acme", "c-1", 0, `{}`)))
		time.Sleep(30 * time.Millisecond)
		assert.Equal(t, before, recorder.Count())
	})

	require.NoError(t, store.Delete(ctx, shared.CollectionInvoices, "acme", "INV-0001"))
	require.Eventually(t, func() bool {
		ids := recorder.LastIDs()
		return len(ids) == 1 && ids[0] == "INV-0002"
	}, time.Second, 5*time.Millisecond)
}

func TestGormDocumentStore_SubscriptionClose(t *testing.T) {
	store := testutil.NewDocumentStore(t)
	ctx := context.Background()

	var mu sync.Mutex
	calls := 0
	sub, err := store.Subscribe(ctx, shared.CollectionProposals, "acme", func([]shared.Record, error) {
		mu.Lock()
		calls++
		mu.Unlock()
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())

	require.NoError(t, store.Insert(ctx, newRecord(shared.CollectionProposals, "acme", "PRP-0001", 0, `{}`)))
	time.Sleep(30 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls)
}

func TestGormDocumentStore_SubscribeRejectsBadScope(t *testing.T) {
	store := testutil.NewDocumentStore(t)

	_, err := store.Subscribe(context.Background(), "orders", "acme", func([]shared.Record, error) {})
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = store.Subscribe(context.Background(), shared.CollectionInvoices, "acme", nil)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestGormDocumentStore_HandlerPanicDoesNotKillFeed(t *testing.T) {
	store := testutil.NewDocumentStore(t)
	ctx := context.Background()

	var mu sync.Mutex
	calls := 0
	sub, err := store.Subscribe(ctx, shared.CollectionEvents, "acme", func([]shared.Record, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			panic("listener bug")
		}
	})
	require.NoError(t, err)
	defer sub.Close()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, store.Insert(ctx, newRecord(shared.CollectionEvents, "acme", "ev-1", 0, `{}`)))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls >= 2
	}, time.Second, 5*time.Millisecond)
}
