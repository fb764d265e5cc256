package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bizops/backend/internal/application/tenantsync"
	"github.com/bizops/backend/internal/domain/document"
	"github.com/bizops/backend/internal/domain/identity"
	"github.com/bizops/backend/internal/domain/shared"
	"github.com/bizops/backend/internal/infrastructure/cache"
	"github.com/bizops/backend/internal/infrastructure/event"
	"github.com/bizops/backend/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testCompany = "acme"

var (
	testNow = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	owner = identity.Actor{UserID: "u-owner", CompanyID: testCompany, Role: identity.RoleOwner}
	admin = identity.Actor{UserID: "u-admin", CompanyID: testCompany, Role: identity.RoleSuperAdmin}
	clerk = identity.Actor{
		UserID:    "u-clerk",
		CompanyID: testCompany,
		Role:      identity.RoleEmployee,
		Permissions: identity.Capabilities{
			identity.CapManageInvoices,
			identity.CapManageLPO,
			identity.CapManageProposals,
			identity.CapRecordPayments,
		},
	}
	intern   = identity.Actor{UserID: "u-intern", CompanyID: testCompany, Role: identity.RoleEmployee}
	customer = identity.Actor{UserID: "u-client", CompanyID: testCompany, Role: identity.RoleClient}
)

type fixture struct {
	engine *Engine
	store  shared.DocumentStore
	events *testutil.MockEventHandler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithStore(t, testutil.NewDocumentStore(t))
}

func newFixtureWithStore(t *testing.T, store shared.DocumentStore) *fixture {
	t.Helper()
	claims := cache.NewInMemoryClaimStore()
	t.Cleanup(func() { _ = claims.Close() })

	engine := NewEngine(store, tenantsync.NewStoreSource(store), claims,
		WithLogger(zap.NewNop()),
		WithClock(func() time.Time { return testNow }),
	)
	recorder := testutil.NewMockEventHandler()
	bus := event.NewInMemoryEventBus(zap.NewNop())
	bus.Subscribe(recorder)
	engine.SetEventPublisher(bus)

	return &fixture{engine: engine, store: store, events: recorder}
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func lines(qty, price string) []document.LineItem {
	return []document.LineItem{{Name: "Design work", Quantity: amount(qty), UnitPrice: amount(price)}}
}

func assertAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, amount(want).Equal(got), "expected %s, got %s", want, got)
}

func (f *fixture) invoice(t *testing.T, actor identity.Actor, status document.Status) *document.CommercialDocument {
	t.Helper()
	res, err := f.engine.CreateDocument(context.Background(), actor, CreateDocumentInput{
		Type:        document.TypeInvoice,
		Status:      status,
		ProductList: lines("2", "100"),
		TaxRate:     amount("0.05"),
	})
	require.NoError(t, err)
	return res.Document
}

func (f *fixture) proposal(t *testing.T, actor identity.Actor, title, budget string) *document.Proposal {
	t.Helper()
	res, err := f.engine.CreateProposal(context.Background(), actor, CreateProposalInput{
		Title:  title,
		Budget: amount(budget),
	})
	require.NoError(t, err)
	return res.Proposal
}

func (f *fixture) stored(t *testing.T, c shared.Collection, id string) *document.CommercialDocument {
	t.Helper()
	rec, err := f.store.Get(context.Background(), c, testCompany, id)
	require.NoError(t, err)
	doc, err := tenantsync.DecodeOne[document.CommercialDocument](*rec)
	require.NoError(t, err)
	return doc
}

func (f *fixture) count(t *testing.T, c shared.Collection) int {
	t.Helper()
	records, err := f.store.List(context.Background(), c, testCompany)
	require.NoError(t, err)
	return len(records)
}

func TestCreateDocument_OwnerComputesTotals(t *testing.T) {
	f := newFixture(t)

	res, err := f.engine.CreateDocument(context.Background(), owner, CreateDocumentInput{
		Type:        document.TypeInvoice,
		ClientName:  "Globex",
		ProductList: lines("2", "100"),
		TaxRate:     amount("0.05"),
		DueDate:     "2026-04-01",
	})
	require.NoError(t, err)

	assert.Equal(t, OutcomeCreated, res.Outcome)
	doc := res.Document
	assert.Equal(t, "INV-0001", doc.ID)
	assert.Equal(t, document.StatusDraft, doc.Status)
	assert.Equal(t, document.DefaultCurrency, doc.Currency)
	assert.Equal(t, owner.UserID, doc.CreatedBy)
	assertAmount(t, "210", doc.AmountPaid)
	assertAmount(t, "210", doc.AmountAED)
	assertAmount(t, "0", doc.AmountReceived)
	assert.Nil(t, doc.Pending)

	stored := f.stored(t, shared.CollectionInvoices, "INV-0001")
	assert.Equal(t, "Globex", stored.ClientName)
	assertAmount(t, "210", stored.AmountPaid)

	second := f.invoice(t, admin, document.StatusSent)
	assert.Equal(t, "INV-0002", second.ID)
	assert.Equal(t, document.StatusSent, second.Status)
}

func TestCreateDocument_DiscountBeforeTax(t *testing.T) {
	f := newFixture(t)

	res, err := f.engine.CreateDocument(context.Background(), owner, CreateDocumentInput{
		Type:         document.TypeLPO,
		ProductList:  lines("4", "250"),
		TaxRate:      amount("0.05"),
		DiscountRate: amount("0.1"),
		Currency:     "USD",
	})
	require.NoError(t, err)
	assert.Equal(t, "LPO-0001", res.Document.ID)
	assert.Equal(t, "USD", res.Document.Currency)
	assertAmount(t, "945", res.Document.AmountPaid)
}

func TestCreateDocument_NonPrivilegedIsParked(t *testing.T) {
	tests := []struct {
		name      string
		requested document.Status
		want      document.Status
	}{
		{"default", "", document.StatusDraft},
		{"sent", document.StatusSent, document.StatusSent},
		{"paid", document.StatusPaid, document.StatusPaid},
		{"explicit approval", document.StatusPendingApproval, document.StatusDraft},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			doc := f.invoice(t, clerk, tt.requested)
			assert.Equal(t, document.StatusPendingApproval, doc.Status)
			require.NotNil(t, doc.Pending)
			assert.Equal(t, tt.want, doc.Pending.RequestedStatus)
			assert.Equal(t, document.StatusDraft, doc.Pending.PreviousStatus)
			assert.Equal(t, clerk.UserID, doc.Pending.RequestedBy)
			assert.False(t, doc.Pending.HasPayment())

			assert.Equal(t, []string{
				document.EventTypeDocumentCreated,
				document.EventTypeApprovalRequested,
			}, f.events.HandledTypes())
		})
	}
}

func TestCreateDocument_NonPrivilegedApprovalRestoresRequest(t *testing.T) {
	tests := []struct {
		name      string
		requested document.Status
		want      document.Status
	}{
		{"default", "", document.StatusDraft},
		{"draft", document.StatusDraft, document.StatusDraft},
		{"sent", document.StatusSent, document.StatusSent},
		{"partial", document.StatusPartial, document.StatusPartial},
		{"paid", document.StatusPaid, document.StatusPaid},
		{"explicit approval", document.StatusPendingApproval, document.StatusDraft},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t)
			doc := f.invoice(t, clerk, tt.requested)

			res, err := f.engine.ApprovePending(ctx, owner, doc.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Document.Status)
			assert.Nil(t, res.Document.Pending)
			assert.Equal(t, tt.want, f.stored(t, shared.CollectionInvoices, doc.ID).Status)
		})
	}
}

func TestCreateDocument_NonPrivilegedCannotRequestOverdue(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.CreateDocument(context.Background(), clerk, CreateDocumentInput{
		Type:        document.TypeInvoice,
		Status:      document.StatusOverdue,
		ProductList: lines("1", "10"),
	})
	assert.ErrorIs(t, err, shared.ErrValidation)
	assert.Zero(t, f.count(t, shared.CollectionInvoices))
	assert.Zero(t, f.events.HandledCount())

	doc := f.invoice(t, owner, document.StatusOverdue)
	assert.Equal(t, document.StatusOverdue, doc.Status)
}

func TestUpdateDocumentStatus_OverdueApprovalRestoresSent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.invoice(t, owner, document.StatusOverdue)

	res, err := f.engine.UpdateDocumentStatus(ctx, clerk, doc.ID, document.StatusPendingApproval)
	require.NoError(t, err)
	require.NotNil(t, res.Document.Pending)
	assert.Equal(t, document.StatusSent, res.Document.Pending.RequestedStatus)
	assert.Equal(t, document.StatusOverdue, res.Document.Pending.PreviousStatus)

	approved, err := f.engine.ApprovePending(ctx, owner, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, document.StatusSent, approved.Document.Status)
}

func TestCreateDocument_PermissionGate(t *testing.T) {
	lpoOnly := identity.Actor{
		UserID:      "u-buyer",
		CompanyID:   testCompany,
		Role:        identity.RoleEmployee,
		Permissions: identity.Capabilities{identity.CapManageLPO},
	}
	financeLead := identity.Actor{
		UserID:      "u-finance",
		CompanyID:   testCompany,
		Role:        identity.RoleEmployee,
		Permissions: identity.Capabilities{identity.CapManageFinance},
	}

	tests := []struct {
		name    string
		actor   identity.Actor
		docType document.DocumentType
		allowed bool
	}{
		{"client cannot create invoices", customer, document.TypeInvoice, false},
		{"employee without grants", intern, document.TypeLPO, false},
		{"lpo grant covers LPOs", lpoOnly, document.TypeLPO, true},
		{"lpo grant does not cover invoices", lpoOnly, document.TypeInvoice, false},
		{"finance covers invoices", financeLead, document.TypeInvoice, true},
		{"finance covers LPOs", financeLead, document.TypeLPO, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			_, err := f.engine.CreateDocument(context.Background(), tt.actor, CreateDocumentInput{
				Type:        tt.docType,
				ProductList: lines("1", "10"),
			})
			if tt.allowed {
				require.NoError(t, err)
				assert.Equal(t, 1, f.count(t, shared.CollectionInvoices))
				return
			}
			assert.ErrorIs(t, err, shared.ErrForbidden)
			assert.Zero(t, f.count(t, shared.CollectionInvoices))
			assert.Zero(t, f.events.HandledCount())
		})
	}
}

func TestCreateDocument_Validation(t *testing.T) {
	valid := func() CreateDocumentInput {
		return CreateDocumentInput{Type: document.TypeInvoice, ProductList: lines("1", "10")}
	}

	tests := []struct {
		name   string
		actor  identity.Actor
		mutate func(*CreateDocumentInput)
	}{
		{"unknown type", owner, func(in *CreateDocumentInput) { in.Type = "Quote" }},
		{"empty product list", owner, func(in *CreateDocumentInput) { in.ProductList = nil }},
		{"unnamed line", owner, func(in *CreateDocumentInput) { in.ProductList[0].Name = "" }},
		{"negative quantity", owner, func(in *CreateDocumentInput) { in.ProductList[0].Quantity = amount("-1") }},
		{"negative tax", owner, func(in *CreateDocumentInput) { in.TaxRate = amount("-0.05") }},
		{"discount above one", owner, func(in *CreateDocumentInput) { in.DiscountRate = amount("1.5") }},
		{"bad currency", owner, func(in *CreateDocumentInput) { in.Currency = "DIRHAM" }},
		{"unknown status", owner, func(in *CreateDocumentInput) { in.Status = "Archived" }},
		{"actor without company", identity.Actor{UserID: "u-1", Role: identity.RoleOwner}, func(*CreateDocumentInput) {}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			in := valid()
			tt.mutate(&in)

			_, err := f.engine.CreateDocument(context.Background(), tt.actor, in)
			assert.ErrorIs(t, err, shared.ErrValidation)
		})
	}
}

func TestCreateDocument_OnePerProposal(t *testing.T) {
	f := newFixture(t)
	in := CreateDocumentInput{
		Type:             document.TypeLPO,
		LinkedProposalID: "PRP-0042",
		ProductList:      lines("1", "500"),
	}

	first, err := f.engine.CreateDocument(context.Background(), owner, in)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, first.Outcome)

	second, err := f.engine.CreateDocument(context.Background(), owner, in)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyExists, second.Outcome)
	assert.Equal(t, first.Document.ID, second.Document.ID)
	assert.Equal(t, 1, f.count(t, shared.CollectionInvoices))
}

func TestUpdateDocumentStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.invoice(t, owner, "")

	res, err := f.engine.UpdateDocumentStatus(ctx, owner, doc.ID, document.StatusSent)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, res.Outcome)
	assert.Equal(t, document.StatusSent, res.Document.Status)

	res, err = f.engine.UpdateDocumentStatus(ctx, owner, doc.ID, document.StatusSent)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnchanged, res.Outcome)

	_, err = f.engine.UpdateDocumentStatus(ctx, owner, doc.ID, document.StatusDraft)
	assert.ErrorIs(t, err, shared.ErrInvalidState)

	_, err = f.engine.UpdateDocumentStatus(ctx, owner, doc.ID, "Archived")
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = f.engine.UpdateDocumentStatus(ctx, owner, "INV-9999", document.StatusSent)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = f.engine.UpdateDocumentStatus(ctx, intern, doc.ID, document.StatusOverdue)
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

func TestUpdateDocumentStatus_PaidNeedsApproval(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.invoice(t, owner, document.StatusSent)

	res, err := f.engine.UpdateDocumentStatus(ctx, clerk, doc.ID, document.StatusPaid)
	require.NoError(t, err)
	assert.Equal(t, document.StatusPendingApproval, res.Document.Status)
	require.NotNil(t, res.Document.Pending)
	assert.Equal(t, document.StatusPaid, res.Document.Pending.RequestedStatus)
	assert.Equal(t, document.StatusSent, res.Document.Pending.PreviousStatus)

	_, err = f.engine.UpdateDocumentStatus(ctx, clerk, doc.ID, document.StatusSent)
	assert.ErrorIs(t, err, shared.ErrForbidden)

	res, err = f.engine.ApprovePending(ctx, owner, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, document.StatusPaid, res.Document.Status)
	assert.Nil(t, res.Document.Pending)
	assert.Nil(t, res.Voucher)
}

func TestUpdateDocumentStatus_OwnerClearsPending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.invoice(t, clerk, document.StatusSent)

	res, err := f.engine.UpdateDocumentStatus(ctx, owner, doc.ID, document.StatusSent)
	require.NoError(t, err)
	assert.Equal(t, document.StatusSent, res.Document.Status)
	assert.Nil(t, res.Document.Pending)

	res, err = f.engine.UpdateDocumentStatus(ctx, clerk, doc.ID, document.StatusPendingApproval)
	require.NoError(t, err)
	assert.Equal(t, document.StatusPendingApproval, res.Document.Status)
	assert.Equal(t, document.StatusSent, res.Document.Pending.RequestedStatus)
}

func TestConvertProposalToLPO(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	proposal := f.proposal(t, owner, "Website rebuild", "5000")
	assert.Equal(t, "PRP-0001", proposal.ID)
	assert.Equal(t, document.ProposalDraft, proposal.Status)

	res, err := f.engine.ConvertProposalToLPO(ctx, owner, proposal.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, res.Outcome)
	lpo := res.Document
	assert.Equal(t, "LPO-0001", lpo.ID)
	assert.Equal(t, document.TypeLPO, lpo.Type)
	assert.Equal(t, document.StatusDraft, lpo.Status)
	assert.Equal(t, proposal.ID, lpo.LinkedProposalID)
	assertAmount(t, "5000", lpo.AmountPaid)
	require.Len(t, lpo.ProductList, 1)
	assert.Equal(t, "Website rebuild", lpo.ProductList[0].Name)
	assert.Equal(t, document.ProposalAccepted, res.Proposal.Status)

	again, err := f.engine.ConvertProposalToLPO(ctx, owner, proposal.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyExists, again.Outcome)
	assert.Equal(t, lpo.ID, again.Document.ID)
	assert.Equal(t, 1, f.count(t, shared.CollectionInvoices))

	assert.Contains(t, f.events.HandledTypes(), document.EventTypeDocumentConverted)
}

// convertConcurrently runs convert from n goroutines and tallies outcomes.
// Losers of the claim report a concurrency conflict when the winner has not
// written yet, or AlreadyExists once it has.
func convertConcurrently(t *testing.T, n int, convert func() (*Result, error)) (created int, ids map[string]int) {
	t.Helper()
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	ids = make(map[string]int)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := convert()
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
				return
			}
			if res.Outcome == OutcomeCreated {
				created++
			}
			ids[res.Document.ID]++
		}()
	}
	wg.Wait()
	return created, ids
}

func TestConvertProposalToLPO_Concurrent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	proposal := f.proposal(t, owner, "Fit-out", "9000")

	created, ids := convertConcurrently(t, 12, func() (*Result, error) {
		return f.engine.ConvertProposalToLPO(ctx, owner, proposal.ID)
	})

	assert.Equal(t, 1, created)
	assert.LessOrEqual(t, len(ids), 1, "every successful call must see the same LPO")
	assert.Equal(t, 1, f.count(t, shared.CollectionInvoices))
}

func TestConvertDocumentToInvoice_Concurrent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	proposal := f.proposal(t, owner, "Fit-out", "9000")
	lpo, err := f.engine.ConvertProposalToLPO(ctx, owner, proposal.ID)
	require.NoError(t, err)

	created, ids := convertConcurrently(t, 12, func() (*Result, error) {
		return f.engine.ConvertDocumentToInvoice(ctx, owner, lpo.Document.ID)
	})

	assert.Equal(t, 1, created)
	assert.LessOrEqual(t, len(ids), 1)
	assert.Equal(t, 2, f.count(t, shared.CollectionInvoices), "the LPO plus exactly one invoice")
	assert.Equal(t, document.StatusPaid, f.stored(t, shared.CollectionInvoices, lpo.Document.ID).Status)
}

func TestConvertProposalToLPO_Failures(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	proposal := f.proposal(t, owner, "Logo", "800")

	_, err := f.engine.RejectProposal(ctx, owner, proposal.ID)
	require.NoError(t, err)

	_, err = f.engine.ConvertProposalToLPO(ctx, owner, proposal.ID)
	assert.ErrorIs(t, err, shared.ErrInvalidState)

	_, err = f.engine.ConvertProposalToLPO(ctx, owner, "PRP-0404")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = f.engine.ConvertProposalToLPO(ctx, customer, proposal.ID)
	assert.ErrorIs(t, err, shared.ErrForbidden)

	assert.Zero(t, f.count(t, shared.CollectionInvoices))
}

func TestConvertProposalToLPO_NonPrivilegedLPOIsParked(t *testing.T) {
	f := newFixture(t)
	proposal := f.proposal(t, owner, "Signage", "1200")

	res, err := f.engine.ConvertProposalToLPO(context.Background(), clerk, proposal.ID)
	require.NoError(t, err)
	assert.Equal(t, document.StatusPendingApproval, res.Document.Status)
	assert.Equal(t, document.StatusDraft, res.Document.Pending.RequestedStatus)
}

func TestConvertProposalToLPO_PendingProposalNeedsApproval(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	proposal := f.proposal(t, clerk, "Kiosk rollout", "9000")
	require.Equal(t, document.ProposalPendingApproval, proposal.Status)

	_, err := f.engine.ConvertProposalToLPO(ctx, clerk, proposal.ID)
	assert.ErrorIs(t, err, shared.ErrInvalidState)
	assert.Zero(t, f.count(t, shared.CollectionInvoices))
	rec, err := f.store.Get(ctx, shared.CollectionProposals, testCompany, proposal.ID)
	require.NoError(t, err)
	stored, err := tenantsync.DecodeOne[document.Proposal](*rec)
	require.NoError(t, err)
	assert.Equal(t, document.ProposalPendingApproval, stored.Status)

	_, err = f.engine.ApproveProposal(ctx, owner, proposal.ID)
	require.NoError(t, err)
	res, err := f.engine.ConvertProposalToLPO(ctx, clerk, proposal.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, res.Outcome)
	assert.Equal(t, document.ProposalAccepted, res.Proposal.Status)

	other := f.proposal(t, clerk, "Menu boards", "400")
	res, err = f.engine.ConvertProposalToLPO(ctx, owner, other.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, res.Outcome, "privileged conversion accepts a pending proposal")
}

func TestConvertDocumentToInvoice(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	proposal := f.proposal(t, owner, "Fit-out", "12000")
	converted, err := f.engine.ConvertProposalToLPO(ctx, owner, proposal.ID)
	require.NoError(t, err)
	lpo := converted.Document

	res, err := f.engine.ConvertDocumentToInvoice(ctx, owner, lpo.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, res.Outcome)
	invoice := res.Document
	assert.Equal(t, "INV-0001", invoice.ID)
	assert.Equal(t, document.TypeInvoice, invoice.Type)
	assert.Equal(t, lpo.ID, invoice.SourceDocID)
	assert.Equal(t, proposal.ID, invoice.LinkedProposalID)
	assertAmount(t, "12000", invoice.AmountPaid)
	assert.Equal(t, document.StatusDraft, invoice.Status)

	assert.Equal(t, document.StatusPaid, f.stored(t, shared.CollectionInvoices, lpo.ID).Status)

	again, err := f.engine.ConvertDocumentToInvoice(ctx, owner, lpo.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyExists, again.Outcome)
	assert.Equal(t, invoice.ID, again.Document.ID)
	assert.Equal(t, 2, f.count(t, shared.CollectionInvoices))

	_, err = f.engine.ConvertDocumentToInvoice(ctx, owner, invoice.ID)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestConvertDocumentToInvoice_NonPrivilegedParksSource(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	created, err := f.engine.CreateDocument(ctx, owner, CreateDocumentInput{
		Type:        document.TypeLPO,
		Status:      document.StatusSent,
		ProductList: lines("3", "40"),
	})
	require.NoError(t, err)
	lpo := created.Document

	res, err := f.engine.ConvertDocumentToInvoice(ctx, clerk, lpo.ID)
	require.NoError(t, err)
	assert.Equal(t, document.StatusPendingApproval, res.Document.Status)

	source := f.stored(t, shared.CollectionInvoices, lpo.ID)
	assert.Equal(t, document.StatusPendingApproval, source.Status)
	require.NotNil(t, source.Pending)
	assert.Equal(t, document.StatusPaid, source.Pending.RequestedStatus)
	assert.Equal(t, document.StatusSent, source.Pending.PreviousStatus)
}

func TestConvertDocumentToInvoice_AfterSourceDeleted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	proposal := f.proposal(t, owner, "Fit-out", "12000")
	converted, err := f.engine.ConvertProposalToLPO(ctx, owner, proposal.ID)
	require.NoError(t, err)
	first, err := f.engine.ConvertDocumentToInvoice(ctx, owner, converted.Document.ID)
	require.NoError(t, err)
	assert.Equal(t, "LPO-0001", first.Document.SourceDocID)

	_, err = f.engine.DeleteDocument(ctx, owner, "LPO-0001")
	require.NoError(t, err)

	created, err := f.engine.CreateDocument(ctx, owner, CreateDocumentInput{
		Type:        document.TypeLPO,
		ProductList: lines("7", "100"),
	})
	require.NoError(t, err)
	assert.Equal(t, "LPO-0002", created.Document.ID)

	res, err := f.engine.ConvertDocumentToInvoice(ctx, owner, created.Document.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, res.Outcome)
	assert.Equal(t, "INV-0002", res.Document.ID)
	assert.Equal(t, "LPO-0002", res.Document.SourceDocID)
	assertAmount(t, "700", res.Document.AmountPaid)
}

func TestCreateDocument_DeletedIDsAreNotReused(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.invoice(t, owner, "")
	second := f.invoice(t, owner, "")
	require.Equal(t, "INV-0002", second.ID)

	_, err := f.engine.DeleteDocument(ctx, owner, second.ID)
	require.NoError(t, err)

	third := f.invoice(t, owner, "")
	assert.Equal(t, "INV-0003", third.ID)

	lpo, err := f.engine.CreateDocument(ctx, owner, CreateDocumentInput{Type: document.TypeLPO, ProductList: lines("1", "1")})
	require.NoError(t, err)
	assert.Equal(t, "LPO-0001", lpo.Document.ID, "each prefix counts on its own")
}

func TestCreateDocument_CounterStartsPastExistingIDs(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.store.Insert(ctx, &shared.Record{
		Collection: shared.CollectionInvoices,
		ID:         "INV-0007",
		CompanyID:  testCompany,
		Data:       []byte(`{"id":"INV-0007","type":"Invoice","status":"Draft"}`),
		CreatedAt:  testNow,
		UpdatedAt:  testNow,
	}))

	doc := f.invoice(t, owner, "")
	assert.Equal(t, "INV-0008", doc.ID)

	rec, err := f.store.Get(ctx, shared.CollectionSequences, testCompany, "INV")
	require.NoError(t, err)
	seq, err := tenantsync.DecodeOne[sequence](*rec)
	require.NoError(t, err)
	assert.Equal(t, 8, seq.Last)
}

func TestRecordPayment_Owner(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.invoice(t, owner, document.StatusSent)

	res, err := f.engine.RecordPayment(ctx, owner, doc.ID, amount("100"))
	require.NoError(t, err)
	assert.Equal(t, document.StatusPartial, res.Document.Status)
	assertAmount(t, "100", res.Document.AmountReceived)
	require.NotNil(t, res.Voucher)
	assert.Equal(t, "RCT-0001", res.Voucher.ID)
	assert.Equal(t, document.VoucherReceipt, res.Voucher.Type)
	assert.Equal(t, doc.ID, res.Voucher.LinkedDocID)
	assert.Equal(t, document.PaymentCategory, res.Voucher.Category)
	assert.Equal(t, "2026-03-02", res.Voucher.Date)
	assertAmount(t, "100", res.Voucher.Amount)

	res, err = f.engine.RecordPayment(ctx, owner, doc.ID, amount("110"))
	require.NoError(t, err)
	assert.Equal(t, document.StatusPaid, res.Document.Status)
	assert.Equal(t, "RCT-0002", res.Voucher.ID)
	assertAmount(t, "0", res.Document.Outstanding())

	_, err = f.engine.RecordPayment(ctx, owner, doc.ID, amount("1"))
	assert.ErrorIs(t, err, shared.ErrInvalidState)
	assert.Equal(t, 2, f.count(t, shared.CollectionVouchers))
}

func TestRecordPayment_Rejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	draft := f.invoice(t, owner, "")
	sent := f.invoice(t, owner, document.StatusSent)
	lpo, err := f.engine.CreateDocument(ctx, owner, CreateDocumentInput{
		Type:        document.TypeLPO,
		Status:      document.StatusSent,
		ProductList: lines("1", "50"),
	})
	require.NoError(t, err)

	tests := []struct {
		name   string
		actor  identity.Actor
		id     string
		amount string
		want   error
	}{
		{"zero amount", owner, sent.ID, "0", shared.ErrValidation},
		{"negative amount", owner, sent.ID, "-5", shared.ErrValidation},
		{"not an invoice", owner, lpo.Document.ID, "10", shared.ErrValidation},
		{"draft invoice", owner, draft.ID, "10", shared.ErrInvalidState},
		{"missing invoice", owner, "INV-0404", "10", shared.ErrNotFound},
		{"no payment grant", intern, sent.ID, "10", shared.ErrForbidden},
		{"client", customer, sent.ID, "10", shared.ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.engine.RecordPayment(ctx, tt.actor, tt.id, amount(tt.amount))
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Zero(t, f.count(t, shared.CollectionVouchers))
}

func TestRecordPayment_NonPrivilegedWaitsForApproval(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.invoice(t, owner, document.StatusSent)

	res, err := f.engine.RecordPayment(ctx, clerk, doc.ID, amount("50"))
	require.NoError(t, err)
	assert.Nil(t, res.Voucher)
	assert.Equal(t, document.StatusPendingApproval, res.Document.Status)
	require.True(t, res.Document.Pending.HasPayment())
	assertAmount(t, "50", *res.Document.Pending.PaymentAmount)
	assert.Equal(t, document.StatusPartial, res.Document.Pending.RequestedStatus)
	assertAmount(t, "0", res.Document.AmountReceived)
	assert.Zero(t, f.count(t, shared.CollectionVouchers))

	_, err = f.engine.RecordPayment(ctx, clerk, doc.ID, amount("10"))
	assert.ErrorIs(t, err, shared.ErrInvalidState)

	_, err = f.engine.ApprovePending(ctx, clerk, doc.ID)
	assert.ErrorIs(t, err, shared.ErrForbidden)

	approved, err := f.engine.ApprovePending(ctx, owner, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, document.StatusPartial, approved.Document.Status)
	assertAmount(t, "50", approved.Document.AmountReceived)
	assert.Nil(t, approved.Document.Pending)
	require.NotNil(t, approved.Voucher)
	assert.Equal(t, "RCT-0001", approved.Voucher.ID)
	assert.Equal(t, owner.UserID, approved.Voucher.CreatedBy)
	assert.Equal(t, 1, f.count(t, shared.CollectionVouchers))

	_, err = f.engine.ApprovePending(ctx, owner, doc.ID)
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestRejectPending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.invoice(t, owner, document.StatusSent)

	_, err := f.engine.RecordPayment(ctx, clerk, doc.ID, amount("210"))
	require.NoError(t, err)

	_, err = f.engine.RejectPending(ctx, clerk, doc.ID)
	assert.ErrorIs(t, err, shared.ErrForbidden)

	res, err := f.engine.RejectPending(ctx, owner, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, document.StatusSent, res.Document.Status)
	assert.Nil(t, res.Document.Pending)
	assertAmount(t, "0", res.Document.AmountReceived)
	assert.Zero(t, f.count(t, shared.CollectionVouchers))

	_, err = f.engine.RejectPending(ctx, owner, doc.ID)
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestRejectPending_CreatedIntoApprovalFallsBackToDraft(t *testing.T) {
	f := newFixture(t)
	doc := f.invoice(t, clerk, document.StatusSent)

	res, err := f.engine.RejectPending(context.Background(), admin, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, document.StatusDraft, res.Document.Status)
}

func TestProposalApproval(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	proposal := f.proposal(t, clerk, "Annual retainer", "24000")
	assert.Equal(t, document.ProposalPendingApproval, proposal.Status)
	assert.Equal(t, clerk.UserID, proposal.CreatedBy)

	_, err := f.engine.ApproveProposal(ctx, clerk, proposal.ID)
	assert.ErrorIs(t, err, shared.ErrForbidden)

	res, err := f.engine.ApproveProposal(ctx, owner, proposal.ID)
	require.NoError(t, err)
	assert.Equal(t, document.ProposalDraft, res.Proposal.Status)
	assert.Equal(t, document.EventTypeProposalDecided, f.events.HandledTypes()[f.events.HandledCount()-1])

	_, err = f.engine.ApproveProposal(ctx, owner, proposal.ID)
	assert.ErrorIs(t, err, shared.ErrInvalidState)

	_, err = f.engine.ConvertProposalToLPO(ctx, owner, proposal.ID)
	require.NoError(t, err)
	_, err = f.engine.RejectProposal(ctx, owner, proposal.ID)
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestCreateProposal_Rejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.engine.CreateProposal(ctx, customer, CreateProposalInput{Title: "x", Budget: amount("1")})
	assert.ErrorIs(t, err, shared.ErrForbidden)

	_, err = f.engine.CreateProposal(ctx, owner, CreateProposalInput{Budget: amount("1")})
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = f.engine.CreateProposal(ctx, owner, CreateProposalInput{Title: "x", Budget: amount("-1")})
	assert.ErrorIs(t, err, shared.ErrValidation)

	assert.Zero(t, f.count(t, shared.CollectionProposals))
}

func TestRecordExpense(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.engine.RecordExpense(ctx, clerk, RecordExpenseInput{Amount: amount("10"), Category: "Travel"})
	assert.ErrorIs(t, err, shared.ErrForbidden)

	res, err := f.engine.RecordExpense(ctx, owner, RecordExpenseInput{
		Amount:      amount("75.50"),
		Category:    "Travel",
		Description: "Taxi to client site",
		Date:        "2026-03-01",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, res.Outcome)
	assert.Equal(t, "EXP-0001", res.Voucher.ID)
	assert.Equal(t, document.VoucherExpense, res.Voucher.Type)
	assert.Equal(t, "2026-03-01", res.Voucher.Date)
	assertAmount(t, "75.5", res.Voucher.Amount)

	_, err = f.engine.RecordExpense(ctx, owner, RecordExpenseInput{Amount: amount("10"), Category: "Travel", Date: "yesterday"})
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = f.engine.RecordExpense(ctx, owner, RecordExpenseInput{Amount: amount("0"), Category: "Travel"})
	assert.ErrorIs(t, err, shared.ErrValidation)

	assert.Equal(t, 1, f.count(t, shared.CollectionVouchers))
}

func TestDeleteDocument(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.invoice(t, owner, "")

	_, err := f.engine.DeleteDocument(ctx, clerk, doc.ID)
	assert.ErrorIs(t, err, shared.ErrForbidden)

	res, err := f.engine.DeleteDocument(ctx, owner, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDeleted, res.Outcome)
	assert.Equal(t, doc.ID, res.Document.ID)

	_, err = f.store.Get(ctx, shared.CollectionInvoices, testCompany, doc.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = f.engine.DeleteDocument(ctx, owner, doc.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	assert.Equal(t, document.EventTypeDocumentDeleted, f.events.HandledTypes()[f.events.HandledCount()-1])
}

func TestEngine_TenantIsolation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.invoice(t, owner, document.StatusSent)

	rival := identity.Actor{UserID: "u-rival", CompanyID: "initech", Role: identity.RoleOwner}
	_, err := f.engine.RecordPayment(ctx, rival, doc.ID, amount("10"))
	assert.ErrorIs(t, err, shared.ErrNotFound)

	res, err := f.engine.CreateDocument(ctx, rival, CreateDocumentInput{Type: document.TypeInvoice, ProductList: lines("1", "1")})
	require.NoError(t, err)
	assert.Equal(t, "INV-0001", res.Document.ID)
	assert.Equal(t, "initech", res.Document.CompanyID)
}

// failingUpdates rejects every update in one collection
type failingUpdates struct {
	shared.DocumentStore
	collection shared.Collection
}

func (s *failingUpdates) Update(ctx context.Context, rec *shared.Record) error {
	if rec.Collection == s.collection {
		return errors.New("disk full")
	}
	return s.DocumentStore.Update(ctx, rec)
}

func TestConvertProposalToLPO_RollsBackOnFailedAccept(t *testing.T) {
	store := &failingUpdates{DocumentStore: testutil.NewDocumentStore(t), collection: shared.CollectionProposals}
	f := newFixtureWithStore(t, store)
	proposal := f.proposal(t, owner, "Audit", "3000")

	_, err := f.engine.ConvertProposalToLPO(context.Background(), owner, proposal.ID)
	assert.ErrorIs(t, err, shared.ErrStoreUnavailable)
	assert.Zero(t, f.count(t, shared.CollectionInvoices))
}

func TestCreateReceipt_RejectsInvalidAmount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.invoice(t, owner, document.StatusSent)

	voucher, err := f.engine.createReceipt(ctx, doc, decimal.Zero, owner.UserID)
	assert.ErrorIs(t, err, shared.ErrValidation)
	assert.Nil(t, voucher)
	assert.Zero(t, f.count(t, shared.CollectionVouchers))

	voucher, err = f.engine.createReceipt(ctx, doc, amount("15"), owner.UserID)
	require.NoError(t, err)
	assert.Equal(t, "RCT-0001", voucher.ID)
	assert.Equal(t, doc.ID, voucher.LinkedDocID)
}

func TestRecordPayment_RollsBackReceipt(t *testing.T) {
	store := &failingUpdates{DocumentStore: testutil.NewDocumentStore(t), collection: shared.CollectionInvoices}
	f := newFixtureWithStore(t, store)
	doc := f.invoice(t, owner, document.StatusSent)

	_, err := f.engine.RecordPayment(context.Background(), owner, doc.ID, amount("10"))
	assert.ErrorIs(t, err, shared.ErrStoreUnavailable)
	assert.Zero(t, f.count(t, shared.CollectionVouchers))
}
