package lifecycle

import (
	"context"
	"fmt"

	"github.com/bizops/backend/internal/domain/document"
	"github.com/bizops/backend/internal/domain/identity"
	"github.com/bizops/backend/internal/domain/shared"
	"github.com/bizops/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Approval decisions reported on metrics
const (
	DecisionApproved = "approved"
	DecisionRejected = "rejected"
)

// RecordPayment records a received amount against an invoice. Owner and
// SuperAdmin payments are applied immediately and produce a RECEIPT voucher;
// everyone else's are parked in PendingApproval without a voucher.
func (e *Engine) RecordPayment(ctx context.Context, actor identity.Actor, docID string, amount decimal.Decimal) (*Result, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "lifecycle", "record_payment",
		telemetry.WithAttribute(telemetry.SpanAttrTenantID, actor.CompanyID),
		telemetry.WithAttribute(telemetry.SpanAttrDocumentID, docID),
		telemetry.WithAttribute(telemetry.SpanAttrAmount, amount.String()),
	)
	defer span.End()

	if err := authorize(actor, "record payments",
		identity.CapRecordPayments, identity.CapManageFinance, identity.CapManageInvoices); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var (
		res *Result
		err error
	)
	if actor.IsPrivileged() {
		res, err = e.applyPayment(ctx, actor, docID, amount)
	} else {
		res, err = e.parkPayment(ctx, actor, docID, amount)
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttribute(span, telemetry.SpanAttrDocumentStatus, string(res.Document.Status))
	if res.Voucher != nil {
		telemetry.SetAttribute(span, telemetry.SpanAttrVoucherID, res.Voucher.ID)
	}
	return res, nil
}

// applyPayment writes the receipt first so a failed document update can be
// rolled back by deleting it.
func (e *Engine) applyPayment(ctx context.Context, actor identity.Actor, docID string, amount decimal.Decimal) (*Result, error) {
	tenantID := actor.CompanyID
	current, _, err := get[document.CommercialDocument](ctx, e, shared.CollectionInvoices, tenantID, docID)
	if err != nil {
		return nil, err
	}
	if err := current.ValidatePayment(amount); err != nil {
		return nil, err
	}

	now := e.now()
	voucher, err := e.createReceipt(ctx, current, amount, actor.UserID)
	if err != nil {
		return nil, err
	}

	var from document.Status
	doc, err := update(ctx, e, shared.CollectionInvoices, tenantID, docID, func(d *document.CommercialDocument) error {
		from = d.Status
		return d.ApplyPayment(amount, now)
	})
	if err != nil {
		e.compensate(ctx, shared.CollectionVouchers, tenantID, voucher.ID, err)
		return nil, err
	}

	events := []shared.DomainEvent{
		document.NewPaymentRecordedEvent(doc, amount, voucher.ID, actor.UserID, now),
		document.NewVoucherCreatedEvent(voucher, actor.UserID, now),
	}
	if from != doc.Status {
		events = append(events, document.NewDocumentStatusChangedEvent(doc, from, actor.UserID, now))
	}
	e.publish(ctx, events...)
	if e.metrics != nil {
		e.metrics.RecordPayment(ctx, tenantID, telemetry.PaymentStatusApplied, amount)
	}

	e.logger.Info("Payment recorded",
		zap.String("tenant_id", tenantID),
		zap.String("document_id", doc.ID),
		zap.String("amount", amount.String()),
		zap.String("status", string(doc.Status)),
		zap.String("voucher_id", voucher.ID),
		zap.String("actor_id", actor.UserID),
	)
	return &Result{Outcome: OutcomeUpdated, Document: doc, Voucher: voucher}, nil
}

func (e *Engine) parkPayment(ctx context.Context, actor identity.Actor, docID string, amount decimal.Decimal) (*Result, error) {
	tenantID := actor.CompanyID
	now := e.now()

	var from document.Status
	doc, err := update(ctx, e, shared.CollectionInvoices, tenantID, docID, func(d *document.CommercialDocument) error {
		from = d.Status
		return d.RequestPaymentApproval(amount, actor.UserID, now)
	})
	if err != nil {
		return nil, err
	}

	e.publish(ctx,
		document.NewDocumentStatusChangedEvent(doc, from, actor.UserID, now),
		document.NewApprovalRequestedEvent(doc, actor.UserID, now),
	)
	if e.metrics != nil {
		e.metrics.RecordPayment(ctx, tenantID, telemetry.PaymentStatusPending, amount)
	}

	e.logger.Info("Payment awaiting approval",
		zap.String("tenant_id", tenantID),
		zap.String("document_id", doc.ID),
		zap.String("amount", amount.String()),
		zap.String("actor_id", actor.UserID),
	)
	return &Result{Outcome: OutcomeUpdated, Document: doc}, nil
}

func (e *Engine) createReceipt(ctx context.Context, doc *document.CommercialDocument, amount decimal.Decimal, actorID string) (*document.Voucher, error) {
	voucher, err := document.NewReceipt("", doc, amount, actorID, e.now())
	if err != nil {
		return nil, err
	}
	if _, err := e.insert(ctx, shared.CollectionVouchers, doc.CompanyID, document.PrefixReceipt, func(id string) any {
		voucher.ID = id
		return voucher
	}); err != nil {
		return nil, err
	}
	return voucher, nil
}

// ApprovePending clears a document's pending request. A parked payment is
// applied together with its RECEIPT voucher; otherwise the requested status
// takes effect.
func (e *Engine) ApprovePending(ctx context.Context, actor identity.Actor, docID string) (*Result, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "lifecycle", "approve_pending",
		telemetry.WithAttribute(telemetry.SpanAttrTenantID, actor.CompanyID),
		telemetry.WithAttribute(telemetry.SpanAttrDocumentID, docID),
	)
	defer span.End()

	res, err := e.approvePending(ctx, actor, docID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttribute(span, telemetry.SpanAttrDocumentStatus, string(res.Document.Status))
	return res, nil
}

func (e *Engine) approvePending(ctx context.Context, actor identity.Actor, docID string) (*Result, error) {
	if err := requirePrivileged(actor, "approve pending documents"); err != nil {
		return nil, err
	}
	tenantID := actor.CompanyID

	current, _, err := get[document.CommercialDocument](ctx, e, shared.CollectionInvoices, tenantID, docID)
	if err != nil {
		return nil, err
	}
	if current.Status != document.StatusPendingApproval {
		return nil, shared.NewInvalidStateError(fmt.Sprintf("%s is not awaiting approval", current.ID))
	}

	now := e.now()
	var voucher *document.Voucher
	if current.Pending.HasPayment() {
		voucher, err = e.createReceipt(ctx, current, *current.Pending.PaymentAmount, actor.UserID)
		if err != nil {
			return nil, err
		}
	}

	var req *document.PendingApproval
	doc, err := update(ctx, e, shared.CollectionInvoices, tenantID, docID, func(d *document.CommercialDocument) error {
		if voucher != nil && (!d.Pending.HasPayment() || !d.Pending.PaymentAmount.Equal(voucher.Amount)) {
			return shared.NewConcurrencyError(fmt.Sprintf("pending payment on %s changed during approval", d.ID))
		}
		r, err := d.Approve(now)
		req = r
		return err
	})
	if err != nil {
		if voucher != nil {
			e.compensate(ctx, shared.CollectionVouchers, tenantID, voucher.ID, err)
		}
		return nil, err
	}

	events := []shared.DomainEvent{document.NewDocumentStatusChangedEvent(doc, document.StatusPendingApproval, actor.UserID, now)}
	if voucher != nil {
		events = append(events,
			document.NewPaymentRecordedEvent(doc, voucher.Amount, voucher.ID, actor.UserID, now),
			document.NewVoucherCreatedEvent(voucher, actor.UserID, now),
		)
	}
	e.publish(ctx, events...)
	if e.metrics != nil {
		e.metrics.RecordApproval(ctx, tenantID, DecisionApproved)
		if voucher != nil {
			e.metrics.RecordPayment(ctx, tenantID, telemetry.PaymentStatusApplied, voucher.Amount)
		}
	}

	fields := []zap.Field{
		zap.String("tenant_id", tenantID),
		zap.String("document_id", doc.ID),
		zap.String("status", string(doc.Status)),
		zap.String("actor_id", actor.UserID),
	}
	if req != nil {
		fields = append(fields, zap.String("requested_by", req.RequestedBy))
	}
	e.logger.Info("Pending request approved", fields...)
	return &Result{Outcome: OutcomeUpdated, Document: doc, Voucher: voucher}, nil
}

// RejectPending drops a document's pending request and restores the status it
// had before. Parked payments are discarded.
func (e *Engine) RejectPending(ctx context.Context, actor identity.Actor, docID string) (*Result, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "lifecycle", "reject_pending",
		telemetry.WithAttribute(telemetry.SpanAttrTenantID, actor.CompanyID),
		telemetry.WithAttribute(telemetry.SpanAttrDocumentID, docID),
	)
	defer span.End()

	if err := requirePrivileged(actor, "reject pending documents"); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	tenantID := actor.CompanyID
	now := e.now()

	doc, err := update(ctx, e, shared.CollectionInvoices, tenantID, docID, func(d *document.CommercialDocument) error {
		_, err := d.Reject(now)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	e.publish(ctx, document.NewDocumentStatusChangedEvent(doc, document.StatusPendingApproval, actor.UserID, now))
	if e.metrics != nil {
		e.metrics.RecordApproval(ctx, tenantID, DecisionRejected)
	}
	e.logger.Info("Pending request rejected",
		zap.String("tenant_id", tenantID),
		zap.String("document_id", doc.ID),
		zap.String("status", string(doc.Status)),
		zap.String("actor_id", actor.UserID),
	)
	return &Result{Outcome: OutcomeUpdated, Document: doc}, nil
}
