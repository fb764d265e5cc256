package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/bizops/backend/internal/domain/document"
	"github.com/bizops/backend/internal/domain/identity"
	"github.com/bizops/backend/internal/domain/shared"
	"github.com/bizops/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Conversion kinds reported on metrics and events
const (
	ConversionProposalToLPO     = "proposal_to_lpo"
	ConversionDocumentToInvoice = "document_to_invoice"
)

// ConvertProposalToLPO creates an LPO from a proposal and marks the proposal
// Accepted. If any document already references the proposal, that document is
// returned with OutcomeAlreadyExists and nothing is written.
func (e *Engine) ConvertProposalToLPO(ctx context.Context, actor identity.Actor, proposalID string) (*Result, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "lifecycle", "convert_proposal_to_lpo",
		telemetry.WithAttribute(telemetry.SpanAttrTenantID, actor.CompanyID),
		telemetry.WithAttribute(telemetry.SpanAttrProposalID, proposalID),
	)
	defer span.End()

	res, err := e.convertProposalToLPO(ctx, actor, proposalID)
	e.recordConversion(ctx, actor.CompanyID, ConversionProposalToLPO, res, err)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrOutcome, string(res.Outcome),
		telemetry.SpanAttrDocumentID, res.Document.ID,
	)
	return res, nil
}

func (e *Engine) convertProposalToLPO(ctx context.Context, actor identity.Actor, proposalID string) (*Result, error) {
	if err := authorize(actor, "convert proposals to LPOs", capabilitiesFor(document.TypeLPO)...); err != nil {
		return nil, err
	}
	tenantID := actor.CompanyID

	proposal, _, err := get[document.Proposal](ctx, e, shared.CollectionProposals, tenantID, proposalID)
	if err != nil {
		return nil, err
	}

	lookup := func() (*Result, error) {
		existing, err := e.findDocument(ctx, tenantID, func(d *document.CommercialDocument) bool {
			return d.LinkedProposalID == proposal.ID
		})
		if err != nil || existing == nil {
			return nil, err
		}
		e.logger.Info("Proposal already converted",
			zap.String("tenant_id", tenantID),
			zap.String("proposal_id", proposal.ID),
			zap.String("document_id", existing.ID),
		)
		return &Result{Outcome: OutcomeAlreadyExists, Document: existing, Proposal: proposal}, nil
	}

	create := func() (*Result, error) {
		if proposal.Status == document.ProposalRejected {
			return nil, shared.NewInvalidStateError(fmt.Sprintf("proposal %s was rejected", proposal.ID))
		}
		if proposal.Status == document.ProposalPendingApproval && !actor.IsPrivileged() {
			return nil, shared.NewInvalidStateError(fmt.Sprintf("proposal %s is awaiting approval by an Owner or SuperAdmin", proposal.ID))
		}

		now := e.now()
		lpo, err := document.NewCommercialDocument("", document.TypeLPO, tenantID, proposal.LPOItems(), decimal.Zero, decimal.Zero, now)
		if err != nil {
			return nil, err
		}
		lpo.LinkedProposalID = proposal.ID
		lpo.ClientName = proposal.ClientName
		lpo.ClientID = proposal.ClientID
		lpo.DueDate = proposal.Timeline
		lpo.CreatedBy = actor.UserID
		if proposal.Currency != "" {
			lpo.Currency = proposal.Currency
		}
		if err := applyCreationGate(lpo, actor, document.StatusDraft); err != nil {
			return nil, err
		}

		rec, err := e.insert(ctx, shared.CollectionInvoices, tenantID, document.PrefixLPO, func(id string) any {
			lpo.ID = id
			return lpo
		})
		if err != nil {
			return nil, err
		}

		accepted, err := update(ctx, e, shared.CollectionProposals, tenantID, proposal.ID, func(p *document.Proposal) error {
			return p.Accept(now)
		})
		if err != nil {
			e.compensate(ctx, shared.CollectionInvoices, tenantID, rec.ID, err)
			return nil, err
		}

		events := []shared.DomainEvent{
			document.NewDocumentConvertedEvent(lpo, proposal.ID, document.AggregateProposal, actor.UserID, now),
			document.NewDocumentCreatedEvent(lpo, actor.UserID, now),
		}
		if lpo.Status == document.StatusPendingApproval {
			events = append(events, document.NewApprovalRequestedEvent(lpo, actor.UserID, now))
		}
		e.publish(ctx, events...)

		e.logger.Info("Proposal converted to LPO",
			zap.String("tenant_id", tenantID),
			zap.String("proposal_id", proposal.ID),
			zap.String("document_id", lpo.ID),
			zap.String("status", string(lpo.Status)),
			zap.String("actor_id", actor.UserID),
		)
		return &Result{Outcome: OutcomeCreated, Document: lpo, Proposal: accepted}, nil
	}

	return e.idempotent(ctx, claimKey("proposal", tenantID, proposal.ID), lookup, create)
}

// ConvertDocumentToInvoice synthesizes an Invoice from an LPO (or any other
// non-invoice document) and settles the source. A repeat call for the same
// source, or for any source referencing the same proposal, returns the
// existing invoice with OutcomeAlreadyExists.
func (e *Engine) ConvertDocumentToInvoice(ctx context.Context, actor identity.Actor, sourceID string) (*Result, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "lifecycle", "convert_document_to_invoice",
		telemetry.WithAttribute(telemetry.SpanAttrTenantID, actor.CompanyID),
		telemetry.WithAttribute(telemetry.SpanAttrSourceID, sourceID),
	)
	defer span.End()

	res, err := e.convertDocumentToInvoice(ctx, actor, sourceID)
	e.recordConversion(ctx, actor.CompanyID, ConversionDocumentToInvoice, res, err)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrOutcome, string(res.Outcome),
		telemetry.SpanAttrDocumentID, res.Document.ID,
	)
	return res, nil
}

func (e *Engine) convertDocumentToInvoice(ctx context.Context, actor identity.Actor, sourceID string) (*Result, error) {
	if err := authorize(actor, "synthesize invoices", capabilitiesFor(document.TypeInvoice)...); err != nil {
		return nil, err
	}
	tenantID := actor.CompanyID

	source, _, err := get[document.CommercialDocument](ctx, e, shared.CollectionInvoices, tenantID, sourceID)
	if err != nil {
		return nil, err
	}
	if source.IsInvoice() {
		return nil, shared.NewValidationError(fmt.Sprintf("%s is already an invoice", source.ID))
	}

	lookup := func() (*Result, error) {
		existing, err := e.findDocument(ctx, tenantID, func(d *document.CommercialDocument) bool {
			if !d.IsInvoice() {
				return false
			}
			if d.SourceDocID == source.ID {
				return true
			}
			return source.LinkedProposalID != "" && d.LinkedProposalID == source.LinkedProposalID
		})
		if err != nil || existing == nil {
			return nil, err
		}
		e.logger.Info("Invoice already synthesized",
			zap.String("tenant_id", tenantID),
			zap.String("source_id", source.ID),
			zap.String("document_id", existing.ID),
		)
		return &Result{Outcome: OutcomeAlreadyExists, Document: existing}, nil
	}

	create := func() (*Result, error) {
		now := e.now()
		invoice, err := document.NewCommercialDocument("", document.TypeInvoice, tenantID, source.ProductList, source.TaxRate, source.DiscountRate, now)
		if err != nil {
			return nil, err
		}
		invoice.SourceDocID = source.ID
		invoice.LinkedProposalID = source.LinkedProposalID
		invoice.Currency = source.Currency
		invoice.ClientName = source.ClientName
		invoice.ClientID = source.ClientID
		invoice.DueDate = source.DueDate
		invoice.CreatedBy = actor.UserID
		if err := applyCreationGate(invoice, actor, document.StatusDraft); err != nil {
			return nil, err
		}

		rec, err := e.insert(ctx, shared.CollectionInvoices, tenantID, document.PrefixInvoice, func(id string) any {
			invoice.ID = id
			return invoice
		})
		if err != nil {
			return nil, err
		}

		settled, err := update(ctx, e, shared.CollectionInvoices, tenantID, source.ID, func(d *document.CommercialDocument) error {
			switch {
			case d.Status == document.StatusPaid:
				return errUnchanged
			case actor.IsPrivileged():
				d.Settle(now)
				return nil
			case d.Status == document.StatusPendingApproval:
				return errUnchanged
			default:
				return d.RequestApproval(document.StatusPaid, nil, actor.UserID, now)
			}
		})
		if err != nil && !errors.Is(err, errUnchanged) {
			e.compensate(ctx, shared.CollectionInvoices, tenantID, rec.ID, err)
			return nil, err
		}

		events := []shared.DomainEvent{
			document.NewDocumentConvertedEvent(invoice, source.ID, string(source.Type), actor.UserID, now),
			document.NewDocumentCreatedEvent(invoice, actor.UserID, now),
		}
		if invoice.Status == document.StatusPendingApproval {
			events = append(events, document.NewApprovalRequestedEvent(invoice, actor.UserID, now))
		}
		if settled != nil {
			events = append(events, document.NewDocumentStatusChangedEvent(settled, source.Status, actor.UserID, now))
			if settled.Status == document.StatusPendingApproval {
				events = append(events, document.NewApprovalRequestedEvent(settled, actor.UserID, now))
			}
		}
		e.publish(ctx, events...)

		e.logger.Info("Invoice synthesized",
			zap.String("tenant_id", tenantID),
			zap.String("source_id", source.ID),
			zap.String("document_id", invoice.ID),
			zap.String("status", string(invoice.Status)),
			zap.String("actor_id", actor.UserID),
		)
		return &Result{Outcome: OutcomeCreated, Document: invoice}, nil
	}

	key := claimKey("invoice", tenantID, "doc:"+source.ID)
	if source.LinkedProposalID != "" {
		key = claimKey("invoice", tenantID, "proposal:"+source.LinkedProposalID)
	}
	return e.idempotent(ctx, key, lookup, create)
}

func (e *Engine) recordConversion(ctx context.Context, tenantID, kind string, res *Result, err error) {
	if e.metrics == nil {
		return
	}
	outcome := telemetry.ConversionFailed
	switch {
	case err == nil && res.Outcome == OutcomeAlreadyExists:
		outcome = telemetry.ConversionAlreadyExists
	case err == nil:
		outcome = telemetry.ConversionCreated
	case shared.CodeOf(err) == shared.CodeConcurrencyConflict:
		outcome = telemetry.ConversionConflict
	}
	e.metrics.RecordConversion(ctx, tenantID, kind, outcome)
}
