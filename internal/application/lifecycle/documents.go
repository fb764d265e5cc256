package lifecycle

import (
	"context"
	"fmt"

	"github.com/bizops/backend/internal/application/tenantsync"
	"github.com/bizops/backend/internal/domain/document"
	"github.com/bizops/backend/internal/domain/identity"
	"github.com/bizops/backend/internal/domain/shared"
	"github.com/bizops/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// capabilitiesFor returns the capabilities that reach a document type
func capabilitiesFor(t document.DocumentType) []identity.Capability {
	if t == document.TypeLPO {
		return []identity.Capability{identity.CapManageLPO, identity.CapManageFinance}
	}
	return []identity.Capability{identity.CapManageInvoices, identity.CapManageFinance}
}

// applyCreationGate sets the initial status. Privileged actors get what they
// asked for; everyone else lands in PendingApproval with the request recorded.
func applyCreationGate(doc *document.CommercialDocument, actor identity.Actor, requested document.Status) error {
	if requested == "" {
		requested = document.StatusDraft
	}
	if !requested.IsValid() {
		return shared.NewValidationError(fmt.Sprintf("unknown status %q", requested))
	}
	if actor.IsPrivileged() && requested != document.StatusPendingApproval {
		doc.Status = requested
		return nil
	}
	if requested == document.StatusPendingApproval {
		requested = document.StatusDraft
	}
	return doc.RequestApproval(requested, nil, actor.UserID, doc.CreatedAt)
}

// CreateDocument creates an Invoice or LPO. When the document references a
// proposal that already has a fiscal document, the existing one is returned
// with OutcomeAlreadyExists.
func (e *Engine) CreateDocument(ctx context.Context, actor identity.Actor, in CreateDocumentInput) (*Result, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "lifecycle", "create_document",
		telemetry.WithAttribute(telemetry.SpanAttrTenantID, actor.CompanyID),
		telemetry.WithAttribute(telemetry.SpanAttrDocumentType, string(in.Type)),
	)
	defer span.End()

	res, err := e.createDocument(ctx, actor, in)
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

func (e *Engine) createDocument(ctx context.Context, actor identity.Actor, in CreateDocumentInput) (*Result, error) {
	if err := actor.Validate(); err != nil {
		return nil, shared.NewValidationError(err.Error())
	}
	if !in.Type.IsValid() {
		return nil, shared.NewValidationError(fmt.Sprintf("unknown document type %q", in.Type))
	}
	if err := authorize(actor, "create "+string(in.Type), capabilitiesFor(in.Type)...); err != nil {
		return nil, err
	}
	if err := e.checkInput(in); err != nil {
		return nil, err
	}

	tenantID := actor.CompanyID
	now := e.now()
	doc, err := document.NewCommercialDocument("", in.Type, tenantID, in.ProductList, in.TaxRate, in.DiscountRate, now)
	if err != nil {
		return nil, err
	}
	doc.ClientName = in.ClientName
	doc.ClientID = in.ClientID
	doc.LinkedProposalID = in.LinkedProposalID
	doc.DueDate = in.DueDate
	doc.Notes = in.Notes
	doc.CreatedBy = actor.UserID
	if in.Currency != "" {
		doc.Currency = in.Currency
	}
	if err := applyCreationGate(doc, actor, in.Status); err != nil {
		return nil, err
	}

	create := func() (*Result, error) {
		if _, err := e.insert(ctx, shared.CollectionInvoices, tenantID, document.PrefixFor(doc.Type), func(id string) any {
			doc.ID = id
			return doc
		}); err != nil {
			return nil, err
		}

		events := []shared.DomainEvent{document.NewDocumentCreatedEvent(doc, actor.UserID, now)}
		if doc.Status == document.StatusPendingApproval {
			events = append(events, document.NewApprovalRequestedEvent(doc, actor.UserID, now))
		}
		e.publish(ctx, events...)
		if e.metrics != nil {
			e.metrics.RecordDocumentCreated(ctx, tenantID, string(doc.Type), string(doc.Status))
		}

		e.logger.Info("Document created",
			zap.String("tenant_id", tenantID),
			zap.String("document_id", doc.ID),
			zap.String("type", string(doc.Type)),
			zap.String("status", string(doc.Status)),
			zap.String("actor_id", actor.UserID),
		)
		return &Result{Outcome: OutcomeCreated, Document: doc}, nil
	}

	if doc.LinkedProposalID == "" {
		return create()
	}

	// one directly created fiscal document per proposal
	lookup := func() (*Result, error) {
		existing, err := e.findDocument(ctx, tenantID, func(d *document.CommercialDocument) bool {
			return d.LinkedProposalID == doc.LinkedProposalID && d.SourceDocID == ""
		})
		if err != nil || existing == nil {
			return nil, err
		}
		return &Result{Outcome: OutcomeAlreadyExists, Document: existing}, nil
	}
	return e.idempotent(ctx, claimKey("proposal", tenantID, doc.LinkedProposalID), lookup, create)
}

// findDocument scans the latest invoices snapshot for the first match
func (e *Engine) findDocument(ctx context.Context, tenantID string, match func(*document.CommercialDocument) bool) (*document.CommercialDocument, error) {
	snap, err := e.source.Read(ctx, tenantID, shared.CollectionInvoices)
	if err != nil {
		return nil, shared.StoreUnavailable(err)
	}
	docs, err := tenantsync.Decode[document.CommercialDocument](snap)
	if err != nil {
		e.logger.Warn("Skipping undecodable documents", zap.String("tenant_id", tenantID), zap.Error(err))
	}
	for i := range docs {
		if match(&docs[i]) {
			return &docs[i], nil
		}
	}
	return nil, nil
}

// UpdateDocumentStatus moves a document along the state machine. A
// non-privileged request for Paid is substituted with PendingApproval, and
// only privileged actors can move a document out of PendingApproval.
func (e *Engine) UpdateDocumentStatus(ctx context.Context, actor identity.Actor, id string, requested document.Status) (*Result, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "lifecycle", "update_document_status",
		telemetry.WithAttribute(telemetry.SpanAttrTenantID, actor.CompanyID),
		telemetry.WithAttribute(telemetry.SpanAttrDocumentID, id),
		telemetry.WithAttribute(telemetry.SpanAttrDocumentStatus, string(requested)),
	)
	defer span.End()

	res, err := e.updateDocumentStatus(ctx, actor, id, requested)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttribute(span, telemetry.SpanAttrOutcome, string(res.Outcome))
	return res, nil
}

func (e *Engine) updateDocumentStatus(ctx context.Context, actor identity.Actor, id string, requested document.Status) (*Result, error) {
	if err := actor.Validate(); err != nil {
		return nil, shared.NewValidationError(err.Error())
	}
	if !requested.IsValid() {
		return nil, shared.NewValidationError(fmt.Sprintf("unknown status %q", requested))
	}
	tenantID := actor.CompanyID

	current, _, err := get[document.CommercialDocument](ctx, e, shared.CollectionInvoices, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, "change "+string(current.Type)+" status", capabilitiesFor(current.Type)...); err != nil {
		return nil, err
	}

	var from document.Status
	unchanged := false
	now := e.now()
	doc, err := update(ctx, e, shared.CollectionInvoices, tenantID, id, func(d *document.CommercialDocument) error {
		from = d.Status
		unchanged = false
		switch {
		case d.Status == requested:
			unchanged = true
			return errUnchanged
		case d.Status == document.StatusPendingApproval && !actor.IsPrivileged():
			return shared.NewForbiddenError("only Owner or SuperAdmin can clear a pending approval")
		case requested == document.StatusPendingApproval:
			return d.RequestApproval(d.Status.ApprovalTarget(), nil, actor.UserID, now)
		case requested == document.StatusPaid && !actor.IsPrivileged():
			return d.RequestApproval(document.StatusPaid, nil, actor.UserID, now)
		default:
			return d.TransitionTo(requested, now)
		}
	})
	if unchanged {
		return &Result{Outcome: OutcomeUnchanged, Document: current}, nil
	}
	if err != nil {
		return nil, err
	}

	events := []shared.DomainEvent{document.NewDocumentStatusChangedEvent(doc, from, actor.UserID, now)}
	if doc.Status == document.StatusPendingApproval {
		events = append(events, document.NewApprovalRequestedEvent(doc, actor.UserID, now))
	}
	e.publish(ctx, events...)

	e.logger.Info("Document status changed",
		zap.String("tenant_id", tenantID),
		zap.String("document_id", id),
		zap.String("from", string(from)),
		zap.String("to", string(doc.Status)),
		zap.String("requested", string(requested)),
		zap.String("actor_id", actor.UserID),
	)
	return &Result{Outcome: OutcomeUpdated, Document: doc}, nil
}

// DeleteDocument removes a document by id. Nothing referencing it is touched.
func (e *Engine) DeleteDocument(ctx context.Context, actor identity.Actor, id string) (*Result, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "lifecycle", "delete_document",
		telemetry.WithAttribute(telemetry.SpanAttrTenantID, actor.CompanyID),
		telemetry.WithAttribute(telemetry.SpanAttrDocumentID, id),
	)
	defer span.End()

	if err := authorize(actor, "delete documents", identity.CapDeleteDocuments); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	tenantID := actor.CompanyID

	doc, _, err := get[document.CommercialDocument](ctx, e, shared.CollectionInvoices, tenantID, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := e.store.Delete(ctx, shared.CollectionInvoices, tenantID, id); err != nil {
		err = shared.StoreUnavailable(err)
		telemetry.RecordError(span, err)
		return nil, err
	}

	e.publish(ctx, document.NewDocumentDeletedEvent(tenantID, id, actor.UserID, e.now()))
	e.logger.Info("Document deleted",
		zap.String("tenant_id", tenantID),
		zap.String("document_id", id),
		zap.String("actor_id", actor.UserID),
	)
	return &Result{Outcome: OutcomeDeleted, Document: doc}, nil
}
