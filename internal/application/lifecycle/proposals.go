package lifecycle

import (
	"context"
	"time"

	"github.com/bizops/backend/internal/domain/document"
	"github.com/bizops/backend/internal/domain/identity"
	"github.com/bizops/backend/internal/domain/shared"
	"github.com/bizops/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// CreateProposal creates a proposal. Proposals from non-privileged actors wait
// in PendingApproval until an Owner releases them.
func (e *Engine) CreateProposal(ctx context.Context, actor identity.Actor, in CreateProposalInput) (*Result, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "lifecycle", "create_proposal",
		telemetry.WithAttribute(telemetry.SpanAttrTenantID, actor.CompanyID),
	)
	defer span.End()

	if err := authorize(actor, "create proposals", identity.CapManageProposals); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := e.checkInput(in); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	tenantID := actor.CompanyID
	now := e.now()
	proposal, err := document.NewProposal("", tenantID, in.Title, in.Budget, now)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	proposal.ClientName = in.ClientName
	proposal.ClientID = in.ClientID
	proposal.Timeline = in.Timeline
	proposal.ProductList = in.ProductList
	proposal.CreatedBy = actor.UserID
	if in.Currency != "" {
		proposal.Currency = in.Currency
	}
	if !actor.IsPrivileged() {
		proposal.Status = document.ProposalPendingApproval
	}

	if _, err := e.insert(ctx, shared.CollectionProposals, tenantID, document.PrefixProposal, func(id string) any {
		proposal.ID = id
		return proposal
	}); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	events := []shared.DomainEvent{document.NewProposalCreatedEvent(proposal, actor.UserID, now)}
	if proposal.Status == document.ProposalPendingApproval {
		events = append(events, document.NewProposalApprovalRequestedEvent(proposal, actor.UserID, now))
	}
	e.publish(ctx, events...)

	telemetry.SetAttribute(span, telemetry.SpanAttrProposalID, proposal.ID)
	e.logger.Info("Proposal created",
		zap.String("tenant_id", tenantID),
		zap.String("proposal_id", proposal.ID),
		zap.String("status", string(proposal.Status)),
		zap.String("actor_id", actor.UserID),
	)
	return &Result{Outcome: OutcomeCreated, Proposal: proposal}, nil
}

// ApproveProposal releases a pending proposal to Draft
func (e *Engine) ApproveProposal(ctx context.Context, actor identity.Actor, proposalID string) (*Result, error) {
	return e.decideProposal(ctx, actor, proposalID, DecisionApproved, (*document.Proposal).Approve)
}

// RejectProposal closes a proposal. A rejected proposal can no longer be
// converted.
func (e *Engine) RejectProposal(ctx context.Context, actor identity.Actor, proposalID string) (*Result, error) {
	return e.decideProposal(ctx, actor, proposalID, DecisionRejected, (*document.Proposal).Reject)
}

func (e *Engine) decideProposal(ctx context.Context, actor identity.Actor, proposalID, decision string, apply func(*document.Proposal, time.Time) error) (*Result, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "lifecycle", "decide_proposal",
		telemetry.WithAttribute(telemetry.SpanAttrTenantID, actor.CompanyID),
		telemetry.WithAttribute(telemetry.SpanAttrProposalID, proposalID),
		telemetry.WithAttribute(telemetry.SpanAttrOutcome, decision),
	)
	defer span.End()

	if err := requirePrivileged(actor, "decide on proposals"); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	tenantID := actor.CompanyID
	now := e.now()

	proposal, err := update(ctx, e, shared.CollectionProposals, tenantID, proposalID, func(p *document.Proposal) error {
		return apply(p, now)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	e.publish(ctx, document.NewProposalDecidedEvent(proposal, decision, actor.UserID, now))
	if e.metrics != nil {
		e.metrics.RecordApproval(ctx, tenantID, decision)
	}
	e.logger.Info("Proposal decided",
		zap.String("tenant_id", tenantID),
		zap.String("proposal_id", proposal.ID),
		zap.String("decision", decision),
		zap.String("status", string(proposal.Status)),
		zap.String("actor_id", actor.UserID),
	)
	return &Result{Outcome: OutcomeUpdated, Proposal: proposal}, nil
}

// RecordExpense books an EXPENSE voucher
func (e *Engine) RecordExpense(ctx context.Context, actor identity.Actor, in RecordExpenseInput) (*Result, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "lifecycle", "record_expense",
		telemetry.WithAttribute(telemetry.SpanAttrTenantID, actor.CompanyID),
		telemetry.WithAttribute(telemetry.SpanAttrAmount, in.Amount.String()),
	)
	defer span.End()

	if err := authorize(actor, "record expenses", identity.CapManageFinance); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := e.checkInput(in); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	tenantID := actor.CompanyID
	now := e.now()
	voucher, err := document.NewExpense("", tenantID, in.Amount, in.Category, actor.UserID, now)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	voucher.Description = in.Description
	if in.Currency != "" {
		voucher.Currency = in.Currency
	}
	if in.Date != "" {
		day, ok := document.ParseDate(in.Date)
		if !ok {
			err := shared.NewValidationError("date must be YYYY-MM-DD or RFC 3339")
			telemetry.RecordError(span, err)
			return nil, err
		}
		voucher.Date = document.FormatDate(day)
	}

	if _, err := e.insert(ctx, shared.CollectionVouchers, tenantID, document.PrefixExpense, func(id string) any {
		voucher.ID = id
		return voucher
	}); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	e.publish(ctx, document.NewVoucherCreatedEvent(voucher, actor.UserID, now))
	telemetry.SetAttribute(span, telemetry.SpanAttrVoucherID, voucher.ID)
	e.logger.Info("Expense recorded",
		zap.String("tenant_id", tenantID),
		zap.String("voucher_id", voucher.ID),
		zap.String("amount", voucher.Amount.String()),
		zap.String("category", voucher.Category),
		zap.String("actor_id", actor.UserID),
	)
	return &Result{Outcome: OutcomeCreated, Voucher: voucher}, nil
}
