package document

import (
	"time"

	"github.com/bizops/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Event type names
const (
	EventTypeDocumentCreated       = "DocumentCreated"
	EventTypeDocumentStatusChanged = "DocumentStatusChanged"
	EventTypePaymentRecorded       = "PaymentRecorded"
	EventTypeDocumentConverted     = "DocumentConverted"
	EventTypeDocumentDeleted       = "DocumentDeleted"
	EventTypeApprovalRequested     = "ApprovalRequested"
	EventTypeProposalCreated       = "ProposalCreated"
	EventTypeProposalDecided       = "ProposalDecided"
	EventTypeVoucherCreated        = "VoucherCreated"
)

// Aggregate type names carried on events
const (
	AggregateDocument = "CommercialDocument"
	AggregateProposal = "Proposal"
	AggregateVoucher  = "Voucher"
)

// DocumentCreatedEvent is raised when an Invoice or LPO is created directly
type DocumentCreatedEvent struct {
	shared.BaseDomainEvent
	DocumentType     DocumentType    `json:"documentType"`
	Status           Status          `json:"status"`
	LinkedProposalID string          `json:"linkedProposalId,omitempty"`
	AmountAED        decimal.Decimal `json:"amountAED"`
}

// NewDocumentCreatedEvent creates a new DocumentCreatedEvent
func NewDocumentCreatedEvent(d *CommercialDocument, actorID string, at time.Time) *DocumentCreatedEvent {
	return &DocumentCreatedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeDocumentCreated, AggregateDocument, d.ID, d.CompanyID, actorID, at),
		DocumentType:     d.Type,
		Status:           d.Status,
		LinkedProposalID: d.LinkedProposalID,
		AmountAED:        d.AmountAED,
	}
}

// DocumentStatusChangedEvent is raised on every status change
type DocumentStatusChangedEvent struct {
	shared.BaseDomainEvent
	FromStatus Status `json:"fromStatus"`
	ToStatus   Status `json:"toStatus"`
}

// NewDocumentStatusChangedEvent creates a new DocumentStatusChangedEvent
func NewDocumentStatusChangedEvent(d *CommercialDocument, from Status, actorID string, at time.Time) *DocumentStatusChangedEvent {
	return &DocumentStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentStatusChanged, AggregateDocument, d.ID, d.CompanyID, actorID, at),
		FromStatus:      from,
		ToStatus:        d.Status,
	}
}

// PaymentRecordedEvent is raised when a payment is applied to an invoice
type PaymentRecordedEvent struct {
	shared.BaseDomainEvent
	Amount         decimal.Decimal `json:"amount"`
	AmountReceived decimal.Decimal `json:"amountReceived"`
	Status         Status          `json:"status"`
	VoucherID      string          `json:"voucherId,omitempty"`
}

// NewPaymentRecordedEvent creates a new PaymentRecordedEvent
func NewPaymentRecordedEvent(d *CommercialDocument, amount decimal.Decimal, voucherID, actorID string, at time.Time) *PaymentRecordedEvent {
	return &PaymentRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentRecorded, AggregateDocument, d.ID, d.CompanyID, actorID, at),
		Amount:          amount,
		AmountReceived:  d.AmountReceived,
		Status:          d.Status,
		VoucherID:       voucherID,
	}
}

// DocumentConvertedEvent is raised when a proposal or document produces a new
// document
type DocumentConvertedEvent struct {
	shared.BaseDomainEvent
	SourceID     string       `json:"sourceId"`
	SourceType   string       `json:"sourceType"`
	DocumentType DocumentType `json:"documentType"`
}

// NewDocumentConvertedEvent creates a new DocumentConvertedEvent. The
// aggregate is the newly created document.
func NewDocumentConvertedEvent(created *CommercialDocument, sourceID, sourceType, actorID string, at time.Time) *DocumentConvertedEvent {
	return &DocumentConvertedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentConverted, AggregateDocument, created.ID, created.CompanyID, actorID, at),
		SourceID:        sourceID,
		SourceType:      sourceType,
		DocumentType:    created.Type,
	}
}

// DocumentDeletedEvent is raised when a document is removed
type DocumentDeletedEvent struct {
	shared.BaseDomainEvent
}

// NewDocumentDeletedEvent creates a new DocumentDeletedEvent
func NewDocumentDeletedEvent(companyID, id, actorID string, at time.Time) *DocumentDeletedEvent {
	return &DocumentDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentDeleted, AggregateDocument, id, companyID, actorID, at),
	}
}

// ApprovalRequestedEvent is raised when a document or proposal is parked for
// Owner clearance
type ApprovalRequestedEvent struct {
	shared.BaseDomainEvent
	RequestedStatus string           `json:"requestedStatus"`
	PaymentAmount   *decimal.Decimal `json:"paymentAmount,omitempty"`
}

// NewApprovalRequestedEvent creates a new ApprovalRequestedEvent for a document
func NewApprovalRequestedEvent(d *CommercialDocument, actorID string, at time.Time) *ApprovalRequestedEvent {
	e := &ApprovalRequestedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeApprovalRequested, AggregateDocument, d.ID, d.CompanyID, actorID, at),
	}
	if d.Pending != nil {
		e.RequestedStatus = string(d.Pending.RequestedStatus)
		e.PaymentAmount = d.Pending.PaymentAmount
	}
	return e
}

// NewProposalApprovalRequestedEvent creates an ApprovalRequestedEvent for a
// proposal created by a non-privileged actor
func NewProposalApprovalRequestedEvent(p *Proposal, actorID string, at time.Time) *ApprovalRequestedEvent {
	return &ApprovalRequestedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeApprovalRequested, AggregateProposal, p.ID, p.CompanyID, actorID, at),
		RequestedStatus: string(ProposalDraft),
	}
}

// ProposalCreatedEvent is raised when a proposal is created
type ProposalCreatedEvent struct {
	shared.BaseDomainEvent
	Title  string          `json:"title"`
	Budget decimal.Decimal `json:"budget"`
	Status ProposalStatus  `json:"status"`
}

// NewProposalCreatedEvent creates a new ProposalCreatedEvent
func NewProposalCreatedEvent(p *Proposal, actorID string, at time.Time) *ProposalCreatedEvent {
	return &ProposalCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProposalCreated, AggregateProposal, p.ID, p.CompanyID, actorID, at),
		Title:           p.Title,
		Budget:          p.Budget,
		Status:          p.Status,
	}
}

// ProposalDecidedEvent is raised when an Owner or SuperAdmin approves or
// rejects a proposal
type ProposalDecidedEvent struct {
	shared.BaseDomainEvent
	Decision string         `json:"decision"`
	Status   ProposalStatus `json:"status"`
}

// NewProposalDecidedEvent creates a new ProposalDecidedEvent
func NewProposalDecidedEvent(p *Proposal, decision, actorID string, at time.Time) *ProposalDecidedEvent {
	return &ProposalDecidedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProposalDecided, AggregateProposal, p.ID, p.CompanyID, actorID, at),
		Decision:        decision,
		Status:          p.Status,
	}
}

// VoucherCreatedEvent is raised for every receipt or expense voucher
type VoucherCreatedEvent struct {
	shared.BaseDomainEvent
	VoucherType VoucherType     `json:"voucherType"`
	Amount      decimal.Decimal `json:"amount"`
	LinkedDocID string          `json:"linkedDocId,omitempty"`
}

// NewVoucherCreatedEvent creates a new VoucherCreatedEvent
func NewVoucherCreatedEvent(v *Voucher, actorID string, at time.Time) *VoucherCreatedEvent {
	return &VoucherCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeVoucherCreated, AggregateVoucher, v.ID, v.CompanyID, actorID, at),
		VoucherType:     v.Type,
		Amount:          v.Amount,
		LinkedDocID:     v.LinkedDocID,
	}
}
