package document

import (
	"fmt"
	"strings"
	"time"

	"github.com/bizops/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PendingApproval records what a non-privileged actor asked for while the
// document waits for Owner clearance.
type PendingApproval struct {
	RequestedStatus Status           `json:"requestedStatus"`
	PreviousStatus  Status           `json:"previousStatus,omitempty"`
	PaymentAmount   *decimal.Decimal `json:"paymentAmount,omitempty"`
	RequestedBy     string           `json:"requestedBy"`
	RequestedAt     time.Time        `json:"requestedAt"`
}

// HasPayment reports whether the request carries a payment to apply on approval
func (p *PendingApproval) HasPayment() bool {
	return p != nil && p.PaymentAmount != nil
}

// CommercialDocument is an Invoice or an LPO. Both types share the invoices
// collection and the same state machine.
type CommercialDocument struct {
	ID               string           `json:"id"`
	Type             DocumentType     `json:"type"`
	Status           Status           `json:"status"`
	CompanyID        string           `json:"companyId"`
	ClientName       string           `json:"clientName,omitempty"`
	ClientID         string           `json:"clientId,omitempty"`
	LinkedProposalID string           `json:"linkedProposalId,omitempty"`
	SourceDocID      string           `json:"sourceDocId,omitempty"`
	ProductList      []LineItem       `json:"productList"`
	AmountPaid       decimal.Decimal  `json:"amountPaid"`
	AmountAED        decimal.Decimal  `json:"amountAED"`
	AmountReceived   decimal.Decimal  `json:"amountReceived"`
	Currency         string           `json:"currency"`
	TaxRate          decimal.Decimal  `json:"taxRate"`
	DiscountRate     decimal.Decimal  `json:"discountRate"`
	DueDate          string           `json:"dueDate,omitempty"`
	Notes            string           `json:"notes,omitempty"`
	Pending          *PendingApproval `json:"pending,omitempty"`
	CreatedBy        string           `json:"createdBy,omitempty"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

// DefaultCurrency is the normalization currency amountAED is expressed in
const DefaultCurrency = "AED"

// NewCommercialDocument builds a Draft document and computes its amounts.
// amountPaid and amountAED both start at the computed total.
func NewCommercialDocument(id string, docType DocumentType, companyID string, items []LineItem, taxRate, discountRate decimal.Decimal, at time.Time) (*CommercialDocument, error) {
	if strings.TrimSpace(companyID) == "" {
		return nil, shared.NewValidationError("companyId is required")
	}
	if !docType.IsValid() {
		return nil, shared.NewValidationError(fmt.Sprintf("unknown document type %q", docType))
	}
	if len(items) == 0 {
		return nil, shared.NewValidationError("productList cannot be empty")
	}
	total, err := CalculateTotal(items, taxRate, discountRate)
	if err != nil {
		return nil, err
	}

	return &CommercialDocument{
		ID:             id,
		Type:           docType,
		Status:         StatusDraft,
		CompanyID:      companyID,
		ProductList:    append([]LineItem(nil), items...),
		AmountPaid:     total,
		AmountAED:      total,
		AmountReceived: decimal.Zero,
		Currency:       DefaultCurrency,
		TaxRate:        taxRate,
		DiscountRate:   discountRate,
		CreatedAt:      at,
		UpdatedAt:      at,
	}, nil
}

// IsInvoice reports whether the document is an Invoice
func (d *CommercialDocument) IsInvoice() bool {
	return d.Type == TypeInvoice
}

// Outstanding returns what is still owed, never negative
func (d *CommercialDocument) Outstanding() decimal.Decimal {
	rest := d.AmountPaid.Sub(d.AmountReceived)
	if rest.IsNegative() {
		return decimal.Zero
	}
	return rest
}

// IsOverdue reports whether an unpaid document's due date is strictly before
// the calendar day of today.
func (d *CommercialDocument) IsOverdue(today time.Time) bool {
	if d.Status == StatusPaid {
		return false
	}
	due, ok := ParseDate(d.DueDate)
	if !ok {
		return false
	}
	return due.Before(StartOfDay(today))
}

// TransitionTo moves the document along the state machine
func (d *CommercialDocument) TransitionTo(next Status, at time.Time) error {
	if !next.IsValid() {
		return shared.NewValidationError(fmt.Sprintf("unknown status %q", next))
	}
	if !d.Status.CanTransitionTo(next) {
		return shared.NewInvalidStateError(fmt.Sprintf("cannot move %s from %s to %s", d.ID, d.Status, next))
	}
	if d.Status == StatusPendingApproval {
		d.Pending = nil
	}
	d.Status = next
	d.UpdatedAt = at
	return nil
}

// RequestApproval parks the document in PendingApproval and records the
// substituted request. payment is nil unless a payment is awaiting clearance.
func (d *CommercialDocument) RequestApproval(requested Status, payment *decimal.Decimal, actorID string, at time.Time) error {
	if d.Status == StatusPendingApproval {
		return shared.NewInvalidStateError(fmt.Sprintf("%s is already awaiting approval", d.ID))
	}
	if !d.Status.CanTransitionTo(StatusPendingApproval) {
		return shared.NewInvalidStateError(fmt.Sprintf("%s cannot be sent for approval from %s", d.ID, d.Status))
	}
	if !StatusPendingApproval.CanTransitionTo(requested) {
		return shared.NewValidationError(fmt.Sprintf("%s cannot be requested for approval, approval can only release to %s",
			requested, joinStatuses(transitions[StatusPendingApproval])))
	}
	var amount *decimal.Decimal
	if payment != nil {
		v := *payment
		amount = &v
	}
	d.Pending = &PendingApproval{
		RequestedStatus: requested,
		PreviousStatus:  d.Status,
		PaymentAmount:   amount,
		RequestedBy:     actorID,
		RequestedAt:     at,
	}
	d.Status = StatusPendingApproval
	d.UpdatedAt = at
	return nil
}

// ApplyPayment adds a received amount to an invoice awaiting payment. The
// document becomes Paid once cumulative receipts cover amountPaid, otherwise
// Partial.
func (d *CommercialDocument) ApplyPayment(amount decimal.Decimal, at time.Time) error {
	if err := d.ValidatePayment(amount); err != nil {
		return err
	}
	d.receive(amount, at)
	return nil
}

// ValidatePayment checks a payment could be applied right now
func (d *CommercialDocument) ValidatePayment(amount decimal.Decimal) error {
	if err := d.checkPayable(amount); err != nil {
		return err
	}
	if !d.Status.AcceptsPayment() {
		return shared.NewInvalidStateError(fmt.Sprintf("cannot record a payment on %s while %s", d.ID, d.Status))
	}
	return nil
}

// StatusAfterPayment returns the status the document would reach once amount
// is received
func (d *CommercialDocument) StatusAfterPayment(amount decimal.Decimal) Status {
	if d.AmountReceived.Add(amount).GreaterThanOrEqual(d.AmountPaid) {
		return StatusPaid
	}
	return StatusPartial
}

// RequestPaymentApproval parks a payment recorded by a non-privileged actor
// until an Owner approves it.
func (d *CommercialDocument) RequestPaymentApproval(amount decimal.Decimal, actorID string, at time.Time) error {
	if err := d.ValidatePayment(amount); err != nil {
		return err
	}
	return d.RequestApproval(d.StatusAfterPayment(amount), &amount, actorID, at)
}

// Approve clears a pending request. A pending payment is applied, otherwise
// the requested status takes effect. The cleared request is returned.
func (d *CommercialDocument) Approve(at time.Time) (*PendingApproval, error) {
	if d.Status != StatusPendingApproval {
		return nil, shared.NewInvalidStateError(fmt.Sprintf("%s is not awaiting approval", d.ID))
	}
	req := d.Pending
	if req.HasPayment() {
		if err := d.checkPayable(*req.PaymentAmount); err != nil {
			return nil, err
		}
		d.Pending = nil
		d.receive(*req.PaymentAmount, at)
		return req, nil
	}

	next := StatusDraft
	if req != nil && req.RequestedStatus != "" {
		next = req.RequestedStatus
	}
	if err := d.TransitionTo(next, at); err != nil {
		return nil, err
	}
	return req, nil
}

// Reject clears a pending request and restores the status the document had
// before it was sent for approval. Documents created straight into approval
// fall back to Draft.
func (d *CommercialDocument) Reject(at time.Time) (*PendingApproval, error) {
	if d.Status != StatusPendingApproval {
		return nil, shared.NewInvalidStateError(fmt.Sprintf("%s is not awaiting approval", d.ID))
	}
	req := d.Pending
	prev := StatusDraft
	if req != nil && req.PreviousStatus != "" {
		prev = req.PreviousStatus
	}
	d.Pending = nil
	d.Status = prev
	d.UpdatedAt = at
	return req, nil
}

// Settle marks the document Paid because it was consumed by a conversion.
// Settlement is not a state-machine step and bypasses it.
func (d *CommercialDocument) Settle(at time.Time) {
	d.Pending = nil
	d.Status = StatusPaid
	d.UpdatedAt = at
}

func (d *CommercialDocument) checkPayable(amount decimal.Decimal) error {
	if !d.IsInvoice() {
		return shared.NewValidationError("payments can only be recorded against invoices")
	}
	if !amount.IsPositive() {
		return shared.NewValidationError("payment amount must be greater than zero")
	}
	return nil
}

func (d *CommercialDocument) receive(amount decimal.Decimal, at time.Time) {
	d.Status = d.StatusAfterPayment(amount)
	d.AmountReceived = d.AmountReceived.Add(amount)
	d.UpdatedAt = at
}
