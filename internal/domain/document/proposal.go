package document

import (
	"fmt"
	"strings"
	"time"

	"github.com/bizops/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Proposal is a priced offer to a client. Proposals are never deleted by the
// lifecycle; converting one to an LPO accepts it.
type Proposal struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	ClientName  string          `json:"clientName,omitempty"`
	ClientID    string          `json:"clientId,omitempty"`
	Budget      decimal.Decimal `json:"budget"`
	Currency    string          `json:"currency"`
	Status      ProposalStatus  `json:"status"`
	Timeline    string          `json:"timeline,omitempty"`
	ProductList []LineItem      `json:"productList,omitempty"`
	CompanyID   string          `json:"companyId"`
	CreatedBy   string          `json:"createdBy,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// NewProposal creates a Draft proposal
func NewProposal(id, companyID, title string, budget decimal.Decimal, at time.Time) (*Proposal, error) {
	if strings.TrimSpace(companyID) == "" {
		return nil, shared.NewValidationError("companyId is required")
	}
	if strings.TrimSpace(title) == "" {
		return nil, shared.NewValidationError("proposal title is required")
	}
	if budget.IsNegative() {
		return nil, shared.NewValidationError("proposal budget cannot be negative")
	}
	return &Proposal{
		ID:        id,
		Title:     strings.TrimSpace(title),
		Budget:    budget,
		Currency:  DefaultCurrency,
		Status:    ProposalDraft,
		CompanyID: companyID,
		CreatedAt: at,
		UpdatedAt: at,
	}, nil
}

// Accept marks the proposal as converted. Rejected proposals stay rejected.
func (p *Proposal) Accept(at time.Time) error {
	switch p.Status {
	case ProposalAccepted:
		return nil
	case ProposalRejected:
		return shared.NewInvalidStateError(fmt.Sprintf("proposal %s was rejected", p.ID))
	}
	p.Status = ProposalAccepted
	p.UpdatedAt = at
	return nil
}

// LPOItems returns the lines an LPO converted from this proposal carries.
// A proposal without a product list is billed as a single line for its budget.
func (p *Proposal) LPOItems() []LineItem {
	if len(p.ProductList) > 0 {
		return append([]LineItem(nil), p.ProductList...)
	}
	return []LineItem{{
		Name:      p.Title,
		Quantity:  decimal.NewFromInt(1),
		UnitPrice: p.Budget,
	}}
}

// Approve releases a proposal created by a non-privileged actor back to Draft
func (p *Proposal) Approve(at time.Time) error {
	if p.Status != ProposalPendingApproval {
		return shared.NewInvalidStateError(fmt.Sprintf("proposal %s is not awaiting approval", p.ID))
	}
	p.Status = ProposalDraft
	p.UpdatedAt = at
	return nil
}

// Reject closes the proposal. Accepted proposals already produced an LPO and
// cannot be rejected.
func (p *Proposal) Reject(at time.Time) error {
	switch p.Status {
	case ProposalRejected:
		return nil
	case ProposalAccepted:
		return shared.NewInvalidStateError(fmt.Sprintf("proposal %s was already accepted", p.ID))
	}
	p.Status = ProposalRejected
	p.UpdatedAt = at
	return nil
}
