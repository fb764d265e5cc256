package lifecycle

import (
	"github.com/bizops/backend/internal/domain/document"
	"github.com/shopspring/decimal"
)

// Outcome tells the caller what an operation did
type Outcome string

const (
	OutcomeCreated       Outcome = "Created"
	OutcomeUpdated       Outcome = "Updated"
	OutcomeUnchanged     Outcome = "Unchanged"
	OutcomeAlreadyExists Outcome = "AlreadyExists"
	OutcomeDeleted       Outcome = "Deleted"
)

// Result carries the affected entity. AlreadyExists results carry the
// existing entity instead of a new one.
type Result struct {
	Outcome  Outcome                      `json:"outcome"`
	Document *document.CommercialDocument `json:"document,omitempty"`
	Proposal *document.Proposal           `json:"proposal,omitempty"`
	Voucher  *document.Voucher            `json:"voucher,omitempty"`
}

// CreateDocumentInput is the request to create an Invoice or LPO directly
type CreateDocumentInput struct {
	Type             document.DocumentType `json:"type" validate:"required,oneof=Invoice LPO"`
	Status           document.Status       `json:"status,omitempty"`
	ClientName       string                `json:"clientName,omitempty" validate:"max=200"`
	ClientID         string                `json:"clientId,omitempty"`
	LinkedProposalID string                `json:"linkedProposalId,omitempty"`
	ProductList      []document.LineItem   `json:"productList" validate:"required,min=1,dive"`
	TaxRate          decimal.Decimal       `json:"taxRate"`
	DiscountRate     decimal.Decimal       `json:"discountRate"`
	Currency         string                `json:"currency,omitempty" validate:"omitempty,len=3"`
	DueDate          string                `json:"dueDate,omitempty"`
	Notes            string                `json:"notes,omitempty" validate:"max=2000"`
}

// CreateProposalInput is the request to create a proposal
type CreateProposalInput struct {
	Title       string              `json:"title" validate:"required,max=200"`
	ClientName  string              `json:"clientName,omitempty" validate:"max=200"`
	ClientID    string              `json:"clientId,omitempty"`
	Budget      decimal.Decimal     `json:"budget"`
	Currency    string              `json:"currency,omitempty" validate:"omitempty,len=3"`
	Timeline    string              `json:"timeline,omitempty"`
	ProductList []document.LineItem `json:"productList,omitempty" validate:"dive"`
}

// RecordExpenseInput is the request to book an EXPENSE voucher
type RecordExpenseInput struct {
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category" validate:"required,max=100"`
	Currency    string          `json:"currency,omitempty" validate:"omitempty,len=3"`
	Description string          `json:"description,omitempty" validate:"max=500"`
	Date        string          `json:"date,omitempty"`
}
