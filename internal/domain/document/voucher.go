package document

import (
	"strings"
	"time"

	"github.com/bizops/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// VoucherStatusPosted is the only status vouchers written by the engine carry
const VoucherStatusPosted = "Posted"

// PaymentCategory is the category of auto-generated receipts
const PaymentCategory = "Payment"

// Voucher is a money movement. Receipts are only created as a payment side
// effect and are never mutated afterwards.
type Voucher struct {
	ID          string          `json:"id"`
	Type        VoucherType     `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Category    string          `json:"category"`
	Date        string          `json:"date"`
	Status      string          `json:"status"`
	Description string          `json:"description,omitempty"`
	LinkedDocID string          `json:"linkedDocId,omitempty"`
	CompanyID   string          `json:"companyId"`
	CreatedBy   string          `json:"createdBy,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// NewReceipt creates the RECEIPT voucher for a payment against doc
func NewReceipt(id string, doc *CommercialDocument, amount decimal.Decimal, actorID string, at time.Time) (*Voucher, error) {
	if !amount.IsPositive() {
		return nil, shared.NewValidationError("receipt amount must be greater than zero")
	}
	return &Voucher{
		ID:          id,
		Type:        VoucherReceipt,
		Amount:      amount,
		Currency:    doc.Currency,
		Category:    PaymentCategory,
		Date:        FormatDate(at),
		Status:      VoucherStatusPosted,
		Description: "Payment received for " + doc.ID,
		LinkedDocID: doc.ID,
		CompanyID:   doc.CompanyID,
		CreatedBy:   actorID,
		CreatedAt:   at,
	}, nil
}

// NewExpense creates an EXPENSE voucher
func NewExpense(id, companyID string, amount decimal.Decimal, category, actorID string, at time.Time) (*Voucher, error) {
	if strings.TrimSpace(companyID) == "" {
		return nil, shared.NewValidationError("companyId is required")
	}
	if !amount.IsPositive() {
		return nil, shared.NewValidationError("expense amount must be greater than zero")
	}
	if strings.TrimSpace(category) == "" {
		return nil, shared.NewValidationError("expense category is required")
	}
	return &Voucher{
		ID:        id,
		Type:      VoucherExpense,
		Amount:    amount,
		Currency:  DefaultCurrency,
		Category:  strings.TrimSpace(category),
		Date:      FormatDate(at),
		Status:    VoucherStatusPosted,
		CompanyID: companyID,
		CreatedBy: actorID,
		CreatedAt: at,
	}, nil
}
