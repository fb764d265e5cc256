package document

import (
	"fmt"
	"strings"

	"github.com/bizops/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// LineItem is one product line on a proposal or commercial document
type LineItem struct {
	Name      string          `json:"name" validate:"required"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// Amount returns unitPrice x quantity
func (li LineItem) Amount() decimal.Decimal {
	return li.UnitPrice.Mul(li.Quantity)
}

// Validate checks the line is non-negative and named
func (li LineItem) Validate() error {
	if strings.TrimSpace(li.Name) == "" {
		return shared.NewValidationError("line item name is required")
	}
	if li.Quantity.IsNegative() {
		return shared.NewValidationError(fmt.Sprintf("line item %q: quantity cannot be negative", li.Name))
	}
	if li.UnitPrice.IsNegative() {
		return shared.NewValidationError(fmt.Sprintf("line item %q: unit price cannot be negative", li.Name))
	}
	return nil
}

// Subtotal sums every line amount
func Subtotal(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, li := range items {
		total = total.Add(li.Amount())
	}
	return total
}

// ValidateRates checks taxRate >= 0 and discountRate in [0, 1]
func ValidateRates(taxRate, discountRate decimal.Decimal) error {
	if taxRate.IsNegative() {
		return shared.NewValidationError("tax rate cannot be negative")
	}
	if discountRate.IsNegative() || discountRate.GreaterThan(decimal.NewFromInt(1)) {
		return shared.NewValidationError("discount rate must be between 0 and 1")
	}
	return nil
}

// CalculateTotal returns subtotal x (1 - discountRate) x (1 + taxRate) after
// validating every line and both rates.
func CalculateTotal(items []LineItem, taxRate, discountRate decimal.Decimal) (decimal.Decimal, error) {
	for _, li := range items {
		if err := li.Validate(); err != nil {
			return decimal.Zero, err
		}
	}
	if err := ValidateRates(taxRate, discountRate); err != nil {
		return decimal.Zero, err
	}
	one := decimal.NewFromInt(1)
	return Subtotal(items).
		Mul(one.Sub(discountRate)).
		Mul(one.Add(taxRate)), nil
}
