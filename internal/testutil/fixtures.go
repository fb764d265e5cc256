package testutil

import (
	"github.com/bizops/backend/internal/domain/document"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/shopspring/decimal"
)

// Faker returns a deterministic faker so failures reproduce.
func Faker(seed uint64) *gofakeit.Faker {
	return gofakeit.New(seed)
}

// RandomLineItems generates n valid line items with whole quantities and
// two-decimal prices.
func RandomLineItems(f *gofakeit.Faker, n int) []document.LineItem {
	items := make([]document.LineItem, n)
	for i := range items {
		items[i] = document.LineItem{
			Name:      f.ProductName(),
			Quantity:  decimal.NewFromInt(int64(f.IntRange(0, 50))),
			UnitPrice: decimal.NewFromFloat(f.Price(0, 5000)).Round(2),
		}
	}
	return items
}

// RandomRate returns a rate in [0, max] with four decimal places.
func RandomRate(f *gofakeit.Faker, max float64) decimal.Decimal {
	return decimal.NewFromFloat(f.Float64Range(0, max)).Round(4)
}
