package document

import (
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomItems(f *gofakeit.Faker, n int) []LineItem {
	items := make([]LineItem, n)
	for i := range items {
		items[i] = LineItem{
			Name:      f.ProductName(),
			Quantity:  decimal.NewFromInt(int64(f.IntRange(0, 50))),
			UnitPrice: decimal.NewFromFloat(f.Float64Range(0, 5000)).Round(2),
		}
	}
	return items
}

func TestCalculateTotal_Scenario(t *testing.T) {
	items := []LineItem{{Name: "Consulting", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(100)}}

	total, err := CalculateTotal(items, decimal.NewFromFloat(0.05), decimal.Zero)
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.NewFromInt(210)), "got %s", total)
}

func TestCalculateTotal_DiscountAndTax(t *testing.T) {
	items := []LineItem{
		{Name: "A", Quantity: decimal.NewFromInt(3), UnitPrice: decimal.NewFromInt(50)},
		{Name: "B", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(50)},
	}

	total, err := CalculateTotal(items, decimal.NewFromFloat(0.1), decimal.NewFromFloat(0.25))
	require.NoError(t, err)
	// 200 x 0.75 x 1.1
	assert.True(t, total.Equal(decimal.NewFromInt(165)), "got %s", total)
}

func TestCalculateTotal_Validation(t *testing.T) {
	ok := LineItem{Name: "ok", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(1)}

	tests := []struct {
		name     string
		items    []LineItem
		tax      decimal.Decimal
		discount decimal.Decimal
	}{
		{"negative quantity", []LineItem{{Name: "x", Quantity: decimal.NewFromInt(-1), UnitPrice: decimal.NewFromInt(1)}}, decimal.Zero, decimal.Zero},
		{"negative price", []LineItem{{Name: "x", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(-1)}}, decimal.Zero, decimal.Zero},
		{"missing name", []LineItem{{Name: " ", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(1)}}, decimal.Zero, decimal.Zero},
		{"negative tax", []LineItem{ok}, decimal.NewFromFloat(-0.01), decimal.Zero},
		{"negative discount", []LineItem{ok}, decimal.Zero, decimal.NewFromFloat(-0.1)},
		{"discount above one", []LineItem{ok}, decimal.Zero, decimal.NewFromFloat(1.01)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CalculateTotal(tt.items, tt.tax, tt.discount)
			assert.Error(t, err)
		})
	}
}

func TestCalculateTotal_FullDiscountIsZero(t *testing.T) {
	f := gofakeit.New(7)
	for i := 0; i < 50; i++ {
		items := randomItems(f, f.IntRange(1, 8))
		tax := decimal.NewFromFloat(f.Float64Range(0, 0.3)).Round(4)

		total, err := CalculateTotal(items, tax, decimal.NewFromInt(1))
		require.NoError(t, err)
		assert.True(t, total.IsZero(), "got %s", total)
	}
}

func TestCalculateTotal_Monotonic(t *testing.T) {
	f := gofakeit.New(42)
	for i := 0; i < 100; i++ {
		items := randomItems(f, f.IntRange(1, 8))
		tax := decimal.NewFromFloat(f.Float64Range(0, 0.3)).Round(4)
		discount := decimal.NewFromFloat(f.Float64Range(0, 1)).Round(4)

		before, err := CalculateTotal(items, tax, discount)
		require.NoError(t, err)

		again, err := CalculateTotal(items, tax, discount)
		require.NoError(t, err)
		assert.True(t, before.Equal(again), "total must be stable")

		bumped := append([]LineItem(nil), items...)
		idx := f.IntRange(0, len(bumped)-1)
		if f.Bool() {
			bumped[idx].Quantity = bumped[idx].Quantity.Add(decimal.NewFromInt(int64(f.IntRange(1, 10))))
		} else {
			bumped[idx].UnitPrice = bumped[idx].UnitPrice.Add(decimal.NewFromFloat(f.Float64Range(0.01, 100)).Round(2))
		}

		after, err := CalculateTotal(bumped, tax, discount)
		require.NoError(t, err)
		assert.True(t, after.GreaterThanOrEqual(before), "total decreased from %s to %s", before, after)
	}
}
