package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCalculator_Compute(t *testing.T) {
	calc := NewCalculator(DefaultTaxRate, DefaultDeliveryFee)

	tests := []struct {
		name         string
		lines        []Line
		wantSubtotal string
		wantTax      string
		wantTotal    string
	}{
		{
			name: "two lines rounds tax half up",
			lines: []Line{
				{UnitPrice: dec("5.00"), Quantity: 2},
				{UnitPrice: dec("3.25"), Quantity: 1},
			},
			wantSubtotal: "13.25",
			wantTax:      "2.39",
			wantTotal:    "23.14",
		},
		{
			name: "subtotal rounded once after summing",
			lines: []Line{
				{UnitPrice: dec("0.333"), Quantity: 1},
				{UnitPrice: dec("0.333"), Quantity: 1},
				{UnitPrice: dec("0.334"), Quantity: 1},
			},
			// Per-line rounding would give 0.33+0.33+0.33 = 0.99.
			wantSubtotal: "1",
			wantTax:      "0.18",
			wantTotal:    "8.68",
		},
		{
			name: "quantity multiplies unit price",
			lines: []Line{
				{UnitPrice: dec("12.99"), Quantity: 3},
			},
			wantSubtotal: "38.97",
			wantTax:      "7.01",
			wantTotal:    "53.48",
		},
		{
			name:         "empty list is not an error",
			lines:        nil,
			wantSubtotal: "0",
			wantTax:      "0",
			wantTotal:    "7.5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calc.Compute(tt.lines)

			assert.True(t, dec(tt.wantSubtotal).Equal(got.Subtotal), "subtotal: got %s", got.Subtotal)
			assert.True(t, dec(tt.wantTax).Equal(got.Tax), "tax: got %s", got.Tax)
			assert.True(t, dec("7.50").Equal(got.DeliveryFee), "delivery fee: got %s", got.DeliveryFee)
			assert.True(t, got.Discount.IsZero(), "discount: got %s", got.Discount)
			assert.True(t, dec(tt.wantTotal).Equal(got.Total), "total: got %s", got.Total)
		})
	}
}

func TestCalculator_CustomRates(t *testing.T) {
	calc := NewCalculator(dec("0.1"), dec("2.005"))

	got := calc.Compute([]Line{{UnitPrice: dec("10"), Quantity: 1}})

	assert.True(t, dec("1").Equal(got.Tax))
	assert.True(t, dec("2.01").Equal(got.DeliveryFee))
	assert.True(t, dec("13.01").Equal(got.Total))
}
