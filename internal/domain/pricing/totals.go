// Package pricing turns priced line items into order totals.
package pricing

import (
	"github.com/shopspring/decimal"
)

// Reference rates used when no configuration overrides them.
var (
	DefaultTaxRate     = decimal.RequireFromString("0.18")
	DefaultDeliveryFee = decimal.RequireFromString("7.50")
)

// Line is the pricing view of a single line item.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Totals holds every monetary figure of an order, rounded to cents.
type Totals struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	Tax         decimal.Decimal `json:"tax"`
	DeliveryFee decimal.Decimal `json:"deliveryFee"`
	Discount    decimal.Decimal `json:"discount"`
	Total       decimal.Decimal `json:"total"`
}

// Calculator computes totals with a flat tax rate and delivery fee.
type Calculator struct {
	TaxRate     decimal.Decimal
	DeliveryFee decimal.Decimal
}

// NewCalculator returns a Calculator with the given rates.
func NewCalculator(taxRate, deliveryFee decimal.Decimal) Calculator {
	return Calculator{TaxRate: taxRate, DeliveryFee: deliveryFee}
}

// Compute returns the totals for lines. The subtotal is rounded once after
// summing, never per line. An empty list yields all-zero figures except the
// delivery fee; rejecting empty carts is the caller's job.
func (c Calculator) Compute(lines []Line) Totals {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}

	subtotal := sum.Round(2)
	tax := subtotal.Mul(c.TaxRate).Round(2)
	fee := c.DeliveryFee.Round(2)
	discount := decimal.Zero

	return Totals{
		Subtotal:    subtotal,
		Tax:         tax,
		DeliveryFee: fee,
		Discount:    discount,
		Total:       subtotal.Add(tax).Add(fee).Sub(discount).Round(2),
	}
}
