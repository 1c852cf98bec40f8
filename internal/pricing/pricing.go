// Package pricing computes price breakdowns for carts and orders. All
// functions are pure; the same inputs always produce the same breakdown
// regardless of line order.
package pricing

import (
	"github.com/shopspring/decimal"

	"shopcore/internal/model"
)

// Policy is a jurisdiction's tax and shipping rules.
type Policy struct {
	// FreeShippingThreshold is the subtotal above which shipping is free.
	// The comparison is strict: a subtotal equal to the threshold still
	// pays the flat fee.
	FreeShippingThreshold decimal.Decimal

	// FlatShippingFee is charged whenever the threshold is not exceeded.
	FlatShippingFee decimal.Decimal

	// TaxRate is applied to the subtotal only, never to shipping.
	TaxRate decimal.Decimal
}

// Line is a (unit price, quantity) pair to be priced.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Compute derives the full price breakdown for the given lines under the
// given policy. Each monetary field is rounded half-up to two decimal
// places exactly once, at the point it is finalised.
func Compute(lines []Line, policy Policy) model.PriceBreakdown {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	subtotal = subtotal.Round(2)

	shipping := policy.FlatShippingFee.Round(2)
	if subtotal.GreaterThan(policy.FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	// Tax is charged on the subtotal only. This mirrors the storefront's
	// observed billing behaviour and is a policy decision, not an
	// implementation shortcut.
	tax := subtotal.Mul(policy.TaxRate).Round(2)

	return model.PriceBreakdown{
		Subtotal:    subtotal,
		ShippingFee: shipping,
		Tax:         tax,
		Total:       subtotal.Add(shipping).Add(tax),
	}
}
