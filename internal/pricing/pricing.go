// Package pricing derives the pricing breakdown of a committed cart. It is
// pure: Compute has no side effects and is safe to call on every render.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/mesh-intelligence/storefront/pkg/types"
)

// DefaultMinorUnits is used when PricingConfig.MinorUnits is zero or less.
const DefaultMinorUnits = 2

// Subtotal returns the sum of unit price times committed quantity.
func Subtotal(lines []types.CartLine) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.Subtotal())
	}
	return sum
}

// DeliveryCharge returns the charge for subtotal under cfg. Pickup and an
// empty cart are free; home delivery is free at or above FreeDeliveryAbove.
func DeliveryCharge(subtotal decimal.Decimal, cfg types.PricingConfig, delivery string) decimal.Decimal {
	if delivery == types.DeliveryPickup || !subtotal.IsPositive() {
		return decimal.Zero
	}
	if subtotal.GreaterThanOrEqual(cfg.FreeDeliveryAbove) {
		return decimal.Zero
	}
	return cfg.DeliveryCharge
}

// Compute maps lines and cfg to a breakdown. Under TaxIncluded tax is
// (subtotal + delivery) * TaxRate rounded to cfg.MinorUnits; under
// TaxExcluded it is zero. An unrecognized delivery option is treated as home.
func Compute(lines []types.CartLine, cfg types.PricingConfig, delivery string, policy types.TaxPolicy) types.PricingBreakdown {
	if !types.ValidDelivery(delivery) {
		delivery = types.DeliveryHome
	}
	places := cfg.MinorUnits
	if places <= 0 {
		places = DefaultMinorUnits
	}

	subtotal := Subtotal(lines)
	charge := DeliveryCharge(subtotal, cfg, delivery)

	tax := decimal.Zero
	if policy == types.TaxIncluded {
		tax = subtotal.Add(charge).Mul(cfg.TaxRate).Round(places)
	}

	return types.PricingBreakdown{
		Subtotal:       subtotal,
		DeliveryCharge: charge,
		Tax:            tax,
		Total:          subtotal.Add(charge).Add(tax),
		TaxApplied:     policy == types.TaxIncluded,
		Delivery:       delivery,
	}
}
