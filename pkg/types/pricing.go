package types

import "github.com/shopspring/decimal"

// Delivery options offered at checkout.
const (
	DeliveryHome   = "home"
	DeliveryPickup = "pickup"
)

// validDeliveryOptions is the set of recognized delivery options.
var validDeliveryOptions = map[string]bool{
	DeliveryHome:   true,
	DeliveryPickup: true,
}

// ValidDelivery reports whether option is a recognized delivery option.
func ValidDelivery(option string) bool {
	return validDeliveryOptions[option]
}

// TaxPolicy selects whether a breakdown includes tax. The message-order
// branch uses TaxExcluded and the receipt branch TaxIncluded; the two
// checkout methods present tax differently and must not be unified here.
type TaxPolicy int

const (
	TaxExcluded TaxPolicy = iota
	TaxIncluded
)

func (p TaxPolicy) String() string {
	switch p {
	case TaxIncluded:
		return "tax_included"
	default:
		return "tax_excluded"
	}
}

// PricingConfig holds the store's delivery and tax parameters.
type PricingConfig struct {
	// FreeDeliveryAbove is the subtotal at or above which delivery is free.
	// Zero makes home delivery free for every non-empty cart.
	FreeDeliveryAbove decimal.Decimal `json:"free_delivery_above" yaml:"free_delivery_above"`

	// DeliveryCharge is the flat charge for home delivery.
	DeliveryCharge decimal.Decimal `json:"delivery_charge" yaml:"delivery_charge"`

	// TaxRate is applied to subtotal plus delivery, e.g. 0.18.
	TaxRate decimal.Decimal `json:"tax_rate" yaml:"tax_rate"`

	// MinorUnits is the number of decimal places amounts are rounded to.
	MinorUnits int32 `json:"minor_units" yaml:"minor_units"`
}

// PricingBreakdown is derived from the committed cart; it is never stored.
type PricingBreakdown struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	DeliveryCharge decimal.Decimal `json:"delivery_charge"`
	Tax            decimal.Decimal `json:"tax"`
	Total          decimal.Decimal `json:"total"`
	TaxApplied     bool            `json:"tax_applied"`
	Delivery       string          `json:"delivery"`
}
