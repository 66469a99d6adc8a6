package types

import "github.com/shopspring/decimal"

// Product is a read-only catalog entry supplied by the host.
type Product struct {
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	Price    decimal.Decimal `json:"price"`
	Stock    *int            `json:"stock,omitempty"` // nil means no stock bound.
	Image    string          `json:"image,omitempty"`
	Category string          `json:"category,omitempty"`
}

// StockBound returns the declared stock and whether the product declares one.
func (p Product) StockBound() (int, bool) {
	if p.Stock == nil {
		return 0, false
	}
	if *p.Stock < 0 {
		return 0, true
	}
	return *p.Stock, true
}

// ClampQuantity limits qty to the product's stock bound. It reports whether
// the value was reduced.
func (p Product) ClampQuantity(qty int) (int, bool) {
	bound, ok := p.StockBound()
	if !ok || qty <= bound {
		return qty, false
	}
	return bound, true
}

// Catalog is the host-supplied product list. Implementations must return
// current stock on every call; the cart re-reads it on every add and stage.
type Catalog interface {
	// Lookup returns the product with the given ID and whether it exists.
	Lookup(id string) (Product, bool)

	// Products returns every product in catalog order.
	Products() []Product
}
