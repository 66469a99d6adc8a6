package types

import "github.com/shopspring/decimal"

// CartLine is one committed entry of the cart. The JSON layout is the
// persisted cart record.
type CartLine struct {
	ProductID string          `json:"id"`
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	ImageRef  string          `json:"image,omitempty"`
	Category  string          `json:"category,omitempty"`
}

// Subtotal returns UnitPrice multiplied by Quantity.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// LineFromProduct builds a line for p with the given quantity.
func LineFromProduct(p Product, qty int) CartLine {
	return CartLine{
		ProductID: p.ID,
		Title:     p.Title,
		UnitPrice: p.Price,
		Quantity:  qty,
		ImageRef:  p.Image,
		Category:  p.Category,
	}
}

// LineState is the edit state of a cart line: either Committed or
// PendingEdit. The set of implementations is closed.
type LineState interface {
	// CommittedQty is the quantity persisted and used for pricing.
	CommittedQty() int

	// EffectiveQty is the pending value when present, else the committed one.
	EffectiveQty() int

	isLineState()
}

// Committed is a line with no unsaved edit.
type Committed struct {
	Qty int
}

// PendingEdit is a line whose quantity has a proposed, unsaved value.
// Proposed may be 0, meaning proposed removal.
type PendingEdit struct {
	Qty      int
	Proposed int
}

func (s Committed) CommittedQty() int { return s.Qty }
func (s Committed) EffectiveQty() int { return s.Qty }
func (Committed) isLineState()        {}

func (s PendingEdit) CommittedQty() int { return s.Qty }
func (s PendingEdit) EffectiveQty() int { return s.Proposed }
func (PendingEdit) isLineState()        {}

// HasPending reports whether s carries an unsaved edit.
func HasPending(s LineState) bool {
	_, ok := s.(PendingEdit)
	return ok
}

// LineView is a display row: the committed line plus its staged value.
type LineView struct {
	Line      CartLine
	Proposed  int  // Equal to Line.Quantity unless Unsaved.
	Unsaved   bool // True when the line has a pending edit.
	Removal   bool // True when the pending edit proposes 0.
	Effective decimal.Decimal
}
