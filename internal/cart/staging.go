package cart

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/storefront/pkg/types"
)

// Change is a requested quantity change: relative (By) or absolute (To).
type Change struct {
	absolute bool
	value    int
}

// By returns a change that adds delta to the current effective quantity.
func By(delta int) Change { return Change{value: delta} }

// To returns a change that sets the quantity to value.
func To(value int) Change { return Change{absolute: true, value: value} }

// apply returns the proposed quantity given the current effective one.
// It returns false when a relative change overflows int.
func (c Change) apply(current int) (int, bool) {
	if c.absolute {
		return c.value, true
	}
	if c.value > 0 && current > math.MaxInt-c.value {
		return current, false
	}
	return current + c.value, true
}

func (c Change) String() string {
	if c.absolute {
		return fmt.Sprintf("=%d", c.value)
	}
	return fmt.Sprintf("%+d", c.value)
}

// ParseChange reads "+2", "-1" (relative) or "3" (absolute).
func ParseChange(text string) (Change, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Change{}, types.ErrInvalidQuantity
	}
	n, err := strconv.Atoi(text)
	if err != nil {
		return Change{}, fmt.Errorf("%q: %w", text, types.ErrInvalidQuantity)
	}
	if text[0] == '+' || text[0] == '-' {
		return By(n), nil
	}
	return To(n), nil
}

// Staging holds uncommitted quantity proposals over a Store. Proposals live
// only in memory; nothing here writes to storage.
type Staging struct {
	store *Store
}

// NewStaging returns the staging layer of store.
func NewStaging(store *Store) *Staging {
	return &Staging{store: store}
}

// Store returns the underlying committed cart.
func (st *Staging) Store() *Store {
	return st.store
}

// Stage proposes a new quantity for productID, computed from the pending
// value when there is one and the committed value otherwise. A negative
// result is rejected with ErrInvalidQuantity and changes nothing; a result
// above stock is clamped with a StockClamped warning. Returns the proposed
// quantity written.
func (st *Staging) Stage(productID string, change Change) (int, error) {
	s := st.store
	s.mu.Lock()
	defer s.unlock()

	i := s.find(productID)
	if i < 0 {
		return 0, s.report(fmt.Errorf("stage %s: %w", productID, types.ErrNotInCart), "Item is not in the cart")
	}
	sl := s.slots[i]
	current := sl.state.EffectiveQty()
	proposed, ok := change.apply(current)
	if !ok {
		return current, s.report(fmt.Errorf("stage %s %s: %w", productID, change, types.ErrInvalidQuantity),
			"Quantity is too large")
	}
	if proposed < 0 {
		return current, s.report(fmt.Errorf("stage %s %s: %w", productID, change, types.ErrInvalidQuantity),
			"Quantity cannot be negative")
	}

	if p, ok := s.catalog.Lookup(productID); ok {
		var clamped bool
		if proposed, clamped = p.ClampQuantity(proposed); clamped {
			s.report(types.ErrStockClamped, fmt.Sprintf("Only %d of %s available", proposed, sl.line.Title))
		}
	}

	sl.setState(types.PendingEdit{Qty: sl.state.CommittedQty(), Proposed: proposed})
	s.logger.Debug("edit staged",
		zap.String("product_id", productID), zap.Stringer("change", change), zap.Int("proposed", proposed))
	s.preview()
	return proposed, nil
}

// StageText parses typed input and stages it as an absolute quantity.
// Anything that is not a whole number is ErrInvalidQuantity.
func (st *Staging) StageText(productID, text string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		s := st.store
		s.mu.Lock()
		defer s.unlock()
		return 0, s.report(fmt.Errorf("stage %s %q: %w", productID, text, types.ErrInvalidQuantity),
			fmt.Sprintf("%q is not a valid quantity", text))
	}
	return st.Stage(productID, To(n))
}

// Commit saves the pending edit of productID.
func (st *Staging) Commit(productID string) error {
	return st.store.CommitEdit(productID)
}

// Discard drops the pending edit of productID.
func (st *Staging) Discard(productID string) {
	s := st.store
	s.mu.Lock()
	defer s.unlock()
	i := s.find(productID)
	if i < 0 || !types.HasPending(s.slots[i].state) {
		return
	}
	sl := s.slots[i]
	sl.setState(types.Committed{Qty: sl.state.CommittedQty()})
	s.preview()
}

// Pending returns the proposed quantity of productID, if any.
func (st *Staging) Pending(productID string) (int, bool) {
	s := st.store
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.find(productID)
	if i < 0 {
		return 0, false
	}
	pe, ok := s.slots[i].state.(types.PendingEdit)
	return pe.Proposed, ok
}

// HasPending reports whether any line has an unsaved edit.
func (st *Staging) HasPending() bool {
	return st.PendingCount() > 0
}

// PendingCount returns the number of lines with an unsaved edit.
func (st *Staging) PendingCount() int {
	s := st.store
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingCountLocked()
}

// View returns display rows with unsaved lines flagged.
func (st *Staging) View() []types.LineView {
	s := st.store
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}
