// Package cart implements the committed cart, its staged-edit overlay and
// debounced quantity input.
//
// Store owns the committed lines and writes the full cart to storage after
// every committed mutation. Staging proposes quantities without persisting
// them. Each line carries a types.LineState, so a line has at most one
// pending edit. Every entry point is serialized by the store mutex; the
// debounce timers of QuantityInput call back on their own goroutine.
// Notifications and the OnUpdate and OnPreview callbacks run after the mutex
// is released, so hosts may read the cart from inside them.
package cart

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/storefront/pkg/types"
)

var (
	errCatalogRequired = errors.New("cart: catalog is required")
	errStorageRequired = errors.New("cart: storage is required")
)

// declineAll is the Confirmer used when the host supplies none: destructive
// actions never proceed without an explicit yes.
var declineAll types.Confirmer = types.ConfirmFunc(func(string) bool { return false })

// Deps wires the collaborators of a Store.
type Deps struct {
	Catalog   types.Catalog
	Storage   types.Storage
	Notifier  types.Notifier
	Confirmer types.Confirmer
	OnUpdate  types.UpdateFunc
	OnPreview types.PreviewFunc
	Logger    *zap.Logger

	// Key is the storage key of the persisted cart. Defaults to
	// types.DefaultCartKey.
	Key string
}

// slot is one line of the cart. line.Quantity always equals
// state.CommittedQty().
type slot struct {
	line  types.CartLine
	state types.LineState
}

func (s *slot) setState(state types.LineState) {
	s.state = state
	s.line.Quantity = state.CommittedQty()
}

// Store is the committed cart.
type Store struct {
	mu        sync.Mutex
	catalog   types.Catalog
	storage   types.Storage
	notifier  types.Notifier
	confirmer types.Confirmer
	onUpdate  types.UpdateFunc
	onPreview types.PreviewFunc
	logger    *zap.Logger
	key       string

	slots []*slot

	// effects are callbacks queued under mu and run by unlock.
	effects []func()
}

// AddResult describes the outcome of AddLine.
type AddResult struct {
	Quantity int  // Committed quantity after the add.
	Clamped  bool // True when the request was limited by stock.
}

// New constructs a Store and loads the persisted cart. Missing or corrupt
// data yields an empty cart; it is logged, never fatal.
func New(deps Deps) (*Store, error) {
	if deps.Catalog == nil {
		return nil, errCatalogRequired
	}
	if deps.Storage == nil {
		return nil, errStorageRequired
	}

	s := &Store{
		catalog:   deps.Catalog,
		storage:   deps.Storage,
		notifier:  deps.Notifier,
		confirmer: deps.Confirmer,
		onUpdate:  deps.OnUpdate,
		onPreview: deps.OnPreview,
		logger:    deps.Logger,
		key:       deps.Key,
	}
	if s.notifier == nil {
		s.notifier = types.NotifierFunc(func(types.Severity, string) {})
	}
	if s.confirmer == nil {
		s.confirmer = declineAll
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	s.logger = s.logger.Named("cart")
	if s.key == "" {
		s.key = types.DefaultCartKey
	}

	s.load()
	return s, nil
}

// load reads the persisted cart. Lines with a quantity below 1 and repeated
// product IDs are dropped; title, image and category are refreshed from the
// live catalog.
func (s *Store) load() {
	data, err := s.storage.Get(s.key)
	if errors.Is(err, types.ErrKeyNotFound) {
		return
	}
	if err != nil {
		s.logger.Warn("reading persisted cart failed, starting empty", zap.String("key", s.key), zap.Error(err))
		return
	}

	var lines []types.CartLine
	if err := json.Unmarshal(data, &lines); err != nil {
		s.logger.Warn("persisted cart is corrupt, starting empty", zap.String("key", s.key), zap.Error(err))
		return
	}

	seen := make(map[string]bool, len(lines))
	for _, l := range lines {
		if l.ProductID == "" || l.Quantity < 1 || seen[l.ProductID] {
			s.logger.Debug("dropping invalid persisted line", zap.String("product_id", l.ProductID), zap.Int("quantity", l.Quantity))
			continue
		}
		seen[l.ProductID] = true
		if p, ok := s.catalog.Lookup(l.ProductID); ok {
			l.Title = p.Title
			l.ImageRef = p.Image
			l.Category = p.Category
		}
		sl := &slot{line: l}
		sl.setState(types.Committed{Qty: l.Quantity})
		s.slots = append(s.slots, sl)
	}
	s.logger.Debug("cart loaded", zap.Int("lines", len(s.slots)))
}

// find returns the index of the slot for productID, or -1.
// The caller must hold s.mu.
func (s *Store) find(productID string) int {
	for i, sl := range s.slots {
		if sl.line.ProductID == productID {
			return i
		}
	}
	return -1
}

// emit queues f to run once s.mu is released. The caller must hold s.mu.
func (s *Store) emit(f func()) {
	s.effects = append(s.effects, f)
}

// unlock releases s.mu and then runs the queued effects in order.
func (s *Store) unlock() {
	effects := s.effects
	s.effects = nil
	s.mu.Unlock()
	for _, f := range effects {
		f()
	}
}

// notify queues one notification. The caller must hold s.mu.
func (s *Store) notify(severity types.Severity, message string) {
	s.emit(func() { s.notifier.Notify(severity, message) })
}

// report queues exactly one notification for err and returns err.
// The caller must hold s.mu.
func (s *Store) report(err error, message string) error {
	s.notify(types.SeverityOf(err), message)
	return err
}

// AddLine adds qty of productID to the cart. A qty of 0 adds one. The
// resulting quantity is limited to the product's stock; a limited add
// succeeds with a StockClamped warning instead of a success notification.
func (s *Store) AddLine(productID string, qty int) (AddResult, error) {
	s.mu.Lock()
	defer s.unlock()

	if qty == 0 {
		qty = 1
	}
	if qty < 0 {
		return AddResult{}, s.report(fmt.Errorf("add %s: %w", productID, types.ErrInvalidQuantity),
			fmt.Sprintf("Cannot add %d items", qty))
	}

	p, ok := s.catalog.Lookup(productID)
	if !ok {
		return AddResult{}, s.report(fmt.Errorf("add %s: %w", productID, types.ErrProductNotFound),
			"Product not found")
	}
	if stock, bounded := p.StockBound(); bounded && stock == 0 {
		return AddResult{}, s.report(fmt.Errorf("add %s: %w", productID, types.ErrOutOfStock),
			fmt.Sprintf("%s is out of stock", p.Title))
	}

	var (
		sl      *slot
		current int
	)
	if i := s.find(productID); i >= 0 {
		sl = s.slots[i]
		current = sl.state.CommittedQty()
	}
	if qty > math.MaxInt-current {
		return AddResult{Quantity: current}, s.report(fmt.Errorf("add %s %d to %d: %w", productID, qty, current, types.ErrInvalidQuantity),
			fmt.Sprintf("Cannot add %d more of %s", qty, p.Title))
	}

	want, clamped := p.ClampQuantity(current + qty)
	if sl != nil && want == current && clamped {
		s.report(types.ErrStockClamped, fmt.Sprintf("Only %d of %s available", want, p.Title))
		return AddResult{Quantity: current, Clamped: true}, nil
	}

	if sl == nil {
		sl = &slot{line: types.LineFromProduct(p, want)}
		sl.setState(types.Committed{Qty: want})
		s.slots = append(s.slots, sl)
	} else if pe, pending := sl.state.(types.PendingEdit); pending {
		proposed, _ := p.ClampQuantity(pe.Proposed)
		sl.setState(types.PendingEdit{Qty: want, Proposed: proposed})
	} else {
		sl.setState(types.Committed{Qty: want})
	}

	s.logger.Debug("line added",
		zap.String("product_id", productID), zap.Int("requested", qty),
		zap.Int("quantity", want), zap.Bool("clamped", clamped))

	if clamped {
		s.report(types.ErrStockClamped, fmt.Sprintf("Only %d of %s available; quantity set to %d", want, p.Title, want))
	} else {
		s.notify(types.SeveritySuccess, fmt.Sprintf("Added %s to cart", p.Title))
	}
	s.commitLocked()
	return AddResult{Quantity: want, Clamped: clamped}, nil
}

// RemoveLine deletes the line for productID and any pending edit on it.
func (s *Store) RemoveLine(productID string) error {
	s.mu.Lock()
	defer s.unlock()

	i := s.find(productID)
	if i < 0 {
		return s.report(fmt.Errorf("remove %s: %w", productID, types.ErrNotInCart), "Item is not in the cart")
	}
	title := s.slots[i].line.Title
	s.removeLocked(i)
	s.notify(types.SeverityInfo, fmt.Sprintf("Removed %s from cart", title))
	s.commitLocked()
	return nil
}

// removeLocked deletes the slot at index i. The caller must hold s.mu.
func (s *Store) removeLocked(i int) {
	s.slots = append(s.slots[:i], s.slots[i+1:]...)
}

// CommitEdit saves the pending edit of productID. A pending 0 removes the
// line after the confirmer agrees; declining leaves the edit pending and
// returns ErrDeclined. A line without a pending edit is left alone.
func (s *Store) CommitEdit(productID string) error {
	s.mu.Lock()
	i := s.find(productID)
	if i < 0 {
		err := s.report(fmt.Errorf("commit %s: %w", productID, types.ErrNotInCart), "Item is not in the cart")
		s.unlock()
		return err
	}
	pe, pending := s.slots[i].state.(types.PendingEdit)
	title := s.slots[i].line.Title
	if !pending {
		s.mu.Unlock()
		return nil
	}
	if pe.Proposed > 0 {
		defer s.unlock()
		return s.applyEditLocked(i, pe)
	}
	s.mu.Unlock()

	// The prompt runs without the lock so a slow or re-entrant host cannot
	// stall the debounce timers.
	if !s.confirmer.Confirm(fmt.Sprintf("Remove %s from the cart?", title)) {
		return fmt.Errorf("remove %s: %w", productID, types.ErrDeclined)
	}

	s.mu.Lock()
	defer s.unlock()
	i = s.find(productID)
	if i < 0 {
		return nil
	}
	pe, pending = s.slots[i].state.(types.PendingEdit)
	if !pending {
		return nil
	}
	if pe.Proposed > 0 {
		return s.applyEditLocked(i, pe)
	}
	s.removeLocked(i)
	s.notify(types.SeverityInfo, fmt.Sprintf("Removed %s from cart", title))
	s.commitLocked()
	return nil
}

// applyEditLocked commits a positive pending value, re-checking stock.
// The caller must hold s.mu.
func (s *Store) applyEditLocked(i int, pe types.PendingEdit) error {
	sl := s.slots[i]
	qty := pe.Proposed
	clamped := false
	if p, ok := s.catalog.Lookup(sl.line.ProductID); ok {
		qty, clamped = p.ClampQuantity(qty)
		if qty == 0 {
			sl.setState(types.Committed{Qty: pe.Qty})
			s.preview()
			return s.report(fmt.Errorf("commit %s: %w", sl.line.ProductID, types.ErrOutOfStock),
				fmt.Sprintf("%s is out of stock", sl.line.Title))
		}
	}
	sl.setState(types.Committed{Qty: qty})
	if clamped {
		s.report(types.ErrStockClamped, fmt.Sprintf("Only %d of %s available; quantity set to %d", qty, sl.line.Title, qty))
	} else {
		s.notify(types.SeveritySuccess, fmt.Sprintf("Updated %s to %d", sl.line.Title, qty))
	}
	s.commitLocked()
	return nil
}

// Clear empties the cart and every pending edit once the confirmer agrees.
// Clearing an empty cart does nothing.
func (s *Store) Clear() error {
	s.mu.Lock()
	empty := len(s.slots) == 0
	s.mu.Unlock()
	if empty {
		return nil
	}

	if !s.confirmer.Confirm("Remove all items from the cart?") {
		return fmt.Errorf("clear: %w", types.ErrDeclined)
	}
	s.Reset()
	s.notifier.Notify(types.SeverityInfo, "Cart cleared")
	return nil
}

// Reset empties the cart without asking. It is used after a completed
// checkout when the clear policy requires it.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.unlock()
	s.slots = nil
	s.commitLocked()
}

// Close is called when the shopper closes the cart. Pending edits are
// discarded once the confirmer agrees; declining returns ErrDeclined and
// keeps them.
func (s *Store) Close() error {
	s.mu.Lock()
	n := s.pendingCountLocked()
	s.mu.Unlock()
	if n == 0 {
		return nil
	}

	if !s.confirmer.Confirm(fmt.Sprintf("Discard %d unsaved change(s)?", n)) {
		return fmt.Errorf("close: %w", types.ErrDeclined)
	}

	s.mu.Lock()
	defer s.unlock()
	for _, sl := range s.slots {
		sl.setState(types.Committed{Qty: sl.state.CommittedQty()})
	}
	s.preview()
	return nil
}

// commitLocked persists the cart and queues the render callback. A failed
// write is reported as a warning; memory stays the source of truth.
// The caller must hold s.mu.
func (s *Store) commitLocked() {
	lines := s.linesLocked()
	if err := s.persist(lines); err != nil {
		s.logger.Warn("persisting cart failed", zap.String("key", s.key), zap.Error(err))
		s.report(fmt.Errorf("%w: %v", types.ErrPersistenceWriteFailed, err),
			"Your cart could not be saved; changes will be lost when the page closes")
	}
	if s.onUpdate != nil {
		total, items := s.totalLocked(), s.itemCountLocked()
		s.emit(func() { s.onUpdate(lines, total, items) })
	}
}

func (s *Store) persist(lines []types.CartLine) error {
	if lines == nil {
		lines = []types.CartLine{}
	}
	data, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	return s.storage.Set(s.key, data)
}

// preview queues the display-only callback with the current rows.
// The caller must hold s.mu.
func (s *Store) preview() {
	if s.onPreview != nil {
		rows := s.viewLocked()
		s.emit(func() { s.onPreview(rows) })
	}
}

// Lines returns a snapshot of the committed lines in insertion order.
func (s *Store) Lines() []types.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.linesLocked()
}

func (s *Store) linesLocked() []types.CartLine {
	if len(s.slots) == 0 {
		return nil
	}
	lines := make([]types.CartLine, len(s.slots))
	for i, sl := range s.slots {
		lines[i] = sl.line
	}
	return lines
}

// Line returns the committed line for productID.
func (s *Store) Line(productID string) (types.CartLine, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.find(productID); i >= 0 {
		return s.slots[i].line, true
	}
	return types.CartLine{}, false
}

// State returns the edit state of the line for productID.
func (s *Store) State(productID string) (types.LineState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.find(productID); i >= 0 {
		return s.slots[i].state, true
	}
	return nil, false
}

// Total returns the sum of unit price times committed quantity. Pending
// edits never count.
func (s *Store) Total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalLocked()
}

func (s *Store) totalLocked() decimal.Decimal {
	total := decimal.Zero
	for _, sl := range s.slots {
		total = total.Add(sl.line.Subtotal())
	}
	return total
}

// LineCount returns the number of lines.
func (s *Store) LineCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.slots)
}

// ItemCount returns the sum of committed quantities.
func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.itemCountLocked()
}

func (s *Store) itemCountLocked() int {
	n := 0
	for _, sl := range s.slots {
		n += sl.state.CommittedQty()
	}
	return n
}

func (s *Store) pendingCountLocked() int {
	n := 0
	for _, sl := range s.slots {
		if types.HasPending(sl.state) {
			n++
		}
	}
	return n
}

// viewLocked builds display rows. The caller must hold s.mu.
func (s *Store) viewLocked() []types.LineView {
	rows := make([]types.LineView, len(s.slots))
	for i, sl := range s.slots {
		eff := sl.state.EffectiveQty()
		rows[i] = types.LineView{
			Line:      sl.line,
			Proposed:  eff,
			Unsaved:   types.HasPending(sl.state),
			Removal:   types.HasPending(sl.state) && eff == 0,
			Effective: sl.line.UnitPrice.Mul(decimal.NewFromInt(int64(eff))),
		}
	}
	return rows
}
