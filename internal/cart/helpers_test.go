package cart

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/storefront/internal/notify"
	"github.com/mesh-intelligence/storefront/internal/storage"
	"github.com/mesh-intelligence/storefront/pkg/types"
)

func intPtr(v int) *int { return &v }

func testProducts() []types.Product {
	return []types.Product{
		{ID: "p1", Title: "Mug", Price: decimal.NewFromInt(100), Stock: intPtr(3), Image: "mug.png", Category: "kitchen"},
		{ID: "p2", Title: "Poster", Price: decimal.NewFromInt(40), Stock: intPtr(2)},
		{ID: "p3", Title: "Sticker", Price: decimal.RequireFromString("2.50")},
		{ID: "p4", Title: "Lamp", Price: decimal.NewFromInt(900), Stock: intPtr(0)},
	}
}

// mutableCatalog lets tests change stock between calls.
type mutableCatalog struct {
	products map[string]types.Product
	order    []string
}

func newMutableCatalog(products []types.Product) *mutableCatalog {
	c := &mutableCatalog{products: make(map[string]types.Product)}
	for _, p := range products {
		c.products[p.ID] = p
		c.order = append(c.order, p.ID)
	}
	return c
}

func (c *mutableCatalog) Lookup(id string) (types.Product, bool) {
	p, ok := c.products[id]
	return p, ok
}

func (c *mutableCatalog) Products() []types.Product {
	out := make([]types.Product, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.products[id])
	}
	return out
}

func (c *mutableCatalog) setStock(id string, stock int) {
	p := c.products[id]
	p.Stock = intPtr(stock)
	c.products[id] = p
}

// failingStorage fails every write.
type failingStorage struct {
	*storage.Memory
}

func (failingStorage) Set(string, []byte) error { return errors.New("quota exceeded") }

// confirmer records prompts and answers with answer.
type confirmer struct {
	answer  bool
	prompts []string
}

func (c *confirmer) Confirm(prompt string) bool {
	c.prompts = append(c.prompts, prompt)
	return c.answer
}

type updateCall struct {
	lines     []types.CartLine
	total     decimal.Decimal
	itemCount int
}

type fixture struct {
	store     *Store
	staging   *Staging
	storage   types.Storage
	catalog   *mutableCatalog
	notes     *notify.Recorder
	confirmer *confirmer
	updates   []updateCall
	previews  [][]types.LineView
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, storage.NewMemory())
}

func newFixtureWith(t *testing.T, st types.Storage) *fixture {
	t.Helper()
	f := &fixture{
		storage:   st,
		catalog:   newMutableCatalog(testProducts()),
		notes:     &notify.Recorder{},
		confirmer: &confirmer{answer: true},
	}
	store, err := New(Deps{
		Catalog:   f.catalog,
		Storage:   st,
		Notifier:  f.notes,
		Confirmer: f.confirmer,
		OnUpdate: func(lines []types.CartLine, total decimal.Decimal, itemCount int) {
			f.updates = append(f.updates, updateCall{lines, total, itemCount})
		},
		OnPreview: func(rows []types.LineView) {
			f.previews = append(f.previews, rows)
		},
	})
	require.NoError(t, err)
	f.store = store
	f.staging = NewStaging(store)
	return f
}

func (f *fixture) add(t *testing.T, id string, qty int) {
	t.Helper()
	_, err := f.store.AddLine(id, qty)
	require.NoError(t, err)
}

// assertInvariant checks that every line has quantity >= 1 and IDs are unique.
func assertInvariant(t *testing.T, s *Store) {
	t.Helper()
	seen := map[string]bool{}
	for _, l := range s.Lines() {
		require.GreaterOrEqual(t, l.Quantity, 1, "line %s", l.ProductID)
		require.False(t, seen[l.ProductID], "duplicate line %s", l.ProductID)
		seen[l.ProductID] = true
	}
}

// fakeTimers is a manual clock for QuantityInput.
type fakeTimers struct {
	timers []*fakeTimer
}

type fakeTimer struct {
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	wasActive := !t.stopped && !t.fired
	t.stopped = true
	return wasActive
}

func (ft *fakeTimers) after(_ time.Duration, f func()) Timer {
	t := &fakeTimer{f: f}
	ft.timers = append(ft.timers, t)
	return t
}

// settle fires every timer that is still active.
func (ft *fakeTimers) settle() {
	for _, t := range ft.timers {
		if !t.stopped && !t.fired {
			t.fired = true
			t.f()
		}
	}
}

func (ft *fakeTimers) active() int {
	n := 0
	for _, t := range ft.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}
