// Package catalog provides catalog implementations for hosts that do not
// supply their own: a fixed in-memory list and a JSON file that is reloaded
// when it changes on disk.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/storefront/pkg/types"
)

// Catalog errors.
var (
	ErrDuplicateProduct = errors.New("duplicate product id")
	ErrInvalidProduct   = errors.New("invalid product")
)

// Static is an immutable catalog. Safe for concurrent use.
type Static struct {
	products []types.Product
	byID     map[string]int
}

// NewStatic indexes products. Product IDs must be unique and non-empty and
// prices must not be negative.
func NewStatic(products []types.Product) (*Static, error) {
	s := &Static{
		products: make([]types.Product, len(products)),
		byID:     make(map[string]int, len(products)),
	}
	copy(s.products, products)
	for i, p := range s.products {
		if err := validate(p); err != nil {
			return nil, err
		}
		if _, dup := s.byID[p.ID]; dup {
			return nil, fmt.Errorf("%s: %w", p.ID, ErrDuplicateProduct)
		}
		s.byID[p.ID] = i
	}
	return s, nil
}

func validate(p types.Product) error {
	if p.ID == "" {
		return fmt.Errorf("empty id: %w", ErrInvalidProduct)
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("%s: negative price: %w", p.ID, ErrInvalidProduct)
	}
	return nil
}

// Lookup returns the product with the given ID.
func (s *Static) Lookup(id string) (types.Product, bool) {
	i, ok := s.byID[id]
	if !ok {
		return types.Product{}, false
	}
	return s.products[i], true
}

// Products returns a copy of every product in catalog order.
func (s *Static) Products() []types.Product {
	out := make([]types.Product, len(s.products))
	copy(out, s.products)
	return out
}

// Parse decodes a JSON array of products.
func Parse(data []byte) (*Static, error) {
	var products []types.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return NewStatic(products)
}

// File is a catalog backed by a JSON file. Each read checks the file's
// modification time and reloads on change, so stock edits made by the host
// are seen by the next add or stage. A file that fails to load keeps the last
// good contents.
type File struct {
	mu      sync.Mutex
	path    string
	logger  *zap.Logger
	current *Static
	modTime time.Time
	size    int64
}

// OpenFile loads path. The first load must succeed.
func OpenFile(path string, logger *zap.Logger) (*File, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &File{path: path, logger: logger.Named("catalog")}
	if err := f.reload(); err != nil {
		return nil, err
	}
	return f, nil
}

// Path returns the catalog file path.
func (f *File) Path() string {
	return f.path
}

func (f *File) reload() error {
	info, err := os.Stat(f.path)
	if err != nil {
		return fmt.Errorf("stat catalog: %w", err)
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return fmt.Errorf("read catalog: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return err
	}
	f.current = s
	f.modTime = info.ModTime()
	f.size = info.Size()
	return nil
}

// refresh reloads the file when its modification time or size changed.
// The caller must hold f.mu.
func (f *File) refresh() *Static {
	info, err := os.Stat(f.path)
	if err != nil {
		f.logger.Warn("catalog unavailable, keeping last contents", zap.String("path", f.path), zap.Error(err))
		return f.current
	}
	if info.ModTime().Equal(f.modTime) && info.Size() == f.size {
		return f.current
	}
	if err := f.reload(); err != nil {
		f.logger.Warn("catalog reload failed, keeping last contents", zap.String("path", f.path), zap.Error(err))
		return f.current
	}
	f.logger.Debug("catalog reloaded", zap.String("path", f.path), zap.Int("products", len(f.current.products)))
	return f.current
}

// Lookup returns the current product with the given ID.
func (f *File) Lookup(id string) (types.Product, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refresh().Lookup(id)
}

// Products returns the current product list.
func (f *File) Products() []types.Product {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refresh().Products()
}
