// Package storage implements the durable key/value backends the cart is
// persisted to: SQLite, atomic JSON files, and memory.
package storage

import (
	"fmt"
	"os"
	"regexp"

	"github.com/mesh-intelligence/storefront/pkg/types"
)

// validKey restricts keys to names that are safe as file names.
var validKey = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// checkKey returns ErrInvalidKey if key is not usable by every backend.
func checkKey(key string) error {
	if !validKey.MatchString(key) {
		return fmt.Errorf("%q: %w", key, types.ErrInvalidKey)
	}
	return nil
}

// Open validates config and opens the selected backend. DataDir is created
// if it does not exist; the memory backend ignores it.
func Open(config types.StorageConfig) (types.Storage, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if config.Backend == types.BackendMemory {
		return NewMemory(), nil
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	switch config.Backend {
	case types.BackendSQLite:
		return OpenSQLite(dataDir)
	case types.BackendFile:
		return OpenFile(dataDir)
	default:
		return nil, types.ErrBackendUnknown
	}
}
