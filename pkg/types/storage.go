package types

import "errors"

// Storage is a durable key/value store. The cart writes its full JSON
// encoding under a single key after every committed mutation.
type Storage interface {
	// Get returns the value stored under key.
	// Returns ErrKeyNotFound if nothing is stored there.
	Get(key string) ([]byte, error)

	// Set replaces the value stored under key.
	Set(key string, value []byte) error

	// Delete removes key. Deleting a missing key succeeds.
	Delete(key string) error

	// Close releases backend resources. Idempotent. After Close, operations
	// return ErrStorageClosed.
	Close() error
}

// Storage errors.
var (
	ErrKeyNotFound   = errors.New("key not found")
	ErrStorageClosed = errors.New("storage is closed")
	ErrInvalidKey    = errors.New("invalid storage key")
)
