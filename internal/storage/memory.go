package storage

import (
	"sync"

	"github.com/mesh-intelligence/storefront/pkg/types"
)

// Compile-time interface check.
var _ types.Storage = (*Memory)(nil)

// Memory is a process-local backend. Nothing survives the process; useful
// for hosts without durable storage and for tests.
type Memory struct {
	mu     sync.RWMutex
	values map[string][]byte
	closed bool
}

// NewMemory returns an empty memory backend.
func NewMemory() *Memory {
	return &Memory{values: make(map[string][]byte)}
}

// Get returns a copy of the value stored under key.
func (m *Memory) Get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, types.ErrStorageClosed
	}
	v, ok := m.values[key]
	if !ok {
		return nil, types.ErrKeyNotFound
	}
	return append([]byte(nil), v...), nil
}

// Set stores a copy of value under key.
func (m *Memory) Set(key string, value []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return types.ErrStorageClosed
	}
	m.values[key] = append([]byte(nil), value...)
	return nil
}

// Delete removes key.
func (m *Memory) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return types.ErrStorageClosed
	}
	delete(m.values, key)
	return nil
}

// Close marks the backend closed. Idempotent.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
