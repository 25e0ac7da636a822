package kvs

import (
	"context"
	"sync"
)

// MemoryStore keeps values in a map. Data is lost when the process exits.
type MemoryStore struct {
	namespace string
	items     map[string]string
	mu        sync.RWMutex
	closed    bool
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore(namespace string) *MemoryStore {
	return &MemoryStore{
		namespace: namespace,
		items:     make(map[string]string),
	}
}

// Get retrieves a value by key.
func (m *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return "", ErrClosed
	}

	value, ok := m.items[prefixed(m.namespace, key)]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

// Set stores a value.
func (m *MemoryStore) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	m.items[prefixed(m.namespace, key)] = value
	return nil
}

// Delete removes a key.
func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	delete(m.items, prefixed(m.namespace, key))
	return nil
}

// Close releases the map. Subsequent calls return ErrClosed.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	m.closed = true
	m.items = nil
	return nil
}
