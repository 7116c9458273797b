package storage

import (
	"context"
	"sync"
)

// MemoryStore keeps blobs in process memory. Used for tests and ephemeral runs.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

// Get returns a copy of the blob stored under key
func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	_, span := startSpan(ctx, "memory", "Get", key)
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.blobs[key]
	if !ok {
		endSpan(span, ErrNotFound)
		return nil, ErrNotFound
	}
	endSpan(span, nil)
	return append([]byte(nil), data...), nil
}

// Put stores a copy of data under key
func (m *MemoryStore) Put(ctx context.Context, key string, data []byte) error {
	_, span := startSpan(ctx, "memory", "Put", key)
	if err := validateKey(key); err != nil {
		endSpan(span, err)
		return err
	}

	m.mu.Lock()
	m.blobs[key] = append([]byte(nil), data...)
	m.mu.Unlock()
	endSpan(span, nil)
	return nil
}

// Close is a no-op
func (m *MemoryStore) Close() error {
	return nil
}
