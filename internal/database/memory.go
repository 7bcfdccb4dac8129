package database

import (
	"context"
	"sync"

	"swipee/pkg/interfaces"
	"swipee/pkg/types"
)

// MemoryStore is an in-process RecordStore. Useful for tests and for
// running the server without a durable backend; it honors the same
// atomicity contract as the SQLite store by deep-copying records on the
// way in and out.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*types.SessionRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*types.SessionRecord)}
}

// Get returns a copy of the record for key, or ErrSessionNotFound.
func (m *MemoryStore) Get(ctx context.Context, key types.SessionKey) (*types.SessionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	record, exists := m.records[key.String()]
	if !exists {
		return nil, interfaces.ErrSessionNotFound
	}
	return record.Clone(), nil
}

// Put stores a copy of the record under key.
func (m *MemoryStore) Put(ctx context.Context, key types.SessionKey, record *types.SessionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[key.String()] = record.Clone()
	return nil
}

// Delete removes the record. Absent keys are not an error.
func (m *MemoryStore) Delete(ctx context.Context, key types.SessionKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, key.String())
	return nil
}

// HealthCheck always succeeds for the in-memory backend.
func (m *MemoryStore) HealthCheck(ctx context.Context) error { return nil }

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }
