package vectorstore

import (
	"context"
	"sync"
)

// MemoryBackend keeps records in process memory.
type MemoryBackend struct {
	mu      sync.RWMutex
	records map[Namespace][]Record
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{records: make(map[Namespace][]Record)}
}

// Replace swaps the namespace's records.
func (m *MemoryBackend) Replace(_ context.Context, ns Namespace, records []Record) error {
	cp := make([]Record, len(records))
	copy(cp, records)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[ns] = cp
	return nil
}

// Records returns a copy of the namespace's records.
func (m *MemoryBackend) Records(_ context.Context, ns Namespace) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	recs := m.records[ns]
	cp := make([]Record, len(recs))
	copy(cp, recs)
	return cp, nil
}

// Close is a no-op.
func (m *MemoryBackend) Close() error {
	return nil
}
