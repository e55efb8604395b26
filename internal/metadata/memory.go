package metadata

import (
	"context"
	"sync"

	"github.com/soltixdb/soltix-transform/internal/series"
)

// MemoryLookup keeps stored attributes in process memory.
type MemoryLookup struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryLookup creates an empty in-memory lookup.
func NewMemoryLookup() *MemoryLookup {
	return &MemoryLookup{values: make(map[string]string)}
}

// Get implements Source.
func (m *MemoryLookup) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

// Put stores a raw source key.
func (m *MemoryLookup) Put(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
}

// PutSeries stores an attribute for the series identity.
func (m *MemoryLookup) PutSeries(identity, key, value string) {
	m.Put(SeriesKey(identity, key), value)
}

// PutHost stores an attribute for a host.
func (m *MemoryLookup) PutHost(host, key, value string) {
	m.Put(HostKey(host, key), value)
}

// Delete removes a raw source key.
func (m *MemoryLookup) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
}

// IsMetadataEqual implements Lookup.
func (m *MemoryLookup) IsMetadataEqual(ctx context.Context, s *series.Series, key, value, extractor string) (bool, error) {
	return isEqual(ctx, m, s, key, value, extractor)
}

// Close implements io.Closer.
func (m *MemoryLookup) Close() error {
	return nil
}
