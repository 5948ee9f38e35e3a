package numerator

import (
	"context"
	"sync"
)

// MemoryStore is a process-local SequenceStore for tests and dev mode.
// It does not survive restarts and is not shared between instances.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[string]int64
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counters: make(map[string]int64)}
}

// Next implements SequenceStore.
func (s *MemoryStore) Next(_ context.Context, category string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[category]++
	return s.counters[category], nil
}

// Set forces the current value of a category (migration and tests).
func (s *MemoryStore) Set(category string, value int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[category] = value
}

var _ SequenceStore = (*MemoryStore)(nil)
