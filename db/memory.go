package db

import (
	"context"
	"sync"
)

// MemoryStore keeps everything in process memory. Used by tests and the
// "memory" backend.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string][]byte

	sets int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string][]byte)}
}

func (m *MemoryStore) Get(_ context.Context, keys []string) (map[string][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		if v, ok := m.items[k]; ok {
			out[k] = append([]byte(nil), v...)
		}
	}
	return out, nil
}

func (m *MemoryStore) Set(_ context.Context, items map[string][]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for k, v := range items {
		m.items[k] = append([]byte(nil), v...)
	}
	m.sets++
	return nil
}

func (m *MemoryStore) Remove(_ context.Context, keys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, k := range keys {
		delete(m.items, k)
	}
	return nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = make(map[string][]byte)
	return nil
}

func (m *MemoryStore) Close() error { return nil }

// SetCount reports how many Set calls have been made; tests use it to check
// write-through behaviour.
func (m *MemoryStore) SetCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sets
}
