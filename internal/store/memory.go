package store

import (
	"context"
	"sync"
)

// MemoryBlob keeps objects in process memory. Used by tests and the memory backend.
type MemoryBlob struct {
	mu      sync.RWMutex
	objects map[string][]byte
	puts    int
}

// NewMemoryBlob returns an empty in-memory store.
func NewMemoryBlob() *MemoryBlob {
	return &MemoryBlob{objects: make(map[string][]byte)}
}

func (m *MemoryBlob) Name() string { return "memory" }

func (m *MemoryBlob) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (m *MemoryBlob) Put(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = append([]byte(nil), data...)
	m.puts++
	return nil
}

func (m *MemoryBlob) Exists(_ context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[key]
	return ok, nil
}

// Puts returns how many writes the store has accepted.
func (m *MemoryBlob) Puts() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.puts
}

// Len returns the number of stored objects.
func (m *MemoryBlob) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
