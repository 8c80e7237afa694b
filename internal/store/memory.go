package store

import (
	"context"
	"sync"
)

// MemoryStore keeps tables in process memory. State is lost on restart.
type MemoryStore struct {
	mu     sync.RWMutex
	tables map[Table]map[string][]byte
}

// NewMemory creates an empty in-memory backend.
func NewMemory() *MemoryStore {
	return &MemoryStore{tables: make(map[Table]map[string][]byte)}
}

// Table returns the named in-memory table.
func (s *MemoryStore) Table(name Table) KV {
	return &memoryTable{store: s, name: name}
}

// Ping always succeeds.
func (s *MemoryStore) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

type memoryTable struct {
	store *MemoryStore
	name  Table
}

func (t *memoryTable) Get(_ context.Context, key string) ([]byte, error) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	v, ok := t.store.tables[t.name][key]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneBytes(v), nil
}

func (t *memoryTable) Set(_ context.Context, key string, value []byte) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	tbl, ok := t.store.tables[t.name]
	if !ok {
		tbl = make(map[string][]byte)
		t.store.tables[t.name] = tbl
	}
	tbl[key] = cloneBytes(value)
	return nil
}

func (t *memoryTable) All(context.Context) (map[string][]byte, error) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	out := make(map[string][]byte, len(t.store.tables[t.name]))
	for k, v := range t.store.tables[t.name] {
		out[k] = cloneBytes(v)
	}
	return out, nil
}
