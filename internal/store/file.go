package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps each table as one JSON document on disk. Every Set
// rewrites the whole document through a temp file and rename, so a crash
// leaves either the old or the new table.
type FileStore struct {
	dir string

	mu     sync.Mutex
	tables map[Table]map[string]json.RawMessage
}

// NewFile creates a file backend rooted at dir.
func NewFile(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("state directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}
	return &FileStore{dir: dir, tables: make(map[Table]map[string]json.RawMessage)}, nil
}

// Table returns the named file-backed table.
func (s *FileStore) Table(name Table) KV {
	return &fileTable{store: s, name: name}
}

// Ping checks the state directory is still there.
func (s *FileStore) Ping(context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return fmt.Errorf("stat state directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("state path %s is not a directory", s.dir)
	}
	return nil
}

// Close is a no-op; every write is already on disk.
func (s *FileStore) Close() error { return nil }

func (s *FileStore) path(name Table) string {
	return filepath.Join(s.dir, string(name)+".json")
}

// load returns the cached table, reading it from disk on first use.
// Callers hold s.mu.
func (s *FileStore) load(name Table) (map[string]json.RawMessage, error) {
	if tbl, ok := s.tables[name]; ok {
		return tbl, nil
	}
	tbl := make(map[string]json.RawMessage)
	data, err := os.ReadFile(s.path(name))
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read %s: %w", s.path(name), err)
	case len(bytes.TrimSpace(data)) > 0:
		if err := json.Unmarshal(data, &tbl); err != nil {
			return nil, fmt.Errorf("decode %s: %w", s.path(name), err)
		}
	}
	s.tables[name] = tbl
	return tbl, nil
}

func (s *FileStore) write(name Table, tbl map[string]json.RawMessage) error {
	data, err := json.MarshalIndent(tbl, "", "  ")
	if err != nil {
		return fmt.Errorf("encode table: %w", err)
	}
	data = append(data, '\n')

	path := s.path(name)
	tmp, err := os.CreateTemp(s.dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

type fileTable struct {
	store *FileStore
	name  Table
}

func (t *fileTable) Get(_ context.Context, key string) ([]byte, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	tbl, err := t.store.load(t.name)
	if err != nil {
		return nil, err
	}
	raw, ok := tbl[key]
	if !ok {
		return nil, ErrNotFound
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, fmt.Errorf("compact %s/%s: %w", t.name, key, err)
	}
	return buf.Bytes(), nil
}

// Set accepts only JSON documents since the table is itself one JSON file.
func (t *fileTable) Set(_ context.Context, key string, value []byte) error {
	if !json.Valid(value) {
		return persistErr("set", t.name, key, errors.New("value is not a JSON document"))
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	tbl, err := t.store.load(t.name)
	if err != nil {
		return persistErr("set", t.name, key, err)
	}

	next := make(map[string]json.RawMessage, len(tbl)+1)
	for k, v := range tbl {
		next[k] = v
	}
	next[key] = json.RawMessage(cloneBytes(value))

	if err := t.store.write(t.name, next); err != nil {
		return persistErr("set", t.name, key, err)
	}
	t.store.tables[t.name] = next
	return nil
}

func (t *fileTable) All(ctx context.Context) (map[string][]byte, error) {
	t.store.mu.Lock()
	tbl, err := t.store.load(t.name)
	keys := make([]string, 0, len(tbl))
	for k := range tbl {
		keys = append(keys, k)
	}
	t.store.mu.Unlock()
	if err != nil {
		return nil, err
	}

	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		v, err := t.Get(ctx, k)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}
