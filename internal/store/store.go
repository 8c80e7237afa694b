// Package store provides the durable key-value tables that back session and
// counter state.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned by Get when a key has never been written.
	ErrNotFound = errors.New("key not found")

	// ErrPersistence marks a failed durable write. Callers must treat the
	// mutation that triggered it as not applied.
	ErrPersistence = errors.New("persistence failure")
)

// Table names a durable key-value table.
type Table string

const (
	TableSessions Table = "sessions"
	TableCounters Table = "counters"
)

// KV is a single durable key-value table. Values are opaque byte slices and
// must round-trip unchanged across restarts.
type KV interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set durably stores value under key before returning.
	// Failures wrap ErrPersistence.
	Set(ctx context.Context, key string, value []byte) error

	// All returns every key in the table.
	All(ctx context.Context) (map[string][]byte, error)
}

// Backend owns the set of tables for one storage driver.
type Backend interface {
	// Table returns the named table. Tables are independent of each other.
	Table(name Table) KV

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases the backend's resources.
	Close() error
}

// Options selects and configures a storage driver.
type Options struct {
	Driver      string
	SQLitePath  string
	Dir         string
	RedisURL    string
	RedisPrefix string
}

// Open builds the backend named by opts.Driver.
func Open(ctx context.Context, opts Options) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case "", "sqlite":
		return NewSQLite(ctx, opts.SQLitePath)
	case "file":
		return NewFile(opts.Dir)
	case "redis":
		return NewRedis(ctx, opts.RedisURL, opts.RedisPrefix)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown state backend %q", opts.Driver)
	}
}

func persistErr(op string, table Table, key string, err error) error {
	return fmt.Errorf("%w: %s %s/%s: %w", ErrPersistence, op, table, key, err)
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
