package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/GuilhermePossari/Lilabot/internal/shared"
	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

const (
	maxWriteRetries = 3
	baseRetryDelay  = 100 * time.Millisecond
)

// SQLiteStore keeps every table as rows of a single kv table in SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLite opens (creating if needed) the database at dbPath and applies
// pending migrations.
func NewSQLite(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db.DB); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("open migration source: %w", err)
	}
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("open migration driver: %w", err)
	}
	// m.Close is not called: it would close the shared *sql.DB.
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}

	fromVer, _, _ := m.Version()
	start := time.Now()
	upErr := m.Up()
	switch {
	case upErr == nil:
	case errors.Is(upErr, migrate.ErrNoChange):
		slog.Debug("Migrations up to date", "version", fromVer)
		return nil
	default:
		return fmt.Errorf("apply migrations: %w", upErr)
	}

	toVer, _, _ := m.Version()
	slog.Info("Migrations applied", "from_ver", fromVer, "to_ver", toVer, "took", time.Since(start))
	return nil
}

// Table returns the named table.
func (s *SQLiteStore) Table(name Table) KV {
	return &sqliteTable{db: s.db, name: name}
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type sqliteTable struct {
	db   *sqlx.DB
	name Table
}

func (t *sqliteTable) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := t.db.GetContext(ctx, &value, `SELECT value FROM kv WHERE bucket = ? AND key = ?`, string(t.name), key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select %s/%s: %w", t.name, key, err)
	}
	return value, nil
}

// Set upserts the row, retrying with exponential backoff (100ms, 200ms, 400ms)
// while the database reports SQLITE_BUSY or a lock.
func (t *sqliteTable) Set(ctx context.Context, key string, value []byte) error {
	query := `
	INSERT INTO kv (bucket, key, value, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(bucket, key) DO UPDATE SET
		value = excluded.value,
		updated_at = excluded.updated_at`

	var err error
	for i := 0; i < maxWriteRetries; i++ {
		_, err = t.db.ExecContext(ctx, query, string(t.name), key, value, time.Now().Unix())
		if err == nil {
			return nil
		}
		if !shared.IsSQLiteConflictError(err) || i == maxWriteRetries-1 {
			break
		}
		delay := baseRetryDelay * time.Duration(1<<i)
		slog.Debug("kv upsert hit a locked database, retrying",
			"bucket", t.name,
			"key", key,
			"attempt", i+1,
			"delay", delay,
		)
		select {
		case <-ctx.Done():
			return persistErr("upsert", t.name, key, ctx.Err())
		case <-time.After(delay):
		}
	}
	return persistErr("upsert", t.name, key, err)
}

func (t *sqliteTable) All(ctx context.Context) (map[string][]byte, error) {
	var rows []struct {
		Key   string `db:"key"`
		Value []byte `db:"value"`
	}
	if err := t.db.SelectContext(ctx, &rows, `SELECT key, value FROM kv WHERE bucket = ?`, string(t.name)); err != nil {
		return nil, fmt.Errorf("select %s: %w", t.name, err)
	}
	out := make(map[string][]byte, len(rows))
	for _, r := range rows {
		out[r.Key] = r.Value
	}
	return out, nil
}
