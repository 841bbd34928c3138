// Package database opens the single-file SQLite store the mapper works against.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const (
	// Memory is the path of a private in-memory store
	Memory = ":memory:"

	dirPermissions  = 0750
	filePermissions = 0600

	msPerSecond       = 1000
	connectionTimeout = 5 * time.Second

	// DefaultBusyTimeout is used when Config.BusyTimeout is zero (seconds)
	DefaultBusyTimeout = 5
)

// ErrNoStore is returned by a read-only Open when the file does not exist
var ErrNoStore = fmt.Errorf("store file does not exist: %w", os.ErrNotExist)

// Executor is what the persistence and migration layers run statements through.
// It is satisfied by *sql.DB, *sql.Tx and *transaction.Transaction.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// DB wraps the one writable connection to the store.
type DB struct {
	*sql.DB
	path string
}

// Config contains connection options.
type Config struct {
	// Path is the database file, or Memory. The directory is created if missing.
	Path string

	// WALMode enables write-ahead logging
	WALMode bool

	// BusyTimeout is how long to wait for a lock held by another process (seconds)
	BusyTimeout int

	// ReadOnly opens an existing file without creating it or its directory
	ReadOnly bool
}

// ResolvePath joins a storage directory and a database name, adding the ".db"
// extension when the name has none. An empty storage keeps the name relative to the
// working directory.
func ResolvePath(storage, name string) string {
	if name == Memory || storage == Memory {
		return Memory
	}
	if !strings.HasSuffix(strings.ToLower(name), ".db") {
		name += ".db"
	}
	if storage == "" {
		return name
	}
	return filepath.Join(storage, name)
}

// Open connects to the store. The pool is pinned to one connection, which is also what
// keeps an in-memory store alive for the lifetime of the handle.
func Open(cfg Config) (*DB, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = DefaultBusyTimeout
	}

	var connStr string
	if cfg.Path == Memory {
		connStr = fmt.Sprintf("file::memory:?_busy_timeout=%d", busy*msPerSecond)
	} else if cfg.ReadOnly {
		if _, err := os.Stat(cfg.Path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("%s: %w", cfg.Path, ErrNoStore)
			}
			return nil, fmt.Errorf("checking database file: %w", err)
		}
		connStr = fmt.Sprintf("file:%s?mode=ro&_busy_timeout=%d", cfg.Path, busy*msPerSecond)
	} else {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), dirPermissions); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
		connStr = fmt.Sprintf("file:%s?_busy_timeout=%d", cfg.Path, busy*msPerSecond)
		if cfg.WALMode {
			connStr += "&_journal_mode=WAL&_synchronous=NORMAL"
		}
	}

	sqlDB, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)
	sqlDB.SetConnMaxIdleTime(0)

	db := &DB{DB: sqlDB, path: cfg.Path}

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		sqlDB.Close() //nolint:errcheck // best effort cleanup on error path
		return nil, fmt.Errorf("verifying database connection: %w", err)
	}

	if cfg.Path != Memory && !cfg.ReadOnly {
		_ = os.Chmod(cfg.Path, filePermissions) //nolint:errcheck // file may not exist before the first write
	}

	return db, nil
}

// Close closes the connection
func (db *DB) Close() error {
	if db.DB == nil {
		return nil
	}
	if err := db.DB.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

// Path returns the database file path
func (db *DB) Path() string {
	return db.path
}

// HealthCheck verifies the store answers queries
func (db *DB) HealthCheck(ctx context.Context) error {
	var result int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// UserVersion reads the version number stored in the database header
func UserVersion(ctx context.Context, exec Executor) (int, error) {
	var v int
	if err := exec.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("reading user_version: %w", err)
	}
	return v, nil
}

// SetUserVersion writes the version number into the database header
func SetUserVersion(ctx context.Context, exec Executor, v int) error {
	// PRAGMA does not accept bound parameters
	if _, err := exec.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", v)); err != nil {
		return fmt.Errorf("writing user_version: %w", err)
	}
	return nil
}

// TableExists reports whether a table is present in the store
func TableExists(ctx context.Context, exec Executor, name string) (bool, error) {
	var n int
	err := exec.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ? COLLATE NOCASE", name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking table %s: %w", name, err)
	}
	return n > 0, nil
}
