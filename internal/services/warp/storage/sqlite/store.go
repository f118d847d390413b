// Package sqlite provides a SQLite-backed warp storage implementation.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/dasjeff/warppoint/internal/platform/storage/sqlitemigrate"
	"github.com/dasjeff/warppoint/internal/services/warp/storage"
	"github.com/dasjeff/warppoint/internal/services/warp/storage/sqlite/migrations"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

const (
	defaultPoolSize         = 4
	defaultAcquireTimeout   = 5 * time.Second
	defaultWarpLimitDefault = 5
)

// Options bound the connection pool and seed profile defaults.
type Options struct {
	// PoolSize caps open connections. Zero means the default.
	PoolSize int
	// AcquireTimeout bounds how long a transaction waits for a pooled
	// connection before failing with storage.ErrPoolExhausted.
	AcquireTimeout time.Duration
	// DefaultWarpLimit seeds lazily created profiles.
	DefaultWarpLimit int
}

func (o Options) withDefaults() Options {
	if o.PoolSize <= 0 {
		o.PoolSize = defaultPoolSize
	}
	if o.AcquireTimeout <= 0 {
		o.AcquireTimeout = defaultAcquireTimeout
	}
	if o.DefaultWarpLimit <= 0 {
		o.DefaultWarpLimit = defaultWarpLimitDefault
	}
	return o
}

// Store persists warp registry state in SQLite.
type Store struct {
	sqlDB            *sql.DB
	acquireTimeout   time.Duration
	defaultWarpLimit int
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// fromMillis reverses toMillis for persisted millisecond timestamps.
func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite store at the provided path.
func Open(path string, opts Options) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	opts = opts.withDefaults()

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	sqlDB.SetMaxOpenConns(opts.PoolSize)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &Store{
		sqlDB:            sqlDB,
		acquireTimeout:   opts.AcquireTimeout,
		defaultWarpLimit: opts.DefaultWarpLimit,
	}

	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return store, nil
}

// Close closes the underlying SQLite database.
//
// Close is nil-safe so callers can defer it in all startup paths.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Tx exposes repository mutations bound to one open transaction. It never
// commits, rolls back, or releases the connection; RunInTx owns that.
type Tx struct {
	tx *sql.Tx
}

// RunInTx executes fn as a single unit of work: the transaction commits when
// fn returns nil and rolls back when fn returns an error. Connection
// acquisition is bounded by the configured timeout and surfaces as
// storage.ErrPoolExhausted; rollback failures after a failed unit are logged,
// not propagated, so fn's error is what callers see.
func (s *Store) RunInTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if fn == nil {
		return fmt.Errorf("transaction unit is required")
	}

	acquireCtx, cancel := context.WithTimeout(ctx, s.acquireTimeout)
	defer cancel()

	conn, err := s.sqlDB.Conn(acquireCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return storage.ErrPoolExhausted
		}
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			log.Printf("release connection after transaction: %v", err)
		}
	}()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(&Tx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.Printf("rollback transaction: %v", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a unique or primary key constraint
// rejection from the driver.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE, sqlite3lib.SQLITE_CONSTRAINT:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

var _ storage.Store = (*Store)(nil)
var _ storage.Tx = (*Tx)(nil)
