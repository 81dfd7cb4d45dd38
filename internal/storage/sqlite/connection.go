package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/ternarybob/arbor"
	_ "modernc.org/sqlite"

	"github.com/dengnaichen/jobworkflow/internal/common"
	"github.com/dengnaichen/jobworkflow/internal/models"
)

// DB manages one SQLite database connection.
type DB struct {
	db     *sql.DB
	logger arbor.ILogger
	path   string
}

// Options configures pragmas applied at open time.
type Options struct {
	CacheSizeMB   int
	BusyTimeoutMS int
	WALMode       bool
}

// DefaultOptions mirrors the database defaults in the server config.
func DefaultOptions() Options {
	return Options{CacheSizeMB: 10, BusyTimeoutMS: 5000}
}

// Open opens an existing database file. A missing file maps to
// DB_NOT_FOUND: the workflow tools never create the database implicitly;
// only the ingest writer creates the file and bootstraps its schema.
func Open(logger arbor.ILogger, path string, opts Options) (*DB, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, models.NewDBNotFoundError(common.SanitizeErrorMessage(path))
		}
		return nil, models.NewDBError(common.SanitizeError(err))
	}
	return open(logger, path, opts)
}

// OpenOrCreate opens the database, creating the file and parent directories
// when missing. Used by the ingest writer, which owns schema bootstrap.
func OpenOrCreate(logger arbor.ILogger, path string, opts Options) (*DB, error) {
	dir := dirOf(path)
	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, models.NewDBError(fmt.Sprintf("failed to create database directory: %s", common.SanitizeError(err)))
		}
	}
	return open(logger, path, opts)
}

func open(logger arbor.ILogger, path string, opts Options) (*DB, error) {
	logger.Debug().Str("path", path).Msg("Opening database connection")

	// modernc.org/sqlite registers driver name "sqlite" (not "sqlite3")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, models.NewDBError(common.SanitizeError(err))
	}

	// SQLite doesn't handle concurrent writes well, so limit to 1 connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &DB{db: db, logger: logger, path: path}
	if err := s.configure(opts); err != nil {
		db.Close()
		return nil, models.NewDBError(common.SanitizeError(err))
	}
	return s, nil
}

func (s *DB) configure(opts Options) error {
	if opts.CacheSizeMB <= 0 {
		opts.CacheSizeMB = 10
	}
	if opts.BusyTimeoutMS <= 0 {
		opts.BusyTimeoutMS = 5000
	}

	pragmas := []string{
		fmt.Sprintf("PRAGMA cache_size = -%d", opts.CacheSizeMB*1024),
		fmt.Sprintf("PRAGMA busy_timeout = %d", opts.BusyTimeoutMS),
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	if opts.WALMode {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}

	for _, pragma := range pragmas {
		if _, err := s.db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}
	return nil
}

// SQL returns the underlying database handle.
func (s *DB) SQL() *sql.DB {
	return s.db
}

// Path returns the database file path.
func (s *DB) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *DB) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// BeginTx starts a new transaction.
func (s *DB) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return s.db.BeginTx(ctx, nil)
}

func dirOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' || path[i] == '\\' {
			return path[:i]
		}
	}
	return ""
}

// Timestamp formatting shared by every jobs-table writer: ISO-8601 UTC
// with millisecond precision.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// FormatTimestamp renders t in the canonical column format.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// ParseTimestamp accepts the canonical format plus the RFC3339 variants
// older rows may carry.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range []string{timestampLayout, time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp: %s", s)
}
