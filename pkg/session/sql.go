package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultTableName is the table used by SQLStore unless overridden.
const DefaultTableName = "deeplink_kv"

// SQLStore is a SQL-backed Store.
// It works with any database/sql compatible driver (PostgreSQL, MySQL, SQLite).
// Requires a table with schema:
//
//	CREATE TABLE deeplink_kv (
//	    key VARCHAR(255) PRIMARY KEY,
//	    value TEXT NOT NULL,
//	    expires_at BIGINT NOT NULL DEFAULT 0,
//	    updated_at BIGINT NOT NULL
//	);
//
// Timestamps are unix milliseconds; expires_at 0 means no expiry.
type SQLStore struct {
	db              *sql.DB
	ownsDB          bool
	tableName       string
	dialect         SQLDialect
	ttl             time.Duration
	now             func() time.Time
	cleanupInterval time.Duration
	logger          *slog.Logger
	closed          atomic.Bool
	done            chan struct{}
}

// SQLDialect represents the SQL dialect for query generation.
type SQLDialect int

const (
	// DialectSQLite uses SQLite syntax (? placeholders).
	DialectSQLite SQLDialect = iota
	// DialectPostgreSQL uses PostgreSQL syntax ($1, $2 placeholders).
	DialectPostgreSQL
	// DialectMySQL uses MySQL syntax (? placeholders).
	DialectMySQL
)

// SQLStoreOption configures SQLStore behavior.
type SQLStoreOption func(*sqlStoreConfig)

type sqlStoreConfig struct {
	tableName       string
	dialect         SQLDialect
	ttl             time.Duration
	now             func() time.Time
	cleanupInterval time.Duration
	logger          *slog.Logger
}

// WithSQLTableName sets the table name. Default: "deeplink_kv".
func WithSQLTableName(name string) SQLStoreOption {
	return func(c *sqlStoreConfig) {
		c.tableName = name
	}
}

// WithSQLDialect sets the SQL dialect for query generation.
// Default: DialectSQLite.
func WithSQLDialect(dialect SQLDialect) SQLStoreOption {
	return func(c *sqlStoreConfig) {
		c.dialect = dialect
	}
}

// WithSQLTTL sets how long entries live. Zero disables expiry.
func WithSQLTTL(d time.Duration) SQLStoreOption {
	return func(c *sqlStoreConfig) {
		c.ttl = d
	}
}

// WithSQLClock overrides the clock used for expiry.
func WithSQLClock(now func() time.Time) SQLStoreOption {
	return func(c *sqlStoreConfig) {
		c.now = now
	}
}

// WithSQLCleanupInterval sets how often expired rows are removed.
// Zero disables the background cleanup. Default: 5 minutes.
func WithSQLCleanupInterval(d time.Duration) SQLStoreOption {
	return func(c *sqlStoreConfig) {
		c.cleanupInterval = d
	}
}

// WithSQLLogger sets the logger for background cleanup failures.
// Default: slog.Default().
func WithSQLLogger(l *slog.Logger) SQLStoreOption {
	return func(c *sqlStoreConfig) {
		c.logger = l
	}
}

// NewSQLStore creates a store on an existing database handle.
// The handle is not closed by Close.
func NewSQLStore(db *sql.DB, opts ...SQLStoreOption) *SQLStore {
	cfg := &sqlStoreConfig{
		tableName:       DefaultTableName,
		dialect:         DialectSQLite,
		now:             time.Now,
		cleanupInterval: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	store := &SQLStore{
		db:              db,
		tableName:       cfg.tableName,
		dialect:         cfg.dialect,
		ttl:             cfg.ttl,
		now:             cfg.now,
		cleanupInterval: cfg.cleanupInterval,
		logger:          cfg.logger,
		done:            make(chan struct{}),
	}

	if store.ttl > 0 && store.cleanupInterval > 0 {
		go store.cleanupLoop()
	}
	return store
}

// OpenSQLite opens (creating if needed) a SQLite database at path, creates
// the key/value table and returns a store that owns the handle.
// The path ":memory:" opens a private in-memory database.
func OpenSQLite(ctx context.Context, path string, opts ...SQLStoreOption) (*SQLStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	dsn := path
	if path != ":memory:" {
		dsn = filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := NewSQLStore(db, append([]SQLStoreOption{WithSQLDialect(DialectSQLite)}, opts...)...)
	store.ownsDB = true
	if err := store.CreateTable(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}
	return store, nil
}

// placeholder returns the placeholder syntax for the dialect.
func (s *SQLStore) placeholder(n int) string {
	if s.dialect == DialectPostgreSQL {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func (s *SQLStore) upsertQuery() string {
	switch s.dialect {
	case DialectPostgreSQL:
		return fmt.Sprintf(`
			INSERT INTO %s (key, value, expires_at, updated_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (key) DO UPDATE SET
				value = EXCLUDED.value,
				expires_at = EXCLUDED.expires_at,
				updated_at = EXCLUDED.updated_at
		`, s.tableName)
	case DialectMySQL:
		return fmt.Sprintf(`
			INSERT INTO %s (`+"`key`"+`, value, expires_at, updated_at)
			VALUES (?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE
				value = VALUES(value),
				expires_at = VALUES(expires_at),
				updated_at = VALUES(updated_at)
		`, s.tableName)
	default:
		return fmt.Sprintf(`
			INSERT OR REPLACE INTO %s (key, value, expires_at, updated_at)
			VALUES (?, ?, ?, ?)
		`, s.tableName)
	}
}

func (s *SQLStore) keyColumn() string {
	if s.dialect == DialectMySQL {
		return "`key`"
	}
	return "key"
}

// Set implements Store.
func (s *SQLStore) Set(ctx context.Context, key, value string) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}

	now := s.now()
	var expiresAt int64
	if s.ttl > 0 {
		expiresAt = now.Add(s.ttl).UnixMilli()
	}

	if _, err := s.db.ExecContext(ctx, s.upsertQuery(), key, value, expiresAt, now.UnixMilli()); err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

// Get implements Store.
func (s *SQLStore) Get(ctx context.Context, key string) (string, bool, error) {
	if s.closed.Load() {
		return "", false, ErrStoreClosed
	}

	query := fmt.Sprintf(`
		SELECT value FROM %s
		WHERE %s = %s AND (expires_at = 0 OR expires_at > %s)
	`, s.tableName, s.keyColumn(), s.placeholder(1), s.placeholder(2))

	var value string
	err := s.db.QueryRowContext(ctx, query, key, s.now().UnixMilli()).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %q: %w", key, err)
	}
	return value, true, nil
}

// Delete implements Store.
func (s *SQLStore) Delete(ctx context.Context, key string) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = %s`, s.tableName, s.keyColumn(), s.placeholder(1))
	if _, err := s.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

// Close stops background cleanup. The database handle is closed only when
// the store was created by OpenSQLite.
func (s *SQLStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(s.done)
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}

// cleanupLoop periodically removes expired rows.
func (s *SQLStore) cleanupLoop() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.done:
			return
		}
	}
}

// cleanup removes expired rows. Failures are logged and the next tick retries.
func (s *SQLStore) cleanup() {
	if s.closed.Load() {
		return
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE expires_at > 0 AND expires_at <= %s`, s.tableName, s.placeholder(1))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	res, err := s.db.ExecContext(ctx, query, s.now().UnixMilli())
	if err != nil {
		s.logger.Warn("expired link cleanup failed", "table", s.tableName, "error", err)
		return
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		s.logger.Debug("expired links removed", "table", s.tableName, "count", n)
	}
}

// CreateTable creates the key/value table if it doesn't exist.
func (s *SQLStore) CreateTable(ctx context.Context) error {
	var query string
	switch s.dialect {
	case DialectPostgreSQL:
		query = fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				key VARCHAR(255) PRIMARY KEY,
				value TEXT NOT NULL,
				expires_at BIGINT NOT NULL DEFAULT 0,
				updated_at BIGINT NOT NULL
			)
		`, s.tableName)
	case DialectMySQL:
		query = fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				`+"`key`"+` VARCHAR(255) PRIMARY KEY,
				value TEXT NOT NULL,
				expires_at BIGINT NOT NULL DEFAULT 0,
				updated_at BIGINT NOT NULL
			)
		`, s.tableName)
	default:
		query = fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				key TEXT PRIMARY KEY,
				value TEXT NOT NULL,
				expires_at INTEGER NOT NULL DEFAULT 0,
				updated_at INTEGER NOT NULL
			)
		`, s.tableName)
	}

	_, err := s.db.ExecContext(ctx, query)
	return err
}
