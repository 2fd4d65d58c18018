package kvstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	stdSync "sync"
	"time"

	apperrors "github.com/rintaro216/hokkaido-community-app/errors"
	"github.com/rintaro216/hokkaido-community-app/logging"

	// Go SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

// Operation constants for consistent error reporting
const (
	opSet         = apperrors.OpSet
	opGet         = apperrors.OpGet
	opRemove      = apperrors.OpRemove
	opMultiRemove = apperrors.Operation("multi_remove")
)

// Config holds configuration options for the SQLiteStore.
type Config struct {
	// DataSourceName is the connection string for the SQLite database.
	// Example: "file:appdata.db?_journal_mode=WAL"
	DataSourceName string

	// EnableWAL enables Write-Ahead Logging mode for better concurrency.
	// Enabled by default; when true, appends "?_journal_mode=WAL" to
	// DataSourceName.
	EnableWAL bool

	// TableName is the name of the table holding key-value pairs.
	// Defaults to "kv" if empty.
	TableName string

	// Connection pool settings.
	// Defaults: MaxOpen=25, MaxIdle=5, Lifetime=1h, IdleTime=5m
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// setDefaults applies default values to the config
func (c *Config) setDefaults() {
	if c.TableName == "" {
		c.TableName = "kv"
	}
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = 25
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 5
	}
	if c.ConnMaxLifetime == 0 {
		c.ConnMaxLifetime = time.Hour
	}
	if c.ConnMaxIdleTime == 0 {
		c.ConnMaxIdleTime = 5 * time.Minute
	}
	if c.EnableWAL {
		if !strings.Contains(c.DataSourceName, "?_journal_mode=") {
			c.DataSourceName += "?_journal_mode=WAL"
		}
	}
}

// DefaultConfig returns a Config with production-ready defaults.
func DefaultConfig(dataSourceName string) *Config {
	config := &Config{
		DataSourceName: dataSourceName,
		EnableWAL:      true,
	}
	config.setDefaults()
	return config
}

// SQLiteStore implements Store on a single SQLite table. It is the
// persistent on-device backend.
type SQLiteStore struct {
	db        *sql.DB
	mu        stdSync.RWMutex
	closed    bool
	tableName string
}

// Compile-time check
var _ Store = (*SQLiteStore)(nil)

// NewSQLite creates a new SQLiteStore from a Config.
func NewSQLite(config *Config) (*SQLiteStore, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	config.setDefaults()

	if config.DataSourceName == "" {
		return nil, fmt.Errorf("DataSourceName is required")
	}

	logger := logging.WithComponent(logging.Component("sqlite-kvstore"))
	logger.InfoContext(context.Background(), "Opening SQLite database",
		slog.String("data_source", config.DataSourceName),
		slog.Bool("wal_enabled", config.EnableWAL),
	)

	db, err := sql.Open("sqlite3", config.DataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to sqlite database: %w", err)
	}

	store := &SQLiteStore{
		db:        db,
		tableName: config.TableName,
	}

	if err := store.setupSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to setup database schema: %w", err)
	}

	logger.InfoContext(context.Background(), "SQLite key-value store initialized",
		slog.String("table_name", config.TableName),
	)
	return store, nil
}

// NewSQLiteWithPath is a convenience constructor.
func NewSQLiteWithPath(path string) (*SQLiteStore, error) {
	return NewSQLite(DefaultConfig(path))
}

// setupSchema creates the key-value table if it doesn't exist.
func (s *SQLiteStore) setupSchema() error {
	query := fmt.Sprintf(`
    CREATE TABLE IF NOT EXISTS %s (
        key        TEXT PRIMARY KEY,
        value      TEXT NOT NULL,
        updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
    );
    `, s.tableName)
	_, err := s.db.Exec(query)
	return err
}

// Set writes value under key, overwriting any existing value.
func (s *SQLiteStore) Set(ctx context.Context, key, value string) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrStoreClosed
	}
	s.mu.RUnlock()

	query := fmt.Sprintf(
		`INSERT INTO %s (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		s.tableName)
	if _, err := s.db.ExecContext(ctx, query, key, value); err != nil {
		return apperrors.WrapOpComponent(err, opSet, "kvstore/sqlite")
	}
	return nil
}

// Get returns the value for key, with found=false on absence.
func (s *SQLiteStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return "", false, ErrStoreClosed
	}
	s.mu.RUnlock()

	var value string
	query := fmt.Sprintf(`SELECT value FROM %s WHERE key = ?`, s.tableName)
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, apperrors.WrapOpComponent(err, opGet, "kvstore/sqlite")
	}
	return value, true, nil
}

// Remove deletes key. Removing an absent key is not an error.
func (s *SQLiteStore) Remove(ctx context.Context, key string) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrStoreClosed
	}
	s.mu.RUnlock()

	query := fmt.Sprintf(`DELETE FROM %s WHERE key = ?`, s.tableName)
	if _, err := s.db.ExecContext(ctx, query, key); err != nil {
		return apperrors.WrapOpComponent(err, opRemove, "kvstore/sqlite")
	}
	return nil
}

// MultiRemove deletes all given keys in a single transaction.
func (s *SQLiteStore) MultiRemove(ctx context.Context, keys []string) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrStoreClosed
	}
	s.mu.RUnlock()

	if len(keys) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.WrapOpComponent(err, opMultiRemove, "kvstore/sqlite")
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE key = ?`, s.tableName))
	if err != nil {
		return apperrors.WrapOpComponent(err, opMultiRemove, "kvstore/sqlite")
	}
	defer stmt.Close()

	for _, key := range keys {
		if _, err = stmt.ExecContext(ctx, key); err != nil {
			return apperrors.WrapOpComponent(err, opMultiRemove, "kvstore/sqlite")
		}
	}

	if err = tx.Commit(); err != nil {
		return apperrors.WrapOpComponent(err, opMultiRemove, "kvstore/sqlite")
	}

	return nil
}

// Stats returns database statistics for monitoring
func (s *SQLiteStore) Stats() sql.DBStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return sql.DBStats{}
	}

	return s.db.Stats()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	return s.db.Close()
}
