// Package postgres provides PostgreSQL implementation of the store interfaces.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/narvanalabs/builder-dashboard/internal/store"
)

// PostgresStore implements the Store interface using PostgreSQL.
type PostgresStore struct {
	db         *sql.DB
	logger     *slog.Logger
	builders   *BuilderStore
	executions *ExecutionStore
	activity   *ActivityStore
}

// Config holds PostgreSQL connection configuration.
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig(dsn string) *Config {
	return &Config{
		DSN:             dsn,
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 1 * time.Minute,
	}
}

// queryable is an interface that both *sql.DB and *sql.Tx implement.
type queryable interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// NewPostgresStore connects to PostgreSQL, verifies the connection and applies the
// schema.
func NewPostgresStore(cfg *Config, logger *slog.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("connected to PostgreSQL database")
	return newStore(db, logger), nil
}

func newStore(db *sql.DB, logger *slog.Logger) *PostgresStore {
	s := &PostgresStore{db: db, logger: logger}
	newID := func() string { return uuid.NewString() }
	s.builders = &BuilderStore{db: db, logger: logger, newID: newID, now: time.Now}
	s.executions = &ExecutionStore{db: db, logger: logger, newID: newID, now: time.Now}
	s.activity = &ActivityStore{db: db, logger: logger}
	return s
}

// Builders returns the BuilderStore.
func (s *PostgresStore) Builders() store.BuilderStore {
	return s.builders
}

// Executions returns the ExecutionStore.
func (s *PostgresStore) Executions() store.ExecutionStore {
	return s.executions
}

// Activity returns the ActivityStore.
func (s *PostgresStore) Activity() store.ActivityStore {
	return s.activity
}

// Ping verifies database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	s.logger.Info("closing PostgreSQL connection")
	return s.db.Close()
}

// withTx runs fn inside a transaction, rolling back when fn fails.
func withTx(ctx context.Context, db *sql.DB, logger *slog.Logger, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("failed to rollback transaction", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
