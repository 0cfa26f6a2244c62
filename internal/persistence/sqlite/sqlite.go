package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"

	"github.com/example/interview-scheduler/internal/persistence"
	"github.com/example/interview-scheduler/internal/persistence/sqlite/migration"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Storage implements every persistence repository on a SQLite database.
type Storage struct {
	*queries
	db     *sql.DB
	retry  *RetryHelper
	logger *slog.Logger
}

var (
	_ persistence.Transactor       = (*Storage)(nil)
	_ persistence.OutboxRepository = (*Storage)(nil)
)

// Open opens path with DefaultConfig.
func Open(path string) (*Storage, error) {
	return OpenWithConfig(DefaultConfig(path), nil)
}

// OpenWithConfig opens a database with explicit settings.
func OpenWithConfig(cfg Config, logger *slog.Logger) (*Storage, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := ensureDatabaseDir(cfg.Path); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", cfg.Path, err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping %s: %w", cfg.Path, err)
	}

	return &Storage{
		queries: &queries{q: db, mapper: NewErrorMapper()},
		db:      db,
		retry:   NewRetryHelper(cfg.Retry),
		logger:  logger.With("component", "sqlite"),
	}, nil
}

// Close releases the database handle.
func (s *Storage) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB exposes the underlying handle.
func (s *Storage) DB() *sql.DB {
	return s.db
}

// Migrate applies the embedded schema migrations.
func (s *Storage) Migrate(ctx context.Context) error {
	_, err := s.migrationManager().Run(ctx)
	return err
}

// MigrationStatus reports applied and pending embedded migrations.
func (s *Storage) MigrationStatus(ctx context.Context) (*migration.Status, error) {
	return s.migrationManager().Status(ctx)
}

func (s *Storage) migrationManager() *migration.Manager {
	return migration.NewManager(
		migration.NewScanner(migrationFiles, "migrations"),
		migration.NewExecutor(s.db),
		s.logger,
	)
}

// WithinTx runs fn inside one IMMEDIATE transaction. A busy database is retried
// with backoff; any error from fn rolls the whole transaction back.
func (s *Storage) WithinTx(ctx context.Context, fn func(persistence.Repositories) error) error {
	return s.retry.WithRetry(ctx, func() error {
		return runInTx(ctx, s.db, func(q querier) error {
			return fn(&queries{q: q, mapper: s.mapper})
		})
	})
}
