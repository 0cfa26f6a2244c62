package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const versionTableSQL = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version TEXT PRIMARY KEY,
		applied_at TEXT NOT NULL,
		checksum TEXT NOT NULL DEFAULT '',
		execution_time_ms INTEGER NOT NULL DEFAULT 0
	)
`

// Executor runs migrations against a database.
type Executor struct {
	db  *sql.DB
	now func() time.Time
}

// NewExecutor creates an executor for db.
func NewExecutor(db *sql.DB) *Executor {
	return &Executor{db: db, now: time.Now}
}

// InitializeVersionTable creates schema_migrations if it does not exist.
func (e *Executor) InitializeVersionTable(ctx context.Context) error {
	if _, err := e.db.ExecContext(ctx, versionTableSQL); err != nil {
		return newMigrationError("", "schema_migrations", "create version table", err)
	}
	return nil
}

// Execute runs every statement of m and records it, all in one transaction.
func (e *Executor) Execute(ctx context.Context, m Migration) (err error) {
	started := e.now()

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return newMigrationError(m.Version, m.FilePath, "begin transaction", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for i, stmt := range splitStatements(m.SQL) {
		if _, execErr := tx.ExecContext(ctx, stmt); execErr != nil {
			return newMigrationError(m.Version, m.FilePath, fmt.Sprintf("execute statement %d", i+1),
				fmt.Errorf("%w: %v", ErrMigrationFailed, execErr))
		}
	}

	elapsed := e.now().Sub(started)
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, applied_at, checksum, execution_time_ms) VALUES (?, ?, ?, ?)`,
		m.Version, e.now().UTC().Format(time.RFC3339), m.Checksum, elapsed.Milliseconds(),
	); err != nil {
		return newMigrationError(m.Version, m.FilePath, "record migration", err)
	}

	if err = tx.Commit(); err != nil {
		return newMigrationError(m.Version, m.FilePath, "commit transaction", err)
	}
	return nil
}

// Applied lists recorded migrations in version order.
func (e *Executor) Applied(ctx context.Context) ([]AppliedMigration, error) {
	rows, err := e.db.QueryContext(ctx,
		`SELECT version, applied_at, checksum, execution_time_ms FROM schema_migrations ORDER BY CAST(version AS INTEGER)`)
	if err != nil {
		return nil, newMigrationError("", "schema_migrations", "list applied", err)
	}
	defer rows.Close()

	var applied []AppliedMigration
	for rows.Next() {
		var (
			rec       AppliedMigration
			appliedAt string
			elapsedMS int64
		)
		if err := rows.Scan(&rec.Version, &appliedAt, &rec.Checksum, &elapsedMS); err != nil {
			return nil, newMigrationError("", "schema_migrations", "scan applied", err)
		}
		if rec.AppliedAt, err = time.Parse(time.RFC3339, appliedAt); err != nil {
			return nil, newMigrationError(rec.Version, "schema_migrations", "parse applied_at", err)
		}
		rec.ExecutionTime = time.Duration(elapsedMS) * time.Millisecond
		applied = append(applied, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, newMigrationError("", "schema_migrations", "iterate applied", err)
	}
	return applied, nil
}
