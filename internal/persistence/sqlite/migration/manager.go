package migration

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
)

// Manager applies pending migrations in version order.
type Manager struct {
	scanner  *Scanner
	executor *Executor
	logger   *slog.Logger
}

// NewManager wires a scanner and an executor.
func NewManager(scanner *Scanner, executor *Executor, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{scanner: scanner, executor: executor, logger: logger.With("component", "migration")}
}

// Run applies every pending migration and returns how many ran.
func (m *Manager) Run(ctx context.Context) (int, error) {
	status, err := m.Status(ctx)
	if err != nil {
		return 0, err
	}
	if len(status.Pending) == 0 {
		m.logger.DebugContext(ctx, "schema up to date", "version", status.CurrentVersion)
		return 0, nil
	}

	for i, mig := range status.Pending {
		m.logger.InfoContext(ctx, "applying migration",
			"version", mig.Version,
			"description", mig.Description,
			"step", i+1,
			"total", len(status.Pending),
		)
		if err := m.executor.Execute(ctx, mig); err != nil {
			m.logger.ErrorContext(ctx, "migration failed", "version", mig.Version, "error", err)
			return i, err
		}
	}

	m.logger.InfoContext(ctx, "migrations applied", "count", len(status.Pending))
	return len(status.Pending), nil
}

// Status compares the files with schema_migrations. Applied files must still exist
// with unchanged checksums, and file versions must be contiguous.
func (m *Manager) Status(ctx context.Context) (*Status, error) {
	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		return nil, err
	}

	available, err := m.scanner.Scan()
	if err != nil {
		return nil, err
	}
	if err := checkContiguous(available); err != nil {
		return nil, err
	}

	applied, err := m.executor.Applied(ctx)
	if err != nil {
		return nil, err
	}

	byVersion := make(map[string]Migration, len(available))
	for _, mig := range available {
		byVersion[mig.Version] = mig
	}

	status := &Status{Applied: applied}
	done := make(map[string]bool, len(applied))
	for _, rec := range applied {
		mig, ok := byVersion[rec.Version]
		if !ok {
			return nil, fmt.Errorf("%w: applied migration %s has no file", ErrVersionConflict, rec.Version)
		}
		if rec.Checksum != "" && rec.Checksum != mig.Checksum {
			return nil, newMigrationError(rec.Version, mig.FilePath, "verify checksum", ErrChecksumMismatch)
		}
		done[rec.Version] = true
		status.CurrentVersion = rec.Version
	}

	for _, mig := range available {
		if !done[mig.Version] {
			status.Pending = append(status.Pending, mig)
		}
	}
	return status, nil
}

func checkContiguous(migrations []Migration) error {
	for i := 1; i < len(migrations); i++ {
		prev, _ := strconv.Atoi(migrations[i-1].Version)
		cur, _ := strconv.Atoi(migrations[i].Version)
		if cur != prev+1 {
			return fmt.Errorf("%w: missing migration version %03d", ErrVersionConflict, prev+1)
		}
	}
	return nil
}
