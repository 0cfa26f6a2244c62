package migration

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "migrate.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestManager_Run(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openTestDB(t)
	fsys := fstest.MapFS{
		"sql/001_initial.sql": {Data: []byte("CREATE TABLE slots (id TEXT PRIMARY KEY);")},
		"sql/002_outbox.sql":  {Data: []byte("CREATE TABLE outbox (id TEXT PRIMARY KEY);\nCREATE INDEX idx_outbox ON outbox (id);")},
	}
	manager := NewManager(NewScanner(fsys, "sql"), NewExecutor(db), nil)

	applied, err := manager.Run(ctx)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if applied != 2 {
		t.Fatalf("expected 2 migrations applied, got %d", applied)
	}

	if _, err := db.ExecContext(ctx, "INSERT INTO outbox (id) VALUES ('x')"); err != nil {
		t.Fatalf("expected outbox table to exist: %v", err)
	}

	applied, err = manager.Run(ctx)
	if err != nil {
		t.Fatalf("second Run returned error: %v", err)
	}
	if applied != 0 {
		t.Fatalf("expected no migrations on second run, got %d", applied)
	}

	status, err := manager.Status(ctx)
	if err != nil {
		t.Fatalf("Status returned error: %v", err)
	}
	if status.CurrentVersion != "002" || len(status.Pending) != 0 || len(status.Applied) != 2 {
		t.Fatalf("unexpected status: %#v", status)
	}
}

func TestManager_FailedMigrationRollsBack(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openTestDB(t)
	fsys := fstest.MapFS{
		"sql/001_broken.sql": {Data: []byte("CREATE TABLE ok (id TEXT);\nCREATE TABLE broken (;")},
	}
	manager := NewManager(NewScanner(fsys, "sql"), NewExecutor(db), nil)

	if _, err := manager.Run(ctx); !errors.Is(err, ErrMigrationFailed) {
		t.Fatalf("expected ErrMigrationFailed, got %v", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sqlite_master WHERE name = 'ok'").Scan(&count); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected partial migration to roll back")
	}
}

func TestManager_DetectsChangedFiles(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openTestDB(t)
	original := fstest.MapFS{"sql/001_initial.sql": {Data: []byte("CREATE TABLE a (id TEXT);")}}
	if _, err := NewManager(NewScanner(original, "sql"), NewExecutor(db), nil).Run(ctx); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	edited := fstest.MapFS{"sql/001_initial.sql": {Data: []byte("CREATE TABLE a (id TEXT, name TEXT);")}}
	if _, err := NewManager(NewScanner(edited, "sql"), NewExecutor(db), nil).Status(ctx); !errors.Is(err, ErrChecksumMismatch) {
		t.Fatalf("expected ErrChecksumMismatch, got %v", err)
	}

	gap := fstest.MapFS{
		"sql/001_initial.sql": {Data: []byte("CREATE TABLE a (id TEXT);")},
		"sql/003_later.sql":   {Data: []byte("CREATE TABLE c (id TEXT);")},
	}
	if _, err := NewManager(NewScanner(gap, "sql"), NewExecutor(db), nil).Status(ctx); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}
}
