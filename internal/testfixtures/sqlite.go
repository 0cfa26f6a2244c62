package testfixtures

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/example/interview-scheduler/internal/persistence"
	"github.com/example/interview-scheduler/internal/persistence/sqlite"
)

// SQLiteHarness provides repository access backed by a temporary SQLite storage
// instance for integration-style persistence tests.
type SQLiteHarness struct {
	Storage        *sqlite.Storage
	Slots          persistence.SlotRepository
	Interviews     persistence.InterviewRepository
	ChangeRequests persistence.ChangeRequestRepository
	Outbox         persistence.OutboxRepository
	Transactor     persistence.Transactor

	Path string

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// SQLiteTestConfig returns throwaway database settings for a file in a fresh temp dir.
func SQLiteTestConfig(tb testing.TB) sqlite.Config {
	tb.Helper()
	return sqlite.TestConfig(filepath.Join(tb.TempDir(), "scheduler.db"))
}

// NewSQLiteHarness constructs a SQLiteHarness using a temporary file that is
// migrated automatically. Callers may optionally invoke Close, but the helper
// will also register a cleanup callback with the provided testing.TB.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	cfg := SQLiteTestConfig(tb)
	storage, err := sqlite.OpenWithConfig(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	if err := storage.Migrate(context.Background()); err != nil {
		_ = storage.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Storage:        storage,
		Slots:          storage,
		Interviews:     storage,
		ChangeRequests: storage,
		Outbox:         storage,
		Transactor:     storage,
		Path:           cfg.Path,
		cleanup: func() {
			_ = storage.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}

// SeedSlot stores a slot fixture and returns it.
func (h *SQLiteHarness) SeedSlot(tb testing.TB, opts ...SlotOption) persistence.Slot {
	tb.Helper()
	slot := NewSlotFixture(opts...).Persistence()
	if err := h.Slots.CreateSlot(context.Background(), slot); err != nil {
		tb.Fatalf("failed to seed slot: %v", err)
	}
	return slot
}

// SeedInterview stores an interview fixture in slotID and returns it.
func (h *SQLiteHarness) SeedInterview(tb testing.TB, slotID string, opts ...InterviewOption) persistence.Interview {
	tb.Helper()
	interview := NewInterviewFixture(slotID, opts...).Persistence()
	if err := h.Interviews.CreateInterview(context.Background(), interview); err != nil {
		tb.Fatalf("failed to seed interview: %v", err)
	}
	return interview
}
