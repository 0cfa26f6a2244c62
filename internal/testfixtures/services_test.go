package testfixtures

import (
	"context"
	"testing"
	"time"

	"github.com/example/interview-scheduler/internal/application"
)

func TestEngineFactoryNewEngine(t *testing.T) {
	factory := NewEngineFactory()
	engine := factory.NewEngine(t)

	slot, err := engine.Slots.Create(context.Background(), application.CreateSlotParams{
		Actor:      "hr",
		PanelistID: PanelistID,
		Start:      ReferenceTime(),
		End:        ReferenceTime().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if issued := factory.IDGenerator.Issued(); len(issued) != 1 || slot.ID != issued[0] {
		t.Fatalf("expected slot to take the only issued id, got %q (issued %v)", slot.ID, issued)
	}
	if slot.ID != "id-1" {
		t.Fatalf("expected generated ID id-1, got %q", slot.ID)
	}
	if !slot.CreatedAt.Equal(factory.Clock.Peek()) {
		t.Fatalf("expected timestamp %v, got %v", factory.Clock.Peek(), slot.CreatedAt)
	}
	if slot.PanelistName != "Pat Panel" {
		t.Fatalf("expected panelist name from the stub directory, got %q", slot.PanelistName)
	}
	if factory.Directory.Calls() != 1 {
		t.Fatalf("expected one directory fetch, got %d", factory.Directory.Calls())
	}
}

func TestSQLiteHarnessSeeds(t *testing.T) {
	harness := NewSQLiteHarness(t)

	slot := harness.SeedSlot(t, WithSlotPanelist(PanelistID2))
	interview := harness.SeedInterview(t, slot.ID, WithInterviewPanel(PanelistID2))

	stored, err := harness.Interviews.GetInterview(context.Background(), interview.ID)
	if err != nil {
		t.Fatalf("GetInterview returned error: %v", err)
	}
	if stored.SlotID != slot.ID || len(stored.PanelistIDs) != 1 || stored.PanelistIDs[0] != PanelistID2 {
		t.Fatalf("unexpected seeded interview: %#v", stored)
	}
}
