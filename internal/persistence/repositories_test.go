package persistence_test

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/example/interview-scheduler/internal/persistence"
	"github.com/example/interview-scheduler/internal/testfixtures"
)

func TestSlotRepository(t *testing.T) {
	t.Parallel()

	t.Run("creates, reads, updates, and soft-deletes slots", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		harness := testfixtures.NewSQLiteHarness(t)
		defer harness.Close()

		slot := harness.SeedSlot(t, testfixtures.WithSlotID("slot-1"))

		fetched, err := harness.Slots.GetSlot(ctx, slot.ID)
		if err != nil {
			t.Fatalf("GetSlot failed: %v", err)
		}
		if fetched.PanelistID != slot.PanelistID || fetched.Status != "UNBOOKED" || !fetched.Start.Equal(slot.Start) {
			t.Fatalf("unexpected slot data: %#v", fetched)
		}

		slot.Status = "BOOKED"
		slot.UpdatedAt = slot.UpdatedAt.Add(time.Hour)
		if err := harness.Slots.UpdateSlot(ctx, slot); err != nil {
			t.Fatalf("UpdateSlot failed: %v", err)
		}

		slot.Deleted = true
		if err := harness.Slots.UpdateSlot(ctx, slot); err != nil {
			t.Fatalf("UpdateSlot failed: %v", err)
		}

		live, err := harness.Slots.ListSlots(ctx, persistence.SlotFilter{})
		if err != nil {
			t.Fatalf("ListSlots failed: %v", err)
		}
		if len(live) != 0 {
			t.Fatalf("expected soft-deleted slot to be hidden, got %d", len(live))
		}

		all, err := harness.Slots.ListSlots(ctx, persistence.SlotFilter{IncludeDeleted: true})
		if err != nil {
			t.Fatalf("ListSlots failed: %v", err)
		}
		if len(all) != 1 || !all[0].Deleted || all[0].Status != "BOOKED" {
			t.Fatalf("unexpected slots with deleted included: %#v", all)
		}
	})

	t.Run("rejects duplicates and reports missing slots", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		harness := testfixtures.NewSQLiteHarness(t)

		slot := harness.SeedSlot(t)
		if err := harness.Slots.CreateSlot(ctx, slot); !errors.Is(err, persistence.ErrDuplicate) {
			t.Fatalf("expected ErrDuplicate, got %v", err)
		}
		if _, err := harness.Slots.GetSlot(ctx, "missing"); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		missing := testfixtures.NewSlotFixture(testfixtures.WithSlotID("missing")).Persistence()
		if err := harness.Slots.UpdateSlot(ctx, missing); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound on update, got %v", err)
		}
	})

	t.Run("filters by overlap and containment", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		harness := testfixtures.NewSQLiteHarness(t)
		base := testfixtures.ReferenceTime()

		early := harness.SeedSlot(t, testfixtures.WithSlotWindow(base, base.Add(time.Hour)))
		late := harness.SeedSlot(t, testfixtures.WithSlotWindow(base.Add(time.Hour), base.Add(2*time.Hour)))
		harness.SeedSlot(t, testfixtures.WithSlotPanelist(testfixtures.PanelistID2), testfixtures.WithSlotWindow(base, base.Add(3*time.Hour)))

		from, to := base.Add(30*time.Minute), base.Add(time.Hour)
		overlapping, err := harness.Slots.ListSlots(ctx, persistence.SlotFilter{
			PanelistIDs:  []int64{testfixtures.PanelistID},
			OverlapStart: &from,
			OverlapEnd:   &to,
		})
		if err != nil {
			t.Fatalf("ListSlots failed: %v", err)
		}
		if len(overlapping) != 1 || overlapping[0].ID != early.ID {
			t.Fatalf("expected touching slot to be excluded, got %#v", overlapping)
		}

		withinStart, withinEnd := base, base.Add(2*time.Hour)
		within, err := harness.Slots.ListSlots(ctx, persistence.SlotFilter{
			WithinStart: &withinStart,
			WithinEnd:   &withinEnd,
			ExcludeID:   early.ID,
		})
		if err != nil {
			t.Fatalf("ListSlots failed: %v", err)
		}
		if len(within) != 1 || within[0].ID != late.ID {
			t.Fatalf("expected only the late slot inside the window, got %#v", within)
		}
	})
}

func TestInterviewRepository(t *testing.T) {
	t.Parallel()

	t.Run("keeps panel order and exact membership", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		harness := testfixtures.NewSQLiteHarness(t)

		slot := harness.SeedSlot(t)
		harness.SeedInterview(t, slot.ID, testfixtures.WithInterviewPanel(11, 1))
		other := harness.SeedSlot(t, testfixtures.WithSlotPanelist(111))
		harness.SeedInterview(t, other.ID,
			testfixtures.WithInterviewCandidate(testfixtures.CandidateID2),
			testfixtures.WithInterviewPanel(111),
		)

		for _, tc := range []struct {
			panelist int64
			want     int
		}{
			{panelist: 1, want: 1},
			{panelist: 11, want: 1},
			{panelist: 111, want: 1},
			{panelist: 1111, want: 0},
		} {
			interviews, err := harness.Interviews.ListInterviews(ctx, persistence.InterviewFilter{PanelistIDs: []int64{tc.panelist}})
			if err != nil {
				t.Fatalf("ListInterviews failed: %v", err)
			}
			if len(interviews) != tc.want {
				t.Fatalf("panelist %d: expected %d interviews, got %d", tc.panelist, tc.want, len(interviews))
			}
		}

		candidate := testfixtures.CandidateID
		interviews, err := harness.Interviews.ListInterviews(ctx, persistence.InterviewFilter{CandidateID: &candidate})
		if err != nil {
			t.Fatalf("ListInterviews failed: %v", err)
		}
		if len(interviews) != 1 || !slices.Equal(interviews[0].PanelistIDs, []int64{11, 1}) {
			t.Fatalf("expected panel order to be preserved, got %#v", interviews)
		}
	})

	t.Run("updates outcome and hides deleted interviews", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		harness := testfixtures.NewSQLiteHarness(t)

		slot := harness.SeedSlot(t)
		interview := harness.SeedInterview(t, slot.ID)

		rating := 4
		feedback := "clear communicator"
		interview.Status = "COMPLETED"
		interview.Result = "SELECTED"
		interview.Rating = &rating
		interview.Feedback = &feedback
		interview.PanelistIDs = []int64{testfixtures.PanelistID, testfixtures.PanelistID2}
		if err := harness.Interviews.UpdateInterview(ctx, interview); err != nil {
			t.Fatalf("UpdateInterview failed: %v", err)
		}

		fetched, err := harness.Interviews.GetInterview(ctx, interview.ID)
		if err != nil {
			t.Fatalf("GetInterview failed: %v", err)
		}
		if fetched.Rating == nil || *fetched.Rating != 4 || fetched.Feedback == nil || *fetched.Feedback != feedback {
			t.Fatalf("unexpected outcome: %#v", fetched)
		}
		if len(fetched.PanelistIDs) != 2 {
			t.Fatalf("expected panel to be replaced, got %v", fetched.PanelistIDs)
		}

		interview.Deleted = true
		if err := harness.Interviews.UpdateInterview(ctx, interview); err != nil {
			t.Fatalf("UpdateInterview failed: %v", err)
		}
		live, err := harness.Interviews.ListInterviews(ctx, persistence.InterviewFilter{})
		if err != nil {
			t.Fatalf("ListInterviews failed: %v", err)
		}
		if len(live) != 0 {
			t.Fatalf("expected deleted interview to be hidden, got %d", len(live))
		}
		if _, err := harness.Interviews.GetInterview(ctx, interview.ID); err != nil {
			t.Fatalf("expected GetInterview to return deleted rows, got %v", err)
		}
	})

	t.Run("requires an existing slot", func(t *testing.T) {
		t.Parallel()

		harness := testfixtures.NewSQLiteHarness(t)
		interview := testfixtures.NewInterviewFixture("no-such-slot").Persistence()
		if err := harness.Interviews.CreateInterview(context.Background(), interview); !errors.Is(err, persistence.ErrForeignKeyViolation) {
			t.Fatalf("expected ErrForeignKeyViolation, got %v", err)
		}
	})
}

func TestChangeRequestRepository(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	harness := testfixtures.NewSQLiteHarness(t)

	slot := harness.SeedSlot(t)
	interview := harness.SeedInterview(t, slot.ID)

	first := testfixtures.NewChangeRequestFixture(interview.ID).Persistence()
	second := testfixtures.NewChangeRequestFixture(interview.ID,
		testfixtures.WithChangeRequestPanel(testfixtures.PanelistID2),
		testfixtures.WithChangeRequestStatus("REJECTED"),
	).Persistence()
	for _, request := range []persistence.ChangeRequest{first, second} {
		if err := harness.ChangeRequests.CreateChangeRequest(ctx, request); err != nil {
			t.Fatalf("CreateChangeRequest failed: %v", err)
		}
	}

	pending, err := harness.ChangeRequests.ListChangeRequests(ctx, persistence.ChangeRequestFilter{Status: "PENDING"})
	if err != nil {
		t.Fatalf("ListChangeRequests failed: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != first.ID {
		t.Fatalf("expected only the pending request, got %#v", pending)
	}

	first.Status = "APPROVED"
	first.UpdatedBy = "harper"
	if err := harness.ChangeRequests.UpdateChangeRequest(ctx, first); err != nil {
		t.Fatalf("UpdateChangeRequest failed: %v", err)
	}
	fetched, err := harness.ChangeRequests.GetChangeRequest(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetChangeRequest failed: %v", err)
	}
	if fetched.Status != "APPROVED" || fetched.UpdatedBy != "harper" {
		t.Fatalf("unexpected request after update: %#v", fetched)
	}

	panel := testfixtures.PanelistID2
	byPanel, err := harness.ChangeRequests.ListChangeRequests(ctx, persistence.ChangeRequestFilter{PanelID: &panel})
	if err != nil {
		t.Fatalf("ListChangeRequests failed: %v", err)
	}
	if len(byPanel) != 1 || byPanel[0].ID != second.ID {
		t.Fatalf("expected panel filter to match the second request, got %#v", byPanel)
	}
}

func TestTransactor(t *testing.T) {
	t.Parallel()

	t.Run("rolls back every write when fn fails", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		harness := testfixtures.NewSQLiteHarness(t)
		slot := harness.SeedSlot(t)
		boom := errors.New("abort")

		err := harness.Transactor.WithinTx(ctx, func(repos persistence.Repositories) error {
			slot.Status = "BOOKED"
			if err := repos.UpdateSlot(ctx, slot); err != nil {
				return err
			}
			interview := testfixtures.NewInterviewFixture(slot.ID).Persistence()
			if err := repos.CreateInterview(ctx, interview); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("expected abort error, got %v", err)
		}

		fetched, err := harness.Slots.GetSlot(ctx, slot.ID)
		if err != nil {
			t.Fatalf("GetSlot failed: %v", err)
		}
		if fetched.Status != "UNBOOKED" {
			t.Fatalf("expected slot update to be rolled back, got %s", fetched.Status)
		}
		interviews, err := harness.Interviews.ListInterviews(ctx, persistence.InterviewFilter{IncludeDeleted: true})
		if err != nil {
			t.Fatalf("ListInterviews failed: %v", err)
		}
		if len(interviews) != 0 {
			t.Fatalf("expected interview insert to be rolled back, got %d", len(interviews))
		}
	})

	t.Run("commits when fn succeeds", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		harness := testfixtures.NewSQLiteHarness(t)
		slot := testfixtures.NewSlotFixture().Persistence()

		err := harness.Transactor.WithinTx(ctx, func(repos persistence.Repositories) error {
			return repos.CreateSlot(ctx, slot)
		})
		if err != nil {
			t.Fatalf("WithinTx failed: %v", err)
		}
		if _, err := harness.Slots.GetSlot(ctx, slot.ID); err != nil {
			t.Fatalf("expected committed slot, got %v", err)
		}
	})
}

func TestOutboxRepository(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	harness := testfixtures.NewSQLiteHarness(t)
	base := testfixtures.ReferenceTime()

	for i, id := range []string{"evt-1", "evt-2"} {
		msg := persistence.OutboxMessage{
			ID:        id,
			EventType: "INTERVIEWCREATED",
			Payload:   []byte(`{"eventType":"INTERVIEWCREATED"}`),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := harness.Outbox.EnqueueOutbox(ctx, msg); err != nil {
			t.Fatalf("EnqueueOutbox failed: %v", err)
		}
	}

	if err := harness.Outbox.RecordOutboxFailure(ctx, "evt-1", "status 503"); err != nil {
		t.Fatalf("RecordOutboxFailure failed: %v", err)
	}
	if err := harness.Outbox.MarkOutboxDelivered(ctx, "evt-2", base.Add(time.Minute)); err != nil {
		t.Fatalf("MarkOutboxDelivered failed: %v", err)
	}

	pending, err := harness.Outbox.ListPendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("ListPendingOutbox failed: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != "evt-1" || pending[0].Attempts != 1 {
		t.Fatalf("unexpected pending messages: %#v", pending)
	}
	if pending[0].LastError == nil || *pending[0].LastError != "status 503" {
		t.Fatalf("expected last error to be recorded, got %v", pending[0].LastError)
	}
	if err := harness.Outbox.MarkOutboxDelivered(ctx, "missing", base); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
