package application

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestSlotService_Create(t *testing.T) {
	t.Parallel()

	t.Run("validates the window", func(t *testing.T) {
		t.Parallel()
		svc := newServicesUnderTest().slots

		_, err := svc.Create(context.Background(), CreateSlotParams{PanelistID: 5, Start: at(11, 0), End: at(10, 0)})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["end"]; !ok {
			t.Fatalf("expected end validation error, got %v", vErr.FieldErrors)
		}
	})

	t.Run("rejects a slot overlapping the same panelist", func(t *testing.T) {
		t.Parallel()
		env := newServicesUnderTest()
		ctx := context.Background()

		if _, err := env.slots.Create(ctx, CreateSlotParams{PanelistID: 5, Start: at(10, 0), End: at(11, 0)}); err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		_, err := env.slots.Create(ctx, CreateSlotParams{PanelistID: 5, Start: at(10, 30), End: at(11, 30)})
		if !errors.Is(err, ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}
		if !strings.Contains(err.Error(), "panelist 5") {
			t.Fatalf("expected message to name the panelist, got %q", err.Error())
		}
	})

	t.Run("accepts touching windows and other panelists", func(t *testing.T) {
		t.Parallel()
		env := newServicesUnderTest()
		ctx := context.Background()

		first, err := env.slots.Create(ctx, CreateSlotParams{Actor: "hr", PanelistID: 5, Start: at(10, 0), End: at(11, 0)})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if first.Status != SlotUnbooked || first.PanelistName != "Pat Panel" || first.CreatedBy != "hr" {
			t.Fatalf("unexpected slot: %#v", first)
		}
		if _, err := env.slots.Create(ctx, CreateSlotParams{PanelistID: 5, Start: at(11, 0), End: at(12, 0)}); err != nil {
			t.Fatalf("expected touching slot to be accepted, got %v", err)
		}
		if _, err := env.slots.Create(ctx, CreateSlotParams{PanelistID: 6, Start: at(10, 0), End: at(11, 0)}); err != nil {
			t.Fatalf("expected other panelist slot to be accepted, got %v", err)
		}

		slots, err := env.slots.FindByPanelist(ctx, 5)
		if err != nil {
			t.Fatalf("FindByPanelist failed: %v", err)
		}
		if len(slots) != 2 {
			t.Fatalf("expected 2 slots for panelist 5, got %d", len(slots))
		}
	})

	t.Run("ignores soft-deleted slots when checking overlap", func(t *testing.T) {
		t.Parallel()
		env := newServicesUnderTest()
		ctx := context.Background()

		slot, err := env.slots.Create(ctx, CreateSlotParams{PanelistID: 5, Start: at(10, 0), End: at(11, 0)})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if err := env.slots.SoftDelete(ctx, "hr", slot.ID); err != nil {
			t.Fatalf("SoftDelete failed: %v", err)
		}
		if _, err := env.slots.Create(ctx, CreateSlotParams{PanelistID: 5, Start: at(10, 0), End: at(11, 0)}); err != nil {
			t.Fatalf("expected slot to be accepted after delete, got %v", err)
		}
	})
}

func TestSlotService_SetStatus(t *testing.T) {
	t.Parallel()

	env := newServicesUnderTest()
	ctx := context.Background()
	slot, err := env.slots.Create(ctx, CreateSlotParams{PanelistID: 5, Start: at(10, 0), End: at(11, 0)})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := env.slots.SetStatus(ctx, "hr", slot.ID, SlotBooked); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}
	if got := env.store.slot(slot.ID).Status; got != SlotBooked {
		t.Fatalf("expected BOOKED, got %s", got)
	}

	env.store.updateSlotErr[slot.ID] = errors.New("must not be written")
	if err := env.slots.SetStatus(ctx, "hr", slot.ID, SlotBooked); err != nil {
		t.Fatalf("expected setting the current status to be a no-op, got %v", err)
	}
	delete(env.store.updateSlotErr, slot.ID)

	if err := env.slots.SetStatus(ctx, "hr", slot.ID, SlotStatus("HELD")); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown status, got %v", err)
	}
	if err := env.slots.SetStatus(ctx, "hr", "missing", SlotUnbooked); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSlotService_SoftDelete(t *testing.T) {
	t.Parallel()

	env := newServicesUnderTest()
	ctx := context.Background()
	slot, err := env.slots.Create(ctx, CreateSlotParams{PanelistID: 5, Start: at(10, 0), End: at(11, 0)})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := env.slots.SoftDelete(ctx, "hr", slot.ID); err != nil {
		t.Fatalf("SoftDelete failed: %v", err)
	}
	if err := env.slots.SoftDelete(ctx, "hr", slot.ID); err != nil {
		t.Fatalf("expected repeated delete to be a no-op, got %v", err)
	}

	fetched, err := env.slots.Get(ctx, slot.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !fetched.Deleted {
		t.Fatalf("expected slot to be marked deleted")
	}

	available, err := env.slots.ListAvailable(ctx)
	if err != nil {
		t.Fatalf("ListAvailable failed: %v", err)
	}
	if len(available) != 0 {
		t.Fatalf("expected deleted slot to be hidden, got %d", len(available))
	}
}

func TestSlotService_UpdateWindow(t *testing.T) {
	t.Parallel()

	env := newServicesUnderTest()
	ctx := context.Background()
	first, err := env.slots.Create(ctx, CreateSlotParams{PanelistID: 5, Start: at(10, 0), End: at(11, 0)})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	second, err := env.slots.Create(ctx, CreateSlotParams{PanelistID: 5, Start: at(12, 0), End: at(13, 0)})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	moved, err := env.slots.UpdateWindow(ctx, UpdateSlotWindowParams{SlotID: first.ID, Start: at(10, 30), End: at(11, 30)})
	if err != nil {
		t.Fatalf("expected overlap with itself to be ignored, got %v", err)
	}
	if !moved.Start.Equal(at(10, 30)) {
		t.Fatalf("expected slot to move, got %v", moved.Start)
	}

	if _, err := env.slots.UpdateWindow(ctx, UpdateSlotWindowParams{SlotID: first.ID, Start: at(11, 30), End: at(12, 30)}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict against the second slot, got %v", err)
	}

	if err := env.slots.SetStatus(ctx, "hr", second.ID, SlotBooked); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}
	if _, err := env.slots.UpdateWindow(ctx, UpdateSlotWindowParams{SlotID: second.ID, Start: at(14, 0), End: at(15, 0)}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for a booked slot, got %v", err)
	}
}

func TestSlotService_Queries(t *testing.T) {
	t.Parallel()

	env := newServicesUnderTest()
	ctx := context.Background()
	for _, params := range []CreateSlotParams{
		{PanelistID: 5, Start: at(9, 0), End: at(10, 0)},
		{PanelistID: 5, Start: at(10, 0), End: at(11, 0)},
		{PanelistID: 6, Start: at(10, 0), End: at(12, 0)},
	} {
		if _, err := env.slots.Create(ctx, params); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	within, err := env.slots.FindWithin(ctx, []int64{5, 6}, at(10, 0), at(11, 0))
	if err != nil {
		t.Fatalf("FindWithin failed: %v", err)
	}
	if len(within) != 1 || within[0].PanelistID != 5 {
		t.Fatalf("expected only panelist 5's 10:00 slot inside the window, got %#v", within)
	}

	panelist := int64(6)
	overlapping, err := env.slots.FindOverlapping(ctx, &panelist, at(11, 0), at(11, 30))
	if err != nil {
		t.Fatalf("FindOverlapping failed: %v", err)
	}
	if len(overlapping) != 1 || overlapping[0].PanelistName != "Robin Panel" {
		t.Fatalf("expected panelist 6's slot with its name, got %#v", overlapping)
	}

	all, err := env.slots.FindOverlapping(ctx, nil, at(9, 30), at(10, 30))
	if err != nil {
		t.Fatalf("FindOverlapping failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 overlapping slots, got %d", len(all))
	}

	if _, err := env.slots.FindOverlapping(ctx, nil, at(10, 0), at(10, 0)); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for an empty window, got %v", err)
	}
}
