package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/example/interview-scheduler/internal/persistence"
	"github.com/example/interview-scheduler/internal/scheduler"
)

var errStoreNotConfigured = errors.New("application: store not configured")

// SlotService owns slots and their UNBOOKED/BOOKED transitions.
type SlotService struct {
	store       Store
	directory   Directory
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewSlotService constructs a slot service with the provided dependencies.
func NewSlotService(store Store, directory Directory, idGenerator func() string, now func() time.Time) *SlotService {
	return NewSlotServiceWithLogger(store, directory, idGenerator, now, nil)
}

// NewSlotServiceWithLogger constructs a slot service with a specified logger.
func NewSlotServiceWithLogger(store Store, directory Directory, idGenerator func() string, now func() time.Time, logger *slog.Logger) *SlotService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &SlotService{store: store, directory: directory, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *SlotService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "SlotService", operation, attrs...)
}

// Create opens a new UNBOOKED slot. Overlapping any live slot of the same panelist is a conflict.
func (s *SlotService) Create(ctx context.Context, params CreateSlotParams) (slot Slot, err error) {
	if s == nil {
		err = fmt.Errorf("SlotService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Create",
		"panelist_id", params.PanelistID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create slot", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("slot_id", slot.ID).InfoContext(ctx, "slot created")
	}()

	start, end := normalizeTime(params.Start), normalizeTime(params.End)
	vErr := &ValidationError{}
	if params.PanelistID <= 0 {
		vErr.add("panelist_id", "panelist is required")
	}
	vErr.merge(validateWindow(start, end))
	if vErr.HasErrors() {
		err = vErr
		return
	}
	if s.store == nil {
		err = errStoreNotConfigured
		return
	}

	now := s.now()
	created := Slot{
		ID:         s.idGenerator(),
		PanelistID: params.PanelistID,
		Start:      start,
		End:        end,
		Status:     SlotUnbooked,
		CreatedBy:  params.Actor,
		UpdatedBy:  params.Actor,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err = s.store.Atomically(ctx, func(st Store) error {
		if err := ensureNoSlotOverlap(ctx, st, created); err != nil {
			return err
		}
		if err := st.CreateSlot(ctx, created); err != nil {
			return mapSlotRepoError(err, created.ID)
		}
		return nil
	})
	if err != nil {
		return
	}

	slot = s.enrich(ctx, created)
	return
}

// Get returns a slot, including a soft-deleted one.
func (s *SlotService) Get(ctx context.Context, slotID string) (Slot, error) {
	if s == nil {
		return Slot{}, fmt.Errorf("SlotService is nil")
	}
	if s.store == nil {
		return Slot{}, errStoreNotConfigured
	}
	slot, err := s.store.GetSlot(ctx, slotID)
	if err != nil {
		return Slot{}, mapSlotRepoError(err, slotID)
	}
	return s.enrich(ctx, slot), nil
}

// SetStatus moves a slot between UNBOOKED and BOOKED. Setting the current status is a no-op.
func (s *SlotService) SetStatus(ctx context.Context, actor, slotID string, status SlotStatus) (err error) {
	if s == nil {
		return fmt.Errorf("SlotService is nil")
	}
	if s.store == nil {
		return errStoreNotConfigured
	}

	logger := s.loggerWith(ctx, "SetStatus",
		"slot_id", slotID,
		"status", status,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to set slot status", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "slot status set")
	}()

	return s.store.Atomically(ctx, func(st Store) error {
		return s.setStatusIn(ctx, st, actor, slotID, status)
	})
}

func (s *SlotService) setStatusIn(ctx context.Context, st Store, actor, slotID string, status SlotStatus) error {
	if status != SlotUnbooked && status != SlotBooked {
		vErr := &ValidationError{}
		vErr.add("status", fmt.Sprintf("unsupported slot status %q", status))
		return vErr
	}

	slot, err := st.GetSlot(ctx, slotID)
	if err != nil {
		return mapSlotRepoError(err, slotID)
	}
	if slot.Status == status {
		return nil
	}

	slot.Status = status
	slot.UpdatedBy = actor
	slot.UpdatedAt = s.now()
	if err := st.UpdateSlot(ctx, slot); err != nil {
		return mapSlotRepoError(err, slotID)
	}
	return nil
}

// SoftDelete hides a slot from every listing. Deleting a deleted slot is a no-op.
func (s *SlotService) SoftDelete(ctx context.Context, actor, slotID string) (err error) {
	if s == nil {
		return fmt.Errorf("SlotService is nil")
	}
	if s.store == nil {
		return errStoreNotConfigured
	}

	logger := s.loggerWith(ctx, "SoftDelete", "slot_id", slotID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete slot", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "slot deleted")
	}()

	return s.store.Atomically(ctx, func(st Store) error {
		return s.softDeleteIn(ctx, st, actor, slotID)
	})
}

func (s *SlotService) softDeleteIn(ctx context.Context, st Store, actor, slotID string) error {
	slot, err := st.GetSlot(ctx, slotID)
	if err != nil {
		return mapSlotRepoError(err, slotID)
	}
	if slot.Deleted {
		return nil
	}
	slot.Deleted = true
	slot.UpdatedBy = actor
	slot.UpdatedAt = s.now()
	if err := st.UpdateSlot(ctx, slot); err != nil {
		return mapSlotRepoError(err, slotID)
	}
	return nil
}

// UpdateWindow moves an UNBOOKED slot to a new window.
func (s *SlotService) UpdateWindow(ctx context.Context, params UpdateSlotWindowParams) (slot Slot, err error) {
	if s == nil {
		err = fmt.Errorf("SlotService is nil")
		return
	}

	logger := s.loggerWith(ctx, "UpdateWindow", "slot_id", params.SlotID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to move slot", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "slot moved")
	}()

	start, end := normalizeTime(params.Start), normalizeTime(params.End)
	if vErr := validateWindow(start, end); vErr.HasErrors() {
		err = vErr
		return
	}
	if s.store == nil {
		err = errStoreNotConfigured
		return
	}

	var updated Slot
	err = s.store.Atomically(ctx, func(st Store) error {
		existing, err := st.GetSlot(ctx, params.SlotID)
		if err != nil {
			return mapSlotRepoError(err, params.SlotID)
		}
		if existing.Deleted {
			return notFound("slot", params.SlotID)
		}
		if existing.Status == SlotBooked {
			vErr := &ValidationError{}
			vErr.add("slot_id", fmt.Sprintf("slot %s is booked and cannot be moved", params.SlotID))
			return vErr
		}

		updated = existing
		updated.Start = start
		updated.End = end
		updated.UpdatedBy = params.Actor
		updated.UpdatedAt = s.now()
		if err := ensureNoSlotOverlap(ctx, st, updated); err != nil {
			return err
		}
		if err := st.UpdateSlot(ctx, updated); err != nil {
			return mapSlotRepoError(err, params.SlotID)
		}
		return nil
	})
	if err != nil {
		return
	}

	slot = s.enrich(ctx, updated)
	return
}

// FindOverlapping returns live slots intersecting [start, end), optionally for one panelist.
func (s *SlotService) FindOverlapping(ctx context.Context, panelistID *int64, start, end time.Time) ([]Slot, error) {
	if s == nil {
		return nil, fmt.Errorf("SlotService is nil")
	}
	start, end = normalizeTime(start), normalizeTime(end)
	if vErr := validateWindow(start, end); vErr.HasErrors() {
		return nil, vErr
	}
	if s.store == nil {
		return nil, nil
	}

	query := SlotQuery{OverlapStart: &start, OverlapEnd: &end}
	if panelistID != nil {
		query.PanelistIDs = []int64{*panelistID}
	}
	return s.list(ctx, query)
}

// FindByPanelist returns the live slots of one panelist ordered by start.
func (s *SlotService) FindByPanelist(ctx context.Context, panelistID int64) ([]Slot, error) {
	if s == nil {
		return nil, fmt.Errorf("SlotService is nil")
	}
	if s.store == nil {
		return nil, nil
	}
	return s.list(ctx, SlotQuery{PanelistIDs: []int64{panelistID}})
}

// ListAvailable returns every live UNBOOKED slot.
func (s *SlotService) ListAvailable(ctx context.Context) ([]Slot, error) {
	if s == nil {
		return nil, fmt.Errorf("SlotService is nil")
	}
	if s.store == nil {
		return nil, nil
	}
	return s.list(ctx, SlotQuery{Status: SlotUnbooked})
}

// FindWithin returns live slots of the listed panelists lying inside [start, end].
func (s *SlotService) FindWithin(ctx context.Context, panelistIDs []int64, start, end time.Time) ([]Slot, error) {
	if s == nil {
		return nil, fmt.Errorf("SlotService is nil")
	}
	if s.store == nil || len(panelistIDs) == 0 {
		return nil, nil
	}
	slots, err := findWithin(ctx, s.store, panelistIDs, normalizeTime(start), normalizeTime(end))
	if err != nil {
		return nil, err
	}
	return s.enrichAll(ctx, slots), nil
}

func (s *SlotService) list(ctx context.Context, query SlotQuery) ([]Slot, error) {
	slots, err := s.store.ListSlots(ctx, query)
	if err != nil {
		return nil, mapSlotRepoError(err, "")
	}
	return s.enrichAll(ctx, slots), nil
}

func (s *SlotService) enrich(ctx context.Context, slot Slot) Slot {
	if s.directory == nil {
		return slot
	}
	slot.PanelistName = UnknownContact
	if person, ok := s.directory.Lookup(ctx, slot.PanelistID); ok && person.FullName != "" {
		slot.PanelistName = person.FullName
	}
	return slot
}

func (s *SlotService) enrichAll(ctx context.Context, slots []Slot) []Slot {
	for i := range slots {
		slots[i] = s.enrich(ctx, slots[i])
	}
	return slots
}

func ensureNoSlotOverlap(ctx context.Context, st Store, slot Slot) error {
	overlapping, err := st.ListSlots(ctx, SlotQuery{
		PanelistIDs:  []int64{slot.PanelistID},
		OverlapStart: &slot.Start,
		OverlapEnd:   &slot.End,
		ExcludeID:    slot.ID,
	})
	if err != nil {
		return mapSlotRepoError(err, slot.ID)
	}
	for _, other := range overlapping {
		if scheduler.Overlaps(slot.Start, slot.End, other.Start, other.End) {
			return &Error{
				Kind:    KindConflict,
				Entity:  "panelist",
				ID:      strconv.FormatInt(slot.PanelistID, 10),
				Message: fmt.Sprintf("panelist %d already has slot %s overlapping this window", slot.PanelistID, other.ID),
			}
		}
	}
	return nil
}

func findWithin(ctx context.Context, st SlotRepository, panelistIDs []int64, start, end time.Time) ([]Slot, error) {
	slots, err := st.ListSlots(ctx, SlotQuery{
		PanelistIDs: panelistIDs,
		WithinStart: &start,
		WithinEnd:   &end,
	})
	if err != nil {
		return nil, mapSlotRepoError(err, "")
	}
	return slots, nil
}

func validateWindow(start, end time.Time) *ValidationError {
	vErr := &ValidationError{}
	if start.IsZero() {
		vErr.add("start", "start is required")
	}
	if end.IsZero() {
		vErr.add("end", "end is required")
	}
	if !start.IsZero() && !end.IsZero() && !end.After(start) {
		vErr.add("end", "end must be after start")
	}
	return vErr
}

// normalizeTime drops sub-second precision, which the store does not keep.
func normalizeTime(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC().Truncate(time.Second)
}

func mapSlotRepoError(err error, slotID string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return notFound("slot", slotID)
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("slot", err.Error())
		return vErr
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return &Error{Kind: KindConflict, Entity: "slot", ID: slotID, Message: "slot " + slotID + " already exists", Err: err}
	}
	return err
}
