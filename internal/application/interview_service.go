package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/example/interview-scheduler/internal/persistence"
	"github.com/example/interview-scheduler/internal/scheduler"
)

// UnknownContact stands in for a name or email the directory cannot resolve.
const UnknownContact = "unknown"

// InterviewService books, completes, moves and cancels interviews.
type InterviewService struct {
	store       Store
	slots       *SlotService
	directory   Directory
	publisher   NotificationPublisher
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewInterviewService wires dependencies for interview operations.
func NewInterviewService(store Store, slots *SlotService, directory Directory, publisher NotificationPublisher, idGenerator func() string, now func() time.Time) *InterviewService {
	return NewInterviewServiceWithLogger(store, slots, directory, publisher, idGenerator, now, nil)
}

// NewInterviewServiceWithLogger wires dependencies with a specified logger.
func NewInterviewServiceWithLogger(store Store, slots *SlotService, directory Directory, publisher NotificationPublisher, idGenerator func() string, now func() time.Time, logger *slog.Logger) *InterviewService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if slots == nil {
		slots = NewSlotServiceWithLogger(store, directory, idGenerator, now, logger)
	}
	return &InterviewService{
		store:       store,
		slots:       slots,
		directory:   directory,
		publisher:   publisher,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *InterviewService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "InterviewService", operation, attrs...)
}

// CreateInterview validates availability and books the interview in one unit of work,
// then books the covering slots and publishes INTERVIEWCREATED. When publishing fails
// the committed interview is returned together with a downstream_failure error.
func (s *InterviewService) CreateInterview(ctx context.Context, params CreateInterviewParams) (interview Interview, err error) {
	if s == nil {
		err = fmt.Errorf("InterviewService is nil")
		return
	}

	input := normalizeInterviewInput(params.Input)
	logger := s.loggerWith(ctx, "CreateInterview",
		"candidate_id", input.CandidateID,
		"slot_id", input.SlotID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create interview", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("interview_id", interview.ID).InfoContext(ctx, "interview created")
	}()

	if vErr := validateInterviewInput(input); vErr.HasErrors() {
		err = vErr
		return
	}
	if s.store == nil {
		err = errStoreNotConfigured
		return
	}

	now := s.now()
	created := Interview{
		ID:          s.idGenerator(),
		CandidateID: input.CandidateID,
		HRID:        input.HRID,
		SlotID:      input.SlotID,
		PanelistIDs: input.PanelistIDs,
		Start:       input.Start,
		End:         input.End,
		Type:        strings.TrimSpace(input.Type),
		Mode:        input.Mode,
		Status:      InterviewConfirmed,
		Result:      ResultPending,
		CreatedBy:   params.Actor,
		UpdatedBy:   params.Actor,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.store.Atomically(ctx, func(st Store) error {
		if err := requireLiveSlot(ctx, st, created.SlotID); err != nil {
			return err
		}
		if err := checkAvailability(ctx, st, scheduler.Proposal{
			CandidateID: created.CandidateID,
			PanelistIDs: created.PanelistIDs,
			Start:       created.Start,
			End:         created.End,
		}); err != nil {
			return err
		}
		if err := st.CreateInterview(ctx, created); err != nil {
			return mapInterviewRepoError(err, created.ID)
		}
		return nil
	})
	if err != nil {
		return
	}

	s.bookCoveringSlots(ctx, logger, created, params.Actor)

	interview = s.enrich(ctx, created)
	err = s.publish(ctx, EventInterviewCreated, created, params.Actor)
	return
}

// UpdateInterview records feedback and rating. A rating above 3 selects the candidate;
// anything else rejects. The interview becomes COMPLETED and INTERVIEWUPDATED is published.
func (s *InterviewService) UpdateInterview(ctx context.Context, params UpdateInterviewParams) (interview Interview, err error) {
	if s == nil {
		err = fmt.Errorf("InterviewService is nil")
		return
	}

	logger := s.loggerWith(ctx, "UpdateInterview",
		"interview_id", params.InterviewID,
		"rating", params.Rating,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update interview", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result", interview.Result).InfoContext(ctx, "interview updated")
	}()

	if params.Rating < 1 || params.Rating > 5 {
		vErr := &ValidationError{}
		vErr.add("rating", "rating must be between 1 and 5")
		err = vErr
		return
	}
	if s.store == nil {
		err = errStoreNotConfigured
		return
	}

	var updated Interview
	err = s.store.Atomically(ctx, func(st Store) error {
		existing, err := getLiveInterview(ctx, st, params.InterviewID)
		if err != nil {
			return err
		}

		rating := params.Rating
		feedback := strings.TrimSpace(params.Feedback)
		updated = existing
		updated.Rating = &rating
		updated.Feedback = &feedback
		updated.Result = resultForRating(rating)
		updated.Status = InterviewCompleted
		updated.UpdatedBy = params.Actor
		updated.UpdatedAt = s.now()
		if err := st.UpdateInterview(ctx, updated); err != nil {
			return mapInterviewRepoError(err, params.InterviewID)
		}
		return nil
	})
	if err != nil {
		return
	}

	interview = s.enrich(ctx, updated)
	err = s.publish(ctx, EventInterviewUpdated, updated, params.Actor)
	return
}

func resultForRating(rating int) InterviewResult {
	if rating > 3 {
		return ResultSelected
	}
	return ResultRejected
}

// DeleteInterview soft-deletes an interview and unbooks its slot in one unit of work.
func (s *InterviewService) DeleteInterview(ctx context.Context, actor, interviewID string) (err error) {
	if s == nil {
		return fmt.Errorf("InterviewService is nil")
	}
	if s.store == nil {
		return errStoreNotConfigured
	}

	logger := s.loggerWith(ctx, "DeleteInterview", "interview_id", interviewID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete interview", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "interview deleted")
	}()

	return s.store.Atomically(ctx, func(st Store) error {
		return s.deleteIn(ctx, st, actor, interviewID)
	})
}

func (s *InterviewService) deleteIn(ctx context.Context, st Store, actor, interviewID string) error {
	interview, err := getLiveInterview(ctx, st, interviewID)
	if err != nil {
		return err
	}

	interview.Deleted = true
	interview.UpdatedBy = actor
	interview.UpdatedAt = s.now()
	if err := st.UpdateInterview(ctx, interview); err != nil {
		return mapInterviewRepoError(err, interviewID)
	}
	return s.slots.setStatusIn(ctx, st, actor, interview.SlotID, SlotUnbooked)
}

// RescheduleInterview moves an interview to a new slot, panel and window. The old slot
// is unbooked in its own unit of work before availability is re-checked; when the
// re-check fails the old slot stays UNBOOKED and the interview keeps its old window.
func (s *InterviewService) RescheduleInterview(ctx context.Context, params RescheduleInterviewParams) (interview Interview, err error) {
	if s == nil {
		err = fmt.Errorf("InterviewService is nil")
		return
	}

	logger := s.loggerWith(ctx, "RescheduleInterview",
		"interview_id", params.InterviewID,
		"slot_id", params.SlotID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to reschedule interview", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "interview rescheduled")
	}()

	if s.store == nil {
		err = errStoreNotConfigured
		return
	}

	var existing Interview
	existing, err = getLiveInterview(ctx, s.store, params.InterviewID)
	if err != nil {
		return
	}
	if existing.Status == InterviewCompleted {
		vErr := &ValidationError{}
		vErr.add("interview_id", fmt.Sprintf("interview %s is completed and cannot be rescheduled", params.InterviewID))
		err = vErr
		return
	}

	input := normalizeInterviewInput(InterviewInput{
		CandidateID: existing.CandidateID,
		HRID:        existing.HRID,
		SlotID:      params.SlotID,
		PanelistIDs: params.PanelistIDs,
		Start:       params.Start,
		End:         params.End,
	})
	if vErr := validateInterviewInput(input); vErr.HasErrors() {
		err = vErr
		return
	}

	err = s.store.Atomically(ctx, func(st Store) error {
		return s.slots.setStatusIn(ctx, st, params.Actor, existing.SlotID, SlotUnbooked)
	})
	if err != nil {
		return
	}

	var moved Interview
	err = s.store.Atomically(ctx, func(st Store) error {
		current, err := getLiveInterview(ctx, st, params.InterviewID)
		if err != nil {
			return err
		}
		if err := requireLiveSlot(ctx, st, input.SlotID); err != nil {
			return err
		}
		if err := checkAvailability(ctx, st, scheduler.Proposal{
			CandidateID:        current.CandidateID,
			PanelistIDs:        input.PanelistIDs,
			Start:              input.Start,
			End:                input.End,
			ExcludeInterviewID: current.ID,
		}); err != nil {
			return err
		}

		moved = current
		moved.SlotID = input.SlotID
		moved.PanelistIDs = input.PanelistIDs
		moved.Start = input.Start
		moved.End = input.End
		moved.UpdatedBy = params.Actor
		moved.UpdatedAt = s.now()
		if err := st.UpdateInterview(ctx, moved); err != nil {
			return mapInterviewRepoError(err, current.ID)
		}
		return nil
	})
	if err != nil {
		logger.WarnContext(ctx, "previous slot left unbooked after failed reschedule",
			"inconsistency", true,
			"previous_slot_id", existing.SlotID,
		)
		return
	}

	s.bookCoveringSlots(ctx, logger, moved, params.Actor)

	interview = s.enrich(ctx, moved)
	err = s.publish(ctx, EventInterviewRescheduled, moved, params.Actor)
	return
}

// GetByID returns a live interview.
func (s *InterviewService) GetByID(ctx context.Context, interviewID string) (Interview, error) {
	if s == nil {
		return Interview{}, fmt.Errorf("InterviewService is nil")
	}
	if s.store == nil {
		return Interview{}, errStoreNotConfigured
	}
	interview, err := getLiveInterview(ctx, s.store, interviewID)
	if err != nil {
		return Interview{}, err
	}
	return s.enrich(ctx, interview), nil
}

// ListByPanel returns live interviews the panelist takes part in.
func (s *InterviewService) ListByPanel(ctx context.Context, panelistID int64) ([]Interview, error) {
	return s.list(ctx, InterviewQuery{PanelistIDs: []int64{panelistID}})
}

// ListByCandidate returns live interviews of one candidate.
func (s *InterviewService) ListByCandidate(ctx context.Context, candidateID int64) ([]Interview, error) {
	return s.list(ctx, InterviewQuery{CandidateID: &candidateID})
}

// ListAll returns every live interview ordered by start.
func (s *InterviewService) ListAll(ctx context.Context) ([]Interview, error) {
	return s.list(ctx, InterviewQuery{})
}

// UpcomingForPanel returns CONFIRMED interviews of a panelist starting within horizon of
// the current time. A non-positive horizon means DefaultUpcomingHorizon.
func (s *InterviewService) UpcomingForPanel(ctx context.Context, panelistID int64, horizon time.Duration) ([]Interview, error) {
	if s == nil {
		return nil, fmt.Errorf("InterviewService is nil")
	}
	if horizon <= 0 {
		horizon = DefaultUpcomingHorizon
	}
	from := normalizeTime(s.now())
	before := from.Add(horizon)
	return s.list(ctx, InterviewQuery{
		PanelistIDs:  []int64{panelistID},
		Status:       InterviewConfirmed,
		StartsFrom:   &from,
		StartsBefore: &before,
	})
}

func (s *InterviewService) list(ctx context.Context, query InterviewQuery) ([]Interview, error) {
	if s == nil {
		return nil, fmt.Errorf("InterviewService is nil")
	}
	if s.store == nil {
		return nil, nil
	}
	interviews, err := s.store.ListInterviews(ctx, query)
	if err != nil {
		return nil, mapInterviewRepoError(err, "")
	}
	for i := range interviews {
		interviews[i] = s.enrich(ctx, interviews[i])
	}
	return interviews, nil
}

// bookCoveringSlots marks the referenced slot and every live slot of the panel lying
// inside the interview window as BOOKED. Failures are logged, never returned: the
// interview row is what makes participants busy.
func (s *InterviewService) bookCoveringSlots(ctx context.Context, logger *slog.Logger, interview Interview, actor string) {
	covering, err := findWithin(ctx, s.store, interview.PanelistIDs, interview.Start, interview.End)
	if err != nil {
		logger.WarnContext(ctx, "failed to resolve covering slots",
			"inconsistency", true,
			"interview_id", interview.ID,
			"error", err,
		)
	}

	slotIDs := []string{interview.SlotID}
	for _, slot := range covering {
		if slot.ID != interview.SlotID {
			slotIDs = append(slotIDs, slot.ID)
		}
	}

	for _, slotID := range slotIDs {
		err := s.store.Atomically(ctx, func(st Store) error {
			return s.slots.setStatusIn(ctx, st, actor, slotID, SlotBooked)
		})
		if err != nil {
			logger.WarnContext(ctx, "failed to book slot for committed interview",
				"inconsistency", true,
				"interview_id", interview.ID,
				"booked_slot_id", slotID,
				"error", err,
				"error_kind", ErrorKind(err),
			)
		}
	}
}

func (s *InterviewService) publish(ctx context.Context, event NotificationEvent, interview Interview, actor string) error {
	if s.publisher == nil {
		return nil
	}

	notification := Notification{
		Event:          event,
		InterviewID:    interview.ID,
		CandidateEmail: s.emailOf(ctx, interview.CandidateID),
		PanelEmail:     s.panelEmail(ctx, interview.PanelistIDs),
		HREmail:        s.emailOf(ctx, interview.HRID),
		StartTime:      interview.Start,
		CreatedBy:      actor,
	}
	if err := s.publisher.Publish(ctx, notification); err != nil {
		return downstreamFailure("interview", interview.ID, err)
	}
	return nil
}

func (s *InterviewService) emailOf(ctx context.Context, id int64) string {
	if s.directory == nil {
		return UnknownContact
	}
	person, ok := s.directory.Lookup(ctx, id)
	if !ok || strings.TrimSpace(person.Email) == "" {
		return UnknownContact
	}
	return person.Email
}

func (s *InterviewService) panelEmail(ctx context.Context, panelistIDs []int64) string {
	emails := make([]string, 0, len(panelistIDs))
	for _, id := range panelistIDs {
		if email := s.emailOf(ctx, id); email != UnknownContact {
			emails = append(emails, email)
		}
	}
	if len(emails) == 0 {
		return UnknownContact
	}
	return strings.Join(emails, ",")
}

func (s *InterviewService) enrich(ctx context.Context, interview Interview) Interview {
	if s.directory == nil {
		return interview
	}
	interview.CandidateName = s.nameOf(ctx, interview.CandidateID)
	interview.HRName = s.nameOf(ctx, interview.HRID)
	interview.PanelistNames = make([]string, len(interview.PanelistIDs))
	for i, id := range interview.PanelistIDs {
		interview.PanelistNames[i] = s.nameOf(ctx, id)
	}
	return interview
}

func (s *InterviewService) nameOf(ctx context.Context, id int64) string {
	person, ok := s.directory.Lookup(ctx, id)
	if !ok || strings.TrimSpace(person.FullName) == "" {
		return UnknownContact
	}
	return person.FullName
}

// checkAvailability loads the confirmed interviews of every participant around the
// guarded window and runs the conflict validator over them.
func checkAvailability(ctx context.Context, st InterviewRepository, proposal scheduler.Proposal) error {
	from, to := scheduler.GuardedWindow(proposal.Start, proposal.End)

	byCandidate, err := st.ListInterviews(ctx, InterviewQuery{
		CandidateID:  &proposal.CandidateID,
		Status:       InterviewConfirmed,
		OverlapStart: &from,
		OverlapEnd:   &to,
	})
	if err != nil {
		return mapInterviewRepoError(err, "")
	}
	byPanel, err := st.ListInterviews(ctx, InterviewQuery{
		PanelistIDs:  proposal.PanelistIDs,
		Status:       InterviewConfirmed,
		OverlapStart: &from,
		OverlapEnd:   &to,
	})
	if err != nil {
		return mapInterviewRepoError(err, "")
	}

	seen := make(map[string]struct{}, len(byCandidate)+len(byPanel))
	bookings := make([]scheduler.Booking, 0, len(byCandidate)+len(byPanel))
	for _, interview := range append(byCandidate, byPanel...) {
		if _, dup := seen[interview.ID]; dup {
			continue
		}
		seen[interview.ID] = struct{}{}
		bookings = append(bookings, scheduler.Booking{
			InterviewID: interview.ID,
			CandidateID: interview.CandidateID,
			PanelistIDs: interview.PanelistIDs,
			Start:       interview.Start,
			End:         interview.End,
		})
	}

	conflict := scheduler.Validate(bookings, proposal)
	if conflict == nil {
		return nil
	}
	return conflictError(conflict)
}

func conflictError(conflict *scheduler.Conflict) error {
	id := strconv.FormatInt(conflict.ActorID, 10)
	if conflict.Actor == scheduler.ActorCandidate {
		return &Error{
			Kind:    KindConflict,
			Entity:  "candidate",
			ID:      id,
			Message: fmt.Sprintf("candidate %d already has an interview scheduled for this time", conflict.ActorID),
		}
	}
	return &Error{
		Kind:    KindValidation,
		Entity:  "panelist",
		ID:      id,
		Message: fmt.Sprintf("panelist %d is not available for this slot", conflict.ActorID),
	}
}

func requireLiveSlot(ctx context.Context, st SlotRepository, slotID string) error {
	slot, err := st.GetSlot(ctx, slotID)
	if err != nil {
		return mapSlotRepoError(err, slotID)
	}
	if slot.Deleted {
		return notFound("slot", slotID)
	}
	return nil
}

func getLiveInterview(ctx context.Context, st InterviewRepository, interviewID string) (Interview, error) {
	interview, err := st.GetInterview(ctx, interviewID)
	if err != nil {
		return Interview{}, mapInterviewRepoError(err, interviewID)
	}
	if interview.Deleted {
		return Interview{}, notFound("interview", interviewID)
	}
	return interview, nil
}

func normalizeInterviewInput(input InterviewInput) InterviewInput {
	input.SlotID = strings.TrimSpace(input.SlotID)
	input.Start = normalizeTime(input.Start)
	input.End = normalizeTime(input.End)
	input.PanelistIDs = uniqueIDs(input.PanelistIDs)
	if input.Mode == "" {
		input.Mode = ModeOnline
	}
	return input
}

func validateInterviewInput(input InterviewInput) *ValidationError {
	vErr := &ValidationError{}
	if input.CandidateID <= 0 {
		vErr.add("candidate_id", "candidate is required")
	}
	if input.HRID <= 0 {
		vErr.add("hr_id", "hr owner is required")
	}
	if input.SlotID == "" {
		vErr.add("slot_id", "slot is required")
	}
	if len(input.PanelistIDs) == 0 {
		vErr.add("panelist_ids", "at least one panelist is required")
	}
	for _, id := range input.PanelistIDs {
		if id <= 0 {
			vErr.add("panelist_ids", fmt.Sprintf("invalid panelist id %d", id))
			break
		}
	}
	if input.Mode != ModeOnline && input.Mode != ModeOffline {
		vErr.add("mode", fmt.Sprintf("unsupported mode %q", input.Mode))
	}
	vErr.merge(validateWindow(input.Start, input.End))
	return vErr
}

// uniqueIDs drops repeated ids keeping first occurrence order.
func uniqueIDs(ids []int64) []int64 {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func mapInterviewRepoError(err error, interviewID string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return notFound("interview", interviewID)
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		vErr := &ValidationError{}
		vErr.add("slot_id", "referenced slot does not exist")
		return vErr
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("interview", err.Error())
		return vErr
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return &Error{Kind: KindConflict, Entity: "interview", ID: interviewID, Message: "interview " + interviewID + " already exists", Err: err}
	}
	return err
}
