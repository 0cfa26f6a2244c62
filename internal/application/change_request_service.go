package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/interview-scheduler/internal/persistence"
)

// ChangeRequestService runs the PENDING -> APPROVED | REJECTED workflow. Approval
// cancels the referenced booking.
type ChangeRequestService struct {
	store       Store
	interviews  *InterviewService
	slots       *SlotService
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewChangeRequestService wires dependencies for change request operations.
func NewChangeRequestService(store Store, interviews *InterviewService, slots *SlotService, idGenerator func() string, now func() time.Time) *ChangeRequestService {
	return NewChangeRequestServiceWithLogger(store, interviews, slots, idGenerator, now, nil)
}

// NewChangeRequestServiceWithLogger wires dependencies with a specified logger.
func NewChangeRequestServiceWithLogger(store Store, interviews *InterviewService, slots *SlotService, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ChangeRequestService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if slots == nil {
		slots = NewSlotServiceWithLogger(store, nil, idGenerator, now, logger)
	}
	if interviews == nil {
		interviews = NewInterviewServiceWithLogger(store, slots, nil, nil, idGenerator, now, logger)
	}
	return &ChangeRequestService{
		store:       store,
		interviews:  interviews,
		slots:       slots,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *ChangeRequestService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ChangeRequestService", operation, attrs...)
}

// Create records a PENDING request against a live interview.
func (s *ChangeRequestService) Create(ctx context.Context, params CreateChangeRequestParams) (request ChangeRequest, err error) {
	if s == nil {
		err = fmt.Errorf("ChangeRequestService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Create",
		"interview_id", params.InterviewID,
		"panel_id", params.PanelID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create change request", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("change_request_id", request.ID).InfoContext(ctx, "change request created")
	}()

	vErr := &ValidationError{}
	if strings.TrimSpace(params.InterviewID) == "" {
		vErr.add("interview_id", "interview is required")
	}
	if params.PanelID <= 0 {
		vErr.add("panel_id", "panel is required")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}
	if s.store == nil {
		err = errStoreNotConfigured
		return
	}

	var interview Interview
	interview, err = s.interviews.GetByID(ctx, params.InterviewID)
	if err != nil {
		return
	}

	now := s.now()
	created := ChangeRequest{
		ID:          s.idGenerator(),
		InterviewID: interview.ID,
		PanelID:     params.PanelID,
		Reason:      strings.TrimSpace(params.Reason),
		Status:      ChangeRequestPending,
		CreatedBy:   params.Actor,
		UpdatedBy:   params.Actor,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err = s.store.CreateChangeRequest(ctx, created); err != nil {
		err = mapChangeRequestRepoError(err, created.ID)
		return
	}

	created.Interview = &interview
	request = created
	return
}

// Get returns a change request with its interview snapshot.
func (s *ChangeRequestService) Get(ctx context.Context, requestID string) (ChangeRequest, error) {
	if s == nil {
		return ChangeRequest{}, fmt.Errorf("ChangeRequestService is nil")
	}
	if s.store == nil {
		return ChangeRequest{}, errStoreNotConfigured
	}
	request, err := s.store.GetChangeRequest(ctx, requestID)
	if err != nil {
		return ChangeRequest{}, mapChangeRequestRepoError(err, requestID)
	}
	return s.withInterview(ctx, request), nil
}

// Update moves a PENDING request to APPROVED or REJECTED. Approval soft-deletes the
// interview's slot, then the interview, in the same unit of work as the status change.
func (s *ChangeRequestService) Update(ctx context.Context, params UpdateChangeRequestParams) (request ChangeRequest, err error) {
	if s == nil {
		err = fmt.Errorf("ChangeRequestService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Update",
		"change_request_id", params.RequestID,
		"status", params.Status,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update change request", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "change request updated")
	}()

	if !params.Status.Terminal() {
		vErr := &ValidationError{}
		vErr.add("status", fmt.Sprintf("status must be %s or %s", ChangeRequestApproved, ChangeRequestRejected))
		err = vErr
		return
	}
	if s.store == nil {
		err = errStoreNotConfigured
		return
	}

	err = s.store.Atomically(ctx, func(st Store) error {
		var err error
		request, err = s.transitionIn(ctx, st, params.Actor, params.RequestID, params.Status)
		return err
	})
	if err != nil {
		request = ChangeRequest{}
	}
	return
}

// BulkApprove approves every listed request in one unit of work. Repeated ids are
// approved once; any failure leaves every request and booking untouched.
func (s *ChangeRequestService) BulkApprove(ctx context.Context, actor string, requestIDs []string) (requests []ChangeRequest, err error) {
	if s == nil {
		err = fmt.Errorf("ChangeRequestService is nil")
		return
	}

	ids := uniqueStrings(requestIDs)
	logger := s.loggerWith(ctx, "BulkApprove", "count", len(ids))
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to approve change requests", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "change requests approved")
	}()

	if len(ids) == 0 {
		vErr := &ValidationError{}
		vErr.add("request_ids", "at least one change request is required")
		err = vErr
		return
	}
	if s.store == nil {
		err = errStoreNotConfigured
		return
	}

	err = s.store.Atomically(ctx, func(st Store) error {
		approved := make([]ChangeRequest, 0, len(ids))
		for _, id := range ids {
			request, err := s.transitionIn(ctx, st, actor, id, ChangeRequestApproved)
			if err != nil {
				return err
			}
			approved = append(approved, request)
		}
		requests = approved
		return nil
	})
	if err != nil {
		requests = nil
	}
	return
}

func (s *ChangeRequestService) transitionIn(ctx context.Context, st Store, actor, requestID string, status ChangeRequestStatus) (ChangeRequest, error) {
	request, err := st.GetChangeRequest(ctx, requestID)
	if err != nil {
		return ChangeRequest{}, mapChangeRequestRepoError(err, requestID)
	}
	if request.Status.Terminal() {
		return ChangeRequest{}, &Error{
			Kind:    KindValidation,
			Entity:  "change_request",
			ID:      requestID,
			Message: fmt.Sprintf("change request %s is already %s", requestID, request.Status),
		}
	}

	if status == ChangeRequestApproved {
		// A sibling request may already have removed the interview.
		interview, err := st.GetInterview(ctx, request.InterviewID)
		if err != nil {
			return ChangeRequest{}, mapInterviewRepoError(err, request.InterviewID)
		}
		if err := s.slots.softDeleteIn(ctx, st, actor, interview.SlotID); err != nil {
			return ChangeRequest{}, err
		}
		if !interview.Deleted {
			if err := s.interviews.deleteIn(ctx, st, actor, interview.ID); err != nil {
				return ChangeRequest{}, err
			}
		}
	}

	request.Status = status
	request.UpdatedBy = actor
	request.UpdatedAt = s.now()
	if err := st.UpdateChangeRequest(ctx, request); err != nil {
		return ChangeRequest{}, mapChangeRequestRepoError(err, requestID)
	}
	return request, nil
}

// Pending lists every PENDING request with its interview snapshot.
func (s *ChangeRequestService) Pending(ctx context.Context) ([]ChangeRequest, error) {
	return s.list(ctx, ChangeRequestQuery{Status: ChangeRequestPending})
}

// PendingByPanel lists PENDING requests raised by one panel member.
func (s *ChangeRequestService) PendingByPanel(ctx context.Context, panelID int64) ([]ChangeRequest, error) {
	return s.list(ctx, ChangeRequestQuery{Status: ChangeRequestPending, PanelID: &panelID})
}

func (s *ChangeRequestService) list(ctx context.Context, query ChangeRequestQuery) ([]ChangeRequest, error) {
	if s == nil {
		return nil, fmt.Errorf("ChangeRequestService is nil")
	}
	if s.store == nil {
		return nil, nil
	}
	requests, err := s.store.ListChangeRequests(ctx, query)
	if err != nil {
		return nil, mapChangeRequestRepoError(err, "")
	}
	for i := range requests {
		requests[i] = s.withInterview(ctx, requests[i])
	}
	return requests, nil
}

// withInterview attaches the current interview; a failed lookup leaves it nil.
func (s *ChangeRequestService) withInterview(ctx context.Context, request ChangeRequest) ChangeRequest {
	interview, err := s.interviews.GetByID(ctx, request.InterviewID)
	if err != nil {
		s.loggerWith(ctx, "withInterview",
			"change_request_id", request.ID,
			"interview_id", request.InterviewID,
		).DebugContext(ctx, "interview snapshot unavailable", "error", err)
		request.Interview = nil
		return request
	}
	request.Interview = &interview
	return request
}

func uniqueStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}

func mapChangeRequestRepoError(err error, requestID string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return notFound("change_request", requestID)
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		vErr := &ValidationError{}
		vErr.add("interview_id", "referenced interview does not exist")
		return vErr
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("change_request", err.Error())
		return vErr
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return &Error{Kind: KindConflict, Entity: "change_request", ID: requestID, Message: "change request " + requestID + " already exists", Err: err}
	}
	return err
}
