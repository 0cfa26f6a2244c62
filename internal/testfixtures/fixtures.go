package testfixtures

import (
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/example/interview-scheduler/internal/directory"
	"github.com/example/interview-scheduler/internal/persistence"
)

var (
	slotCounter      uint64
	interviewCounter uint64
	requestCounter   uint64
)

// referenceTime is a Monday morning; fixture windows are laid out from it.
var referenceTime = time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// Directory user ids used across fixtures.
const (
	CandidateID  int64 = 1
	CandidateID2 int64 = 2
	PanelistID   int64 = 5
	PanelistID2  int64 = 6
	HRID         int64 = 900
)

// People returns the directory records matching the fixture ids.
func People() []directory.User {
	return []directory.User{
		{ID: CandidateID, FullName: "Casey Candidate", Email: "casey@example.com", Role: "CANDIDATE", RoleID: 4, Active: true},
		{ID: CandidateID2, FullName: "Devon Candidate", Email: "devon@example.com", Role: "CANDIDATE", RoleID: 4, Active: true},
		{ID: PanelistID, FullName: "Pat Panel", Email: "pat@example.com", Role: "PANEL", RoleID: 3, Active: true},
		{ID: PanelistID2, FullName: "Robin Panel", Email: "robin@example.com", Role: "PANEL", RoleID: 3, Active: true},
		{ID: HRID, FullName: "Harper HR", Email: "harper@example.com", Role: "HR", RoleID: 2, Active: true},
	}
}

// ------------------------------ Slot fixtures ------------------------------

// SlotFixture is a deterministic panelist slot.
type SlotFixture struct {
	ID         string
	PanelistID int64
	Start      time.Time
	End        time.Time
	Status     string
	Deleted    bool
	CreatedAt  time.Time
}

// SlotOption configures the generated slot fixture.
type SlotOption func(*SlotFixture)

// NewSlotFixture returns an unbooked one-hour slot of PanelistID starting at ReferenceTime.
func NewSlotFixture(opts ...SlotOption) SlotFixture {
	idx := atomic.AddUint64(&slotCounter, 1)
	fixture := SlotFixture{
		ID:         fmt.Sprintf("slot-%03d", idx),
		PanelistID: PanelistID,
		Start:      referenceTime,
		End:        referenceTime.Add(time.Hour),
		Status:     "UNBOOKED",
		CreatedAt:  referenceTime.Add(-24 * time.Hour),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithSlotID overrides the generated slot ID.
func WithSlotID(id string) SlotOption {
	return func(f *SlotFixture) {
		f.ID = id
	}
}

// WithSlotPanelist sets the owning panelist.
func WithSlotPanelist(id int64) SlotOption {
	return func(f *SlotFixture) {
		f.PanelistID = id
	}
}

// WithSlotWindow sets the slot window.
func WithSlotWindow(start, end time.Time) SlotOption {
	return func(f *SlotFixture) {
		f.Start = start
		f.End = end
	}
}

// WithSlotBooked marks the slot BOOKED.
func WithSlotBooked() SlotOption {
	return func(f *SlotFixture) {
		f.Status = "BOOKED"
	}
}

// WithSlotDeleted marks the slot soft-deleted.
func WithSlotDeleted() SlotOption {
	return func(f *SlotFixture) {
		f.Deleted = true
	}
}

// Persistence returns the fixture as a persistence.Slot value.
func (f SlotFixture) Persistence() persistence.Slot {
	return persistence.Slot{
		ID:         f.ID,
		PanelistID: f.PanelistID,
		Start:      f.Start,
		End:        f.End,
		Status:     f.Status,
		Deleted:    f.Deleted,
		CreatedBy:  "fixture",
		UpdatedBy:  "fixture",
		CreatedAt:  f.CreatedAt,
		UpdatedAt:  f.CreatedAt,
	}
}

// ---------------------------- Interview fixtures ----------------------------

// InterviewFixture is a deterministic confirmed interview.
type InterviewFixture struct {
	ID          string
	CandidateID int64
	HRID        int64
	SlotID      string
	PanelistIDs []int64
	Start       time.Time
	End         time.Time
	Status      string
	Result      string
	Deleted     bool
	CreatedAt   time.Time
}

// InterviewOption configures the generated interview fixture.
type InterviewOption func(*InterviewFixture)

// NewInterviewFixture returns a CONFIRMED interview of CandidateID with PanelistID,
// held in slotID at ReferenceTime for one hour.
func NewInterviewFixture(slotID string, opts ...InterviewOption) InterviewFixture {
	idx := atomic.AddUint64(&interviewCounter, 1)
	fixture := InterviewFixture{
		ID:          fmt.Sprintf("interview-%03d", idx),
		CandidateID: CandidateID,
		HRID:        HRID,
		SlotID:      slotID,
		PanelistIDs: []int64{PanelistID},
		Start:       referenceTime,
		End:         referenceTime.Add(time.Hour),
		Status:      "CONFIRMED",
		Result:      "PENDING",
		CreatedAt:   referenceTime.Add(-24 * time.Hour),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithInterviewID overrides the generated interview ID.
func WithInterviewID(id string) InterviewOption {
	return func(f *InterviewFixture) {
		f.ID = id
	}
}

// WithInterviewCandidate sets the candidate.
func WithInterviewCandidate(id int64) InterviewOption {
	return func(f *InterviewFixture) {
		f.CandidateID = id
	}
}

// WithInterviewPanel sets the panelists in order.
func WithInterviewPanel(ids ...int64) InterviewOption {
	return func(f *InterviewFixture) {
		f.PanelistIDs = slices.Clone(ids)
	}
}

// WithInterviewWindow sets the interview window.
func WithInterviewWindow(start, end time.Time) InterviewOption {
	return func(f *InterviewFixture) {
		f.Start = start
		f.End = end
	}
}

// WithInterviewCompleted records an outcome.
func WithInterviewCompleted(result string) InterviewOption {
	return func(f *InterviewFixture) {
		f.Status = "COMPLETED"
		f.Result = result
	}
}

// WithInterviewDeleted marks the interview soft-deleted.
func WithInterviewDeleted() InterviewOption {
	return func(f *InterviewFixture) {
		f.Deleted = true
	}
}

// Persistence returns the fixture as a persistence.Interview value.
func (f InterviewFixture) Persistence() persistence.Interview {
	return persistence.Interview{
		ID:          f.ID,
		CandidateID: f.CandidateID,
		HRID:        f.HRID,
		SlotID:      f.SlotID,
		PanelistIDs: slices.Clone(f.PanelistIDs),
		Start:       f.Start,
		End:         f.End,
		Type:        "TECHNICAL",
		Mode:        "ONLINE",
		Status:      f.Status,
		Result:      f.Result,
		Deleted:     f.Deleted,
		CreatedBy:   "fixture",
		UpdatedBy:   "fixture",
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.CreatedAt,
	}
}

// -------------------------- Change request fixtures --------------------------

// ChangeRequestFixture is a deterministic pending change request.
type ChangeRequestFixture struct {
	ID          string
	InterviewID string
	PanelID     int64
	Reason      string
	Status      string
	CreatedAt   time.Time
}

// ChangeRequestOption configures the generated change request fixture.
type ChangeRequestOption func(*ChangeRequestFixture)

// NewChangeRequestFixture returns a PENDING request raised by PanelistID against interviewID.
func NewChangeRequestFixture(interviewID string, opts ...ChangeRequestOption) ChangeRequestFixture {
	idx := atomic.AddUint64(&requestCounter, 1)
	fixture := ChangeRequestFixture{
		ID:          fmt.Sprintf("request-%03d", idx),
		InterviewID: interviewID,
		PanelID:     PanelistID,
		Reason:      "conflicting commitment",
		Status:      "PENDING",
		CreatedAt:   referenceTime.Add(time.Duration(idx) * time.Minute),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithChangeRequestPanel sets the requesting panelist.
func WithChangeRequestPanel(id int64) ChangeRequestOption {
	return func(f *ChangeRequestFixture) {
		f.PanelID = id
	}
}

// WithChangeRequestStatus sets the request status.
func WithChangeRequestStatus(status string) ChangeRequestOption {
	return func(f *ChangeRequestFixture) {
		f.Status = status
	}
}

// Persistence returns the fixture as a persistence.ChangeRequest value.
func (f ChangeRequestFixture) Persistence() persistence.ChangeRequest {
	return persistence.ChangeRequest{
		ID:          f.ID,
		InterviewID: f.InterviewID,
		PanelID:     f.PanelID,
		Reason:      f.Reason,
		Status:      f.Status,
		CreatedBy:   "fixture",
		UpdatedBy:   "fixture",
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.CreatedAt,
	}
}
