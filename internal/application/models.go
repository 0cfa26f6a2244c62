package application

import "time"

// SlotStatus tracks whether a slot is held by an interview.
type SlotStatus string

const (
	SlotUnbooked SlotStatus = "UNBOOKED"
	SlotBooked   SlotStatus = "BOOKED"
)

// InterviewStatus is CONFIRMED until an outcome is recorded.
type InterviewStatus string

const (
	InterviewConfirmed InterviewStatus = "CONFIRMED"
	InterviewCompleted InterviewStatus = "COMPLETED"
)

// InterviewResult is the hiring outcome of an interview.
type InterviewResult string

const (
	ResultPending  InterviewResult = "PENDING"
	ResultSelected InterviewResult = "SELECTED"
	ResultRejected InterviewResult = "REJECTED"
)

// InterviewMode describes how an interview is held.
type InterviewMode string

const (
	ModeOnline  InterviewMode = "ONLINE"
	ModeOffline InterviewMode = "OFFLINE"
)

// ChangeRequestStatus is PENDING until HR approves or rejects it. Both outcomes are final.
type ChangeRequestStatus string

const (
	ChangeRequestPending  ChangeRequestStatus = "PENDING"
	ChangeRequestApproved ChangeRequestStatus = "APPROVED"
	ChangeRequestRejected ChangeRequestStatus = "REJECTED"
)

// Terminal reports whether no further transition is allowed.
func (s ChangeRequestStatus) Terminal() bool {
	return s == ChangeRequestApproved || s == ChangeRequestRejected
}

// NotificationEvent names the outbound interview events.
type NotificationEvent string

const (
	EventInterviewCreated     NotificationEvent = "INTERVIEWCREATED"
	EventInterviewUpdated     NotificationEvent = "INTERVIEWUPDATED"
	EventInterviewRescheduled NotificationEvent = "INTERVIEWRESCHEDULED"
)

// DefaultUpcomingHorizon bounds UpcomingForPanel when callers pass no horizon.
const DefaultUpcomingHorizon = 7 * 24 * time.Hour

// Slot is a bookable window owned by one panelist.
type Slot struct {
	ID           string
	PanelistID   int64
	PanelistName string
	Start        time.Time
	End          time.Time
	Status       SlotStatus
	Deleted      bool
	CreatedBy    string
	UpdatedBy    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Interview links a candidate, an HR owner and panelists to a time window.
type Interview struct {
	ID            string
	CandidateID   int64
	CandidateName string
	HRID          int64
	HRName        string
	SlotID        string
	PanelistIDs   []int64
	// PanelistNames is aligned with PanelistIDs; unresolved entries are UnknownContact.
	PanelistNames []string
	Start         time.Time
	End           time.Time
	Type          string
	Mode          InterviewMode
	Status        InterviewStatus
	Result        InterviewResult
	Feedback      *string
	Rating        *int
	Deleted       bool
	CreatedBy     string
	UpdatedBy     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ChangeRequest is a panelist request to cancel an interview.
type ChangeRequest struct {
	ID          string
	InterviewID string
	PanelID     int64
	Reason      string
	Status      ChangeRequestStatus
	CreatedBy   string
	UpdatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	// Interview is the referenced interview at read time, nil when it can no longer be loaded.
	Interview *Interview
}

// Person is the directory view of a user consumed by the services.
type Person struct {
	ID       int64
	FullName string
	Email    string
}

// Notification is an interview event handed to the notification sink.
type Notification struct {
	Event          NotificationEvent
	InterviewID    string
	CandidateEmail string
	// PanelEmail is the comma-joined list of panelist addresses.
	PanelEmail string
	HREmail    string
	StartTime  time.Time
	CreatedBy  string
}

// CreateSlotParams wraps the data required to open a slot.
type CreateSlotParams struct {
	Actor      string
	PanelistID int64
	Start      time.Time
	End        time.Time
}

// UpdateSlotWindowParams moves an unbooked slot.
type UpdateSlotWindowParams struct {
	Actor  string
	SlotID string
	Start  time.Time
	End    time.Time
}

// InterviewInput captures caller provided interview fields.
type InterviewInput struct {
	CandidateID int64
	HRID        int64
	SlotID      string
	PanelistIDs []int64
	Start       time.Time
	End         time.Time
	Type        string
	Mode        InterviewMode
}

// CreateInterviewParams wraps the data required to book an interview.
type CreateInterviewParams struct {
	Actor string
	Input InterviewInput
}

// UpdateInterviewParams records the outcome of an interview.
type UpdateInterviewParams struct {
	Actor       string
	InterviewID string
	Feedback    string
	Rating      int
}

// RescheduleInterviewParams moves an interview to a new slot, panel and window.
type RescheduleInterviewParams struct {
	Actor       string
	InterviewID string
	SlotID      string
	PanelistIDs []int64
	Start       time.Time
	End         time.Time
}

// CreateChangeRequestParams wraps a panelist request against an interview.
type CreateChangeRequestParams struct {
	Actor       string
	InterviewID string
	PanelID     int64
	Reason      string
}

// UpdateChangeRequestParams moves a pending request to a terminal status.
type UpdateChangeRequestParams struct {
	Actor     string
	RequestID string
	Status    ChangeRequestStatus
}
