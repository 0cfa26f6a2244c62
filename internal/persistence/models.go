package persistence

import "time"

// Slot is a bookable window owned by one panelist.
type Slot struct {
	ID         string
	PanelistID int64
	Start      time.Time
	End        time.Time
	Status     string
	Deleted    bool
	CreatedBy  string
	UpdatedBy  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Interview is a scheduled meeting between a candidate and its panelists.
// PanelistIDs keeps insertion order; membership lives in interview_panelists.
type Interview struct {
	ID          string
	CandidateID int64
	HRID        int64
	SlotID      string
	PanelistIDs []int64
	Start       time.Time
	End         time.Time
	Type        string
	Mode        string
	Status      string
	Result      string
	Feedback    *string
	Rating      *int
	Deleted     bool
	CreatedBy   string
	UpdatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ChangeRequest is a panelist request to cancel an interview.
type ChangeRequest struct {
	ID          string
	InterviewID string
	PanelID     int64
	Reason      string
	Status      string
	CreatedBy   string
	UpdatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OutboxMessage is a notification waiting for delivery.
type OutboxMessage struct {
	ID          string
	EventType   string
	Payload     []byte
	Attempts    int
	LastError   *string
	CreatedAt   time.Time
	DeliveredAt *time.Time
}
