package application

import (
	"context"
	"time"
)

// SlotQuery narrows slot lookups. Soft-deleted slots are never returned.
type SlotQuery struct {
	PanelistIDs []int64
	Status      SlotStatus
	// OverlapStart and OverlapEnd select slots intersecting [OverlapStart, OverlapEnd).
	OverlapStart *time.Time
	OverlapEnd   *time.Time
	// WithinStart and WithinEnd select slots lying inside [WithinStart, WithinEnd].
	WithinStart *time.Time
	WithinEnd   *time.Time
	ExcludeID   string
}

// InterviewQuery narrows interview lookups. Soft-deleted interviews are never returned.
type InterviewQuery struct {
	CandidateID *int64
	// PanelistIDs matches interviews having any listed id as a member.
	PanelistIDs  []int64
	Status       InterviewStatus
	OverlapStart *time.Time
	OverlapEnd   *time.Time
	StartsFrom   *time.Time
	StartsBefore *time.Time
}

// ChangeRequestQuery narrows change request lookups.
type ChangeRequestQuery struct {
	Status  ChangeRequestStatus
	PanelID *int64
	IDs     []string
}

// SlotRepository captures the slot persistence operations needed by the services.
type SlotRepository interface {
	CreateSlot(ctx context.Context, slot Slot) error
	UpdateSlot(ctx context.Context, slot Slot) error
	// GetSlot returns soft-deleted slots too.
	GetSlot(ctx context.Context, id string) (Slot, error)
	ListSlots(ctx context.Context, query SlotQuery) ([]Slot, error)
}

// InterviewRepository captures the interview persistence operations needed by the services.
type InterviewRepository interface {
	CreateInterview(ctx context.Context, interview Interview) error
	UpdateInterview(ctx context.Context, interview Interview) error
	// GetInterview returns soft-deleted interviews too.
	GetInterview(ctx context.Context, id string) (Interview, error)
	ListInterviews(ctx context.Context, query InterviewQuery) ([]Interview, error)
}

// ChangeRequestRepository captures the change request persistence operations.
type ChangeRequestRepository interface {
	CreateChangeRequest(ctx context.Context, request ChangeRequest) error
	UpdateChangeRequest(ctx context.Context, request ChangeRequest) error
	GetChangeRequest(ctx context.Context, id string) (ChangeRequest, error)
	ListChangeRequests(ctx context.Context, query ChangeRequestQuery) ([]ChangeRequest, error)
}

// Store groups the repositories and runs units of work atomically. Atomically
// commits when fn returns nil and rolls back otherwise; concurrent units of work
// are serialized so a check and the write it guards cannot interleave. Calling
// Atomically on the Store passed to fn joins the running unit of work.
type Store interface {
	SlotRepository
	InterviewRepository
	ChangeRequestRepository
	Atomically(ctx context.Context, fn func(Store) error) error
}

// Directory resolves user identities. Lookups never fail; a missing user is reported by ok=false.
type Directory interface {
	Lookup(ctx context.Context, id int64) (Person, bool)
}

// NotificationPublisher hands interview events to the notification sink.
type NotificationPublisher interface {
	Publish(ctx context.Context, notification Notification) error
}
