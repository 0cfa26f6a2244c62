package persistence

import (
	"context"
	"time"
)

// SlotFilter narrows slot queries. Zero values leave a dimension unconstrained.
type SlotFilter struct {
	PanelistIDs []int64
	Status      string
	// OverlapStart and OverlapEnd select slots intersecting [OverlapStart, OverlapEnd).
	OverlapStart *time.Time
	OverlapEnd   *time.Time
	// WithinStart and WithinEnd select slots lying inside [WithinStart, WithinEnd].
	WithinStart    *time.Time
	WithinEnd      *time.Time
	ExcludeID      string
	IncludeDeleted bool
}

// SlotRepository stores panelist slots.
type SlotRepository interface {
	CreateSlot(ctx context.Context, slot Slot) error
	UpdateSlot(ctx context.Context, slot Slot) error
	GetSlot(ctx context.Context, id string) (Slot, error)
	ListSlots(ctx context.Context, filter SlotFilter) ([]Slot, error)
}

// InterviewFilter narrows interview queries.
type InterviewFilter struct {
	CandidateID *int64
	// PanelistIDs matches interviews having any of the ids as an exact member.
	PanelistIDs    []int64
	Status         string
	OverlapStart   *time.Time
	OverlapEnd     *time.Time
	StartsFrom     *time.Time
	StartsBefore   *time.Time
	IncludeDeleted bool
}

// InterviewRepository stores interviews and their panelist membership.
type InterviewRepository interface {
	CreateInterview(ctx context.Context, interview Interview) error
	UpdateInterview(ctx context.Context, interview Interview) error
	GetInterview(ctx context.Context, id string) (Interview, error)
	ListInterviews(ctx context.Context, filter InterviewFilter) ([]Interview, error)
}

// ChangeRequestFilter narrows change request queries.
type ChangeRequestFilter struct {
	Status  string
	PanelID *int64
	IDs     []string
}

// ChangeRequestRepository stores change requests.
type ChangeRequestRepository interface {
	CreateChangeRequest(ctx context.Context, request ChangeRequest) error
	UpdateChangeRequest(ctx context.Context, request ChangeRequest) error
	GetChangeRequest(ctx context.Context, id string) (ChangeRequest, error)
	ListChangeRequests(ctx context.Context, filter ChangeRequestFilter) ([]ChangeRequest, error)
}

// OutboxRepository stores notifications until they are delivered.
type OutboxRepository interface {
	EnqueueOutbox(ctx context.Context, msg OutboxMessage) error
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxDelivered(ctx context.Context, id string, deliveredAt time.Time) error
	RecordOutboxFailure(ctx context.Context, id string, reason string) error
}

// Repositories groups the repositories that take part in a transaction.
type Repositories interface {
	SlotRepository
	InterviewRepository
	ChangeRequestRepository
}

// Transactor runs fn against repositories bound to one serialized transaction.
// The transaction commits when fn returns nil and rolls back otherwise.
type Transactor interface {
	Repositories
	WithinTx(ctx context.Context, fn func(Repositories) error) error
}
