package bootstrap

import (
	"context"
	"slices"

	"github.com/example/interview-scheduler/internal/application"
	"github.com/example/interview-scheduler/internal/persistence"
)

// storeAdapter presents persistence repositories as an application.Store. The root
// adapter owns the Transactor; adapters handed to Atomically callbacks are bound to
// the running transaction and join it on nested calls.
type storeAdapter struct {
	repos persistence.Repositories
	tx    persistence.Transactor
}

var _ application.Store = (*storeAdapter)(nil)

func newStoreAdapter(tx persistence.Transactor) *storeAdapter {
	return &storeAdapter{repos: tx, tx: tx}
}

func (a *storeAdapter) Atomically(ctx context.Context, fn func(application.Store) error) error {
	if a.tx == nil {
		return fn(a)
	}
	return a.tx.WithinTx(ctx, func(repos persistence.Repositories) error {
		return fn(&storeAdapter{repos: repos})
	})
}

func (a *storeAdapter) CreateSlot(ctx context.Context, slot application.Slot) error {
	return a.repos.CreateSlot(ctx, toPersistenceSlot(slot))
}

func (a *storeAdapter) UpdateSlot(ctx context.Context, slot application.Slot) error {
	return a.repos.UpdateSlot(ctx, toPersistenceSlot(slot))
}

func (a *storeAdapter) GetSlot(ctx context.Context, id string) (application.Slot, error) {
	stored, err := a.repos.GetSlot(ctx, id)
	if err != nil {
		return application.Slot{}, err
	}
	return toApplicationSlot(stored), nil
}

func (a *storeAdapter) ListSlots(ctx context.Context, query application.SlotQuery) ([]application.Slot, error) {
	models, err := a.repos.ListSlots(ctx, persistence.SlotFilter{
		PanelistIDs:  slices.Clone(query.PanelistIDs),
		Status:       string(query.Status),
		OverlapStart: query.OverlapStart,
		OverlapEnd:   query.OverlapEnd,
		WithinStart:  query.WithinStart,
		WithinEnd:    query.WithinEnd,
		ExcludeID:    query.ExcludeID,
	})
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	slots := make([]application.Slot, 0, len(models))
	for _, model := range models {
		slots = append(slots, toApplicationSlot(model))
	}
	return slots, nil
}

func (a *storeAdapter) CreateInterview(ctx context.Context, interview application.Interview) error {
	return a.repos.CreateInterview(ctx, toPersistenceInterview(interview))
}

func (a *storeAdapter) UpdateInterview(ctx context.Context, interview application.Interview) error {
	return a.repos.UpdateInterview(ctx, toPersistenceInterview(interview))
}

func (a *storeAdapter) GetInterview(ctx context.Context, id string) (application.Interview, error) {
	stored, err := a.repos.GetInterview(ctx, id)
	if err != nil {
		return application.Interview{}, err
	}
	return toApplicationInterview(stored), nil
}

func (a *storeAdapter) ListInterviews(ctx context.Context, query application.InterviewQuery) ([]application.Interview, error) {
	models, err := a.repos.ListInterviews(ctx, persistence.InterviewFilter{
		CandidateID:  query.CandidateID,
		PanelistIDs:  slices.Clone(query.PanelistIDs),
		Status:       string(query.Status),
		OverlapStart: query.OverlapStart,
		OverlapEnd:   query.OverlapEnd,
		StartsFrom:   query.StartsFrom,
		StartsBefore: query.StartsBefore,
	})
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	interviews := make([]application.Interview, 0, len(models))
	for _, model := range models {
		interviews = append(interviews, toApplicationInterview(model))
	}
	return interviews, nil
}

func (a *storeAdapter) CreateChangeRequest(ctx context.Context, request application.ChangeRequest) error {
	return a.repos.CreateChangeRequest(ctx, toPersistenceChangeRequest(request))
}

func (a *storeAdapter) UpdateChangeRequest(ctx context.Context, request application.ChangeRequest) error {
	return a.repos.UpdateChangeRequest(ctx, toPersistenceChangeRequest(request))
}

func (a *storeAdapter) GetChangeRequest(ctx context.Context, id string) (application.ChangeRequest, error) {
	stored, err := a.repos.GetChangeRequest(ctx, id)
	if err != nil {
		return application.ChangeRequest{}, err
	}
	return toApplicationChangeRequest(stored), nil
}

func (a *storeAdapter) ListChangeRequests(ctx context.Context, query application.ChangeRequestQuery) ([]application.ChangeRequest, error) {
	models, err := a.repos.ListChangeRequests(ctx, persistence.ChangeRequestFilter{
		Status:  string(query.Status),
		PanelID: query.PanelID,
		IDs:     slices.Clone(query.IDs),
	})
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	requests := make([]application.ChangeRequest, 0, len(models))
	for _, model := range models {
		requests = append(requests, toApplicationChangeRequest(model))
	}
	return requests, nil
}
