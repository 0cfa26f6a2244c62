package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/example/interview-scheduler/internal/persistence"
	"github.com/example/interview-scheduler/internal/scheduler"
)

type memData struct {
	slots      map[string]Slot
	interviews map[string]Interview
	requests   map[string]ChangeRequest
}

func (d *memData) clone() *memData {
	out := &memData{
		slots:      make(map[string]Slot, len(d.slots)),
		interviews: make(map[string]Interview, len(d.interviews)),
		requests:   make(map[string]ChangeRequest, len(d.requests)),
	}
	for id, slot := range d.slots {
		out.slots[id] = slot
	}
	for id, interview := range d.interviews {
		interview.PanelistIDs = slices.Clone(interview.PanelistIDs)
		out.interviews[id] = interview
	}
	for id, request := range d.requests {
		out.requests[id] = request
	}
	return out
}

// memStore is an in-memory Store. Atomically serializes units of work and restores
// the previous state when fn fails.
type memStore struct {
	mu   *sync.Mutex
	data *memData
	tx   bool

	// updateSlotErr fails UpdateSlot for the listed slot ids.
	updateSlotErr map[string]error
	atomicCalls   int
}

func newMemStore() *memStore {
	return &memStore{
		mu: &sync.Mutex{},
		data: &memData{
			slots:      make(map[string]Slot),
			interviews: make(map[string]Interview),
			requests:   make(map[string]ChangeRequest),
		},
		updateSlotErr: make(map[string]error),
	}
}

func (m *memStore) lock() func() {
	if m.tx {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

func (m *memStore) Atomically(ctx context.Context, fn func(Store) error) error {
	if m.tx {
		return fn(m)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.atomicCalls++

	snapshot := m.data.clone()
	tx := &memStore{mu: m.mu, data: m.data, tx: true, updateSlotErr: m.updateSlotErr}
	if err := fn(tx); err != nil {
		*m.data = *snapshot
		return err
	}
	return nil
}

func (m *memStore) CreateSlot(ctx context.Context, slot Slot) error {
	defer m.lock()()
	if _, ok := m.data.slots[slot.ID]; ok {
		return persistence.ErrDuplicate
	}
	m.data.slots[slot.ID] = slot
	return nil
}

func (m *memStore) UpdateSlot(ctx context.Context, slot Slot) error {
	defer m.lock()()
	if err := m.updateSlotErr[slot.ID]; err != nil {
		return err
	}
	if _, ok := m.data.slots[slot.ID]; !ok {
		return persistence.ErrNotFound
	}
	slot.PanelistName = ""
	m.data.slots[slot.ID] = slot
	return nil
}

func (m *memStore) GetSlot(ctx context.Context, id string) (Slot, error) {
	defer m.lock()()
	slot, ok := m.data.slots[id]
	if !ok {
		return Slot{}, persistence.ErrNotFound
	}
	return slot, nil
}

func (m *memStore) ListSlots(ctx context.Context, query SlotQuery) ([]Slot, error) {
	defer m.lock()()
	var out []Slot
	for _, slot := range m.data.slots {
		if slot.Deleted || slot.ID == query.ExcludeID {
			continue
		}
		if len(query.PanelistIDs) > 0 && !slices.Contains(query.PanelistIDs, slot.PanelistID) {
			continue
		}
		if query.Status != "" && slot.Status != query.Status {
			continue
		}
		if query.OverlapStart != nil && query.OverlapEnd != nil && !scheduler.Overlaps(slot.Start, slot.End, *query.OverlapStart, *query.OverlapEnd) {
			continue
		}
		if query.WithinStart != nil && slot.Start.Before(*query.WithinStart) {
			continue
		}
		if query.WithinEnd != nil && slot.End.After(*query.WithinEnd) {
			continue
		}
		out = append(out, slot)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start.Equal(out[j].Start) {
			return out[i].ID < out[j].ID
		}
		return out[i].Start.Before(out[j].Start)
	})
	return out, nil
}

func (m *memStore) CreateInterview(ctx context.Context, interview Interview) error {
	defer m.lock()()
	if _, ok := m.data.interviews[interview.ID]; ok {
		return persistence.ErrDuplicate
	}
	if _, ok := m.data.slots[interview.SlotID]; !ok {
		return persistence.ErrForeignKeyViolation
	}
	interview.PanelistIDs = slices.Clone(interview.PanelistIDs)
	m.data.interviews[interview.ID] = interview
	return nil
}

func (m *memStore) UpdateInterview(ctx context.Context, interview Interview) error {
	defer m.lock()()
	if _, ok := m.data.interviews[interview.ID]; !ok {
		return persistence.ErrNotFound
	}
	interview.PanelistIDs = slices.Clone(interview.PanelistIDs)
	interview.CandidateName, interview.HRName, interview.PanelistNames = "", "", nil
	m.data.interviews[interview.ID] = interview
	return nil
}

func (m *memStore) GetInterview(ctx context.Context, id string) (Interview, error) {
	defer m.lock()()
	interview, ok := m.data.interviews[id]
	if !ok {
		return Interview{}, persistence.ErrNotFound
	}
	interview.PanelistIDs = slices.Clone(interview.PanelistIDs)
	return interview, nil
}

func (m *memStore) ListInterviews(ctx context.Context, query InterviewQuery) ([]Interview, error) {
	defer m.lock()()
	var out []Interview
	for _, interview := range m.data.interviews {
		if interview.Deleted {
			continue
		}
		if query.CandidateID != nil && interview.CandidateID != *query.CandidateID {
			continue
		}
		if len(query.PanelistIDs) > 0 && !slices.ContainsFunc(interview.PanelistIDs, func(id int64) bool {
			return slices.Contains(query.PanelistIDs, id)
		}) {
			continue
		}
		if query.Status != "" && interview.Status != query.Status {
			continue
		}
		if query.OverlapStart != nil && query.OverlapEnd != nil && !scheduler.Overlaps(interview.Start, interview.End, *query.OverlapStart, *query.OverlapEnd) {
			continue
		}
		if query.StartsFrom != nil && interview.Start.Before(*query.StartsFrom) {
			continue
		}
		if query.StartsBefore != nil && !interview.Start.Before(*query.StartsBefore) {
			continue
		}
		interview.PanelistIDs = slices.Clone(interview.PanelistIDs)
		out = append(out, interview)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start.Equal(out[j].Start) {
			return out[i].ID < out[j].ID
		}
		return out[i].Start.Before(out[j].Start)
	})
	return out, nil
}

func (m *memStore) CreateChangeRequest(ctx context.Context, request ChangeRequest) error {
	defer m.lock()()
	if _, ok := m.data.requests[request.ID]; ok {
		return persistence.ErrDuplicate
	}
	request.Interview = nil
	m.data.requests[request.ID] = request
	return nil
}

func (m *memStore) UpdateChangeRequest(ctx context.Context, request ChangeRequest) error {
	defer m.lock()()
	if _, ok := m.data.requests[request.ID]; !ok {
		return persistence.ErrNotFound
	}
	request.Interview = nil
	m.data.requests[request.ID] = request
	return nil
}

func (m *memStore) GetChangeRequest(ctx context.Context, id string) (ChangeRequest, error) {
	defer m.lock()()
	request, ok := m.data.requests[id]
	if !ok {
		return ChangeRequest{}, persistence.ErrNotFound
	}
	return request, nil
}

func (m *memStore) ListChangeRequests(ctx context.Context, query ChangeRequestQuery) ([]ChangeRequest, error) {
	defer m.lock()()
	var out []ChangeRequest
	for _, request := range m.data.requests {
		if query.Status != "" && request.Status != query.Status {
			continue
		}
		if query.PanelID != nil && request.PanelID != *query.PanelID {
			continue
		}
		if len(query.IDs) > 0 && !slices.Contains(query.IDs, request.ID) {
			continue
		}
		out = append(out, request)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) slot(id string) Slot {
	defer m.lock()()
	return m.data.slots[id]
}

func (m *memStore) interview(id string) Interview {
	defer m.lock()()
	return m.data.interviews[id]
}

func (m *memStore) request(id string) ChangeRequest {
	defer m.lock()()
	return m.data.requests[id]
}

type directoryStub map[int64]Person

func (d directoryStub) Lookup(ctx context.Context, id int64) (Person, bool) {
	person, ok := d[id]
	return person, ok
}

type publisherStub struct {
	mu        sync.Mutex
	err       error
	published []Notification
}

func (p *publisherStub) Publish(ctx context.Context, notification Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, notification)
	return nil
}

func (p *publisherStub) events() []Notification {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.published)
}

var errPublish = errors.New("outbox unavailable")

var testDay = time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return testDay.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func sequentialIDs(prefix string) func() string {
	var (
		mu sync.Mutex
		n  int
	)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%02d", prefix, n)
	}
}

func fixedNow() time.Time { return testDay.Add(-24 * time.Hour) }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type servicesUnderTest struct {
	store      *memStore
	publisher  *publisherStub
	slots      *SlotService
	interviews *InterviewService
	requests   *ChangeRequestService
}

func newServicesUnderTest() servicesUnderTest {
	store := newMemStore()
	directory := directoryStub{
		1:   {ID: 1, FullName: "Casey Candidate", Email: "casey@example.com"},
		5:   {ID: 5, FullName: "Pat Panel", Email: "pat@example.com"},
		6:   {ID: 6, FullName: "Robin Panel", Email: "robin@example.com"},
		900: {ID: 900, FullName: "Harper HR", Email: "harper@example.com"},
	}
	publisher := &publisherStub{}
	ids := sequentialIDs("id")
	logger := discardLogger()

	slots := NewSlotServiceWithLogger(store, directory, ids, fixedNow, logger)
	interviews := NewInterviewServiceWithLogger(store, slots, directory, publisher, ids, fixedNow, logger)
	requests := NewChangeRequestServiceWithLogger(store, interviews, slots, ids, fixedNow, logger)
	return servicesUnderTest{store: store, publisher: publisher, slots: slots, interviews: interviews, requests: requests}
}
