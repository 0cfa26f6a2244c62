package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/interview-scheduler/internal/application"
	"github.com/example/interview-scheduler/internal/persistence"
)

// Event is the JSON document stored in the outbox and posted to the webhook.
type Event struct {
	EventType string  `json:"eventType"`
	Payload   Payload `json:"payload"`
}

// Payload carries the interview contacts resolved at publish time.
type Payload struct {
	EventID        string    `json:"eventId"`
	EventTime      time.Time `json:"eventTime"`
	InterviewID    string    `json:"interviewId"`
	CandidateEmail string    `json:"candidateEmail"`
	PanelEmail     string    `json:"panelEmail"`
	HREmail        string    `json:"hrEmail"`
	StartTime      time.Time `json:"startTime"`
	CreatedBy      string    `json:"createdBy"`
}

// Outbox publishes notifications by enqueueing them for the Dispatcher.
type Outbox struct {
	repo  persistence.OutboxRepository
	now   func() time.Time
	newID func() string
}

// OutboxOption customises an Outbox.
type OutboxOption func(*Outbox)

// WithOutboxClock injects the clock used for eventTime.
func WithOutboxClock(now func() time.Time) OutboxOption {
	return func(o *Outbox) {
		if now != nil {
			o.now = now
		}
	}
}

// WithEventIDs replaces the uuid generator for event ids.
func WithEventIDs(newID func() string) OutboxOption {
	return func(o *Outbox) {
		if newID != nil {
			o.newID = newID
		}
	}
}

// NewOutbox builds an Outbox over repo.
func NewOutbox(repo persistence.OutboxRepository, opts ...OutboxOption) *Outbox {
	o := &Outbox{
		repo:  repo,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Publish stores the notification. A successful enqueue counts as published.
func (o *Outbox) Publish(ctx context.Context, n application.Notification) error {
	if o == nil || o.repo == nil {
		return errors.New("notify: outbox is not configured")
	}
	if strings.TrimSpace(string(n.Event)) == "" {
		return errors.New("notify: event type is required")
	}

	eventTime := o.now().UTC()
	event := Event{
		EventType: string(n.Event),
		Payload: Payload{
			EventID:        o.newID(),
			EventTime:      eventTime,
			InterviewID:    n.InterviewID,
			CandidateEmail: n.CandidateEmail,
			PanelEmail:     n.PanelEmail,
			HREmail:        n.HREmail,
			StartTime:      n.StartTime.UTC(),
			CreatedBy:      n.CreatedBy,
		},
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("notify: encode event: %w", err)
	}

	msg := persistence.OutboxMessage{
		ID:        event.Payload.EventID,
		EventType: event.EventType,
		Payload:   body,
		CreatedAt: eventTime,
	}
	if err := o.repo.EnqueueOutbox(ctx, msg); err != nil {
		return fmt.Errorf("notify: enqueue %s for interview %s: %w", event.EventType, n.InterviewID, err)
	}
	return nil
}
