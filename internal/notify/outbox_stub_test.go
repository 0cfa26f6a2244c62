package notify

import (
	"context"
	"sync"
	"time"

	"github.com/example/interview-scheduler/internal/persistence"
)

type outboxStub struct {
	mu         sync.Mutex
	messages   []persistence.OutboxMessage
	enqueueErr error
}

func (s *outboxStub) EnqueueOutbox(ctx context.Context, msg persistence.OutboxMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.enqueueErr != nil {
		return s.enqueueErr
	}
	s.messages = append(s.messages, msg)
	return nil
}

func (s *outboxStub) ListPendingOutbox(ctx context.Context, limit int) ([]persistence.OutboxMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []persistence.OutboxMessage
	for _, msg := range s.messages {
		if msg.DeliveredAt != nil {
			continue
		}
		out = append(out, msg)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *outboxStub) MarkOutboxDelivered(ctx context.Context, id string, deliveredAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.messages {
		if s.messages[i].ID == id {
			s.messages[i].Attempts++
			s.messages[i].LastError = nil
			s.messages[i].DeliveredAt = &deliveredAt
			return nil
		}
	}
	return persistence.ErrNotFound
}

func (s *outboxStub) RecordOutboxFailure(ctx context.Context, id string, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.messages {
		if s.messages[i].ID == id {
			s.messages[i].Attempts++
			s.messages[i].LastError = &reason
			return nil
		}
	}
	return persistence.ErrNotFound
}

func (s *outboxStub) snapshot() []persistence.OutboxMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]persistence.OutboxMessage, len(s.messages))
	copy(out, s.messages)
	return out
}
