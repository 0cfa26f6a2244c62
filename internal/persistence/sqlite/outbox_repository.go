package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/example/interview-scheduler/internal/persistence"
)

// EnqueueOutbox stores a notification for later delivery.
func (r *queries) EnqueueOutbox(ctx context.Context, msg persistence.OutboxMessage) error {
	if msg.ID == "" || msg.EventType == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO notification_outbox (id, event_type, payload, attempts, created_at)
		VALUES (?, ?, ?, 0, ?)
	`, msg.ID, msg.EventType, msg.Payload, formatTime(msg.CreatedAt))
	return r.mapper.MapError(err)
}

// ListPendingOutbox returns undelivered messages, oldest first.
func (r *queries) ListPendingOutbox(ctx context.Context, limit int) ([]persistence.OutboxMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, event_type, payload, attempts, last_error, created_at
		FROM notification_outbox
		WHERE delivered_at IS NULL
		ORDER BY created_at, rowid
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var messages []persistence.OutboxMessage
	for rows.Next() {
		var (
			msg       persistence.OutboxMessage
			lastError sql.NullString
			createdAt string
		)
		if err := rows.Scan(&msg.ID, &msg.EventType, &msg.Payload, &msg.Attempts, &lastError, &createdAt); err != nil {
			return nil, r.mapper.MapError(err)
		}
		if lastError.Valid {
			msg.LastError = &lastError.String
		}
		if msg.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return messages, nil
}

// MarkOutboxDelivered records a successful delivery.
func (r *queries) MarkOutboxDelivered(ctx context.Context, id string, deliveredAt time.Time) error {
	result, err := r.q.ExecContext(ctx, `
		UPDATE notification_outbox SET delivered_at = ?, attempts = attempts + 1, last_error = NULL WHERE id = ?
	`, formatTime(deliveredAt), id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return expectRow(result)
}

// RecordOutboxFailure counts a failed attempt and keeps the message pending.
func (r *queries) RecordOutboxFailure(ctx context.Context, id string, reason string) error {
	result, err := r.q.ExecContext(ctx, `
		UPDATE notification_outbox SET attempts = attempts + 1, last_error = ? WHERE id = ?
	`, reason, id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return expectRow(result)
}
