package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/example/interview-scheduler/internal/persistence"
)

// queries implements the repositories on a *sql.DB or a *sql.Tx.
type queries struct {
	q      querier
	mapper *ErrorMapper
}

const slotColumns = `id, panelist_id, start_time, end_time, status, is_deleted, created_by, updated_by, created_at, updated_at`

// CreateSlot inserts a slot.
func (r *queries) CreateSlot(ctx context.Context, slot persistence.Slot) error {
	if slot.ID == "" || !slot.End.After(slot.Start) {
		return persistence.ErrConstraintViolation
	}

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO slots (`+slotColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		slot.ID,
		slot.PanelistID,
		formatTime(slot.Start),
		formatTime(slot.End),
		slot.Status,
		boolToInt(slot.Deleted),
		slot.CreatedBy,
		slot.UpdatedBy,
		formatTime(slot.CreatedAt),
		formatTime(slot.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// UpdateSlot overwrites the mutable columns of a slot.
func (r *queries) UpdateSlot(ctx context.Context, slot persistence.Slot) error {
	if slot.ID == "" {
		return persistence.ErrNotFound
	}
	if !slot.End.After(slot.Start) {
		return persistence.ErrConstraintViolation
	}

	result, err := r.q.ExecContext(ctx, `
		UPDATE slots
		SET start_time = ?, end_time = ?, status = ?, is_deleted = ?, updated_by = ?, updated_at = ?
		WHERE id = ?
	`,
		formatTime(slot.Start),
		formatTime(slot.End),
		slot.Status,
		boolToInt(slot.Deleted),
		slot.UpdatedBy,
		formatTime(slot.UpdatedAt),
		slot.ID,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return expectRow(result)
}

// GetSlot returns a slot whether or not it is soft-deleted.
func (r *queries) GetSlot(ctx context.Context, id string) (persistence.Slot, error) {
	if id == "" {
		return persistence.Slot{}, persistence.ErrNotFound
	}
	row := r.q.QueryRowContext(ctx, `SELECT `+slotColumns+` FROM slots WHERE id = ?`, id)
	slot, err := scanSlot(row)
	if err != nil {
		return persistence.Slot{}, r.mapper.MapError(err)
	}
	return slot, nil
}

// ListSlots returns slots matching filter ordered by start time.
func (r *queries) ListSlots(ctx context.Context, filter persistence.SlotFilter) ([]persistence.Slot, error) {
	var (
		where []string
		args  []any
	)
	if !filter.IncludeDeleted {
		where = append(where, "is_deleted = 0")
	}
	if len(filter.PanelistIDs) > 0 {
		where = append(where, "panelist_id IN ("+placeholders(len(filter.PanelistIDs))+")")
		for _, id := range filter.PanelistIDs {
			args = append(args, id)
		}
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.OverlapStart != nil && filter.OverlapEnd != nil {
		where = append(where, "start_time < ? AND ? < end_time")
		args = append(args, formatTime(*filter.OverlapEnd), formatTime(*filter.OverlapStart))
	}
	if filter.WithinStart != nil {
		where = append(where, "start_time >= ?")
		args = append(args, formatTime(*filter.WithinStart))
	}
	if filter.WithinEnd != nil {
		where = append(where, "end_time <= ?")
		args = append(args, formatTime(*filter.WithinEnd))
	}
	if filter.ExcludeID != "" {
		where = append(where, "id <> ?")
		args = append(args, filter.ExcludeID)
	}

	query := `SELECT ` + slotColumns + ` FROM slots`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY start_time, id"

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var slots []persistence.Slot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return slots, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSlot(row rowScanner) (persistence.Slot, error) {
	var (
		slot                             persistence.Slot
		start, end, createdAt, updatedAt string
		deleted                          int
	)
	if err := row.Scan(
		&slot.ID,
		&slot.PanelistID,
		&start,
		&end,
		&slot.Status,
		&deleted,
		&slot.CreatedBy,
		&slot.UpdatedBy,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.Slot{}, err
	}
	slot.Deleted = deleted != 0

	var err error
	if slot.Start, err = parseTime("start_time", start); err != nil {
		return persistence.Slot{}, err
	}
	if slot.End, err = parseTime("end_time", end); err != nil {
		return persistence.Slot{}, err
	}
	if slot.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Slot{}, err
	}
	if slot.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return persistence.Slot{}, err
	}
	return slot, nil
}

func expectRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}
