package sqlite

import (
	"context"
	"strings"

	"github.com/example/interview-scheduler/internal/persistence"
)

const changeRequestColumns = `id, interview_id, panel_id, reason, status, created_by, updated_by, created_at, updated_at`

// CreateChangeRequest inserts a change request.
func (r *queries) CreateChangeRequest(ctx context.Context, request persistence.ChangeRequest) error {
	if request.ID == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO change_requests (`+changeRequestColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		request.ID,
		request.InterviewID,
		request.PanelID,
		request.Reason,
		request.Status,
		request.CreatedBy,
		request.UpdatedBy,
		formatTime(request.CreatedAt),
		formatTime(request.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// UpdateChangeRequest overwrites status, reason and audit columns.
func (r *queries) UpdateChangeRequest(ctx context.Context, request persistence.ChangeRequest) error {
	if request.ID == "" {
		return persistence.ErrNotFound
	}
	result, err := r.q.ExecContext(ctx, `
		UPDATE change_requests
		SET reason = ?, status = ?, updated_by = ?, updated_at = ?
		WHERE id = ?
	`,
		request.Reason,
		request.Status,
		request.UpdatedBy,
		formatTime(request.UpdatedAt),
		request.ID,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return expectRow(result)
}

// GetChangeRequest returns a change request by id.
func (r *queries) GetChangeRequest(ctx context.Context, id string) (persistence.ChangeRequest, error) {
	if id == "" {
		return persistence.ChangeRequest{}, persistence.ErrNotFound
	}
	row := r.q.QueryRowContext(ctx, `SELECT `+changeRequestColumns+` FROM change_requests WHERE id = ?`, id)
	request, err := scanChangeRequest(row)
	if err != nil {
		return persistence.ChangeRequest{}, r.mapper.MapError(err)
	}
	return request, nil
}

// ListChangeRequests returns change requests ordered by creation time.
func (r *queries) ListChangeRequests(ctx context.Context, filter persistence.ChangeRequestFilter) ([]persistence.ChangeRequest, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.PanelID != nil {
		where = append(where, "panel_id = ?")
		args = append(args, *filter.PanelID)
	}
	if len(filter.IDs) > 0 {
		where = append(where, "id IN ("+placeholders(len(filter.IDs))+")")
		for _, id := range filter.IDs {
			args = append(args, id)
		}
	}

	query := `SELECT ` + changeRequestColumns + ` FROM change_requests`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at, id"

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var requests []persistence.ChangeRequest
	for rows.Next() {
		request, err := scanChangeRequest(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		requests = append(requests, request)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return requests, nil
}

func scanChangeRequest(row rowScanner) (persistence.ChangeRequest, error) {
	var (
		request              persistence.ChangeRequest
		createdAt, updatedAt string
	)
	if err := row.Scan(
		&request.ID,
		&request.InterviewID,
		&request.PanelID,
		&request.Reason,
		&request.Status,
		&request.CreatedBy,
		&request.UpdatedBy,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.ChangeRequest{}, err
	}

	var err error
	if request.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.ChangeRequest{}, err
	}
	if request.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return persistence.ChangeRequest{}, err
	}
	return request, nil
}
