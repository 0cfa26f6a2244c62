package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/example/interview-scheduler/internal/persistence"
)

const interviewColumns = `i.id, i.candidate_id, i.hr_id, i.slot_id, i.start_time, i.end_time, i.interview_type, i.mode,
	i.status, i.result, i.feedback, i.rating, i.is_deleted, i.created_by, i.updated_by, i.created_at, i.updated_at`

// CreateInterview inserts an interview and its panelist membership rows.
func (r *queries) CreateInterview(ctx context.Context, interview persistence.Interview) error {
	if interview.ID == "" || !interview.End.After(interview.Start) {
		return persistence.ErrConstraintViolation
	}

	return runInTx(ctx, r.q, func(q querier) error {
		_, err := q.ExecContext(ctx, `
			INSERT INTO interviews (id, candidate_id, hr_id, slot_id, start_time, end_time, interview_type, mode,
				status, result, feedback, rating, is_deleted, created_by, updated_by, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			interview.ID,
			interview.CandidateID,
			interview.HRID,
			interview.SlotID,
			formatTime(interview.Start),
			formatTime(interview.End),
			interview.Type,
			interview.Mode,
			interview.Status,
			interview.Result,
			nullableString(interview.Feedback),
			nullableInt(interview.Rating),
			boolToInt(interview.Deleted),
			interview.CreatedBy,
			interview.UpdatedBy,
			formatTime(interview.CreatedAt),
			formatTime(interview.UpdatedAt),
		)
		if err != nil {
			return r.mapper.MapError(err)
		}
		return r.insertPanelists(ctx, q, interview.ID, interview.PanelistIDs)
	})
}

// UpdateInterview overwrites the mutable columns and replaces the panelist set.
func (r *queries) UpdateInterview(ctx context.Context, interview persistence.Interview) error {
	if interview.ID == "" {
		return persistence.ErrNotFound
	}
	if !interview.End.After(interview.Start) {
		return persistence.ErrConstraintViolation
	}

	return runInTx(ctx, r.q, func(q querier) error {
		result, err := q.ExecContext(ctx, `
			UPDATE interviews
			SET slot_id = ?, start_time = ?, end_time = ?, interview_type = ?, mode = ?, status = ?, result = ?,
				feedback = ?, rating = ?, is_deleted = ?, updated_by = ?, updated_at = ?
			WHERE id = ?
		`,
			interview.SlotID,
			formatTime(interview.Start),
			formatTime(interview.End),
			interview.Type,
			interview.Mode,
			interview.Status,
			interview.Result,
			nullableString(interview.Feedback),
			nullableInt(interview.Rating),
			boolToInt(interview.Deleted),
			interview.UpdatedBy,
			formatTime(interview.UpdatedAt),
			interview.ID,
		)
		if err != nil {
			return r.mapper.MapError(err)
		}
		if err := expectRow(result); err != nil {
			return err
		}

		if _, err := q.ExecContext(ctx, `DELETE FROM interview_panelists WHERE interview_id = ?`, interview.ID); err != nil {
			return r.mapper.MapError(err)
		}
		return r.insertPanelists(ctx, q, interview.ID, interview.PanelistIDs)
	})
}

// GetInterview returns an interview whether or not it is soft-deleted.
func (r *queries) GetInterview(ctx context.Context, id string) (persistence.Interview, error) {
	if id == "" {
		return persistence.Interview{}, persistence.ErrNotFound
	}

	row := r.q.QueryRowContext(ctx, `SELECT `+interviewColumns+` FROM interviews i WHERE i.id = ?`, id)
	interview, err := scanInterview(row)
	if err != nil {
		return persistence.Interview{}, r.mapper.MapError(err)
	}

	panelists, err := r.loadPanelists(ctx, []string{id})
	if err != nil {
		return persistence.Interview{}, err
	}
	interview.PanelistIDs = panelists[id]
	return interview, nil
}

// ListInterviews returns interviews matching filter ordered by start time. Panelist
// matching is exact membership in interview_panelists.
func (r *queries) ListInterviews(ctx context.Context, filter persistence.InterviewFilter) ([]persistence.Interview, error) {
	var (
		where []string
		args  []any
	)
	if !filter.IncludeDeleted {
		where = append(where, "i.is_deleted = 0")
	}
	if filter.CandidateID != nil {
		where = append(where, "i.candidate_id = ?")
		args = append(args, *filter.CandidateID)
	}
	if len(filter.PanelistIDs) > 0 {
		where = append(where, `EXISTS (
			SELECT 1 FROM interview_panelists p
			WHERE p.interview_id = i.id AND p.panelist_id IN (`+placeholders(len(filter.PanelistIDs))+`))`)
		for _, id := range filter.PanelistIDs {
			args = append(args, id)
		}
	}
	if filter.Status != "" {
		where = append(where, "i.status = ?")
		args = append(args, filter.Status)
	}
	if filter.OverlapStart != nil && filter.OverlapEnd != nil {
		where = append(where, "i.start_time < ? AND ? < i.end_time")
		args = append(args, formatTime(*filter.OverlapEnd), formatTime(*filter.OverlapStart))
	}
	if filter.StartsFrom != nil {
		where = append(where, "i.start_time >= ?")
		args = append(args, formatTime(*filter.StartsFrom))
	}
	if filter.StartsBefore != nil {
		where = append(where, "i.start_time < ?")
		args = append(args, formatTime(*filter.StartsBefore))
	}

	query := `SELECT ` + interviewColumns + ` FROM interviews i`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY i.start_time, i.id"

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}

	var (
		interviews []persistence.Interview
		ids        []string
	)
	for rows.Next() {
		interview, err := scanInterview(rows)
		if err != nil {
			rows.Close()
			return nil, r.mapper.MapError(err)
		}
		interviews = append(interviews, interview)
		ids = append(ids, interview.ID)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, r.mapper.MapError(err)
	}
	rows.Close()

	// Membership is loaded after the cursor is closed; the pool may hold one connection.
	panelists, err := r.loadPanelists(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range interviews {
		interviews[i].PanelistIDs = panelists[interviews[i].ID]
	}
	return interviews, nil
}

func (r *queries) insertPanelists(ctx context.Context, q querier, interviewID string, panelistIDs []int64) error {
	seen := make(map[int64]struct{}, len(panelistIDs))
	position := 0
	for _, panelistID := range panelistIDs {
		if _, dup := seen[panelistID]; dup {
			continue
		}
		seen[panelistID] = struct{}{}
		if _, err := q.ExecContext(ctx,
			`INSERT INTO interview_panelists (interview_id, panelist_id, position) VALUES (?, ?, ?)`,
			interviewID, panelistID, position,
		); err != nil {
			return r.mapper.MapError(err)
		}
		position++
	}
	return nil
}

func (r *queries) loadPanelists(ctx context.Context, interviewIDs []string) (map[string][]int64, error) {
	out := make(map[string][]int64, len(interviewIDs))
	if len(interviewIDs) == 0 {
		return out, nil
	}

	args := make([]any, len(interviewIDs))
	for i, id := range interviewIDs {
		args[i] = id
	}
	rows, err := r.q.QueryContext(ctx, `
		SELECT interview_id, panelist_id FROM interview_panelists
		WHERE interview_id IN (`+placeholders(len(interviewIDs))+`)
		ORDER BY interview_id, position
	`, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			interviewID string
			panelistID  int64
		)
		if err := rows.Scan(&interviewID, &panelistID); err != nil {
			return nil, r.mapper.MapError(err)
		}
		out[interviewID] = append(out[interviewID], panelistID)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return out, nil
}

func scanInterview(row rowScanner) (persistence.Interview, error) {
	var (
		interview                        persistence.Interview
		start, end, createdAt, updatedAt string
		feedback                         sql.NullString
		rating                           sql.NullInt64
		deleted                          int
	)
	if err := row.Scan(
		&interview.ID,
		&interview.CandidateID,
		&interview.HRID,
		&interview.SlotID,
		&start,
		&end,
		&interview.Type,
		&interview.Mode,
		&interview.Status,
		&interview.Result,
		&feedback,
		&rating,
		&deleted,
		&interview.CreatedBy,
		&interview.UpdatedBy,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.Interview{}, err
	}

	interview.Deleted = deleted != 0
	if feedback.Valid {
		interview.Feedback = &feedback.String
	}
	if rating.Valid {
		v := int(rating.Int64)
		interview.Rating = &v
	}

	var err error
	if interview.Start, err = parseTime("start_time", start); err != nil {
		return persistence.Interview{}, err
	}
	if interview.End, err = parseTime("end_time", end); err != nil {
		return persistence.Interview{}, err
	}
	if interview.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Interview{}, err
	}
	if interview.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return persistence.Interview{}, err
	}
	return interview, nil
}
