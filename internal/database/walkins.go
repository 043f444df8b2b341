package database

import (
	"context"
	"database/sql"
	"time"

	"resort/internal/domain"
	"resort/internal/models"
)

const walkInColumns = `id, client_name, accommodation_id, time_slot, check_in_date,
	checked_out, checked_out_at, created_by, created_at`

func scanWalkIn(row rowScanner) (*models.WalkInLog, error) {
	var (
		w       models.WalkInLog
		accID   sql.NullInt64
		checkIn string
	)
	err := row.Scan(
		&w.ID, &w.ClientName, &accID, &w.TimeSlot, &checkIn,
		&w.CheckedOut, &w.CheckedOutAt, &w.CreatedBy, &w.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if accID.Valid {
		id := accID.Int64
		w.AccommodationID = &id
	}
	if w.CheckInDate, err = parseDate(checkIn); err != nil {
		return nil, err
	}
	return &w, nil
}

func (s *queries) CreateWalkIn(ctx context.Context, w *models.WalkInLog) error {
	query := `INSERT INTO walk_in_logs (
				client_name, accommodation_id, time_slot, check_in_date, checked_out, created_by, created_at
			) VALUES (?, ?, ?, ?, 0, ?, ?)`
	var accID any
	if w.AccommodationID != nil {
		accID = *w.AccommodationID
	}
	ts := now()
	result, err := s.q.ExecContext(ctx, query,
		w.ClientName, accID, w.TimeSlot, formatDate(w.CheckInDate), w.CreatedBy, ts)
	if err != nil {
		return mapError("create walk-in", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return mapError("get last insert id", err)
	}
	w.ID = id
	w.CreatedAt = ts
	w.CheckedOut = false
	return nil
}

func (s *queries) GetWalkIn(ctx context.Context, id int64) (*models.WalkInLog, error) {
	query := `SELECT ` + walkInColumns + ` FROM walk_in_logs WHERE id = ?`
	w, err := scanWalkIn(s.q.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFoundOr("get walk-in", "walk-in", id, err)
	}
	return w, nil
}

// GetOpenWalkIn returns the latest walk-in still occupying the accommodation.
func (s *queries) GetOpenWalkIn(ctx context.Context, accommodationID int64) (*models.WalkInLog, error) {
	query := `SELECT ` + walkInColumns + ` FROM walk_in_logs
              WHERE accommodation_id = ? AND checked_out = 0
              ORDER BY id DESC LIMIT 1`
	w, err := scanWalkIn(s.q.QueryRowContext(ctx, query, accommodationID))
	if err != nil {
		return nil, notFoundOr("get open walk-in", "open walk-in for accommodation", accommodationID, err)
	}
	return w, nil
}

func (s *queries) ListWalkInsByDate(ctx context.Context, date time.Time) ([]*models.WalkInLog, error) {
	query := `SELECT ` + walkInColumns + ` FROM walk_in_logs WHERE check_in_date = ? ORDER BY id ASC`
	rows, err := s.q.QueryContext(ctx, query, formatDate(date))
	if err != nil {
		return nil, mapError("list walk-ins", err)
	}
	defer rows.Close()

	var logs []*models.WalkInLog
	for rows.Next() {
		w, err := scanWalkIn(rows)
		if err != nil {
			return nil, mapError("scan walk-in", err)
		}
		logs = append(logs, w)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("list walk-ins", err)
	}
	return logs, nil
}

func (s *queries) CloseWalkIn(ctx context.Context, id int64, at time.Time) error {
	result, err := s.q.ExecContext(ctx,
		`UPDATE walk_in_logs SET checked_out = 1, checked_out_at = ? WHERE id = ? AND checked_out = 0`,
		at.UTC(), id)
	if err != nil {
		return mapError("close walk-in", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return mapError("read affected rows", err)
	}
	if rows > 0 {
		return nil
	}

	if _, err := s.GetWalkIn(ctx, id); err != nil {
		return err
	}
	return &domain.TransitionError{Entity: "walk-in", From: "checked_out", To: "checked_out"}
}
