package database

import (
	"context"
	"database/sql"
	"time"

	"resort/internal/models"
)

const eventBookingColumns = `id, user_id, event_type, booking_date, guest_count, total_price,
	status, hold_expires_at, notes, version, created_at, updated_at`

func scanEventBooking(row rowScanner) (*models.EventBooking, error) {
	var (
		e    models.EventBooking
		date string
		hold sql.NullInt64
	)
	err := row.Scan(
		&e.ID, &e.UserID, &e.EventType, &date, &e.GuestCount, &e.TotalPrice,
		&e.Status, &hold, &e.Notes, &e.Version, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if e.BookingDate, err = parseDate(date); err != nil {
		return nil, err
	}
	e.HoldExpiresAt = fromUnix(hold)
	return &e, nil
}

func collectEventBookings(rows *sql.Rows, op string) ([]*models.EventBooking, error) {
	defer rows.Close()

	var events []*models.EventBooking
	for rows.Next() {
		e, err := scanEventBooking(rows)
		if err != nil {
			return nil, mapError(op, err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(op, err)
	}
	return events, nil
}

func (s *queries) CreateEventBooking(ctx context.Context, e *models.EventBooking) error {
	query := `INSERT INTO event_bookings (
				user_id, event_type, booking_date, guest_count, total_price,
				status, hold_expires_at, notes, version, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	ts := now()
	result, err := s.q.ExecContext(ctx, query,
		e.UserID, e.EventType, formatDate(e.BookingDate), e.GuestCount, e.TotalPrice,
		e.Status, nullableUnix(e.HoldExpiresAt), e.Notes, 1, ts, ts,
	)
	if err != nil {
		return mapError("create event booking", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return mapError("get last insert id", err)
	}
	e.ID = id
	e.Version = 1
	e.CreatedAt = ts
	e.UpdatedAt = ts
	return nil
}

func (s *queries) GetEventBooking(ctx context.Context, id int64) (*models.EventBooking, error) {
	query := `SELECT ` + eventBookingColumns + ` FROM event_bookings WHERE id = ?`
	e, err := scanEventBooking(s.q.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFoundOr("get event booking", "event booking", id, err)
	}
	return e, nil
}

// ListActiveEventBookings returns the event requests that still reserve date at the given instant.
func (s *queries) ListActiveEventBookings(ctx context.Context, date, at time.Time, excludeID int64) ([]*models.EventBooking, error) {
	query := `SELECT ` + eventBookingColumns + ` FROM event_bookings
              WHERE booking_date = ? AND id != ?
                AND (status IN ('approved', 'confirmed')
                     OR (status = 'pending' AND (hold_expires_at IS NULL OR hold_expires_at > ?)))
              ORDER BY id ASC`
	rows, err := s.q.QueryContext(ctx, query, formatDate(date), excludeID, at.Unix())
	if err != nil {
		return nil, mapError("list active event bookings", err)
	}
	return collectEventBookings(rows, "scan event booking")
}

func (s *queries) ListEventBookingsOnDate(ctx context.Context, date time.Time) ([]*models.EventBooking, error) {
	query := `SELECT ` + eventBookingColumns + ` FROM event_bookings WHERE booking_date = ? ORDER BY id ASC`
	rows, err := s.q.QueryContext(ctx, query, formatDate(date))
	if err != nil {
		return nil, mapError("list event bookings on date", err)
	}
	return collectEventBookings(rows, "scan event booking")
}

func (s *queries) ListEventBookingsInRange(ctx context.Context, start, end time.Time) ([]*models.EventBooking, error) {
	query := `SELECT ` + eventBookingColumns + ` FROM event_bookings
              WHERE booking_date >= ? AND booking_date <= ?
              ORDER BY booking_date ASC, id ASC`
	rows, err := s.q.QueryContext(ctx, query, formatDate(start), formatDate(end))
	if err != nil {
		return nil, mapError("list event bookings in range", err)
	}
	return collectEventBookings(rows, "scan event booking")
}

func (s *queries) ListExpiredEventHolds(ctx context.Context, at time.Time) ([]*models.EventBooking, error) {
	query := `SELECT ` + eventBookingColumns + ` FROM event_bookings
              WHERE status = 'pending' AND hold_expires_at IS NOT NULL AND hold_expires_at <= ?
              ORDER BY id ASC`
	rows, err := s.q.QueryContext(ctx, query, at.Unix())
	if err != nil {
		return nil, mapError("list expired event holds", err)
	}
	return collectEventBookings(rows, "scan event booking")
}

func (s *queries) UpdateEventBookingStatus(ctx context.Context, id, version int64, status models.BookingStatus) error {
	query := `UPDATE event_bookings
              SET status = ?,
                  hold_expires_at = CASE WHEN ? = 'pending' THEN hold_expires_at ELSE NULL END,
                  version = version + 1,
                  updated_at = ?
              WHERE id = ? AND version = ?`
	result, err := s.q.ExecContext(ctx, query, status, status, now(), id, version)
	if err != nil {
		return mapError("update event booking status", err)
	}
	return s.checkVersioned(ctx, result, "event_bookings", "event booking", id)
}
