package database

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"resort/internal/domain"
	"resort/internal/models"
)

const bookingColumns = `id, user_id, accommodation_id, check_in_date, check_out_date, time_slot,
	adults, children, total_price, status, hold_expires_at, notes, version, created_at, updated_at`

// effectiveEndSQL mirrors models.EffectiveEnd.
const effectiveEndSQL = `CASE WHEN check_out_date IS NOT NULL AND check_out_date > check_in_date
	THEN check_out_date ELSE date(check_in_date, '+1 day') END`

// activeBookingSQL selects bookings that claim their dates at a given unix time.
const activeBookingSQL = `(status = 'approved' OR (status = 'pending' AND (hold_expires_at IS NULL OR hold_expires_at > ?)))`

func scanBooking(row rowScanner) (*models.Booking, error) {
	var (
		b        models.Booking
		checkIn  string
		checkOut sql.NullString
		hold     sql.NullInt64
	)
	err := row.Scan(
		&b.ID, &b.UserID, &b.AccommodationID, &checkIn, &checkOut, &b.TimeSlot,
		&b.Adults, &b.Children, &b.TotalPrice, &b.Status, &hold, &b.Notes, &b.Version,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if b.CheckInDate, err = parseDate(checkIn); err != nil {
		return nil, err
	}
	if checkOut.Valid {
		out, err := parseDate(checkOut.String)
		if err != nil {
			return nil, err
		}
		b.CheckOutDate = &out
	}
	b.HoldExpiresAt = fromUnix(hold)
	return &b, nil
}

func collectBookings(rows *sql.Rows, op string) ([]*models.Booking, error) {
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, mapError(op, err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(op, err)
	}
	return bookings, nil
}

func (s *queries) CreateBooking(ctx context.Context, b *models.Booking) error {
	query := `INSERT INTO bookings (
				user_id, accommodation_id, check_in_date, check_out_date, time_slot,
				adults, children, total_price, status, hold_expires_at, notes, version, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	ts := now()
	result, err := s.q.ExecContext(ctx, query,
		b.UserID,
		b.AccommodationID,
		formatDate(b.CheckInDate),
		nullableDate(b.CheckOutDate),
		b.TimeSlot,
		b.Adults,
		b.Children,
		b.TotalPrice,
		b.Status,
		nullableUnix(b.HoldExpiresAt),
		b.Notes,
		1,
		ts,
		ts,
	)
	if err != nil {
		return mapError("create booking", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return mapError("get last insert id", err)
	}
	b.ID = id
	b.Version = 1
	b.CreatedAt = ts
	b.UpdatedAt = ts
	return nil
}

func (s *queries) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	b, err := scanBooking(s.q.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFoundOr("get booking", "booking", id, err)
	}
	return b, nil
}

// FindOverlappingBookings returns active bookings intersecting [q.Start, q.End)
// ordered by check-in date then id.
func (s *queries) FindOverlappingBookings(ctx context.Context, q domain.OverlapQuery) ([]*models.Booking, error) {
	var (
		where = []string{activeBookingSQL, effectiveEndSQL + ` > ?`}
		args  = []any{q.ActiveAt.Unix(), formatDate(q.Start)}
	)
	if !q.End.IsZero() {
		where = append(where, `check_in_date < ?`)
		args = append(args, formatDate(q.End))
	}
	if q.AccommodationID != 0 {
		where = append(where, `accommodation_id = ?`)
		args = append(args, q.AccommodationID)
	}
	if q.ExcludeID != 0 {
		where = append(where, `id != ?`)
		args = append(args, q.ExcludeID)
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY check_in_date ASC, id ASC`
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError("find overlapping bookings", err)
	}
	return collectBookings(rows, "scan overlapping booking")
}

// ListBookingsOnDate returns bookings of any status whose stay covers date.
func (s *queries) ListBookingsOnDate(ctx context.Context, date time.Time) ([]*models.Booking, error) {
	d := formatDate(date)
	query := `SELECT ` + bookingColumns + ` FROM bookings
              WHERE check_in_date <= ? AND ` + effectiveEndSQL + ` > ?
              ORDER BY check_in_date ASC, id ASC`
	rows, err := s.q.QueryContext(ctx, query, d, d)
	if err != nil {
		return nil, mapError("list bookings on date", err)
	}
	return collectBookings(rows, "scan booking")
}

// ListBookingsInRange returns bookings of any status touching [start, end], both inclusive.
func (s *queries) ListBookingsInRange(ctx context.Context, start, end time.Time) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
              WHERE check_in_date <= ? AND ` + effectiveEndSQL + ` > ?
              ORDER BY check_in_date ASC, id ASC`
	rows, err := s.q.QueryContext(ctx, query, formatDate(end), formatDate(start))
	if err != nil {
		return nil, mapError("list bookings in range", err)
	}
	return collectBookings(rows, "scan booking")
}

func (s *queries) ListExpiredHolds(ctx context.Context, at time.Time) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
              WHERE status = 'pending' AND hold_expires_at IS NOT NULL AND hold_expires_at <= ?
              ORDER BY id ASC`
	rows, err := s.q.QueryContext(ctx, query, at.Unix())
	if err != nil {
		return nil, mapError("list expired holds", err)
	}
	return collectBookings(rows, "scan booking")
}

// UpdateBookingStatus applies an optimistic transition. Leaving pending drops the hold.
func (s *queries) UpdateBookingStatus(ctx context.Context, id, version int64, status models.BookingStatus) error {
	query := `UPDATE bookings
              SET status = ?,
                  hold_expires_at = CASE WHEN ? = 'pending' THEN hold_expires_at ELSE NULL END,
                  version = version + 1,
                  updated_at = ?
              WHERE id = ? AND version = ?`
	result, err := s.q.ExecContext(ctx, query, status, status, now(), id, version)
	if err != nil {
		return mapError("update booking status", err)
	}
	return s.checkVersioned(ctx, result, "bookings", "booking", id)
}

// checkVersioned tells a missing row apart from a stale version.
func (s *queries) checkVersioned(ctx context.Context, result sql.Result, table, entity string, id int64) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return mapError("read affected rows", err)
	}
	if rows > 0 {
		return nil
	}

	var exists int
	err = s.q.QueryRowContext(ctx, `SELECT 1 FROM `+table+` WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		return notFoundOr("check "+entity, entity, id, err)
	}
	return domain.ErrStaleVersion
}
