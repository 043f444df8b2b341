package database

import (
	"context"

	"resort/internal/domain"
	"resort/internal/models"
)

const accommodationColumns = `id, name, type, capacity, price, add_price, status,
	supports_morning, supports_night, supports_whole_day, created_at, updated_at`

func scanAccommodation(row rowScanner) (*models.Accommodation, error) {
	var a models.Accommodation
	err := row.Scan(
		&a.ID, &a.Name, &a.Type, &a.Capacity, &a.Price, &a.AddPrice, &a.Status,
		&a.SupportsMorning, &a.SupportsNight, &a.SupportsWholeDay, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *queries) CreateAccommodation(ctx context.Context, a *models.Accommodation) error {
	query := `INSERT INTO accommodations (
				name, type, capacity, price, add_price, status,
				supports_morning, supports_night, supports_whole_day, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if a.Status == "" {
		a.Status = models.AccommodationVacant
	}
	ts := now()
	result, err := s.q.ExecContext(ctx, query,
		a.Name, a.Type, a.Capacity, a.Price, a.AddPrice, a.Status,
		a.SupportsMorning, a.SupportsNight, a.SupportsWholeDay, ts, ts,
	)
	if err != nil {
		return mapError("create accommodation", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return mapError("get last insert id", err)
	}
	a.ID = id
	a.CreatedAt = ts
	a.UpdatedAt = ts
	return nil
}

func (s *queries) GetAccommodation(ctx context.Context, id int64) (*models.Accommodation, error) {
	query := `SELECT ` + accommodationColumns + ` FROM accommodations WHERE id = ?`
	a, err := scanAccommodation(s.q.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFoundOr("get accommodation", "accommodation", id, err)
	}
	return a, nil
}

func (s *queries) ListAccommodations(ctx context.Context) ([]*models.Accommodation, error) {
	query := `SELECT ` + accommodationColumns + ` FROM accommodations ORDER BY id ASC`
	rows, err := s.q.QueryContext(ctx, query)
	if err != nil {
		return nil, mapError("list accommodations", err)
	}
	defer rows.Close()

	var items []*models.Accommodation
	for rows.Next() {
		a, err := scanAccommodation(rows)
		if err != nil {
			return nil, mapError("scan accommodation", err)
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("list accommodations", err)
	}
	return items, nil
}

func (s *queries) UpdateAccommodationStatus(ctx context.Context, id int64, status models.AccommodationStatus) error {
	result, err := s.q.ExecContext(ctx,
		`UPDATE accommodations SET status = ?, updated_at = ? WHERE id = ?`, status, now(), id)
	if err != nil {
		return mapError("update accommodation status", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return mapError("read affected rows", err)
	}
	if rows == 0 {
		return domain.NewNotFoundError("accommodation", id)
	}
	return nil
}
