package database

import (
	"context"
	"fmt"

	"resort/internal/domain"
	"resort/internal/models"
)

func (s *queries) GetPrice(ctx context.Context, category, typ string) (float64, error) {
	var price float64
	err := s.q.QueryRowContext(ctx,
		`SELECT price FROM pricing_settings WHERE category = ? AND type = ?`, category, typ).Scan(&price)
	if err != nil {
		return 0, notFoundOr("get price", "pricing", fmt.Sprintf("%s/%s", category, typ), err)
	}
	return price, nil
}

func (s *queries) ListPricing(ctx context.Context) ([]*models.PricingSetting, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, category, type, price, updated_at FROM pricing_settings ORDER BY category ASC, type ASC`)
	if err != nil {
		return nil, mapError("list pricing", err)
	}
	defer rows.Close()

	var items []*models.PricingSetting
	for rows.Next() {
		var p models.PricingSetting
		if err := rows.Scan(&p.ID, &p.Category, &p.Type, &p.Price, &p.UpdatedAt); err != nil {
			return nil, mapError("scan pricing", err)
		}
		items = append(items, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("list pricing", err)
	}
	return items, nil
}

func (s *queries) UpdatePrice(ctx context.Context, id int64, price float64) error {
	result, err := s.q.ExecContext(ctx,
		`UPDATE pricing_settings SET price = ?, updated_at = ? WHERE id = ?`, price, now(), id)
	if err != nil {
		return mapError("update price", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return mapError("read affected rows", err)
	}
	if rows == 0 {
		return domain.NewNotFoundError("pricing", id)
	}
	return nil
}

// EnsurePricing inserts a price unless (category, type) already exists.
func (s *queries) EnsurePricing(ctx context.Context, p *models.PricingSetting) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO pricing_settings (category, type, price, updated_at) VALUES (?, ?, ?, ?)
         ON CONFLICT(category, type) DO NOTHING`,
		p.Category, p.Type, p.Price, now())
	if err != nil {
		return mapError("ensure pricing", err)
	}
	return nil
}
