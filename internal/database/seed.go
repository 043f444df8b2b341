package database

import (
	"context"
	"fmt"

	"resort/internal/config"
	"resort/internal/domain"
)

// Seed inserts configured accommodations, prices and users that do not exist yet.
// Existing rows are left as they are so admin edits survive restarts.
func (db *DB) Seed(ctx context.Context, cfg config.SeedConfig) error {
	return db.WithTx(ctx, func(tx domain.Store) error {
		q := tx.(*queries)

		for i := range cfg.Accommodations {
			a := cfg.Accommodations[i]
			var exists int
			err := q.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM accommodations WHERE name = ?`, a.Name).Scan(&exists)
			if err != nil {
				return mapError("check accommodation", err)
			}
			if exists > 0 {
				continue
			}
			if err := q.CreateAccommodation(ctx, &a); err != nil {
				return fmt.Errorf("seed accommodation %s: %w", a.Name, err)
			}
		}

		for i := range cfg.Pricing {
			if err := q.EnsurePricing(ctx, &cfg.Pricing[i]); err != nil {
				return fmt.Errorf("seed pricing %s/%s: %w", cfg.Pricing[i].Category, cfg.Pricing[i].Type, err)
			}
		}

		for i := range cfg.Users {
			u := cfg.Users[i]
			if err := q.CreateUser(ctx, &u); err != nil {
				return fmt.Errorf("seed user %s: %w", u.Email, err)
			}
		}
		return nil
	})
}
