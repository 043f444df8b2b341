package database

import (
	"context"

	"resort/internal/models"
)

const userColumns = `id, name, email, phone, role, created_at, updated_at`

// CreateUser inserts the user or refreshes the profile of an existing email.
func (s *queries) CreateUser(ctx context.Context, user *models.User) error {
	query := `INSERT INTO users (name, email, phone, role, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?)
              ON CONFLICT(email) DO UPDATE SET
                name = excluded.name,
                phone = excluded.phone,
                role = excluded.role,
                updated_at = excluded.updated_at
              RETURNING id, created_at`
	if user.Role == "" {
		user.Role = models.RoleGuest
	}
	ts := now()
	err := s.q.QueryRowContext(ctx, query, user.Name, user.Email, user.Phone, user.Role, ts, ts).
		Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		return mapError("create user", err)
	}
	user.UpdatedAt = ts
	return nil
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.Role, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *queries) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	u, err := scanUser(s.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		return nil, notFoundOr("get user", "user", id, err)
	}
	return u, nil
}

func (s *queries) ListUsersByRole(ctx context.Context, role models.UserRole) ([]*models.User, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT `+userColumns+` FROM users WHERE role = ? ORDER BY id ASC`, role)
	if err != nil {
		return nil, mapError("list users", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, mapError("scan user", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("list users", err)
	}
	return users, nil
}
