package models

import "time"

type User struct {
	ID        int64     `json:"id" yaml:"-"`
	Name      string    `json:"name" yaml:"name"`
	Email     string    `json:"email" yaml:"email"`
	Phone     string    `json:"phone,omitempty" yaml:"phone"`
	Role      UserRole  `json:"role" yaml:"role"`
	CreatedAt time.Time `json:"created_at" yaml:"-"`
	UpdatedAt time.Time `json:"updated_at" yaml:"-"`
}
