package models

import (
	"time"
)

// User represents an account in the system
type User struct {
	ID          int       `json:"id" db:"id"`
	Email       string    `json:"email" db:"email" validate:"required,email"`
	Name        string    `json:"name" db:"name"`
	Password    string    `json:"password,omitempty" db:"password" validate:"required,min=5"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	IsStaff     bool      `json:"is_staff" db:"is_staff"`
	IsSuperuser bool      `json:"is_superuser" db:"is_superuser"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
