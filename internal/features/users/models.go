// Package users manages shop accounts.
// models.go describes the users table.
package users

import (
	"time"

	"github.com/google/uuid"
)

// User is a registered shop customer.
// LoyaltyPoints is the cached sum of the user's ledger entries; only the
// loyalty feature writes it.
type User struct {
	ID            uuid.UUID `json:"id" db:"id"`
	Email         string    `json:"email" db:"email"`
	Name          string    `json:"name" db:"name"`
	PasswordHash  string    `json:"-" db:"password_hash"`
	LoyaltyPoints int64     `json:"loyaltyPoints" db:"loyalty_points"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time `json:"updatedAt" db:"updated_at"`
}

// DisplayName returns the name, or the mailbox part of the email when the
// name is blank.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	for i, r := range u.Email {
		if r == '@' {
			return u.Email[:i]
		}
	}
	return u.Email
}
