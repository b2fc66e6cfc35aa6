// Package auth handles registration, login and bearer tokens.
// models.go describes the login_attempts table and request payloads.
package auth

import (
	"time"

	"github.com/google/uuid"

	"crackedgrain.shop/storefront/internal/features/users"
)

// LoginAttempt is one recorded login try, used for brute-force lockout.
type LoginAttempt struct {
	ID          int64     `db:"id"`
	Email       string    `db:"email"`
	AttemptTime time.Time `db:"attempt_time"`
	Success     bool      `db:"success"`
}

// RegisterRequest is the POST /api/auth/register body.
type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// LoginRequest is the POST /api/auth/login body.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Session is what a successful register or login returns.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	UserID    uuid.UUID   `json:"userId"`
	User      *users.User `json:"user"`
}

// minPasswordLength applies to new accounts only.
const minPasswordLength = 8
