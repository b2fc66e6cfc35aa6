// Package users — repository.go runs every query against the users table.
// Each method is one SQL statement.
package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"crackedgrain.shop/storefront/internal/common"
	"crackedgrain.shop/storefront/internal/db/postgres"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create inserts a new user. The cached balance starts at zero.
// A duplicate email comes back as common.ErrEmailTaken.
func (r *Repository) Create(ctx context.Context, u *User) error {
	query := `
		INSERT INTO users (id, email, name, password_hash, loyalty_points)
		VALUES ($1, $2, $3, $4, 0)
		RETURNING loyalty_points, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, u.ID, u.Email, u.Name, u.PasswordHash).
		Scan(&u.LoyaltyPoints, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return common.ErrEmailTaken
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetByID returns common.ErrUserNotFound when no row matches.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	query := `
		SELECT id, email, name, password_hash, loyalty_points, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	var u User
	err := r.db.QueryRow(ctx, query, id).Scan(
		&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.LoyaltyPoints, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("read user (id=%s): %w", id, err)
	}
	return &u, nil
}

// GetByEmail is case-insensitive (email is CITEXT).
func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	query := `
		SELECT id, email, name, password_hash, loyalty_points, created_at, updated_at
		FROM users
		WHERE email = $1
	`
	var u User
	err := r.db.QueryRow(ctx, query, strings.TrimSpace(email)).Scan(
		&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.LoyaltyPoints, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("read user (email=%s): %w", email, err)
	}
	return &u, nil
}

func (r *Repository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return exists, nil
}

// UpdateName changes the display name.
func (r *Repository) UpdateName(ctx context.Context, id uuid.UUID, name string) error {
	query := `UPDATE users SET name = $2, updated_at = NOW() WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, id, name)
	if err != nil {
		return fmt.Errorf("update user name: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrUserNotFound
	}
	return nil
}
