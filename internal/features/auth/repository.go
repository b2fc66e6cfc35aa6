// Package auth — repository.go works with the login_attempts table.
package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository stores login attempts.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates the repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// LogAttempt records a login attempt.
func (r *Repository) LogAttempt(ctx context.Context, email string, success bool) error {
	query := `INSERT INTO login_attempts (email, success) VALUES ($1, $2)`
	if _, err := r.db.Exec(ctx, query, strings.TrimSpace(email), success); err != nil {
		return fmt.Errorf("log login attempt: %w", err)
	}
	return nil
}

// RecentFailures counts failed attempts for the email since the given time.
func (r *Repository) RecentFailures(ctx context.Context, email string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM login_attempts
		WHERE email = $1 AND success = FALSE AND attempt_time >= $2
	`
	var count int
	if err := r.db.QueryRow(ctx, query, strings.TrimSpace(email), since).Scan(&count); err != nil {
		return 0, fmt.Errorf("count login failures: %w", err)
	}
	return count, nil
}

// PruneAttempts deletes attempts older than the cutoff. Run from the
// reconciliation job so the table does not grow forever.
func (r *Repository) PruneAttempts(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM login_attempts WHERE attempt_time < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("prune login attempts: %w", err)
	}
	return tag.RowsAffected(), nil
}
