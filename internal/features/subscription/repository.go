// Package subscription — repository.go works with the subscriptions table.
// Lazy creation locks the user row so two first reads create one row.
package subscription

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"crackedgrain.shop/storefront/internal/common"
	"crackedgrain.shop/storefront/internal/db/postgres"
)

const subscriptionColumns = `id, user_id, tier, started_at, expires_at, payment_method, auto_renew, created_at, updated_at`

// Repository stores subscriptions.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates the repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func scanSubscription(row pgx.Row) (*Subscription, error) {
	var s Subscription
	var tier string
	err := row.Scan(&s.ID, &s.UserID, &tier, &s.StartedAt, &s.ExpiresAt,
		&s.PaymentMethod, &s.AutoRenew, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.Tier = common.Tier(tier)
	return &s, nil
}

// Latest returns the user's most recently created row, or common.ErrNotFound.
func (r *Repository) Latest(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	s, err := scanSubscription(r.db.QueryRow(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, userID))
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("read latest subscription: %w", err)
	}
	return s, nil
}

// CreateDefault inserts a free row unless the user already has one.
// Returns whichever row is current after the call.
func (r *Repository) CreateDefault(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	var out *Subscription
	err := postgres.InTx(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := postgres.LockUser(ctx, tx, userID); err != nil {
			if postgres.IsNoRows(err) {
				return common.ErrUserNotFound
			}
			return fmt.Errorf("lock user: %w", err)
		}

		existing, err := scanSubscription(tx.QueryRow(ctx, `
			SELECT `+subscriptionColumns+`
			FROM subscriptions
			WHERE user_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		`, userID))
		switch {
		case err == nil:
			out = existing
			return nil
		case !postgres.IsNoRows(err):
			return fmt.Errorf("re-read subscription: %w", err)
		}

		out, err = scanSubscription(tx.QueryRow(ctx, `
			INSERT INTO subscriptions (id, user_id, tier, expires_at, auto_renew)
			VALUES ($1, $2, 'free', NULL, FALSE)
			RETURNING `+subscriptionColumns,
			uuid.New(), userID))
		if err != nil {
			return fmt.Errorf("create default subscription: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Downgrade rewrites a lapsed premium row to free with no expiry.
// If another request already downgraded it, the row is returned as is.
func (r *Repository) Downgrade(ctx context.Context, id uuid.UUID, now time.Time) (*Subscription, error) {
	s, err := scanSubscription(r.db.QueryRow(ctx, `
		UPDATE subscriptions
		SET tier = 'free', expires_at = NULL, updated_at = NOW()
		WHERE id = $1 AND tier = 'premium' AND expires_at IS NOT NULL AND expires_at < $2
		RETURNING `+subscriptionColumns,
		id, now))
	if err == nil {
		return s, nil
	}
	if !postgres.IsNoRows(err) {
		return nil, fmt.Errorf("downgrade subscription: %w", err)
	}

	s, err = scanSubscription(r.db.QueryRow(ctx, `
		SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = $1
	`, id))
	if err != nil {
		return nil, fmt.Errorf("re-read subscription: %w", err)
	}
	return s, nil
}

// Insert stores a new current row for the user.
func (r *Repository) Insert(ctx context.Context, s *Subscription) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO subscriptions (id, user_id, tier, started_at, expires_at, payment_method, auto_renew)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`, s.ID, s.UserID, string(s.Tier), s.StartedAt, s.ExpiresAt, s.PaymentMethod, s.AutoRenew,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert subscription: %w", err)
	}
	return nil
}

// SetAutoRenew flips auto_renew on one row.
func (r *Repository) SetAutoRenew(ctx context.Context, id uuid.UUID, autoRenew bool) (*Subscription, error) {
	s, err := scanSubscription(r.db.QueryRow(ctx, `
		UPDATE subscriptions SET auto_renew = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+subscriptionColumns,
		id, autoRenew))
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("update auto renew: %w", err)
	}
	return s, nil
}

// ExpireDue downgrades every user's current premium row whose expiry is
// before now. Older history rows are left alone.
func (r *Repository) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE subscriptions s
		SET tier = 'free', expires_at = NULL, updated_at = NOW()
		FROM (
			SELECT DISTINCT ON (user_id) id
			FROM subscriptions
			ORDER BY user_id, created_at DESC, id DESC
		) latest
		WHERE s.id = latest.id
		  AND s.tier = 'premium'
		  AND s.expires_at IS NOT NULL
		  AND s.expires_at < $1
	`, now)
	if err != nil {
		return 0, fmt.Errorf("expire subscriptions: %w", err)
	}
	return tag.RowsAffected(), nil
}
