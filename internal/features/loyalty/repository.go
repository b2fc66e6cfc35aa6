// Package loyalty — repository.go works with loyalty_transactions and the
// users.loyalty_points cache.
// Every write locks the user row first, so concurrent awards and redemptions
// for one user serialize and the cache never loses an update.
package loyalty

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"crackedgrain.shop/storefront/internal/common"
	"crackedgrain.shop/storefront/internal/db/postgres"
)

// Repository provides ledger storage.
type Repository struct {
	db     *pgxpool.Pool
	tracer trace.Tracer
}

// NewRepository creates the ledger repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{
		db:     db,
		tracer: otel.Tracer("crackedgrain.shop/storefront/loyalty"),
	}
}

// Append inserts the entry and moves the cached balance by e.Points in one
// transaction. Returns the balance after the write.
//
// Errors:
//   - common.ErrUserNotFound: no such user
//   - common.ErrInsufficientBalance: negative entry larger than the balance;
//     nothing is written
func (r *Repository) Append(ctx context.Context, e *LedgerEntry) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "loyalty.append",
		trace.WithAttributes(
			attribute.String("user.id", e.UserID.String()),
			attribute.Int64("points", e.Points),
			attribute.String("type", e.Type),
		),
	)
	defer span.End()

	var balance int64
	err := postgres.InTx(ctx, r.db, func(tx pgx.Tx) error {
		cached, err := postgres.LockUser(ctx, tx, e.UserID)
		if err != nil {
			if postgres.IsNoRows(err) {
				return common.ErrUserNotFound
			}
			return fmt.Errorf("lock user: %w", err)
		}

		if e.Points < 0 && cached+e.Points < 0 {
			return fmt.Errorf("%w: need %d, have %d", common.ErrInsufficientBalance, -e.Points, cached)
		}

		err = tx.QueryRow(ctx, `
			INSERT INTO loyalty_transactions (id, user_id, points, type, description, order_id)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING created_at
		`, e.ID, e.UserID, e.Points, e.Type, e.Description, e.OrderID).Scan(&e.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert ledger entry: %w", err)
		}

		err = tx.QueryRow(ctx, `
			UPDATE users
			SET loyalty_points = loyalty_points + $2, updated_at = NOW()
			WHERE id = $1
			RETURNING loyalty_points
		`, e.UserID, e.Points).Scan(&balance)
		if err != nil {
			return fmt.Errorf("update cached balance: %w", err)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}
	return balance, nil
}

// History returns every entry of the user, newest first.
func (r *Repository) History(ctx context.Context, userID uuid.UUID) ([]*LedgerEntry, error) {
	ctx, span := r.tracer.Start(ctx, "loyalty.history",
		trace.WithAttributes(attribute.String("user.id", userID.String())),
	)
	defer span.End()

	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, points, type, description, order_id, created_at
		FROM loyalty_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}
	defer rows.Close()

	entries := make([]*LedgerEntry, 0)
	for rows.Next() {
		var e LedgerEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Points, &e.Type, &e.Description, &e.OrderID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger: %w", err)
	}
	span.SetAttributes(attribute.Int("entries", len(entries)))
	return entries, nil
}

// CachedBalance reads users.loyalty_points.
func (r *Repository) CachedBalance(ctx context.Context, userID uuid.UUID) (int64, error) {
	var balance int64
	err := r.db.QueryRow(ctx, `SELECT loyalty_points FROM users WHERE id = $1`, userID).Scan(&balance)
	if err != nil {
		if postgres.IsNoRows(err) {
			return 0, common.ErrUserNotFound
		}
		return 0, fmt.Errorf("read cached balance: %w", err)
	}
	return balance, nil
}

// Reconcile recomputes the user's balance from the ledger under the row lock
// and rewrites the cache when it differs. Returns the cached value before and
// the ledger sum after.
func (r *Repository) Reconcile(ctx context.Context, userID uuid.UUID) (before, after int64, err error) {
	ctx, span := r.tracer.Start(ctx, "loyalty.reconcile",
		trace.WithAttributes(attribute.String("user.id", userID.String())),
	)
	defer span.End()

	err = postgres.InTx(ctx, r.db, func(tx pgx.Tx) error {
		before, err = postgres.LockUser(ctx, tx, userID)
		if err != nil {
			if postgres.IsNoRows(err) {
				return common.ErrUserNotFound
			}
			return fmt.Errorf("lock user: %w", err)
		}

		err = tx.QueryRow(ctx, `
			SELECT COALESCE(SUM(points), 0)::BIGINT FROM loyalty_transactions WHERE user_id = $1
		`, userID).Scan(&after)
		if err != nil {
			return fmt.Errorf("sum ledger: %w", err)
		}

		if before == after {
			return nil
		}
		_, err = tx.Exec(ctx, `
			UPDATE users SET loyalty_points = $2, updated_at = NOW() WHERE id = $1
		`, userID, after)
		if err != nil {
			return fmt.Errorf("rewrite cached balance: %w", err)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return before, after, err
}

// ListDrifted returns users whose cache disagrees with their ledger sum.
// The check is unlocked; Reconcile re-verifies under the lock.
func (r *Repository) ListDrifted(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `
		SELECT u.id
		FROM users u
		LEFT JOIN (
			SELECT user_id, SUM(points) AS total
			FROM loyalty_transactions
			GROUP BY user_id
		) l ON l.user_id = u.id
		WHERE u.loyalty_points <> COALESCE(l.total, 0)
	`)
	if err != nil {
		return nil, fmt.Errorf("query drifted balances: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
