// Package postgres — queries.go holds shared query helpers: migration
// execution, transactions, error classification.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// uniqueViolation is the SQLSTATE for unique constraint failures.
const uniqueViolation = "23505"

// ExecMigrationSQL applies one migration inside a transaction and records its
// version. Returns false when the version was already applied.
//
// Parameters:
//   - ctx: context
//   - pool: connection pool
//   - version: migration number, written to schema_migrations
//   - sql: migration body
func ExecMigrationSQL(ctx context.Context, pool *pgxpool.Pool, version int, sql string) (bool, error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	err = tx.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)", version,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check migration: %w", err)
	}
	if exists {
		return false, nil
	}

	if _, err := tx.Exec(ctx, sql); err != nil {
		return false, fmt.Errorf("execute migration %d: %w", version, err)
	}

	if _, err := tx.Exec(ctx,
		"INSERT INTO schema_migrations (version) VALUES ($1)", version,
	); err != nil {
		return false, fmt.Errorf("record migration version: %w", err)
	}

	return true, tx.Commit(ctx)
}

// InTx runs fn inside one transaction. fn's error rolls everything back;
// a nil return commits.
func InTx(ctx context.Context, pool *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// LockUser takes the row lock on users.id inside tx. Every write that must
// serialize per user (ledger writes, lazy subscription creation, hard quota
// inserts) goes through it. Returns pgx.ErrNoRows when the user is missing.
func LockUser(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (int64, error) {
	var points int64
	err := tx.QueryRow(ctx,
		`SELECT loyalty_points FROM users WHERE id = $1 FOR UPDATE`, userID,
	).Scan(&points)
	return points, err
}

// IsUniqueViolation reports whether err is a unique constraint failure.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// IsNoRows reports whether err means the query matched nothing.
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
