// Package pgtest opens a migrated PostgreSQL pool for repository tests.
// Tests skip when TEST_DATABASE_URL is not set or the server is unreachable.
package pgtest

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"crackedgrain.shop/storefront/internal/db/postgres"
)

// Open returns a pool on TEST_DATABASE_URL with the schema applied.
// The pool is closed when the test ends.
func Open(tb testing.TB) *pgxpool.Pool {
	tb.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		tb.Skip("TEST_DATABASE_URL not set, skipping postgres test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		tb.Fatalf("open pool: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		tb.Skipf("skipping: could not connect to postgres: %v", err)
	}
	if err := postgres.RunMigrations(ctx, pool, postgres.Schema); err != nil {
		pool.Close()
		tb.Fatalf("migrate: %v", err)
	}

	tb.Cleanup(pool.Close)
	return pool
}

// CreateUser inserts a throwaway user and returns its id.
func CreateUser(tb testing.TB, pool *pgxpool.Pool) uuid.UUID {
	tb.Helper()

	id := uuid.New()
	_, err := pool.Exec(context.Background(), `
		INSERT INTO users (id, email, name, password_hash)
		VALUES ($1, $2, 'Test Brewer', 'x')
	`, id, id.String()+"@test.crackedgrain.shop")
	if err != nil {
		tb.Fatalf("create user: %v", err)
	}
	return id
}
