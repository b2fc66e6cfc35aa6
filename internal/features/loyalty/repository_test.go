package loyalty

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crackedgrain.shop/storefront/internal/common"
	"crackedgrain.shop/storefront/internal/db/postgres/pgtest"
)

func TestRepositoryAppend(t *testing.T) {
	pool := pgtest.Open(t)
	repo := NewRepository(pool)
	ctx := context.Background()
	user := pgtest.CreateUser(t, pool)

	balance, err := repo.Append(ctx, &LedgerEntry{ID: uuid.New(), UserID: user, Points: 100, Type: TypePurchase})
	require.NoError(t, err)
	assert.Equal(t, int64(100), balance)

	_, err = repo.Append(ctx, &LedgerEntry{ID: uuid.New(), UserID: user, Points: -101, Type: TypeRedemption})
	assert.ErrorIs(t, err, common.ErrInsufficientBalance)

	balance, err = repo.Append(ctx, &LedgerEntry{ID: uuid.New(), UserID: user, Points: -100, Type: TypeRedemption})
	require.NoError(t, err)
	assert.Zero(t, balance)

	history, err := repo.History(ctx, user)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, int64(-100), history[0].Points)

	_, err = repo.Append(ctx, &LedgerEntry{ID: uuid.New(), UserID: uuid.New(), Points: 5, Type: TypeBonus})
	assert.ErrorIs(t, err, common.ErrUserNotFound)
}

func TestRepositoryConcurrentWrites(t *testing.T) {
	pool := pgtest.Open(t)
	repo := NewRepository(pool)
	ctx := context.Background()
	user := pgtest.CreateUser(t, pool)

	_, err := repo.Append(ctx, &LedgerEntry{ID: uuid.New(), UserID: user, Points: 50, Type: TypeBonus})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = repo.Append(ctx, &LedgerEntry{ID: uuid.New(), UserID: user, Points: 7, Type: TypePurchase})
		}()
		go func() {
			defer wg.Done()
			_, _ = repo.Append(ctx, &LedgerEntry{ID: uuid.New(), UserID: user, Points: -9, Type: TypeRedemption})
		}()
	}
	wg.Wait()

	cached, err := repo.CachedBalance(ctx, user)
	require.NoError(t, err)
	before, after, err := repo.Reconcile(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, before, after, "cache must equal ledger sum")
	assert.Equal(t, cached, after)
	assert.GreaterOrEqual(t, after, int64(0))
}

func TestRepositoryReconcile(t *testing.T) {
	pool := pgtest.Open(t)
	repo := NewRepository(pool)
	ctx := context.Background()
	user := pgtest.CreateUser(t, pool)

	_, err := repo.Append(ctx, &LedgerEntry{ID: uuid.New(), UserID: user, Points: 30, Type: TypeBonus})
	require.NoError(t, err)

	_, err = pool.Exec(ctx, `UPDATE users SET loyalty_points = 999 WHERE id = $1`, user)
	require.NoError(t, err)

	drifted, err := repo.ListDrifted(ctx)
	require.NoError(t, err)
	assert.Contains(t, drifted, user)

	before, after, err := repo.Reconcile(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(999), before)
	assert.Equal(t, int64(30), after)

	cached, err := repo.CachedBalance(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(30), cached)
}
