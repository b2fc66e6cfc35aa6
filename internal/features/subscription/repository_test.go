package subscription

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crackedgrain.shop/storefront/internal/common"
	"crackedgrain.shop/storefront/internal/db/postgres/pgtest"
)

func TestRepositoryLazyCreate(t *testing.T) {
	pool := pgtest.Open(t)
	repo := NewRepository(pool)
	svc := NewService(repo)
	ctx := context.Background()
	user := pgtest.CreateUser(t, pool)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Resolve(ctx, user)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	var rows int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM subscriptions WHERE user_id = $1`, user).Scan(&rows))
	assert.Equal(t, 1, rows)

	_, err := repo.CreateDefault(ctx, uuid.New())
	assert.ErrorIs(t, err, common.ErrUserNotFound)
}

func TestRepositoryDowngradeAndExpire(t *testing.T) {
	pool := pgtest.Open(t)
	repo := NewRepository(pool)
	ctx := context.Background()
	now := time.Now()

	lapsedUser := pgtest.CreateUser(t, pool)
	activeUser := pgtest.CreateUser(t, pool)

	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	lapsed := &Subscription{ID: uuid.New(), UserID: lapsedUser, Tier: common.TierPremium, StartedAt: now.Add(-48 * time.Hour), ExpiresAt: &past}
	active := &Subscription{ID: uuid.New(), UserID: activeUser, Tier: common.TierPremium, StartedAt: now, ExpiresAt: &future}
	require.NoError(t, repo.Insert(ctx, lapsed))
	require.NoError(t, repo.Insert(ctx, active))

	got, err := repo.Downgrade(ctx, lapsed.ID, now)
	require.NoError(t, err)
	assert.Equal(t, common.TierFree, got.Tier)
	assert.Nil(t, got.ExpiresAt)

	// second downgrade is a no-op read
	got, err = repo.Downgrade(ctx, lapsed.ID, now)
	require.NoError(t, err)
	assert.Equal(t, common.TierFree, got.Tier)

	again := now.Add(-time.Minute)
	expiring := &Subscription{ID: uuid.New(), UserID: activeUser, Tier: common.TierPremium, StartedAt: now, ExpiresAt: &again}
	require.NoError(t, repo.Insert(ctx, expiring))

	n, err := repo.ExpireDue(ctx, now)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, int64(1))

	latest, err := repo.Latest(ctx, activeUser)
	require.NoError(t, err)
	assert.Equal(t, expiring.ID, latest.ID)
	assert.Equal(t, common.TierFree, latest.Tier)

	var olderTier string
	require.NoError(t, pool.QueryRow(ctx, `SELECT tier FROM subscriptions WHERE id = $1`, active.ID).Scan(&olderTier))
	assert.Equal(t, "premium", olderTier, "history rows are not touched")
}
