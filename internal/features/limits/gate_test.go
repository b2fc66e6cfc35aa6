package limits

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"crackedgrain.shop/storefront/internal/common"
	"crackedgrain.shop/storefront/internal/config"
)

type fixedTier struct {
	tier common.Tier
	err  error
}

func (f fixedTier) ResolveTier(context.Context, uuid.UUID) (common.Tier, error) {
	return f.tier, f.err
}

type fixedCounts map[Resource]int

func (f fixedCounts) Count(_ context.Context, _ uuid.UUID, r Resource) (int, error) {
	return f[r], nil
}

var defaults = Ceilings{ResourceBatches: 5, ResourceInventory: 20, ResourceRecipes: 3}

func TestCeilingsFromConfig(t *testing.T) {
	c := CeilingsFromConfig(&config.Config{LimitFreeBatches: 5, LimitFreeInventory: 20, LimitFreeRecipes: 3})
	assert.Equal(t, defaults, c)
}

func TestFreeTierBoundary(t *testing.T) {
	ctx := context.Background()
	user := uuid.New()

	for resource, ceiling := range defaults {
		t.Run(string(resource), func(t *testing.T) {
			below := NewGate(fixedTier{tier: common.TierFree}, fixedCounts{resource: ceiling - 1}, defaults, false)
			d, err := below.Check(ctx, user, resource)
			require.NoError(t, err)
			assert.True(t, d.Allowed)
			assert.Equal(t, ceiling-1, d.CurrentCount)

			at := NewGate(fixedTier{tier: common.TierFree}, fixedCounts{resource: ceiling}, defaults, false)
			d, err = at.Enforce(ctx, user, resource)
			require.Error(t, err)
			assert.False(t, d.Allowed)
			assert.ErrorIs(t, err, common.ErrLimitReached)

			var le *LimitError
			require.True(t, errors.As(err, &le))
			assert.Equal(t, ceiling, le.Decision.CurrentCount)
			assert.Equal(t, ceiling, le.Decision.Limit)
			assert.Equal(t, common.TierFree, le.Decision.Tier)
		})
	}
}

func TestPremiumAlwaysAllowed(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		count := rapid.IntRange(0, 10_000).Draw(t, "count")
		resource := rapid.SampledFrom(Resources).Draw(t, "resource")

		g := NewGate(fixedTier{tier: common.TierPremium}, fixedCounts{resource: count}, defaults, false)
		d, err := g.Enforce(context.Background(), uuid.New(), resource)
		require.NoError(t, err)
		require.True(t, d.Allowed)
		require.Equal(t, Unlimited, d.Limit)
		require.Equal(t, count, d.CurrentCount)
	})
}

func TestCheckErrors(t *testing.T) {
	ctx := context.Background()

	g := NewGate(fixedTier{tier: common.TierFree}, fixedCounts{}, defaults, false)
	_, err := g.Check(ctx, uuid.New(), Resource("kegs"))
	assert.ErrorIs(t, err, common.ErrValidation)

	boom := errors.New("db down")
	g = NewGate(fixedTier{err: boom}, fixedCounts{}, defaults, false)
	_, err = g.Check(ctx, uuid.New(), ResourceRecipes)
	assert.ErrorIs(t, err, boom)
}

func TestUsage(t *testing.T) {
	g := NewGate(fixedTier{}, fixedCounts{ResourceBatches: 2, ResourceRecipes: 1}, defaults, false)

	u, err := g.Usage(context.Background(), uuid.New(), common.TierFree)
	require.NoError(t, err)
	assert.Equal(t, map[Resource]int{ResourceBatches: 2, ResourceInventory: 0, ResourceRecipes: 1}, u.Counts)
	assert.Equal(t, 3, u.Limits[ResourceRecipes])

	u, err = g.Usage(context.Background(), uuid.New(), common.TierPremium)
	require.NoError(t, err)
	for _, r := range Resources {
		assert.Equal(t, Unlimited, u.Limits[r])
	}
}

func TestWriteDenied(t *testing.T) {
	w := httptest.NewRecorder()
	WriteDenied(w, &LimitError{Decision: Decision{
		Resource: ResourceRecipes, CurrentCount: 3, Limit: 3, Tier: common.TierFree,
	}})

	assert.Equal(t, 403, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["limitReached"])
	assert.EqualValues(t, 3, body["currentCount"])
	assert.EqualValues(t, 3, body["limit"])
	assert.Equal(t, "free", body["tier"])
	assert.NotEmpty(t, body["error"])
}
