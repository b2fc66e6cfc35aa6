package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crackedgrain.shop/storefront/internal/config"
)

type countingExpirer struct {
	calls atomic.Int32
	err   error
}

func (c *countingExpirer) ExpireDue(context.Context) (int64, error) {
	c.calls.Add(1)
	return 2, c.err
}

type countingReconciler struct{ calls atomic.Int32 }

func (c *countingReconciler) ReconcileAll(context.Context) (int, error) {
	c.calls.Add(1)
	return 1, nil
}

type recordingPruner struct{ before time.Time }

func (p *recordingPruner) PruneAttempts(_ context.Context, before time.Time) (int64, error) {
	p.before = before
	return 3, nil
}

func testConfig() *config.Config {
	return &config.Config{
		AppTimezone:               "America/Chicago",
		JobsExpirySpec:            "0 * * * *",
		JobsReconcileSpec:         "0 3 * * *",
		FeatureExpirySweepEnabled: true,
		FeatureReconcileEnabled:   true,
	}
}

func TestStartRegistersEnabledJobs(t *testing.T) {
	cfg := testConfig()
	s := NewScheduler(cfg, &countingExpirer{}, &countingReconciler{}, &recordingPruner{})
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()
	assert.Len(t, s.cron.Entries(), 2)

	cfg = testConfig()
	cfg.FeatureReconcileEnabled = false
	s2 := NewScheduler(cfg, &countingExpirer{}, &countingReconciler{}, nil)
	require.NoError(t, s2.Start(context.Background()))
	defer s2.Stop()
	assert.Len(t, s2.cron.Entries(), 1)
}

func TestStartRejectsBadSpec(t *testing.T) {
	cfg := testConfig()
	cfg.JobsExpirySpec = "every now and then"
	s := NewScheduler(cfg, &countingExpirer{}, &countingReconciler{}, nil)
	assert.Error(t, s.Start(context.Background()))
}

func TestRunJobs(t *testing.T) {
	expirer := &countingExpirer{}
	reconciler := &countingReconciler{}
	pruner := &recordingPruner{}
	s := NewScheduler(testConfig(), expirer, reconciler, pruner)

	now := time.Date(2026, 6, 15, 3, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	ctx := context.Background()
	s.RunExpiry(ctx)
	s.RunReconcile(ctx)
	s.RunPrune(ctx)

	assert.EqualValues(t, 1, expirer.calls.Load())
	assert.EqualValues(t, 1, reconciler.calls.Load())
	assert.Equal(t, now.Add(-7*24*time.Hour), pruner.before)

	expirer.err = errors.New("db down")
	assert.NotPanics(t, func() { s.RunExpiry(ctx) })

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	s.RunExpiry(cancelled)
	assert.EqualValues(t, 2, expirer.calls.Load(), "cancelled context skips the run")
}
