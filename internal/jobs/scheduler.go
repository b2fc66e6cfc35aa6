// Package jobs runs the background tasks on cron schedules:
// the subscription expiry sweep, ledger reconciliation and login attempt
// pruning.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"crackedgrain.shop/storefront/internal/common"
	"crackedgrain.shop/storefront/internal/config"
)

// jobTimeout bounds a single run.
const jobTimeout = 5 * time.Minute

// attemptRetention is how long login attempts are kept.
const attemptRetention = 7 * 24 * time.Hour

// Expirer downgrades lapsed subscriptions. *subscription.Service implements it.
type Expirer interface {
	ExpireDue(ctx context.Context) (int64, error)
}

// Reconciler repairs drifted cached balances. *loyalty.Service implements it.
type Reconciler interface {
	ReconcileAll(ctx context.Context) (int, error)
}

// AttemptPruner deletes old login attempts. *auth.Repository implements it.
type AttemptPruner interface {
	PruneAttempts(ctx context.Context, before time.Time) (int64, error)
}

// Scheduler owns the cron runner.
type Scheduler struct {
	cron       *cron.Cron
	cfg        *config.Config
	expirer    Expirer
	reconciler Reconciler
	pruner     AttemptPruner
	now        func() time.Time
}

// NewScheduler creates the scheduler in the shop time zone.
func NewScheduler(cfg *config.Config, expirer Expirer, reconciler Reconciler, pruner AttemptPruner) *Scheduler {
	loc := common.ShopLocation(cfg.AppTimezone)
	logger := cronLogger{entry: log.WithField("component", "cron")}

	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	return &Scheduler{
		cron:       c,
		cfg:        cfg,
		expirer:    expirer,
		reconciler: reconciler,
		pruner:     pruner,
		now:        time.Now,
	}
}

// Start registers the enabled jobs and starts the runner. Jobs stop
// receiving new runs once ctx is done; call Stop to wait for running ones.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.cfg.FeatureExpirySweepEnabled {
		if _, err := s.cron.AddFunc(s.cfg.JobsExpirySpec, func() { s.RunExpiry(ctx) }); err != nil {
			return fmt.Errorf("schedule expiry sweep %q: %w", s.cfg.JobsExpirySpec, err)
		}
	}

	if s.cfg.FeatureReconcileEnabled {
		if _, err := s.cron.AddFunc(s.cfg.JobsReconcileSpec, func() {
			s.RunReconcile(ctx)
			s.RunPrune(ctx)
		}); err != nil {
			return fmt.Errorf("schedule reconciliation %q: %w", s.cfg.JobsReconcileSpec, err)
		}
	}

	s.cron.Start()
	log.WithFields(log.Fields{
		"timezone":  s.cfg.AppTimezone,
		"jobs":      len(s.cron.Entries()),
		"expiry":    s.cfg.JobsExpirySpec,
		"reconcile": s.cfg.JobsReconcileSpec,
	}).Info("scheduler started")
	return nil
}

// Stop stops the runner and waits for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("scheduler stopped")
}

// RunExpiry downgrades every lapsed premium subscription.
func (s *Scheduler) RunExpiry(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	log.Debug("[CRON] subscription expiry sweep")
	n, err := s.expirer.ExpireDue(ctx)
	if err != nil {
		log.WithError(err).Error("[CRON] expiry sweep failed")
		return
	}
	log.WithField("downgraded", n).Info("[CRON] expiry sweep done")
}

// RunReconcile rewrites every drifted cached balance from the ledger.
func (s *Scheduler) RunReconcile(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	log.Debug("[CRON] ledger reconciliation")
	n, err := s.reconciler.ReconcileAll(ctx)
	if err != nil {
		log.WithError(err).WithField("repaired", n).Error("[CRON] reconciliation finished with errors")
		return
	}
	if n > 0 {
		log.WithField("repaired", n).Warn("[CRON] reconciliation repaired balances")
		return
	}
	log.Info("[CRON] reconciliation done, no drift")
}

// RunPrune deletes login attempts older than a week.
func (s *Scheduler) RunPrune(ctx context.Context) {
	if ctx.Err() != nil || s.pruner == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	n, err := s.pruner.PruneAttempts(ctx, s.now().Add(-attemptRetention))
	if err != nil {
		log.WithError(err).Error("[CRON] login attempt pruning failed")
		return
	}
	log.WithField("deleted", n).Debug("[CRON] login attempts pruned")
}

// cronLogger routes cron's own messages to logrus.
type cronLogger struct {
	entry *log.Entry
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(fields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.entry.WithError(err).WithFields(fields(keysAndValues)).Error(msg)
}

func fields(kv []interface{}) log.Fields {
	f := make(log.Fields, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		f[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return f
}
