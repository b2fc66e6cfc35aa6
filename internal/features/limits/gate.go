// Package limits — gate.go decides whether a user may create one more
// resource of a kind.
//
// The check counts rows without a lock, so concurrent creates can overshoot
// a free ceiling by a row or two. Callers that need a hard cap pass the
// decision's Limit into an insert that re-counts under the user row lock
// (see Gate.Strict).
package limits

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"crackedgrain.shop/storefront/internal/common"
)

// TierResolver returns the user's effective tier, applying lazy expiry.
// The subscription service implements it.
type TierResolver interface {
	ResolveTier(ctx context.Context, userID uuid.UUID) (common.Tier, error)
}

// Counter counts a user's rows of a resource. The brewing repository
// implements it.
type Counter interface {
	Count(ctx context.Context, userID uuid.UUID, resource Resource) (int, error)
}

// Gate checks plan limits.
type Gate struct {
	tiers   TierResolver
	counter Counter
	free    Ceilings
	strict  bool
	tracer  trace.Tracer
}

// NewGate creates the gate.
//
// Parameters:
//   - tiers: tier source
//   - counter: resource counts
//   - free: free-tier ceilings
//   - strict: when true, inserts re-check the ceiling under a row lock
func NewGate(tiers TierResolver, counter Counter, free Ceilings, strict bool) *Gate {
	return &Gate{
		tiers:   tiers,
		counter: counter,
		free:    free,
		strict:  strict,
		tracer:  otel.Tracer("crackedgrain.shop/storefront/limits"),
	}
}

// Strict reports whether hard-quota mode is on.
func (g *Gate) Strict() bool {
	return g.strict
}

// LimitFor returns the ceiling for the tier, or Unlimited.
func (g *Gate) LimitFor(tier common.Tier, resource Resource) int {
	if tier == common.TierPremium {
		return Unlimited
	}
	if n, ok := g.free[resource]; ok {
		return n
	}
	return Unlimited
}

// Limits returns the whole limits table for a tier.
func (g *Gate) Limits(tier common.Tier) map[Resource]int {
	out := make(map[Resource]int, len(Resources))
	for _, r := range Resources {
		out[r] = g.LimitFor(tier, r)
	}
	return out
}

// Check resolves the tier and counts the user's rows. Premium users are
// always allowed; the count is still filled in for display. Free users are
// allowed while count < ceiling.
func (g *Gate) Check(ctx context.Context, userID uuid.UUID, resource Resource) (Decision, error) {
	ctx, span := g.tracer.Start(ctx, "limits.check",
		trace.WithAttributes(
			attribute.String("user.id", userID.String()),
			attribute.String("resource", string(resource)),
		),
	)
	defer span.End()

	if !resource.Valid() {
		return Decision{}, fmt.Errorf("%w: unknown resource %q", common.ErrValidation, resource)
	}

	tier, err := g.tiers.ResolveTier(ctx, userID)
	if err != nil {
		return Decision{}, fmt.Errorf("resolve tier: %w", err)
	}

	count, err := g.counter.Count(ctx, userID, resource)
	if err != nil {
		return Decision{}, fmt.Errorf("count %s: %w", resource, err)
	}

	limit := g.LimitFor(tier, resource)
	d := Decision{
		Allowed:      limit == Unlimited || count < limit,
		Resource:     resource,
		CurrentCount: count,
		Limit:        limit,
		Tier:         tier,
	}

	span.SetAttributes(
		attribute.String("tier", string(tier)),
		attribute.Int("count", count),
		attribute.Bool("allowed", d.Allowed),
	)
	return d, nil
}

// Enforce is Check that turns a denial into a *LimitError.
func (g *Gate) Enforce(ctx context.Context, userID uuid.UUID, resource Resource) (Decision, error) {
	d, err := g.Check(ctx, userID, resource)
	if err != nil {
		return d, err
	}
	if !d.Allowed {
		log.WithFields(log.Fields{
			"user_id":  userID,
			"resource": resource,
			"count":    d.CurrentCount,
			"limit":    d.Limit,
		}).Info("plan limit reached")
		return d, &LimitError{Decision: d}
	}
	return d, nil
}

// Usage counts every resource for the status view. The tier comes from
// the caller, which has already resolved the subscription.
func (g *Gate) Usage(ctx context.Context, userID uuid.UUID, tier common.Tier) (*Usage, error) {
	counts := make(map[Resource]int, len(Resources))
	for _, r := range Resources {
		n, err := g.counter.Count(ctx, userID, r)
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", r, err)
		}
		counts[r] = n
	}
	return &Usage{Counts: counts, Limits: g.Limits(tier)}, nil
}
