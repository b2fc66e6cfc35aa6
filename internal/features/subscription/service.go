// Package subscription — service.go implements the resolver:
//  1. read the current row;
//  2. none: create a free row with no expiry;
//  3. premium past its expiry: rewrite it to free, no expiry;
//  4. otherwise return it unchanged.
//
// Expiry is applied on read; ExpireDue runs the same downgrade on a schedule
// so users who never read are downgraded too.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"crackedgrain.shop/storefront/internal/common"
)

// Store is the subscription persistence. *Repository implements it.
type Store interface {
	Latest(ctx context.Context, userID uuid.UUID) (*Subscription, error)
	CreateDefault(ctx context.Context, userID uuid.UUID) (*Subscription, error)
	Downgrade(ctx context.Context, id uuid.UUID, now time.Time) (*Subscription, error)
	Insert(ctx context.Context, s *Subscription) error
	SetAutoRenew(ctx context.Context, id uuid.UUID, autoRenew bool) (*Subscription, error)
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
}

// Service resolves and changes subscriptions.
type Service struct {
	repo Store
	now  func() time.Time
}

// NewService creates the subscription service.
func NewService(repo Store) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Resolve returns the user's current subscription with lazy creation and
// lazy expiry applied.
func (s *Service) Resolve(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	sub, err := s.repo.Latest(ctx, userID)
	if errors.Is(err, common.ErrNotFound) {
		sub, err = s.repo.CreateDefault(ctx, userID)
		if err != nil {
			return nil, err
		}
		log.WithField("user_id", userID).Debug("default subscription created")
		return sub, nil
	}
	if err != nil {
		return nil, err
	}
	if !sub.Tier.Valid() {
		return nil, fmt.Errorf("%w: %q on subscription %s", common.ErrInvalidTier, sub.Tier, sub.ID)
	}

	now := s.now()
	if sub.Lapsed(now) {
		expiredAt := *sub.ExpiresAt
		sub, err = s.repo.Downgrade(ctx, sub.ID, now)
		if err != nil {
			return nil, err
		}
		log.WithFields(log.Fields{
			"user_id":    userID,
			"expired_at": expiredAt,
		}).Info("premium subscription lapsed, downgraded to free")
	}
	return sub, nil
}

// ResolveTier is Resolve reduced to the tier. It satisfies
// limits.TierResolver.
func (s *Service) ResolveTier(ctx context.Context, userID uuid.UUID) (common.Tier, error) {
	sub, err := s.Resolve(ctx, userID)
	if err != nil {
		return "", err
	}
	return sub.Tier, nil
}

// Upgrade starts a premium period of the given length from now.
// No payment is taken; paymentMethod is recorded as given.
//
// Parameters:
//   - req.Months: 1 to 24
//   - req.PaymentMethod: free text, e.g. "card"
//   - req.AutoRenew: stored only, renewals are not charged
func (s *Service) Upgrade(ctx context.Context, userID uuid.UUID, req UpgradeRequest) (*Subscription, error) {
	if req.Months < minUpgradeMonths || req.Months > maxUpgradeMonths {
		return nil, fmt.Errorf("%w: months must be between %d and %d",
			common.ErrValidation, minUpgradeMonths, maxUpgradeMonths)
	}
	paymentMethod := strings.TrimSpace(req.PaymentMethod)
	if utf8.RuneCountInString(paymentMethod) > maxPaymentMethodLength {
		return nil, fmt.Errorf("%w: paymentMethod is too long (max %d characters)",
			common.ErrValidation, maxPaymentMethodLength)
	}

	// lazy creation first, so the new row is never the user's only row
	if _, err := s.Resolve(ctx, userID); err != nil {
		return nil, err
	}

	now := s.now()
	expires := now.AddDate(0, req.Months, 0)
	sub := &Subscription{
		ID:        uuid.New(),
		UserID:    userID,
		Tier:      common.TierPremium,
		StartedAt: now,
		ExpiresAt: &expires,
		AutoRenew: req.AutoRenew,
	}
	if paymentMethod != "" {
		sub.PaymentMethod = &paymentMethod
	}

	if err := s.repo.Insert(ctx, sub); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"user_id":    userID,
		"months":     req.Months,
		"expires_at": expires,
	}).Info("subscription upgraded to premium")
	return sub, nil
}

// Cancel turns off auto-renew. Premium access stays until expiry.
func (s *Service) Cancel(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	sub, err := s.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !sub.AutoRenew {
		return sub, nil
	}

	sub, err = s.repo.SetAutoRenew(ctx, sub.ID, false)
	if err != nil {
		return nil, err
	}
	log.WithField("user_id", userID).Info("subscription auto-renew cancelled")
	return sub, nil
}

// ExpireDue downgrades every lapsed current premium row. Called by the
// scheduler.
func (s *Service) ExpireDue(ctx context.Context) (int64, error) {
	n, err := s.repo.ExpireDue(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.WithField("count", n).Info("lapsed subscriptions downgraded")
	}
	return n, nil
}
