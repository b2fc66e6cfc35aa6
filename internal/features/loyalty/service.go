// Package loyalty — service.go holds the ledger business rules:
// validation, award and redeem, the self-healing read, reconciliation.
package loyalty

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"crackedgrain.shop/storefront/internal/common"
	"crackedgrain.shop/storefront/internal/config"
)

// Store is the ledger persistence. *Repository implements it.
type Store interface {
	Append(ctx context.Context, e *LedgerEntry) (int64, error)
	History(ctx context.Context, userID uuid.UUID) ([]*LedgerEntry, error)
	CachedBalance(ctx context.Context, userID uuid.UUID) (int64, error)
	Reconcile(ctx context.Context, userID uuid.UUID) (before, after int64, err error)
	ListDrifted(ctx context.Context) ([]uuid.UUID, error)
}

// Service manages loyalty points.
type Service struct {
	repo         Store
	writeTimeout time.Duration
	writes       metric.Int64Counter
	repairs      metric.Int64Counter
}

// NewService creates the loyalty service.
func NewService(repo Store, cfg *config.Config) *Service {
	meter := otel.Meter("crackedgrain.shop/storefront/loyalty")

	writes, err := meter.Int64Counter("loyalty.ledger.writes",
		metric.WithDescription("Ledger entries written"))
	if err != nil {
		log.WithError(err).Warn("failed to create ledger write counter")
		writes = noop.Int64Counter{}
	}
	repairs, err := meter.Int64Counter("loyalty.balance.repairs",
		metric.WithDescription("Cached balances rewritten from the ledger"))
	if err != nil {
		log.WithError(err).Warn("failed to create balance repair counter")
		repairs = noop.Int64Counter{}
	}

	timeout := cfg.LoyaltyWriteTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Service{
		repo:         repo,
		writeTimeout: timeout,
		writes:       writes,
		repairs:      repairs,
	}
}

// Append writes one ledger entry and moves the cached balance with it.
// Returns the stored entry and the balance after the write.
//
// The write does not follow the caller's cancellation: once started it runs
// to commit or rollback within writeTimeout, even if the client went away.
//
// Parameters:
//   - userID: owner of the entry
//   - points: signed, non-zero, at most MaxPoints either way
//   - entryType: category tag, required, up to 50 characters
//   - description, orderID: optional; orderID up to 255 characters
func (s *Service) Append(ctx context.Context, userID uuid.UUID, points int64, entryType string, description, orderID *string) (*LedgerEntry, int64, error) {
	entryType = strings.TrimSpace(entryType)
	if points == 0 {
		return nil, 0, common.ErrInvalidAmount
	}
	if points > MaxPoints || points < -MaxPoints {
		return nil, 0, fmt.Errorf("%w: at most %s per transaction", common.ErrInvalidAmount, common.FormatNumber(MaxPoints))
	}
	if entryType == "" {
		return nil, 0, common.ErrMissingType
	}
	if utf8.RuneCountInString(entryType) > maxTypeLength {
		return nil, 0, fmt.Errorf("%w: type is too long (max %d characters)", common.ErrValidation, maxTypeLength)
	}
	orderID = trimOptional(orderID)
	if orderID != nil && utf8.RuneCountInString(*orderID) > maxOrderIDLength {
		return nil, 0, fmt.Errorf("%w: orderId is too long (max %d characters)", common.ErrValidation, maxOrderIDLength)
	}

	e := &LedgerEntry{
		ID:          uuid.New(),
		UserID:      userID,
		Points:      points,
		Type:        entryType,
		Description: trimOptional(description),
		OrderID:     orderID,
	}

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.writeTimeout)
	defer cancel()

	balance, err := s.repo.Append(wctx, e)
	if err != nil {
		return nil, 0, err
	}

	s.writes.Add(wctx, 1, metric.WithAttributes(attribute.String("type", e.Type)))
	log.WithFields(log.Fields{
		"user_id": userID,
		"points":  points,
		"type":    e.Type,
		"balance": balance,
	}).Infof("ledger entry written: %s", common.FormatPointsDelta(points))

	return e, balance, nil
}

// Award credits points.
//
// Errors:
//   - common.ErrInvalidAmount: points <= 0 or above MaxPoints
//   - common.ErrMissingType: blank type
//   - common.ErrValidation: type or orderId too long
//   - common.ErrReservedType: type "redemption"
func (s *Service) Award(ctx context.Context, userID uuid.UUID, req AwardRequest) (*LedgerEntry, error) {
	if req.Points <= 0 {
		return nil, common.ErrInvalidAmount
	}
	if strings.EqualFold(strings.TrimSpace(req.Type), TypeRedemption) {
		return nil, fmt.Errorf("%w: %q", common.ErrReservedType, TypeRedemption)
	}

	e, _, err := s.Append(ctx, userID, req.Points, req.Type, req.Description, req.OrderID)
	return e, err
}

// Redeem spends points. The entry is stored as -points with type
// "redemption" and no order reference.
//
// Example message:
//
//	Redeemed 100 points. Remaining balance: 50 points.
func (s *Service) Redeem(ctx context.Context, userID uuid.UUID, req RedeemRequest) (*Redemption, error) {
	if req.Points <= 0 {
		return nil, common.ErrInvalidAmount
	}

	description := req.Description
	if description == nil || strings.TrimSpace(*description) == "" {
		d := "Points redeemed"
		description = &d
	}

	e, balance, err := s.Append(ctx, userID, -req.Points, TypeRedemption, description, nil)
	if err != nil {
		return nil, err
	}

	return &Redemption{
		Transaction: e,
		Message: fmt.Sprintf("Redeemed %s. Remaining balance: %s.",
			common.FormatPoints(req.Points), common.FormatPoints(balance)),
	}, nil
}

// GetLedger returns the full history and its sum.
//
// The total always comes from the history. When it disagrees with the cached
// balance the cache is repaired. The history and the cache are read without
// a shared snapshot, so a concurrent write can look like drift; Reconcile
// re-checks under the row lock and changes nothing in that case.
func (s *Service) GetLedger(ctx context.Context, userID uuid.UUID) (*Ledger, error) {
	entries, err := s.repo.History(ctx, userID)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []*LedgerEntry{}
	}

	var total int64
	for _, e := range entries {
		total += e.Points
	}

	cached, err := s.repo.CachedBalance(ctx, userID)
	switch {
	case err != nil:
		log.WithError(err).WithField("user_id", userID).Warn("could not read cached balance")
	case cached != total:
		log.WithFields(log.Fields{
			"user_id": userID,
			"cached":  cached,
			"ledger":  total,
		}).Warn("cached balance drifted from ledger")
		if _, err := s.Reconcile(context.WithoutCancel(ctx), userID); err != nil {
			log.WithError(err).WithField("user_id", userID).Error("balance repair failed")
		}
	}

	return &Ledger{TotalPoints: total, Transactions: entries}, nil
}

// Reconcile rewrites the user's cached balance from the ledger.
// Reports whether anything changed.
func (s *Service) Reconcile(ctx context.Context, userID uuid.UUID) (bool, error) {
	before, after, err := s.repo.Reconcile(ctx, userID)
	if err != nil {
		return false, err
	}
	if before == after {
		return false, nil
	}

	s.repairs.Add(ctx, 1)
	log.WithFields(log.Fields{
		"user_id": userID,
		"before":  before,
		"after":   after,
	}).Warn("cached balance repaired")
	return true, nil
}

// ReconcileAll repairs every drifted user. One failing user does not stop
// the rest; failures are joined into the returned error.
func (s *Service) ReconcileAll(ctx context.Context) (int, error) {
	ids, err := s.repo.ListDrifted(ctx)
	if err != nil {
		return 0, err
	}

	var (
		repaired int
		errs     []error
	)
	for _, id := range ids {
		changed, err := s.Reconcile(ctx, id)
		if err != nil {
			if errors.Is(err, common.ErrUserNotFound) {
				continue
			}
			errs = append(errs, fmt.Errorf("reconcile %s: %w", id, err))
			continue
		}
		if changed {
			repaired++
		}
	}
	return repaired, errors.Join(errs...)
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
