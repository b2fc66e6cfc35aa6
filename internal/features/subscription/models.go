// Package subscription resolves a user's plan tier.
// models.go describes the subscriptions table.
package subscription

import (
	"time"

	"github.com/google/uuid"

	"crackedgrain.shop/storefront/internal/common"
)

// Subscription is one plan row. The most recently created row per user is
// the current one; older rows are history.
type Subscription struct {
	ID            uuid.UUID   `json:"id" db:"id"`
	UserID        uuid.UUID   `json:"userId" db:"user_id"`
	Tier          common.Tier `json:"tier" db:"tier"`
	StartedAt     time.Time   `json:"startedAt" db:"started_at"`
	ExpiresAt     *time.Time  `json:"expiresAt" db:"expires_at"`
	PaymentMethod *string     `json:"paymentMethod" db:"payment_method"`
	AutoRenew     bool        `json:"autoRenew" db:"auto_renew"`
	CreatedAt     time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time   `json:"updatedAt" db:"updated_at"`
}

// Lapsed reports whether a premium row has passed its expiry.
func (s *Subscription) Lapsed(now time.Time) bool {
	return s.Tier == common.TierPremium && s.ExpiresAt != nil && s.ExpiresAt.Before(now)
}

// UpgradeRequest is the POST /api/subscription/upgrade body.
type UpgradeRequest struct {
	Months        int    `json:"months"`
	PaymentMethod string `json:"paymentMethod"`
	AutoRenew     bool   `json:"autoRenew"`
}

// Upgrade bounds.
const (
	minUpgradeMonths = 1
	maxUpgradeMonths = 24

	maxPaymentMethodLength = 50
)
