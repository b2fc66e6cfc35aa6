// Package loyalty keeps the points ledger and the cached balance on users.
// models.go describes the loyalty_transactions table and payloads.
package loyalty

import (
	"time"

	"github.com/google/uuid"
)

// Ledger entry types. Any non-empty type is accepted on award except
// TypeRedemption, which only Redeem writes.
const (
	TypePurchase   = "purchase"
	TypeBonus      = "bonus"
	TypeRedemption = "redemption"
)

// MaxPoints caps a single ledger movement in either direction.
const MaxPoints = 1_000_000

// Column widths of loyalty_transactions.
const (
	maxTypeLength    = 50
	maxOrderIDLength = 255
)

// LedgerEntry is one immutable ledger row. Entries are never updated or
// deleted; the signed sum of a user's entries is their balance.
type LedgerEntry struct {
	ID          uuid.UUID `json:"id" db:"id"`
	UserID      uuid.UUID `json:"userId" db:"user_id"`
	Points      int64     `json:"points" db:"points"`
	Type        string    `json:"type" db:"type"`
	Description *string   `json:"description" db:"description"`
	OrderID     *string   `json:"orderId" db:"order_id"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

// Ledger is the GET /api/loyalty response. TotalPoints is recomputed from
// Transactions, never read from the cache.
type Ledger struct {
	TotalPoints  int64          `json:"totalPoints"`
	Transactions []*LedgerEntry `json:"transactions"`
}

// AwardRequest is the POST /api/loyalty/award body.
type AwardRequest struct {
	Points      int64   `json:"points"`
	Type        string  `json:"type"`
	Description *string `json:"description,omitempty"`
	OrderID     *string `json:"orderId,omitempty"`
}

// RedeemRequest is the POST /api/loyalty/redeem body.
type RedeemRequest struct {
	Points      int64   `json:"points"`
	Description *string `json:"description,omitempty"`
}

// Redemption is the redeem result.
type Redemption struct {
	Transaction *LedgerEntry `json:"transaction"`
	Message     string       `json:"message"`
}
