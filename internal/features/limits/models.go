// Package limits implements the per-tier resource gate.
// models.go describes resources, ceilings and gate decisions.
package limits

import (
	"fmt"

	"crackedgrain.shop/storefront/internal/common"
	"crackedgrain.shop/storefront/internal/config"
)

// Resource is a countable, plan-limited collection owned by a user.
type Resource string

const (
	ResourceBatches   Resource = "batches"
	ResourceInventory Resource = "inventory"
	ResourceRecipes   Resource = "recipes"
)

// Resources lists every gated resource in display order.
var Resources = []Resource{ResourceBatches, ResourceInventory, ResourceRecipes}

// Unlimited is the limit reported for tiers without a ceiling.
const Unlimited = -1

// Valid reports whether r is a known resource.
func (r Resource) Valid() bool {
	switch r {
	case ResourceBatches, ResourceInventory, ResourceRecipes:
		return true
	}
	return false
}

// Ceilings maps each resource to its free-tier maximum.
type Ceilings map[Resource]int

// CeilingsFromConfig reads LIMIT_FREE_* (defaults 5 / 20 / 3).
func CeilingsFromConfig(cfg *config.Config) Ceilings {
	return Ceilings{
		ResourceBatches:   cfg.LimitFreeBatches,
		ResourceInventory: cfg.LimitFreeInventory,
		ResourceRecipes:   cfg.LimitFreeRecipes,
	}
}

// Decision is the gate's answer for one resource.
type Decision struct {
	Allowed      bool        `json:"allowed"`
	Resource     Resource    `json:"resource"`
	CurrentCount int         `json:"currentCount"`
	Limit        int         `json:"limit"`
	Tier         common.Tier `json:"tier"`
}

// LimitError is returned when creation is denied. It unwraps to
// common.ErrLimitReached.
type LimitError struct {
	Decision Decision
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("%s limit reached: %d of %d on the %s plan",
		e.Decision.Resource, e.Decision.CurrentCount, e.Decision.Limit, e.Decision.Tier)
}

func (e *LimitError) Unwrap() error {
	return common.ErrLimitReached
}

// Usage is the status view: counts of every resource and the limits that
// apply to the user's tier.
type Usage struct {
	Counts map[Resource]int `json:"usage"`
	Limits map[Resource]int `json:"limits"`
}
