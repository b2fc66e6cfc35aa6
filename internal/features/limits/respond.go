// Package limits — respond.go renders gate denials.
package limits

import (
	"net/http"

	"crackedgrain.shop/storefront/internal/common"
)

// WriteDenied answers 403 with the machine-readable limit detail:
//
//	{"error": "...", "limitReached": true, "resource": "recipes",
//	 "currentCount": 3, "limit": 3, "tier": "free"}
func WriteDenied(w http.ResponseWriter, e *LimitError) {
	common.WriteJSON(w, http.StatusForbidden, map[string]any{
		"error":        e.Error(),
		"limitReached": true,
		"resource":     e.Decision.Resource,
		"currentCount": e.Decision.CurrentCount,
		"limit":        e.Decision.Limit,
		"tier":         e.Decision.Tier,
	})
}
