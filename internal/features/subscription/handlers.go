// Package subscription — handlers.go serves:
// GET /api/subscription, POST /api/subscription/upgrade,
// POST /api/subscription/cancel.
package subscription

import (
	"errors"
	"net/http"

	"crackedgrain.shop/storefront/internal/common"
	"crackedgrain.shop/storefront/internal/features/limits"
)

// Handler serves the subscription endpoints.
type Handler struct {
	service *Service
	gate    *limits.Gate
}

// NewHandler creates the subscription handler.
func NewHandler(service *Service, gate *limits.Gate) *Handler {
	return &Handler{service: service, gate: gate}
}

// HandleStatus returns the current plan, resource usage and the limits of
// the plan.
//
// Response:
//
//	{"subscription": {...},
//	 "usage":  {"batches": 2, "inventory": 7, "recipes": 3},
//	 "limits": {"batches": 5, "inventory": 20, "recipes": 3}}
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.RequireUser(w, r)
	if !ok {
		return
	}

	sub, err := h.service.Resolve(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	usage, err := h.gate.Usage(r.Context(), userID, sub.Tier)
	if err != nil {
		common.WriteInternal(w, r, err, "failed to count usage")
		return
	}

	common.WriteJSON(w, http.StatusOK, map[string]any{
		"subscription": sub,
		"usage":        usage.Counts,
		"limits":       usage.Limits,
	})
}

// HandleUpgrade starts a premium period. Responds 201 {"subscription": ...}.
//
// Body:
//
//	{"months": 12, "paymentMethod": "card", "autoRenew": true}
func (h *Handler) HandleUpgrade(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.RequireUser(w, r)
	if !ok {
		return
	}

	var req UpgradeRequest
	if err := common.DecodeJSON(w, r, &req); err != nil {
		common.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	sub, err := h.service.Upgrade(r.Context(), userID, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	common.WriteJSON(w, http.StatusCreated, map[string]any{"subscription": sub})
}

// HandleCancel turns off auto-renew.
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.RequireUser(w, r)
	if !ok {
		return
	}

	sub, err := h.service.Cancel(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, map[string]any{"subscription": sub})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, common.ErrValidation):
		common.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrUserNotFound):
		common.WriteError(w, http.StatusUnauthorized, common.ErrUnauthorized.Error())
	default:
		common.WriteInternal(w, r, err, "subscription request failed")
	}
}
