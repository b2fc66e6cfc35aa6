// Package loyalty — handlers.go serves:
// GET /api/loyalty, POST /api/loyalty/award, POST /api/loyalty/redeem.
package loyalty

import (
	"errors"
	"net/http"

	"crackedgrain.shop/storefront/internal/common"
)

// Handler serves the loyalty endpoints.
type Handler struct {
	service *Service
}

// NewHandler creates the loyalty handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// HandleLedger returns the caller's history and recomputed total.
//
// Response:
//
//	{"totalPoints": 150, "transactions": [...]}
func (h *Handler) HandleLedger(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.RequireUser(w, r)
	if !ok {
		return
	}

	ledger, err := h.service.GetLedger(r.Context(), userID)
	if err != nil {
		common.WriteInternal(w, r, err, "failed to read ledger")
		return
	}
	common.WriteJSON(w, http.StatusOK, ledger)
}

// HandleAward credits points to the caller. Responds 201 {"transaction": ...}.
func (h *Handler) HandleAward(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.RequireUser(w, r)
	if !ok {
		return
	}

	var req AwardRequest
	if err := common.DecodeJSON(w, r, &req); err != nil {
		common.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	entry, err := h.service.Award(r.Context(), userID, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	common.WriteJSON(w, http.StatusCreated, map[string]any{"transaction": entry})
}

// HandleRedeem spends the caller's points.
// Responds 200 {"transaction": ..., "message": "Redeemed 100 points. ..."}.
func (h *Handler) HandleRedeem(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.RequireUser(w, r)
	if !ok {
		return
	}

	var req RedeemRequest
	if err := common.DecodeJSON(w, r, &req); err != nil {
		common.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.Redeem(r.Context(), userID, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, common.ErrInvalidAmount),
		errors.Is(err, common.ErrMissingType),
		errors.Is(err, common.ErrReservedType),
		errors.Is(err, common.ErrValidation),
		errors.Is(err, common.ErrInsufficientBalance):
		common.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrUserNotFound):
		common.WriteError(w, http.StatusUnauthorized, common.ErrUnauthorized.Error())
	default:
		common.WriteInternal(w, r, err, "ledger write failed")
	}
}
