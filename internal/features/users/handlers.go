// Package users — handlers.go serves the account endpoints:
// GET /api/me and PATCH /api/me.
package users

import (
	"errors"
	"net/http"

	"crackedgrain.shop/storefront/internal/common"
)

// Handler serves account requests.
type Handler struct {
	service *Service
}

// NewHandler creates the account handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// HandleMe returns the caller's account. loyaltyPoints is the cached balance,
// good for a glance view; GET /api/loyalty has the authoritative total.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.RequireUser(w, r)
	if !ok {
		return
	}

	u, err := h.service.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, common.ErrUserNotFound) {
			common.WriteError(w, http.StatusUnauthorized, common.ErrUnauthorized.Error())
			return
		}
		common.WriteInternal(w, r, err, "failed to load account")
		return
	}
	common.WriteJSON(w, http.StatusOK, u)
}

// HandleUpdateMe changes the display name.
//
// Body:
//
//	{"name": "Grain Goblin"}
func (h *Handler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.RequireUser(w, r)
	if !ok {
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := common.DecodeJSON(w, r, &req); err != nil {
		common.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	u, err := h.service.Rename(r.Context(), userID, req.Name)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrValidation):
			common.WriteError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, common.ErrUserNotFound):
			common.WriteError(w, http.StatusUnauthorized, common.ErrUnauthorized.Error())
		default:
			common.WriteInternal(w, r, err, "failed to rename account")
		}
		return
	}
	common.WriteJSON(w, http.StatusOK, u)
}
