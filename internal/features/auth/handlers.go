// Package auth — handlers.go serves POST /api/auth/register and
// POST /api/auth/login.
package auth

import (
	"errors"
	"net/http"

	"crackedgrain.shop/storefront/internal/common"
)

// Handler serves the auth endpoints.
type Handler struct {
	service *Service
}

// NewHandler creates the auth handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// HandleRegister creates an account. Responds 201 with a session.
//
// Body:
//
//	{"email": "brewer@example.com", "name": "Brewer", "password": "..."}
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := common.DecodeJSON(w, r, &req); err != nil {
		common.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	session, err := h.service.Register(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	common.WriteJSON(w, http.StatusCreated, session)
}

// HandleLogin exchanges credentials for a token.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := common.DecodeJSON(w, r, &req); err != nil {
		common.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	session, err := h.service.Login(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, session)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, common.ErrValidation):
		common.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrEmailTaken):
		common.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, common.ErrBadCredentials):
		common.WriteError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, common.ErrTooManyAttempts):
		common.WriteError(w, http.StatusTooManyRequests, err.Error())
	default:
		common.WriteInternal(w, r, err, "auth request failed")
	}
}
