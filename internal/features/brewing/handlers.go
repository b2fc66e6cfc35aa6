// Package brewing — handlers.go serves create, list and delete for
// /api/batches, /api/inventory and /api/recipes.
package brewing

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"crackedgrain.shop/storefront/internal/common"
	"crackedgrain.shop/storefront/internal/features/limits"
)

// Handler serves brewing resources.
type Handler struct {
	service *Service
}

// NewHandler creates the brewing handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// HandleCreateBatch responds 201 with the batch, or 403 with the limit
// detail when the plan is full.
func (h *Handler) HandleCreateBatch(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.RequireUser(w, r)
	if !ok {
		return
	}
	var req BatchRequest
	if err := common.DecodeJSON(w, r, &req); err != nil {
		common.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	b, err := h.service.CreateBatch(r.Context(), userID, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	common.WriteJSON(w, http.StatusCreated, b)
}

// HandleCreateInventoryItem responds 201 with the item.
func (h *Handler) HandleCreateInventoryItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.RequireUser(w, r)
	if !ok {
		return
	}
	var req InventoryRequest
	if err := common.DecodeJSON(w, r, &req); err != nil {
		common.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	item, err := h.service.CreateInventoryItem(r.Context(), userID, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	common.WriteJSON(w, http.StatusCreated, item)
}

// HandleCreateRecipe responds 201 with the recipe.
func (h *Handler) HandleCreateRecipe(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.RequireUser(w, r)
	if !ok {
		return
	}
	var req RecipeRequest
	if err := common.DecodeJSON(w, r, &req); err != nil {
		common.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	rec, err := h.service.CreateRecipe(r.Context(), userID, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	common.WriteJSON(w, http.StatusCreated, rec)
}

func (h *Handler) HandleListBatches(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.RequireUser(w, r)
	if !ok {
		return
	}
	list, err := h.service.ListBatches(r.Context(), userID)
	if err != nil {
		common.WriteInternal(w, r, err, "failed to list batches")
		return
	}
	common.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) HandleListInventoryItems(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.RequireUser(w, r)
	if !ok {
		return
	}
	list, err := h.service.ListInventoryItems(r.Context(), userID)
	if err != nil {
		common.WriteInternal(w, r, err, "failed to list inventory")
		return
	}
	common.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) HandleListRecipes(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.RequireUser(w, r)
	if !ok {
		return
	}
	list, err := h.service.ListRecipes(r.Context(), userID)
	if err != nil {
		common.WriteInternal(w, r, err, "failed to list recipes")
		return
	}
	common.WriteJSON(w, http.StatusOK, list)
}

// HandleDelete returns the DELETE /{id} handler for a resource.
// Responds 204, or 404 when the row is missing or not the caller's.
func (h *Handler) HandleDelete(resource limits.Resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := common.RequireUser(w, r)
		if !ok {
			return
		}
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			common.WriteError(w, http.StatusNotFound, common.ErrNotFound.Error())
			return
		}
		if err := h.service.Delete(r.Context(), resource, userID, id); err != nil {
			h.writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var limitErr *limits.LimitError
	switch {
	case errors.As(err, &limitErr):
		limits.WriteDenied(w, limitErr)
	case errors.Is(err, common.ErrValidation):
		common.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrNotFound):
		common.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, common.ErrUserNotFound):
		common.WriteError(w, http.StatusUnauthorized, common.ErrUnauthorized.Error())
	default:
		common.WriteInternal(w, r, err, "brewing request failed")
	}
}
