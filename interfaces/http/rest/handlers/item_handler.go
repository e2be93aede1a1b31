package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Jayli58/do-we-have-it-backend/application/services"
	"github.com/Jayli58/do-we-have-it-backend/domain/inventory"
	"github.com/Jayli58/do-we-have-it-backend/pkg/common"
)

// ItemHandler handles item and search requests
type ItemHandler struct {
	inventory *services.InventoryService
	search    *services.SearchService
	logger    *zap.Logger
}

// NewItemHandler creates a new item handler
func NewItemHandler(inventory *services.InventoryService, search *services.SearchService, logger *zap.Logger) *ItemHandler {
	return &ItemHandler{inventory: inventory, search: search, logger: logger}
}

// ItemRequest is the body of item create and update requests.
type ItemRequest struct {
	ID         string                    `json:"id,omitempty"`
	Name       string                    `json:"name" validate:"max=200"`
	Comments   string                    `json:"comments" validate:"max=2000"`
	ParentID   string                    `json:"parentId"`
	Attributes []inventory.ItemAttribute `json:"attributes" validate:"max=100"`
}

func (req ItemRequest) input() services.ItemInput {
	return services.ItemInput{
		Name:       req.Name,
		Comments:   req.Comments,
		ParentID:   req.ParentID,
		Attributes: req.Attributes,
	}
}

// CreateItem handles POST /items
func (h *ItemHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		respondUnauthorized(w)
		return
	}

	var req ItemRequest
	if err := decode(w, r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}

	item, err := h.inventory.CreateItem(r.Context(), uid, req.input())
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, item)
}

// GetItem handles GET /items/{id}
func (h *ItemHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		respondUnauthorized(w)
		return
	}

	item, err := h.inventory.GetItem(r.Context(), uid, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, item)
}

// UpdateItem handles PUT /items/{id}
func (h *ItemHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		respondUnauthorized(w)
		return
	}

	id := chi.URLParam(r, "id")
	var req ItemRequest
	if err := decode(w, r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}
	if req.ID != "" && !strings.EqualFold(req.ID, id) {
		respondError(w, h.logger, mismatch("Item"))
		return
	}

	item, err := h.inventory.UpdateItem(r.Context(), uid, id, req.input())
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, item)
}

// DeleteItem handles DELETE /items/{id}?parentId=
func (h *ItemHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		respondUnauthorized(w)
		return
	}

	err := h.inventory.DeleteItem(r.Context(), uid, chi.URLParam(r, "id"), r.URL.Query().Get("parentId"))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	common.RespondNoContent(w)
}

// SearchItems handles GET /items/search?query=
func (h *ItemHandler) SearchItems(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		respondUnauthorized(w)
		return
	}

	result, err := h.search.SearchItems(r.Context(), uid, r.URL.Query().Get("query"))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}
