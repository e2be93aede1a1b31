package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Jayli58/do-we-have-it-backend/application/services"
	"github.com/Jayli58/do-we-have-it-backend/pkg/common"
)

// FolderHandler handles folder-related HTTP requests
type FolderHandler struct {
	inventory *services.InventoryService
	logger    *zap.Logger
}

// NewFolderHandler creates a new folder handler
func NewFolderHandler(inventory *services.InventoryService, logger *zap.Logger) *FolderHandler {
	return &FolderHandler{inventory: inventory, logger: logger}
}

// CreateFolderRequest represents the request body for creating a folder
type CreateFolderRequest struct {
	Name     string `json:"name" validate:"max=200"`
	ParentID string `json:"parentId"`
}

// UpdateFolderRequest represents the request body for updating a folder
type UpdateFolderRequest struct {
	ID       string `json:"id"`
	Name     string `json:"name" validate:"max=200"`
	ParentID string `json:"parentId"`
}

// GetContents handles GET /folders?parentId=
func (h *FolderHandler) GetContents(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		respondUnauthorized(w)
		return
	}

	contents, err := h.inventory.GetFolderContents(r.Context(), uid, r.URL.Query().Get("parentId"))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, contents)
}

// CreateFolder handles POST /folders
func (h *FolderHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		respondUnauthorized(w)
		return
	}

	var req CreateFolderRequest
	if err := decode(w, r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}

	folder, err := h.inventory.CreateFolder(r.Context(), uid, services.FolderInput{
		Name:     req.Name,
		ParentID: req.ParentID,
	})
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, folder)
}

// UpdateFolder handles PUT /folders/{id}
func (h *FolderHandler) UpdateFolder(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		respondUnauthorized(w)
		return
	}

	id := chi.URLParam(r, "id")
	var req UpdateFolderRequest
	if err := decode(w, r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}
	if req.ID != "" && !strings.EqualFold(req.ID, id) {
		respondError(w, h.logger, mismatch("Folder"))
		return
	}

	folder, err := h.inventory.UpdateFolder(r.Context(), uid, id, services.FolderInput{
		Name:     req.Name,
		ParentID: req.ParentID,
	})
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, folder)
}

// DeleteFolder handles DELETE /folders/{id}
func (h *FolderHandler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		respondUnauthorized(w)
		return
	}

	if err := h.inventory.DeleteFolder(r.Context(), uid, chi.URLParam(r, "id")); err != nil {
		respondError(w, h.logger, err)
		return
	}
	common.RespondNoContent(w)
}
