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

// TemplateHandler handles form template requests
type TemplateHandler struct {
	templates *services.TemplateService
	logger    *zap.Logger
}

func NewTemplateHandler(templates *services.TemplateService, logger *zap.Logger) *TemplateHandler {
	return &TemplateHandler{templates: templates, logger: logger}
}

// TemplateRequest is the body of template create and update requests.
type TemplateRequest struct {
	ID     string                `json:"id,omitempty"`
	Name   string                `json:"name" validate:"max=200"`
	Fields []inventory.FormField `json:"fields" validate:"max=100"`
}

func (req TemplateRequest) input() services.TemplateInput {
	return services.TemplateInput{Name: req.Name, Fields: req.Fields}
}

// ListTemplates handles GET /templates
func (h *TemplateHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		respondUnauthorized(w)
		return
	}

	templates, err := h.templates.ListTemplates(r.Context(), uid)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, templates)
}

// GetTemplate handles GET /templates/{id}
func (h *TemplateHandler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		respondUnauthorized(w)
		return
	}

	template, err := h.templates.GetTemplate(r.Context(), uid, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, template)
}

// CreateTemplate handles POST /templates
func (h *TemplateHandler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		respondUnauthorized(w)
		return
	}

	var req TemplateRequest
	if err := decode(w, r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}

	template, err := h.templates.CreateTemplate(r.Context(), uid, req.input())
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, template)
}

// UpdateTemplate handles PUT /templates/{id}
func (h *TemplateHandler) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		respondUnauthorized(w)
		return
	}

	id := chi.URLParam(r, "id")
	var req TemplateRequest
	if err := decode(w, r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}
	if req.ID != "" && !strings.EqualFold(req.ID, id) {
		respondError(w, h.logger, mismatch("Template"))
		return
	}

	template, err := h.templates.UpdateTemplate(r.Context(), uid, id, req.input())
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, template)
}

// DeleteTemplate handles DELETE /templates/{id}
func (h *TemplateHandler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		respondUnauthorized(w)
		return
	}

	if err := h.templates.DeleteTemplate(r.Context(), uid, chi.URLParam(r, "id")); err != nil {
		respondError(w, h.logger, err)
		return
	}
	common.RespondNoContent(w)
}
