package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Jayli58/do-we-have-it-backend/application/ports"
	"github.com/Jayli58/do-we-have-it-backend/domain/inventory"
	apperrors "github.com/Jayli58/do-we-have-it-backend/pkg/errors"

	"go.uber.org/zap"
)

// FieldIDPrefix prefixes generated form field ids.
const FieldIDPrefix = "field-"

var fieldTypes = map[string]bool{
	inventory.FieldTypeText:     true,
	inventory.FieldTypeNumber:   true,
	inventory.FieldTypeDate:     true,
	inventory.FieldTypeTextarea: true,
}

// TemplateInput carries the mutable fields of a form template.
type TemplateInput struct {
	Name   string
	Fields []inventory.FormField
}

// TemplateService manages form templates.
type TemplateService struct {
	repo   ports.InventoryRepository
	events ports.EventPublisher
	now    func() time.Time
	logger *zap.Logger
}

// NewTemplateService creates a new template service. events may be nil.
func NewTemplateService(repo ports.InventoryRepository, events ports.EventPublisher, logger *zap.Logger) *TemplateService {
	if events == nil {
		events = ports.NopPublisher{}
	}
	return &TemplateService{repo: repo, events: events, now: time.Now, logger: logger}
}

// ListTemplates returns the user's templates sorted by name.
func (s *TemplateService) ListTemplates(ctx context.Context, userID string) ([]*inventory.FormTemplate, error) {
	templates, err := s.repo.ListTemplates(ctx, userID)
	if err != nil {
		return nil, apperrors.FromStore("list templates", err)
	}
	sort.SliceStable(templates, func(i, j int) bool {
		return inventory.NameKey(templates[i].Name) < inventory.NameKey(templates[j].Name)
	})
	return templates, nil
}

func (s *TemplateService) GetTemplate(ctx context.Context, userID, templateID string) (*inventory.FormTemplate, error) {
	template, err := s.repo.GetTemplate(ctx, userID, templateID)
	if err != nil {
		return nil, apperrors.FromStore("get template", err)
	}
	if template == nil {
		return nil, apperrors.NewNotFoundError("Template")
	}
	return template, nil
}

func (s *TemplateService) CreateTemplate(ctx context.Context, userID string, in TemplateInput) (*inventory.FormTemplate, error) {
	name, fields, err := validateTemplate(in)
	if err != nil {
		return nil, err
	}

	template := inventory.NewFormTemplate(name, fields, s.now())
	if err := s.repo.CreateTemplate(ctx, userID, template); err != nil {
		return nil, apperrors.FromStore("create template", err)
	}
	s.publish(ctx, ports.EventTemplateCreated, userID, template.ID)
	return template, nil
}

// UpdateTemplate replaces a template's name and fields, keeping its
// creation time.
func (s *TemplateService) UpdateTemplate(ctx context.Context, userID, templateID string, in TemplateInput) (*inventory.FormTemplate, error) {
	name, fields, err := validateTemplate(in)
	if err != nil {
		return nil, err
	}

	existing, err := s.GetTemplate(ctx, userID, templateID)
	if err != nil {
		return nil, err
	}

	updated := &inventory.FormTemplate{
		ID:        existing.ID,
		Name:      name,
		Fields:    fields,
		CreatedAt: existing.CreatedAt,
	}
	if err := s.repo.UpdateTemplate(ctx, userID, updated); err != nil {
		return nil, apperrors.FromStore("update template", err)
	}
	s.publish(ctx, ports.EventTemplateUpdated, userID, updated.ID)
	return updated, nil
}

func (s *TemplateService) DeleteTemplate(ctx context.Context, userID, templateID string) error {
	if _, err := s.GetTemplate(ctx, userID, templateID); err != nil {
		return err
	}
	if err := s.repo.DeleteTemplate(ctx, userID, templateID); err != nil {
		return apperrors.FromStore("delete template", err)
	}
	s.publish(ctx, ports.EventTemplateDeleted, userID, templateID)
	return nil
}

// validateTemplate trims the template and assigns ids to new fields.
func validateTemplate(in TemplateInput) (string, []inventory.FormField, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return "", nil, apperrors.NewValidationError("Template name is required.")
	}

	fields := inventory.NormalizeFields(in.Fields)
	for i := range fields {
		if fields[i].Name == "" {
			return "", nil, apperrors.NewValidationError(fmt.Sprintf("Field %d name is required.", i+1))
		}
		if !fieldTypes[fields[i].Type] {
			return "", nil, apperrors.NewValidationError(fmt.Sprintf("Field %q has unsupported type %q.", fields[i].Name, fields[i].Type))
		}
		if fields[i].ID == "" {
			fields[i].ID = inventory.NewID(FieldIDPrefix)
		}
	}
	return name, fields, nil
}

func (s *TemplateService) publish(ctx context.Context, eventType, userID, templateID string) {
	event := ports.Event{Type: eventType, UserID: userID, EntityID: templateID, OccurredAt: s.now().UTC()}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish event",
			zap.String("type", eventType),
			zap.String("entityId", templateID),
			zap.Error(err),
		)
	}
}
