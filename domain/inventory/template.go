package inventory

import (
	"strings"
	"time"
)

// Supported form field types.
const (
	FieldTypeText     = "text"
	FieldTypeNumber   = "number"
	FieldTypeDate     = "date"
	FieldTypeTextarea = "textarea"
)

// FormField describes one field of a template.
type FormField struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
}

// FormTemplate is a reusable attribute layout. Items refer to its fields by
// id only; nothing at the storage level ties the two together.
type FormTemplate struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Fields    []FormField `json:"fields"`
	CreatedAt time.Time   `json:"createdAt"`
}

// NewFormTemplate creates a template with a generated ID.
func NewFormTemplate(name string, fields []FormField, now time.Time) *FormTemplate {
	return &FormTemplate{
		ID:        NewID(TemplateIDPrefix),
		Name:      strings.TrimSpace(name),
		Fields:    NormalizeFields(fields),
		CreatedAt: now.UTC(),
	}
}

// NormalizeFields trims field ids and names and defaults a blank type to text.
func NormalizeFields(fields []FormField) []FormField {
	out := make([]FormField, 0, len(fields))
	for _, f := range fields {
		typ := strings.ToLower(strings.TrimSpace(f.Type))
		if typ == "" {
			typ = FieldTypeText
		}
		out = append(out, FormField{
			ID:       strings.TrimSpace(f.ID),
			Name:     strings.TrimSpace(f.Name),
			Type:     typ,
			Required: f.Required,
		})
	}
	return out
}
