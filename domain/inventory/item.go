package inventory

import (
	"strings"
	"time"
)

// ItemAttribute is one filled-in template field on an item.
type ItemAttribute struct {
	FieldID   string `json:"fieldId"`
	FieldName string `json:"fieldName"`
	Value     string `json:"value,omitempty"`
}

// Valid reports whether the attribute can be persisted. Entries without an
// id or a name are dropped; an empty value is allowed.
func (a ItemAttribute) Valid() bool {
	return strings.TrimSpace(a.FieldID) != "" && strings.TrimSpace(a.FieldName) != ""
}

// Item is an inventory entry living under an optional folder.
type Item struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Comments   string          `json:"comments"`
	ParentID   string          `json:"parentId,omitempty"`
	Attributes []ItemAttribute `json:"attributes"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// NewItem creates an item with a generated ID. Text fields are trimmed.
func NewItem(name, comments, parentID string, attrs []ItemAttribute, now time.Time) *Item {
	return &Item{
		ID:         NewID(ItemIDPrefix),
		Name:       strings.TrimSpace(name),
		Comments:   strings.TrimSpace(comments),
		ParentID:   strings.TrimSpace(parentID),
		Attributes: NormalizeAttributes(attrs),
		CreatedAt:  now.UTC(),
		UpdatedAt:  now.UTC(),
	}
}

// NormalizeAttributes trims every attribute and keeps the original order.
func NormalizeAttributes(attrs []ItemAttribute) []ItemAttribute {
	out := make([]ItemAttribute, 0, len(attrs))
	for _, a := range attrs {
		out = append(out, ItemAttribute{
			FieldID:   strings.TrimSpace(a.FieldID),
			FieldName: strings.TrimSpace(a.FieldName),
			Value:     strings.TrimSpace(a.Value),
		})
	}
	return out
}

// ValidAttributes returns the attributes that survive persistence.
func (i *Item) ValidAttributes() []ItemAttribute {
	out := make([]ItemAttribute, 0, len(i.Attributes))
	for _, a := range i.Attributes {
		if a.Valid() {
			out = append(out, a)
		}
	}
	return out
}
