// Package inventory holds the user-facing inventory entities: folders,
// items and the form templates used to describe item attributes.
package inventory

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ID prefixes for generated identifiers.
const (
	FolderIDPrefix   = "folder-"
	ItemIDPrefix     = "item-"
	TemplateIDPrefix = "tmpl-"
)

// Folder is a named container. An empty ParentID places it at the root.
type Folder struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ParentID  string    `json:"parentId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewFolder creates a folder with a generated ID and both timestamps set to now.
func NewFolder(name, parentID string, now time.Time) *Folder {
	return &Folder{
		ID:        NewID(FolderIDPrefix),
		Name:      strings.TrimSpace(name),
		ParentID:  strings.TrimSpace(parentID),
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
}

// IsRoot reports whether the folder has no parent.
func (f *Folder) IsRoot() bool {
	return f.ParentID == ""
}

// NewID returns prefix followed by a random UUID without dashes.
func NewID(prefix string) string {
	return fmt.Sprintf("%s%s", prefix, strings.ReplaceAll(uuid.New().String(), "-", ""))
}

// NameKey is the case-insensitive form used for sibling uniqueness and ordering.
func NameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
