package ports

import (
	"context"
	"time"
)

// Event types published after successful writes.
const (
	EventFolderCreated   = "FolderCreated"
	EventFolderUpdated   = "FolderUpdated"
	EventFolderDeleted   = "FolderDeleted"
	EventItemCreated     = "ItemCreated"
	EventItemUpdated     = "ItemUpdated"
	EventItemDeleted     = "ItemDeleted"
	EventTemplateCreated = "TemplateCreated"
	EventTemplateUpdated = "TemplateUpdated"
	EventTemplateDeleted = "TemplateDeleted"
)

// Event describes a change to a user's inventory.
type Event struct {
	Type       string    `json:"type"`
	UserID     string    `json:"userId"`
	EntityID   string    `json:"entityId"`
	ParentID   string    `json:"parentId,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// EventPublisher delivers inventory change events.
type EventPublisher interface {
	Publish(ctx context.Context, events ...Event) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, ...Event) error { return nil }
