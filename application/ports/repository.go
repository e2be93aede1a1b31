// Package ports declares the contracts the application services depend on.
package ports

import (
	"context"

	"github.com/Jayli58/do-we-have-it-backend/domain/inventory"
)

// InventoryRepository stores folders, items and templates for one user at a
// time. Lookups that find nothing return a nil entity and a nil error.
type InventoryRepository interface {
	ListFolders(ctx context.Context, userID, parentID string) ([]*inventory.Folder, error)
	GetFolder(ctx context.Context, userID, folderID string) (*inventory.Folder, error)
	CreateFolder(ctx context.Context, userID string, folder *inventory.Folder) error
	UpdateFolder(ctx context.Context, userID string, folder *inventory.Folder) error
	// DeleteFolder removes the folder record stored under parentID only.
	// Deleting a record that does not exist is not an error.
	DeleteFolder(ctx context.Context, userID, folderID, parentID string) error

	ListItems(ctx context.Context, userID, parentID string) ([]*inventory.Item, error)
	GetItem(ctx context.Context, userID, itemID string) (*inventory.Item, error)
	CreateItem(ctx context.Context, userID string, item *inventory.Item) error
	// UpdateItem rewrites the item and rebuilds its search index entries.
	UpdateItem(ctx context.Context, userID string, item *inventory.Item) error
	// DeleteItem removes the item stored under parentID and its search
	// index entries. Missing records are ignored.
	DeleteItem(ctx context.Context, userID, itemID, parentID string) error
	// SearchItems returns the items matching every token of query by prefix.
	SearchItems(ctx context.Context, userID, query string) ([]*inventory.Item, error)

	ListTemplates(ctx context.Context, userID string) ([]*inventory.FormTemplate, error)
	GetTemplate(ctx context.Context, userID, templateID string) (*inventory.FormTemplate, error)
	CreateTemplate(ctx context.Context, userID string, template *inventory.FormTemplate) error
	UpdateTemplate(ctx context.Context, userID string, template *inventory.FormTemplate) error
	DeleteTemplate(ctx context.Context, userID, templateID string) error
}

// ReconcileReport summarises one search index reconciliation pass.
type ReconcileReport struct {
	ItemsScanned int `json:"itemsScanned"`
	RowsScanned  int `json:"rowsScanned"`
	RowsDeleted  int `json:"rowsDeleted"`
	RowsWritten  int `json:"rowsWritten"`
}

// SearchIndexReconciler repairs the derived search index of a user so it
// matches the items that currently exist.
type SearchIndexReconciler interface {
	ReconcileSearchIndex(ctx context.Context, userID string) (ReconcileReport, error)
}
