// Package services holds the orchestration layer between the HTTP handlers
// and the inventory repository: validation, sibling-name rules, timestamps
// and change events.
package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/Jayli58/do-we-have-it-backend/application/ports"
	"github.com/Jayli58/do-we-have-it-backend/domain/inventory"
	apperrors "github.com/Jayli58/do-we-have-it-backend/pkg/errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// maxFolderDepth bounds the ancestor walk used to reject folder cycles.
const maxFolderDepth = 256

// FolderContents lists the direct children of one folder.
type FolderContents struct {
	Folders []*inventory.Folder `json:"folders"`
	Items   []*inventory.Item   `json:"items"`
}

// FolderInput carries the mutable fields of a folder.
type FolderInput struct {
	Name     string
	ParentID string
}

// ItemInput carries the mutable fields of an item.
type ItemInput struct {
	Name       string
	Comments   string
	ParentID   string
	Attributes []inventory.ItemAttribute
}

// InventoryService manages folders and items.
type InventoryService struct {
	repo   ports.InventoryRepository
	events ports.EventPublisher
	now    func() time.Time
	logger *zap.Logger
}

// NewInventoryService creates a new inventory service. events may be nil.
func NewInventoryService(repo ports.InventoryRepository, events ports.EventPublisher, logger *zap.Logger) *InventoryService {
	if events == nil {
		events = ports.NopPublisher{}
	}
	return &InventoryService{
		repo:   repo,
		events: events,
		now:    time.Now,
		logger: logger,
	}
}

// GetFolderContents returns the folders and items directly under parentID,
// each sorted case-insensitively by name.
func (s *InventoryService) GetFolderContents(ctx context.Context, userID, parentID string) (*FolderContents, error) {
	parentID = strings.TrimSpace(parentID)
	contents := &FolderContents{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		folders, err := s.repo.ListFolders(gctx, userID, parentID)
		if err != nil {
			return apperrors.FromStore("list folders", err)
		}
		contents.Folders = folders
		return nil
	})
	g.Go(func() error {
		items, err := s.repo.ListItems(gctx, userID, parentID)
		if err != nil {
			return apperrors.FromStore("list items", err)
		}
		contents.Items = items
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sortFolders(contents.Folders)
	sortItems(contents.Items)
	return contents, nil
}

// CreateFolder creates a folder under an existing parent. Sibling names must
// be unique ignoring case.
func (s *InventoryService) CreateFolder(ctx context.Context, userID string, in FolderInput) (*inventory.Folder, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("Folder name is required.")
	}
	parentID := strings.TrimSpace(in.ParentID)

	if err := s.requireFolder(ctx, userID, parentID, "Parent folder"); err != nil {
		return nil, err
	}
	if err := s.ensureUniqueName(ctx, userID, parentID, name, ""); err != nil {
		return nil, err
	}

	folder := inventory.NewFolder(name, parentID, s.now())
	if err := s.repo.CreateFolder(ctx, userID, folder); err != nil {
		return nil, apperrors.FromStore("create folder", err)
	}

	s.logger.Info("Folder created",
		zap.String("userId", userID),
		zap.String("folderId", folder.ID),
	)
	s.publish(ctx, ports.EventFolderCreated, userID, folder.ID, folder.ParentID)
	return folder, nil
}

// UpdateFolder renames and optionally moves a folder. Moving a folder
// deletes the record stored under its old parent first.
func (s *InventoryService) UpdateFolder(ctx context.Context, userID, folderID string, in FolderInput) (*inventory.Folder, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("Folder name is required.")
	}
	parentID := strings.TrimSpace(in.ParentID)

	existing, err := s.repo.GetFolder(ctx, userID, folderID)
	if err != nil {
		return nil, apperrors.FromStore("get folder", err)
	}
	if existing == nil {
		return nil, apperrors.NewNotFoundError("Folder")
	}

	moved := existing.ParentID != parentID
	if moved {
		if err := s.ensureNotDescendant(ctx, userID, existing.ID, parentID); err != nil {
			return nil, err
		}
	}
	if err := s.ensureUniqueName(ctx, userID, parentID, name, existing.ID); err != nil {
		return nil, err
	}

	updated := &inventory.Folder{
		ID:        existing.ID,
		Name:      name,
		ParentID:  parentID,
		CreatedAt: existing.CreatedAt,
		UpdatedAt: s.now().UTC(),
	}

	if moved {
		if err := s.repo.DeleteFolder(ctx, userID, existing.ID, existing.ParentID); err != nil {
			return nil, apperrors.FromStore("move folder", err)
		}
	}
	if err := s.repo.UpdateFolder(ctx, userID, updated); err != nil {
		return nil, apperrors.FromStore("update folder", err)
	}

	s.publish(ctx, ports.EventFolderUpdated, userID, updated.ID, updated.ParentID)
	return updated, nil
}

// DeleteFolder removes a folder with every descendant folder and item.
//
// The tree is collected depth first and deleted children before parents,
// items before their folder. Each step is a keyed delete that ignores
// missing records and the top folder goes last, so retrying after a
// partial failure finishes the job.
func (s *InventoryService) DeleteFolder(ctx context.Context, userID, folderID string) error {
	root, err := s.repo.GetFolder(ctx, userID, folderID)
	if err != nil {
		return apperrors.FromStore("get folder", err)
	}
	if root == nil {
		return apperrors.NewNotFoundError("Folder")
	}

	order, err := s.collectTree(ctx, userID, root)
	if err != nil {
		return err
	}

	deletedItems := 0
	for i := len(order) - 1; i >= 0; i-- {
		folder := order[i]
		if err := ctx.Err(); err != nil {
			return apperrors.FromStore("delete folder", err)
		}

		items, err := s.repo.ListItems(ctx, userID, folder.ID)
		if err != nil {
			return apperrors.FromStore("list items", err)
		}
		for _, item := range items {
			if err := s.repo.DeleteItem(ctx, userID, item.ID, folder.ID); err != nil {
				return apperrors.FromStore("delete item", err)
			}
			deletedItems++
		}

		if err := s.repo.DeleteFolder(ctx, userID, folder.ID, folder.ParentID); err != nil {
			return apperrors.FromStore("delete folder", err)
		}
	}

	s.logger.Info("Folder tree deleted",
		zap.String("userId", userID),
		zap.String("folderId", root.ID),
		zap.Int("folders", len(order)),
		zap.Int("items", deletedItems),
	)
	s.publish(ctx, ports.EventFolderDeleted, userID, root.ID, root.ParentID)
	return nil
}

// collectTree returns root and all its descendants in pre-order.
func (s *InventoryService) collectTree(ctx context.Context, userID string, root *inventory.Folder) ([]*inventory.Folder, error) {
	var order []*inventory.Folder
	seen := map[string]struct{}{root.ID: {}}
	stack := []*inventory.Folder{root}

	for len(stack) > 0 {
		folder := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		order = append(order, folder)

		children, err := s.repo.ListFolders(ctx, userID, folder.ID)
		if err != nil {
			return nil, apperrors.FromStore("list folders", err)
		}
		for _, child := range children {
			if _, ok := seen[child.ID]; ok {
				continue
			}
			seen[child.ID] = struct{}{}
			stack = append(stack, child)
		}
	}
	return order, nil
}

// CreateItem creates an item under an existing parent folder.
func (s *InventoryService) CreateItem(ctx context.Context, userID string, in ItemInput) (*inventory.Item, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("Item name is required.")
	}
	parentID := strings.TrimSpace(in.ParentID)
	if err := s.requireFolder(ctx, userID, parentID, "Parent folder"); err != nil {
		return nil, err
	}

	item := inventory.NewItem(name, in.Comments, parentID, in.Attributes, s.now())
	if err := s.repo.CreateItem(ctx, userID, item); err != nil {
		return nil, apperrors.FromStore("create item", err)
	}

	s.logger.Info("Item created",
		zap.String("userId", userID),
		zap.String("itemId", item.ID),
	)
	s.publish(ctx, ports.EventItemCreated, userID, item.ID, item.ParentID)
	return item, nil
}

// UpdateItem replaces an item's fields. Moving an item deletes the record
// and search entries stored under its old parent first.
func (s *InventoryService) UpdateItem(ctx context.Context, userID, itemID string, in ItemInput) (*inventory.Item, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("Item name is required.")
	}
	parentID := strings.TrimSpace(in.ParentID)

	existing, err := s.repo.GetItem(ctx, userID, itemID)
	if err != nil {
		return nil, apperrors.FromStore("get item", err)
	}
	if existing == nil {
		return nil, apperrors.NewNotFoundError("Item")
	}

	moved := existing.ParentID != parentID
	if moved {
		if err := s.requireFolder(ctx, userID, parentID, "Parent folder"); err != nil {
			return nil, err
		}
	}

	updated := &inventory.Item{
		ID:         existing.ID,
		Name:       name,
		Comments:   strings.TrimSpace(in.Comments),
		ParentID:   parentID,
		Attributes: inventory.NormalizeAttributes(in.Attributes),
		CreatedAt:  existing.CreatedAt,
		UpdatedAt:  s.now().UTC(),
	}

	if moved {
		if err := s.repo.DeleteItem(ctx, userID, existing.ID, existing.ParentID); err != nil {
			return nil, apperrors.FromStore("move item", err)
		}
	}
	if err := s.repo.UpdateItem(ctx, userID, updated); err != nil {
		return nil, apperrors.FromStore("update item", err)
	}

	s.publish(ctx, ports.EventItemUpdated, userID, updated.ID, updated.ParentID)
	return updated, nil
}

// GetItem returns one item or a not-found error.
func (s *InventoryService) GetItem(ctx context.Context, userID, itemID string) (*inventory.Item, error) {
	item, err := s.repo.GetItem(ctx, userID, itemID)
	if err != nil {
		return nil, apperrors.FromStore("get item", err)
	}
	if item == nil {
		return nil, apperrors.NewNotFoundError("Item")
	}
	return item, nil
}

// DeleteItem deletes an item. When parentID is blank the item is looked up
// to find it.
func (s *InventoryService) DeleteItem(ctx context.Context, userID, itemID, parentID string) error {
	parentID = strings.TrimSpace(parentID)
	if parentID == "" {
		existing, err := s.repo.GetItem(ctx, userID, itemID)
		if err != nil {
			return apperrors.FromStore("get item", err)
		}
		if existing == nil {
			return apperrors.NewNotFoundError("Item")
		}
		parentID = existing.ParentID
	}

	if err := s.repo.DeleteItem(ctx, userID, itemID, parentID); err != nil {
		return apperrors.FromStore("delete item", err)
	}
	s.publish(ctx, ports.EventItemDeleted, userID, itemID, parentID)
	return nil
}

// requireFolder checks that folderID names an existing folder. The root is
// always present.
func (s *InventoryService) requireFolder(ctx context.Context, userID, folderID, resource string) error {
	if folderID == "" {
		return nil
	}
	folder, err := s.repo.GetFolder(ctx, userID, folderID)
	if err != nil {
		return apperrors.FromStore("get folder", err)
	}
	if folder == nil {
		return apperrors.NewNotFoundError(resource)
	}
	return nil
}

func (s *InventoryService) ensureUniqueName(ctx context.Context, userID, parentID, name, selfID string) error {
	siblings, err := s.repo.ListFolders(ctx, userID, parentID)
	if err != nil {
		return apperrors.FromStore("list folders", err)
	}
	key := inventory.NameKey(name)
	for _, sibling := range siblings {
		if sibling.ID != selfID && inventory.NameKey(sibling.Name) == key {
			return apperrors.NewConflictError("Folder name must be unique within the parent.")
		}
	}
	return nil
}

// ensureNotDescendant rejects moving folderID under itself or one of its
// descendants, and checks the new parent exists.
func (s *InventoryService) ensureNotDescendant(ctx context.Context, userID, folderID, newParentID string) error {
	current := newParentID
	for depth := 0; current != ""; depth++ {
		if current == folderID {
			return apperrors.NewValidationError("A folder cannot be moved into itself or one of its subfolders.")
		}
		if depth >= maxFolderDepth {
			return apperrors.NewValidationError("Folder hierarchy is too deep.")
		}
		folder, err := s.repo.GetFolder(ctx, userID, current)
		if err != nil {
			return apperrors.FromStore("get folder", err)
		}
		if folder == nil {
			if current == newParentID {
				return apperrors.NewNotFoundError("Parent folder")
			}
			return nil
		}
		current = folder.ParentID
	}
	return nil
}

func (s *InventoryService) publish(ctx context.Context, eventType, userID, entityID, parentID string) {
	event := ports.Event{
		Type:       eventType,
		UserID:     userID,
		EntityID:   entityID,
		ParentID:   parentID,
		OccurredAt: s.now().UTC(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish event",
			zap.String("type", eventType),
			zap.String("entityId", entityID),
			zap.Error(err),
		)
	}
}

func sortFolders(folders []*inventory.Folder) {
	sort.SliceStable(folders, func(i, j int) bool {
		return inventory.NameKey(folders[i].Name) < inventory.NameKey(folders[j].Name)
	})
}

func sortItems(items []*inventory.Item) {
	sort.SliceStable(items, func(i, j int) bool {
		return inventory.NameKey(items[i].Name) < inventory.NameKey(items[j].Name)
	})
}
