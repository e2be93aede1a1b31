// Package memory provides an in-process InventoryRepository used for local
// runs without DynamoDB and for service tests.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/Jayli58/do-we-have-it-backend/application/ports"
	"github.com/Jayli58/do-we-have-it-backend/domain/inventory"
	"github.com/Jayli58/do-we-have-it-backend/pkg/textindex"
)

type partition struct {
	folders   map[string]*inventory.Folder
	items     map[string]*inventory.Item
	templates map[string]*inventory.FormTemplate
}

// InventoryRepository keeps every user's entities in maps guarded by one
// lock. Returned entities are copies.
type InventoryRepository struct {
	mu    sync.RWMutex
	users map[string]*partition
}

var (
	_ ports.InventoryRepository   = (*InventoryRepository)(nil)
	_ ports.SearchIndexReconciler = (*InventoryRepository)(nil)
)

// NewInventoryRepository creates an empty repository.
func NewInventoryRepository() *InventoryRepository {
	return &InventoryRepository{users: make(map[string]*partition)}
}

// partitionFor must be called with the write lock held.
func (r *InventoryRepository) partitionFor(userID string) *partition {
	p, ok := r.users[userID]
	if !ok {
		p = &partition{
			folders:   make(map[string]*inventory.Folder),
			items:     make(map[string]*inventory.Item),
			templates: make(map[string]*inventory.FormTemplate),
		}
		r.users[userID] = p
	}
	return p
}

func (r *InventoryRepository) read(userID string) *partition {
	return r.users[userID]
}

func (r *InventoryRepository) ListFolders(ctx context.Context, userID, parentID string) ([]*inventory.Folder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*inventory.Folder{}
	if p := r.read(userID); p != nil {
		for _, f := range p.folders {
			if f.ParentID == parentID {
				out = append(out, copyFolder(f))
			}
		}
	}
	return out, nil
}

func (r *InventoryRepository) GetFolder(ctx context.Context, userID, folderID string) (*inventory.Folder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if p := r.read(userID); p != nil {
		if f, ok := p.folders[folderID]; ok {
			return copyFolder(f), nil
		}
	}
	return nil, nil
}

func (r *InventoryRepository) CreateFolder(ctx context.Context, userID string, folder *inventory.Folder) error {
	return r.UpdateFolder(ctx, userID, folder)
}

func (r *InventoryRepository) UpdateFolder(ctx context.Context, userID string, folder *inventory.Folder) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.partitionFor(userID).folders[folder.ID] = copyFolder(folder)
	return nil
}

// DeleteFolder removes the folder only when it is stored under parentID,
// matching a keyed delete.
func (r *InventoryRepository) DeleteFolder(ctx context.Context, userID, folderID, parentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.read(userID)
	if p == nil {
		return nil
	}
	if f, ok := p.folders[folderID]; ok && f.ParentID == parentID {
		delete(p.folders, folderID)
	}
	return nil
}

func (r *InventoryRepository) ListItems(ctx context.Context, userID, parentID string) ([]*inventory.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*inventory.Item{}
	if p := r.read(userID); p != nil {
		for _, it := range p.items {
			if it.ParentID == parentID {
				out = append(out, copyItem(it))
			}
		}
	}
	return out, nil
}

func (r *InventoryRepository) GetItem(ctx context.Context, userID, itemID string) (*inventory.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if p := r.read(userID); p != nil {
		if it, ok := p.items[itemID]; ok {
			return copyItem(it), nil
		}
	}
	return nil, nil
}

func (r *InventoryRepository) CreateItem(ctx context.Context, userID string, item *inventory.Item) error {
	return r.UpdateItem(ctx, userID, item)
}

// UpdateItem stores the item with only its valid attributes, as the
// DynamoDB record builder does.
func (r *InventoryRepository) UpdateItem(ctx context.Context, userID string, item *inventory.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := copyItem(item)
	stored.Attributes = item.ValidAttributes()
	r.partitionFor(userID).items[item.ID] = stored
	return nil
}

func (r *InventoryRepository) DeleteItem(ctx context.Context, userID, itemID, parentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.read(userID)
	if p == nil {
		return nil
	}
	if it, ok := p.items[itemID]; ok && it.ParentID == parentID {
		delete(p.items, itemID)
	}
	return nil
}

// SearchItems returns items where every query token prefixes one of the
// item's name or comment tokens.
func (r *InventoryRepository) SearchItems(ctx context.Context, userID, query string) ([]*inventory.Item, error) {
	tokens := textindex.TokenizeDistinct(query)
	out := []*inventory.Item{}
	if len(tokens) == 0 {
		return out, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	p := r.read(userID)
	if p == nil {
		return out, nil
	}
	for _, it := range p.items {
		if matchesAll(textindex.TokenizeDistinct(it.Name, it.Comments), tokens) {
			out = append(out, copyItem(it))
		}
	}
	return out, nil
}

func matchesAll(indexed, query []string) bool {
	for _, q := range query {
		found := false
		for _, tok := range indexed {
			if strings.HasPrefix(tok, q) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (r *InventoryRepository) ListTemplates(ctx context.Context, userID string) ([]*inventory.FormTemplate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*inventory.FormTemplate{}
	if p := r.read(userID); p != nil {
		for _, t := range p.templates {
			out = append(out, copyTemplate(t))
		}
	}
	return out, nil
}

func (r *InventoryRepository) GetTemplate(ctx context.Context, userID, templateID string) (*inventory.FormTemplate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if p := r.read(userID); p != nil {
		if t, ok := p.templates[templateID]; ok {
			return copyTemplate(t), nil
		}
	}
	return nil, nil
}

func (r *InventoryRepository) CreateTemplate(ctx context.Context, userID string, template *inventory.FormTemplate) error {
	return r.UpdateTemplate(ctx, userID, template)
}

func (r *InventoryRepository) UpdateTemplate(ctx context.Context, userID string, template *inventory.FormTemplate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.partitionFor(userID).templates[template.ID] = copyTemplate(template)
	return nil
}

func (r *InventoryRepository) DeleteTemplate(ctx context.Context, userID, templateID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p := r.read(userID); p != nil {
		delete(p.templates, templateID)
	}
	return nil
}

// ReconcileSearchIndex has nothing to repair: search reads item text directly.
func (r *InventoryRepository) ReconcileSearchIndex(ctx context.Context, userID string) (ports.ReconcileReport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	report := ports.ReconcileReport{}
	if p := r.read(userID); p != nil {
		report.ItemsScanned = len(p.items)
	}
	return report, nil
}

func copyFolder(f *inventory.Folder) *inventory.Folder {
	c := *f
	return &c
}

func copyItem(it *inventory.Item) *inventory.Item {
	c := *it
	c.Attributes = append([]inventory.ItemAttribute(nil), it.Attributes...)
	return &c
}

func copyTemplate(t *inventory.FormTemplate) *inventory.FormTemplate {
	c := *t
	c.Fields = append([]inventory.FormField(nil), t.Fields...)
	return &c
}
