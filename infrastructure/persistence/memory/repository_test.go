package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jayli58/do-we-have-it-backend/domain/inventory"
)

const user = "user-1"

func TestFolders_ScopedByParentAndUser(t *testing.T) {
	ctx := context.Background()
	repo := NewInventoryRepository()
	now := time.Now()

	root := inventory.NewFolder("Kitchen", "", now)
	child := inventory.NewFolder("Drawer", root.ID, now)
	require.NoError(t, repo.CreateFolder(ctx, user, root))
	require.NoError(t, repo.CreateFolder(ctx, user, child))

	roots, err := repo.ListFolders(ctx, user, "")
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, "Kitchen", roots[0].Name)

	other, err := repo.ListFolders(ctx, "someone-else", "")
	require.NoError(t, err)
	assert.Empty(t, other)

	// wrong parent leaves the record alone
	require.NoError(t, repo.DeleteFolder(ctx, user, child.ID, ""))
	got, err := repo.GetFolder(ctx, user, child.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	require.NoError(t, repo.DeleteFolder(ctx, user, child.ID, root.ID))
	got, err = repo.GetFolder(ctx, user, child.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestItems_DropInvalidAttributesAndCopy(t *testing.T) {
	ctx := context.Background()
	repo := NewInventoryRepository()

	item := inventory.NewItem("Kettle", "", "", []inventory.ItemAttribute{
		{FieldID: "f1", FieldName: "Brand", Value: "Acme"},
		{FieldID: "", FieldName: "Lost"},
	}, time.Now())
	require.NoError(t, repo.CreateItem(ctx, user, item))

	got, err := repo.GetItem(ctx, user, item.ID)
	require.NoError(t, err)
	require.Len(t, got.Attributes, 1)

	got.Name = "mutated"
	again, err := repo.GetItem(ctx, user, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Kettle", again.Name)
}

func TestSearchItems_PrefixAndIntersection(t *testing.T) {
	ctx := context.Background()
	repo := NewInventoryRepository()
	now := time.Now()

	maker := inventory.NewItem("Coffee Maker", "", "", nil, now)
	filters := inventory.NewItem("Coffee Filters", "", "folder-x", nil, now)
	odd := inventory.NewItem("vdsvew", "", "", nil, now)
	for _, it := range []*inventory.Item{maker, filters, odd} {
		require.NoError(t, repo.CreateItem(ctx, user, it))
	}

	tests := []struct {
		query string
		want  []string
	}{
		{"coffee maker", []string{maker.ID}},
		{"coffee makerr", nil},
		{"coffee", []string{maker.ID, filters.ID}},
		{"vds", []string{odd.ID}},
		{"vdsw", nil},
		{"   ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			items, err := repo.SearchItems(ctx, user, tt.query)
			require.NoError(t, err)
			ids := make([]string, 0, len(items))
			for _, it := range items {
				ids = append(ids, it.ID)
			}
			assert.ElementsMatch(t, tt.want, ids)
		})
	}
}

func TestTemplates(t *testing.T) {
	ctx := context.Background()
	repo := NewInventoryRepository()

	tmpl := inventory.NewFormTemplate("Appliance", []inventory.FormField{{ID: "f1", Name: "Brand"}}, time.Now())
	require.NoError(t, repo.CreateTemplate(ctx, user, tmpl))

	list, err := repo.ListTemplates(ctx, user)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, inventory.FieldTypeText, list[0].Fields[0].Type)

	require.NoError(t, repo.DeleteTemplate(ctx, user, tmpl.ID))
	got, err := repo.GetTemplate(ctx, user, tmpl.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}
