package dynamodb

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyLayout(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"user partition", UserPK("u1"), "USER#u1"},
		{"root folder", FolderSK(ParentKey(""), "folder-a"), "FOLDER#ROOT#folder-a"},
		{"nested folder", FolderSK(ParentKey("folder-a"), "folder-b"), "FOLDER#folder-a#folder-b"},
		{"root item", ItemSK(ParentKey("  "), "item-1"), "ITEM#ROOT#item-1"},
		{"nested item", ItemSK("folder-a", "item-1"), "ITEM#folder-a#item-1"},
		{"template", TemplateSK("tmpl-1"), "TEMPLATE#tmpl-1"},
		{"search row", SearchSK("item-1", "coffee", RootKey), "SEARCH#ITEM#item-1#TOKEN#coffee#PARENT#ROOT"},
		{"index sort key", GSI1SK("coffee", "folder-a", "item-1"), "TOKEN#coffee#PARENT#folder-a#ITEM#item-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestPrefixesDoNotOverlapAcrossKinds(t *testing.T) {
	folder := FolderSK(RootKey, "x")
	item := ItemSK(RootKey, "x")
	tmpl := TemplateSK("x")
	search := SearchSK("x", "t", RootKey)

	assert.True(t, strings.HasPrefix(folder, FolderPrefix(RootKey)))
	assert.False(t, strings.HasPrefix(item, FolderPrefix(RootKey)))
	assert.False(t, strings.HasPrefix(search, ItemPrefix(RootKey)))
	assert.False(t, strings.HasPrefix(tmpl, ItemPrefix(RootKey)))
	assert.True(t, strings.HasPrefix(search, SearchItemPrefix("x")))
	assert.False(t, strings.HasPrefix(SearchSK("x2", "t", RootKey), SearchItemPrefix("x")))
}

func TestParentKeyRoundTrip(t *testing.T) {
	assert.Equal(t, "", ParentIDFromKey(ParentKey("")))
	assert.Equal(t, "folder-a", ParentIDFromKey(ParentKey("folder-a")))
}

func TestParseGSI1SK(t *testing.T) {
	token, parent, item, err := ParseGSI1SK(GSI1SK("maker", RootKey, "item-9"))
	require.NoError(t, err)
	assert.Equal(t, "maker", token)
	assert.Equal(t, RootKey, parent)
	assert.Equal(t, "item-9", item)

	for _, bad := range []string{"", "ITEM#x", "TOKEN#a", "TOKEN#a#PARENT#ROOT"} {
		_, _, _, err := ParseGSI1SK(bad)
		assert.Error(t, err, bad)
	}
}
