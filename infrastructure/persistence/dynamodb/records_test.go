package dynamodb

import (
	"strings"
	"testing"

	"github.com/Jayli58/do-we-have-it-backend/domain/inventory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchRows_DeduplicateCaseInsensitively(t *testing.T) {
	b := NewRecordBuilder(DefaultSanitizer())
	it := item("item-1", "Coffee coffee", "COFFEE maker", "folder-a")

	rows, err := b.SearchRows("u1", it)

	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "SEARCH#ITEM#item-1#TOKEN#coffee#PARENT#folder-a", stringValue(rows[0][AttrSK]))
	assert.Equal(t, "coffee", stringValue(rows[0]["token"]))
	assert.Equal(t, "search", stringValue(rows[0]["entityType"]))
	assert.Equal(t, "TOKEN#maker#PARENT#folder-a#ITEM#item-1", stringValue(rows[1][AttrGSI1SK]))
}

func TestSearchRows_NoTextMeansNoRows(t *testing.T) {
	b := NewRecordBuilder(DefaultSanitizer())
	rows, err := b.SearchRows("u1", item("item-1", "  ", "", ""))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestItemRecord_LongValuesTruncatedButSortKeyIntact(t *testing.T) {
	b := NewRecordBuilder(DefaultSanitizer())
	longID := "item-" + strings.Repeat("a", 120)
	it := item(longID, strings.Repeat("n", 150), "", "",
		inventory.ItemAttribute{FieldID: "f1", FieldName: "Notes", Value: strings.Repeat("v", 300)})

	av, err := b.Item("u1", it)
	require.NoError(t, err)

	assert.Equal(t, ItemSK(RootKey, longID), stringValue(av[AttrSK]))
	assert.Len(t, stringValue(av["name"]), DefaultMaxStringLength)

	back, err := itemFromRecord(av)
	require.NoError(t, err)
	require.Len(t, back.Attributes, 1)
	assert.Len(t, back.Attributes[0].Value, DefaultMaxStringLength)
}

func TestFolderRecord_BlankNameStoredAsNull(t *testing.T) {
	b := NewRecordBuilder(DefaultSanitizer())
	av, err := b.Folder("u1", folder("folder-1", " ", ""))
	require.NoError(t, err)

	assert.Contains(t, av, "name")
	assert.Equal(t, "", stringValue(av["name"]))

	back, err := folderFromRecord(av)
	require.NoError(t, err)
	assert.Equal(t, "", back.Name)
	assert.Equal(t, "", back.ParentID)
}

func TestParseTime(t *testing.T) {
	assert.True(t, parseTime("2024-05-01T08:00:00.1234567Z").Equal(
		parseTime("2024-05-01T08:00:00.1234567+00:00")))
	assert.True(t, parseTime("not a time").IsZero())
	assert.Equal(t, "2025-03-01T10:30:00.123456789Z", formatTime(testNow))
}
