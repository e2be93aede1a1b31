package dynamodb

import (
	"fmt"
	"strings"
)

// Attribute names of the table and its search index.
const (
	AttrPK     = "PK"
	AttrSK     = "SK"
	AttrGSI1PK = "GSI1PK"
	AttrGSI1SK = "GSI1SK"

	// RootKey stands in for an absent parent in every parent-scoped key.
	RootKey = "ROOT"
)

// Sort key discriminators.
const (
	folderPrefix   = "FOLDER#"
	itemPrefix     = "ITEM#"
	templatePrefix = "TEMPLATE#"
	searchPrefix   = "SEARCH#ITEM#"
	tokenPrefix    = "TOKEN#"
	parentMarker   = "#PARENT#"
	itemMarker     = "#ITEM#"
	tokenMarker    = "#TOKEN#"
)

// UserPK builds the partition key shared by every record of a user.
func UserPK(userID string) string {
	return "USER#" + userID
}

// ParentKey maps a domain parent id to its key form; blank means root.
func ParentKey(parentID string) string {
	if strings.TrimSpace(parentID) == "" {
		return RootKey
	}
	return parentID
}

// ParentIDFromKey reverses ParentKey.
func ParentIDFromKey(parentKey string) string {
	if parentKey == RootKey {
		return ""
	}
	return parentKey
}

// FolderPrefix is the range-query prefix for the folders directly under parentKey.
func FolderPrefix(parentKey string) string {
	return folderPrefix + parentKey + "#"
}

// FolderSK builds FOLDER#<parentKey>#<folderId>.
func FolderSK(parentKey, folderID string) string {
	return FolderPrefix(parentKey) + folderID
}

// ItemPrefix is the range-query prefix for the items directly under parentKey.
func ItemPrefix(parentKey string) string {
	return itemPrefix + parentKey + "#"
}

// ItemSK builds ITEM#<parentKey>#<itemId>.
func ItemSK(parentKey, itemID string) string {
	return ItemPrefix(parentKey) + itemID
}

// TemplatePrefix selects every template of a user.
func TemplatePrefix() string {
	return templatePrefix
}

// TemplateSK builds TEMPLATE#<templateId>.
func TemplateSK(templateID string) string {
	return templatePrefix + templateID
}

// SearchItemPrefix selects every search row belonging to one item.
func SearchItemPrefix(itemID string) string {
	return searchPrefix + itemID + "#"
}

// SearchSK builds SEARCH#ITEM#<itemId>#TOKEN#<token>#PARENT#<parentKey>.
func SearchSK(itemID, token, parentKey string) string {
	return searchPrefix + itemID + tokenMarker + token + parentMarker + parentKey
}

// TokenPrefix is the index sort key prefix matched during search.
func TokenPrefix(token string) string {
	return tokenPrefix + token
}

// GSI1SK builds TOKEN#<token>#PARENT#<parentKey>#ITEM#<itemId>.
func GSI1SK(token, parentKey, itemID string) string {
	return tokenPrefix + token + parentMarker + parentKey + itemMarker + itemID
}

// ParseGSI1SK splits an index sort key back into its parts. Tokens never
// contain '#', so the markers are unambiguous.
func ParseGSI1SK(sk string) (token, parentKey, itemID string, err error) {
	rest, ok := strings.CutPrefix(sk, tokenPrefix)
	if !ok {
		return "", "", "", fmt.Errorf("index key %q: missing %s prefix", sk, tokenPrefix)
	}
	token, rest, ok = strings.Cut(rest, parentMarker)
	if !ok {
		return "", "", "", fmt.Errorf("index key %q: missing parent segment", sk)
	}
	parentKey, itemID, ok = strings.Cut(rest, itemMarker)
	if !ok || itemID == "" {
		return "", "", "", fmt.Errorf("index key %q: missing item segment", sk)
	}
	return token, parentKey, itemID, nil
}
