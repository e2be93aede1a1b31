package dynamodb

import (
	"fmt"
	"strings"
	"time"

	"github.com/Jayli58/do-we-have-it-backend/domain/inventory"
	"github.com/Jayli58/do-we-have-it-backend/pkg/textindex"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Entity type discriminators stored in the entityType attribute.
const (
	EntityFolder   = "folder"
	EntityItem     = "item"
	EntityTemplate = "template"
	EntitySearch   = "search"
)

const attrEntityType = "entityType"

type folderRecord struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"entityType"`
	FolderID   string `dynamodbav:"folderId"`
	ParentID   string `dynamodbav:"parentId"`
	Name       string `dynamodbav:"name"`
	CreatedAt  string `dynamodbav:"createdAt"`
	UpdatedAt  string `dynamodbav:"updatedAt"`
}

type attributeRecord struct {
	FieldID   string `dynamodbav:"fieldId"`
	FieldName string `dynamodbav:"fieldName"`
	Value     string `dynamodbav:"value,omitempty"`
}

type itemRecord struct {
	PK         string            `dynamodbav:"PK"`
	SK         string            `dynamodbav:"SK"`
	EntityType string            `dynamodbav:"entityType"`
	ItemID     string            `dynamodbav:"itemId"`
	ParentID   string            `dynamodbav:"parentId"`
	Name       string            `dynamodbav:"name"`
	Comments   string            `dynamodbav:"comments,omitempty"`
	Attributes []attributeRecord `dynamodbav:"attributes,omitempty"`
	CreatedAt  string            `dynamodbav:"createdAt"`
	UpdatedAt  string            `dynamodbav:"updatedAt"`
}

type fieldRecord struct {
	ID       string `dynamodbav:"id"`
	Name     string `dynamodbav:"name"`
	Type     string `dynamodbav:"type"`
	Required bool   `dynamodbav:"required"`
}

type templateRecord struct {
	PK         string        `dynamodbav:"PK"`
	SK         string        `dynamodbav:"SK"`
	EntityType string        `dynamodbav:"entityType"`
	TemplateID string        `dynamodbav:"templateId"`
	Name       string        `dynamodbav:"name"`
	Fields     []fieldRecord `dynamodbav:"fields,omitempty"`
	CreatedAt  string        `dynamodbav:"createdAt"`
}

type searchRecord struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"entityType"`
	ItemID     string `dynamodbav:"itemId"`
	ParentID   string `dynamodbav:"parentId"`
	Token      string `dynamodbav:"token"`
	GSI1PK     string `dynamodbav:"GSI1PK"`
	GSI1SK     string `dynamodbav:"GSI1SK"`
}

// RecordBuilder turns domain objects into sanitized table records.
type RecordBuilder struct {
	sanitizer Sanitizer
}

// NewRecordBuilder creates a builder using the given sanitizer.
func NewRecordBuilder(s Sanitizer) RecordBuilder {
	return RecordBuilder{sanitizer: s}
}

func (b RecordBuilder) marshal(v any) (map[string]types.AttributeValue, error) {
	av, err := attributevalue.MarshalMap(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}
	return b.sanitizer.SanitizeMap(av), nil
}

// Folder builds the primary record for f.
func (b RecordBuilder) Folder(userID string, f *inventory.Folder) (map[string]types.AttributeValue, error) {
	parentKey := ParentKey(f.ParentID)
	return b.marshal(folderRecord{
		PK:         UserPK(userID),
		SK:         FolderSK(parentKey, f.ID),
		EntityType: EntityFolder,
		FolderID:   f.ID,
		ParentID:   parentKey,
		Name:       f.Name,
		CreatedAt:  formatTime(f.CreatedAt),
		UpdatedAt:  formatTime(f.UpdatedAt),
	})
}

// Item builds the primary record for it. Attributes without an id or name
// are dropped; when none remain the attributes field is left out. A blank
// attribute value leaves out the value key rather than storing NULL.
func (b RecordBuilder) Item(userID string, it *inventory.Item) (map[string]types.AttributeValue, error) {
	parentKey := ParentKey(it.ParentID)

	var attrs []attributeRecord
	for _, a := range it.ValidAttributes() {
		value := a.Value
		if strings.TrimSpace(value) == "" {
			value = ""
		}
		attrs = append(attrs, attributeRecord{FieldID: a.FieldID, FieldName: a.FieldName, Value: value})
	}

	av, err := b.marshal(itemRecord{
		PK:         UserPK(userID),
		SK:         ItemSK(parentKey, it.ID),
		EntityType: EntityItem,
		ItemID:     it.ID,
		ParentID:   parentKey,
		Name:       it.Name,
		Comments:   it.Comments,
		Attributes: attrs,
		CreatedAt:  formatTime(it.CreatedAt),
		UpdatedAt:  formatTime(it.UpdatedAt),
	})
	if err != nil {
		return nil, err
	}
	if len(attrs) == 0 {
		delete(av, "attributes")
	}
	if _, ok := av["comments"].(*types.AttributeValueMemberNULL); ok {
		delete(av, "comments")
	}
	return av, nil
}

// Template builds the primary record for t.
func (b RecordBuilder) Template(userID string, t *inventory.FormTemplate) (map[string]types.AttributeValue, error) {
	fields := make([]fieldRecord, 0, len(t.Fields))
	for _, f := range t.Fields {
		fields = append(fields, fieldRecord{ID: f.ID, Name: f.Name, Type: f.Type, Required: f.Required})
	}

	av, err := b.marshal(templateRecord{
		PK:         UserPK(userID),
		SK:         TemplateSK(t.ID),
		EntityType: EntityTemplate,
		TemplateID: t.ID,
		Name:       t.Name,
		Fields:     fields,
		CreatedAt:  formatTime(t.CreatedAt),
	})
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		delete(av, "fields")
	}
	return av, nil
}

// SearchRows builds one index row per distinct token of the item's name
// and comments.
func (b RecordBuilder) SearchRows(userID string, it *inventory.Item) ([]map[string]types.AttributeValue, error) {
	parentKey := ParentKey(it.ParentID)
	tokens := textindex.TokenizeDistinct(it.Name, it.Comments)

	rows := make([]map[string]types.AttributeValue, 0, len(tokens))
	for _, token := range tokens {
		row, err := b.marshal(searchRecord{
			PK:         UserPK(userID),
			SK:         SearchSK(it.ID, token, parentKey),
			EntityType: EntitySearch,
			ItemID:     it.ID,
			ParentID:   parentKey,
			Token:      token,
			GSI1PK:     UserPK(userID),
			GSI1SK:     GSI1SK(token, parentKey, it.ID),
		})
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func folderFromRecord(av map[string]types.AttributeValue) (*inventory.Folder, error) {
	var rec folderRecord
	if err := attributevalue.UnmarshalMap(av, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal folder: %w", err)
	}
	return &inventory.Folder{
		ID:        rec.FolderID,
		Name:      rec.Name,
		ParentID:  ParentIDFromKey(rec.ParentID),
		CreatedAt: parseTime(rec.CreatedAt),
		UpdatedAt: parseTime(rec.UpdatedAt),
	}, nil
}

func itemFromRecord(av map[string]types.AttributeValue) (*inventory.Item, error) {
	var rec itemRecord
	if err := attributevalue.UnmarshalMap(av, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal item: %w", err)
	}
	attrs := make([]inventory.ItemAttribute, 0, len(rec.Attributes))
	for _, a := range rec.Attributes {
		attrs = append(attrs, inventory.ItemAttribute{FieldID: a.FieldID, FieldName: a.FieldName, Value: a.Value})
	}
	return &inventory.Item{
		ID:         rec.ItemID,
		Name:       rec.Name,
		Comments:   rec.Comments,
		ParentID:   ParentIDFromKey(rec.ParentID),
		Attributes: attrs,
		CreatedAt:  parseTime(rec.CreatedAt),
		UpdatedAt:  parseTime(rec.UpdatedAt),
	}, nil
}

func templateFromRecord(av map[string]types.AttributeValue) (*inventory.FormTemplate, error) {
	var rec templateRecord
	if err := attributevalue.UnmarshalMap(av, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal template: %w", err)
	}
	fields := make([]inventory.FormField, 0, len(rec.Fields))
	for _, f := range rec.Fields {
		fields = append(fields, inventory.FormField{ID: f.ID, Name: f.Name, Type: f.Type, Required: f.Required})
	}
	return &inventory.FormTemplate{
		ID:        rec.TemplateID,
		Name:      rec.Name,
		Fields:    fields,
		CreatedAt: parseTime(rec.CreatedAt),
	}, nil
}

// primaryKey extracts PK and SK from a full record.
func primaryKey(av map[string]types.AttributeValue) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		AttrPK: av[AttrPK],
		AttrSK: av[AttrSK],
	}
}

func tableKey(pk, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		AttrPK: &types.AttributeValueMemberS{Value: pk},
		AttrSK: &types.AttributeValueMemberS{Value: sk},
	}
}

func stringValue(av types.AttributeValue) string {
	if s, ok := av.(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime accepts RFC 3339 with any fractional precision and returns the
// zero time for anything else.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
