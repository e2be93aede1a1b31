package dynamodb

import (
	"context"
	"fmt"
	"time"

	"github.com/Jayli58/do-we-have-it-backend/application/ports"
	"github.com/Jayli58/do-we-have-it-backend/domain/inventory"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Config describes the table layout and tuning knobs of the repository.
type Config struct {
	TableName      string
	IndexName      string
	SearchStrategy SearchStrategy
	Batch          BatchConfig
}

// DefaultConfig matches the deployed table.
func DefaultConfig() Config {
	return Config{
		TableName:      "Inventory",
		IndexName:      "GSI1",
		SearchStrategy: SearchByQuery,
		Batch:          DefaultBatchConfig(),
	}
}

// InventoryRepository implements ports.InventoryRepository on one table.
type InventoryRepository struct {
	client    Client
	tableName string
	indexName string
	strategy  SearchStrategy
	builder   RecordBuilder
	batch     *BatchExecutor
	recorder  Recorder
	tracer    trace.Tracer
	logger    *zap.Logger
}

var (
	_ ports.InventoryRepository   = (*InventoryRepository)(nil)
	_ ports.SearchIndexReconciler = (*InventoryRepository)(nil)
)

// NewInventoryRepository creates a repository. recorder may be nil.
func NewInventoryRepository(client Client, cfg Config, recorder Recorder, logger *zap.Logger) *InventoryRepository {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	if cfg.SearchStrategy == "" {
		cfg.SearchStrategy = SearchByQuery
	}
	return &InventoryRepository{
		client:    client,
		tableName: cfg.TableName,
		indexName: cfg.IndexName,
		strategy:  cfg.SearchStrategy,
		builder:   NewRecordBuilder(DefaultSanitizer()),
		batch:     NewBatchExecutor(client, cfg.TableName, cfg.Batch, recorder, logger),
		recorder:  recorder,
		tracer:    otel.Tracer("github.com/Jayli58/do-we-have-it-backend/infrastructure/persistence/dynamodb"),
		logger:    logger,
	}
}

func (r *InventoryRepository) startSpan(ctx context.Context, name, userID string) (context.Context, trace.Span) {
	return r.tracer.Start(ctx, "dynamodb."+name, trace.WithAttributes(
		attribute.String("user.id", userID),
		attribute.String("db.table", r.tableName),
	))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// ---- folders ----

func (r *InventoryRepository) ListFolders(ctx context.Context, userID, parentID string) (folders []*inventory.Folder, err error) {
	ctx, span := r.startSpan(ctx, "ListFolders", userID)
	defer func() { endSpan(span, err) }()

	err = r.queryPrefix(ctx, userID, FolderPrefix(ParentKey(parentID)), nil, func(av map[string]types.AttributeValue) (bool, error) {
		f, err := folderFromRecord(av)
		if err != nil {
			return false, err
		}
		folders = append(folders, f)
		return true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}
	return folders, nil
}

// GetFolder finds a folder without knowing its parent by filtering the
// folder range of the partition on folderId.
func (r *InventoryRepository) GetFolder(ctx context.Context, userID, folderID string) (folder *inventory.Folder, err error) {
	ctx, span := r.startSpan(ctx, "GetFolder", userID)
	defer func() { endSpan(span, err) }()

	filter := expression.Name(attrEntityType).Equal(expression.Value(EntityFolder)).
		And(expression.Name("folderId").Equal(expression.Value(folderID)))

	err = r.queryPrefix(ctx, userID, folderPrefix, &filter, func(av map[string]types.AttributeValue) (bool, error) {
		f, err := folderFromRecord(av)
		if err != nil {
			return false, err
		}
		folder = f
		return false, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get folder %s: %w", folderID, err)
	}
	return folder, nil
}

func (r *InventoryRepository) CreateFolder(ctx context.Context, userID string, folder *inventory.Folder) error {
	return r.putFolder(ctx, "CreateFolder", userID, folder)
}

func (r *InventoryRepository) UpdateFolder(ctx context.Context, userID string, folder *inventory.Folder) error {
	return r.putFolder(ctx, "UpdateFolder", userID, folder)
}

func (r *InventoryRepository) putFolder(ctx context.Context, op, userID string, folder *inventory.Folder) (err error) {
	ctx, span := r.startSpan(ctx, op, userID)
	defer func() { endSpan(span, err) }()

	item, err := r.builder.Folder(userID, folder)
	if err != nil {
		return err
	}
	if err = r.put(ctx, item); err != nil {
		return fmt.Errorf("failed to save folder %s: %w", folder.ID, err)
	}
	return nil
}

func (r *InventoryRepository) DeleteFolder(ctx context.Context, userID, folderID, parentID string) (err error) {
	ctx, span := r.startSpan(ctx, "DeleteFolder", userID)
	defer func() { endSpan(span, err) }()

	if err = r.delete(ctx, tableKey(UserPK(userID), FolderSK(ParentKey(parentID), folderID))); err != nil {
		return fmt.Errorf("failed to delete folder %s: %w", folderID, err)
	}
	return nil
}

// ---- items ----

func (r *InventoryRepository) ListItems(ctx context.Context, userID, parentID string) (items []*inventory.Item, err error) {
	ctx, span := r.startSpan(ctx, "ListItems", userID)
	defer func() { endSpan(span, err) }()

	err = r.queryPrefix(ctx, userID, ItemPrefix(ParentKey(parentID)), nil, func(av map[string]types.AttributeValue) (bool, error) {
		it, err := itemFromRecord(av)
		if err != nil {
			return false, err
		}
		items = append(items, it)
		return true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	return items, nil
}

// GetItem finds an item without knowing its parent.
func (r *InventoryRepository) GetItem(ctx context.Context, userID, itemID string) (item *inventory.Item, err error) {
	ctx, span := r.startSpan(ctx, "GetItem", userID)
	defer func() { endSpan(span, err) }()

	filter := expression.Name(attrEntityType).Equal(expression.Value(EntityItem)).
		And(expression.Name("itemId").Equal(expression.Value(itemID)))

	err = r.queryPrefix(ctx, userID, itemPrefix, &filter, func(av map[string]types.AttributeValue) (bool, error) {
		it, err := itemFromRecord(av)
		if err != nil {
			return false, err
		}
		item = it
		return false, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get item %s: %w", itemID, err)
	}
	return item, nil
}

// CreateItem writes the item record and then its search rows.
func (r *InventoryRepository) CreateItem(ctx context.Context, userID string, item *inventory.Item) (err error) {
	ctx, span := r.startSpan(ctx, "CreateItem", userID)
	defer func() { endSpan(span, err) }()

	record, err := r.builder.Item(userID, item)
	if err != nil {
		return err
	}
	if err = r.put(ctx, record); err != nil {
		return fmt.Errorf("failed to save item %s: %w", item.ID, err)
	}
	return r.writeSearchRows(ctx, userID, item)
}

// UpdateItem deletes the item's previous search rows, rewrites the record
// and writes fresh rows. The three steps are not atomic; a concurrent
// search may briefly see no rows or stale rows for this item.
func (r *InventoryRepository) UpdateItem(ctx context.Context, userID string, item *inventory.Item) (err error) {
	ctx, span := r.startSpan(ctx, "UpdateItem", userID)
	defer func() { endSpan(span, err) }()

	record, err := r.builder.Item(userID, item)
	if err != nil {
		return err
	}

	stale, err := r.searchRowKeys(ctx, userID, item.ID)
	if err != nil {
		return err
	}
	if len(stale) > 0 {
		writes := make([]types.WriteRequest, 0, len(stale))
		for _, key := range stale {
			writes = append(writes, deleteRequest(key))
		}
		if err = r.batch.Write(ctx, writes); err != nil {
			return fmt.Errorf("failed to clear search rows of item %s: %w", item.ID, err)
		}
	}

	if err = r.put(ctx, record); err != nil {
		return fmt.Errorf("failed to save item %s: %w", item.ID, err)
	}
	return r.writeSearchRows(ctx, userID, item)
}

// DeleteItem removes the item record and all of its search rows in one
// batched pass.
func (r *InventoryRepository) DeleteItem(ctx context.Context, userID, itemID, parentID string) (err error) {
	ctx, span := r.startSpan(ctx, "DeleteItem", userID)
	defer func() { endSpan(span, err) }()

	rows, err := r.searchRowKeys(ctx, userID, itemID)
	if err != nil {
		return err
	}

	writes := make([]types.WriteRequest, 0, len(rows)+1)
	writes = append(writes, deleteRequest(tableKey(UserPK(userID), ItemSK(ParentKey(parentID), itemID))))
	for _, key := range rows {
		writes = append(writes, deleteRequest(key))
	}
	if err = r.batch.Write(ctx, writes); err != nil {
		return fmt.Errorf("failed to delete item %s: %w", itemID, err)
	}
	return nil
}

func (r *InventoryRepository) writeSearchRows(ctx context.Context, userID string, item *inventory.Item) error {
	rows, err := r.builder.SearchRows(userID, item)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	writes := make([]types.WriteRequest, 0, len(rows))
	for _, row := range rows {
		writes = append(writes, putRequest(row))
	}
	if err := r.batch.Write(ctx, writes); err != nil {
		return fmt.Errorf("failed to index item %s: %w", item.ID, err)
	}
	r.logger.Debug("Indexed item",
		zap.String("userId", userID),
		zap.String("itemId", item.ID),
		zap.Int("tokens", len(rows)),
	)
	return nil
}

// searchRowKeys returns the primary keys of every search row of itemID.
func (r *InventoryRepository) searchRowKeys(ctx context.Context, userID, itemID string) ([]map[string]types.AttributeValue, error) {
	var keys []map[string]types.AttributeValue
	err := r.queryPrefix(ctx, userID, SearchItemPrefix(itemID), nil, func(av map[string]types.AttributeValue) (bool, error) {
		keys = append(keys, primaryKey(av))
		return true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load search rows of item %s: %w", itemID, err)
	}
	return keys, nil
}

// ---- templates ----

func (r *InventoryRepository) ListTemplates(ctx context.Context, userID string) (templates []*inventory.FormTemplate, err error) {
	ctx, span := r.startSpan(ctx, "ListTemplates", userID)
	defer func() { endSpan(span, err) }()

	err = r.queryPrefix(ctx, userID, TemplatePrefix(), nil, func(av map[string]types.AttributeValue) (bool, error) {
		t, err := templateFromRecord(av)
		if err != nil {
			return false, err
		}
		templates = append(templates, t)
		return true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	return templates, nil
}

func (r *InventoryRepository) GetTemplate(ctx context.Context, userID, templateID string) (template *inventory.FormTemplate, err error) {
	ctx, span := r.startSpan(ctx, "GetTemplate", userID)
	defer func() { endSpan(span, err) }()

	start := time.Now()
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       tableKey(UserPK(userID), TemplateSK(templateID)),
	})
	r.recorder.RecordOperation("GetItem", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to get template %s: %w", templateID, err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	return templateFromRecord(out.Item)
}

func (r *InventoryRepository) CreateTemplate(ctx context.Context, userID string, template *inventory.FormTemplate) error {
	return r.putTemplate(ctx, "CreateTemplate", userID, template)
}

func (r *InventoryRepository) UpdateTemplate(ctx context.Context, userID string, template *inventory.FormTemplate) error {
	return r.putTemplate(ctx, "UpdateTemplate", userID, template)
}

func (r *InventoryRepository) putTemplate(ctx context.Context, op, userID string, template *inventory.FormTemplate) (err error) {
	ctx, span := r.startSpan(ctx, op, userID)
	defer func() { endSpan(span, err) }()

	item, err := r.builder.Template(userID, template)
	if err != nil {
		return err
	}
	if err = r.put(ctx, item); err != nil {
		return fmt.Errorf("failed to save template %s: %w", template.ID, err)
	}
	return nil
}

func (r *InventoryRepository) DeleteTemplate(ctx context.Context, userID, templateID string) (err error) {
	ctx, span := r.startSpan(ctx, "DeleteTemplate", userID)
	defer func() { endSpan(span, err) }()

	if err = r.delete(ctx, tableKey(UserPK(userID), TemplateSK(templateID))); err != nil {
		return fmt.Errorf("failed to delete template %s: %w", templateID, err)
	}
	return nil
}

// ---- primitives ----

func (r *InventoryRepository) put(ctx context.Context, item map[string]types.AttributeValue) error {
	start := time.Now()
	_, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	r.recorder.RecordOperation("PutItem", time.Since(start), err)
	return err
}

func (r *InventoryRepository) delete(ctx context.Context, key map[string]types.AttributeValue) error {
	start := time.Now()
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       key,
	})
	r.recorder.RecordOperation("DeleteItem", time.Since(start), err)
	return err
}

// queryPrefix pages through every record of the user whose sort key starts
// with prefix. visit returns false to stop early.
func (r *InventoryRepository) queryPrefix(
	ctx context.Context,
	userID, prefix string,
	filter *expression.ConditionBuilder,
	visit func(map[string]types.AttributeValue) (bool, error),
) error {
	keyCond := expression.Key(AttrPK).Equal(expression.Value(UserPK(userID))).
		And(expression.Key(AttrSK).BeginsWith(prefix))

	builder := expression.NewBuilder().WithKeyCondition(keyCond)
	if filter != nil {
		builder = builder.WithFilter(*filter)
	}
	expr, err := builder.Build()
	if err != nil {
		return fmt.Errorf("failed to build query expression: %w", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}
	return r.paginateQuery(ctx, input, visit)
}

func (r *InventoryRepository) paginateQuery(ctx context.Context, input *dynamodb.QueryInput, visit func(map[string]types.AttributeValue) (bool, error)) error {
	for {
		start := time.Now()
		out, err := r.client.Query(ctx, input)
		r.recorder.RecordOperation("Query", time.Since(start), err)
		if err != nil {
			return err
		}

		for _, av := range out.Items {
			more, err := visit(av)
			if err != nil {
				return err
			}
			if !more {
				return nil
			}
		}

		if len(out.LastEvaluatedKey) == 0 {
			return nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}
