package dynamodb

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Jayli58/do-we-have-it-backend/domain/inventory"
	"github.com/Jayli58/do-we-have-it-backend/pkg/textindex"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// SearchStrategy selects how token rows are read from the index.
type SearchStrategy string

const (
	// SearchByQuery range-queries the index partition of the user.
	SearchByQuery SearchStrategy = "query"
	// SearchByScan scans the index with a filter. It reads every index
	// row of every user and exists for tables provisioned without a
	// queryable index key.
	SearchByScan SearchStrategy = "scan"
)

// ParseSearchStrategy accepts "query" or "scan"; anything else is an error.
func ParseSearchStrategy(s string) (SearchStrategy, error) {
	switch SearchStrategy(s) {
	case SearchByQuery, SearchByScan:
		return SearchStrategy(s), nil
	case "":
		return SearchByQuery, nil
	}
	return "", fmt.Errorf("unknown search strategy %q", s)
}

type itemRef struct {
	parentKey string
	itemID    string
}

// SearchItems returns the items whose indexed tokens start with every
// token of query. Index rows pointing at items that no longer exist are
// skipped.
func (r *InventoryRepository) SearchItems(ctx context.Context, userID, query string) (items []*inventory.Item, err error) {
	ctx, span := r.startSpan(ctx, "SearchItems", userID)
	defer func() { endSpan(span, err) }()

	tokens := textindex.TokenizeDistinct(query)
	span.SetAttributes(attribute.Int("search.tokens", len(tokens)))
	if len(tokens) == 0 {
		return []*inventory.Item{}, nil
	}

	var matches map[itemRef]struct{}
	for _, token := range tokens {
		found, err := r.lookupToken(ctx, userID, token)
		if err != nil {
			return nil, fmt.Errorf("failed to look up token %q: %w", token, err)
		}
		matches = intersect(matches, found)
		if len(matches) == 0 {
			return []*inventory.Item{}, nil
		}
	}

	items, err = r.hydrate(ctx, userID, matches)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("Search completed",
		zap.String("userId", userID),
		zap.Int("tokens", len(tokens)),
		zap.Int("matches", len(matches)),
		zap.Int("items", len(items)),
	)
	return items, nil
}

// intersect narrows acc to refs also present in next. A nil acc means no
// token has been processed yet.
func intersect(acc, next map[itemRef]struct{}) map[itemRef]struct{} {
	if acc == nil {
		return next
	}
	out := make(map[itemRef]struct{}, min(len(acc), len(next)))
	for ref := range acc {
		if _, ok := next[ref]; ok {
			out[ref] = struct{}{}
		}
	}
	return out
}

func (r *InventoryRepository) lookupToken(ctx context.Context, userID, token string) (map[itemRef]struct{}, error) {
	found := make(map[itemRef]struct{})
	collect := func(av map[string]types.AttributeValue) {
		if ref, ok := refFromIndexRow(av); ok {
			found[ref] = struct{}{}
		}
	}

	pk := UserPK(userID)
	prefix := TokenPrefix(token)

	if r.strategy == SearchByScan {
		filter := expression.Name(AttrGSI1PK).Equal(expression.Value(pk)).
			And(expression.Name(AttrGSI1SK).BeginsWith(prefix))
		expr, err := expression.NewBuilder().WithFilter(filter).Build()
		if err != nil {
			return nil, fmt.Errorf("failed to build scan expression: %w", err)
		}
		input := &dynamodb.ScanInput{
			TableName:                 aws.String(r.tableName),
			IndexName:                 aws.String(r.indexName),
			FilterExpression:          expr.Filter(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
		}
		for {
			start := time.Now()
			out, err := r.client.Scan(ctx, input)
			r.recorder.RecordOperation("Scan", time.Since(start), err)
			if err != nil {
				return nil, err
			}
			for _, av := range out.Items {
				collect(av)
			}
			if len(out.LastEvaluatedKey) == 0 {
				return found, nil
			}
			input.ExclusiveStartKey = out.LastEvaluatedKey
		}
	}

	keyCond := expression.Key(AttrGSI1PK).Equal(expression.Value(pk)).
		And(expression.Key(AttrGSI1SK).BeginsWith(prefix))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build index query: %w", err)
	}
	input := &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(r.indexName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}
	err = r.paginateQuery(ctx, input, func(av map[string]types.AttributeValue) (bool, error) {
		collect(av)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// refFromIndexRow reads the item reference from the index sort key and
// falls back to the plain attributes.
func refFromIndexRow(av map[string]types.AttributeValue) (itemRef, bool) {
	if _, parentKey, itemID, err := ParseGSI1SK(stringValue(av[AttrGSI1SK])); err == nil {
		return itemRef{parentKey: parentKey, itemID: itemID}, true
	}
	itemID := stringValue(av["itemId"])
	if itemID == "" {
		return itemRef{}, false
	}
	return itemRef{parentKey: ParentKey(stringValue(av["parentId"])), itemID: itemID}, true
}

func (r *InventoryRepository) hydrate(ctx context.Context, userID string, refs map[itemRef]struct{}) ([]*inventory.Item, error) {
	ordered := make([]itemRef, 0, len(refs))
	for ref := range refs {
		ordered = append(ordered, ref)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].parentKey != ordered[j].parentKey {
			return ordered[i].parentKey < ordered[j].parentKey
		}
		return ordered[i].itemID < ordered[j].itemID
	})

	pk := UserPK(userID)
	keys := make([]map[string]types.AttributeValue, 0, len(ordered))
	for _, ref := range ordered {
		keys = append(keys, tableKey(pk, ItemSK(ref.parentKey, ref.itemID)))
	}

	records, err := r.batch.Get(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("failed to load matched items: %w", err)
	}

	items := make([]*inventory.Item, 0, len(records))
	for _, av := range records {
		if stringValue(av[attrEntityType]) != EntityItem {
			continue
		}
		it, err := itemFromRecord(av)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, nil
}
