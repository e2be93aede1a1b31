// Package dynamotest provides an in-memory stand-in for the parts of the
// DynamoDB API used by the inventory repository. It understands equality
// and begins_with conditions joined by AND, paginates like the real
// service and can be told to throttle batch calls.
package dynamotest

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type index struct {
	pk, sk string
}

// Table is a single in-memory table keyed by PK and SK.
type Table struct {
	mu      sync.Mutex
	name    string
	items   map[string]map[string]types.AttributeValue
	indexes map[string]index
	calls   map[string]int
	errs    map[string]error

	// PageSize caps how many items a Query or Scan evaluates per page
	// when the request sets no smaller Limit.
	PageSize int
	// ThrottleWrites makes that many upcoming BatchWriteItem calls apply
	// only the first request and hand the rest back as unprocessed.
	ThrottleWrites int
	// ThrottleGets does the same for BatchGetItem.
	ThrottleGets int
}

// NewTable creates an empty table.
func NewTable(name string) *Table {
	return &Table{
		name:    name,
		items:   make(map[string]map[string]types.AttributeValue),
		indexes: make(map[string]index),
		calls:   make(map[string]int),
		errs:    make(map[string]error),
	}
}

// WithIndex registers a global secondary index.
func (t *Table) WithIndex(name, pkAttr, skAttr string) *Table {
	t.indexes[name] = index{pk: pkAttr, sk: skAttr}
	return t
}

// FailWith makes every call to op return err until cleared with a nil err.
func (t *Table) FailWith(op string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err == nil {
		delete(t.errs, op)
		return
	}
	t.errs[op] = err
}

// Calls returns how many times op was invoked.
func (t *Table) Calls(op string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls[op]
}

// Put stores item directly, bypassing the API.
func (t *Table) Put(item map[string]types.AttributeValue) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items[storageKey(item)] = clone(item)
}

// Lookup returns the stored record for pk and sk.
func (t *Table) Lookup(pk, sk string) (map[string]types.AttributeValue, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	item, ok := t.items[pk+"\x00"+sk]
	return clone(item), ok
}

// Items returns every stored record ordered by PK then SK.
func (t *Table) Items() []map[string]types.AttributeValue {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]map[string]types.AttributeValue, 0, len(t.items))
	for _, item := range t.sorted("PK", "SK") {
		out = append(out, clone(item))
	}
	return out
}

// Len returns the number of stored records.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.items)
}

func (t *Table) begin(op string) error {
	t.calls[op]++
	return t.errs[op]
}

func (t *Table) checkTable(name *string) error {
	if aws.ToString(name) != t.name {
		return fmt.Errorf("dynamotest: unknown table %q", aws.ToString(name))
	}
	return nil
}

func (t *Table) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.begin("GetItem"); err != nil {
		return nil, err
	}
	if err := t.checkTable(in.TableName); err != nil {
		return nil, err
	}
	item, ok := t.items[storageKey(in.Key)]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: clone(item)}, nil
}

func (t *Table) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.begin("PutItem"); err != nil {
		return nil, err
	}
	if err := t.checkTable(in.TableName); err != nil {
		return nil, err
	}
	if err := validateKey(in.Item); err != nil {
		return nil, err
	}
	t.items[storageKey(in.Item)] = clone(in.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func (t *Table) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.begin("DeleteItem"); err != nil {
		return nil, err
	}
	if err := t.checkTable(in.TableName); err != nil {
		return nil, err
	}
	delete(t.items, storageKey(in.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func (t *Table) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.begin("Query"); err != nil {
		return nil, err
	}
	if err := t.checkTable(in.TableName); err != nil {
		return nil, err
	}

	keyCond, err := parseConditions(aws.ToString(in.KeyConditionExpression), in.ExpressionAttributeNames, in.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}
	if len(keyCond) == 0 {
		return nil, fmt.Errorf("dynamotest: query requires a key condition")
	}
	filter, err := parseConditions(aws.ToString(in.FilterExpression), in.ExpressionAttributeNames, in.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}

	pkAttr, skAttr, err := t.keyAttrs(in.IndexName)
	if err != nil {
		return nil, err
	}

	var candidates []map[string]types.AttributeValue
	for _, item := range t.sorted(pkAttr, skAttr) {
		if keyCond.match(item) {
			candidates = append(candidates, item)
		}
	}

	page, last := t.paginate(candidates, in.ExclusiveStartKey, aws.ToInt32(in.Limit), pkAttr, skAttr)
	out := &dynamodb.QueryOutput{LastEvaluatedKey: last}
	for _, item := range page {
		if filter.match(item) {
			out.Items = append(out.Items, clone(item))
		}
	}
	out.Count = int32(len(out.Items))
	out.ScannedCount = int32(len(page))
	return out, nil
}

func (t *Table) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.begin("Scan"); err != nil {
		return nil, err
	}
	if err := t.checkTable(in.TableName); err != nil {
		return nil, err
	}

	filter, err := parseConditions(aws.ToString(in.FilterExpression), in.ExpressionAttributeNames, in.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}
	pkAttr, skAttr, err := t.keyAttrs(in.IndexName)
	if err != nil {
		return nil, err
	}

	page, last := t.paginate(t.sorted(pkAttr, skAttr), in.ExclusiveStartKey, aws.ToInt32(in.Limit), pkAttr, skAttr)
	out := &dynamodb.ScanOutput{LastEvaluatedKey: last}
	for _, item := range page {
		if filter.match(item) {
			out.Items = append(out.Items, clone(item))
		}
	}
	out.Count = int32(len(out.Items))
	out.ScannedCount = int32(len(page))
	return out, nil
}

func (t *Table) BatchGetItem(_ context.Context, in *dynamodb.BatchGetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.begin("BatchGetItem"); err != nil {
		return nil, err
	}

	out := &dynamodb.BatchGetItemOutput{
		Responses:       make(map[string][]map[string]types.AttributeValue),
		UnprocessedKeys: make(map[string]types.KeysAndAttributes),
	}
	for table, ka := range in.RequestItems {
		if err := t.checkTable(aws.String(table)); err != nil {
			return nil, err
		}
		if len(ka.Keys) > 100 {
			return nil, fmt.Errorf("dynamodb: ValidationException: too many keys (%d)", len(ka.Keys))
		}
		if err := rejectDuplicates(ka.Keys); err != nil {
			return nil, err
		}

		keys := ka.Keys
		if t.ThrottleGets > 0 && len(keys) > 1 {
			t.ThrottleGets--
			out.UnprocessedKeys[table] = types.KeysAndAttributes{Keys: keys[1:]}
			keys = keys[:1]
		}
		for _, key := range keys {
			if item, ok := t.items[storageKey(key)]; ok {
				out.Responses[table] = append(out.Responses[table], clone(item))
			}
		}
	}
	return out, nil
}

func (t *Table) BatchWriteItem(_ context.Context, in *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.begin("BatchWriteItem"); err != nil {
		return nil, err
	}

	out := &dynamodb.BatchWriteItemOutput{UnprocessedItems: make(map[string][]types.WriteRequest)}
	for table, reqs := range in.RequestItems {
		if err := t.checkTable(aws.String(table)); err != nil {
			return nil, err
		}
		if len(reqs) == 0 || len(reqs) > 25 {
			return nil, fmt.Errorf("dynamodb: ValidationException: batch write size %d", len(reqs))
		}
		keys := make([]map[string]types.AttributeValue, 0, len(reqs))
		for _, r := range reqs {
			switch {
			case r.PutRequest != nil:
				if err := validateKey(r.PutRequest.Item); err != nil {
					return nil, err
				}
				keys = append(keys, r.PutRequest.Item)
			case r.DeleteRequest != nil:
				keys = append(keys, r.DeleteRequest.Key)
			default:
				return nil, fmt.Errorf("dynamodb: ValidationException: empty write request")
			}
		}
		if err := rejectDuplicates(keys); err != nil {
			return nil, err
		}

		if t.ThrottleWrites > 0 && len(reqs) > 1 {
			t.ThrottleWrites--
			out.UnprocessedItems[table] = reqs[1:]
			reqs = reqs[:1]
		}
		for _, r := range reqs {
			if r.PutRequest != nil {
				t.items[storageKey(r.PutRequest.Item)] = clone(r.PutRequest.Item)
			} else {
				delete(t.items, storageKey(r.DeleteRequest.Key))
			}
		}
	}
	return out, nil
}

func (t *Table) keyAttrs(indexName *string) (string, string, error) {
	if indexName == nil {
		return "PK", "SK", nil
	}
	idx, ok := t.indexes[*indexName]
	if !ok {
		return "", "", fmt.Errorf("dynamodb: ValidationException: unknown index %q", *indexName)
	}
	return idx.pk, idx.sk, nil
}

// sorted returns the items carrying both key attributes ordered by them.
func (t *Table) sorted(pkAttr, skAttr string) []map[string]types.AttributeValue {
	var out []map[string]types.AttributeValue
	for _, item := range t.items {
		if str(item[pkAttr]) == "" || str(item[skAttr]) == "" {
			continue
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		return orderKey(out[i], pkAttr, skAttr) < orderKey(out[j], pkAttr, skAttr)
	})
	return out
}

// orderKey sorts by the partition and sort attributes, then the table key
// so that index entries sharing a sort value keep a stable order.
func orderKey(item map[string]types.AttributeValue, pkAttr, skAttr string) string {
	return str(item[pkAttr]) + "\x00" + str(item[skAttr]) + "\x00" + storageKey(item)
}

func (t *Table) paginate(items []map[string]types.AttributeValue, start map[string]types.AttributeValue, limit int32, pkAttr, skAttr string) ([]map[string]types.AttributeValue, map[string]types.AttributeValue) {
	if len(start) > 0 {
		after := orderKey(start, pkAttr, skAttr)
		pos := sort.Search(len(items), func(i int) bool {
			return orderKey(items[i], pkAttr, skAttr) > after
		})
		items = items[pos:]
	}

	size := int(limit)
	if t.PageSize > 0 && (size == 0 || t.PageSize < size) {
		size = t.PageSize
	}
	if size == 0 || len(items) <= size {
		return items, nil
	}

	page := items[:size]
	lastItem := page[len(page)-1]
	last := map[string]types.AttributeValue{
		"PK": lastItem["PK"],
		"SK": lastItem["SK"],
	}
	if pkAttr != "PK" {
		last[pkAttr] = lastItem[pkAttr]
		last[skAttr] = lastItem[skAttr]
	}
	return page, last
}

type condition struct {
	attr   string
	value  string
	prefix bool
}

type conditions []condition

func (cs conditions) match(item map[string]types.AttributeValue) bool {
	for _, c := range cs {
		v, ok := item[c.attr]
		if !ok {
			return false
		}
		actual := str(v)
		if n, isNum := v.(*types.AttributeValueMemberN); isNum {
			actual = n.Value
		}
		if c.prefix {
			if !strings.HasPrefix(actual, c.value) {
				return false
			}
		} else if actual != c.value {
			return false
		}
	}
	return true
}

var (
	beginsWithRe  = regexp.MustCompile(`begins_with\s*\(\s*([#\w.]+)\s*,\s*(:\w+)\s*\)`)
	equalsRe      = regexp.MustCompile(`([#\w.]+)\s*=\s*(:\w+)`)
	unsupportedRe = regexp.MustCompile(`(?i)(\bOR\b|\bNOT\b|<>|<=|>=|\bBETWEEN\b|\bIN\b|\bcontains\s*\(|\battribute_\w+\s*\()`)
)

// parseConditions reads a conjunction of equality and begins_with terms.
// Parentheses and AND are ignored, anything else is rejected.
func parseConditions(expr string, names map[string]string, values map[string]types.AttributeValue) (conditions, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, nil
	}
	if unsupportedRe.MatchString(expr) {
		return nil, fmt.Errorf("dynamotest: unsupported expression %q", expr)
	}

	var out conditions
	rest := expr
	for _, m := range beginsWithRe.FindAllStringSubmatch(expr, -1) {
		c, err := resolve(m[1], m[2], true, names, values)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	rest = beginsWithRe.ReplaceAllString(rest, "")
	for _, m := range equalsRe.FindAllStringSubmatch(rest, -1) {
		c, err := resolve(m[1], m[2], false, names, values)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}

	leftover := equalsRe.ReplaceAllString(rest, "")
	leftover = regexp.MustCompile(`(?i)\bAND\b|[()\s]`).ReplaceAllString(leftover, "")
	if leftover != "" {
		return nil, fmt.Errorf("dynamotest: cannot parse %q near %q", expr, leftover)
	}
	return out, nil
}

func resolve(nameRef, valueRef string, prefix bool, names map[string]string, values map[string]types.AttributeValue) (condition, error) {
	attr := nameRef
	if strings.HasPrefix(nameRef, "#") {
		n, ok := names[nameRef]
		if !ok {
			return condition{}, fmt.Errorf("dynamotest: undefined name %s", nameRef)
		}
		attr = n
	}
	v, ok := values[valueRef]
	if !ok {
		return condition{}, fmt.Errorf("dynamotest: undefined value %s", valueRef)
	}
	value := str(v)
	if n, isNum := v.(*types.AttributeValueMemberN); isNum {
		value = n.Value
	}
	return condition{attr: attr, value: value, prefix: prefix}, nil
}

func validateKey(item map[string]types.AttributeValue) error {
	if str(item["PK"]) == "" || str(item["SK"]) == "" {
		return fmt.Errorf("dynamodb: ValidationException: missing key attributes")
	}
	return nil
}

func rejectDuplicates(keys []map[string]types.AttributeValue) error {
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		sk := storageKey(k)
		if _, ok := seen[sk]; ok {
			return fmt.Errorf("dynamodb: ValidationException: provided list of item keys contains duplicates")
		}
		seen[sk] = struct{}{}
	}
	return nil
}

func storageKey(item map[string]types.AttributeValue) string {
	return str(item["PK"]) + "\x00" + str(item["SK"])
}

func str(v types.AttributeValue) string {
	if s, ok := v.(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func clone(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	if item == nil {
		return nil
	}
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}
