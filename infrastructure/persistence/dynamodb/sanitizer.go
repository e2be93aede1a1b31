package dynamodb

import (
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DefaultMaxStringLength is the rune limit applied to ordinary string attributes.
const DefaultMaxStringLength = 100

// Sanitizer rewrites attribute maps into a form DynamoDB accepts: blank
// strings and empty collections become NULL and long strings are cut.
// Sanitizing an already sanitized map returns an equal map.
type Sanitizer struct {
	MaxStringLength int
	// ReservedKeys lists top-level attribute names (compared
	// case-insensitively) whose string values are never truncated.
	ReservedKeys []string
}

// DefaultSanitizer exempts the table and index key attributes.
func DefaultSanitizer() Sanitizer {
	return Sanitizer{
		MaxStringLength: DefaultMaxStringLength,
		ReservedKeys:    []string{AttrPK, AttrSK, AttrGSI1PK, AttrGSI1SK},
	}
}

func (s Sanitizer) reserved(name string) bool {
	for _, k := range s.ReservedKeys {
		if strings.EqualFold(k, name) {
			return true
		}
	}
	return false
}

// SanitizeMap sanitizes every top-level attribute. The length limit is
// skipped for reserved key names at this level only.
func (s Sanitizer) SanitizeMap(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	if item == nil {
		return nil
	}
	out := make(map[string]types.AttributeValue, len(item))
	for name, v := range item {
		out[name] = s.SanitizeValue(v, !s.reserved(name))
	}
	return out
}

// SanitizeValue sanitizes a single value. Nested maps and lists always
// apply the length limit regardless of applyLimit.
func (s Sanitizer) SanitizeValue(v types.AttributeValue, applyLimit bool) types.AttributeValue {
	switch tv := v.(type) {
	case nil:
		return null()
	case *types.AttributeValueMemberS:
		value := tv.Value
		if applyLimit {
			value = s.truncate(value)
		}
		if strings.TrimSpace(value) == "" {
			return null()
		}
		return &types.AttributeValueMemberS{Value: value}
	case *types.AttributeValueMemberM:
		if len(tv.Value) == 0 {
			return null()
		}
		nested := make(map[string]types.AttributeValue, len(tv.Value))
		for name, inner := range tv.Value {
			nested[name] = s.SanitizeValue(inner, true)
		}
		return &types.AttributeValueMemberM{Value: nested}
	case *types.AttributeValueMemberL:
		if len(tv.Value) == 0 {
			return null()
		}
		list := make([]types.AttributeValue, len(tv.Value))
		for i, inner := range tv.Value {
			list[i] = s.SanitizeValue(inner, true)
		}
		return &types.AttributeValueMemberL{Value: list}
	case *types.AttributeValueMemberSS:
		return s.sanitizeStringSet(tv.Value, applyLimit)
	case *types.AttributeValueMemberNS:
		if len(tv.Value) == 0 {
			return null()
		}
		return tv
	case *types.AttributeValueMemberBS:
		if len(tv.Value) == 0 {
			return null()
		}
		return tv
	default:
		// N, B, BOOL and NULL are already store safe.
		return v
	}
}

// sanitizeStringSet truncates members when applyLimit is set, drops blank
// ones and deduplicates what truncation collapsed.
func (s Sanitizer) sanitizeStringSet(values []string, applyLimit bool) types.AttributeValue {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if applyLimit {
			v = s.truncate(v)
		}
		if strings.TrimSpace(v) == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	if len(out) == 0 {
		return null()
	}
	return &types.AttributeValueMemberSS{Value: out}
}

func (s Sanitizer) truncate(v string) string {
	if s.MaxStringLength <= 0 {
		return v
	}
	runes := []rune(v)
	if len(runes) <= s.MaxStringLength {
		return v
	}
	return string(runes[:s.MaxStringLength])
}

func null() types.AttributeValue {
	return &types.AttributeValueMemberNULL{Value: true}
}

// BuildStringAttribute returns a string attribute, or NULL for blank input.
func BuildStringAttribute(value string) types.AttributeValue {
	if strings.TrimSpace(value) == "" {
		return null()
	}
	return &types.AttributeValueMemberS{Value: value}
}

// AddOptionalString sets name only when value is not blank.
func AddOptionalString(item map[string]types.AttributeValue, name, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	item[name] = &types.AttributeValueMemberS{Value: value}
}
