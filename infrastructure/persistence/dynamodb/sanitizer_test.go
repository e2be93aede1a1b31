package dynamodb

import (
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord() map[string]types.AttributeValue {
	long := strings.Repeat("x", 150)
	return map[string]types.AttributeValue{
		"PK":      &types.AttributeValueMemberS{Value: "USER#" + long},
		"gsi1sk":  &types.AttributeValueMemberS{Value: "TOKEN#" + long},
		"name":    &types.AttributeValueMemberS{Value: long},
		"blank":   &types.AttributeValueMemberS{Value: "   "},
		"count":   &types.AttributeValueMemberN{Value: "3"},
		"flag":    &types.AttributeValueMemberBOOL{Value: false},
		"nothing": &types.AttributeValueMemberNULL{Value: true},
		"missing": nil,
		"emptyL":  &types.AttributeValueMemberL{},
		"emptyM":  &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{}},
		"emptySS": &types.AttributeValueMemberSS{},
		"emptyNS": &types.AttributeValueMemberNS{},
		"emptyBS": &types.AttributeValueMemberBS{},
		"tags":    &types.AttributeValueMemberSS{Value: []string{"a", " ", "a", long + "1", long + "2"}},
		"nested": &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
			"PK":    &types.AttributeValueMemberS{Value: long},
			"empty": &types.AttributeValueMemberS{Value: ""},
		}},
		"list": &types.AttributeValueMemberL{Value: []types.AttributeValue{
			&types.AttributeValueMemberS{Value: long},
			&types.AttributeValueMemberS{Value: ""},
			&types.AttributeValueMemberL{},
		}},
	}
}

func TestSanitizeMap(t *testing.T) {
	s := DefaultSanitizer()
	out := s.SanitizeMap(sampleRecord())

	t.Run("reserved keys keep full length", func(t *testing.T) {
		assert.Len(t, out["PK"].(*types.AttributeValueMemberS).Value, 155)
		assert.Len(t, out["gsi1sk"].(*types.AttributeValueMemberS).Value, 156)
	})

	t.Run("ordinary strings are truncated to exactly the limit", func(t *testing.T) {
		assert.Len(t, out["name"].(*types.AttributeValueMemberS).Value, DefaultMaxStringLength)
	})

	t.Run("blank and empty values become null", func(t *testing.T) {
		for _, k := range []string{"blank", "missing", "emptyL", "emptyM", "emptySS", "emptyNS", "emptyBS"} {
			assert.IsType(t, &types.AttributeValueMemberNULL{}, out[k], k)
		}
	})

	t.Run("scalars pass through", func(t *testing.T) {
		assert.Equal(t, &types.AttributeValueMemberN{Value: "3"}, out["count"])
		assert.Equal(t, &types.AttributeValueMemberBOOL{Value: false}, out["flag"])
		assert.Equal(t, &types.AttributeValueMemberNULL{Value: true}, out["nothing"])
	})

	t.Run("string sets drop blanks and collapse truncated duplicates", func(t *testing.T) {
		tags := out["tags"].(*types.AttributeValueMemberSS).Value
		assert.Equal(t, []string{"a", strings.Repeat("x", 100)}, tags)
	})

	t.Run("nested maps re-enable the limit", func(t *testing.T) {
		nested := out["nested"].(*types.AttributeValueMemberM).Value
		assert.Len(t, nested["PK"].(*types.AttributeValueMemberS).Value, DefaultMaxStringLength)
		assert.IsType(t, &types.AttributeValueMemberNULL{}, nested["empty"])
	})

	t.Run("list elements are sanitized independently", func(t *testing.T) {
		list := out["list"].(*types.AttributeValueMemberL).Value
		require.Len(t, list, 3)
		assert.Len(t, list[0].(*types.AttributeValueMemberS).Value, DefaultMaxStringLength)
		assert.IsType(t, &types.AttributeValueMemberNULL{}, list[1])
		assert.IsType(t, &types.AttributeValueMemberNULL{}, list[2])
	})
}

func TestSanitizeMap_Idempotent(t *testing.T) {
	s := DefaultSanitizer()
	once := s.SanitizeMap(sampleRecord())
	twice := s.SanitizeMap(once)
	assert.Equal(t, once, twice)
}

func TestSanitizeValue_TruncationThatLeavesOnlySpacesIsNull(t *testing.T) {
	s := DefaultSanitizer()
	v := &types.AttributeValueMemberS{Value: strings.Repeat(" ", 120) + "tail"}

	got := s.SanitizeValue(v, true)

	assert.IsType(t, &types.AttributeValueMemberNULL{}, got)
	assert.Equal(t, got, s.SanitizeValue(got, true))
}

func TestSanitizeValue_CountsRunesNotBytes(t *testing.T) {
	s := DefaultSanitizer()
	v := &types.AttributeValueMemberS{Value: strings.Repeat("咖", 120)}

	got := s.SanitizeValue(v, true).(*types.AttributeValueMemberS).Value

	assert.Equal(t, 100, len([]rune(got)))
}

func TestSanitizeValue_StringSetHonoursApplyLimit(t *testing.T) {
	s := DefaultSanitizer()
	long := strings.Repeat("y", 130)
	v := &types.AttributeValueMemberSS{Value: []string{long, " ", "b"}}

	unlimited := s.SanitizeValue(v, false).(*types.AttributeValueMemberSS).Value
	assert.Equal(t, []string{long, "b"}, unlimited)

	limited := s.SanitizeValue(v, true).(*types.AttributeValueMemberSS).Value
	assert.Equal(t, []string{strings.Repeat("y", 100), "b"}, limited)
}

func TestSanitizeMap_Nil(t *testing.T) {
	assert.Nil(t, DefaultSanitizer().SanitizeMap(nil))
}

func TestBuildStringAttribute(t *testing.T) {
	assert.IsType(t, &types.AttributeValueMemberNULL{}, BuildStringAttribute(" "))
	assert.Equal(t, &types.AttributeValueMemberS{Value: "mug"}, BuildStringAttribute("mug"))
}

func TestAddOptionalString(t *testing.T) {
	item := map[string]types.AttributeValue{}
	AddOptionalString(item, "comments", "  ")
	assert.NotContains(t, item, "comments")

	AddOptionalString(item, "comments", "dented")
	assert.Equal(t, &types.AttributeValueMemberS{Value: "dented"}, item["comments"])
}
