package properties

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/elliotchance/phpserialize"
	"github.com/sha1n/propindex/internal/domain"
	"github.com/spf13/cast"
)

// ErrMalformedBlob is returned when a serialized column cannot be decoded.
var ErrMalformedBlob = errors.New("malformed serialized value")

var leadingNumber = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// coerce converts a column value to a primitive field type.
// Coercion never fails: values that do not convert become the zero value of the type.
func coerce(value any, t domain.FieldType) any {
	switch t {
	case domain.TypeInteger:
		return coerceInt(value)
	case domain.TypeFloat:
		return coerceFloat(value)
	case domain.TypeString:
		return coerceString(value)
	default:
		return value
	}
}

// coerceInt converts like a weakly typed integer cast: numeric strings and floats are
// truncated, a numeric prefix is honored ("12abc" is 12) and anything else is 0.
// Strings are always read in base 10, so "010" is 10 and "0x1A" is 0.
func coerceInt(value any) int64 {
	value = unwrapBytes(value)
	if s, ok := value.(string); ok {
		if n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			return n
		}
	} else if n, err := cast.ToInt64E(value); err == nil {
		return n
	}
	f := coerceFloat(value)
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) >= math.MaxInt64 {
		return 0
	}
	return int64(f)
}

// coerceFloat converts numbers and numeric strings, 0 otherwise.
func coerceFloat(value any) float64 {
	value = unwrapBytes(value)
	if f, err := cast.ToFloat64E(value); err == nil {
		return f
	}
	if s, ok := value.(string); ok {
		prefix := leadingNumber.FindString(strings.TrimSpace(s))
		if f, err := cast.ToFloat64E(prefix); err == nil {
			return f
		}
	}
	return 0
}

func coerceString(value any) string {
	return cast.ToString(unwrapBytes(value))
}

func unwrapBytes(value any) any {
	if b, ok := value.([]byte); ok {
		return string(b)
	}
	return value
}

// truthy follows weak typing rules: nil, false, zero numbers, "" and "0" are false.
func truthy(value any) bool {
	switch v := unwrapBytes(value).(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != "" && v != "0"
	default:
		if f, err := cast.ToFloat64E(v); err == nil {
			return f != 0
		}
		return true
	}
}

// unserialize decodes a PHP-serialized array into a string keyed structure.
// An empty or absent value yields an empty map.
func unserialize(value any) (map[string]any, error) {
	raw := coerceString(value)
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}, nil
	}

	decoded, err := phpserialize.UnmarshalAssociativeArray([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBlob, err)
	}
	return stringKeys(decoded), nil
}

func stringKeys(m map[any]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[cast.ToString(k)] = normalizeDecoded(v)
	}
	return out
}

func normalizeDecoded(v any) any {
	switch t := v.(type) {
	case map[any]any:
		return stringKeys(t)
	case []byte:
		return string(t)
	default:
		return v
	}
}
