package store

import (
	"fmt"
	"math"

	jsoniter "github.com/json-iterator/go"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// EncodeSource serializes a document body.
func EncodeSource(body map[string]any) ([]byte, error) {
	return codec.Marshal(body)
}

// DecodeSource parses a stored document body. Numbers without a fractional part
// decode as int64, all other numbers as float64.
func DecodeSource(data []byte) (map[string]any, error) {
	var source map[string]any
	if err := codec.Unmarshal(data, &source); err != nil {
		return nil, fmt.Errorf("failed to decode source: %w", err)
	}
	if source == nil {
		return map[string]any{}, nil
	}
	return normalizeNumbers(source).(map[string]any), nil
}

func normalizeNumbers(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, item := range t {
			t[k] = normalizeNumbers(item)
		}
		return t
	case []any:
		for i, item := range t {
			t[i] = normalizeNumbers(item)
		}
		return t
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1<<53 {
			return int64(t)
		}
		return t
	default:
		return v
	}
}
