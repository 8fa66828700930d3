package properties

import (
	"errors"
	"testing"

	"github.com/sha1n/propindex/internal/domain"
)

func TestCoerceInt(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  int64
	}{
		{"nil", nil, 0},
		{"int", 7, 7},
		{"int64", int64(42), 42},
		{"float truncates", 3.9, 3},
		{"numeric string", "15", 15},
		{"leading zero", "08", 8},
		{"octal looking", "010", 10},
		{"hex looking", "0x1A", 0},
		{"padded negative", " -3 ", -3},
		{"decimal string", "12.7", 12},
		{"numeric prefix", "12abc", 12},
		{"non numeric", "abc", 0},
		{"empty", "", 0},
		{"bytes", []byte("21"), 21},
		{"true", true, 1},
		{"false", false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := coerceInt(tt.value); got != tt.want {
				t.Errorf("coerceInt(%#v) = %d, want %d", tt.value, got, tt.want)
			}
		})
	}
}

func TestCoerceFloat(t *testing.T) {
	tests := []struct {
		value any
		want  float64
	}{
		{nil, 0},
		{"1000.50", 1000.5},
		{1000, 1000},
		{"9.5 EUR", 9.5},
		{"n/a", 0},
		{[]byte("2.25"), 2.25},
	}
	for _, tt := range tests {
		if got := coerceFloat(tt.value); got != tt.want {
			t.Errorf("coerceFloat(%#v) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestCoerceString(t *testing.T) {
	tests := []struct {
		value any
		want  string
	}{
		{nil, ""},
		{"fr", "fr"},
		{[]byte("it"), "it"},
		{12, "12"},
		{1000.0, "1000"},
	}
	for _, tt := range tests {
		if got := coerceString(tt.value); got != tt.want {
			t.Errorf("coerceString(%#v) = %q, want %q", tt.value, got, tt.want)
		}
	}
}

func TestCoerce_ByType(t *testing.T) {
	if got := coerce("3", domain.TypeInteger); got != int64(3) {
		t.Errorf("integer = %#v", got)
	}
	if got := coerce("3.5", domain.TypeFloat); got != 3.5 {
		t.Errorf("float = %#v", got)
	}
	if got := coerce(3, domain.TypeString); got != "3" {
		t.Errorf("string = %#v", got)
	}
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		value any
		want  bool
	}{
		{nil, false},
		{"", false},
		{"0", false},
		{0, false},
		{0.0, false},
		{false, false},
		{"0.0", true},
		{"43.7", true},
		{43.7, true},
		{[]byte("7.2"), true},
		{true, true},
	}
	for _, tt := range tests {
		if got := truthy(tt.value); got != tt.want {
			t.Errorf("truthy(%#v) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestUnserialize(t *testing.T) {
	got, err := unserialize(`a:2:{s:5:"beach";i:500;s:3:"ski";i:7000;}`)
	if err != nil {
		t.Fatalf("unserialize failed: %v", err)
	}
	if len(got) != 2 || got["beach"] != int64(500) || got["ski"] != int64(7000) {
		t.Errorf("unserialize = %#v", got)
	}
}

func TestUnserialize_IntegerKeysAndNesting(t *testing.T) {
	got, err := unserialize([]byte(`a:1:{i:3;a:1:{s:1:"x";s:1:"y";}}`))
	if err != nil {
		t.Fatalf("unserialize failed: %v", err)
	}
	nested, ok := got["3"].(map[string]any)
	if !ok {
		t.Fatalf("nested value = %#v, want map", got["3"])
	}
	if nested["x"] != "y" {
		t.Errorf("nested = %#v", nested)
	}
}

func TestUnserialize_Empty(t *testing.T) {
	for _, value := range []any{nil, "", "  ", []byte{}} {
		got, err := unserialize(value)
		if err != nil {
			t.Fatalf("unserialize(%#v) failed: %v", value, err)
		}
		if got == nil || len(got) != 0 {
			t.Errorf("unserialize(%#v) = %#v, want empty map", value, got)
		}
	}
}

func TestUnserialize_Malformed(t *testing.T) {
	_, err := unserialize(`beach=500`)
	if !errors.Is(err, ErrMalformedBlob) {
		t.Errorf("error = %v, want ErrMalformedBlob", err)
	}
}
