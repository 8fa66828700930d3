package domain

import (
	"bytes"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Search criteria keys
const (
	CriterionLang              = "lang"
	CriterionSearch            = "search"
	CriterionPropertyTypeID    = "property_type_id"
	CriterionEstateTypeID      = "estatetype_id"
	CriterionImportAgencyID    = "import_agency_id"
	CriterionCountryIDs        = "country_ids"
	CriterionRegionIDs         = "region_ids"
	CriterionCityIDs           = "city_ids"
	CriterionRooms             = "rooms"
	CriterionBedrooms          = "bedrooms"
	CriterionGuests            = "guests"
	CriterionSizeFrom          = "size_from"
	CriterionSizeTo            = "size_to"
	CriterionSizeTotalFrom     = "size_total_from"
	CriterionSizeTotalTo       = "size_total_to"
	CriterionPriceFrom         = "price_from"
	CriterionPriceTo           = "price_to"
	CriterionPriceStandardFrom = "price_standard_from"
	CriterionPriceStandardTo   = "price_standard_to"
	CriterionDistances         = "distances"
	CriterionNearFilter        = "near_filter"
	CriterionFeatures          = "features"
	CriterionAvailables        = "availables"
)

// DefaultLang is the language searched when the criteria carry no lang.
const DefaultLang = "en"

// Criterion is a single named search filter.
type Criterion struct {
	Key   string
	Value any
}

// Criteria is an insertion-ordered set of search filters.
// The order is significant: relaxation drops the most recently added key first.
type Criteria struct {
	entries []Criterion
}

// NewCriteria builds criteria from entries in the given order.
// A repeated key replaces the earlier value and keeps its original position.
func NewCriteria(entries ...Criterion) Criteria {
	var c Criteria
	for _, e := range entries {
		c.Set(e.Key, e.Value)
	}
	return c
}

// ParseCriteria decodes a JSON or YAML mapping, keeping the document's key order.
func ParseCriteria(data []byte) (Criteria, error) {
	var c Criteria
	if len(bytes.TrimSpace(data)) == 0 {
		return c, nil
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Criteria{}, fmt.Errorf("failed to parse criteria: %w", err)
	}
	return c, nil
}

// Len returns the number of keys.
func (c Criteria) Len() int {
	return len(c.entries)
}

// IsEmpty reports whether no key is set.
func (c Criteria) IsEmpty() bool {
	return len(c.entries) == 0
}

// Get returns the value stored under key.
func (c Criteria) Get(key string) (any, bool) {
	for _, e := range c.entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// Has reports whether key is set.
func (c Criteria) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Set stores value under key. New keys are appended.
func (c *Criteria) Set(key string, value any) {
	for i := range c.entries {
		if c.entries[i].Key == key {
			c.entries[i].Value = value
			return
		}
	}
	c.entries = append(c.entries, Criterion{Key: key, Value: value})
}

// Keys returns the keys in insertion order.
func (c Criteria) Keys() []string {
	keys := make([]string, len(c.entries))
	for i, e := range c.entries {
		keys[i] = e.Key
	}
	return keys
}

// Without returns a copy of c with key removed.
func (c Criteria) Without(key string) Criteria {
	out := Criteria{entries: make([]Criterion, 0, len(c.entries))}
	for _, e := range c.entries {
		if e.Key != key {
			out.entries = append(out.entries, e)
		}
	}
	return out
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (c *Criteria) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		*c = Criteria{}
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("criteria must be a mapping, got %s", kindName(node.Kind))
	}

	var out Criteria
	for i := 0; i+1 < len(node.Content); i += 2 {
		var value any
		if err := node.Content[i+1].Decode(&value); err != nil {
			return fmt.Errorf("criterion %q: %w", node.Content[i].Value, err)
		}
		out.Set(node.Content[i].Value, normalizeValue(value))
	}
	*c = out
	return nil
}

// UnmarshalJSON implements json.Unmarshaler. JSON objects are valid YAML flow mappings,
// so the same order-preserving decoder serves both.
func (c *Criteria) UnmarshalJSON(data []byte) error {
	return yaml.Unmarshal(data, c)
}

// MarshalJSON implements json.Marshaler and writes keys in insertion order.
func (c Criteria) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range c.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(e.Value)
		if err != nil {
			return nil, fmt.Errorf("criterion %q: %w", e.Key, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// String renders the criteria as JSON for logs.
func (c Criteria) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("%v", c.entries)
	}
	return string(data)
}

// normalizeValue converts YAML maps with non-string keys into string-keyed maps.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, item := range t {
			t[k] = normalizeValue(item)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[fmt.Sprint(k)] = normalizeValue(item)
		}
		return out
	case []any:
		for i, item := range t {
			t[i] = normalizeValue(item)
		}
		return t
	default:
		return v
	}
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.SequenceNode:
		return "sequence"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "unknown node"
	}
}
