package properties

import (
	"errors"
	"fmt"
	"reflect"
	"sort"

	"github.com/sha1n/propindex/internal/domain"
	"github.com/sha1n/propindex/internal/query"
	"github.com/spf13/cast"
)

// ErrInvalidCriterion is returned when a criterion value has the wrong shape.
var ErrInvalidCriterion = errors.New("invalid criterion")

// exact criteria filtered with a term clause, in clause order
var termCriteria = []struct {
	key   string
	field string
}{
	{domain.CriterionPropertyTypeID, domain.FieldPropertyType},
	{domain.CriterionEstateTypeID, domain.FieldEstateType},
	{domain.CriterionImportAgencyID, domain.FieldImportAgencyID},
}

var termsCriteria = []struct {
	key   string
	field string
}{
	{domain.CriterionCountryIDs, domain.FieldCountryID},
	{domain.CriterionRegionIDs, domain.FieldRegionID},
	{domain.CriterionCityIDs, domain.FieldCityID},
}

var rangeCriteria = []struct {
	key   string
	field string
	lower bool
}{
	{domain.CriterionSizeFrom, domain.FieldSize, true},
	{domain.CriterionSizeTo, domain.FieldSize, false},
	{domain.CriterionSizeTotalFrom, domain.FieldSizeTotal, true},
	{domain.CriterionSizeTotalTo, domain.FieldSizeTotal, false},
	{domain.CriterionPriceFrom, domain.FieldPrice, true},
	{domain.CriterionPriceTo, domain.FieldPrice, false},
	{domain.CriterionPriceStandardFrom, domain.FieldPriceStandard, true},
	{domain.CriterionPriceStandardTo, domain.FieldPriceStandard, false},
}

var countCriteria = []struct {
	key   string
	field string
}{
	{domain.CriterionRooms, domain.FieldRooms},
	{domain.CriterionBedrooms, domain.FieldBedrooms},
	{domain.CriterionGuests, domain.FieldGuests},
}

// BuildRequest translates criteria into a search request.
// A zero limit or offset leaves the store default in place.
func BuildRequest(c domain.Criteria, orderBy []query.SortField, limit, offset int) (query.Request, error) {
	var req query.Request
	if limit > 0 {
		req.Size = query.Int(limit)
	}
	if offset > 0 {
		req.From = query.Int(offset)
	}
	if len(orderBy) > 0 {
		req.Sort = append([]query.SortField(nil), orderBy...)
	}

	q, err := BuildQuery(c)
	if err != nil {
		return query.Request{}, err
	}
	req.Query = q
	return req, nil
}

// BuildQuery translates criteria into a query: full-text search as a scoring clause,
// every other criterion as a filter. Empty criteria match all documents.
func BuildQuery(c domain.Criteria) (query.Query, error) {
	if c.IsEmpty() {
		return query.MatchAll{}, nil
	}

	lang := domain.DefaultLang
	if v, ok := c.Get(domain.CriterionLang); ok {
		if s := coerceString(v); s != "" {
			lang = s
		}
	}

	var must, filter []query.Query

	if v, ok := c.Get(domain.CriterionSearch); ok {
		if text := coerceString(v); text != "" {
			must = append(must, query.Match{
				Field: fmt.Sprintf("%s.%s.%s", domain.FieldTranslations, lang, domain.TranslationName),
				Text:  text,
			})
		}
	}

	for _, tc := range termCriteria {
		if v, ok := c.Get(tc.key); ok {
			filter = append(filter, query.Term{Field: tc.field, Value: v})
		}
	}

	for _, tc := range termsCriteria {
		v, ok := c.Get(tc.key)
		if !ok {
			continue
		}
		values, err := toList(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidCriterion, tc.key, err)
		}
		if len(values) > 0 {
			filter = append(filter, query.Terms{Field: tc.field, Values: values})
		}
	}

	for _, rc := range rangeCriteria {
		v, ok := c.Get(rc.key)
		if !ok {
			continue
		}
		bound := query.Int64(coerceInt(v))
		r := query.Range{Field: rc.field}
		if rc.lower {
			r.GTE = bound
		} else {
			r.LTE = bound
		}
		filter = append(filter, r)
	}

	if v, ok := c.Get(domain.CriterionDistances); ok {
		distances, err := toMap(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidCriterion, domain.CriterionDistances, err)
		}
		for _, place := range sortedKeys(distances) {
			filter = append(filter, query.Range{
				Field: domain.FieldDistances + "." + place,
				LTE:   query.Int64(coerceInt(distances[place])),
			})
		}
	}

	if v, ok := c.Get(domain.CriterionNearFilter); ok {
		near, err := toMap(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidCriterion, domain.CriterionNearFilter, err)
		}
		filter = append(filter, query.GeoDistance{Raw: near})
	}

	for _, cc := range countCriteria {
		if v, ok := c.Get(cc.key); ok {
			filter = append(filter, query.Term{Field: cc.field, Value: v})
		}
	}

	for _, mc := range []struct{ key, field string }{
		{domain.CriterionFeatures, domain.FieldFeatures},
		{domain.CriterionAvailables, domain.FieldAvailables},
	} {
		v, ok := c.Get(mc.key)
		if !ok {
			continue
		}
		entries, err := toMap(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidCriterion, mc.key, err)
		}
		for _, k := range sortedKeys(entries) {
			filter = append(filter, query.Term{Field: mc.field + "." + k, Value: entries[k]})
		}
	}

	if len(must) == 0 && len(filter) == 0 {
		return query.MatchAll{}, nil
	}
	return query.Bool{Must: must, Filter: filter}, nil
}

// toList accepts any slice, or a single scalar as a one element list.
func toList(v any) ([]any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case []any:
		return t, nil
	case string, []byte:
		return []any{unwrapBytes(v)}, nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		list := make([]any, rv.Len())
		for i := range list {
			list[i] = rv.Index(i).Interface()
		}
		return list, nil
	case reflect.Map, reflect.Struct:
		return nil, fmt.Errorf("expected a list, got %T", v)
	}
	return []any{v}, nil
}

func toMap(v any) (map[string]any, error) {
	if v == nil {
		return map[string]any{}, nil
	}
	if list, ok := v.([]any); ok && len(list) == 0 {
		return map[string]any{}, nil
	}
	m, err := cast.ToStringMapE(v)
	if err != nil {
		return nil, fmt.Errorf("expected a mapping, got %T", v)
	}
	return m, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
