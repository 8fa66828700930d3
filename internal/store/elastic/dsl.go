package elastic

import (
	"fmt"

	"github.com/sha1n/propindex/internal/query"
	"github.com/sha1n/propindex/internal/store"
)

// renderQuery converts a store-neutral query into the Elasticsearch query DSL.
func renderQuery(q query.Query) (map[string]any, error) {
	switch t := q.(type) {
	case nil, query.MatchAll:
		return map[string]any{"match_all": map[string]any{}}, nil

	case query.Match:
		return map[string]any{"match": map[string]any{t.Field: t.Text}}, nil

	case query.Term:
		return map[string]any{"term": map[string]any{t.Field: t.Value}}, nil

	case query.Terms:
		values := t.Values
		if values == nil {
			values = []any{}
		}
		return map[string]any{"terms": map[string]any{t.Field: values}}, nil

	case query.Range:
		bounds := map[string]any{}
		if t.GTE != nil {
			bounds["gte"] = *t.GTE
		}
		if t.LTE != nil {
			bounds["lte"] = *t.LTE
		}
		return map[string]any{"range": map[string]any{t.Field: bounds}}, nil

	case query.GeoDistance:
		return map[string]any{"geo_distance": t.Raw}, nil

	case query.Bool:
		body := map[string]any{}
		if len(t.Must) > 0 {
			must, err := renderClauses(t.Must)
			if err != nil {
				return nil, err
			}
			body["must"] = must
		}
		if len(t.Filter) > 0 {
			filter, err := renderClauses(t.Filter)
			if err != nil {
				return nil, err
			}
			body["filter"] = filter
		}
		return map[string]any{"bool": body}, nil

	default:
		return nil, fmt.Errorf("unsupported query node %T", q)
	}
}

func renderClauses(clauses []query.Query) ([]any, error) {
	out := make([]any, 0, len(clauses))
	for _, c := range clauses {
		rendered, err := renderQuery(c)
		if err != nil {
			return nil, err
		}
		out = append(out, rendered)
	}
	return out, nil
}

// renderRequest builds the search body: query, paging and sort.
func renderRequest(req query.Request) (map[string]any, error) {
	q, err := renderQuery(req.Query)
	if err != nil {
		return nil, err
	}
	body := map[string]any{"query": q}
	if req.Size != nil {
		body["size"] = *req.Size
	}
	if req.From != nil {
		body["from"] = *req.From
	}
	if len(req.Sort) > 0 {
		sort := make([]any, 0, len(req.Sort))
		for _, f := range req.Sort {
			order := "asc"
			if f.Desc {
				order = "desc"
			}
			sort = append(sort, map[string]any{f.Field: map[string]any{"order": order}})
		}
		body["sort"] = sort
	}
	return body, nil
}

// renderMapping builds a typed create-index body.
func renderMapping(m store.Mapping) map[string]any {
	properties := make(map[string]any, len(m.Fields))
	for _, f := range m.Fields {
		properties[f.Name] = map[string]any{"type": fieldType(f.Type)}
	}
	return map[string]any{
		"mappings": map[string]any{
			m.Type: map[string]any{"properties": properties},
		},
	}
}

func fieldType(t store.MappingType) string {
	switch t {
	case store.MappingString:
		return "keyword"
	default:
		return string(t)
	}
}
