// Package query holds the store-neutral search request produced by the
// property query builder and rendered by each document store backend.
package query

// Query is a node of a search query tree.
type Query interface {
	isQuery()
}

// MatchAll matches every document.
type MatchAll struct{}

// Match is a full-text match on an analyzed field.
type Match struct {
	Field string
	Text  string
}

// Term matches documents whose field holds exactly Value.
type Term struct {
	Field string
	Value any
}

// Terms matches documents whose field holds any of Values.
type Terms struct {
	Field  string
	Values []any
}

// Range bounds a numeric field. Nil bounds are open.
type Range struct {
	Field string
	GTE   *int64
	LTE   *int64
}

// GeoDistance keeps the caller supplied geo distance clause verbatim.
// Raw has the store's native shape, e.g. {"distance": "10km", "location": {"lat": 1, "lon": 2}}.
type GeoDistance struct {
	Raw map[string]any
}

// Bool combines scoring Must clauses with non-scoring Filter clauses; all of them must match.
type Bool struct {
	Must   []Query
	Filter []Query
}

func (MatchAll) isQuery()    {}
func (Match) isQuery()       {}
func (Term) isQuery()        {}
func (Terms) isQuery()       {}
func (Range) isQuery()       {}
func (GeoDistance) isQuery() {}
func (Bool) isQuery()        {}

// SortField orders results by one field.
type SortField struct {
	Field string `json:"field"`
	Desc  bool   `json:"desc,omitempty"`
}

// Request is a complete search call: the query plus paging and ordering.
// Nil Size and From leave the store defaults in place.
type Request struct {
	Size  *int
	From  *int
	Query Query
	Sort  []SortField
}

// Int returns a pointer to v.
func Int(v int) *int {
	return &v
}

// Int64 returns a pointer to v.
func Int64(v int64) *int64 {
	return &v
}
