// Package store defines the document store contract the property manager is written against.
package store

import (
	"context"
	"errors"

	"github.com/sha1n/propindex/internal/query"
)

var (
	// ErrIndexNotFound indicates the addressed index does not exist
	ErrIndexNotFound = errors.New("index not found")

	// ErrIndexExists indicates an index with the same name already exists
	ErrIndexExists = errors.New("index already exists")
)

// Acknowledgment results
const (
	ResultCreated  = "created"
	ResultUpdated  = "updated"
	ResultDeleted  = "deleted"
	ResultNotFound = "not_found"
)

// MappingType is the schema type of an indexed field.
type MappingType string

// Mapping types
const (
	MappingInteger  MappingType = "integer"
	MappingFloat    MappingType = "float"
	MappingString   MappingType = "string"
	MappingObject   MappingType = "object"
	MappingGeoPoint MappingType = "geo_point"
)

// FieldMapping is the schema of one top level field.
// FullText marks objects whose dynamic string values are analyzed for full-text matching
// rather than indexed as exact keywords.
type FieldMapping struct {
	Name     string
	Type     MappingType
	FullText bool
}

// Mapping is the schema of the documents of one type.
type Mapping struct {
	Type   string
	Fields []FieldMapping
}

// Ack acknowledges a write.
type Ack struct {
	Index  string
	Type   string
	ID     string
	Result string
}

// Found reports whether the write addressed an existing or newly created document.
func (a Ack) Found() bool {
	return a.Result != ResultNotFound
}

// Hit is one stored document.
type Hit struct {
	ID     string         `json:"id"`
	Score  float64        `json:"score"`
	Source map[string]any `json:"source"`
}

// SearchResult is the outcome of a search call.
// Total counts every matching document, Hits holds the requested page.
type SearchResult struct {
	Total uint64
	Hits  []Hit
}

// Store is a document store holding typed documents in named indexes.
//
// Get returns a nil hit and a nil error when the document does not exist.
// Delete reports a missing document through Ack.Result == ResultNotFound.
type Store interface {
	IndicesExists(ctx context.Context, index string) (bool, error)
	IndicesDelete(ctx context.Context, index string) error
	IndicesCreate(ctx context.Context, index string, mapping Mapping) error

	Index(ctx context.Context, index, docType, id string, body map[string]any) (Ack, error)
	Get(ctx context.Context, index, docType, id string) (*Hit, error)
	Delete(ctx context.Context, index, docType, id string) (Ack, error)
	Search(ctx context.Context, index, docType string, req query.Request) (*SearchResult, error)
	Count(ctx context.Context, index string) (uint64, error)

	Close() error
}
