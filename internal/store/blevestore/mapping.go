package blevestore

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/sha1n/propindex/internal/store"
)

// CreateIndexMapping translates a store mapping into a Bleve index mapping.
func CreateIndexMapping(m store.Mapping) mapping.IndexMapping {
	docMapping := bleve.NewDocumentMapping()

	for _, f := range m.Fields {
		switch f.Type {
		case store.MappingInteger, store.MappingFloat:
			docMapping.AddFieldMappingsAt(f.Name, bleve.NewNumericFieldMapping())

		case store.MappingString:
			// Exact values, matched by term filters
			field := bleve.NewTextFieldMapping()
			field.Analyzer = keyword.Name
			docMapping.AddFieldMappingsAt(f.Name, field)

		case store.MappingGeoPoint:
			docMapping.AddFieldMappingsAt(f.Name, bleve.NewGeoPointFieldMapping())

		case store.MappingObject:
			// Keys are only known at index time
			sub := bleve.NewDocumentMapping()
			if f.FullText {
				sub.DefaultAnalyzer = standard.Name
			} else {
				sub.DefaultAnalyzer = keyword.Name
			}
			docMapping.AddSubDocumentMapping(f.Name, sub)
		}
	}

	indexMapping := bleve.NewIndexMapping()
	indexMapping.AddDocumentMapping(m.Type, docMapping)
	indexMapping.DefaultType = m.Type
	indexMapping.DefaultAnalyzer = standard.Name

	return indexMapping
}
