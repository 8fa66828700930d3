// Package blevestore implements the document store on embedded Bleve indexes.
package blevestore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/sha1n/propindex/internal/query"
	"github.com/sha1n/propindex/internal/store"
)

const (
	// IndexSuffix is the suffix for index directories
	IndexSuffix = ".bleve"

	// DefaultSize is the page size used when a request sets none
	DefaultSize = 10

	sourcePrefix = "_source/"
)

// Store keeps one Bleve index per index name, on disk under a base directory
// or in memory when the base directory is empty.
// Bleve has no document types; the type is recorded in the mapping only.
type Store struct {
	baseDir string
	indexes map[string]bleve.Index
	mu      sync.RWMutex
}

var _ store.Store = (*Store)(nil)

// New creates a store whose indexes live under baseDir.
func New(baseDir string) (*Store, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("base directory cannot be empty")
	}
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &Store{
		baseDir: baseDir,
		indexes: make(map[string]bleve.Index),
	}, nil
}

// NewMemOnly creates a store whose indexes are never persisted.
func NewMemOnly() *Store {
	return &Store{indexes: make(map[string]bleve.Index)}
}

// indexPath returns the path to an index directory.
func (s *Store) indexPath(index string) string {
	return filepath.Join(s.baseDir, index+IndexSuffix)
}

func (s *Store) memOnly() bool {
	return s.baseDir == ""
}

// open returns the named index, opening it from disk on first use.
func (s *Store) open(index string) (bleve.Index, error) {
	s.mu.RLock()
	idx, ok := s.indexes[index]
	s.mu.RUnlock()
	if ok {
		return idx, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if idx, ok := s.indexes[index]; ok {
		return idx, nil
	}
	if s.memOnly() {
		return nil, fmt.Errorf("%w: %s", store.ErrIndexNotFound, index)
	}

	path := s.indexPath(index)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", store.ErrIndexNotFound, index)
	}
	idx, err := bleve.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	s.indexes[index] = idx
	return idx, nil
}

// IndicesExists checks if the named index exists.
func (s *Store) IndicesExists(_ context.Context, index string) (bool, error) {
	s.mu.RLock()
	_, ok := s.indexes[index]
	s.mu.RUnlock()
	if ok {
		return true, nil
	}
	if s.memOnly() {
		return false, nil
	}
	_, err := os.Stat(s.indexPath(index))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat index: %w", err)
	}
	return true, nil
}

// IndicesDelete closes and removes the named index.
func (s *Store) IndicesDelete(_ context.Context, index string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, open := s.indexes[index]
	if open {
		delete(s.indexes, index)
		if err := idx.Close(); err != nil {
			return fmt.Errorf("failed to close index: %w", err)
		}
	}
	if s.memOnly() {
		if !open {
			return fmt.Errorf("%w: %s", store.ErrIndexNotFound, index)
		}
		return nil
	}

	path := s.indexPath(index)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", store.ErrIndexNotFound, index)
	}
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to remove index: %w", err)
	}
	return nil
}

// IndicesCreate creates an empty index with the given mapping.
// It fails with store.ErrIndexExists if the index is already there.
func (s *Store) IndicesCreate(ctx context.Context, index string, m store.Mapping) error {
	exists, err := s.IndicesExists(ctx, index)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", store.ErrIndexExists, index)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	indexMapping := CreateIndexMapping(m)
	var idx bleve.Index
	if s.memOnly() {
		idx, err = bleve.NewMemOnly(indexMapping)
	} else {
		idx, err = bleve.New(s.indexPath(index), indexMapping)
	}
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	s.indexes[index] = idx
	return nil
}

// Index stores body under id, replacing any previous version.
// The source is kept alongside the indexed fields so Get and Search can return it.
func (s *Store) Index(_ context.Context, index, docType, id string, body map[string]any) (store.Ack, error) {
	idx, err := s.open(index)
	if err != nil {
		return store.Ack{}, err
	}

	source, err := store.EncodeSource(body)
	if err != nil {
		return store.Ack{}, fmt.Errorf("failed to encode document %s: %w", id, err)
	}

	previous, err := idx.GetInternal(sourceKey(id))
	if err != nil {
		return store.Ack{}, fmt.Errorf("failed to read document %s: %w", id, err)
	}

	batch := idx.NewBatch()
	if err := batch.Index(id, body); err != nil {
		return store.Ack{}, fmt.Errorf("failed to index document %s: %w", id, err)
	}
	batch.SetInternal(sourceKey(id), source)
	if err := idx.Batch(batch); err != nil {
		return store.Ack{}, fmt.Errorf("batch index failed: %w", err)
	}

	result := store.ResultCreated
	if previous != nil {
		result = store.ResultUpdated
	}
	return store.Ack{Index: index, Type: docType, ID: id, Result: result}, nil
}

// Get returns the stored document, or nil if there is none.
func (s *Store) Get(_ context.Context, index, _ string, id string) (*store.Hit, error) {
	idx, err := s.open(index)
	if err != nil {
		return nil, err
	}
	return loadHit(idx, id, 0)
}

// Delete removes the document with the given id.
func (s *Store) Delete(_ context.Context, index, docType, id string) (store.Ack, error) {
	idx, err := s.open(index)
	if err != nil {
		return store.Ack{}, err
	}

	ack := store.Ack{Index: index, Type: docType, ID: id, Result: store.ResultNotFound}
	previous, err := idx.GetInternal(sourceKey(id))
	if err != nil {
		return store.Ack{}, fmt.Errorf("failed to read document %s: %w", id, err)
	}
	if previous == nil {
		return ack, nil
	}

	batch := idx.NewBatch()
	batch.Delete(id)
	batch.DeleteInternal(sourceKey(id))
	if err := idx.Batch(batch); err != nil {
		return store.Ack{}, fmt.Errorf("batch delete failed: %w", err)
	}
	ack.Result = store.ResultDeleted
	return ack, nil
}

// Search runs the request and loads the source of every returned hit.
func (s *Store) Search(_ context.Context, index, _ string, req query.Request) (*store.SearchResult, error) {
	idx, err := s.open(index)
	if err != nil {
		return nil, err
	}

	q, err := renderQuery(req.Query)
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	size, from := DefaultSize, 0
	if req.Size != nil {
		size = *req.Size
	}
	if req.From != nil {
		from = *req.From
	}

	searchReq := bleve.NewSearchRequestOptions(q, size, from, false)
	if len(req.Sort) > 0 {
		searchReq.SortBy(sortOrder(req.Sort))
	}

	results, err := idx.Search(searchReq)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	out := &store.SearchResult{
		Total: results.Total,
		Hits:  make([]store.Hit, 0, len(results.Hits)),
	}
	for _, match := range results.Hits {
		hit, err := loadHit(idx, match.ID, match.Score)
		if err != nil {
			return nil, err
		}
		if hit != nil {
			out.Hits = append(out.Hits, *hit)
		}
	}
	return out, nil
}

// Count returns the number of documents in an index.
func (s *Store) Count(_ context.Context, index string) (uint64, error) {
	idx, err := s.open(index)
	if err != nil {
		return 0, err
	}
	return idx.DocCount()
}

// Close releases all open indexes.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for name, idx := range s.indexes {
		if err := idx.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close index %s: %w", name, err)
		}
		delete(s.indexes, name)
	}
	return firstErr
}

func loadHit(idx bleve.Index, id string, score float64) (*store.Hit, error) {
	data, err := idx.GetInternal(sourceKey(id))
	if err != nil {
		return nil, fmt.Errorf("failed to read document %s: %w", id, err)
	}
	if data == nil {
		return nil, nil
	}
	source, err := store.DecodeSource(data)
	if err != nil {
		return nil, err
	}
	return &store.Hit{ID: id, Score: score, Source: source}, nil
}

func sourceKey(id string) []byte {
	return []byte(sourcePrefix + id)
}
