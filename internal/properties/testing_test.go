package properties

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sha1n/propindex/internal/domain"
	"github.com/sha1n/propindex/internal/query"
	"github.com/sha1n/propindex/internal/store"
	"github.com/sha1n/propindex/internal/store/blevestore"
)

// fakeDB answers FetchAll by exact SQL text and records every query.
type fakeDB struct {
	mu      sync.Mutex
	results map[string][]domain.Row
	queries []string
	err     error
}

func (f *fakeDB) FetchAll(_ context.Context, sql string) ([]domain.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, sql)
	if f.err != nil {
		return nil, f.err
	}
	return f.results[sql], nil
}

type fakeTranslations map[int64]map[string]map[string]any

func (f fakeTranslations) TranslationsByModelID(_ context.Context, id int64) (map[string]map[string]any, error) {
	return f[id], nil
}

type failingTranslations struct{}

func (failingTranslations) TranslationsByModelID(context.Context, int64) (map[string]map[string]any, error) {
	return nil, errors.New("translations unavailable")
}

// countingStore counts the searches sent to the wrapped store.
type countingStore struct {
	store.Store
	mu       sync.Mutex
	searches []query.Request
}

func (c *countingStore) Search(ctx context.Context, index, docType string, req query.Request) (*store.SearchResult, error) {
	c.mu.Lock()
	c.searches = append(c.searches, req)
	c.mu.Unlock()
	return c.Store.Search(ctx, index, docType, req)
}

func (c *countingStore) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.searches)
}

// newTestManager builds a manager over an in-memory bleve store with an empty, mapped index.
func newTestManager(t *testing.T, db RowFetcher, tr TranslationSource, opts ...Option) (*Manager, *countingStore) {
	t.Helper()
	mem := blevestore.NewMemOnly()
	t.Cleanup(func() {
		if err := mem.Close(); err != nil {
			t.Errorf("Failed to close store: %v", err)
		}
	})
	cs := &countingStore{Store: mem}
	if db == nil {
		db = &fakeDB{}
	}
	m := NewManager(cs, db, tr, opts...)
	if err := m.Clear(context.Background()); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	return m, cs
}

func mustUpdate(t *testing.T, m *Manager, row domain.Row) {
	t.Helper()
	if _, err := m.Update(context.Background(), row); err != nil {
		t.Fatalf("Update %v failed: %v", row[domain.FieldID], err)
	}
}
