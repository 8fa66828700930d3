package blevestore

import (
	"context"
	"errors"
	"testing"

	"github.com/sha1n/propindex/internal/query"
	"github.com/sha1n/propindex/internal/store"
)

const (
	testIndex = "listings"
	testType  = "objects"
)

func testMapping() store.Mapping {
	return store.Mapping{
		Type: testType,
		Fields: []store.FieldMapping{
			{Name: "rooms", Type: store.MappingInteger},
			{Name: "price", Type: store.MappingFloat},
			{Name: "country_id", Type: store.MappingString},
			{Name: "translations", Type: store.MappingObject, FullText: true},
			{Name: "features", Type: store.MappingObject},
			{Name: "location", Type: store.MappingGeoPoint},
		},
	}
}

// closeStore is a helper to close a store in tests and fail on error
func closeStore(t *testing.T, s *Store) {
	t.Helper()
	if err := s.Close(); err != nil {
		t.Errorf("Failed to close store: %v", err)
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewMemOnly()
	t.Cleanup(func() { closeStore(t, s) })
	if err := s.IndicesCreate(context.Background(), testIndex, testMapping()); err != nil {
		t.Fatalf("IndicesCreate failed: %v", err)
	}
	return s
}

func seed(t *testing.T, s *Store) {
	t.Helper()
	docs := map[string]map[string]any{
		"1": {
			"rooms": 3, "price": 1000.0, "country_id": "fr",
			"translations": map[string]any{"en": map[string]any{"name": "Sea view villa"}},
			"features":     map[string]any{"7": "1"},
			"location":     map[string]any{"lat": 43.70, "lon": 7.26},
		},
		"2": {
			"rooms": 2, "price": 450.5, "country_id": "fr",
			"translations": map[string]any{"en": map[string]any{"name": "Small flat"}},
			"location":     map[string]any{"lat": 48.85, "lon": 2.35},
		},
		"3": {
			"rooms": 5, "price": 3200.0, "country_id": "it",
			"translations": map[string]any{"en": map[string]any{"name": "Hillside villa"}},
		},
	}
	for id, body := range docs {
		if _, err := s.Index(context.Background(), testIndex, testType, id, body); err != nil {
			t.Fatalf("Index %s failed: %v", id, err)
		}
	}
}

func hitIDs(res *store.SearchResult) map[string]bool {
	ids := make(map[string]bool, len(res.Hits))
	for _, h := range res.Hits {
		ids[h.ID] = true
	}
	return ids
}

func TestNew_EmptyBaseDir(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Error("New should fail with an empty base directory")
	}
}

func TestStore_IndicesLifecycle(t *testing.T) {
	ctx := context.Background()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer closeStore(t, s)

	exists, err := s.IndicesExists(ctx, testIndex)
	if err != nil {
		t.Fatalf("IndicesExists failed: %v", err)
	}
	if exists {
		t.Error("index should not exist yet")
	}

	if err := s.IndicesCreate(ctx, testIndex, testMapping()); err != nil {
		t.Fatalf("IndicesCreate failed: %v", err)
	}
	if exists, _ := s.IndicesExists(ctx, testIndex); !exists {
		t.Error("index should exist after create")
	}

	err = s.IndicesCreate(ctx, testIndex, testMapping())
	if !errors.Is(err, store.ErrIndexExists) {
		t.Errorf("second IndicesCreate error = %v, want ErrIndexExists", err)
	}

	if err := s.IndicesDelete(ctx, testIndex); err != nil {
		t.Fatalf("IndicesDelete failed: %v", err)
	}
	if exists, _ := s.IndicesExists(ctx, testIndex); exists {
		t.Error("index should not exist after delete")
	}

	err = s.IndicesDelete(ctx, testIndex)
	if !errors.Is(err, store.ErrIndexNotFound) {
		t.Errorf("IndicesDelete of missing index error = %v, want ErrIndexNotFound", err)
	}
}

func TestStore_MissingIndex(t *testing.T) {
	s := NewMemOnly()
	defer closeStore(t, s)

	_, err := s.Get(context.Background(), "nope", testType, "1")
	if !errors.Is(err, store.ErrIndexNotFound) {
		t.Errorf("Get error = %v, want ErrIndexNotFound", err)
	}
	_, err = s.Index(context.Background(), "nope", testType, "1", map[string]any{})
	if !errors.Is(err, store.ErrIndexNotFound) {
		t.Errorf("Index error = %v, want ErrIndexNotFound", err)
	}
}

func TestStore_IndexGetDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	ack, err := s.Index(ctx, testIndex, testType, "42", map[string]any{"rooms": 2, "price": 99.5})
	if err != nil {
		t.Fatalf("Index failed: %v", err)
	}
	if ack.Result != store.ResultCreated {
		t.Errorf("first Index result = %q, want %q", ack.Result, store.ResultCreated)
	}

	ack, err = s.Index(ctx, testIndex, testType, "42", map[string]any{"rooms": 4})
	if err != nil {
		t.Fatalf("Index failed: %v", err)
	}
	if ack.Result != store.ResultUpdated {
		t.Errorf("second Index result = %q, want %q", ack.Result, store.ResultUpdated)
	}

	hit, err := s.Get(ctx, testIndex, testType, "42")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if hit == nil {
		t.Fatal("Get returned nil for an indexed document")
	}
	if hit.Source["rooms"] != int64(4) {
		t.Errorf("rooms = %v (%T), want 4", hit.Source["rooms"], hit.Source["rooms"])
	}
	if _, ok := hit.Source["price"]; ok {
		t.Error("update should replace the whole document")
	}

	ack, err = s.Delete(ctx, testIndex, testType, "42")
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if ack.Result != store.ResultDeleted {
		t.Errorf("Delete result = %q, want %q", ack.Result, store.ResultDeleted)
	}

	hit, err = s.Get(ctx, testIndex, testType, "42")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if hit != nil {
		t.Errorf("Get after delete = %v, want nil", hit)
	}

	ack, err = s.Delete(ctx, testIndex, testType, "42")
	if err != nil {
		t.Fatalf("Delete of missing document failed: %v", err)
	}
	if ack.Found() {
		t.Errorf("Delete of missing document result = %q, want %q", ack.Result, store.ResultNotFound)
	}
}

func TestStore_Search(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seed(t, s)

	tests := []struct {
		name  string
		query query.Query
		want  []string
	}{
		{"match all", query.MatchAll{}, []string{"1", "2", "3"}},
		{"nil query", nil, []string{"1", "2", "3"}},
		{"empty bool", query.Bool{}, []string{"1", "2", "3"}},
		{"keyword term", query.Term{Field: "country_id", Value: "fr"}, []string{"1", "2"}},
		{"numeric term", query.Term{Field: "rooms", Value: 3}, []string{"1"}},
		{"numeric string term", query.Term{Field: "rooms", Value: "5"}, []string{"3"}},
		{"terms", query.Terms{Field: "country_id", Values: []any{"it", "es"}}, []string{"3"}},
		{"empty terms", query.Terms{Field: "country_id"}, nil},
		{"range", query.Range{Field: "price", GTE: query.Int64(500), LTE: query.Int64(1500)}, []string{"1"}},
		{"range inclusive bound", query.Range{Field: "price", LTE: query.Int64(1000)}, []string{"1", "2"}},
		{"full text", query.Match{Field: "translations.en.name", Text: "villa"}, []string{"1", "3"}},
		{"object term", query.Term{Field: "features.7", Value: "1"}, []string{"1"}},
		{
			"geo distance",
			query.GeoDistance{Raw: map[string]any{
				"distance": "20km",
				"location": map[string]any{"lat": 43.71, "lon": 7.25},
			}},
			[]string{"1"},
		},
		{
			"bool must and filter",
			query.Bool{
				Must:   []query.Query{query.Match{Field: "translations.en.name", Text: "villa"}},
				Filter: []query.Query{query.Terms{Field: "country_id", Values: []any{"fr"}}},
			},
			[]string{"1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.Search(ctx, testIndex, testType, query.Request{Query: tt.query})
			if err != nil {
				t.Fatalf("Search failed: %v", err)
			}
			if res.Total != uint64(len(tt.want)) {
				t.Errorf("Total = %d, want %d", res.Total, len(tt.want))
			}
			ids := hitIDs(res)
			for _, id := range tt.want {
				if !ids[id] {
					t.Errorf("missing hit %s in %v", id, ids)
				}
			}
		})
	}
}

func TestStore_SearchPagingAndSort(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seed(t, s)

	res, err := s.Search(ctx, testIndex, testType, query.Request{
		Size: query.Int(2),
		Sort: []query.SortField{{Field: "rooms", Desc: true}},
	})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if res.Total != 3 {
		t.Errorf("Total = %d, want 3", res.Total)
	}
	if len(res.Hits) != 2 {
		t.Fatalf("len(Hits) = %d, want 2", len(res.Hits))
	}
	if res.Hits[0].ID != "3" || res.Hits[1].ID != "1" {
		t.Errorf("order = [%s %s], want [3 1]", res.Hits[0].ID, res.Hits[1].ID)
	}

	res, err = s.Search(ctx, testIndex, testType, query.Request{
		Size: query.Int(2),
		From: query.Int(2),
		Sort: []query.SortField{{Field: "rooms", Desc: true}},
	})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(res.Hits) != 1 || res.Hits[0].ID != "2" {
		t.Errorf("second page = %v, want [2]", hitIDs(res))
	}
	if res.Hits[0].Source["country_id"] != "fr" {
		t.Errorf("hit source = %v", res.Hits[0].Source)
	}
}

func TestStore_SearchInvalidGeo(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Search(context.Background(), testIndex, testType, query.Request{
		Query: query.GeoDistance{Raw: map[string]any{"location": "1,2"}},
	})
	if err == nil {
		t.Error("Search should fail for a geo clause without distance")
	}
}

func TestStore_Count(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)

	count, err := s.Count(context.Background(), testIndex)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 3 {
		t.Errorf("Count = %d, want 3", count)
	}
}

func TestStore_Persistence(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s1, err := New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := s1.IndicesCreate(ctx, testIndex, testMapping()); err != nil {
		t.Fatalf("IndicesCreate failed: %v", err)
	}
	if _, err := s1.Index(ctx, testIndex, testType, "7", map[string]any{"country_id": "es"}); err != nil {
		t.Fatalf("Index failed: %v", err)
	}
	closeStore(t, s1)

	s2, err := New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer closeStore(t, s2)

	hit, err := s2.Get(ctx, testIndex, testType, "7")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if hit == nil || hit.Source["country_id"] != "es" {
		t.Errorf("reopened document = %v", hit)
	}

	res, err := s2.Search(ctx, testIndex, testType, query.Request{Query: query.Term{Field: "country_id", Value: "es"}})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if res.Total != 1 {
		t.Errorf("Total = %d, want 1", res.Total)
	}
}

func TestSortOrder(t *testing.T) {
	got := sortOrder([]query.SortField{{Field: "price"}, {Field: "rooms", Desc: true}})
	if len(got) != 2 || got[0] != "price" || got[1] != "-rooms" {
		t.Errorf("sortOrder = %v", got)
	}
}

func TestRenderQuery_Unsupported(t *testing.T) {
	type bogus struct{ query.MatchAll }
	if _, err := renderQuery(bogus{}); err == nil {
		t.Error("renderQuery should reject unknown nodes")
	}
}
