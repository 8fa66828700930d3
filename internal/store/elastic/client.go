// Package elastic implements the document store on an Elasticsearch 7 cluster.
package elastic

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
	jsoniter "github.com/json-iterator/go"
	"github.com/sha1n/propindex/internal/query"
	"github.com/sha1n/propindex/internal/store"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Config holds the cluster connection settings.
type Config struct {
	Addresses []string
	Username  string
	Password  string

	// Refresh makes every write visible to search before it returns
	Refresh bool

	// Transport overrides the HTTP transport, mainly for tests
	Transport http.RoundTripper
}

// Store talks to Elasticsearch through the esapi request types.
type Store struct {
	client  *elasticsearch.Client
	refresh string
}

var _ store.Store = (*Store)(nil)

// New creates a store for the given cluster. No request is sent until the first call.
func New(cfg Config) (*Store, error) {
	if len(cfg.Addresses) == 0 {
		return nil, fmt.Errorf("elasticsearch addresses cannot be empty")
	}
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: cfg.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}
	s := &Store{client: client}
	if cfg.Refresh {
		s.refresh = "true"
	}
	return s, nil
}

// IndicesExists checks if the named index exists.
func (s *Store) IndicesExists(ctx context.Context, index string) (bool, error) {
	res, err := esapi.IndicesExistsRequest{Index: []string{index}}.Do(ctx, s.client)
	if err != nil {
		return false, fmt.Errorf("indices exists request failed: %w", err)
	}
	defer closeBody(res)

	switch res.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, decodeError(res)
	}
}

// IndicesDelete removes the named index.
func (s *Store) IndicesDelete(ctx context.Context, index string) error {
	res, err := esapi.IndicesDeleteRequest{Index: []string{index}}.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("indices delete request failed: %w", err)
	}
	defer closeBody(res)

	if res.IsError() {
		return decodeError(res)
	}
	return nil
}

// IndicesCreate creates the index with a typed mapping.
func (s *Store) IndicesCreate(ctx context.Context, index string, m store.Mapping) error {
	body, err := encode(renderMapping(m))
	if err != nil {
		return err
	}
	includeTypeName := true
	res, err := esapi.IndicesCreateRequest{
		Index:           index,
		Body:            body,
		IncludeTypeName: &includeTypeName,
	}.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("indices create request failed: %w", err)
	}
	defer closeBody(res)

	if res.IsError() {
		return decodeError(res)
	}
	return nil
}

type writeResponse struct {
	Index  string `json:"_index"`
	Type   string `json:"_type"`
	ID     string `json:"_id"`
	Result string `json:"result"`
}

// Index upserts body under id.
func (s *Store) Index(ctx context.Context, index, docType, id string, body map[string]any) (store.Ack, error) {
	reader, err := encode(body)
	if err != nil {
		return store.Ack{}, err
	}
	res, err := esapi.IndexRequest{
		Index:        index,
		DocumentType: docType,
		DocumentID:   id,
		Body:         reader,
		Refresh:      s.refresh,
	}.Do(ctx, s.client)
	if err != nil {
		return store.Ack{}, fmt.Errorf("index request failed: %w", err)
	}
	defer closeBody(res)

	if res.IsError() {
		return store.Ack{}, decodeError(res)
	}
	var wr writeResponse
	if err := json.NewDecoder(res.Body).Decode(&wr); err != nil {
		return store.Ack{}, fmt.Errorf("failed to decode index response: %w", err)
	}
	return ack(wr, index, docType, id), nil
}

type getResponse struct {
	ID     string              `json:"_id"`
	Found  bool                `json:"found"`
	Source jsoniter.RawMessage `json:"_source"`
}

// Get returns the stored document, or nil if there is none.
func (s *Store) Get(ctx context.Context, index, docType, id string) (*store.Hit, error) {
	res, err := esapi.GetRequest{
		Index:        index,
		DocumentType: docType,
		DocumentID:   id,
	}.Do(ctx, s.client)
	if err != nil {
		return nil, fmt.Errorf("get request failed: %w", err)
	}
	defer closeBody(res)

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read get response: %w", err)
	}
	if res.StatusCode == http.StatusNotFound && !hasError(data) {
		return nil, nil
	}
	if res.IsError() {
		return nil, parseError(res.StatusCode, data)
	}

	var gr getResponse
	if err := json.Unmarshal(data, &gr); err != nil {
		return nil, fmt.Errorf("failed to decode get response: %w", err)
	}
	if !gr.Found {
		return nil, nil
	}
	source, err := store.DecodeSource(gr.Source)
	if err != nil {
		return nil, err
	}
	return &store.Hit{ID: gr.ID, Source: source}, nil
}

// Delete removes the document with the given id.
func (s *Store) Delete(ctx context.Context, index, docType, id string) (store.Ack, error) {
	res, err := esapi.DeleteRequest{
		Index:        index,
		DocumentType: docType,
		DocumentID:   id,
		Refresh:      s.refresh,
	}.Do(ctx, s.client)
	if err != nil {
		return store.Ack{}, fmt.Errorf("delete request failed: %w", err)
	}
	defer closeBody(res)

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return store.Ack{}, fmt.Errorf("failed to read delete response: %w", err)
	}
	if res.IsError() && !(res.StatusCode == http.StatusNotFound && !hasError(data)) {
		return store.Ack{}, parseError(res.StatusCode, data)
	}

	var wr writeResponse
	if err := json.Unmarshal(data, &wr); err != nil {
		return store.Ack{}, fmt.Errorf("failed to decode delete response: %w", err)
	}
	if wr.Result == "" && res.StatusCode == http.StatusNotFound {
		wr.Result = store.ResultNotFound
	}
	return ack(wr, index, docType, id), nil
}

type searchResponse struct {
	Hits struct {
		Total jsoniter.RawMessage `json:"total"`
		Hits  []struct {
			ID     string              `json:"_id"`
			Score  *float64            `json:"_score"`
			Source jsoniter.RawMessage `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search runs the request against one index and type.
func (s *Store) Search(ctx context.Context, index, docType string, req query.Request) (*store.SearchResult, error) {
	body, err := renderRequest(req)
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	reader, err := encode(body)
	if err != nil {
		return nil, err
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(index),
		s.client.Search.WithDocumentType(docType),
		s.client.Search.WithBody(reader),
		s.client.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer closeBody(res)

	if res.IsError() {
		return nil, decodeError(res)
	}

	var sr searchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	total, err := parseTotal(sr.Hits.Total)
	if err != nil {
		return nil, err
	}
	out := &store.SearchResult{Total: total, Hits: make([]store.Hit, 0, len(sr.Hits.Hits))}
	for _, h := range sr.Hits.Hits {
		source, err := store.DecodeSource(h.Source)
		if err != nil {
			return nil, err
		}
		hit := store.Hit{ID: h.ID, Source: source}
		if h.Score != nil {
			hit.Score = *h.Score
		}
		out.Hits = append(out.Hits, hit)
	}
	return out, nil
}

// Count returns the number of documents in an index.
func (s *Store) Count(ctx context.Context, index string) (uint64, error) {
	res, err := esapi.CountRequest{Index: []string{index}}.Do(ctx, s.client)
	if err != nil {
		return 0, fmt.Errorf("count request failed: %w", err)
	}
	defer closeBody(res)

	if res.IsError() {
		return 0, decodeError(res)
	}
	var cr struct {
		Count uint64 `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&cr); err != nil {
		return 0, fmt.Errorf("failed to decode count response: %w", err)
	}
	return cr.Count, nil
}

// Close is a no-op; the client holds no resources beyond idle HTTP connections.
func (s *Store) Close() error {
	return nil
}

// parseTotal accepts both the 7.x object form {"value": n} and the legacy integer form.
func parseTotal(raw jsoniter.RawMessage) (uint64, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return 0, nil
	}
	if trimmed[0] == '{' {
		var t struct {
			Value uint64 `json:"value"`
		}
		if err := json.Unmarshal(trimmed, &t); err != nil {
			return 0, fmt.Errorf("failed to decode hits total: %w", err)
		}
		return t.Value, nil
	}
	var n uint64
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return 0, fmt.Errorf("failed to decode hits total: %w", err)
	}
	return n, nil
}

func ack(wr writeResponse, index, docType, id string) store.Ack {
	a := store.Ack{Index: wr.Index, Type: wr.Type, ID: wr.ID, Result: wr.Result}
	if a.Index == "" {
		a.Index = index
	}
	if a.Type == "" {
		a.Type = docType
	}
	if a.ID == "" {
		a.ID = id
	}
	return a
}

func encode(v any) (io.Reader, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}
	return &buf, nil
}

func closeBody(res *esapi.Response) {
	if res != nil && res.Body != nil {
		_ = res.Body.Close()
	}
}

// ResponseError is an error reply from the cluster.
type ResponseError struct {
	StatusCode int
	Type       string
	Reason     string
}

func (e *ResponseError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("elasticsearch error [%d]", e.StatusCode)
	}
	return fmt.Sprintf("elasticsearch error [%d] %s: %s", e.StatusCode, e.Type, e.Reason)
}

// Unwrap maps well known error types onto the store sentinels.
func (e *ResponseError) Unwrap() error {
	switch e.Type {
	case "index_not_found_exception":
		return store.ErrIndexNotFound
	case "resource_already_exists_exception":
		return store.ErrIndexExists
	}
	return nil
}

type errorBody struct {
	Error jsoniter.RawMessage `json:"error"`
}

func hasError(data []byte) bool {
	var eb errorBody
	if err := json.Unmarshal(data, &eb); err != nil {
		return false
	}
	return len(eb.Error) > 0 && string(eb.Error) != "null"
}

func decodeError(res *esapi.Response) error {
	data, _ := io.ReadAll(res.Body)
	return parseError(res.StatusCode, data)
}

func parseError(status int, data []byte) error {
	re := &ResponseError{StatusCode: status}
	var eb errorBody
	if err := json.Unmarshal(data, &eb); err != nil || len(eb.Error) == 0 {
		if status == http.StatusNotFound {
			re.Type = "index_not_found_exception"
		}
		return re
	}
	var detail struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal(eb.Error, &detail); err != nil {
		re.Reason = strings.Trim(string(eb.Error), `"`)
		return re
	}
	re.Type, re.Reason = detail.Type, detail.Reason
	return re
}
