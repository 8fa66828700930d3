// Package properties maps property rows to search documents and searches them
// with criteria that are relaxed until enough properties match.
package properties

import (
	"sync/atomic"

	"github.com/sha1n/propindex/internal/domain"
	"github.com/sha1n/propindex/internal/store"
)

const (
	// DefaultMin is the hit count below which a search is relaxed
	DefaultMin = 10

	// DefaultMaxRelaxations caps the store round-trips of one search
	DefaultMaxRelaxations = 32
)

// Manager indexes property rows and searches property documents.
// It is safe for concurrent use once built; Clear must not overlap with writes.
type Manager struct {
	client         store.Store
	db             RowFetcher
	translations   TranslationSource
	descriptors    *domain.Descriptors
	min            atomic.Int64
	maxRelaxations int
}

// Option configures a Manager.
type Option func(*Manager)

// WithMin sets the minimum hit count.
func WithMin(n int) Option {
	return func(m *Manager) {
		m.min.Store(int64(n))
	}
}

// WithMaxRelaxations caps the number of store round-trips of a single search.
func WithMaxRelaxations(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxRelaxations = n
		}
	}
}

// WithDescriptors replaces the property field tables.
func WithDescriptors(d *domain.Descriptors) Option {
	return func(m *Manager) {
		m.descriptors = d
	}
}

// NewManager creates a manager over a document store, a relational database and a
// translation source. translations may be nil, in which case documents carry no translations.
func NewManager(client store.Store, db RowFetcher, translations TranslationSource, opts ...Option) *Manager {
	m := &Manager{
		client:         client,
		db:             db,
		translations:   translations,
		descriptors:    domain.PropertyDescriptors(),
		maxRelaxations: DefaultMaxRelaxations,
	}
	m.min.Store(DefaultMin)
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Index returns the index holding property documents.
func (m *Manager) Index() string {
	return domain.IndexName
}

// Type returns the document type of property documents.
func (m *Manager) Type() string {
	return domain.TypeName
}

// Client returns the document store.
func (m *Manager) Client() store.Store {
	return m.client
}

// Min returns the hit count below which searches are relaxed.
func (m *Manager) Min() int {
	return int(m.min.Load())
}

// SetMin changes the hit count below which searches are relaxed.
func (m *Manager) SetMin(n int) {
	m.min.Store(int64(n))
}

// MaxRelaxations returns the round-trip cap of a single search.
func (m *Manager) MaxRelaxations() int {
	return m.maxRelaxations
}
