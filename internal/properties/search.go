package properties

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/sha1n/propindex/internal/domain"
	"github.com/sha1n/propindex/internal/metrics"
	"github.com/sha1n/propindex/internal/query"
	"github.com/sha1n/propindex/internal/store"
)

// Result is the outcome of a criteria search.
type Result struct {
	Total uint64
	Hits  []store.Hit

	// Criteria are the criteria that produced this result after relaxation
	Criteria domain.Criteria

	// Dropped lists the relaxed keys, first dropped first
	Dropped []string

	// Attempts counts the searches sent to the store
	Attempts int
}

// FindBy searches with the given criteria. While fewer than Min properties match, the most
// recently added criterion is dropped and the search repeated. lang is never dropped.
// Drops that leave the query unchanged cost no extra search. At most MaxRelaxations
// searches are sent; the last result is returned when the cap is reached.
func (m *Manager) FindBy(ctx context.Context, c domain.Criteria, orderBy []query.SortField, limit, offset int) (*Result, error) {
	start := time.Now()
	res, err := m.findBy(ctx, c, orderBy, limit, offset)
	metrics.SearchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.SearchRequestsTotal.WithLabelValues("ok").Inc()
	return res, nil
}

func (m *Manager) findBy(ctx context.Context, c domain.Criteria, orderBy []query.SortField, limit, offset int) (*Result, error) {
	req, err := BuildRequest(c, orderBy, limit, offset)
	if err != nil {
		return nil, err
	}
	threshold := uint64(max(m.Min(), 0))
	result := &Result{Criteria: c}

	for {
		found, err := m.client.Search(ctx, m.Index(), m.Type(), req)
		if err != nil {
			return nil, fmt.Errorf("failed to search properties: %w", err)
		}
		result.Attempts++
		for _, hit := range found.Hits {
			m.typeSource(hit.Source)
		}
		result.Total, result.Hits = found.Total, found.Hits

		if result.Criteria.IsEmpty() || result.Total >= threshold {
			return result, nil
		}
		if result.Attempts >= m.maxRelaxations {
			slog.Warn("Relaxation limit reached", "attempts", result.Attempts, "criteria", result.Criteria.String())
			return result, nil
		}

		// Pop keys until the query changes or nothing is left to drop
		next, nextReq := result.Criteria, req
		changed := false
		for {
			reduced, key, ok := dropLast(next)
			if !ok {
				break
			}
			next = reduced
			result.Dropped = append(result.Dropped, key)
			metrics.RelaxationsTotal.Inc()

			nextReq, err = BuildRequest(next, orderBy, limit, offset)
			if err != nil {
				return nil, err
			}
			if !reflect.DeepEqual(nextReq, req) {
				changed = true
				break
			}
		}
		result.Criteria = next
		if !changed {
			return result, nil
		}

		slog.Debug("Relaxing property search",
			"hits", result.Total,
			"min", threshold,
			"dropped", result.Dropped[len(result.Dropped)-1],
			"criteria", next.String())
		req = nextReq
	}
}

// dropLast removes the most recently added key other than lang.
func dropLast(c domain.Criteria) (domain.Criteria, string, bool) {
	keys := c.Keys()
	for i := len(keys) - 1; i >= 0; i-- {
		if keys[i] == domain.CriterionLang {
			continue
		}
		return c.Without(keys[i]), keys[i], true
	}
	return c, "", false
}

// FindOneBy returns the best match of the criteria after relaxation, or nil.
func (m *Manager) FindOneBy(ctx context.Context, c domain.Criteria, orderBy []query.SortField) (*store.Hit, error) {
	res, err := m.FindBy(ctx, c, orderBy, 1, 0)
	if err != nil {
		return nil, err
	}
	if len(res.Hits) == 0 {
		return nil, nil
	}
	hit := res.Hits[0]
	return &hit, nil
}

// FindAll returns the first page of all properties.
func (m *Manager) FindAll(ctx context.Context) (*Result, error) {
	return m.FindBy(ctx, domain.Criteria{}, nil, 0, 0)
}

// Find returns the property document with the given id, or nil if there is none.
func (m *Manager) Find(ctx context.Context, id int64) (*store.Hit, error) {
	hit, err := m.client.Get(ctx, m.Index(), m.Type(), documentID(id))
	if err != nil {
		return nil, fmt.Errorf("failed to get property %d: %w", id, err)
	}
	if hit != nil {
		m.typeSource(hit.Source)
	}
	return hit, nil
}

// typeSource restores the declared types of a stored document body. Stores decode
// whole numbers as integers, so a float field holding 1000.0 reads back as 1000.
func (m *Manager) typeSource(source map[string]any) {
	for name, value := range source {
		f, ok := m.descriptors.Field(name)
		if !ok || value == nil {
			continue
		}
		switch {
		case f.Type.IsPrimitive():
			source[name] = coerce(value, f.Type)

		case f.Type == domain.TypeGeoPoint:
			if point, ok := value.(map[string]any); ok {
				for _, axis := range []string{"lat", "lon"} {
					if v, ok := point[axis]; ok {
						point[axis] = coerceFloat(v)
					}
				}
			}

		case name == domain.FieldTranslations:
			byLang, _ := value.(map[string]any)
			for _, bucket := range byLang {
				fields, ok := bucket.(map[string]any)
				if !ok {
					continue
				}
				for field, v := range fields {
					if tf, ok := m.descriptors.Translation(field); ok {
						fields[field] = coerce(v, tf.Type)
					}
				}
			}
		}
	}
}
