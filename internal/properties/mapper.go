package properties

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/sha1n/propindex/internal/domain"
	"github.com/sha1n/propindex/internal/store"
)

// RowFetcher runs a query against the relational database.
type RowFetcher interface {
	FetchAll(ctx context.Context, sql string) ([]domain.Row, error)
}

// TranslationSource returns the translations of one entity: language => field => value.
type TranslationSource interface {
	TranslationsByModelID(ctx context.Context, id int64) (map[string]map[string]any, error)
}

// IndexMapping builds the store mapping of the descriptor table.
// The id is the document id and is not mapped. Serialized and left join fields have
// a dynamic shape and become objects; the translations object is analyzed for full-text.
func IndexMapping(d *domain.Descriptors) store.Mapping {
	m := store.Mapping{Type: domain.TypeName}
	for _, f := range d.Fields {
		if f.Name == domain.FieldID {
			continue
		}
		fm := store.FieldMapping{Name: f.Name}
		switch f.Type {
		case domain.TypeInteger:
			fm.Type = store.MappingInteger
		case domain.TypeFloat:
			fm.Type = store.MappingFloat
		case domain.TypeString:
			fm.Type = store.MappingString
		case domain.TypeGeoPoint:
			fm.Type = store.MappingGeoPoint
		case domain.TypeObject:
			fm.Type = store.MappingObject
			fm.FullText = f.Name == domain.FieldTranslations
		default:
			fm.Type = store.MappingObject
		}
		m.Fields = append(m.Fields, fm)
	}
	return m
}

// CreateMapping creates the index with the property mapping.
// It fails with store.ErrIndexExists when the index is already there; use Clear to rebuild.
func (m *Manager) CreateMapping(ctx context.Context) error {
	if err := m.client.IndicesCreate(ctx, m.Index(), IndexMapping(m.descriptors)); err != nil {
		return fmt.Errorf("failed to create mapping: %w", err)
	}
	slog.Debug("Created index mapping", "index", m.Index(), "type", m.Type())
	return nil
}

// EnsureMapping creates the index unless it already exists.
func (m *Manager) EnsureMapping(ctx context.Context) error {
	exists, err := m.client.IndicesExists(ctx, m.Index())
	if err != nil {
		return fmt.Errorf("failed to check index: %w", err)
	}
	if exists {
		return nil
	}
	return m.CreateMapping(ctx)
}

// Clear leaves an empty, freshly mapped index, deleting the current one first.
// It must not run concurrently with writes to the same index.
func (m *Manager) Clear(ctx context.Context) error {
	exists, err := m.client.IndicesExists(ctx, m.Index())
	if err != nil {
		return fmt.Errorf("failed to check index: %w", err)
	}
	if exists {
		if err := m.client.IndicesDelete(ctx, m.Index()); err != nil && !errors.Is(err, store.ErrIndexNotFound) {
			return fmt.Errorf("failed to delete index: %w", err)
		}
		slog.Info("Deleted index", "index", m.Index())
	}
	return m.CreateMapping(ctx)
}

// Add indexes a new property. It is the same upsert as Update.
func (m *Manager) Add(ctx context.Context, row domain.Row) (store.Ack, error) {
	return m.Update(ctx, row)
}

// Update builds the document of row and replaces the stored one.
func (m *Manager) Update(ctx context.Context, row domain.Row) (store.Ack, error) {
	id, doc, err := m.BuildDocument(ctx, row)
	if err != nil {
		return store.Ack{}, err
	}
	ack, err := m.client.Index(ctx, m.Index(), m.Type(), documentID(id), doc)
	if err != nil {
		return store.Ack{}, fmt.Errorf("failed to index property %d: %w", id, err)
	}
	return ack, nil
}

// Delete removes a property document. A missing document is reported through the
// acknowledgment, not as an error.
func (m *Manager) Delete(ctx context.Context, id int64) (store.Ack, error) {
	ack, err := m.client.Delete(ctx, m.Index(), m.Type(), documentID(id))
	if err != nil {
		return store.Ack{}, fmt.Errorf("failed to delete property %d: %w", id, err)
	}
	return ack, nil
}

// BuildDocument assembles the search document of one row, in descriptor order,
// then attaches the translations.
func (m *Manager) BuildDocument(ctx context.Context, row domain.Row) (int64, domain.Document, error) {
	rawID, ok := row[domain.FieldID]
	if !ok || rawID == nil {
		return 0, nil, domain.ErrMissingID
	}
	id := coerceInt(rawID)

	doc := domain.Document{}
	for _, f := range m.descriptors.Fields {
		if f.Name == domain.FieldID {
			continue
		}
		value := row[f.Name]

		switch f.Type {
		case domain.TypeInteger, domain.TypeFloat, domain.TypeString:
			doc[f.Name] = coerce(value, f.Type)

		case domain.TypeSerialized:
			decoded, err := unserialize(value)
			if err != nil {
				return id, nil, fmt.Errorf("property %d field %s: %w", id, f.Name, err)
			}
			doc[f.Name] = decoded

		case domain.TypeGeoPoint:
			lat, lon := row[f.GeoPoint.LatField], row[f.GeoPoint.LonField]
			if truthy(lat) && truthy(lon) {
				doc[f.Name] = map[string]any{"lat": coerceFloat(lat), "lon": coerceFloat(lon)}
			}

		case domain.TypeLeftJoin:
			aggregate, err := m.leftJoin(ctx, f.LeftJoin, id)
			if err != nil {
				return id, nil, fmt.Errorf("property %d field %s: %w", id, f.Name, err)
			}
			doc[f.Name] = aggregate

		case domain.TypeObject:
			// Filled below
		}
	}

	translations, err := m.translationsOf(ctx, id)
	if err != nil {
		return id, nil, err
	}
	doc[domain.FieldTranslations] = translations

	return id, doc, nil
}

// leftJoin folds the child rows of id into key => value. Later rows win on duplicate keys.
func (m *Manager) leftJoin(ctx context.Context, src *domain.LeftJoinSource, id int64) (map[string]any, error) {
	sql := fmt.Sprintf("SELECT * FROM %s WHERE %s=%d", src.Table, src.ForeignKey, id)
	rows, err := m.db.FetchAll(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", src.Table, err)
	}
	aggregate := make(map[string]any, len(rows))
	for _, child := range rows {
		aggregate[coerceString(child[src.KeyColumn])] = unwrapBytes(child[src.ValueColumn])
	}
	return aggregate, nil
}

// translationsOf keeps the known translation fields of every language and drops
// languages left without any.
func (m *Manager) translationsOf(ctx context.Context, id int64) (map[string]any, error) {
	out := map[string]any{}
	if m.translations == nil {
		return out, nil
	}
	byLang, err := m.translations.TranslationsByModelID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch translations of property %d: %w", id, err)
	}
	for lang, fields := range byLang {
		bucket := map[string]any{}
		for name, value := range fields {
			tf, ok := m.descriptors.Translation(name)
			if !ok {
				continue
			}
			bucket[name] = coerce(value, tf.Type)
		}
		if len(bucket) > 0 {
			out[lang] = bucket
		}
	}
	return out, nil
}

func documentID(id int64) string {
	return strconv.FormatInt(id, 10)
}
