package sqlstore

import (
	"context"
	"fmt"

	"github.com/spf13/cast"
)

// Translations reads per-language field values from a translation table with the
// columns model, model_id, lang, field and value.
type Translations struct {
	db    *DB
	table string
	model string
}

// NewTranslations creates a translation source for one model, e.g. "property".
func NewTranslations(db *DB, table, model string) (*Translations, error) {
	if !ValidIdentifier(table) {
		return nil, fmt.Errorf("invalid translations table name %q", table)
	}
	return &Translations{db: db, table: table, model: model}, nil
}

// TranslationsByModelID returns lang => field => value for one entity.
func (t *Translations) TranslationsByModelID(ctx context.Context, id int64) (map[string]map[string]any, error) {
	query := fmt.Sprintf("SELECT lang, field, value FROM %s WHERE model = %s AND model_id = %s",
		t.table, t.db.placeholder(1), t.db.placeholder(2))

	rows, err := t.db.Query(ctx, query, t.model, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch translations: %w", err)
	}

	out := make(map[string]map[string]any)
	for _, row := range rows {
		lang := cast.ToString(row["lang"])
		if out[lang] == nil {
			out[lang] = make(map[string]any)
		}
		out[lang][cast.ToString(row["field"])] = row["value"]
	}
	return out, nil
}
