package blevestore

import (
	"fmt"
	"strconv"

	"github.com/blevesearch/bleve/v2"
	bq "github.com/blevesearch/bleve/v2/search/query"
	"github.com/sha1n/propindex/internal/query"
	"github.com/spf13/cast"
)

// renderQuery converts a store-neutral query into a Bleve query.
func renderQuery(q query.Query) (bq.Query, error) {
	switch t := q.(type) {
	case nil, query.MatchAll:
		return bleve.NewMatchAllQuery(), nil

	case query.Match:
		mq := bleve.NewMatchQuery(t.Text)
		mq.SetField(t.Field)
		return mq, nil

	case query.Term:
		return termQuery(t.Field, t.Value), nil

	case query.Terms:
		if len(t.Values) == 0 {
			return bleve.NewMatchNoneQuery(), nil
		}
		alternatives := make([]bq.Query, 0, len(t.Values))
		for _, v := range t.Values {
			alternatives = append(alternatives, termQuery(t.Field, v))
		}
		return bleve.NewDisjunctionQuery(alternatives...), nil

	case query.Range:
		var lo, hi *float64
		if t.GTE != nil {
			v := float64(*t.GTE)
			lo = &v
		}
		if t.LTE != nil {
			v := float64(*t.LTE)
			hi = &v
		}
		inclusive := true
		rq := bleve.NewNumericRangeInclusiveQuery(lo, hi, &inclusive, &inclusive)
		rq.SetField(t.Field)
		return rq, nil

	case query.GeoDistance:
		p, err := t.Parse()
		if err != nil {
			return nil, err
		}
		gq := bleve.NewGeoDistanceQuery(p.Lon, p.Lat, p.Distance)
		gq.SetField(p.Field)
		return gq, nil

	case query.Bool:
		if len(t.Must) == 0 && len(t.Filter) == 0 {
			return bleve.NewMatchAllQuery(), nil
		}
		boolQuery := bleve.NewBooleanQuery()
		// Bleve has no non-scoring clause; filters are required clauses like must
		for _, clauses := range [][]query.Query{t.Must, t.Filter} {
			for _, c := range clauses {
				rendered, err := renderQuery(c)
				if err != nil {
					return nil, err
				}
				boolQuery.AddMust(rendered)
			}
		}
		return boolQuery, nil

	default:
		return nil, fmt.Errorf("unsupported query node %T", q)
	}
}

// termQuery matches an exact value whether the field was indexed as a number or as a keyword.
func termQuery(field string, value any) bq.Query {
	switch v := value.(type) {
	case bool:
		b := bleve.NewBoolFieldQuery(v)
		b.SetField(field)
		return b
	case string:
		keywordQuery := bleve.NewTermQuery(v)
		keywordQuery.SetField(field)
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return bleve.NewDisjunctionQuery(keywordQuery, numericEquals(field, f))
		}
		return keywordQuery
	default:
		keywordQuery := bleve.NewTermQuery(cast.ToString(v))
		keywordQuery.SetField(field)
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return keywordQuery
		}
		return bleve.NewDisjunctionQuery(numericEquals(field, f), keywordQuery)
	}
}

func numericEquals(field string, v float64) bq.Query {
	inclusive := true
	rq := bleve.NewNumericRangeInclusiveQuery(&v, &v, &inclusive, &inclusive)
	rq.SetField(field)
	return rq
}

// sortOrder converts sort fields into Bleve's "-field" notation.
func sortOrder(fields []query.SortField) []string {
	order := make([]string, 0, len(fields))
	for _, f := range fields {
		if f.Desc {
			order = append(order, "-"+f.Field)
		} else {
			order = append(order, f.Field)
		}
	}
	return order
}
