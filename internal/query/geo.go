package query

import (
	"fmt"

	"github.com/spf13/cast"
)

// GeoPoint is a parsed geo distance center.
type GeoPoint struct {
	Field    string
	Lat      float64
	Lon      float64
	Distance string
}

// Parse extracts the field, center and distance from the raw clause.
// The center may be given as {"lat": .., "lon": ..}, as a [lon, lat] pair or as a "lat,lon" string.
func (g GeoDistance) Parse() (GeoPoint, error) {
	var p GeoPoint
	distance, ok := g.Raw["distance"]
	if !ok {
		return p, fmt.Errorf("geo distance clause has no distance")
	}
	p.Distance = cast.ToString(distance)

	for key, value := range g.Raw {
		if key == "distance" || key == "distance_type" || key == "validation_method" || key == "_name" {
			continue
		}
		if p.Field != "" {
			return p, fmt.Errorf("geo distance clause has more than one field: %q and %q", p.Field, key)
		}
		lat, lon, err := parseLatLon(value)
		if err != nil {
			return p, fmt.Errorf("geo distance field %q: %w", key, err)
		}
		p.Field, p.Lat, p.Lon = key, lat, lon
	}
	if p.Field == "" {
		return p, fmt.Errorf("geo distance clause has no location field")
	}
	return p, nil
}

func parseLatLon(v any) (float64, float64, error) {
	switch t := v.(type) {
	case map[string]any:
		lat, err := cast.ToFloat64E(t["lat"])
		if err != nil {
			return 0, 0, fmt.Errorf("invalid lat: %w", err)
		}
		lon, err := cast.ToFloat64E(t["lon"])
		if err != nil {
			return 0, 0, fmt.Errorf("invalid lon: %w", err)
		}
		return lat, lon, nil
	case []any:
		if len(t) != 2 {
			return 0, 0, fmt.Errorf("expected [lon, lat], got %d values", len(t))
		}
		lon, err := cast.ToFloat64E(t[0])
		if err != nil {
			return 0, 0, fmt.Errorf("invalid lon: %w", err)
		}
		lat, err := cast.ToFloat64E(t[1])
		if err != nil {
			return 0, 0, fmt.Errorf("invalid lat: %w", err)
		}
		return lat, lon, nil
	case string:
		var lat, lon float64
		if _, err := fmt.Sscanf(t, "%f,%f", &lat, &lon); err != nil {
			return 0, 0, fmt.Errorf("invalid \"lat,lon\" string %q", t)
		}
		return lat, lon, nil
	default:
		return 0, 0, fmt.Errorf("unsupported location %T", v)
	}
}
