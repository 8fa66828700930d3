package query

import (
	"fmt"
	"strings"
)

// ParseSort parses a comma separated order such as "price:desc,size". A field
// without a direction sorts ascending.
func ParseSort(s string) ([]SortField, error) {
	var fields []SortField
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, dir, _ := strings.Cut(part, ":")
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("invalid sort %q: missing field", part)
		}
		f := SortField{Field: name}
		switch strings.ToLower(strings.TrimSpace(dir)) {
		case "", "asc":
		case "desc":
			f.Desc = true
		default:
			return nil, fmt.Errorf("invalid sort %q: direction must be asc or desc", part)
		}
		fields = append(fields, f)
	}
	return fields, nil
}
