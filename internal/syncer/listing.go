package syncer

import (
	"fmt"
	"strings"

	"github.com/sha1n/propindex/internal/sqlstore"
)

// PropertiesTable is the table the sync reads properties from.
const PropertiesTable = "properties"

// ListingSQL builds the property listing query from the command line options.
// OrderBy is an SQL fragment used verbatim. SQLite rejects OFFSET without LIMIT,
// so an unbounded limit is spelled out for the sqlite drivers.
func ListingSQL(driver, orderBy string, limit, offset int) string {
	var b strings.Builder
	b.WriteString("SELECT * FROM " + PropertiesTable)
	if orderBy = strings.TrimSpace(orderBy); orderBy != "" {
		b.WriteString(" ORDER BY " + orderBy)
	}
	switch {
	case limit > 0:
		fmt.Fprintf(&b, " LIMIT %d", limit)
	case offset > 0 && driver != sqlstore.DriverPostgres:
		b.WriteString(" LIMIT -1")
	}
	if offset > 0 {
		fmt.Fprintf(&b, " OFFSET %d", offset)
	}
	return b.String()
}
