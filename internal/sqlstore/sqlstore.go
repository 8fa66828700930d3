// Package sqlstore reads property rows and translations from the relational database.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/sha1n/propindex/internal/domain"
)

// Text layouts of DATE and DATETIME column values
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
)

// Supported drivers
const (
	DriverSQLite   = "sqlite"  // modernc.org/sqlite, pure Go
	DriverSQLite3  = "sqlite3" // github.com/mattn/go-sqlite3, cgo
	DriverPostgres = "postgres"
)

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// DB runs hand-built queries and returns rows keyed by column name.
type DB struct {
	db     *sql.DB
	driver string
}

// Open connects to the database and verifies the connection.
func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	var (
		db  *sql.DB
		err error
	)
	switch driver {
	case DriverSQLite, DriverSQLite3:
		db, err = sql.Open(driver, dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
		}
	case DriverPostgres:
		cfg, err := pgx.ParseConfig(dsn)
		if err != nil {
			return nil, fmt.Errorf("invalid postgres dsn: %w", err)
		}
		db = stdlib.OpenDB(*cfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &DB{db: db, driver: driver}, nil
}

// Driver returns the driver name the database was opened with.
func (d *DB) Driver() string {
	return d.driver
}

// SQL returns the underlying connection pool.
func (d *DB) SQL() *sql.DB {
	return d.db
}

// Close closes the connection pool.
func (d *DB) Close() error {
	return d.db.Close()
}

// FetchAll runs a query and returns every row. Text and blob columns come back as strings.
func (d *DB) FetchAll(ctx context.Context, query string) ([]domain.Row, error) {
	return d.Query(ctx, query)
}

// Query is FetchAll with bind parameters.
func (d *DB) Query(ctx context.Context, query string, args ...any) ([]domain.Row, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	var out []domain.Row
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(domain.Row, len(columns))
		for i, col := range columns {
			row[col] = columnValue(values[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}
	return out, nil
}

// columnValue converts a scanned value to what the mapper expects. Blobs become
// strings and DATE or DATETIME values are rendered back to their SQL text.
func columnValue(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case time.Time:
		t = t.UTC()
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
			return t.Format(DateLayout)
		}
		return t.Format(DateTimeLayout)
	default:
		return v
	}
}

// placeholder returns the n-th (1 based) bind parameter marker of the driver.
func (d *DB) placeholder(n int) string {
	if d.driver == DriverPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// ValidIdentifier reports whether name can be used as an unquoted table or column name.
func ValidIdentifier(name string) bool {
	return identifierRe.MatchString(name)
}
