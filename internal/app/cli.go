package app

import "github.com/spf13/pflag"

// RegisterFlags registers the settings flags shared by every command on the given FlagSet
func RegisterFlags(flags *pflag.FlagSet) {
	flags.StringP("log-level", "l", "", "Log level: debug, info, warn or error")
	flags.StringP("db-driver", "d", "", "Database driver: sqlite, sqlite3 or postgres")
	flags.String("db-dsn", "", "Database connection string")
	flags.StringP("store-backend", "b", "", "Document store: bleve or elasticsearch")
	flags.String("store-path", "", "Base directory of the local bleve indexes")
	flags.StringSlice("store-addresses", nil, "Elasticsearch addresses (comma-separated)")
	flags.String("store-username", "", "Elasticsearch username")
	flags.String("store-password", "", "Elasticsearch password")
	flags.Int("search-min", 0, "Hit count below which search criteria are relaxed")
	flags.Int("search-max-relaxations", 0, "Maximum searches sent for one criteria search")
	flags.String("translations-table", "", "Table holding property translations")
	flags.String("translations-model", "", "Model name of properties in the translations table")
}

// RegisterSyncFlags registers the flags of the sync command
func RegisterSyncFlags(flags *pflag.FlagSet) {
	flags.String("clear", "", "Rebuild the index before syncing (--clear or --clear=all)")
	flags.Lookup("clear").NoOptDefVal = ClearAll
	flags.Int("limit", 0, "Maximum number of properties to sync")
	flags.Int("offset", 0, "Number of properties to skip")
	flags.String("order-by", "", "SQL ORDER BY expression of the listing query")
	flags.Int("sync-workers", 0, "Number of concurrent indexing workers")
	flags.Float64("sync-rate-limit", 0, "Maximum indexed properties per second, 0 for no limit")
	flags.String("sync-state-file", "", "Path of the sync state file")
	flags.String("sync-lock-file", "", "Path of the sync lock file")
	flags.String("sync-metrics-file", "", "Path of the prometheus textfile written after each sync")
}

// RegisterSearchFlags registers the flags of the search command
func RegisterSearchFlags(flags *pflag.FlagSet) {
	flags.StringP("file", "f", "", "Read criteria from a JSON or YAML file")
	flags.StringP("order-by", "o", "", "Sort fields, e.g. price:desc,size")
	flags.Int("limit", 0, "Maximum number of properties to return")
	flags.Int("offset", 0, "Number of properties to skip")
}
