package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Store backend constants
const (
	BackendBleve         = "bleve"
	BackendElasticsearch = "elasticsearch"
)

// Database driver constants, matching the registered database/sql driver names
const (
	DriverSQLite   = "sqlite"
	DriverSQLite3  = "sqlite3"
	DriverPostgres = "postgres"
)

const (
	defaultHomeDirName = ".propindex"
	defaultStateFile   = "sync-state.json"
	defaultLockFile    = "sync.lock"
)

// DatabaseSettings configuration for the relational source
type DatabaseSettings struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// StoreSettings configuration for the document store
type StoreSettings struct {
	Backend   string   `mapstructure:"backend"` // BackendBleve or BackendElasticsearch
	Path      string   `mapstructure:"path"`
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
}

// SearchSettings configuration for criteria searches
type SearchSettings struct {
	Min            int `mapstructure:"min"`
	MaxRelaxations int `mapstructure:"max_relaxations"`
}

// SyncSettings configuration for the sync command
type SyncSettings struct {
	Workers     int     `mapstructure:"workers"`
	RateLimit   float64 `mapstructure:"rate_limit"`
	StateFile   string  `mapstructure:"state_file"`
	LockFile    string  `mapstructure:"lock_file"`
	MetricsFile string  `mapstructure:"metrics_file"`
}

// TranslationSettings locate the translation rows of a property
type TranslationSettings struct {
	Table string `mapstructure:"table"`
	Model string `mapstructure:"model"`
}

// Settings application settings
type Settings struct {
	LogLevel     string              `mapstructure:"log_level"`
	Database     DatabaseSettings    `mapstructure:"database"`
	Store        StoreSettings       `mapstructure:"store"`
	Search       SearchSettings      `mapstructure:"search"`
	Sync         SyncSettings        `mapstructure:"sync"`
	Translations TranslationSettings `mapstructure:"translations"`
}

// settingFlags maps each settings key to the CLI flag that overrides it
var settingFlags = map[string]string{
	"log_level":              "log-level",
	"database.driver":        "db-driver",
	"database.dsn":           "db-dsn",
	"store.backend":          "store-backend",
	"store.path":             "store-path",
	"store.addresses":        "store-addresses",
	"store.username":         "store-username",
	"store.password":         "store-password",
	"search.min":             "search-min",
	"search.max_relaxations": "search-max-relaxations",
	"sync.workers":           "sync-workers",
	"sync.rate_limit":        "sync-rate-limit",
	"sync.state_file":        "sync-state-file",
	"sync.lock_file":         "sync-lock-file",
	"sync.metrics_file":      "sync-metrics-file",
	"translations.table":     "translations-table",
	"translations.model":     "translations-model",
}

// EnvName returns the environment variable that sets the given settings key
func EnvName(key string) string {
	return "PROPINDEX_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// LoadSettings loads settings from environment variables and optional .env file
func LoadSettings() (*Settings, error) {
	return LoadSettingsWithFlags(nil)
}

// LoadSettingsWithFlags loads settings with optional CLI flag overrides.
// Priority: CLI flags > environment variables > .env file > defaults.
// If flags is nil, only env vars and defaults are used.
func LoadSettingsWithFlags(flags *pflag.FlagSet) (*Settings, error) {
	v := viper.New()

	v.SetDefault("log_level", "info")
	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.dsn", "")
	v.SetDefault("store.backend", BackendBleve)
	v.SetDefault("store.path", defaultStorePath())
	v.SetDefault("store.addresses", []string{})
	v.SetDefault("store.username", "")
	v.SetDefault("store.password", "")
	v.SetDefault("search.min", 10)
	v.SetDefault("search.max_relaxations", 32)
	v.SetDefault("sync.workers", 4)
	v.SetDefault("sync.rate_limit", 0.0)
	v.SetDefault("sync.state_file", "")
	v.SetDefault("sync.lock_file", "")
	v.SetDefault("sync.metrics_file", "")
	v.SetDefault("translations.table", "translations")
	v.SetDefault("translations.model", "property")

	v.SetEnvPrefix("PROPINDEX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, flag := range settingFlags {
		_ = v.BindEnv(key, EnvName(key))
		if flags != nil {
			if f := flags.Lookup(flag); f != nil {
				_ = v.BindPFlag(key, f)
			}
		}
	}

	// Helper to look for .env file
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // Ignore error if .env doesn't exist

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, err
	}

	// Addresses given through the environment arrive as one comma-separated string
	if env := os.Getenv(EnvName("store.addresses")); env != "" {
		if len(settings.Store.Addresses) == 0 || (len(settings.Store.Addresses) == 1 && strings.Contains(settings.Store.Addresses[0], ",")) {
			settings.Store.Addresses = strings.Split(env, ",")
		}
	}
	for i := range settings.Store.Addresses {
		settings.Store.Addresses[i] = strings.TrimSpace(settings.Store.Addresses[i])
	}
	settings.Store.Addresses = filterEmptyStrings(settings.Store.Addresses)

	settings.LogLevel = strings.ToLower(strings.TrimSpace(settings.LogLevel))
	settings.Store.Path = expandHomeDir(settings.Store.Path)
	settings.Sync.StateFile = expandHomeDir(settings.Sync.StateFile)
	settings.Sync.LockFile = expandHomeDir(settings.Sync.LockFile)
	settings.Sync.MetricsFile = expandHomeDir(settings.Sync.MetricsFile)

	if settings.Sync.StateFile == "" {
		settings.Sync.StateFile = filepath.Join(settings.Store.Path, defaultStateFile)
	}
	if settings.Sync.LockFile == "" {
		settings.Sync.LockFile = filepath.Join(settings.Store.Path, defaultLockFile)
	}

	return &settings, nil
}

// defaultStorePath returns the default base directory for local indexes and sync files
func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return defaultHomeDirName
	}
	return filepath.Join(home, defaultHomeDirName)
}

// expandHomeDir expands ~ to the user's home directory
func expandHomeDir(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return home
	}
	return path
}

// filterEmptyStrings removes empty strings from a slice
func filterEmptyStrings(s []string) []string {
	var result []string
	for _, str := range s {
		if str != "" {
			result = append(result, str)
		}
	}
	return result
}

// ValidateSettings checks for incomplete or unsupported configurations.
func ValidateSettings(s *Settings) error {
	switch s.LogLevel {
	case "", "debug", "info", "warn", "error":
		// valid
	default:
		return errors.New("log-level must be one of debug, info, warn, error, got: " + s.LogLevel)
	}

	switch s.Database.Driver {
	case DriverSQLite, DriverSQLite3, DriverPostgres:
		// valid
	default:
		return errors.New("unknown db-driver: " + s.Database.Driver)
	}

	switch s.Store.Backend {
	case BackendBleve:
		if s.Store.Path == "" {
			return errors.New("store-backend 'bleve' requires a store path")
		}
	case BackendElasticsearch:
		if len(s.Store.Addresses) == 0 {
			return errors.New("store-backend 'elasticsearch' requires at least one address (store-addresses)")
		}
	default:
		return errors.New("unknown store-backend: " + s.Store.Backend)
	}

	if s.Search.Min <= 0 {
		return errors.New("search-min must be positive")
	}
	if s.Search.MaxRelaxations <= 0 {
		return errors.New("search-max-relaxations must be positive")
	}
	if s.Sync.Workers <= 0 {
		return errors.New("sync-workers must be positive")
	}
	if s.Sync.RateLimit < 0 {
		return errors.New("sync-rate-limit cannot be negative")
	}
	if s.Translations.Table == "" {
		return errors.New("translations-table cannot be empty")
	}
	if s.Translations.Model == "" {
		return errors.New("translations-model cannot be empty")
	}

	return nil
}

// RequireDSN reports an error when no database DSN is configured. Only commands that
// read the relational source need one.
func RequireDSN(s *Settings) error {
	if s.Database.DSN == "" {
		return fmt.Errorf("db-dsn is required (flag --db-dsn or %s)", EnvName("database.dsn"))
	}
	return nil
}
