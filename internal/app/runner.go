package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/propindex/internal/config"
	mcputil "github.com/sha1n/propindex/internal/mcp"
	"github.com/sha1n/propindex/internal/properties"
	"github.com/sha1n/propindex/internal/sqlstore"
	"github.com/sha1n/propindex/internal/store"
	"github.com/sha1n/propindex/internal/store/blevestore"
	"github.com/sha1n/propindex/internal/store/elastic"
	"github.com/spf13/pflag"
)

// Services are the opened backends one command works with
type Services struct {
	Settings *config.Settings

	// DB is nil for commands that do not read the relational source
	DB      *sqlstore.DB
	Store   store.Store
	Manager *properties.Manager
}

// Close releases the document store and the database
func (s *Services) Close() error {
	var errs []error
	if s.Store != nil {
		errs = append(errs, s.Store.Close())
	}
	if s.DB != nil {
		errs = append(errs, s.DB.Close())
	}
	return errors.Join(errs...)
}

// RunParams contains dependencies for the run functions
type RunParams struct {
	LoadSettings      func(*pflag.FlagSet) (*config.Settings, error)
	ValidSettings     func(*config.Settings) error
	OpenServices      func(ctx context.Context, settings *config.Settings, withDB bool) (*Services, error)
	CustomIOTransport mcp.Transport // Optional: for testing with custom IO
	Out               io.Writer     // Optional: command output, stdout when nil
}

// DefaultRunParams returns production dependencies
func DefaultRunParams() RunParams {
	return RunParams{
		LoadSettings:  config.LoadSettingsWithFlags,
		ValidSettings: config.ValidateSettings,
		OpenServices:  OpenServices,
	}
}

func (p RunParams) out() io.Writer {
	if p.Out != nil {
		return p.Out
	}
	return os.Stdout
}

// setup loads and validates settings, then installs the default logger
func setup(params RunParams, flags *pflag.FlagSet) (*config.Settings, error) {
	settings, err := params.LoadSettings(flags)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	if err := params.ValidSettings(settings); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Configure logging - always use stderr to keep stdout for command output
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: config.ParseLogLevel(settings.LogLevel)})
	slog.SetDefault(slog.New(handler))

	return settings, nil
}

// open runs setup and opens the services the command needs
func open(ctx context.Context, params RunParams, flags *pflag.FlagSet, withDB bool) (*Services, func(), error) {
	settings, err := setup(params, flags)
	if err != nil {
		return nil, nil, err
	}
	config.Log(settings)

	services, err := params.OpenServices(ctx, settings, withDB)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := services.Close(); err != nil {
			slog.Error("Failed to close services", "error", err)
		}
	}
	return services, cleanup, nil
}

// OpenServices connects the configured document store and, when withDB is set, the
// relational source with its translations, and composes the property manager over them.
func OpenServices(ctx context.Context, settings *config.Settings, withDB bool) (*Services, error) {
	services := &Services{Settings: settings}

	var (
		rows         properties.RowFetcher
		translations properties.TranslationSource
	)
	if withDB {
		if err := config.RequireDSN(settings); err != nil {
			return nil, err
		}
		db, err := sqlstore.Open(ctx, settings.Database.Driver, settings.Database.DSN)
		if err != nil {
			return nil, err
		}
		services.DB = db
		rows = db

		tr, err := sqlstore.NewTranslations(db, settings.Translations.Table, settings.Translations.Model)
		if err != nil {
			_ = services.Close()
			return nil, err
		}
		translations = tr
	}

	st, err := OpenStore(settings)
	if err != nil {
		_ = services.Close()
		return nil, err
	}
	services.Store = st

	services.Manager = properties.NewManager(st, rows, translations,
		properties.WithMin(settings.Search.Min),
		properties.WithMaxRelaxations(settings.Search.MaxRelaxations),
	)
	return services, nil
}

// OpenStore creates the configured document store backend
func OpenStore(settings *config.Settings) (store.Store, error) {
	switch settings.Store.Backend {
	case config.BackendBleve:
		st, err := blevestore.New(settings.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open bleve store: %w", err)
		}
		return st, nil
	case config.BackendElasticsearch:
		st, err := elastic.New(elastic.Config{
			Addresses: settings.Store.Addresses,
			Username:  settings.Store.Username,
			Password:  settings.Store.Password,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown store backend: %s", settings.Store.Backend)
	}
}

// RunServe serves the property tools over MCP until the client disconnects
func RunServe(ctx context.Context, params RunParams, flags *pflag.FlagSet, version string) error {
	services, cleanup, err := open(ctx, params, flags, false)
	if err != nil {
		return err
	}
	defer cleanup()

	slog.Info("Starting propindex MCP server", "version", version)
	server := CreateMCPServer(services.Manager, version)

	// Use custom transport if provided (for testing), otherwise use stdio
	transport := params.CustomIOTransport
	if transport == nil {
		transport = &mcp.StdioTransport{}
	}
	return server.Run(ctx, transport)
}

// CreateMCPServer creates the MCP server with the property tools registered
func CreateMCPServer(searcher mcputil.PropertySearcher, version string) *mcp.Server {
	return mcputil.CreateServer(mcputil.ServerConfig{
		Name:       "propindex",
		Version:    version,
		Properties: searcher,
	})
}
