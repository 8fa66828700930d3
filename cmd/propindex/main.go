package main

import (
	"context"
	"os"

	"github.com/sha1n/propindex/internal/app"
	"github.com/spf13/cobra"
)

var (
	// Version is injected at build time
	Version = "dev"
	// Build is injected at build time
	Build = "unknown"
	// ProgramName is injected at build time
	ProgramName = "propindex"
)

func main() {
	runMain(os.Args, os.Exit)
}

func runMain(args []string, exit func(int)) {
	if err := Execute(Version, Build, ProgramName, args[1:]); err != nil {
		exit(1)
	}
}

// Execute is the entry point for the CLI, extracted for testing
func Execute(version, build, programName string, args []string) error {
	return ExecuteWithParams(app.DefaultRunParams(), version, build, programName, args)
}

// ExecuteWithParams runs the CLI with the given dependencies
func ExecuteWithParams(params app.RunParams, version, build, programName string, args []string) error {
	ctx := context.Background()

	rootCmd := &cobra.Command{
		Use:          programName,
		Short:        "Property listing search index",
		Long:         "Syncs property listings from a relational database into a search index and searches them with relaxing criteria",
		Version:      version,
		SilenceUsage: true,
	}
	rootCmd.SetVersionTemplate(`{{.Version}}
`)
	app.RegisterFlags(rootCmd.PersistentFlags())

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Index the property listing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			syncArgs, err := app.SyncCommandFromFlags(cmd.Flags())
			if err != nil {
				return err
			}
			return app.RunSync(ctx, params, cmd.Flags(), syncArgs)
		},
	}
	app.RegisterSyncFlags(syncCmd.Flags())

	searchCmd := &cobra.Command{
		Use:   "search [criteria]",
		Short: "Search properties by criteria given inline or with --file",
		Example: `  propindex search '{"lang": "fr", "country_ids": ["fr"], "rooms": 3}'
  propindex search --file criteria.yaml --order-by price:desc --limit 20`,
		RunE: func(cmd *cobra.Command, args []string) error {
			searchArgs, err := app.SearchCommandFromFlags(cmd.Flags(), args)
			if err != nil {
				return err
			}
			return app.RunSearch(ctx, params, cmd.Flags(), searchArgs)
		},
	}
	app.RegisterSearchFlags(searchCmd.Flags())

	getCmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Print one indexed property",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := app.ParseID(args[0])
			if err != nil {
				return err
			}
			return app.RunGet(ctx, params, cmd.Flags(), id)
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove one property from the index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := app.ParseID(args[0])
			if err != nil {
				return err
			}
			return app.RunDelete(ctx, params, cmd.Flags(), id)
		},
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the property search tools over MCP (stdio)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.RunServe(ctx, params, cmd.Flags(), version)
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show the index size and the last sync",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.RunStatus(ctx, params, cmd.Flags())
		},
	}

	rootCmd.AddCommand(syncCmd, searchCmd, getCmd, deleteCmd, serveCmd, statusCmd)
	rootCmd.SetArgs(args)

	return rootCmd.Execute()
}
