package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sha1n/propindex/internal/domain"
	"github.com/sha1n/propindex/internal/metrics"
	"github.com/sha1n/propindex/internal/query"
	"github.com/sha1n/propindex/internal/store"
	"github.com/sha1n/propindex/internal/syncer"
	"github.com/spf13/pflag"
)

// ClearAll is the only accepted value of the sync --clear flag
const ClearAll = "all"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// SyncCommand holds the sync command arguments
type SyncCommand struct {
	Clear   bool
	Limit   int
	Offset  int
	OrderBy string
}

// SyncCommandFromFlags reads the sync command arguments registered by RegisterSyncFlags
func SyncCommandFromFlags(flags *pflag.FlagSet) (SyncCommand, error) {
	var cmd SyncCommand
	clearValue, err := flags.GetString("clear")
	if err != nil {
		return cmd, err
	}
	switch clearValue {
	case "":
	case ClearAll:
		cmd.Clear = true
	default:
		return cmd, fmt.Errorf("unsupported --clear value %q, only %q is supported", clearValue, ClearAll)
	}
	if cmd.Limit, err = flags.GetInt("limit"); err != nil {
		return cmd, err
	}
	if cmd.Offset, err = flags.GetInt("offset"); err != nil {
		return cmd, err
	}
	if cmd.Limit < 0 || cmd.Offset < 0 {
		return cmd, errors.New("limit and offset cannot be negative")
	}
	if cmd.OrderBy, err = flags.GetString("order-by"); err != nil {
		return cmd, err
	}
	return cmd, nil
}

// RunSync indexes the property listing into the document store
func RunSync(ctx context.Context, params RunParams, flags *pflag.FlagSet, cmd SyncCommand) error {
	services, cleanup, err := open(ctx, params, flags, true)
	if err != nil {
		return err
	}
	defer cleanup()

	settings := services.Settings
	metrics.Register()
	s := syncer.New(services.Manager, services.DB, syncer.Options{
		Clear:       cmd.Clear,
		Limit:       cmd.Limit,
		Offset:      cmd.Offset,
		OrderBy:     cmd.OrderBy,
		Driver:      settings.Database.Driver,
		Workers:     settings.Sync.Workers,
		RateLimit:   settings.Sync.RateLimit,
		LockPath:    settings.Sync.LockFile,
		StatePath:   settings.Sync.StateFile,
		MetricsPath: settings.Sync.MetricsFile,
	})

	state, err := s.Run(ctx)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(params.out(), "Synced %d properties: %d indexed, %d failed in %s\n",
		state.RowsSeen, state.Indexed, state.Failed, state.Duration().Round(time.Millisecond))
	return nil
}

// SearchCommand holds the search command arguments
type SearchCommand struct {
	Criteria []byte
	OrderBy  string
	Limit    int
	Offset   int
}

// SearchCommandFromFlags reads the search arguments registered by RegisterSearchFlags.
// Inline criteria come from args, a criteria file from the --file flag.
func SearchCommandFromFlags(flags *pflag.FlagSet, args []string) (SearchCommand, error) {
	var cmd SearchCommand
	file, err := flags.GetString("file")
	if err != nil {
		return cmd, err
	}
	switch {
	case file != "" && len(args) > 0:
		return cmd, errors.New("criteria can be given inline or with --file, not both")
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return cmd, fmt.Errorf("failed to read criteria file: %w", err)
		}
		cmd.Criteria = data
	case len(args) > 0:
		cmd.Criteria = []byte(strings.Join(args, " "))
	}

	if cmd.OrderBy, err = flags.GetString("order-by"); err != nil {
		return cmd, err
	}
	if cmd.Limit, err = flags.GetInt("limit"); err != nil {
		return cmd, err
	}
	if cmd.Offset, err = flags.GetInt("offset"); err != nil {
		return cmd, err
	}
	if cmd.Limit < 0 || cmd.Offset < 0 {
		return cmd, errors.New("limit and offset cannot be negative")
	}
	return cmd, nil
}

type searchOutput struct {
	Total    uint64          `json:"total"`
	Criteria domain.Criteria `json:"criteria"`
	Dropped  []string        `json:"dropped,omitempty"`
	Attempts int             `json:"attempts"`
	Hits     []store.Hit     `json:"hits"`
}

// RunSearch runs a criteria search and prints the result as JSON
func RunSearch(ctx context.Context, params RunParams, flags *pflag.FlagSet, cmd SearchCommand) error {
	criteria, err := domain.ParseCriteria(cmd.Criteria)
	if err != nil {
		return err
	}
	orderBy, err := query.ParseSort(cmd.OrderBy)
	if err != nil {
		return err
	}

	services, cleanup, err := open(ctx, params, flags, false)
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := services.Manager.FindBy(ctx, criteria, orderBy, cmd.Limit, cmd.Offset)
	if err != nil {
		return err
	}

	hits := res.Hits
	if hits == nil {
		hits = []store.Hit{}
	}
	return printJSON(params, searchOutput{
		Total:    res.Total,
		Criteria: res.Criteria,
		Dropped:  res.Dropped,
		Attempts: res.Attempts,
		Hits:     hits,
	})
}

// RunGet prints one property document
func RunGet(ctx context.Context, params RunParams, flags *pflag.FlagSet, id int64) error {
	services, cleanup, err := open(ctx, params, flags, false)
	if err != nil {
		return err
	}
	defer cleanup()

	hit, err := services.Manager.Find(ctx, id)
	if err != nil {
		return err
	}
	if hit == nil {
		_, _ = fmt.Fprintf(params.out(), "Property %d not found\n", id)
		return nil
	}
	return printJSON(params, hit)
}

// RunDelete removes one property document from the index
func RunDelete(ctx context.Context, params RunParams, flags *pflag.FlagSet, id int64) error {
	services, cleanup, err := open(ctx, params, flags, false)
	if err != nil {
		return err
	}
	defer cleanup()

	ack, err := services.Manager.Delete(ctx, id)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(params.out(), "Property %d: %s\n", id, ack.Result)
	return nil
}

// RunStatus prints the last sync state and the number of indexed properties
func RunStatus(ctx context.Context, params RunParams, flags *pflag.FlagSet) error {
	services, cleanup, err := open(ctx, params, flags, false)
	if err != nil {
		return err
	}
	defer cleanup()

	out := params.out()
	count, err := services.Store.Count(ctx, services.Manager.Index())
	switch {
	case errors.Is(err, store.ErrIndexNotFound):
		_, _ = fmt.Fprintf(out, "Index %s: missing\n", services.Manager.Index())
	case err != nil:
		return err
	default:
		_, _ = fmt.Fprintf(out, "Index %s: %d properties\n", services.Manager.Index(), count)
	}

	state, err := syncer.LoadState(services.Settings.Sync.StateFile)
	if err != nil {
		return err
	}
	if state == nil {
		_, _ = fmt.Fprintln(out, "Last sync: never")
		return nil
	}

	_, _ = fmt.Fprintf(out, "Last sync: %s (%s)\n", state.FinishedAt.Format(time.RFC3339), state.Duration().Round(time.Millisecond))
	_, _ = fmt.Fprintf(out, "Listing: %s\n", state.Listing)
	_, _ = fmt.Fprintf(out, "Cleared: %t\n", state.Cleared)
	_, _ = fmt.Fprintf(out, "Rows: %d seen, %d indexed, %d failed\n", state.RowsSeen, state.Indexed, state.Failed)
	if len(state.FailedIDs) > 0 {
		_, _ = fmt.Fprintf(out, "Failed ids: %s\n", strings.Join(state.FailedIDs, ", "))
	}
	if state.Error != "" {
		_, _ = fmt.Fprintf(out, "Error: %s\n", state.Error)
	}
	return nil
}

// ParseID parses a positive property id argument
func ParseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid property id %q", s)
	}
	return id, nil
}

func printJSON(params RunParams, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(params.out(), string(data))
	return err
}
