// Package syncer copies the properties table into the search index.
package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sha1n/propindex/internal/domain"
	"github.com/sha1n/propindex/internal/metrics"
	"github.com/sha1n/propindex/internal/store"
)

// DefaultWorkers is the number of rows indexed concurrently
const DefaultWorkers = 4

// Indexer writes property documents. *properties.Manager implements it.
type Indexer interface {
	Clear(ctx context.Context) error
	EnsureMapping(ctx context.Context) error
	Update(ctx context.Context, row domain.Row) (store.Ack, error)
}

// RowSource runs the listing query.
type RowSource interface {
	FetchAll(ctx context.Context, sql string) ([]domain.Row, error)
}

// Options controls one sync run.
type Options struct {
	// Clear rebuilds the index before indexing
	Clear bool

	// Limit, Offset and OrderBy shape the listing query; zero values leave them out
	Limit   int
	Offset  int
	OrderBy string

	// Driver selects the SQL dialect of the listing query
	Driver string

	Workers int

	// RateLimit caps indexed rows per second, 0 for no cap
	RateLimit float64

	LockPath    string
	StatePath   string
	MetricsPath string
}

// Syncer runs sync jobs. Runs are serialized across processes by a lock file.
type Syncer struct {
	indexer Indexer
	rows    RowSource
	opts    Options
}

// New creates a syncer.
func New(indexer Indexer, rows RowSource, opts Options) *Syncer {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	return &Syncer{indexer: indexer, rows: rows, opts: opts}
}

// Run executes one sync: the optional clear phase, the listing query, then one upsert
// per row on a bounded worker pool. Row failures are logged and counted, not returned.
func (s *Syncer) Run(ctx context.Context) (*State, error) {
	if s.opts.LockPath != "" {
		lock := NewFileLock(s.opts.LockPath)
		acquired, err := lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire sync lock: %w", err)
		}
		if !acquired {
			return nil, ErrSyncInProgress
		}
		defer func() {
			if err := lock.Unlock(); err != nil {
				slog.Warn("Failed to release sync lock", "path", lock.Path(), "error", err)
			}
		}()
	}

	state := &State{
		Version:   StateVersion,
		StartedAt: time.Now(),
		Cleared:   s.opts.Clear,
		Listing:   ListingSQL(s.opts.Driver, s.opts.OrderBy, s.opts.Limit, s.opts.Offset),
	}

	err := s.run(ctx, state)
	state.FinishedAt = time.Now()
	if err != nil {
		state.Error = err.Error()
	}
	s.record(state)
	return state, err
}

func (s *Syncer) run(ctx context.Context, state *State) error {
	// Clear must not overlap with the upserts below
	if s.opts.Clear {
		slog.Info("Clearing index")
		if err := s.indexer.Clear(ctx); err != nil {
			return fmt.Errorf("failed to clear index: %w", err)
		}
	} else if err := s.indexer.EnsureMapping(ctx); err != nil {
		return fmt.Errorf("failed to prepare index: %w", err)
	}

	slog.Info("Listing properties", "sql", state.Listing)
	rows, err := s.rows.FetchAll(ctx, state.Listing)
	if err != nil {
		return fmt.Errorf("failed to list properties: %w", err)
	}
	state.RowsSeen = len(rows)

	limiter := rate.NewLimiter(rate.Inf, 1)
	if s.opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(s.opts.RateLimit), 1)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)

	for _, row := range rows {
		if err := limiter.Wait(gctx); err != nil {
			break
		}
		g.Go(func() error {
			ack, err := s.indexer.Update(gctx, row)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				state.Failed++
				if len(state.FailedIDs) < MaxFailedIDs {
					state.FailedIDs = append(state.FailedIDs, fmt.Sprint(row[domain.FieldID]))
				}
				metrics.DocumentsTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
				slog.Error("Failed to index property", "id", row[domain.FieldID], "error", err)
				return nil
			}
			state.Indexed++
			metrics.DocumentsTotal.WithLabelValues(metrics.OutcomeIndexed).Inc()
			slog.Debug("Indexed property", "id", ack.ID, "result", ack.Result)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("sync interrupted: %w", err)
	}

	slog.Info("Sync complete", "rows", state.RowsSeen, "indexed", state.Indexed, "failed", state.Failed)
	return nil
}

// record persists the state file and the metrics textfile. Failures are logged only.
func (s *Syncer) record(state *State) {
	metrics.SyncRowsSeen.Set(float64(state.RowsSeen))
	metrics.SyncDuration.Set(state.Duration().Seconds())

	if s.opts.StatePath != "" {
		if err := state.Save(s.opts.StatePath); err != nil {
			slog.Warn("Failed to save sync state", "path", s.opts.StatePath, "error", err)
		}
	}
	if s.opts.MetricsPath != "" {
		metrics.Register()
		if err := metrics.WriteTextfile(s.opts.MetricsPath); err != nil {
			slog.Warn("Failed to write metrics", "path", s.opts.MetricsPath, "error", err)
		}
	}
}
