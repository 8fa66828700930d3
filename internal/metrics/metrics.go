// Package metrics holds the Prometheus collectors of sync runs and searches.
package metrics

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "propindex"

// Document outcomes
const (
	OutcomeIndexed = "indexed"
	OutcomeFailed  = "failed"
	OutcomeDeleted = "deleted"
)

var (
	DocumentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_total",
			Help:      "Documents written to the index by outcome",
		},
		[]string{"outcome"},
	)

	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_requests_total",
			Help:      "Total number of property searches",
		},
		[]string{"status"},
	)

	RelaxationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_relaxations_total",
			Help:      "Criteria dropped to reach the minimum hit count",
		},
	)

	SearchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Property search duration in seconds, relaxation retries included",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	SyncRowsSeen = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sync_rows_seen",
			Help:      "Rows read by the last sync run",
		},
	)

	SyncDuration = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sync_duration_seconds",
			Help:      "Wall time of the last sync run",
		},
	)
)

var registerOnce sync.Once

// Register adds all collectors to the default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			DocumentsTotal,
			SearchRequestsTotal,
			RelaxationsTotal,
			SearchDuration,
			SyncRowsSeen,
			SyncDuration,
		)
	})
}

// WriteTextfile writes the default registry in the text exposition format,
// for node_exporter's textfile collector.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
