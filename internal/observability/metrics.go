// Package observability exposes Prometheus collectors for the tracking pipeline.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	entriesRecorded = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "higher_pleasures",
		Subsystem: "tracking",
		Name:      "entries_recorded_total",
		Help:      "Number of entries appended to the ledger.",
	})

	trackFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "higher_pleasures",
		Subsystem: "tracking",
		Name:      "failures_total",
		Help:      "Number of messages that failed to produce an entry, by failure kind.",
	}, []string{"kind"})

	categoriesCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "higher_pleasures",
		Subsystem: "tracking",
		Name:      "categories_created_total",
		Help:      "Number of new activity categories minted by the matcher.",
	})

	storeRetries = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "higher_pleasures",
		Subsystem: "ledger",
		Name:      "store_retries_total",
		Help:      "Number of ledger append retries after transient store failures.",
	})

	lastEntryGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "higher_pleasures",
		Subsystem: "ledger",
		Name:      "last_entry_recorded_timestamp_seconds",
		Help:      "Unix timestamp of the most recent entry appended to the ledger.",
	})
)

func init() {
	prometheus.MustRegister(entriesRecorded, trackFailures, categoriesCreated, storeRetries, lastEntryGauge)
}

// RecordEntryRecorded updates the append counter and watermark gauge.
func RecordEntryRecorded(ts time.Time) {
	entriesRecorded.Inc()
	if !ts.IsZero() {
		lastEntryGauge.Set(float64(ts.Unix()))
	}
}

// RecordTrackFailure counts a failed message by failure kind.
func RecordTrackFailure(kind string) {
	trackFailures.WithLabelValues(kind).Inc()
}

// RecordCategoryCreated counts a newly minted category.
func RecordCategoryCreated() {
	categoriesCreated.Inc()
}

// RecordStoreRetry counts one ledger append retry.
func RecordStoreRetry() {
	storeRetries.Inc()
}
