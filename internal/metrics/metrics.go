// Package metrics exposes Prometheus counters and histograms for
// ingest throughput and match latency — ambient instrumentation, not
// the out-of-core HTTPS reporting path (spec §1).
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// ClipsIngested counts successfully fingerprinted clips.
	ClipsIngested = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "eureka",
		Subsystem: "ingest",
		Name:      "clips_ingested_total",
		Help:      "Number of clips successfully fingerprinted and marked complete.",
	})

	// ClipsSkipped counts files skipped because their content digest
	// was already fingerprinted.
	ClipsSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "eureka",
		Subsystem: "ingest",
		Name:      "clips_skipped_total",
		Help:      "Number of files skipped as already-fingerprinted duplicates.",
	})

	// ClipsFailed counts files that failed decode or store operations
	// during ingest.
	ClipsFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "eureka",
		Subsystem: "ingest",
		Name:      "clips_failed_total",
		Help:      "Number of files that failed to ingest.",
	})

	// MatchLatencySeconds observes the wall-clock duration of a single
	// recognize call.
	MatchLatencySeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "eureka",
		Subsystem: "match",
		Name:      "latency_seconds",
		Help:      "Wall-clock duration of a single Recognize call.",
		Buckets:   prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(ClipsIngested, ClipsSkipped, ClipsFailed, MatchLatencySeconds)
}
