// Package metrics exposes Prometheus collectors for the analysis pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	AssetsProcessed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cryptotrends_assets_processed_total",
		Help: "Assets fully analyzed across all runs.",
	})

	AssetsSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cryptotrends_assets_skipped_total",
		Help: "Assets skipped for insufficient bar history.",
	})

	AssetsFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cryptotrends_assets_failed_total",
		Help: "Assets whose analysis ended in an error.",
	})

	TrendsStored = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cryptotrends_trends_stored_total",
		Help: "Trend records upserted.",
	})

	SignalsStored = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cryptotrends_signals_stored_total",
		Help: "Signal events persisted, by signal type.",
	}, []string{"signal_type"})

	RunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cryptotrends_run_duration_seconds",
		Help:    "Wall-clock duration of analysis runs.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})

	QueriesServed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cryptotrends_queries_total",
		Help: "Natural-language queries served, by intent.",
	}, []string{"intent"})

	QueryDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cryptotrends_query_duration_seconds",
		Help:    "Query interpreter execution time.",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(
		AssetsProcessed,
		AssetsSkipped,
		AssetsFailed,
		TrendsStored,
		SignalsStored,
		RunDuration,
		QueriesServed,
		QueryDuration,
	)
}

// RecordSignal bumps the per-type stored counter.
func RecordSignal(signalType string) {
	SignalsStored.WithLabelValues(signalType).Inc()
}

// RecordQuery bumps the per-intent counter and observes its duration.
func RecordQuery(intent string, seconds float64) {
	QueriesServed.WithLabelValues(intent).Inc()
	QueryDuration.Observe(seconds)
}
