package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "carpark_etl"

// Pipeline run outcomes used as the "outcome" label of RunsTotal.
const (
	OutcomeSuccess     = "success"
	OutcomeStaticError = "static_error"
	OutcomeFeedError   = "feed_error"
	OutcomeMergeError  = "merge_error"
)

// Metrics holds the Prometheus collectors for pipeline runs, the feed client,
// the refresher and the snapshot publisher.
type Metrics struct {
	RunsTotal     *prometheus.CounterVec // labels: outcome={success,static_error,feed_error,merge_error}
	RunDuration   prometheus.Histogram
	StaticLoaded  prometheus.Gauge
	LiveFetched   prometheus.Gauge
	LiveDropped   prometheus.Counter
	MergedRecords prometheus.Gauge

	// Feed client metrics.
	FeedFetchDuration *prometheus.HistogramVec // labels: outcome={success,error}

	// Refresher metrics.
	SnapshotAge      prometheus.Gauge
	RefresherRunning prometheus.Gauge

	// Publisher metrics.
	RecordsPublished prometheus.Counter
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.StaticLoaded,
		m.LiveFetched,
		m.LiveDropped,
		m.MergedRecords,
		m.FeedFetchDuration,
		m.SnapshotAge,
		m.RefresherRunning,
		m.RecordsPublished,
	)

	return m
}

// NewMetricsForTesting creates unregistered Metrics so tests can build as many
// as they like without "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Pipeline runs by outcome.",
		}, []string{"outcome"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a load, fetch and merge run.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		StaticLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "static_records_loaded",
			Help:      "Static records in the most recent successful load.",
		}),
		LiveFetched: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_records_fetched",
			Help:      "Live records kept from the most recent feed pull.",
		}),
		LiveDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_records_dropped_total",
			Help:      "Feed entries skipped by the per-record filter.",
		}),
		MergedRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "merged_records",
			Help:      "Rows in the current merged snapshot.",
		}),
		FeedFetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "feed_fetch_duration_seconds",
			Help:      "Availability feed request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"outcome"}),
		SnapshotAge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_age_seconds",
			Help:      "Seconds since the served snapshot was built.",
		}),
		RefresherRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "refresher_running",
			Help:      "1 while the snapshot refresher is active, 0 when shut down.",
		}),
		RecordsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_published_total",
			Help:      "Merged records written to the sink topic.",
		}),
	}
}
