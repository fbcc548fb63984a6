package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus instruments for the ingestion lifecycle.
type Metrics struct {
	PollsTotal       *prometheus.CounterVec // labels: outcome={success,error,superseded}
	RecordsSkipped   prometheus.Counter
	RecordsDefaulted prometheus.Counter
	EventsCurrent    prometheus.Gauge
	CatalogInserts   prometheus.Counter
	FetchDuration    prometheus.Histogram
	AutoRefreshOn    prometheus.Gauge
}

// NewMetrics creates and registers the instruments with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.PollsTotal,
		m.RecordsSkipped,
		m.RecordsDefaulted,
		m.EventsCurrent,
		m.CatalogInserts,
		m.FetchDuration,
		m.AutoRefreshOn,
	)
	return m
}

// NewMetricsForTesting creates unregistered instruments so parallel tests
// cannot collide on the default registry.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		PollsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "seismic_watch",
			Name:      "polls_total",
			Help:      "Feed polls by outcome.",
		}, []string{"outcome"}),
		RecordsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "seismic_watch",
			Name:      "records_skipped_total",
			Help:      "Raw records dropped as malformed during normalization.",
		}),
		RecordsDefaulted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "seismic_watch",
			Name:      "records_magnitude_defaulted_total",
			Help:      "Records whose null magnitude was substituted with 0.",
		}),
		EventsCurrent: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "seismic_watch",
			Name:      "events_current",
			Help:      "Events in the currently applied snapshot.",
		}),
		CatalogInserts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "seismic_watch",
			Name:      "catalog_inserts_total",
			Help:      "New events written to the cumulative catalog.",
		}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "seismic_watch",
			Name:      "fetch_duration_seconds",
			Help:      "Feed fetch duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}),
		AutoRefreshOn: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "seismic_watch",
			Name:      "auto_refresh_enabled",
			Help:      "1 when the periodic refresh timer is active.",
		}),
	}
}
