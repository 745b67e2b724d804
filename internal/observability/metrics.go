package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// ingestion, assessment, and geospatial subsystems.
type Metrics struct {
	// Ingestion metrics.
	EventsIngested      *prometheus.CounterVec // labels: source, outcome={saved,skipped,failed}
	IngestCycleDuration prometheus.Histogram

	// Assessment metrics.
	EventsAssessed     *prometheus.CounterVec // labels: outcome={assessed,assessed_empty,error}
	ClassifierRetries  prometheus.Counter
	ClassifierDuration prometheus.Histogram
	EventsReclaimed    prometheus.Counter

	// Scheduler metrics.
	LoopRunning *prometheus.GaugeVec // labels: loop={ingest,assess}
	CycleErrors *prometheus.CounterVec

	// Geospatial metrics.
	ThreatQueries *prometheus.CounterVec // labels: operation={radius,routes,safety,locations}
	PlacesCache   *prometheus.CounterVec // labels: result={hit,miss}
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.EventsIngested,
		m.IngestCycleDuration,
		m.EventsAssessed,
		m.ClassifierRetries,
		m.ClassifierDuration,
		m.EventsReclaimed,
		m.LoopRunning,
		m.CycleErrors,
		m.ThreatQueries,
		m.PlacesCache,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		EventsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crisis_intel",
			Name:      "events_ingested_total",
			Help:      "Ingested records by source and outcome.",
		}, []string{"source", "outcome"}),
		IngestCycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "crisis_intel",
			Name:      "ingest_cycle_duration_seconds",
			Help:      "Duration of one complete ingestion cycle.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		EventsAssessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crisis_intel",
			Name:      "events_assessed_total",
			Help:      "Terminal assessment outcomes.",
		}, []string{"outcome"}),
		ClassifierRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "crisis_intel",
			Name:      "classifier_retries_total",
			Help:      "Classification attempts beyond the first.",
		}),
		ClassifierDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "crisis_intel",
			Name:      "classifier_duration_seconds",
			Help:      "Classification oracle call duration.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		EventsReclaimed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "crisis_intel",
			Name:      "events_reclaimed_total",
			Help:      "Empty assessments reset to NEW for another pass.",
		}),
		LoopRunning: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "crisis_intel",
			Name:      "loop_running",
			Help:      "1 while the named scheduler loop is active.",
		}, []string{"loop"}),
		CycleErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crisis_intel",
			Name:      "cycle_errors_total",
			Help:      "Cycles that ended with an error, by loop.",
		}, []string{"loop"}),
		ThreatQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crisis_intel",
			Name:      "threat_queries_total",
			Help:      "Geospatial engine operations served.",
		}, []string{"operation"}),
		PlacesCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crisis_intel",
			Name:      "places_cache_total",
			Help:      "Places lookup cache results.",
		}, []string{"result"}),
	}
}
