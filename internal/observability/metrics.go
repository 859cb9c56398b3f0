package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "resampler"

// Metrics holds the Prometheus counters, histograms, and gauges for a resampling batch.
type Metrics struct {
	StationsProcessed *prometheus.CounterVec // labels: outcome={complete,partial,no_probabilities,failed,error}
	StationsRejected  *prometheus.CounterVec // labels: reason={degenerate_series,probability_anomaly,outside_predictor_area}
	IssuesRecorded    prometheus.Counter
	ScenariosWritten  prometheus.Counter
	StationDuration   prometheus.Histogram
	PipelineRunning   prometheus.Gauge

	// Event publishing metrics.
	EventsPublished *prometheus.CounterVec // labels: outcome={success,error}
}

// NewMetrics creates and registers all batch metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.StationsProcessed,
		m.StationsRejected,
		m.IssuesRecorded,
		m.ScenariosWritten,
		m.StationDuration,
		m.PipelineRunning,
		m.EventsPublished,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		StationsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stations_processed_total",
			Help:      "Stations resampled, by outcome.",
		}, []string{"outcome"}),
		StationsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stations_rejected_total",
			Help:      "Stations excluded during input validation, by reason.",
		}, []string{"reason"}),
		IssuesRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "issues_recorded_total",
			Help:      "Rows appended to the issue log.",
		}),
		ScenariosWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scenarios_written_total",
			Help:      "Scenario files written.",
		}),
		StationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "station_duration_seconds",
			Help:      "Time to resample and write one station.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while a batch is running, 0 otherwise.",
		}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Forecast-ready events published, by outcome.",
		}, []string{"outcome"}),
	}
}
