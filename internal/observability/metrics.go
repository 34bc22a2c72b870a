package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "groundwater_dss"

// Metrics holds the Prometheus counters, histograms, and gauges for the service.
type Metrics struct {
	// Dashboard operations.
	WellFetches      *prometheus.CounterVec // labels: outcome={success,<error kind>}
	Forecasts        *prometheus.CounterVec // labels: outcome={success,<error kind>}
	ForecastDuration prometheus.Histogram
	ForecastHorizon  prometheus.Histogram
	ModelLoaded      prometheus.Gauge

	// Well data source.
	SourceAttempts *prometheus.CounterVec // labels: outcome={success,retryable,permanent}
	SourceDuration prometheus.Histogram
	SourceCache    *prometheus.CounterVec // labels: result={hit,miss}

	// Best-effort sinks.
	SinkErrors *prometheus.CounterVec // labels: sink={archive,publish}
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.WellFetches,
		m.Forecasts,
		m.ForecastDuration,
		m.ForecastHorizon,
		m.ModelLoaded,
		m.SourceAttempts,
		m.SourceDuration,
		m.SourceCache,
		m.SinkErrors,
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
		WellFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "well_fetches_total",
			Help:      "Well history fetches by outcome.",
		}, []string{"outcome"}),
		Forecasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forecasts_total",
			Help:      "Forecast requests by outcome.",
		}, []string{"outcome"}),
		ForecastDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "forecast_duration_seconds",
			Help:      "Time spent running the forecast engine.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		ForecastHorizon: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "forecast_horizon_days",
			Help:      "Requested forecast horizons.",
			Buckets:   []float64{7, 14, 30, 60, 90, 180, 365},
		}),
		ModelLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_loaded",
			Help:      "1 when a forecast model artifact is loaded, 0 otherwise.",
		}),
		SourceAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_attempts_total",
			Help:      "Well data API attempts by outcome.",
		}, []string{"outcome"}),
		SourceDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_request_duration_seconds",
			Help:      "Well data API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		SourceCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_cache_total",
			Help:      "Well history cache lookups by result.",
		}, []string{"result"}),
		SinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_errors_total",
			Help:      "Failed writes to best-effort sinks.",
		}, []string{"sink"}),
	}
}
