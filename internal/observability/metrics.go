package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "city_info"

// Metrics holds the Prometheus counters, histograms, and gauges for the city info pipeline.
type Metrics struct {
	PlacesDetected  prometheus.Counter
	PipelineRunning prometheus.Gauge
	ReferenceLoaded prometheus.Gauge

	// Batch and panel metrics.
	BatchDuration    prometheus.Histogram
	Panels           *prometheus.CounterVec   // labels: domain, outcome={rendered,skipped,timeout,stale,failed}
	ProviderDuration *prometheus.HistogramVec // labels: domain
	RenderAttempts   prometheus.Histogram

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec // labels: outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec // labels: result={hit,miss}
	GeocodeAPIDuration prometheus.Histogram

	// Relay metrics.
	RelayCache *prometheus.CounterVec // labels: result={hit,miss,error}
}

func newMetrics() *Metrics {
	return &Metrics{
		PlacesDetected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "places_detected_total",
			Help:      "Total place changes detected by the watcher.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		ReferenceLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reference_loaded",
			Help:      "1 once the reference tables have been loaded.",
		}),
		BatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Duration from place change until every panel is settled.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}),
		Panels: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "panels_total",
			Help:      "Panels settled by domain and outcome.",
		}, []string{"domain", "outcome"}),
		ProviderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_duration_seconds",
			Help:      "Data provider fetch duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"domain"}),
		RenderAttempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_attempts",
			Help:      "Render gate checks needed per panel.",
			Buckets:   []float64{1, 2, 4, 8, 16, 32, 64},
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Geocoding API requests by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by result.",
		}, []string{"result"}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_api_duration_seconds",
			Help:      "MapQuest geocoding request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		RelayCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_cache_total",
			Help:      "Relay response cache lookups by result.",
		}, []string{"result"}),
	}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.PlacesDetected,
		m.PipelineRunning,
		m.ReferenceLoaded,
		m.BatchDuration,
		m.Panels,
		m.ProviderDuration,
		m.RenderAttempts,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.RelayCache,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
