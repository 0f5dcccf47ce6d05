package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "routewx"

// Metrics holds the Prometheus collectors for the forecast pipeline.
type Metrics struct {
	// Forecast pipeline metrics.
	ForecastsTotal   *prometheus.CounterVec // labels: outcome={success,invalid_route}
	ForecastDuration prometheus.Histogram
	DefaultSamples   prometheus.Counter
	RealObservations prometheus.Counter

	// Provider metrics.
	ProviderRequests *prometheus.CounterVec   // labels: provider, outcome={success,empty,timeout,no_coverage,unavailable}
	ProviderDuration *prometheus.HistogramVec // labels: provider
	ProviderSamples  *prometheus.CounterVec   // labels: provider
	UpstreamDuration *prometheus.HistogramVec // labels: provider
	SampleCache      *prometheus.CounterVec   // labels: provider, result={hit,miss}

	// Airport directory metrics.
	AirportCache *prometheus.CounterVec // labels: result={hit,miss}

	// HTTP API metrics.
	HTTPRequests *prometheus.CounterVec   // labels: route, method, status
	HTTPDuration *prometheus.HistogramVec // labels: route, method
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates unregistered Metrics so tests can build as many
// as they need.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		ForecastsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forecasts_total",
			Help:      "Route forecasts requested, by outcome.",
		}, []string{"outcome"}),
		ForecastDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "forecast_duration_seconds",
			Help:      "Time to resolve a complete route forecast.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		DefaultSamples: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "default_samples_total",
			Help:      "Waypoints no provider covered that received the conservative default.",
		}),
		RealObservations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "real_observations_total",
			Help:      "Samples backed by real observations.",
		}),
		ProviderRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Provider calls by provider and outcome.",
		}, []string{"provider", "outcome"}),
		ProviderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_duration_seconds",
			Help:      "Duration of one provider call covering all pending waypoints.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"provider"}),
		ProviderSamples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_samples_total",
			Help:      "Samples contributed to forecasts, by provider.",
		}, []string{"provider"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Duration of individual upstream HTTP requests.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"provider"}),
		SampleCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sample_cache_total",
			Help:      "Waypoint sample cache lookups by provider and result.",
		}, []string{"provider", "result"}),
		AirportCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "airport_cache_total",
			Help:      "Airport directory cache lookups by result.",
		}, []string{"result"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "API requests by route pattern, method and status code.",
		}, []string{"route", "method", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "API request latency by route pattern and method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.ForecastsTotal,
		m.ForecastDuration,
		m.DefaultSamples,
		m.RealObservations,
		m.ProviderRequests,
		m.ProviderDuration,
		m.ProviderSamples,
		m.UpstreamDuration,
		m.SampleCache,
		m.AirportCache,
		m.HTTPRequests,
		m.HTTPDuration,
	}
}
