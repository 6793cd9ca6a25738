// Package metrics provides Prometheus metrics collection for the classifier.
// It defines the prediction, runtime and request metrics exposed via the
// Prometheus metrics endpoint for monitoring and alerting.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the classifier.
type Metrics struct {
	// Prediction metrics
	Predictions      *prometheus.CounterVec // Predictions by mission and source
	FallbackUse      *prometheus.CounterVec // Fallback heuristic uses by mission
	RuntimeFailures  *prometheus.CounterVec // External runtime failures by mission and stage
	RuntimeTimeouts  prometheus.Counter     // External runtime timeouts
	ValidationErrors *prometheus.CounterVec // Rejected records by mission
	Latency          prometheus.Histogram   // End-to-end prediction latency in seconds
	Confidence       prometheus.Histogram   // Distribution of result confidence (percent)

	// API metrics
	Requests      *prometheus.CounterVec // HTTP requests by route and status code
	RateLimited   prometheus.Counter     // Requests rejected by the rate limiter
	StreamClients prometheus.Gauge       // Connected WebSocket clients

	// Storage metrics
	StoredPredictions prometheus.Counter // Predictions written to history
	ErrorsTotal       prometheus.Counter // Total number of errors encountered
}

// New creates and registers all Prometheus metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for testing).
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		Predictions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "predictions_total",
			Help: "Total number of predictions by mission and source",
		}, []string{"mission", "source"}),
		FallbackUse: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fallback_use_total",
			Help: "Total number of times the fallback heuristic was used",
		}, []string{"mission"}),
		RuntimeFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "runtime_failures_total",
			Help: "Total number of external inference failures by stage",
		}, []string{"mission", "stage"}),
		RuntimeTimeouts: factory.NewCounter(prometheus.CounterOpts{
			Name: "runtime_timeouts_total",
			Help: "Total number of external inference timeouts",
		}),
		ValidationErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "validation_errors_total",
			Help: "Total number of records rejected before vectorization",
		}, []string{"mission"}),
		Latency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "prediction_latency_seconds",
			Help:    "Prediction latency in seconds (end-to-end)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 1.5, 2.0, 2.5, 5.0},
		}),
		Confidence: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "prediction_confidence_percent",
			Help:    "Distribution of prediction confidence",
			Buckets: prometheus.LinearBuckets(30, 10, 8),
		}),
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of API requests by route and status code",
		}, []string{"route", "code"}),
		RateLimited: factory.NewCounter(prometheus.CounterOpts{
			Name: "http_rate_limited_total",
			Help: "Total number of requests rejected by the rate limiter",
		}),
		StreamClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "stream_clients",
			Help: "Number of connected streaming clients",
		}),
		StoredPredictions: factory.NewCounter(prometheus.CounterOpts{
			Name: "stored_predictions_total",
			Help: "Total number of predictions written to history",
		}),
		ErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors encountered",
		}),
	}
}
