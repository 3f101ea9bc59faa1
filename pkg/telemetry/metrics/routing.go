package metrics

import (
	"time"

	"switchboard-hq/relay/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// RoutingMetrics tracks request-level routing behaviour.
//
// Metrics:
//   - relay_router_requests_total: routed requests by final outcome
//   - relay_router_request_duration_seconds: end-to-end routed request latency
//   - relay_router_request_attempts: dispatches needed per request
//   - relay_router_chain_length: providers in each built chain
//   - relay_router_fallbacks_total: advances from one provider to the next
type RoutingMetrics struct {
	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	attempts    prometheus.Histogram
	chainLength prometheus.Histogram
	fallbacks   *prometheus.CounterVec
}

// NewRoutingMetrics creates and registers routing metrics with the provided registry.
func NewRoutingMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RoutingMetrics {
	rm := &RoutingMetrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "requests_total",
				Help:      "Total number of routed requests by outcome",
			},
			[]string{"outcome"},
		),

		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "request_duration_seconds",
				Help:      "End-to-end routed request duration in seconds",
				Buckets:   cfg.AttemptDurationBuckets,
			},
			[]string{"outcome"},
		),

		attempts: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "request_attempts",
				Help:      "Number of provider dispatches per routed request",
				Buckets:   []float64{1, 2, 3, 4, 6, 8, 12},
			},
		),

		chainLength: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "chain_length",
				Help:      "Number of providers in each built chain",
				Buckets:   []float64{0, 1, 2, 3, 4, 6, 8},
			},
		),

		fallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "fallbacks_total",
				Help:      "Total number of advances from one provider to the next",
			},
			[]string{"from", "to"},
		),
	}

	registry.MustRegister(
		rm.requests,
		rm.duration,
		rm.attempts,
		rm.chainLength,
		rm.fallbacks,
	)

	return rm
}

// RecordRequest records the outcome of one routed request.
func (rm *RoutingMetrics) RecordRequest(outcome string, attempts int, duration time.Duration) {
	rm.requests.WithLabelValues(outcome).Inc()
	rm.duration.WithLabelValues(outcome).Observe(duration.Seconds())
	rm.attempts.Observe(float64(attempts))
}
