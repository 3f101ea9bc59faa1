package metrics

import (
	"time"

	"switchboard-hq/relay/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// healthStatuses are the label values of the provider_health gauge.
var healthStatuses = []string{"healthy", "degraded", "unavailable"}

// ProviderMetrics tracks per-provider dispatch and health metrics.
//
// Metrics:
//   - relay_router_provider_attempts_total: dispatches by provider and outcome
//   - relay_router_provider_attempt_duration_seconds: dispatch latency
//   - relay_router_provider_errors_total: classified failures by kind
//   - relay_router_provider_tokens: tokens per successful response
//   - relay_router_provider_in_flight: admitted requests not yet finished
//   - relay_router_provider_health: 1 for the provider's current status
//   - relay_router_provider_consecutive_failures: failed probes in a row
type ProviderMetrics struct {
	attempts            *prometheus.CounterVec
	latency             *prometheus.HistogramVec
	errors              *prometheus.CounterVec
	tokens              *prometheus.HistogramVec
	inFlight            *prometheus.GaugeVec
	health              *prometheus.GaugeVec
	consecutiveFailures *prometheus.GaugeVec
}

// NewProviderMetrics creates and registers provider metrics with the provided registry.
func NewProviderMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ProviderMetrics {
	pm := &ProviderMetrics{
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "provider_attempts_total",
				Help:      "Total number of dispatches to each provider by outcome",
			},
			[]string{"provider", "outcome"},
		),

		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "provider_attempt_duration_seconds",
				Help:      "Provider dispatch latency in seconds",
				Buckets:   cfg.AttemptDurationBuckets,
			},
			[]string{"provider"},
		),

		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "provider_errors_total",
				Help:      "Total number of provider failures by classified kind",
			},
			[]string{"provider", "kind"},
		),

		tokens: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "provider_tokens",
				Help:      "Tokens consumed per successful response",
				Buckets:   cfg.TokenCountBuckets,
			},
			[]string{"provider"},
		),

		inFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "provider_in_flight",
				Help:      "Requests admitted to a provider and not yet finished",
			},
			[]string{"provider"},
		),

		health: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "provider_health",
				Help:      "Provider health status (1 for the current status, 0 otherwise)",
			},
			[]string{"provider", "status"},
		),

		consecutiveFailures: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "provider_consecutive_failures",
				Help:      "Consecutive failed health probes",
			},
			[]string{"provider"},
		),
	}

	registry.MustRegister(
		pm.attempts,
		pm.latency,
		pm.errors,
		pm.tokens,
		pm.inFlight,
		pm.health,
		pm.consecutiveFailures,
	)

	return pm
}

// RecordAttempt records a dispatch and its latency.
func (pm *ProviderMetrics) RecordAttempt(provider, outcome string, duration time.Duration) {
	pm.attempts.WithLabelValues(provider, outcome).Inc()
	pm.latency.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordError records a classified failure.
func (pm *ProviderMetrics) RecordError(provider, kind string) {
	pm.errors.WithLabelValues(provider, kind).Inc()
}

// RecordTokens records tokens used by one response.
func (pm *ProviderMetrics) RecordTokens(provider string, tokens int) {
	pm.tokens.WithLabelValues(provider).Observe(float64(tokens))
}

// UpdateHealth sets the health gauges for provider.
func (pm *ProviderMetrics) UpdateHealth(provider, status string, consecutiveFailures int) {
	for _, s := range healthStatuses {
		value := 0.0
		if s == status {
			value = 1.0
		}
		pm.health.WithLabelValues(provider, s).Set(value)
	}
	pm.consecutiveFailures.WithLabelValues(provider).Set(float64(consecutiveFailures))
}
