package metrics

import (
	"switchboard-hq/relay/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// QuotaMetrics tracks per-provider quota usage.
//
// Metrics:
//   - relay_router_rate_limited_total: admissions rejected by dimension
//   - relay_router_window_requests: requests counted in the open window
//   - relay_router_window_tokens: tokens counted in the open window
type QuotaMetrics struct {
	rejections     *prometheus.CounterVec
	windowRequests *prometheus.GaugeVec
	windowTokens   *prometheus.GaugeVec
}

// NewQuotaMetrics creates and registers quota metrics with the provided registry.
func NewQuotaMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *QuotaMetrics {
	qm := &QuotaMetrics{
		rejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rate_limited_total",
				Help:      "Total number of admissions rejected by the local quota",
			},
			[]string{"provider", "dimension"},
		),

		windowRequests: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "window_requests",
				Help:      "Requests counted in the provider's open 60s window",
			},
			[]string{"provider"},
		),

		windowTokens: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "window_tokens",
				Help:      "Tokens counted in the provider's open 60s window",
			},
			[]string{"provider"},
		),
	}

	registry.MustRegister(
		qm.rejections,
		qm.windowRequests,
		qm.windowTokens,
	)

	return qm
}

// RecordRejection records an admission rejected on dimension.
func (qm *QuotaMetrics) RecordRejection(provider, dimension string) {
	qm.rejections.WithLabelValues(provider, dimension).Inc()
}

// UpdateWindow publishes the window counters for provider.
func (qm *QuotaMetrics) UpdateWindow(provider string, requests, tokens int64) {
	qm.windowRequests.WithLabelValues(provider).Set(float64(requests))
	qm.windowTokens.WithLabelValues(provider).Set(float64(tokens))
}
