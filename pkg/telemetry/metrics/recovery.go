package metrics

import (
	"strconv"

	"switchboard-hq/relay/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// RecoveryMetrics tracks recovery decisions.
//
// Metrics:
//   - relay_router_recoveries_total: recoveries by failure kind, strategy and result
//   - relay_router_user_interventions_total: recoveries that need an operator
type RecoveryMetrics struct {
	recoveries    *prometheus.CounterVec
	interventions *prometheus.CounterVec
}

// NewRecoveryMetrics creates and registers recovery metrics with the provided registry.
func NewRecoveryMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RecoveryMetrics {
	rm := &RecoveryMetrics{
		recoveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "recoveries_total",
				Help:      "Total number of recovery attempts by kind, strategy and result",
			},
			[]string{"kind", "strategy", "success"},
		),

		interventions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "user_interventions_total",
				Help:      "Total number of recoveries requiring user intervention",
			},
			[]string{"provider"},
		),
	}

	registry.MustRegister(rm.recoveries, rm.interventions)

	return rm
}

// Record records a recovery result.
func (rm *RecoveryMetrics) Record(provider, kind, strategy string, success, userIntervention bool) {
	rm.recoveries.WithLabelValues(kind, strategy, strconv.FormatBool(success)).Inc()
	if userIntervention {
		rm.interventions.WithLabelValues(provider).Inc()
	}
}
