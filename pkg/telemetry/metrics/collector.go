package metrics

import (
	"sync"
	"time"

	"switchboard-hq/relay/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels used for attempts and requests.
const (
	OutcomeSuccess     = "success"
	OutcomeFailure     = "failure"
	OutcomeRateLimited = "rate_limited"
	OutcomeCanceled    = "canceled"
	OutcomeExhausted   = "exhausted"
	OutcomeNoProvider  = "no_provider"
)

// otherLabel replaces provider IDs once the cardinality limit is reached.
const otherLabel = "other"

// Collector owns every Prometheus metric relay exports.
//
// A nil *Collector is valid and records nothing, so components can take an
// optional collector without guarding each call.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry
	enabled  bool

	providerMetrics *ProviderMetrics
	routingMetrics  *RoutingMetrics
	quotaMetrics    *QuotaMetrics
	recoveryMetrics *RecoveryMetrics

	cardinalityLimiter *CardinalityLimiter
}

// NewCollector creates a collector registered against registry. If registry
// is nil a fresh registry is created.
//
// Example:
//
//	cfg := &config.MetricsConfig{Namespace: "relay", Subsystem: "router"}
//	collector := metrics.NewCollector(cfg, nil)
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if cfg == nil {
		cfg = &config.MetricsConfig{}
	}
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = config.DefaultMetricsSubsystem
	}
	if len(cfg.AttemptDurationBuckets) == 0 {
		cfg.AttemptDurationBuckets = append([]float64(nil), config.DefaultAttemptDurationBuckets...)
	}
	if len(cfg.TokenCountBuckets) == 0 {
		cfg.TokenCountBuckets = append([]float64(nil), config.DefaultTokenCountBuckets...)
	}

	return &Collector{
		config:             cfg,
		registry:           registry,
		enabled:            cfg.MetricsEnabled(),
		providerMetrics:    NewProviderMetrics(cfg, registry),
		routingMetrics:     NewRoutingMetrics(cfg, registry),
		quotaMetrics:       NewQuotaMetrics(cfg, registry),
		recoveryMetrics:    NewRecoveryMetrics(cfg, registry),
		cardinalityLimiter: NewCardinalityLimiter(256),
	}
}

func (c *Collector) active() bool {
	return c != nil && c.enabled
}

// provider folds unseen provider IDs into "other" once the limit is hit.
func (c *Collector) provider(id string) string {
	if c.cardinalityLimiter.Allow(id) {
		return id
	}
	return otherLabel
}

// RecordAttempt records one dispatch to a provider.
//
// Parameters:
//   - provider: provider ID
//   - outcome: OutcomeSuccess, OutcomeFailure or OutcomeCanceled
//   - duration: time from dispatch to stream end
func (c *Collector) RecordAttempt(provider, outcome string, duration time.Duration) {
	if !c.active() {
		return
	}
	c.providerMetrics.RecordAttempt(c.provider(provider), outcome, duration)
}

// RecordTokens records token usage reported by a successful response.
func (c *Collector) RecordTokens(provider string, tokens int) {
	if !c.active() || tokens <= 0 {
		return
	}
	c.providerMetrics.RecordTokens(c.provider(provider), tokens)
}

// RecordError records a classified failure.
func (c *Collector) RecordError(provider, kind string) {
	if !c.active() {
		return
	}
	c.providerMetrics.RecordError(c.provider(provider), kind)
}

// IncInFlight marks a request admitted to provider.
func (c *Collector) IncInFlight(provider string) {
	if !c.active() {
		return
	}
	c.providerMetrics.inFlight.WithLabelValues(c.provider(provider)).Inc()
}

// DecInFlight marks a request to provider finished.
func (c *Collector) DecInFlight(provider string) {
	if !c.active() {
		return
	}
	c.providerMetrics.inFlight.WithLabelValues(c.provider(provider)).Dec()
}

// SetProviderHealth sets the health gauge: 1 for the current status, 0 for
// the others.
func (c *Collector) SetProviderHealth(provider, status string, consecutiveFailures int) {
	if !c.active() {
		return
	}
	c.providerMetrics.UpdateHealth(c.provider(provider), status, consecutiveFailures)
}

// RecordRequest records a completed routed request.
func (c *Collector) RecordRequest(outcome string, attempts int, duration time.Duration) {
	if !c.active() {
		return
	}
	c.routingMetrics.RecordRequest(outcome, attempts, duration)
}

// RecordChain records the length of a built provider chain.
func (c *Collector) RecordChain(length int) {
	if !c.active() {
		return
	}
	c.routingMetrics.chainLength.Observe(float64(length))
}

// RecordFallback records the router advancing from one provider to the next.
func (c *Collector) RecordFallback(from, to string) {
	if !c.active() {
		return
	}
	c.routingMetrics.fallbacks.WithLabelValues(c.provider(from), c.provider(to)).Inc()
}

// RecordRateLimited records a pre-dispatch rejection.
//
// Parameters:
//   - provider: provider ID
//   - dimension: "requests", "tokens" or "concurrency"
func (c *Collector) RecordRateLimited(provider, dimension string) {
	if !c.active() {
		return
	}
	c.quotaMetrics.RecordRejection(c.provider(provider), dimension)
}

// UpdateWindow publishes the current window usage for provider.
func (c *Collector) UpdateWindow(provider string, requests, tokens int64) {
	if !c.active() {
		return
	}
	c.quotaMetrics.UpdateWindow(c.provider(provider), requests, tokens)
}

// RecordRecovery records a recovery decision and whether it succeeded.
func (c *Collector) RecordRecovery(provider, kind, strategy string, success, userIntervention bool) {
	if !c.active() {
		return
	}
	c.recoveryMetrics.Record(c.provider(provider), kind, strategy, success, userIntervention)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Enabled reports whether the collector records anything.
func (c *Collector) Enabled() bool {
	return c.active()
}

// CardinalityLimiter caps the number of distinct values a label may take.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether value may be used as a label. Known values are always
// allowed; new values are allowed until the limit is reached.
func (cl *CardinalityLimiter) Allow(value string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[value]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.current[value]; exists {
		return true
	}
	if len(cl.current) >= cl.maxCardinality {
		return false
	}

	cl.current[value] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
