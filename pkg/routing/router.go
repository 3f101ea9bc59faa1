package routing

import (
	"log/slog"
	"sync/atomic"

	"switchboard-hq/relay/pkg/backend"
	"switchboard-hq/relay/pkg/clock"
	"switchboard-hq/relay/pkg/health"
	"switchboard-hq/relay/pkg/limits/ratelimit"
	"switchboard-hq/relay/pkg/recovery"
	"switchboard-hq/relay/pkg/telemetry/metrics"
	"switchboard-hq/relay/pkg/telemetry/tracing"
)

// Operation is the recovery attempt key operation used for generation calls.
const Operation = "generate"

// Options configures a Router. Every field is optional.
type Options struct {
	// Tracker holds per-provider quota state. Default: a new tracker.
	Tracker *ratelimit.Tracker

	// Health filters unavailable providers out of chains and reports
	// degraded ones. Nil disables health filtering.
	Health *health.Monitor

	// Recovery runs failure recovery. Default: a manager with the default
	// retry policy and no credential store.
	Recovery *recovery.Manager

	// Metrics records Prometheus metrics. Nil disables metrics.
	Metrics *metrics.Collector

	// Tracer creates request and attempt spans. Nil disables tracing.
	Tracer *tracing.Tracer

	// Logger defaults to slog.Default() with component=router.
	Logger *slog.Logger

	// Clock defaults to the wall clock.
	Clock clock.Clock

	// DefaultRetry is the retry policy for providers without their own.
	// Default: the recovery manager's policy.
	DefaultRetry *RetryConfig
}

// Router composes the registry, rate limit tracker, health monitor and
// recovery manager. It is safe for concurrent use; construct one per
// independent routing domain.
//
// Example usage:
//
//	router := routing.New(routing.Options{Health: monitor})
//	router.RegisterProvider(routing.ProviderConfig{ID: "openai", Enabled: true}, openaiBackend)
//	router.SetFallbackChain([]string{"openai", "google"})
//
//	resp, err := router.Execute(ctx, "openai", req)
//	if result, ok := routing.RecoveryResult(err); ok {
//	    // show result.Message and result.UserActions
//	}
type Router struct {
	registry *Registry
	tracker  *ratelimit.Tracker
	health   *health.Monitor
	recovery *recovery.Manager
	metrics  *metrics.Collector
	tracer   *tracing.Tracer
	logger   *slog.Logger
	clock    clock.Clock
	retry    RetryConfig
	stats    *AtomicRoutingStats
	closed   atomic.Bool
}

// New creates a router.
func New(opts Options) *Router {
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real()
	}

	tracker := opts.Tracker
	if tracker == nil {
		tracker = ratelimit.NewTracker(clk)
	}

	mgr := opts.Recovery
	if mgr == nil {
		mgr = recovery.NewManager(recovery.DefaultConfig(), nil, clk)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var retry RetryConfig
	if opts.DefaultRetry != nil {
		retry = *opts.DefaultRetry
	} else {
		cfg := mgr.Config()
		retry = RetryConfig{
			MaxRetries: cfg.MaxRetries,
			BaseDelay:  cfg.BaseDelay,
			MaxDelay:   cfg.MaxDelay,
			UseBackoff: cfg.UseBackoff,
		}
	}

	registry := NewRegistry()
	if opts.Health != nil {
		registry.Eligibility = opts.Health.Eligible
	}

	return &Router{
		registry: registry,
		tracker:  tracker,
		health:   opts.Health,
		recovery: mgr,
		metrics:  opts.Metrics,
		tracer:   opts.Tracer,
		logger:   logger.With("component", "router"),
		clock:    clk,
		retry:    retry,
		stats:    NewAtomicRoutingStats(),
	}
}

// RegisterProvider stores a provider, replacing any provider with the same id,
// and (re)initialises its rate limit state.
func (r *Router) RegisterProvider(cfg ProviderConfig, b backend.Backend) error {
	if r.closed.Load() {
		return ErrRouterClosed
	}
	if err := r.registry.Register(cfg, b); err != nil {
		return err
	}

	r.tracker.Configure(cfg.ID, cfg.RateLimit)
	if r.health != nil {
		r.health.Register(cfg.ID)
	}

	r.logger.Info("Provider registered",
		"provider", cfg.ID,
		"model", cfg.Model,
		"enabled", cfg.Enabled,
		"priority", cfg.Priority,
	)
	return nil
}

// UnregisterProvider removes a provider and all of its state.
func (r *Router) UnregisterProvider(id string) error {
	if r.closed.Load() {
		return ErrRouterClosed
	}
	if !r.registry.Unregister(id) {
		return &ProviderNotFoundError{Provider: id, AvailableProviders: r.registry.IDs()}
	}

	r.tracker.Remove(id)
	r.recovery.ResetProvider(id)
	if r.health != nil {
		r.health.Unregister(id)
	}

	r.logger.Info("Provider unregistered", "provider", id)
	return nil
}

// SetFallbackChain stores the global fallback order. It is ignored once the
// router has been destroyed.
func (r *Router) SetFallbackChain(ids []string) {
	if r.closed.Load() {
		r.logger.Debug("Ignoring fallback chain update on closed router", "chain", ids)
		return
	}
	r.registry.SetFallbackChain(ids)
	r.logger.Info("Fallback chain updated", "chain", ids)
}

// FallbackChain returns the global fallback order.
func (r *Router) FallbackChain() []string {
	return r.registry.FallbackChain()
}

// BuildProviderChain returns the ordered eligible providers for a target.
func (r *Router) BuildProviderChain(target string) []string {
	return r.registry.BuildChain(target)
}

// ChainReport returns the provider chain for a target with its degraded
// members.
func (r *Router) ChainReport(target string) ChainReport {
	report := ChainReport{Chain: r.registry.BuildChain(target)}
	if r.health == nil {
		return report
	}

	degraded := make(map[string]bool)
	for _, id := range r.health.Degraded() {
		degraded[id] = true
	}
	for _, id := range report.Chain {
		if degraded[id] {
			report.Degraded = append(report.Degraded, id)
		}
	}
	return report
}

// Providers returns the registered providers ordered by priority, then
// registration order.
func (r *Router) Providers() []ProviderConfig {
	return r.registry.List()
}

// Provider returns a registered provider's configuration.
func (r *Router) Provider(id string) (ProviderConfig, bool) {
	cfg, _, ok := r.registry.Get(id)
	return cfg, ok
}

// ProviderState returns a provider's quota counters.
func (r *Router) ProviderState(id string) (ProviderState, bool) {
	return r.tracker.State(id)
}

// Stats returns a snapshot of the routing statistics.
func (r *Router) Stats() *RoutingStats {
	return r.stats.Snapshot()
}

// Tracker returns the router's rate limit tracker.
func (r *Router) Tracker() *ratelimit.Tracker {
	return r.tracker
}

// Closed reports whether Destroy has been called.
func (r *Router) Closed() bool {
	return r.closed.Load()
}

// Destroy stops health probing and clears every provider, the fallback
// chain, quota counters and recovery attempts. It is idempotent. Calls made
// after Destroy return ErrRouterClosed.
func (r *Router) Destroy() {
	if !r.closed.CompareAndSwap(false, true) {
		return
	}

	if r.health != nil {
		r.health.Stop()
		r.health.Reset()
	}
	r.registry.Clear()
	r.tracker.Reset()
	r.recovery.ResetAll()

	r.logger.Info("Router destroyed")
}

// retryFor returns the effective retry policy for a provider.
func (r *Router) retryFor(cfg ProviderConfig) RetryConfig {
	if cfg.Retry != nil {
		return *cfg.Retry
	}
	return r.retry
}
