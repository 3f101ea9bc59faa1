package main

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"sync"

	"switchboard-hq/relay/pkg/config"
	"switchboard-hq/relay/pkg/health"
	"switchboard-hq/relay/pkg/limits/ratelimit"
	"switchboard-hq/relay/pkg/limits/storage"
	"switchboard-hq/relay/pkg/recovery"
	"switchboard-hq/relay/pkg/routing"
	"switchboard-hq/relay/pkg/telemetry/metrics"
	"switchboard-hq/relay/pkg/telemetry/tracing"
)

// stack is a router with its collaborators, built from one configuration.
type stack struct {
	logger  *slog.Logger
	router  *routing.Router
	monitor *health.Monitor
	probe   *health.HTTPProbe
	metrics *metrics.Collector
	tracer  *tracing.Tracer
	store   storage.Backend

	// applied holds the provider configs currently registered, so a reload
	// only re-registers providers whose settings changed.
	mu      sync.Mutex
	applied map[string]routing.ProviderConfig
}

type stackOptions struct {
	logger  *slog.Logger
	metrics *metrics.Collector
	tracer  *tracing.Tracer
	store   storage.Backend
}

// newStack builds the router, health monitor and HTTP probe for cfg and
// registers every configured provider.
func newStack(cfg *config.Config, opts stackOptions) (*stack, error) {
	logger := opts.logger
	if logger == nil {
		logger = slog.Default()
	}

	probe := health.NewHTTPProbe(nil)
	monitor := health.NewMonitor(healthConfig(cfg.Health), probe.Probe, nil)
	if opts.metrics != nil {
		monitor.SetObserver(func(h health.ProviderHealth) {
			opts.metrics.SetProviderHealth(h.Provider, string(h.Status), h.ConsecutiveFailures)
		})
	}

	router := routing.New(routing.Options{
		Health:   monitor,
		Recovery: recovery.NewManager(recoveryConfig(cfg.Recovery), nil, nil),
		Metrics:  opts.metrics,
		Tracer:   opts.tracer,
		Logger:   logger,
	})

	s := &stack{
		logger:  logger,
		router:  router,
		monitor: monitor,
		probe:   probe,
		metrics: opts.metrics,
		tracer:  opts.tracer,
		store:   opts.store,
		applied: make(map[string]routing.ProviderConfig),
	}
	if err := s.apply(cfg); err != nil {
		router.Destroy()
		return nil, err
	}
	return s, nil
}

// apply brings the registered providers, probe targets and fallback chain in
// line with cfg. Providers whose settings are unchanged keep their quota
// windows.
func (s *stack) apply(cfg *config.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	wanted := make(map[string]bool, len(cfg.Providers))

	for _, p := range cfg.Providers {
		wanted[p.ID] = true
		rc := providerConfig(p)

		if p.BaseURL != "" {
			s.probe.SetTarget(p.ID, health.HTTPTarget{URL: p.BaseURL, APIKey: p.APIKey})
		} else {
			s.probe.RemoveTarget(p.ID)
		}

		if prev, ok := s.applied[p.ID]; ok && reflect.DeepEqual(prev, rc) {
			continue
		}

		b, err := newBackend(p)
		if err != nil {
			return err
		}
		if err := s.router.RegisterProvider(rc, b); err != nil {
			return fmt.Errorf("failed to register provider %q: %w", p.ID, err)
		}
		s.applied[p.ID] = rc
	}

	for id := range s.applied {
		if wanted[id] {
			continue
		}
		if err := s.router.UnregisterProvider(id); err != nil {
			s.logger.Warn("failed to unregister provider", "provider", id, "error", err)
		}
		s.probe.RemoveTarget(id)
		delete(s.applied, id)
	}

	s.router.SetFallbackChain(cfg.Routing.FallbackChain)
	return nil
}

// restore loads persisted quota windows into the router's tracker.
func (s *stack) restore(ctx context.Context) (int, error) {
	if s.store == nil {
		return 0, nil
	}
	return s.router.Tracker().LoadFrom(ctx, s.store)
}

// flush persists the open quota windows.
func (s *stack) flush(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	return s.router.Tracker().SaveTo(ctx, s.store)
}

// close stops the router and releases storage.
func (s *stack) close() {
	s.router.Destroy()
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn("failed to close quota storage", "error", err)
		}
	}
}

// openStorage opens the quota snapshot backend selected in cfg.
func openStorage(cfg config.LimitsStorageConfig) (storage.Backend, error) {
	switch cfg.Backend {
	case "sqlite":
		store, err := storage.NewSQLiteBackend(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite quota storage: %w", err)
		}
		return store, nil
	case "memory", "":
		return storage.NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unsupported quota storage backend: %s", cfg.Backend)
	}
}

// providerConfig converts a configured provider into a registry entry.
// Providers without their own retry block use the router's default policy.
func providerConfig(p config.ProviderConfig) routing.ProviderConfig {
	rc := routing.ProviderConfig{
		ID:              p.ID,
		Model:           p.Model,
		CredentialRef:   p.CredentialRef,
		ContextWindow:   p.ContextWindow,
		MaxOutputTokens: p.MaxOutputTokens,
		Enabled:         p.IsEnabled(),
		Priority:        p.Priority,
		AltCredential:   p.AltCredential,
	}

	limits := &ratelimit.Limits{
		RequestsPerMinute:  int(p.RateLimit.RequestsPerMinute),
		TokensPerMinute:    int(p.RateLimit.TokensPerMinute),
		ConcurrentRequests: int(p.RateLimit.ConcurrentRequests),
	}
	if !limits.Unlimited() {
		rc.RateLimit = limits
	}

	if p.Retry != nil {
		rc.Retry = retryConfig(*p.Retry)
	}
	return rc
}

func retryConfig(r config.RecoveryConfig) *routing.RetryConfig {
	return &routing.RetryConfig{
		MaxRetries: r.MaxRetries,
		BaseDelay:  r.BaseDelay,
		MaxDelay:   r.MaxDelay,
		UseBackoff: r.BackoffEnabled(),
	}
}

func recoveryConfig(r config.RecoveryConfig) recovery.Config {
	return recovery.Config{
		MaxRetries: r.MaxRetries,
		BaseDelay:  r.BaseDelay,
		MaxDelay:   r.MaxDelay,
		UseBackoff: r.BackoffEnabled(),
	}
}

func healthConfig(h config.HealthConfig) health.Config {
	return health.Config{
		Enabled:          h.Enabled,
		Interval:         h.Interval,
		Schedule:         h.Schedule,
		Timeout:          h.Timeout,
		DegradedAfter:    h.DegradedAfter,
		UnavailableAfter: h.UnavailableAfter,
	}
}

// providerIDs returns the configured provider IDs in file order.
func providerIDs(cfg *config.Config) []string {
	ids := make([]string, 0, len(cfg.Providers))
	for _, p := range cfg.Providers {
		ids = append(ids, p.ID)
	}
	return ids
}

// unlistedProviders returns enabled providers that are neither the default
// target nor in the fallback chain. They are reachable only as an explicit
// target.
func unlistedProviders(cfg *config.Config) []string {
	var out []string
	for _, p := range cfg.Providers {
		if !p.IsEnabled() || p.ID == cfg.Routing.DefaultProvider {
			continue
		}
		if !slices.Contains(cfg.Routing.FallbackChain, p.ID) {
			out = append(out, p.ID)
		}
	}
	return out
}
