package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"switchboard-hq/relay/pkg/clock"
)

// maxConcurrentProbes bounds a single sweep.
const maxConcurrentProbes = 8

// ErrNoProbe is returned by Start when the monitor has no probe function.
var ErrNoProbe = errors.New("health monitor has no probe")

// Monitor tracks provider health.
type Monitor struct {
	mu        sync.RWMutex
	providers map[string]*ProviderHealth

	config   Config
	probe    Probe
	clock    clock.Clock
	logger   *slog.Logger
	observer func(ProviderHealth)

	runMu   sync.Mutex
	cron    *cron.Cron
	cancel  context.CancelFunc
	running bool
}

// NewMonitor creates a health monitor. A nil clock uses the wall clock.
func NewMonitor(cfg Config, probe Probe, clk clock.Clock) *Monitor {
	cfg.ApplyDefaults()
	if clk == nil {
		clk = clock.Real()
	}
	return &Monitor{
		providers: make(map[string]*ProviderHealth),
		config:    cfg,
		probe:     probe,
		clock:     clk,
		logger:    slog.Default().With("component", "health.monitor"),
	}
}

// SetObserver registers a callback invoked after every probe result.
// It must be set before Start.
func (m *Monitor) SetObserver(fn func(ProviderHealth)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observer = fn
}

// Enabled reports whether health checking is on.
func (m *Monitor) Enabled() bool {
	return m.config.Enabled
}

// Config returns the effective configuration.
func (m *Monitor) Config() Config {
	return m.config
}

// Register adds a provider. New providers start healthy.
// Registering an existing provider keeps its history.
func (m *Monitor) Register(provider string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.providers[provider]; ok {
		return
	}
	m.providers[provider] = &ProviderHealth{
		Provider: provider,
		Status:   StatusHealthy,
	}
}

// Unregister removes a provider.
func (m *Monitor) Unregister(provider string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.providers, provider)
}

// Reset removes every provider.
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.providers = make(map[string]*ProviderHealth)
}

// Eligible reports whether a provider may be placed in a routing chain.
// Only unavailable providers are ineligible, and only while health checking
// is enabled.
func (m *Monitor) Eligible(provider string) bool {
	if !m.config.Enabled {
		return true
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	h, ok := m.providers[provider]
	if !ok {
		return true
	}
	return h.Status != StatusUnavailable
}

// Status returns a copy of a provider's health record.
func (m *Monitor) Status(provider string) (ProviderHealth, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	h, ok := m.providers[provider]
	if !ok {
		return ProviderHealth{}, false
	}
	return *h, true
}

// Snapshot returns every health record ordered by provider id.
func (m *Monitor) Snapshot() []ProviderHealth {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]ProviderHealth, 0, len(m.providers))
	for _, h := range m.providers {
		out = append(out, *h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Provider < out[j].Provider })
	return out
}

// Degraded returns the ids of degraded providers in sorted order.
// Always empty when health checking is disabled.
func (m *Monitor) Degraded() []string {
	if !m.config.Enabled {
		return nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var ids []string
	for id, h := range m.providers {
		if h.Status == StatusDegraded {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// CheckNow probes every registered provider concurrently and returns the
// updated records.
func (m *Monitor) CheckNow(ctx context.Context) []ProviderHealth {
	m.mu.RLock()
	ids := make([]string, 0, len(m.providers))
	for id := range m.providers {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	var g errgroup.Group
	g.SetLimit(maxConcurrentProbes)
	for _, id := range ids {
		g.Go(func() error {
			m.Check(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	return m.Snapshot()
}

// Check probes a single provider and records the result.
func (m *Monitor) Check(ctx context.Context, provider string) (ProviderHealth, error) {
	if m.probe == nil {
		return ProviderHealth{}, ErrNoProbe
	}

	probeCtx, cancel := context.WithTimeout(ctx, m.config.Timeout)
	defer cancel()

	start := time.Now()
	err := m.probe(probeCtx, provider)
	latency := time.Since(start)

	if err == nil && probeCtx.Err() != nil {
		err = fmt.Errorf("health check timeout: %w", probeCtx.Err())
	}
	if ctx.Err() != nil {
		// Monitor is stopping; do not record a failure against the provider.
		return ProviderHealth{}, ctx.Err()
	}

	h, ok := m.record(provider, err, latency)
	if !ok {
		return ProviderHealth{}, fmt.Errorf("provider %q is not registered", provider)
	}
	return h, err
}

func (m *Monitor) record(provider string, probeErr error, latency time.Duration) (ProviderHealth, bool) {
	m.mu.Lock()
	h, ok := m.providers[provider]
	if !ok {
		m.mu.Unlock()
		return ProviderHealth{}, false
	}

	previous := h.Status
	h.LastCheckedAt = m.clock.Now()
	h.Latency = latency

	if probeErr == nil {
		h.ConsecutiveFailures = 0
		h.LastError = ""
		h.Status = StatusHealthy
	} else {
		h.ConsecutiveFailures++
		h.LastError = probeErr.Error()
		switch {
		case h.ConsecutiveFailures >= m.config.UnavailableAfter:
			h.Status = StatusUnavailable
		case h.ConsecutiveFailures >= m.config.DegradedAfter:
			h.Status = StatusDegraded
		}
	}

	result := *h
	observer := m.observer
	m.mu.Unlock()

	if previous != result.Status {
		m.logger.Info("provider health changed",
			"provider", provider,
			"from", previous,
			"to", result.Status,
			"consecutive_failures", result.ConsecutiveFailures,
			"error", result.LastError,
		)
	} else if probeErr != nil {
		m.logger.Debug("health check failed",
			"provider", provider,
			"error", probeErr,
			"latency", latency,
		)
	}

	if observer != nil {
		observer(result)
	}
	return result, true
}

// Start schedules probe sweeps. It is a no-op when health checking is
// disabled. The schedule stops when ctx is cancelled or Stop is called.
func (m *Monitor) Start(ctx context.Context) error {
	if !m.config.Enabled {
		m.logger.Info("health checking disabled, skipping scheduler")
		return nil
	}
	if m.probe == nil {
		return ErrNoProbe
	}

	m.runMu.Lock()
	defer m.runMu.Unlock()

	if m.running {
		return nil
	}

	spec := m.config.spec()
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid health schedule %q: %w", spec, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(spec, func() { m.CheckNow(runCtx) }); err != nil {
		cancel()
		return fmt.Errorf("failed to schedule health checks: %w", err)
	}

	c.Start()
	m.cron = c
	m.cancel = cancel
	m.running = true

	m.logger.Info("health monitor started",
		"schedule", spec,
		"timeout", m.config.Timeout,
	)

	go func() {
		<-runCtx.Done()
		m.Stop()
	}()

	return nil
}

// Stop cancels pending probes and stops the schedule. Stop is idempotent.
func (m *Monitor) Stop() {
	m.runMu.Lock()
	defer m.runMu.Unlock()

	if !m.running {
		return
	}

	m.cancel()
	<-m.cron.Stop().Done()
	m.running = false

	m.logger.Info("health monitor stopped")
}

// Running reports whether the schedule is active.
func (m *Monitor) Running() bool {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	return m.running
}

// NextRun returns the next scheduled sweep, or nil when not running.
func (m *Monitor) NextRun() *time.Time {
	m.runMu.Lock()
	defer m.runMu.Unlock()

	if !m.running {
		return nil
	}
	entries := m.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
