package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"switchboard-hq/relay/pkg/clock"
	"switchboard-hq/relay/pkg/limits/storage"
)

// Tracker holds the RateLimitState of every configured provider.
//
// Providers that were never configured are always admitted and mutations
// against them are ignored.
type Tracker struct {
	mu        sync.RWMutex
	providers map[string]*providerState
	clock     clock.Clock
}

type providerState struct {
	mu           sync.Mutex
	limits       Limits
	requestCount int64
	tokenCount   int64
	windowStart  time.Time
	inflight     *Gauge
}

// NewTracker creates an empty tracker. A nil clock uses the wall clock.
func NewTracker(clk clock.Clock) *Tracker {
	if clk == nil {
		clk = clock.Real()
	}
	return &Tracker{
		providers: make(map[string]*providerState),
		clock:     clk,
	}
}

// Configure initialises or replaces the state for a provider.
// Window counters restart from zero; the in-flight gauge is kept so that
// requests admitted under the old configuration still release their slot.
func (t *Tracker) Configure(provider string, limits *Limits) {
	var l Limits
	if limits != nil {
		l = *limits
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	gauge := &Gauge{}
	if existing, ok := t.providers[provider]; ok {
		gauge = existing.inflight
	}
	t.providers[provider] = &providerState{
		limits:      l,
		windowStart: t.clock.Now(),
		inflight:    gauge,
	}
}

// Remove drops a provider's state.
func (t *Tracker) Remove(provider string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.providers, provider)
}

// Reset drops every provider's state.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.providers = make(map[string]*providerState)
}

// Providers returns the configured provider ids in sorted order.
func (t *Tracker) Providers() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ids := make([]string, 0, len(t.providers))
	for id := range t.providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (t *Tracker) lookup(provider string) *providerState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.providers[provider]
}

// Check reports whether a request with pendingTokens would be admitted.
// It does not modify any counter.
func (t *Tracker) Check(provider string, pendingTokens int) bool {
	return t.Evaluate(provider, pendingTokens).Allowed
}

// Evaluate is Check with the rejecting dimension and limit filled in.
func (t *Tracker) Evaluate(provider string, pendingTokens int) CheckResult {
	ps := t.lookup(provider)
	if ps == nil {
		return CheckResult{Allowed: true}
	}

	now := t.clock.Now()

	ps.mu.Lock()
	requests, tokens, windowStart := ps.windowCounters(now)
	limits := ps.limits
	ps.mu.Unlock()

	retryAfter := windowStart.Add(Window).Sub(now)
	if retryAfter < 0 {
		retryAfter = 0
	}

	if limits.RequestsPerMinute > 0 && requests+1 > int64(limits.RequestsPerMinute) {
		return CheckResult{
			Dimension:  DimensionRequests,
			Limit:      int64(limits.RequestsPerMinute),
			Current:    requests,
			RetryAfter: retryAfter,
		}
	}

	if pendingTokens < 0 {
		pendingTokens = 0
	}
	if limits.TokensPerMinute > 0 && tokens+int64(pendingTokens) > int64(limits.TokensPerMinute) {
		return CheckResult{
			Dimension:  DimensionTokens,
			Limit:      int64(limits.TokensPerMinute),
			Current:    tokens,
			RetryAfter: retryAfter,
		}
	}

	if limits.ConcurrentRequests > 0 {
		inflight := ps.inflight.Current()
		if inflight+1 > int64(limits.ConcurrentRequests) {
			return CheckResult{
				Dimension: DimensionConcurrency,
				Limit:     int64(limits.ConcurrentRequests),
				Current:   inflight,
			}
		}
	}

	return CheckResult{Allowed: true}
}

// Update commits consumption against a window counter. The tracker does not
// re-check admission; callers run Check first.
func (t *Tracker) Update(provider string, dim Dimension, amount int64) {
	if amount <= 0 {
		return
	}
	ps := t.lookup(provider)
	if ps == nil {
		return
	}

	now := t.clock.Now()

	ps.mu.Lock()
	defer ps.mu.Unlock()

	if now.Sub(ps.windowStart) >= Window {
		slog.Debug("rate limit window reset",
			"provider", provider,
			"requests", ps.requestCount,
			"tokens", ps.tokenCount,
		)
		ps.requestCount = 0
		ps.tokenCount = 0
		ps.windowStart = now
	}

	switch dim {
	case DimensionRequests:
		ps.requestCount += amount
	case DimensionTokens:
		ps.tokenCount += amount
	}
}

// TrackStart increments the provider's in-flight gauge unconditionally.
func (t *Tracker) TrackStart(provider string) {
	if ps := t.lookup(provider); ps != nil {
		ps.inflight.Inc()
	}
}

// TrackEnd decrements the provider's in-flight gauge, clamped at zero.
func (t *Tracker) TrackEnd(provider string) {
	if ps := t.lookup(provider); ps != nil {
		ps.inflight.Dec()
	}
}

// Acquire calls TrackStart and returns a release func that calls TrackEnd.
// The release func is safe to call more than once; only the first call
// decrements the gauge.
//
//	release := tracker.Acquire("openai")
//	defer release()
func (t *Tracker) Acquire(provider string) func() {
	ps := t.lookup(provider)
	if ps == nil {
		return func() {}
	}
	ps.inflight.Inc()

	var once sync.Once
	return func() {
		once.Do(func() { ps.inflight.Dec() })
	}
}

// State returns the provider's counters as they would be seen by Check.
func (t *Tracker) State(provider string) (ProviderState, bool) {
	ps := t.lookup(provider)
	if ps == nil {
		return ProviderState{}, false
	}

	ps.mu.Lock()
	requests, tokens, windowStart := ps.windowCounters(t.clock.Now())
	limits := ps.limits
	ps.mu.Unlock()

	return ProviderState{
		RequestCount:    requests,
		TokenCount:      tokens,
		ConcurrentCount: ps.inflight.Current(),
		WindowStart:     windowStart,
		Limits:          limits,
	}, true
}

// windowCounters returns the effective window counters at now.
// The caller must hold ps.mu.
func (ps *providerState) windowCounters(now time.Time) (requests, tokens int64, windowStart time.Time) {
	if now.Sub(ps.windowStart) >= Window {
		return 0, 0, now
	}
	return ps.requestCount, ps.tokenCount, ps.windowStart
}

// Snapshot returns the window counters of every provider whose window is
// still open. In-flight counts are not included.
func (t *Tracker) Snapshot() []storage.QuotaState {
	now := t.clock.Now()

	t.mu.RLock()
	defer t.mu.RUnlock()

	states := make([]storage.QuotaState, 0, len(t.providers))
	for id, ps := range t.providers {
		ps.mu.Lock()
		if now.Sub(ps.windowStart) < Window && (ps.requestCount > 0 || ps.tokenCount > 0) {
			states = append(states, storage.QuotaState{
				Provider:     id,
				RequestCount: ps.requestCount,
				TokenCount:   ps.tokenCount,
				WindowStart:  ps.windowStart,
				UpdatedAt:    now,
			})
		}
		ps.mu.Unlock()
	}
	sort.Slice(states, func(i, j int) bool {
		return states[i].Provider < states[j].Provider
	})
	return states
}

// Restore loads window counters from a snapshot. Only configured providers
// whose snapshot window is still open are restored. Returns the number of
// providers restored.
func (t *Tracker) Restore(states []storage.QuotaState) int {
	now := t.clock.Now()
	restored := 0

	for _, s := range states {
		if now.Sub(s.WindowStart) >= Window || s.WindowStart.After(now) {
			continue
		}
		ps := t.lookup(s.Provider)
		if ps == nil {
			continue
		}

		ps.mu.Lock()
		ps.requestCount = max(s.RequestCount, 0)
		ps.tokenCount = max(s.TokenCount, 0)
		ps.windowStart = s.WindowStart
		ps.mu.Unlock()
		restored++
	}

	return restored
}

// SaveTo writes the current snapshot to a storage backend.
func (t *Tracker) SaveTo(ctx context.Context, backend storage.Backend) error {
	for _, s := range t.Snapshot() {
		state := s
		if err := backend.Save(ctx, &state); err != nil {
			return fmt.Errorf("failed to save quota for %s: %w", s.Provider, err)
		}
	}
	return nil
}

// LoadFrom restores window counters from a storage backend.
func (t *Tracker) LoadFrom(ctx context.Context, backend storage.Backend) (int, error) {
	states, err := backend.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list quota states: %w", err)
	}

	snapshot := make([]storage.QuotaState, 0, len(states))
	for _, s := range states {
		snapshot = append(snapshot, *s)
	}
	return t.Restore(snapshot), nil
}
