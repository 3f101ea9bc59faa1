package recovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"switchboard-hq/relay/pkg/backend"
	"switchboard-hq/relay/pkg/clock"
	"switchboard-hq/relay/pkg/failure"
)

// ErrNoCredentials is reported when a credential strategy runs without a
// credential store.
var ErrNoCredentials = errors.New("no credential store configured")

// Manager runs recovery and owns the attempt counters.
type Manager struct {
	mu       sync.Mutex
	attempts map[Key]int

	config      Config
	credentials Credentials
	clock       clock.Clock
}

// NewManager creates a recovery manager. Zero config fields take the package
// defaults. credentials may be nil, in which case refresh always cascades into
// clear_and_restart. A nil clock uses the wall clock.
func NewManager(cfg Config, credentials Credentials, clk clock.Clock) *Manager {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultBaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultMaxDelay
	}
	if clk == nil {
		clk = clock.Real()
	}
	return &Manager{
		attempts:    make(map[Key]int),
		config:      cfg,
		credentials: credentials,
		clock:       clk,
	}
}

// Config returns the manager's default retry policy.
func (m *Manager) Config() Config {
	return m.config
}

// Recover increments the attempt counter for the context's key, selects a
// strategy and executes it.
func (m *Manager) Recover(ctx context.Context, rc Context) Result {
	rc = m.withDefaults(rc)
	attempt := m.increment(rc.Key())

	strategy := SelectStrategy(rc.Kind, attempt, rc.MaxRetries, rc.HasAlternateAuth)

	slog.Debug("recovery strategy selected",
		"provider", rc.Provider,
		"operation", rc.Operation,
		"kind", rc.Kind,
		"attempt", attempt,
		"max_retries", rc.MaxRetries,
		"strategy", strategy,
	)

	result := m.Execute(ctx, strategy, rc, attempt)
	result.Attempt = attempt
	return result
}

// Execute runs a strategy for the given attempt number.
func (m *Manager) Execute(ctx context.Context, strategy Strategy, rc Context, attempt int) Result {
	switch strategy {
	case StrategyRetry:
		return m.retry(ctx, rc, attempt)
	case StrategyRefreshTokens:
		return m.refresh(ctx, rc)
	case StrategyClearAndRestart:
		return m.clearAndRestart(ctx, rc)
	case StrategyFallbackToAPIKey:
		return Result{
			Success:  true,
			Strategy: StrategyFallbackToAPIKey,
			Message:  fmt.Sprintf("Switching %s to API key authentication", rc.Provider),
		}
	case StrategyNoRecovery:
		return Result{
			Strategy:                 StrategyNoRecovery,
			Message:                  failure.UserMessage(rc.Kind),
			RequiresUserIntervention: true,
			UserActions:              UserActions(rc.Kind, rc.Provider),
			Error:                    errString(rc.Err),
		}
	default:
		return m.userIntervention(rc)
	}
}

func (m *Manager) retry(ctx context.Context, rc Context, attempt int) Result {
	delay := BackoffDelay(attempt, rc.BaseDelay, rc.MaxDelay, rc.UseBackoff)
	if rc.RetryAfter > delay {
		delay = min(rc.RetryAfter, rc.MaxDelay)
	}

	if delay > 0 {
		select {
		case <-m.clock.After(delay):
		case <-ctx.Done():
			return Result{
				Strategy:   StrategyRetry,
				Message:    "Retry cancelled",
				Error:      ctx.Err().Error(),
				RetryAfter: delay,
			}
		}
	}

	return Result{
		Success:    true,
		Strategy:   StrategyRetry,
		Message:    fmt.Sprintf("Retrying %s after %s", rc.Provider, delay),
		RetryAfter: delay,
	}
}

func (m *Manager) refresh(ctx context.Context, rc Context) Result {
	err := ErrNoCredentials
	if m.credentials != nil {
		err = m.credentials.Refresh(ctx, rc.Provider)
	}
	if err == nil {
		slog.Info("credentials refreshed", "provider", rc.Provider)
		return Result{
			Success:  true,
			Strategy: StrategyRefreshTokens,
			Message:  fmt.Sprintf("Refreshed credentials for %s", rc.Provider),
		}
	}

	slog.Warn("credential refresh failed, clearing credentials",
		"provider", rc.Provider,
		"error", err,
	)

	cascaded := rc
	cascaded.Kind = failure.Classify(err)
	if !cascaded.Kind.Credential() {
		cascaded.Kind = backend.KindRefreshTokenInvalid
	}
	cascaded.Err = err
	return m.clearAndRestart(ctx, cascaded)
}

func (m *Manager) clearAndRestart(ctx context.Context, rc Context) Result {
	result := Result{
		Strategy:                 StrategyClearAndRestart,
		Message:                  fmt.Sprintf("%s Stored credentials for %s were cleared.", failure.UserMessage(rc.Kind), rc.Provider),
		RequiresUserIntervention: true,
		UserActions:              UserActions(rc.Kind, rc.Provider),
		Error:                    errString(rc.Err),
	}

	if m.credentials != nil {
		if err := m.credentials.Clear(ctx, rc.Provider); err != nil {
			slog.Error("failed to clear credentials",
				"provider", rc.Provider,
				"error", err,
			)
			result.Message = fmt.Sprintf("%s Stored credentials for %s could not be cleared.", failure.UserMessage(rc.Kind), rc.Provider)
		}
	}

	return result
}

func (m *Manager) userIntervention(rc Context) Result {
	return Result{
		Strategy:                 StrategyUserIntervention,
		Message:                  failure.UserMessage(rc.Kind),
		RequiresUserIntervention: true,
		UserActions:              UserActions(rc.Kind, rc.Provider),
		Error:                    errString(rc.Err),
	}
}

func (m *Manager) withDefaults(rc Context) Context {
	if rc.MaxRetries <= 0 {
		rc.MaxRetries = m.config.MaxRetries
	}
	if rc.BaseDelay <= 0 {
		rc.BaseDelay = m.config.BaseDelay
	}
	if rc.MaxDelay <= 0 {
		rc.MaxDelay = m.config.MaxDelay
	}
	return rc
}

func (m *Manager) increment(key Key) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts[key]++
	return m.attempts[key]
}

// Attempts returns the current attempt count for a key.
func (m *Manager) Attempts(key Key) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts[key]
}

// Succeeded clears the attempt count for a key after a successful request.
func (m *Manager) Succeeded(key Key) {
	m.Reset(key)
}

// Reset clears the attempt count for a key.
func (m *Manager) Reset(key Key) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.attempts, key)
}

// ResetProvider clears every attempt count for a provider.
func (m *Manager) ResetProvider(provider string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.attempts {
		if key.Provider == provider {
			delete(m.attempts, key)
		}
	}
}

// ResetAll clears every attempt count.
func (m *Manager) ResetAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts = make(map[Key]int)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
