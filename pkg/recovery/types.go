package recovery

import (
	"context"
	"time"

	"switchboard-hq/relay/pkg/backend"
)

// Strategy names a recovery action.
type Strategy string

// Recovery strategies.
const (
	StrategyRetry            Strategy = "retry"
	StrategyRefreshTokens    Strategy = "refresh_tokens"
	StrategyClearAndRestart  Strategy = "clear_and_restart"
	StrategyFallbackToAPIKey Strategy = "fallback_to_api_key"
	StrategyUserIntervention Strategy = "user_intervention"
	StrategyNoRecovery       Strategy = "no_recovery"
)

// Key identifies an attempt counter.
type Key struct {
	Provider  string
	Operation string
}

// Context describes a failure to recover from.
type Context struct {
	Provider  string
	Operation string
	Kind      backend.ErrorKind
	Err       error

	// MaxRetries, BaseDelay and MaxDelay override the manager defaults when
	// non-zero.
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	UseBackoff bool

	// HasAlternateAuth marks that an API key path exists for the provider.
	HasAlternateAuth bool

	// RetryAfter is a vendor supplied minimum wait, honoured up to MaxDelay.
	RetryAfter time.Duration
}

// Key returns the attempt counter key for the context.
func (rc Context) Key() Key {
	return Key{Provider: rc.Provider, Operation: rc.Operation}
}

// Result is the outcome of one recovery invocation.
type Result struct {
	Success                  bool     `json:"success"`
	Strategy                 Strategy `json:"strategy"`
	Message                  string   `json:"message"`
	RequiresUserIntervention bool     `json:"requiresUserIntervention"`
	UserActions              []string `json:"userActions,omitempty"`
	Error                    string   `json:"error,omitempty"`

	// RetryAfter is the delay that was waited before a retry.
	RetryAfter time.Duration `json:"-"`

	// Attempt is the attempt number this result belongs to.
	Attempt int `json:"-"`
}

// Credentials is the credential store the refresh and clear strategies act on.
type Credentials interface {
	Refresh(ctx context.Context, provider string) error
	Clear(ctx context.Context, provider string) error
}

// Config holds the default retry policy.
type Config struct {
	MaxRetries int           `yaml:"max_retries"`
	BaseDelay  time.Duration `yaml:"base_delay"`
	MaxDelay   time.Duration `yaml:"max_delay"`
	UseBackoff bool          `yaml:"use_backoff"`
}

// Default retry policy values.
const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = time.Second
	DefaultMaxDelay   = 30 * time.Second
)

// DefaultConfig returns the default retry policy.
func DefaultConfig() Config {
	return Config{
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  DefaultBaseDelay,
		MaxDelay:   DefaultMaxDelay,
		UseBackoff: true,
	}
}
