package routing

import (
	"time"

	"switchboard-hq/relay/pkg/backend"
	"switchboard-hq/relay/pkg/limits/ratelimit"
)

// ProviderConfig is the registry entry for one provider.
type ProviderConfig struct {
	// ID is the provider identifier (e.g., "openai", "google").
	ID string

	// Model is the model name served by the provider.
	Model string

	// CredentialRef names the credential in the external credential store.
	CredentialRef string

	// ContextWindow and MaxOutputTokens are the provider's size limits.
	ContextWindow   int
	MaxOutputTokens int

	// Enabled marks the provider as usable. Disabled providers never appear
	// in a provider chain.
	Enabled bool

	// Priority breaks ties when listing providers; higher is preferred.
	Priority int

	// RateLimit holds the provider's quotas. Nil means unlimited.
	RateLimit *ratelimit.Limits

	// Retry overrides the router's default retry policy.
	Retry *RetryConfig

	// AltCredential marks that an API key path exists, which enables the
	// fallback_to_api_key recovery strategy.
	AltCredential bool
}

// RetryConfig is a per-provider retry policy.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	UseBackoff bool
}

// Response is the drained result of a successful Execute call.
type Response struct {
	// RequestID identifies the call in logs and traces.
	RequestID string

	// Provider is the provider that served the request.
	Provider string

	// Text is the concatenated text output.
	Text string

	// ToolCalls contains the tool calls emitted by the model.
	ToolCalls []backend.ToolCall

	// Usage is the token usage reported by the provider.
	Usage backend.Usage

	// Attempts is the number of backend calls made, including retries and
	// fallbacks.
	Attempts int

	// Degraded is true when the serving provider was marked degraded.
	Degraded bool
}

// ChainReport is a provider chain together with its degraded members.
type ChainReport struct {
	Chain    []string `json:"chain"`
	Degraded []string `json:"degraded,omitempty"`
}

// ProviderState is the inspection view of a provider's quota counters.
type ProviderState = ratelimit.ProviderState

// RoutingStats contains statistics about routing decisions.
// All counters are updated atomically for thread safety.
type RoutingStats struct {
	// TotalRequests is the total number of Execute and Stream calls.
	TotalRequests int64 `json:"total_requests"`

	// Succeeded is the number of calls served by some provider.
	Succeeded int64 `json:"succeeded"`

	// RequestsPerProvider tracks calls served by each provider.
	// Key: provider id, Value: request count
	RequestsPerProvider map[string]int64 `json:"requests_per_provider"`

	// RecoveryUseCount tracks how many times each recovery strategy ran.
	// Key: strategy name, Value: use count
	RecoveryUseCount map[string]int64 `json:"recovery_use_count"`

	// Fallbacks is the number of advances to the next chain member.
	Fallbacks int64 `json:"fallbacks"`

	// RateLimited is the number of local admission rejections.
	RateLimited int64 `json:"rate_limited"`

	// Errors is the total number of calls that ended in an error.
	Errors int64 `json:"errors"`

	// LastResetTime is when statistics were last reset.
	LastResetTime time.Time `json:"last_reset_time"`
}
