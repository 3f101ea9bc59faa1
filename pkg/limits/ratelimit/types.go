package ratelimit

import "time"

// Window is the length of the fixed accounting window for per-minute quotas.
const Window = 60 * time.Second

// Limits configures the quotas for a single provider.
// Zero values mean the dimension is unlimited.
type Limits struct {
	// RequestsPerMinute limits committed requests per window.
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute,omitempty"`

	// TokensPerMinute limits committed tokens (prompt+completion) per window.
	TokensPerMinute int `yaml:"tokens_per_minute" json:"tokens_per_minute,omitempty"`

	// ConcurrentRequests limits simultaneous in-flight requests.
	ConcurrentRequests int `yaml:"concurrent_requests" json:"concurrent_requests,omitempty"`
}

// Unlimited reports whether no dimension is configured.
func (l *Limits) Unlimited() bool {
	return l == nil || (l.RequestsPerMinute <= 0 && l.TokensPerMinute <= 0 && l.ConcurrentRequests <= 0)
}

// Dimension identifies a quota dimension.
type Dimension string

const (
	// DimensionRequests is the requests-per-minute counter.
	DimensionRequests Dimension = "requests"

	// DimensionTokens is the tokens-per-minute counter.
	DimensionTokens Dimension = "tokens"

	// DimensionConcurrency is the in-flight gauge. It is only reported by
	// Evaluate; use TrackStart/TrackEnd to change it.
	DimensionConcurrency Dimension = "concurrency"
)

// ProviderState is a point-in-time view of a provider's counters.
type ProviderState struct {
	RequestCount    int64     `json:"request_count"`
	TokenCount      int64     `json:"token_count"`
	ConcurrentCount int64     `json:"concurrent_count"`
	WindowStart     time.Time `json:"window_start"`
	Limits          Limits    `json:"limits"`
}

// CheckResult contains the result of an admission check.
type CheckResult struct {
	// Allowed indicates if the request is permitted.
	Allowed bool

	// Dimension is the quota that rejected the request (if Allowed=false).
	Dimension Dimension

	// Limit is the configured limit value of the rejecting dimension.
	Limit int64

	// Current is the counter value of the rejecting dimension.
	Current int64

	// RetryAfter suggests how long to wait before the window resets.
	// Zero for concurrency rejections.
	RetryAfter time.Duration
}
