package config

import "time"

// Config is the root configuration structure for relay.
// It contains the provider roster, the fallback chain, recovery policy,
// health checking, quota persistence, and telemetry settings.
type Config struct {
	// Providers lists every backend the router may dispatch to.
	// Order matters: it is the registration order used to break priority ties.
	Providers []ProviderConfig `yaml:"providers"`

	// Routing contains the fallback chain and default target.
	Routing RoutingConfig `yaml:"routing"`

	// Recovery contains the default retry policy applied to providers that
	// do not carry their own retry block.
	Recovery RecoveryConfig `yaml:"recovery"`

	// Health contains provider health checking configuration.
	Health HealthConfig `yaml:"health"`

	// Limits contains quota persistence configuration.
	Limits LimitsConfig `yaml:"limits"`

	// Telemetry contains configuration for observability including logging,
	// metrics, and distributed tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ProviderConfig contains configuration for a single LLM provider.
type ProviderConfig struct {
	// ID is the unique provider identifier (e.g., "openai", "google").
	ID string `yaml:"id"`

	// Model is the model name requests are sent to.
	Model string `yaml:"model"`

	// BaseURL is the base URL for the provider's API endpoint.
	// It is also the target of HTTP health probes.
	// Example: "https://api.openai.com/v1"
	BaseURL string `yaml:"base_url"`

	// CredentialRef names the credential the connector should use.
	CredentialRef string `yaml:"credential_ref"`

	// APIKey is the authentication key for the provider.
	// This should typically be loaded from an environment variable.
	APIKey string `yaml:"api_key"`

	// ContextWindow is the model context window in tokens.
	ContextWindow int `yaml:"context_window"`

	// MaxOutputTokens caps completion length.
	MaxOutputTokens int `yaml:"max_output_tokens"`

	// Enabled controls whether the provider may appear in a chain.
	// A nil value means enabled.
	Enabled *bool `yaml:"enabled"`

	// Priority orders providers when listing; higher first.
	Priority int `yaml:"priority"`

	// AltCredential marks that an API key path exists when the primary
	// OAuth credential fails.
	AltCredential bool `yaml:"alt_credential"`

	// RateLimit contains the provider's quota. Zero fields are unlimited.
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	// Retry overrides the global recovery policy for this provider.
	Retry *RecoveryConfig `yaml:"retry"`
}

// IsEnabled reports whether the provider is enabled. Providers are enabled
// unless explicitly disabled.
func (p ProviderConfig) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

// RateLimitConfig contains per-minute quota settings for a provider.
type RateLimitConfig struct {
	// RequestsPerMinute caps requests per 60s window (0 = unlimited).
	RequestsPerMinute int64 `yaml:"requests_per_minute"`

	// TokensPerMinute caps tokens per 60s window (0 = unlimited).
	TokensPerMinute int64 `yaml:"tokens_per_minute"`

	// ConcurrentRequests caps in-flight requests (0 = unlimited).
	ConcurrentRequests int64 `yaml:"concurrent_requests"`
}

// RoutingConfig contains configuration for chain construction.
type RoutingConfig struct {
	// FallbackChain is the ordered list of provider IDs tried after the target.
	FallbackChain []string `yaml:"fallback_chain"`

	// DefaultProvider is the target used when none is given.
	DefaultProvider string `yaml:"default_provider"`
}

// RecoveryConfig contains retry policy settings.
type RecoveryConfig struct {
	// MaxRetries bounds recovery attempts per provider and operation.
	// Default: 3
	MaxRetries int `yaml:"max_retries"`

	// BaseDelay is the first retry delay.
	// Default: 1s
	BaseDelay time.Duration `yaml:"base_delay"`

	// MaxDelay caps the retry delay.
	// Default: 30s
	MaxDelay time.Duration `yaml:"max_delay"`

	// UseBackoff doubles the delay per attempt when true.
	// Default: true
	UseBackoff *bool `yaml:"use_backoff"`
}

// BackoffEnabled reports whether exponential backoff is on. Nil means on.
func (r RecoveryConfig) BackoffEnabled() bool {
	return r.UseBackoff == nil || *r.UseBackoff
}

// HealthConfig contains provider health check configuration.
type HealthConfig struct {
	// Enabled controls whether providers are probed in the background.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Interval is the time between probe sweeps.
	// Default: 30s
	Interval time.Duration `yaml:"interval"`

	// Schedule is a cron expression that overrides Interval when set.
	Schedule string `yaml:"schedule"`

	// Timeout bounds a single probe.
	// Default: 5s
	Timeout time.Duration `yaml:"timeout"`

	// DegradedAfter is the consecutive failure count that marks degraded.
	// Default: 1
	DegradedAfter int `yaml:"degraded_after"`

	// UnavailableAfter is the consecutive failure count that marks unavailable.
	// Default: 3
	UnavailableAfter int `yaml:"unavailable_after"`

	// ListenAddress serves liveness, readiness and version endpoints.
	// Default: "127.0.0.1:8081"
	ListenAddress string `yaml:"listen_address"`
}

// LimitsConfig contains quota persistence configuration.
type LimitsConfig struct {
	// Storage selects where quota windows are snapshotted.
	Storage LimitsStorageConfig `yaml:"storage"`
}

// LimitsStorageConfig contains quota snapshot storage settings.
type LimitsStorageConfig struct {
	// Backend selects the storage backend.
	// Options: "memory", "sqlite"
	// Default: "memory"
	Backend string `yaml:"backend"`

	// SQLitePath is the database file used by the sqlite backend.
	// Default: "data/quota.db"
	SQLitePath string `yaml:"sqlite_path"`

	// FlushInterval is how often open windows are written to storage.
	// Default: 10s
	FlushInterval time.Duration `yaml:"flush_interval"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// Redact masks API keys and bearer tokens in log attributes.
	// Default: true
	Redact *bool `yaml:"redact"`
}

// RedactEnabled reports whether credential redaction is on. Nil means on.
func (l LoggingConfig) RedactEnabled() bool {
	return l.Redact == nil || *l.Redact
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled *bool `yaml:"enabled"`

	// ListenAddress serves the Prometheus endpoint.
	// Default: "127.0.0.1:9090"
	ListenAddress string `yaml:"listen_address"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "relay"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: "router"
	Subsystem string `yaml:"subsystem"`

	// AttemptDurationBuckets defines histogram buckets for attempt latency (seconds).
	// Default: [0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0]
	AttemptDurationBuckets []float64 `yaml:"attempt_duration_buckets"`

	// TokenCountBuckets defines histogram buckets for tokens per response.
	// Default: [100, 500, 1000, 5000, 10000, 50000, 100000]
	TokenCountBuckets []float64 `yaml:"token_count_buckets"`
}

// MetricsEnabled reports whether metrics are on. Nil means on.
func (m MetricsConfig) MetricsEnabled() bool {
	return m.Enabled == nil || *m.Enabled
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Only used when Sampler is "ratio".
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// ServiceName is the service name in traces.
	// Default: "relay"
	ServiceName string `yaml:"service_name"`

	// Insecure disables TLS for the OTLP connection.
	// Default: false
	Insecure bool `yaml:"insecure"`

	// Timeout is the timeout for OTLP exports.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// Provider returns the provider with the given ID.
func (c *Config) Provider(id string) (ProviderConfig, bool) {
	for _, p := range c.Providers {
		if p.ID == id {
			return p, true
		}
	}
	return ProviderConfig{}, false
}
