package config

import "time"

// Default values for configuration fields.
const (
	// Recovery defaults
	DefaultMaxRetries = 3
	DefaultBaseDelay  = 1 * time.Second
	DefaultMaxDelay   = 30 * time.Second

	// Health defaults
	DefaultHealthInterval         = 30 * time.Second
	DefaultHealthTimeout          = 5 * time.Second
	DefaultHealthDegradedAfter    = 1
	DefaultHealthUnavailableAfter = 3
	DefaultHealthListenAddress    = "127.0.0.1:8081"

	// Limits storage defaults
	DefaultLimitsStorageBackend = "memory"
	DefaultLimitsSQLitePath     = "data/quota.db"
	DefaultLimitsFlushInterval  = 10 * time.Second

	// Telemetry defaults
	DefaultLoggingLevel         = "info"
	DefaultLoggingFormat        = "json"
	DefaultMetricsListenAddress = "127.0.0.1:9090"
	DefaultPrometheusPath       = "/metrics"
	DefaultMetricsNamespace     = "relay"
	DefaultMetricsSubsystem     = "router"
	DefaultTracingSampler       = "ratio"
	DefaultTracingSampleRatio   = 1.0
	DefaultTracingEndpoint      = "localhost:4317"
	DefaultTracingServiceName   = "relay"
	DefaultTracingExportTimeout = 10 * time.Second
)

var (
	// DefaultAttemptDurationBuckets are histogram buckets for attempt latency in seconds.
	DefaultAttemptDurationBuckets = []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0}

	// DefaultTokenCountBuckets are histogram buckets for tokens per response.
	DefaultTokenCountBuckets = []float64{100, 500, 1000, 5000, 10000, 50000, 100000}
)

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	applyRecoveryDefaults(&cfg.Recovery)
	for i := range cfg.Providers {
		if r := cfg.Providers[i].Retry; r != nil {
			inheritRecovery(r, &cfg.Recovery)
		}
	}

	// Health defaults
	if cfg.Health.Interval == 0 {
		cfg.Health.Interval = DefaultHealthInterval
	}
	if cfg.Health.Timeout == 0 {
		cfg.Health.Timeout = DefaultHealthTimeout
	}
	if cfg.Health.DegradedAfter == 0 {
		cfg.Health.DegradedAfter = DefaultHealthDegradedAfter
	}
	if cfg.Health.UnavailableAfter == 0 {
		cfg.Health.UnavailableAfter = DefaultHealthUnavailableAfter
	}
	if cfg.Health.ListenAddress == "" {
		cfg.Health.ListenAddress = DefaultHealthListenAddress
	}

	// Limits storage defaults
	if cfg.Limits.Storage.Backend == "" {
		cfg.Limits.Storage.Backend = DefaultLimitsStorageBackend
	}
	if cfg.Limits.Storage.SQLitePath == "" {
		cfg.Limits.Storage.SQLitePath = DefaultLimitsSQLitePath
	}
	if cfg.Limits.Storage.FlushInterval == 0 {
		cfg.Limits.Storage.FlushInterval = DefaultLimitsFlushInterval
	}

	// Routing defaults
	if cfg.Routing.DefaultProvider == "" {
		cfg.Routing.DefaultProvider = defaultProvider(cfg)
	}

	applyTelemetryDefaults(&cfg.Telemetry)
}

// defaultProvider picks the head of the fallback chain, or the first enabled
// provider in file order when no chain is set.
func defaultProvider(cfg *Config) string {
	if len(cfg.Routing.FallbackChain) > 0 {
		return cfg.Routing.FallbackChain[0]
	}
	for _, p := range cfg.Providers {
		if p.IsEnabled() {
			return p.ID
		}
	}
	return ""
}

func applyRecoveryDefaults(r *RecoveryConfig) {
	if r.MaxRetries == 0 {
		r.MaxRetries = DefaultMaxRetries
	}
	if r.BaseDelay == 0 {
		r.BaseDelay = DefaultBaseDelay
	}
	if r.MaxDelay == 0 {
		r.MaxDelay = DefaultMaxDelay
	}
}

// inheritRecovery fills unset provider retry fields from the global policy.
func inheritRecovery(r *RecoveryConfig, global *RecoveryConfig) {
	if r.MaxRetries == 0 {
		r.MaxRetries = global.MaxRetries
	}
	if r.BaseDelay == 0 {
		r.BaseDelay = global.BaseDelay
	}
	if r.MaxDelay == 0 {
		r.MaxDelay = global.MaxDelay
	}
	if r.UseBackoff == nil {
		r.UseBackoff = global.UseBackoff
	}
}

func applyTelemetryDefaults(t *TelemetryConfig) {
	if t.Logging.Level == "" {
		t.Logging.Level = DefaultLoggingLevel
	}
	if t.Logging.Format == "" {
		t.Logging.Format = DefaultLoggingFormat
	}

	if t.Metrics.ListenAddress == "" {
		t.Metrics.ListenAddress = DefaultMetricsListenAddress
	}
	if t.Metrics.Path == "" {
		t.Metrics.Path = DefaultPrometheusPath
	}
	if t.Metrics.Namespace == "" {
		t.Metrics.Namespace = DefaultMetricsNamespace
	}
	if t.Metrics.Subsystem == "" {
		t.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if len(t.Metrics.AttemptDurationBuckets) == 0 {
		t.Metrics.AttemptDurationBuckets = append([]float64(nil), DefaultAttemptDurationBuckets...)
	}
	if len(t.Metrics.TokenCountBuckets) == 0 {
		t.Metrics.TokenCountBuckets = append([]float64(nil), DefaultTokenCountBuckets...)
	}

	if t.Tracing.Sampler == "" {
		t.Tracing.Sampler = DefaultTracingSampler
	}
	if t.Tracing.SampleRatio == 0 {
		t.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if t.Tracing.Endpoint == "" {
		t.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if t.Tracing.ServiceName == "" {
		t.Tracing.ServiceName = DefaultTracingServiceName
	}
	if t.Tracing.Timeout == 0 {
		t.Tracing.Timeout = DefaultTracingExportTimeout
	}
}
