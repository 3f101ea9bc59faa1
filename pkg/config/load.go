package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix shared by every environment override.
const EnvPrefix = "RELAY_"

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// Environment variables are not consulted; use LoadConfigWithEnvOverrides
// for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML and applies defaults without validating.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(&cfg)
	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention RELAY_SECTION_FIELD (e.g., RELAY_HEALTH_INTERVAL).
// Environment variables always take precedence over file-based configuration.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	applyEnvOverrides(cfg, os.Getenv)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config, getenv func(string) string) {
	env := func(name string) string { return getenv(EnvPrefix + name) }

	for i := range cfg.Providers {
		applyProviderEnvOverrides(&cfg.Providers[i], env)
	}

	// Routing overrides
	if val := env("ROUTING_FALLBACK_CHAIN"); val != "" {
		cfg.Routing.FallbackChain = splitList(val)
	}
	if val := env("ROUTING_DEFAULT_PROVIDER"); val != "" {
		cfg.Routing.DefaultProvider = val
	}

	// Recovery overrides
	setInt(env("RECOVERY_MAX_RETRIES"), &cfg.Recovery.MaxRetries)
	setDuration(env("RECOVERY_BASE_DELAY"), &cfg.Recovery.BaseDelay)
	setDuration(env("RECOVERY_MAX_DELAY"), &cfg.Recovery.MaxDelay)
	if val := env("RECOVERY_USE_BACKOFF"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Recovery.UseBackoff = &b
		}
	}

	// Health overrides
	setBool(env("HEALTH_ENABLED"), &cfg.Health.Enabled)
	setDuration(env("HEALTH_INTERVAL"), &cfg.Health.Interval)
	if val := env("HEALTH_SCHEDULE"); val != "" {
		cfg.Health.Schedule = val
	}
	setDuration(env("HEALTH_TIMEOUT"), &cfg.Health.Timeout)
	if val := env("HEALTH_LISTEN_ADDRESS"); val != "" {
		cfg.Health.ListenAddress = val
	}

	// Limits overrides
	if val := env("LIMITS_STORAGE_BACKEND"); val != "" {
		cfg.Limits.Storage.Backend = val
	}
	if val := env("LIMITS_STORAGE_SQLITE_PATH"); val != "" {
		cfg.Limits.Storage.SQLitePath = val
	}
	setDuration(env("LIMITS_STORAGE_FLUSH_INTERVAL"), &cfg.Limits.Storage.FlushInterval)

	// Telemetry overrides
	if val := env("TELEMETRY_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := env("TELEMETRY_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := env("TELEMETRY_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = &b
		}
	}
	if val := env("TELEMETRY_METRICS_LISTEN_ADDRESS"); val != "" {
		cfg.Telemetry.Metrics.ListenAddress = val
	}
	if val := env("TELEMETRY_METRICS_PATH"); val != "" {
		cfg.Telemetry.Metrics.Path = val
	}
	setBool(env("TELEMETRY_TRACING_ENABLED"), &cfg.Telemetry.Tracing.Enabled)
	if val := env("TELEMETRY_TRACING_ENDPOINT"); val != "" {
		cfg.Telemetry.Tracing.Endpoint = val
	}
	if val := env("TELEMETRY_TRACING_SAMPLER"); val != "" {
		cfg.Telemetry.Tracing.Sampler = val
	}
	if val := env("TELEMETRY_TRACING_SAMPLE_RATIO"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Telemetry.Tracing.SampleRatio = f
		}
	}
}

// applyProviderEnvOverrides applies overrides for one provider.
// A provider "google-vertex" reads RELAY_PROVIDERS_GOOGLE_VERTEX_API_KEY.
func applyProviderEnvOverrides(p *ProviderConfig, env func(string) string) {
	prefix := "PROVIDERS_" + envName(p.ID) + "_"

	if val := env(prefix + "API_KEY"); val != "" {
		p.APIKey = val
	}
	if val := env(prefix + "BASE_URL"); val != "" {
		p.BaseURL = val
	}
	if val := env(prefix + "MODEL"); val != "" {
		p.Model = val
	}
	if val := env(prefix + "ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			p.Enabled = &b
		}
	}
	setInt(env(prefix+"PRIORITY"), &p.Priority)
	setInt64(env(prefix+"REQUESTS_PER_MINUTE"), &p.RateLimit.RequestsPerMinute)
	setInt64(env(prefix+"TOKENS_PER_MINUTE"), &p.RateLimit.TokensPerMinute)
	setInt64(env(prefix+"CONCURRENT_REQUESTS"), &p.RateLimit.ConcurrentRequests)
}

func envName(id string) string {
	return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(id))
}

func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func setInt(val string, dst *int) {
	if val == "" {
		return
	}
	if i, err := strconv.Atoi(val); err == nil {
		*dst = i
	}
}

func setInt64(val string, dst *int64) {
	if val == "" {
		return
	}
	if i, err := strconv.ParseInt(val, 10, 64); err == nil {
		*dst = i
	}
}

func setBool(val string, dst *bool) {
	if val == "" {
		return
	}
	if b, err := strconv.ParseBool(val); err == nil {
		*dst = b
	}
}

func setDuration(val string, dst *time.Duration) {
	if val == "" {
		return
	}
	if d, err := time.ParseDuration(val); err == nil {
		*dst = d
	}
}
