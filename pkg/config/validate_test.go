package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := &Config{
		Providers: []ProviderConfig{
			{ID: "openai", BaseURL: "https://api.openai.com/v1"},
			{ID: "google"},
		},
		Routing: RoutingConfig{FallbackChain: []string{"openai", "google"}},
	}
	ApplyDefaults(cfg)
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{
			name:   "valid",
			mutate: func(*Config) {},
		},
		{
			name:      "no providers",
			mutate:    func(c *Config) { c.Providers = nil; c.Routing = RoutingConfig{} },
			wantField: "providers",
		},
		{
			name:      "missing id",
			mutate:    func(c *Config) { c.Providers[1].ID = "" },
			wantField: "providers[1].id",
		},
		{
			name:      "duplicate id",
			mutate:    func(c *Config) { c.Providers[1].ID = "openai" },
			wantField: "providers[1].id",
		},
		{
			name:      "bad base url",
			mutate:    func(c *Config) { c.Providers[0].BaseURL = "not a url" },
			wantField: "providers[0].base_url",
		},
		{
			name:      "negative rpm",
			mutate:    func(c *Config) { c.Providers[0].RateLimit.RequestsPerMinute = -1 },
			wantField: "providers[0].rate_limit.requests_per_minute",
		},
		{
			name:      "unknown provider in chain",
			mutate:    func(c *Config) { c.Routing.FallbackChain = append(c.Routing.FallbackChain, "anthropic") },
			wantField: "routing.fallback_chain[2]",
		},
		{
			name:      "duplicate chain entry",
			mutate:    func(c *Config) { c.Routing.FallbackChain = []string{"openai", "openai"} },
			wantField: "routing.fallback_chain[1]",
		},
		{
			name:      "unknown default provider",
			mutate:    func(c *Config) { c.Routing.DefaultProvider = "mistral" },
			wantField: "routing.default_provider",
		},
		{
			name:      "too many retries",
			mutate:    func(c *Config) { c.Recovery.MaxRetries = 11 },
			wantField: "recovery.max_retries",
		},
		{
			name:      "base delay above max",
			mutate:    func(c *Config) { c.Recovery.BaseDelay = time.Minute },
			wantField: "recovery.base_delay",
		},
		{
			name:      "provider retry validated",
			mutate:    func(c *Config) { c.Providers[0].Retry = &RecoveryConfig{MaxRetries: -1} },
			wantField: "providers[0].retry.max_retries",
		},
		{
			name:      "bad cron schedule",
			mutate:    func(c *Config) { c.Health.Schedule = "every tuesday" },
			wantField: "health.schedule",
		},
		{
			name:      "unavailable below degraded",
			mutate:    func(c *Config) { c.Health.DegradedAfter = 4 },
			wantField: "health.unavailable_after",
		},
		{
			name:      "unknown storage backend",
			mutate:    func(c *Config) { c.Limits.Storage.Backend = "redis" },
			wantField: "limits.storage.backend",
		},
		{
			name:      "sqlite without path",
			mutate:    func(c *Config) { c.Limits.Storage.Backend = "sqlite"; c.Limits.Storage.SQLitePath = "" },
			wantField: "limits.storage.sqlite_path",
		},
		{
			name:      "bad log level",
			mutate:    func(c *Config) { c.Telemetry.Logging.Level = "trace" },
			wantField: "telemetry.logging.level",
		},
		{
			name:      "metrics path without slash",
			mutate:    func(c *Config) { c.Telemetry.Metrics.Path = "metrics" },
			wantField: "telemetry.metrics.path",
		},
		{
			name:      "bad sampler",
			mutate:    func(c *Config) { c.Telemetry.Tracing.Sampler = "sometimes" },
			wantField: "telemetry.tracing.sampler",
		},
		{
			name:      "sample ratio out of range",
			mutate:    func(c *Config) { c.Telemetry.Tracing.SampleRatio = 1.5 },
			wantField: "telemetry.tracing.sample_ratio",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Expected no error, got %v", err)
				}
				return
			}

			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Expected ValidationError, got %v", err)
			}
			found := false
			for _, fe := range verr.Errors {
				if fe.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("Expected error on field %s, got %v", tt.wantField, verr.Errors)
			}
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	single := ValidationError{Errors: []FieldError{{Field: "a", Message: "bad"}}}
	if single.Error() != "configuration validation failed: a: bad" {
		t.Errorf("Unexpected single error text: %q", single.Error())
	}

	multi := ValidationError{Errors: []FieldError{{Field: "a", Message: "bad"}, {Field: "b", Message: "worse"}}}
	if !strings.Contains(multi.Error(), "2 errors") {
		t.Errorf("Expected error count in message, got %q", multi.Error())
	}
}
