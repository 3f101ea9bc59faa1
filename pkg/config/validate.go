package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "health.interval").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. All validation errors are collected and
// returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateProviders(cfg.Providers)...)
	errs = append(errs, validateRouting(&cfg.Routing, cfg.Providers)...)
	errs = append(errs, validateRecovery("recovery", &cfg.Recovery)...)
	errs = append(errs, validateHealth(&cfg.Health)...)
	errs = append(errs, validateLimits(&cfg.Limits)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

func validateProviders(providers []ProviderConfig) []FieldError {
	var errs []FieldError

	if len(providers) == 0 {
		return append(errs, FieldError{
			Field:   "providers",
			Message: "at least one provider must be configured",
		})
	}

	seen := make(map[string]bool, len(providers))
	for i, p := range providers {
		prefix := fmt.Sprintf("providers[%d]", i)

		if p.ID == "" {
			errs = append(errs, FieldError{Field: prefix + ".id", Message: "provider id is required"})
		} else if seen[p.ID] {
			errs = append(errs, FieldError{Field: prefix + ".id", Message: fmt.Sprintf("duplicate provider id %q", p.ID)})
		}
		seen[p.ID] = true

		if p.BaseURL != "" {
			if u, err := url.Parse(p.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
				errs = append(errs, FieldError{Field: prefix + ".base_url", Message: "invalid URL format"})
			}
		}

		if p.ContextWindow < 0 {
			errs = append(errs, FieldError{Field: prefix + ".context_window", Message: "must be non-negative"})
		}
		if p.MaxOutputTokens < 0 {
			errs = append(errs, FieldError{Field: prefix + ".max_output_tokens", Message: "must be non-negative"})
		}

		rl := p.RateLimit
		if rl.RequestsPerMinute < 0 {
			errs = append(errs, FieldError{Field: prefix + ".rate_limit.requests_per_minute", Message: "must be non-negative"})
		}
		if rl.TokensPerMinute < 0 {
			errs = append(errs, FieldError{Field: prefix + ".rate_limit.tokens_per_minute", Message: "must be non-negative"})
		}
		if rl.ConcurrentRequests < 0 {
			errs = append(errs, FieldError{Field: prefix + ".rate_limit.concurrent_requests", Message: "must be non-negative"})
		}

		if p.Retry != nil {
			errs = append(errs, validateRecovery(prefix+".retry", p.Retry)...)
		}
	}

	return errs
}

func validateRouting(cfg *RoutingConfig, providers []ProviderConfig) []FieldError {
	var errs []FieldError

	known := make(map[string]bool, len(providers))
	for _, p := range providers {
		known[p.ID] = true
	}

	seen := make(map[string]bool, len(cfg.FallbackChain))
	for i, id := range cfg.FallbackChain {
		field := fmt.Sprintf("routing.fallback_chain[%d]", i)
		if !known[id] {
			errs = append(errs, FieldError{Field: field, Message: fmt.Sprintf("unknown provider %q", id)})
		}
		if seen[id] {
			errs = append(errs, FieldError{Field: field, Message: fmt.Sprintf("provider %q listed twice", id)})
		}
		seen[id] = true
	}

	if cfg.DefaultProvider != "" && !known[cfg.DefaultProvider] {
		errs = append(errs, FieldError{
			Field:   "routing.default_provider",
			Message: fmt.Sprintf("unknown provider %q", cfg.DefaultProvider),
		})
	}

	return errs
}

func validateRecovery(prefix string, cfg *RecoveryConfig) []FieldError {
	var errs []FieldError

	if cfg.MaxRetries < 0 {
		errs = append(errs, FieldError{Field: prefix + ".max_retries", Message: "max retries must be non-negative"})
	}
	if cfg.MaxRetries > 10 {
		errs = append(errs, FieldError{Field: prefix + ".max_retries", Message: "max retries exceeds reasonable limit (10)"})
	}
	if cfg.BaseDelay < 0 {
		errs = append(errs, FieldError{Field: prefix + ".base_delay", Message: "must be non-negative"})
	}
	if cfg.MaxDelay < 0 {
		errs = append(errs, FieldError{Field: prefix + ".max_delay", Message: "must be non-negative"})
	}
	if cfg.MaxDelay > 0 && cfg.BaseDelay > cfg.MaxDelay {
		errs = append(errs, FieldError{Field: prefix + ".base_delay", Message: "must not exceed max_delay"})
	}

	return errs
}

func validateHealth(cfg *HealthConfig) []FieldError {
	var errs []FieldError

	if cfg.Interval < 0 {
		errs = append(errs, FieldError{Field: "health.interval", Message: "must be positive"})
	}
	if cfg.Timeout < 0 {
		errs = append(errs, FieldError{Field: "health.timeout", Message: "must be positive"})
	}
	if cfg.Schedule != "" {
		if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
			errs = append(errs, FieldError{Field: "health.schedule", Message: fmt.Sprintf("invalid cron expression: %v", err)})
		}
	}
	if cfg.DegradedAfter < 1 {
		errs = append(errs, FieldError{Field: "health.degraded_after", Message: "must be at least 1"})
	}
	if cfg.UnavailableAfter < cfg.DegradedAfter {
		errs = append(errs, FieldError{Field: "health.unavailable_after", Message: "must be at least degraded_after"})
	}

	return errs
}

func validateLimits(cfg *LimitsConfig) []FieldError {
	var errs []FieldError

	switch cfg.Storage.Backend {
	case "memory":
	case "sqlite":
		if cfg.Storage.SQLitePath == "" {
			errs = append(errs, FieldError{Field: "limits.storage.sqlite_path", Message: "required for sqlite backend"})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "limits.storage.backend",
			Message: fmt.Sprintf("invalid backend %q (must be memory or sqlite)", cfg.Storage.Backend),
		})
	}
	if cfg.Storage.FlushInterval < 0 {
		errs = append(errs, FieldError{Field: "limits.storage.flush_interval", Message: "must be positive"})
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid log level %q (must be debug, info, warn or error)", cfg.Logging.Level),
		})
	}

	switch cfg.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid log format %q (must be json or text)", cfg.Logging.Format),
		})
	}

	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{Field: "telemetry.metrics.path", Message: "must start with /"})
	}

	switch cfg.Tracing.Sampler {
	case "always", "never", "ratio":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sampler",
			Message: fmt.Sprintf("invalid sampler %q (must be always, never or ratio)", cfg.Tracing.Sampler),
		})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		errs = append(errs, FieldError{Field: "telemetry.tracing.sample_ratio", Message: "must be between 0.0 and 1.0"})
	}
	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{Field: "telemetry.tracing.endpoint", Message: "required when tracing is enabled"})
	}

	return errs
}
