package health

import (
	"context"
	"time"
)

// Status is a provider health status.
type Status string

// Provider health statuses.
const (
	StatusHealthy     Status = "healthy"
	StatusDegraded    Status = "degraded"
	StatusUnavailable Status = "unavailable"
)

// ProviderHealth is the health record of one provider.
type ProviderHealth struct {
	Provider            string        `json:"provider"`
	Status              Status        `json:"status"`
	LastCheckedAt       time.Time     `json:"last_checked_at,omitempty"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
	LastError           string        `json:"last_error,omitempty"`
	Latency             time.Duration `json:"latency_ns,omitempty"`
}

// Probe checks a single provider. It returns nil if the provider is reachable.
type Probe func(ctx context.Context, provider string) error

// Config configures the health monitor.
type Config struct {
	// Enabled turns health checking on. When false every provider is eligible.
	Enabled bool `yaml:"enabled"`

	// Interval between probe sweeps. Default: 30 seconds
	Interval time.Duration `yaml:"interval"`

	// Schedule is a cron expression that overrides Interval when set.
	Schedule string `yaml:"schedule"`

	// Timeout bounds each individual probe. Default: 5 seconds
	Timeout time.Duration `yaml:"timeout"`

	// DegradedAfter is the number of consecutive failures that mark a provider
	// degraded. Default: 1
	DegradedAfter int `yaml:"degraded_after"`

	// UnavailableAfter is the number of consecutive failures that mark a
	// provider unavailable. Default: 3
	UnavailableAfter int `yaml:"unavailable_after"`
}

// Default configuration values.
const (
	DefaultInterval         = 30 * time.Second
	DefaultTimeout          = 5 * time.Second
	DefaultDegradedAfter    = 1
	DefaultUnavailableAfter = 3
)

// ApplyDefaults fills zero fields with defaults.
func (c *Config) ApplyDefaults() {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.DegradedAfter <= 0 {
		c.DegradedAfter = DefaultDegradedAfter
	}
	if c.UnavailableAfter <= 0 {
		c.UnavailableAfter = DefaultUnavailableAfter
	}
	if c.UnavailableAfter < c.DegradedAfter {
		c.UnavailableAfter = c.DegradedAfter
	}
}

// spec returns the cron spec for the sweep.
func (c Config) spec() string {
	if c.Schedule != "" {
		return c.Schedule
	}
	return "@every " + c.Interval.String()
}
