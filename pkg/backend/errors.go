package backend

import (
	"fmt"
	"time"
)

// ProviderError represents a general vendor error.
// Connectors fill in whatever the vendor returned; the failure classifier
// reads StatusCode, Status, Type and Code in addition to the message.
type ProviderError struct {
	// Provider is the name of the provider that returned the error
	Provider string

	// StatusCode is the HTTP status code (0 if not applicable)
	StatusCode int

	// Status is the vendor status string (e.g., "RESOURCE_EXHAUSTED", "UNAVAILABLE")
	Status string

	// Type is the vendor error type (e.g., "overloaded_error", "invalid_request_error")
	Type string

	// Code is the vendor error code (e.g., "invalid_grant", "rate_limit_exceeded")
	Code string

	// Message is the error message
	Message string

	// Cause is the underlying error (if any)
	Cause error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider %q error (status %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider %q error: %s", e.Provider, e.Message)
}

// Unwrap returns the underlying error for error chain support.
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// AuthError represents an authentication or authorization failure.
type AuthError struct {
	// Provider is the name of the provider that rejected authentication
	Provider string

	// Code is the OAuth/vendor error code (e.g., "invalid_grant", "access_denied")
	Code string

	// Refresh is true when the failure came from a token refresh exchange
	Refresh bool

	// Message is the error message from the provider
	Message string
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("provider %q authentication failed (%s): %s", e.Provider, e.Code, e.Message)
	}
	return fmt.Sprintf("provider %q authentication failed: %s", e.Provider, e.Message)
}

// RateLimitError represents a rate limit exceeded error (HTTP 429).
// It includes the retry-after duration if provided by the provider.
type RateLimitError struct {
	// Provider is the name of the provider that rate limited the request
	Provider string

	// RetryAfter is the duration to wait before retrying (if provided)
	RetryAfter time.Duration

	// Message is the error message from the provider
	Message string
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("provider %q rate limit exceeded (retry after %s): %s",
			e.Provider, e.RetryAfter, e.Message)
	}
	return fmt.Sprintf("provider %q rate limit exceeded: %s", e.Provider, e.Message)
}

// TimeoutError represents a request timeout.
type TimeoutError struct {
	// Provider is the name of the provider where the timeout occurred
	Provider string

	// After is the configured timeout duration
	After time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("provider %q request timeout after %s", e.Provider, e.After)
}

// Timeout reports true so wrappers such as *url.Error see a timeout.
func (e *TimeoutError) Timeout() bool { return true }

// ConfigError represents a provider configuration error.
type ConfigError struct {
	// Provider is the name of the provider with invalid configuration
	Provider string

	// Field is the configuration field that is invalid
	Field string

	// Message describes the configuration error
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("provider %q configuration error for field %q: %s",
		e.Provider, e.Field, e.Message)
}

// StreamError represents an error event received on a generation stream.
type StreamError struct {
	// Code is the error code carried by the event
	Code string

	// Message is the error message
	Message string

	// Cause is the connector's original error, when available
	Cause error
}

// Error implements the error interface.
func (e *StreamError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("stream error [%s]: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("stream error: %s", e.Message)
}

// Unwrap returns the underlying error for error chain support.
func (e *StreamError) Unwrap() error {
	return e.Cause
}
