package routing

import (
	"errors"
	"fmt"
	"strings"

	"switchboard-hq/relay/pkg/backend"
	"switchboard-hq/relay/pkg/recovery"
)

// Common routing errors that can be checked with errors.Is().
var (
	// ErrNoEligibleProvider is returned when the provider chain is empty.
	ErrNoEligibleProvider = errors.New("no eligible provider")

	// ErrProviderNotFound is returned when a provider id is not registered.
	ErrProviderNotFound = errors.New("provider not found")

	// ErrAllProvidersFailed is returned when every chain member has been tried.
	ErrAllProvidersFailed = errors.New("all providers failed")

	// ErrInvalidProvider is returned when a provider cannot be registered.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrRouterClosed is returned by operations on a destroyed router.
	ErrRouterClosed = errors.New("router is closed")
)

// NoEligibleProviderError is returned when no registered, enabled and
// available provider exists for a target.
type NoEligibleProviderError struct {
	// Target is the requested provider id.
	Target string

	// FallbackChain is the configured fallback order at the time of the call.
	FallbackChain []string
}

// Error implements the error interface.
func (e *NoEligibleProviderError) Error() string {
	if len(e.FallbackChain) == 0 {
		return fmt.Sprintf("no eligible provider for target %q", e.Target)
	}
	return fmt.Sprintf("no eligible provider for target %q (fallback chain: %s)",
		e.Target, strings.Join(e.FallbackChain, ", "))
}

// Is implements error matching for errors.Is().
func (e *NoEligibleProviderError) Is(target error) bool {
	return target == ErrNoEligibleProvider
}

// ProviderNotFoundError is returned when a provider id is not registered.
type ProviderNotFoundError struct {
	// Provider is the requested provider id.
	Provider string

	// AvailableProviders contains the ids of registered providers.
	AvailableProviders []string
}

// Error implements the error interface.
func (e *ProviderNotFoundError) Error() string {
	return fmt.Sprintf("provider %q not found (available providers: %s)",
		e.Provider, strings.Join(e.AvailableProviders, ", "))
}

// Is implements error matching for errors.Is().
func (e *ProviderNotFoundError) Is(target error) bool {
	return target == ErrProviderNotFound
}

// FailureError is returned when a provider failure is surfaced without trying
// the rest of the chain, as for configuration errors.
type FailureError struct {
	// Provider is the provider that failed.
	Provider string

	// Kind is the classified failure kind.
	Kind backend.ErrorKind

	// Result is the recovery outcome shown to the user.
	Result recovery.Result

	// Err is the provider error.
	Err error
}

// Error implements the error interface.
func (e *FailureError) Error() string {
	return fmt.Sprintf("provider %q failed (%s): %v", e.Provider, e.Kind, e.Err)
}

// Unwrap returns the provider error.
func (e *FailureError) Unwrap() error {
	return e.Err
}

// ExhaustedError is returned when every member of the provider chain failed
// or was rate limited. Result always requires user intervention.
type ExhaustedError struct {
	// Attempted contains the provider ids in the order they were tried.
	Attempted []string

	// Result is the final recovery outcome.
	Result recovery.Result

	// LastError is the error from the last attempted provider, nil when every
	// provider was rejected by its own rate limit.
	LastError error
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	if e.LastError == nil {
		return fmt.Sprintf("all providers failed (attempted: %s): %s",
			strings.Join(e.Attempted, ", "), e.Result.Message)
	}
	return fmt.Sprintf("all providers failed (attempted: %s, last error: %v)",
		strings.Join(e.Attempted, ", "), e.LastError)
}

// Is implements error matching for errors.Is().
func (e *ExhaustedError) Is(target error) bool {
	return target == ErrAllProvidersFailed
}

// Unwrap returns the wrapped error for error chain traversal.
func (e *ExhaustedError) Unwrap() error {
	return e.LastError
}

// RecoveryResult extracts the user-facing recovery outcome from an error
// returned by Execute or Stream.
func RecoveryResult(err error) (recovery.Result, bool) {
	var exhausted *ExhaustedError
	if errors.As(err, &exhausted) {
		return exhausted.Result, true
	}
	var failure *FailureError
	if errors.As(err, &failure) {
		return failure.Result, true
	}
	return recovery.Result{}, false
}
