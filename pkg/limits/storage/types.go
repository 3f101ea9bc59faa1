package storage

import (
	"context"
	"errors"
	"time"
)

// Backend defines the interface for quota snapshot persistence.
// Implementations must be thread-safe and support concurrent access.
type Backend interface {
	// Save persists the quota state for a provider.
	// If state already exists, it is replaced. Returns error on failure.
	Save(ctx context.Context, state *QuotaState) error

	// Load retrieves the quota state for a provider.
	// Returns nil if no state exists. Returns error on system failure.
	Load(ctx context.Context, provider string) (*QuotaState, error)

	// Delete removes the quota state for a provider. No-op if it doesn't exist.
	Delete(ctx context.Context, provider string) error

	// List returns all stored quota states.
	List(ctx context.Context) ([]*QuotaState, error)

	// Cleanup removes entries not updated since olderThan.
	// Returns the number of entries deleted and any error.
	Cleanup(ctx context.Context, olderThan time.Time) (int, error)

	// Close releases any resources held by the backend.
	// The backend should not be used after calling Close.
	Close() error
}

// QuotaState is the persisted window state for a single provider.
type QuotaState struct {
	// Provider is the provider identifier.
	Provider string

	// RequestCount is the number of requests committed in the window.
	RequestCount int64

	// TokenCount is the number of tokens committed in the window.
	TokenCount int64

	// WindowStart is when the current window opened.
	WindowStart time.Time

	// UpdatedAt is when this state was last saved.
	UpdatedAt time.Time
}

var (
	// ErrEmptyProvider is returned when a state or lookup has no provider id.
	ErrEmptyProvider = errors.New("provider cannot be empty")

	// ErrNilState is returned when Save is called with a nil state.
	ErrNilState = errors.New("state cannot be nil")
)

func validateState(state *QuotaState) error {
	if state == nil {
		return ErrNilState
	}
	if state.Provider == "" {
		return ErrEmptyProvider
	}
	if state.RequestCount < 0 || state.TokenCount < 0 {
		return errors.New("quota counters cannot be negative")
	}
	return nil
}
