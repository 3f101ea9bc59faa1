package storage

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryBackend implements Backend using in-memory storage.
// This is the default backend and provides fast access with no persistence.
// All data is lost when the process exits.
//
// MemoryBackend is thread-safe and supports concurrent access using sync.RWMutex.
type MemoryBackend struct {
	// states maps provider id to its quota state.
	states map[string]QuotaState

	// mu protects access to states map.
	mu sync.RWMutex
}

// NewMemoryBackend creates a new in-memory storage backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		states: make(map[string]QuotaState),
	}
}

// Save persists the quota state for a provider.
func (m *MemoryBackend) Save(ctx context.Context, state *QuotaState) error {
	if err := validateState(state); err != nil {
		return err
	}

	stored := *state
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = time.Now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.states[stored.Provider] = stored
	return nil
}

// Load retrieves the quota state for a provider.
func (m *MemoryBackend) Load(ctx context.Context, provider string) (*QuotaState, error) {
	if provider == "" {
		return nil, ErrEmptyProvider
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	state, exists := m.states[provider]
	if !exists {
		return nil, nil
	}
	return &state, nil
}

// Delete removes the quota state for a provider.
func (m *MemoryBackend) Delete(ctx context.Context, provider string) error {
	if provider == "" {
		return ErrEmptyProvider
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.states, provider)
	return nil
}

// List returns all stored quota states ordered by provider id.
func (m *MemoryBackend) List(ctx context.Context) ([]*QuotaState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	states := make([]*QuotaState, 0, len(m.states))
	for _, state := range m.states {
		s := state
		states = append(states, &s)
	}
	sort.Slice(states, func(i, j int) bool {
		return states[i].Provider < states[j].Provider
	})
	return states, nil
}

// Cleanup removes entries not updated since olderThan.
func (m *MemoryBackend) Cleanup(ctx context.Context, olderThan time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	deleted := 0
	for provider, state := range m.states {
		if state.UpdatedAt.Before(olderThan) {
			delete(m.states, provider)
			deleted++
		}
	}
	return deleted, nil
}

// Close releases any resources held by the backend.
func (m *MemoryBackend) Close() error {
	return nil
}

// Size returns the current number of stored states.
func (m *MemoryBackend) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.states)
}
