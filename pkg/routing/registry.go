package routing

import (
	"fmt"
	"slices"
	"sort"
	"sync"

	"switchboard-hq/relay/pkg/backend"
)

// entry is a registered provider.
type entry struct {
	config  ProviderConfig
	backend backend.Backend

	// order is the registration sequence number, kept across overwrites.
	order uint64
}

// Registry holds the configured providers and the global fallback chain.
// It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]*entry
	fallback  []string
	nextOrder uint64

	// Eligibility is an extra chain filter, typically the health monitor.
	// Nil means every registered and enabled provider is eligible.
	Eligibility func(id string) bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]*entry),
	}
}

// Register stores a provider, overwriting any provider with the same id.
// An overwritten provider keeps its original registration order.
func (r *Registry) Register(cfg ProviderConfig, b backend.Backend) error {
	if cfg.ID == "" {
		return fmt.Errorf("%w: id cannot be empty", ErrInvalidProvider)
	}
	if b == nil {
		return fmt.Errorf("%w: provider %q has no backend", ErrInvalidProvider, cfg.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.providers[cfg.ID]; ok {
		existing.config = cfg
		existing.backend = b
		return nil
	}

	r.providers[cfg.ID] = &entry{config: cfg, backend: b, order: r.nextOrder}
	r.nextOrder++
	return nil
}

// Unregister removes a provider. It reports whether the provider existed.
func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.providers[id]; !ok {
		return false
	}
	delete(r.providers, id)
	return true
}

// Get returns a provider's configuration and backend.
func (r *Registry) Get(id string) (ProviderConfig, backend.Backend, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.providers[id]
	if !ok {
		return ProviderConfig{}, nil, false
	}
	return e.config, e.backend, true
}

// List returns every registered provider ordered by priority descending,
// then by registration order.
func (r *Registry) List() []ProviderConfig {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.providers))
	for _, e := range r.providers {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].config.Priority != entries[j].config.Priority {
			return entries[i].config.Priority > entries[j].config.Priority
		}
		return entries[i].order < entries[j].order
	})

	out := make([]ProviderConfig, len(entries))
	for i, e := range entries {
		out[i] = e.config
	}
	return out
}

// IDs returns the registered provider ids in List order.
func (r *Registry) IDs() []string {
	list := r.List()
	ids := make([]string, len(list))
	for i, p := range list {
		ids[i] = p.ID
	}
	return ids
}

// Len returns the number of registered providers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers)
}

// SetFallbackChain stores a copy of the global fallback order. Ids do not
// need to be registered.
func (r *Registry) SetFallbackChain(ids []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = slices.Clone(ids)
}

// FallbackChain returns a copy of the global fallback order.
func (r *Registry) FallbackChain() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.fallback)
}

// Clear removes every provider and the fallback chain.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers = make(map[string]*entry)
	r.fallback = nil
}

// BuildChain returns the ordered provider chain for a target: the target
// first if it is eligible, then each eligible fallback id not already present.
// A provider is eligible when it is registered, enabled and passes the
// Eligibility filter. Registered providers missing from the fallback chain are
// never appended.
func (r *Registry) BuildChain(target string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	chain := make([]string, 0, len(r.fallback)+1)
	seen := make(map[string]bool, len(r.fallback)+1)

	add := func(id string) {
		if seen[id] || !r.eligibleLocked(id) {
			return
		}
		seen[id] = true
		chain = append(chain, id)
	}

	add(target)
	for _, id := range r.fallback {
		add(id)
	}
	return chain
}

func (r *Registry) eligibleLocked(id string) bool {
	e, ok := r.providers[id]
	if !ok || !e.config.Enabled {
		return false
	}
	if r.Eligibility != nil && !r.Eligibility(id) {
		return false
	}
	return true
}
