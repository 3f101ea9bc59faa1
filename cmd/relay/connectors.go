package main

import (
	"context"
	"fmt"
	"sync"

	"switchboard-hq/relay/pkg/backend"
	"switchboard-hq/relay/pkg/config"
)

var (
	connectorsMu sync.RWMutex

	// connectors maps a provider ID to the factory that builds its backend.
	connectors = map[string]backend.Factory{}
)

// registerConnector installs the factory used for a provider ID.
func registerConnector(id string, factory backend.Factory) {
	connectorsMu.Lock()
	defer connectorsMu.Unlock()
	connectors[id] = factory
}

// newBackend builds the backend for a configured provider. Providers without
// a registered connector get a backend that fails every call with a
// configuration error, so they still take part in chains, health checks and
// quota accounting.
func newBackend(p config.ProviderConfig) (backend.Backend, error) {
	spec := backend.Spec{
		ID:            p.ID,
		Model:         p.Model,
		BaseURL:       p.BaseURL,
		CredentialRef: p.CredentialRef,
	}

	connectorsMu.RLock()
	factory, ok := connectors[p.ID]
	connectorsMu.RUnlock()
	if !ok {
		return &unconfigured{spec: spec}, nil
	}

	b, err := factory(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to create backend %q: %w", p.ID, err)
	}
	return b, nil
}

// unconfigured is the backend of a provider with no connector.
type unconfigured struct {
	spec backend.Spec
}

func (u *unconfigured) err() error {
	return &backend.ConfigError{
		Provider: u.spec.ID,
		Field:    "connector",
		Message:  "no connector registered for this provider",
	}
}

func (u *unconfigured) Generate(ctx context.Context, req *backend.Request) (<-chan backend.Event, error) {
	return nil, u.err()
}

func (u *unconfigured) CountTokens(ctx context.Context, messages []backend.Message) (int, error) {
	return 0, u.err()
}

func (u *unconfigured) ValidateConfig() error {
	return u.err()
}
