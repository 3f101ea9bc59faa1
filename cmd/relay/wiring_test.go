package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"switchboard-hq/relay/pkg/backend"
	"switchboard-hq/relay/pkg/config"
	"switchboard-hq/relay/pkg/limits/ratelimit"
	"switchboard-hq/relay/pkg/limits/storage"
	"switchboard-hq/relay/pkg/routing"
)

func TestProviderConfig(t *testing.T) {
	disabled := false
	noBackoff := false

	tests := []struct {
		name  string
		in    config.ProviderConfig
		check func(t *testing.T, rc routing.ProviderConfig)
	}{
		{
			name: "defaults",
			in:   config.ProviderConfig{ID: "openai", Model: "gpt-4o"},
			check: func(t *testing.T, rc routing.ProviderConfig) {
				if !rc.Enabled {
					t.Error("Expected provider enabled by default")
				}
				if rc.RateLimit != nil {
					t.Errorf("Expected nil rate limit for unlimited provider, got %+v", rc.RateLimit)
				}
				if rc.Retry != nil {
					t.Errorf("Expected nil retry, got %+v", rc.Retry)
				}
			},
		},
		{
			name: "limits and retry",
			in: config.ProviderConfig{
				ID:            "google",
				Enabled:       &disabled,
				Priority:      5,
				AltCredential: true,
				RateLimit:     config.RateLimitConfig{RequestsPerMinute: 60, TokensPerMinute: 1000, ConcurrentRequests: 2},
				Retry:         &config.RecoveryConfig{MaxRetries: 5, BaseDelay: time.Second, MaxDelay: 10 * time.Second, UseBackoff: &noBackoff},
			},
			check: func(t *testing.T, rc routing.ProviderConfig) {
				if rc.Enabled {
					t.Error("Expected provider disabled")
				}
				if rc.Priority != 5 || !rc.AltCredential {
					t.Errorf("Expected priority 5 with alt credential, got %+v", rc)
				}
				want := ratelimit.Limits{RequestsPerMinute: 60, TokensPerMinute: 1000, ConcurrentRequests: 2}
				if rc.RateLimit == nil || *rc.RateLimit != want {
					t.Errorf("Expected limits %+v, got %+v", want, rc.RateLimit)
				}
				if rc.Retry == nil || rc.Retry.MaxRetries != 5 || rc.Retry.UseBackoff {
					t.Errorf("Expected 5 retries without backoff, got %+v", rc.Retry)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, providerConfig(tt.in))
		})
	}
}

func TestNewBackend_Unconfigured(t *testing.T) {
	b, err := newBackend(config.ProviderConfig{ID: "nobody"})
	if err != nil {
		t.Fatalf("newBackend failed: %v", err)
	}

	var cfgErr *backend.ConfigError
	if err := b.ValidateConfig(); !errors.As(err, &cfgErr) {
		t.Fatalf("Expected ConfigError, got %v", err)
	}
	if cfgErr.Provider != "nobody" {
		t.Errorf("Expected provider nobody, got %s", cfgErr.Provider)
	}
	if _, err := b.Generate(context.Background(), &backend.Request{}); err == nil {
		t.Error("Expected Generate to fail")
	}
}

func TestNewBackend_RegisteredConnector(t *testing.T) {
	var got backend.Spec
	registerConnector("custom", func(spec backend.Spec) (backend.Backend, error) {
		got = spec
		return &unconfigured{spec: spec}, nil
	})
	t.Cleanup(func() {
		connectorsMu.Lock()
		delete(connectors, "custom")
		connectorsMu.Unlock()
	})

	if _, err := newBackend(config.ProviderConfig{ID: "custom", Model: "m1", BaseURL: "http://localhost"}); err != nil {
		t.Fatalf("newBackend failed: %v", err)
	}
	if got.ID != "custom" || got.Model != "m1" || got.BaseURL != "http://localhost" {
		t.Errorf("Expected spec passed to factory, got %+v", got)
	}

	registerConnector("broken", func(spec backend.Spec) (backend.Backend, error) {
		return nil, errors.New("no credentials")
	})
	t.Cleanup(func() {
		connectorsMu.Lock()
		delete(connectors, "broken")
		connectorsMu.Unlock()
	})
	if _, err := newBackend(config.ProviderConfig{ID: "broken"}); err == nil {
		t.Error("Expected factory error")
	}
}

func parseConfig(t *testing.T, yaml string) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if err := config.Validate(cfg); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	return cfg
}

func TestStack_ApplyReload(t *testing.T) {
	cfg := parseConfig(t, `
providers:
  - id: openai
    rate_limit:
      requests_per_minute: 10
  - id: google
    rate_limit:
      requests_per_minute: 10
  - id: anthropic
routing:
  fallback_chain: [google]
`)

	s, err := newStack(cfg, stackOptions{})
	if err != nil {
		t.Fatalf("newStack failed: %v", err)
	}
	defer s.close()

	tracker := s.router.Tracker()
	tracker.Update("openai", ratelimit.DimensionRequests, 3)
	tracker.Update("google", ratelimit.DimensionRequests, 3)

	if chain := s.router.BuildProviderChain("openai"); len(chain) != 2 || chain[1] != "google" {
		t.Fatalf("Expected [openai google], got %v", chain)
	}

	reloaded := parseConfig(t, `
providers:
  - id: openai
    rate_limit:
      requests_per_minute: 10
  - id: google
    rate_limit:
      requests_per_minute: 20
routing:
  fallback_chain: [openai, google]
`)
	if err := s.apply(reloaded); err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	if state, _ := s.router.ProviderState("openai"); state.RequestCount != 3 {
		t.Errorf("Expected unchanged provider to keep its window, got %d requests", state.RequestCount)
	}
	state, _ := s.router.ProviderState("google")
	if state.Limits.RequestsPerMinute != 20 {
		t.Errorf("Expected google limit 20 after reload, got %d", state.Limits.RequestsPerMinute)
	}
	if _, ok := s.router.Provider("anthropic"); ok {
		t.Error("Expected anthropic to be unregistered")
	}
	if got := s.router.FallbackChain(); len(got) != 2 || got[0] != "openai" {
		t.Errorf("Expected fallback chain [openai google], got %v", got)
	}
}

func TestStack_FlushRestore(t *testing.T) {
	cfg := parseConfig(t, `
providers:
  - id: openai
    rate_limit:
      requests_per_minute: 10
`)
	store := storage.NewMemoryBackend()

	first, err := newStack(cfg, stackOptions{store: store})
	if err != nil {
		t.Fatalf("newStack failed: %v", err)
	}
	first.router.Tracker().Update("openai", ratelimit.DimensionRequests, 4)
	if err := first.flush(context.Background()); err != nil {
		t.Fatalf("flush failed: %v", err)
	}
	first.router.Destroy()

	second, err := newStack(cfg, stackOptions{store: store})
	if err != nil {
		t.Fatalf("newStack failed: %v", err)
	}
	defer second.close()

	restored, err := second.restore(context.Background())
	if err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if restored != 1 {
		t.Errorf("Expected 1 restored provider, got %d", restored)
	}
	if state, _ := second.router.ProviderState("openai"); state.RequestCount != 4 {
		t.Errorf("Expected 4 restored requests, got %d", state.RequestCount)
	}
}

func TestOpenStorage(t *testing.T) {
	mem, err := openStorage(config.LimitsStorageConfig{Backend: "memory"})
	if err != nil {
		t.Fatalf("openStorage(memory) failed: %v", err)
	}
	mem.Close()

	sqlite, err := openStorage(config.LimitsStorageConfig{Backend: "sqlite", SQLitePath: t.TempDir() + "/quota.db"})
	if err != nil {
		t.Fatalf("openStorage(sqlite) failed: %v", err)
	}
	sqlite.Close()

	if _, err := openStorage(config.LimitsStorageConfig{Backend: "redis"}); err == nil {
		t.Error("Expected error for unsupported backend")
	}
}

func TestUnlistedProviders(t *testing.T) {
	cfg := parseConfig(t, `
providers:
  - id: openai
  - id: google
  - id: anthropic
  - id: ollama
    enabled: false
routing:
  default_provider: openai
  fallback_chain: [google]
`)

	got := unlistedProviders(cfg)
	if len(got) != 1 || got[0] != "anthropic" {
		t.Errorf("Expected [anthropic], got %v", got)
	}
}
