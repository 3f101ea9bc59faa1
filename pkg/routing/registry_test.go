package routing

import (
	"errors"
	"testing"

	"switchboard-hq/relay/internal/backendtest"
)

func TestRegistry_RegisterOverwrite(t *testing.T) {
	reg := NewRegistry()
	first := backendtest.New("first")
	second := backendtest.New("second")

	if err := reg.Register(ProviderConfig{ID: "openai", Model: "gpt-4o"}, first); err != nil {
		t.Fatal(err)
	}
	if err := reg.Register(ProviderConfig{ID: "openai", Model: "gpt-4.1"}, second); err != nil {
		t.Fatal(err)
	}

	if reg.Len() != 1 {
		t.Errorf("Expected 1 provider, got %d", reg.Len())
	}
	cfg, b, ok := reg.Get("openai")
	if !ok {
		t.Fatal("Expected provider to be registered")
	}
	if cfg.Model != "gpt-4.1" {
		t.Errorf("Expected overwritten model gpt-4.1, got %s", cfg.Model)
	}
	if b != second {
		t.Error("Expected overwritten backend")
	}
}

func TestRegistry_RegisterInvalid(t *testing.T) {
	reg := NewRegistry()

	tests := []struct {
		name string
		cfg  ProviderConfig
		nilB bool
	}{
		{"empty id", ProviderConfig{}, false},
		{"nil backend", ProviderConfig{ID: "openai"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error
			if tt.nilB {
				err = reg.Register(tt.cfg, nil)
			} else {
				err = reg.Register(tt.cfg, backendtest.New("x"))
			}
			if !errors.Is(err, ErrInvalidProvider) {
				t.Errorf("Expected ErrInvalidProvider, got %v", err)
			}
		})
	}
}

func TestRegistry_ListOrder(t *testing.T) {
	reg := NewRegistry()
	for _, cfg := range []ProviderConfig{
		{ID: "ollama", Priority: 0},
		{ID: "openai", Priority: 10},
		{ID: "google", Priority: 5},
		{ID: "anthropic", Priority: 10},
	} {
		if err := reg.Register(cfg, backendtest.New(cfg.ID)); err != nil {
			t.Fatal(err)
		}
	}

	// re-registering keeps the original registration order
	if err := reg.Register(ProviderConfig{ID: "openai", Priority: 10}, backendtest.New("openai")); err != nil {
		t.Fatal(err)
	}

	want := []string{"openai", "anthropic", "google", "ollama"}
	got := reg.IDs()
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expected %v, got %v", want, got)
			break
		}
	}
}

func TestRegistry_FallbackChainCopied(t *testing.T) {
	reg := NewRegistry()
	ids := []string{"openai", "google"}
	reg.SetFallbackChain(ids)

	ids[0] = "mutated"
	if got := reg.FallbackChain(); got[0] != "openai" {
		t.Errorf("Expected stored chain unaffected by caller mutation, got %v", got)
	}

	got := reg.FallbackChain()
	got[1] = "mutated"
	if reg.FallbackChain()[1] != "google" {
		t.Error("Expected returned chain to be a copy")
	}
}

func TestRegistry_Eligibility(t *testing.T) {
	reg := NewRegistry()
	for _, id := range []string{"openai", "google"} {
		if err := reg.Register(ProviderConfig{ID: id, Enabled: true}, backendtest.New(id)); err != nil {
			t.Fatal(err)
		}
	}
	reg.SetFallbackChain([]string{"google"})
	reg.Eligibility = func(id string) bool { return id != "openai" }

	chain := reg.BuildChain("openai")
	if len(chain) != 1 || chain[0] != "google" {
		t.Errorf("Expected [google], got %v", chain)
	}
}

func TestRegistry_UnregisterAndClear(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(ProviderConfig{ID: "openai", Enabled: true}, backendtest.New("openai")); err != nil {
		t.Fatal(err)
	}
	reg.SetFallbackChain([]string{"openai"})

	if !reg.Unregister("openai") {
		t.Error("Expected Unregister to report existing provider")
	}
	if reg.Unregister("openai") {
		t.Error("Expected second Unregister to report missing provider")
	}

	if err := reg.Register(ProviderConfig{ID: "google", Enabled: true}, backendtest.New("google")); err != nil {
		t.Fatal(err)
	}
	reg.Clear()
	if reg.Len() != 0 || len(reg.FallbackChain()) != 0 {
		t.Error("Expected Clear to remove providers and fallback chain")
	}
}
