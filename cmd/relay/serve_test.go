package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"switchboard-hq/relay/pkg/config"
	"switchboard-hq/relay/pkg/limits/ratelimit"
)

func newTestServer(t *testing.T, yaml string) *server {
	t.Helper()
	cfg := parseConfig(t, yaml)
	srv, err := newServer(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("newServer failed: %v", err)
	}
	return srv
}

func TestServer_Handlers(t *testing.T) {
	srv := newTestServer(t, `
providers:
  - id: openai
  - id: google
routing:
  fallback_chain: [google]
health:
  listen_address: "127.0.0.1:8081"
telemetry:
  metrics:
    listen_address: "127.0.0.1:9090"
`)
	defer srv.shutdown(context.Background())

	handlers := srv.handlers()
	if len(handlers) != 2 {
		t.Fatalf("Expected separate health and metrics handlers, got %d", len(handlers))
	}

	tests := []struct {
		addr     string
		path     string
		status   int
		contains string
	}{
		{"127.0.0.1:8081", "/health", http.StatusOK, `"status":"ok"`},
		{"127.0.0.1:8081", "/ready", http.StatusOK, `"status":"ready"`},
		{"127.0.0.1:8081", "/routing/chain?target=openai", http.StatusOK, `"chain":["openai","google"]`},
		{"127.0.0.1:8081", "/routing/providers", http.StatusOK, `"id":"google"`},
		{"127.0.0.1:9090", "/metrics", http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handlers[tt.addr].ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, rec.Code)
			}
			if tt.contains != "" && !strings.Contains(rec.Body.String(), tt.contains) {
				t.Errorf("Expected body to contain %s, got %s", tt.contains, rec.Body.String())
			}
		})
	}
}

func TestServer_MetricsDisabled(t *testing.T) {
	srv := newTestServer(t, `
providers:
  - id: openai
telemetry:
  metrics:
    enabled: false
`)
	defer srv.shutdown(context.Background())

	if srv.metrics != nil {
		t.Error("Expected no collector when metrics are disabled")
	}
	if len(srv.handlers()) != 1 {
		t.Errorf("Expected only the health handler, got %d", len(srv.handlers()))
	}
}

func TestServer_StartServesAndFlushes(t *testing.T) {
	dbPath := t.TempDir() + "/quota.db"
	yaml := `
providers:
  - id: openai
    rate_limit:
      requests_per_minute: 100
health:
  listen_address: "127.0.0.1:0"
limits:
  storage:
    backend: sqlite
    sqlite_path: "` + dbPath + `"
telemetry:
  metrics:
    listen_address: "127.0.0.1:0"
`
	srv := newTestServer(t, yaml)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := srv.start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if len(srv.addrs) != 1 {
		t.Fatalf("Expected one shared listener, got %v", srv.addrs)
	}

	for _, path := range []string{"/ready", "/metrics"} {
		resp, err := http.Get("http://" + srv.addrs[0] + path)
		if err != nil {
			t.Fatalf("GET %s failed: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s: expected 200, got %d", path, resp.StatusCode)
		}
	}

	srv.stack.router.Tracker().Update("openai", ratelimit.DimensionRequests, 7)
	srv.shutdown(context.Background())

	restarted := newTestServer(t, yaml)
	defer restarted.shutdown(context.Background())
	if n, err := restarted.stack.restore(context.Background()); err != nil || n != 1 {
		t.Fatalf("Expected 1 restored provider, got %d (%v)", n, err)
	}
	if state, _ := restarted.stack.router.ProviderState("openai"); state.RequestCount != 7 {
		t.Errorf("Expected 7 requests restored from sqlite, got %d", state.RequestCount)
	}
}

func TestServer_Reload(t *testing.T) {
	srv := newTestServer(t, `
providers:
  - id: openai
`)
	defer srv.shutdown(context.Background())

	reloaded := parseConfig(t, `
providers:
  - id: openai
  - id: google
routing:
  fallback_chain: [google]
`)
	srv.reload(reloaded)

	if chain := srv.stack.router.BuildProviderChain("openai"); len(chain) != 2 {
		t.Errorf("Expected reloaded chain [openai google], got %v", chain)
	}
	if config.GetConfig() != reloaded {
		t.Error("Expected global config to be replaced on reload")
	}
}
