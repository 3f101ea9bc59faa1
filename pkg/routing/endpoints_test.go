package routing

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"switchboard-hq/relay/internal/backendtest"
	"switchboard-hq/relay/pkg/health"
	"switchboard-hq/relay/pkg/limits/ratelimit"
)

func TestChainHandler(t *testing.T) {
	monitor := health.NewMonitor(health.Config{Enabled: true}, func(_ context.Context, id string) error {
		if id == "google" {
			return errors.New("connection refused")
		}
		return nil
	}, nil)
	r := newTestRouter(t, Options{Health: monitor})
	register(t, r, ProviderConfig{ID: "openai", Enabled: true}, backendtest.New("openai"))
	register(t, r, ProviderConfig{ID: "google", Enabled: true}, backendtest.New("google"))
	r.SetFallbackChain([]string{"google"})
	monitor.CheckNow(context.Background())

	mux := http.NewServeMux()
	r.Mount(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/routing/chain?target=openai", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var report ChainReport
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if len(report.Chain) != 2 || report.Chain[0] != "openai" || report.Chain[1] != "google" {
		t.Errorf("Expected [openai google], got %v", report.Chain)
	}
	if len(report.Degraded) != 1 || report.Degraded[0] != "google" {
		t.Errorf("Expected google degraded, got %v", report.Degraded)
	}
}

func TestChainHandler_MissingTarget(t *testing.T) {
	r := newTestRouter(t, Options{})

	rec := httptest.NewRecorder()
	r.ChainHandler()(rec, httptest.NewRequest(http.MethodGet, "/routing/chain", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestProvidersHandler(t *testing.T) {
	r := newTestRouter(t, Options{})
	register(t, r, ProviderConfig{ID: "openai", Model: "gpt-4o", Enabled: true, Priority: 1,
		RateLimit: &ratelimit.Limits{RequestsPerMinute: 10}}, backendtest.New("openai"))
	register(t, r, ProviderConfig{ID: "google", Enabled: false}, backendtest.New("google"))

	if _, err := r.Execute(context.Background(), "openai", testRequest); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	rec := httptest.NewRecorder()
	r.ProvidersHandler()(rec, httptest.NewRequest(http.MethodGet, "/routing/providers", nil))

	var statuses []ProviderStatus
	if err := json.NewDecoder(rec.Body).Decode(&statuses); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if len(statuses) != 2 {
		t.Fatalf("Expected 2 providers, got %d", len(statuses))
	}
	if statuses[0].ID != "openai" || statuses[0].Model != "gpt-4o" {
		t.Errorf("Expected openai first, got %+v", statuses[0])
	}
	if statuses[0].Quota.RequestCount != 1 || statuses[0].Quota.Limits.RequestsPerMinute != 10 {
		t.Errorf("Expected 1/10 requests, got %+v", statuses[0].Quota)
	}
	if statuses[1].Enabled {
		t.Error("Expected google disabled")
	}
	if statuses[0].Health != nil {
		t.Error("Expected no health record without a monitor")
	}
}

func TestStatsHandler(t *testing.T) {
	r := newTestRouter(t, Options{})
	register(t, r, ProviderConfig{ID: "openai", Enabled: true}, backendtest.New("openai"))
	if _, err := r.Execute(context.Background(), "openai", testRequest); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	rec := httptest.NewRecorder()
	r.StatsHandler()(rec, httptest.NewRequest(http.MethodGet, "/routing/stats", nil))

	var stats RoutingStats
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if stats.TotalRequests != 1 || stats.RequestsPerProvider["openai"] != 1 {
		t.Errorf("Expected one openai request, got %+v", stats)
	}
}

func TestHandlers_MethodNotAllowed(t *testing.T) {
	r := newTestRouter(t, Options{})
	mux := http.NewServeMux()
	r.Mount(mux)

	for _, path := range []string{"/routing/chain?target=openai", "/routing/providers", "/routing/stats"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s: expected status 405, got %d", path, rec.Code)
		}
	}
}
