package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"switchboard-hq/relay/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// Helper function to create test config
func testConfig() *config.MetricsConfig {
	return &config.MetricsConfig{
		Namespace:              "test",
		Subsystem:              "router",
		AttemptDurationBuckets: []float64{0.1, 0.5, 1.0, 5.0},
		TokenCountBuckets:      []float64{100, 500, 1000, 5000},
	}
}

func TestCollector_NewCollector(t *testing.T) {
	cfg := testConfig()
	registry := prometheus.NewRegistry()

	collector := NewCollector(cfg, registry)

	if collector == nil {
		t.Fatal("Expected non-nil collector")
	}
	if collector.Registry() != registry {
		t.Error("Collector registry not set correctly")
	}
	if !collector.Enabled() {
		t.Error("Expected collector enabled by default")
	}
}

func TestCollector_NilDefaults(t *testing.T) {
	collector := NewCollector(nil, nil)
	if collector.Registry() == nil {
		t.Fatal("Expected a registry to be created")
	}
	if collector.config.Namespace != config.DefaultMetricsNamespace {
		t.Errorf("Expected namespace %q, got %q", config.DefaultMetricsNamespace, collector.config.Namespace)
	}
}

func TestCollector_NilReceiver(t *testing.T) {
	var collector *Collector

	// none of these may panic
	collector.RecordAttempt("openai", OutcomeSuccess, time.Second)
	collector.RecordTokens("openai", 10)
	collector.RecordError("openai", "network_error")
	collector.IncInFlight("openai")
	collector.DecInFlight("openai")
	collector.SetProviderHealth("openai", "healthy", 0)
	collector.RecordRequest(OutcomeSuccess, 1, time.Second)
	collector.RecordChain(2)
	collector.RecordFallback("openai", "google")
	collector.RecordRateLimited("openai", "requests")
	collector.UpdateWindow("openai", 1, 2)
	collector.RecordRecovery("openai", "network_error", "retry", true, false)

	if collector.Enabled() {
		t.Error("Expected nil collector to be disabled")
	}

	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 from nil collector handler, got %d", rec.Code)
	}
}

func TestCollector_Disabled(t *testing.T) {
	cfg := testConfig()
	disabled := false
	cfg.Enabled = &disabled
	collector := NewCollector(cfg, prometheus.NewRegistry())

	collector.RecordAttempt("openai", OutcomeSuccess, time.Second)

	if got := testutil.ToFloat64(collector.providerMetrics.attempts.WithLabelValues("openai", OutcomeSuccess)); got != 0 {
		t.Errorf("Expected no attempts recorded when disabled, got %v", got)
	}
}

func TestCollector_RecordAttempt(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	collector.RecordAttempt("openai", OutcomeSuccess, 200*time.Millisecond)
	collector.RecordAttempt("openai", OutcomeFailure, time.Second)
	collector.RecordAttempt("openai", OutcomeSuccess, 300*time.Millisecond)

	if got := testutil.ToFloat64(collector.providerMetrics.attempts.WithLabelValues("openai", OutcomeSuccess)); got != 2 {
		t.Errorf("Expected 2 successful attempts, got %v", got)
	}
	if got := testutil.ToFloat64(collector.providerMetrics.attempts.WithLabelValues("openai", OutcomeFailure)); got != 1 {
		t.Errorf("Expected 1 failed attempt, got %v", got)
	}
	if got := testutil.CollectAndCount(collector.providerMetrics.latency); got != 1 {
		t.Errorf("Expected 1 latency series, got %d", got)
	}
}

func TestCollector_RecordError(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	tests := []struct {
		provider string
		kind     string
	}{
		{"openai", "network_error"},
		{"openai", "rate_limit_exceeded"},
		{"google", "token_expired"},
		{"openai", "network_error"},
	}
	for _, tt := range tests {
		collector.RecordError(tt.provider, tt.kind)
	}

	if got := testutil.ToFloat64(collector.providerMetrics.errors.WithLabelValues("openai", "network_error")); got != 2 {
		t.Errorf("Expected 2 network errors, got %v", got)
	}
	if got := testutil.ToFloat64(collector.providerMetrics.errors.WithLabelValues("google", "token_expired")); got != 1 {
		t.Errorf("Expected 1 token_expired, got %v", got)
	}
}

func TestCollector_InFlight(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	collector.IncInFlight("openai")
	collector.IncInFlight("openai")
	collector.DecInFlight("openai")

	if got := testutil.ToFloat64(collector.providerMetrics.inFlight.WithLabelValues("openai")); got != 1 {
		t.Errorf("Expected 1 in flight, got %v", got)
	}
}

func TestCollector_SetProviderHealth(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	collector.SetProviderHealth("openai", "degraded", 2)

	tests := []struct {
		status string
		want   float64
	}{
		{"healthy", 0},
		{"degraded", 1},
		{"unavailable", 0},
	}
	for _, tt := range tests {
		if got := testutil.ToFloat64(collector.providerMetrics.health.WithLabelValues("openai", tt.status)); got != tt.want {
			t.Errorf("Expected health{status=%s} = %v, got %v", tt.status, tt.want, got)
		}
	}
	if got := testutil.ToFloat64(collector.providerMetrics.consecutiveFailures.WithLabelValues("openai")); got != 2 {
		t.Errorf("Expected 2 consecutive failures, got %v", got)
	}

	collector.SetProviderHealth("openai", "healthy", 0)
	if got := testutil.ToFloat64(collector.providerMetrics.health.WithLabelValues("openai", "degraded")); got != 0 {
		t.Errorf("Expected degraded cleared, got %v", got)
	}
}

func TestCollector_Routing(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	collector.RecordRequest(OutcomeSuccess, 1, 100*time.Millisecond)
	collector.RecordRequest(OutcomeExhausted, 4, 2*time.Second)
	collector.RecordFallback("openai", "google")
	collector.RecordChain(2)

	if got := testutil.ToFloat64(collector.routingMetrics.requests.WithLabelValues(OutcomeExhausted)); got != 1 {
		t.Errorf("Expected 1 exhausted request, got %v", got)
	}
	if got := testutil.ToFloat64(collector.routingMetrics.fallbacks.WithLabelValues("openai", "google")); got != 1 {
		t.Errorf("Expected 1 fallback, got %v", got)
	}
	if got := testutil.CollectAndCount(collector.routingMetrics.chainLength); got != 1 {
		t.Errorf("Expected chain length histogram, got %d series", got)
	}
}

func TestCollector_Quota(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	collector.RecordRateLimited("openai", "requests")
	collector.RecordRateLimited("openai", "concurrency")
	collector.RecordRateLimited("openai", "requests")
	collector.UpdateWindow("openai", 4, 1200)

	if got := testutil.ToFloat64(collector.quotaMetrics.rejections.WithLabelValues("openai", "requests")); got != 2 {
		t.Errorf("Expected 2 request rejections, got %v", got)
	}
	if got := testutil.ToFloat64(collector.quotaMetrics.windowTokens.WithLabelValues("openai")); got != 1200 {
		t.Errorf("Expected 1200 window tokens, got %v", got)
	}
}

func TestCollector_Recovery(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	collector.RecordRecovery("openai", "network_error", "retry", true, false)
	collector.RecordRecovery("google", "refresh_token_expired", "clear_and_restart", true, true)

	if got := testutil.ToFloat64(collector.recoveryMetrics.recoveries.WithLabelValues("network_error", "retry", "true")); got != 1 {
		t.Errorf("Expected 1 retry recovery, got %v", got)
	}
	if got := testutil.ToFloat64(collector.recoveryMetrics.interventions.WithLabelValues("google")); got != 1 {
		t.Errorf("Expected 1 user intervention, got %v", got)
	}
}

func TestCollector_ProviderCardinality(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())
	collector.cardinalityLimiter = NewCardinalityLimiter(1)

	collector.RecordError("openai", "unknown")
	collector.RecordError("google", "unknown")

	if got := testutil.ToFloat64(collector.providerMetrics.errors.WithLabelValues(otherLabel, "unknown")); got != 1 {
		t.Errorf("Expected overflow provider folded into %q, got %v", otherLabel, got)
	}
}

func TestCardinalityLimiter(t *testing.T) {
	limiter := NewCardinalityLimiter(2)

	if !limiter.Allow("a") || !limiter.Allow("b") {
		t.Fatal("Expected first two values allowed")
	}
	if limiter.Allow("c") {
		t.Error("Expected third value rejected")
	}
	if !limiter.Allow("a") {
		t.Error("Expected known value allowed")
	}
	if limiter.Count() != 2 {
		t.Errorf("Expected count 2, got %d", limiter.Count())
	}
}

func TestHandler(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())
	collector.RecordAttempt("openai", OutcomeSuccess, time.Second)

	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "test_router_provider_attempts_total") {
		t.Error("Expected attempts metric in exposition output")
	}
}
