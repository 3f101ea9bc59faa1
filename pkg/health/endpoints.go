package health

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"
)

// VersionInfo contains build and version information.
type VersionInfo struct {
	// Version is the semantic version (e.g., "1.0.0")
	Version string `json:"version"`

	// Commit is the git commit hash
	Commit string `json:"commit"`

	// BuildTime is when the binary was built
	BuildTime string `json:"build_time"`

	// GoVersion is the Go version used to build
	GoVersion string `json:"go_version"`
}

// Readiness is the body of the readiness endpoint.
type Readiness struct {
	// Status is "ready", "degraded" or "unavailable".
	Status string `json:"status"`

	// Providers holds each provider's health record.
	Providers map[string]ProviderHealth `json:"providers"`

	// Timestamp is when the response was built.
	Timestamp time.Time `json:"timestamp"`
}

// Readiness aggregates provider health.
//
//   - ready: every provider is healthy, or health checking is disabled
//   - degraded: at least one provider is degraded or unavailable
//   - unavailable: every registered provider is unavailable
func (m *Monitor) Readiness() Readiness {
	snapshot := m.Snapshot()
	r := Readiness{
		Status:    "ready",
		Providers: make(map[string]ProviderHealth, len(snapshot)),
		Timestamp: m.clock.Now(),
	}

	unavailable := 0
	for _, h := range snapshot {
		r.Providers[h.Provider] = h
		if !m.config.Enabled {
			continue
		}
		switch h.Status {
		case StatusUnavailable:
			unavailable++
			r.Status = "degraded"
		case StatusDegraded:
			r.Status = "degraded"
		}
	}

	if len(snapshot) > 0 && unavailable == len(snapshot) {
		r.Status = "unavailable"
	}
	return r
}

// LivenessHandler returns an HTTP handler for the liveness probe endpoint.
//
// Example response:
//
//	{"status": "ok", "timestamp": "2025-11-20T10:30:00Z"}
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)

		if r.Method != http.MethodHead {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"status":    "ok",
				"timestamp": time.Now(),
			})
		}
	}
}

// ReadinessHandler returns an HTTP handler reporting provider health.
//
// Returns:
//   - 200 OK: at least one provider can serve traffic
//   - 503 Service Unavailable: every provider is unavailable
//
// Example response (degraded):
//
//	{
//	    "status": "degraded",
//	    "providers": {
//	        "openai": {"provider": "openai", "status": "healthy", "consecutive_failures": 0},
//	        "google": {"provider": "google", "status": "degraded", "consecutive_failures": 1}
//	    },
//	    "timestamp": "2025-11-20T10:30:00Z"
//	}
func (m *Monitor) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		readiness := m.Readiness()

		w.Header().Set("Content-Type", "application/json")
		if readiness.Status == "unavailable" {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}

		if r.Method != http.MethodHead {
			_ = json.NewEncoder(w).Encode(readiness)
		}
	}
}

// VersionHandler returns an HTTP handler for the version information endpoint.
func VersionHandler(version, commit, buildTime string) http.HandlerFunc {
	info := VersionInfo{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
		GoVersion: runtime.Version(),
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)

		if r.Method != http.MethodHead {
			_ = json.NewEncoder(w).Encode(info)
		}
	}
}

// Mount registers the standard health paths on mux:
//   - /health: liveness
//   - /ready: provider readiness
//   - /version: build information
func (m *Monitor) Mount(mux *http.ServeMux, version, commit, buildTime string) {
	mux.HandleFunc("/health", LivenessHandler())
	mux.HandleFunc("/ready", m.ReadinessHandler())
	mux.HandleFunc("/version", VersionHandler(version, commit, buildTime))
}
