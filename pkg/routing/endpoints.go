package routing

import (
	"encoding/json"
	"net/http"

	"switchboard-hq/relay/pkg/health"
)

// ProviderStatus is one entry of the providers endpoint.
type ProviderStatus struct {
	ID       string                 `json:"id"`
	Model    string                 `json:"model,omitempty"`
	Enabled  bool                   `json:"enabled"`
	Priority int                    `json:"priority"`
	Quota    ProviderState          `json:"quota"`
	Health   *health.ProviderHealth `json:"health,omitempty"`
}

// ProviderStatuses returns every registered provider with its quota counters
// and, when a health monitor is attached, its health record.
func (r *Router) ProviderStatuses() []ProviderStatus {
	configs := r.registry.List()
	out := make([]ProviderStatus, 0, len(configs))
	for _, cfg := range configs {
		ps := ProviderStatus{
			ID:       cfg.ID,
			Model:    cfg.Model,
			Enabled:  cfg.Enabled,
			Priority: cfg.Priority,
		}
		ps.Quota, _ = r.tracker.State(cfg.ID)
		if r.health != nil {
			if h, ok := r.health.Status(cfg.ID); ok {
				ps.Health = &h
			}
		}
		out = append(out, ps)
	}
	return out
}

// ChainHandler serves the provider chain for the "target" query parameter.
//
// Example response:
//
//	{"chain": ["openai", "google"], "degraded": ["google"]}
func (r *Router) ChainHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		target := req.URL.Query().Get("target")
		if target == "" {
			http.Error(w, "missing target parameter", http.StatusBadRequest)
			return
		}
		writeJSON(w, r.ChainReport(target))
	}
}

// ProvidersHandler serves ProviderStatuses.
func (r *Router) ProvidersHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, r.ProviderStatuses())
	}
}

// StatsHandler serves the routing statistics snapshot.
func (r *Router) StatsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, r.Stats())
	}
}

// Mount registers the routing inspection paths on mux:
//   - /routing/chain?target=<id>
//   - /routing/providers
//   - /routing/stats
func (r *Router) Mount(mux *http.ServeMux) {
	mux.HandleFunc("/routing/chain", r.ChainHandler())
	mux.HandleFunc("/routing/providers", r.ProvidersHandler())
	mux.HandleFunc("/routing/stats", r.StatsHandler())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(v)
}
