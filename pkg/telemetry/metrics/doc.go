// Package metrics provides Prometheus metrics collection for relay.
//
// # Metrics Categories
//
//   - Provider Metrics: dispatches, latency, classified errors, tokens,
//     in-flight requests and health status per provider
//   - Routing Metrics: routed request outcomes, attempts per request,
//     chain length and fallback advances
//   - Quota Metrics: rate limit rejections by dimension and open window usage
//   - Recovery Metrics: recovery strategies chosen per failure kind
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	router := routing.New(routing.Options{Metrics: collector})
//	mux.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
//
// A nil *Collector records nothing, which keeps metrics optional for
// library users.
//
// # Cardinality
//
// Provider IDs are the only unbounded label. Once 256 distinct IDs have been
// seen, new IDs are reported as "other".
package metrics
