// Package health runs periodic provider probes and tracks each provider's
// health status.
//
// # Status
//
// Every registered provider is healthy, degraded or unavailable. A successful
// probe makes a provider healthy. Consecutive failures first mark it degraded
// (Config.DegradedAfter, default 1) and then unavailable
// (Config.UnavailableAfter, default 3).
//
// Unavailable providers are excluded from routing chains through Eligible.
// Degraded providers stay eligible and are reported to callers so a UI can
// surface them. With health checking disabled every provider is eligible.
//
// # Scheduling
//
// Start schedules a probe sweep with robfig/cron. Config.Schedule accepts any
// standard cron expression; when it is empty the sweep runs "@every Interval".
// A sweep probes all providers concurrently and each probe is bounded by
// Config.Timeout. Sweeps never overlap.
//
// Probe results are eventually consistent with in-flight requests: a status
// change never cancels a request that was already admitted.
//
// # HTTP endpoints
//
//	mux.HandleFunc("/health", health.LivenessHandler())
//	mux.HandleFunc("/ready", monitor.ReadinessHandler())
//	mux.HandleFunc("/version", health.VersionHandler(version, commit, buildTime))
package health
