// Package telemetry groups the observability packages used by relay.
//
// # Components
//
//   - logging: slog setup with credential redaction
//   - metrics: Prometheus collectors for routing, recovery, quota and health
//   - tracing: OpenTelemetry spans for routed requests and attempts
//
// The router, recovery manager and health monitor accept a nil collector or
// tracer, so each component can be disabled independently.
//
// # Usage
//
//	logger, _ := logging.Setup(logging.FromConfig(cfg.Telemetry.Logging, os.Stderr))
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, prometheus.NewRegistry())
//	tracer, _ := tracing.New(&cfg.Telemetry.Tracing, version)
//	defer tracer.Shutdown(ctx)
//
//	router := routing.New(routing.Options{
//	    Metrics: collector,
//	    Tracer:  tracer,
//	    Logger:  logger,
//	})
//
// # Credential Protection
//
// When redaction is on, bearer tokens and sk- style API keys are masked in
// every log attribute before it reaches the handler.
package telemetry
