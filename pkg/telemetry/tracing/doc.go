// Package tracing provides OpenTelemetry tracing for relay.
//
// Each routed request gets a relay.route span and every dispatch to a
// provider a relay.attempt child span carrying the provider, the attempt
// number, token usage and, on failure, the classified error kind and the
// recovery strategy chosen.
//
// # Setup
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, version)
//	if err != nil {
//		return err
//	}
//	defer tracer.Shutdown(context.Background())
//
// When tracing is disabled New returns a noop tracer. Spans are exported
// over OTLP gRPC and sampled by one of "always", "never" or "ratio", each
// wrapped in ParentBased.
//
// # Propagation
//
// New installs the W3C Trace Context and Baggage propagators. Inject and
// Extract move trace context across HTTP boundaries; the health probe
// injects it into outgoing requests.
package tracing
