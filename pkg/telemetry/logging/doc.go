// Package logging builds the structured logger used across relay.
//
// Loggers are plain *slog.Logger values with JSON or text output. Two
// behaviours are layered on the standard handlers:
//
//   - Redaction: a ReplaceAttr hook masks OpenAI/Anthropic style sk- keys,
//     Google API keys, bearer tokens, key= query parameters and any
//     attribute whose name looks like a credential.
//   - Context fields: records logged with InfoContext and friends gain
//     request_id, target, trace_id and span_id from the context.
//
// Usage:
//
//	logger, err := logging.Setup(logging.FromConfig(cfg.Telemetry.Logging, os.Stderr))
//	ctx = logging.WithRequestID(ctx, id)
//	logger.InfoContext(ctx, "Dispatching request", "provider", "openai")
package logging
