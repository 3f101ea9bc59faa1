package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span names.
const (
	SpanRequest = "relay.route"
	SpanAttempt = "relay.attempt"
)

// Attribute keys used on relay spans.
const (
	AttrRequestID  = "relay.request_id"
	AttrTarget     = "relay.target"
	AttrChain      = "relay.chain"
	AttrProvider   = "relay.provider"
	AttrAttempt    = "relay.attempt"
	AttrAuthMode   = "relay.auth_mode"
	AttrErrorKind  = "relay.error.kind"
	AttrStrategy   = "relay.recovery.strategy"
	AttrTokensIn   = "relay.tokens.prompt"
	AttrTokensOut  = "relay.tokens.completion"
	AttrTokensAll  = "relay.tokens.total"
	AttrRejectedOn = "relay.rate_limit.dimension"
)

// StartRequest opens the span covering one routed request.
func (t *Tracer) StartRequest(ctx context.Context, requestID, target string, chain []string) (context.Context, trace.Span) {
	return t.Start(ctx, SpanRequest,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String(AttrRequestID, requestID),
			attribute.String(AttrTarget, target),
			attribute.StringSlice(AttrChain, chain),
		),
	)
}

// StartAttempt opens a child span for one dispatch to provider.
// attempt counts dispatches within the request starting at 1.
func (t *Tracer) StartAttempt(ctx context.Context, provider string, attempt int) (context.Context, trace.Span) {
	return t.Start(ctx, SpanAttempt,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(AttrProvider, provider),
			attribute.Int(AttrAttempt, attempt),
		),
	)
}

// SetTokens records token usage on span.
func SetTokens(span trace.Span, prompt, completion, total int) {
	span.SetAttributes(
		attribute.Int(AttrTokensIn, prompt),
		attribute.Int(AttrTokensOut, completion),
		attribute.Int(AttrTokensAll, total),
	)
}

// SetRecovery records the recovery strategy chosen after a failure.
func SetRecovery(span trace.Span, strategy string) {
	span.SetAttributes(attribute.String(AttrStrategy, strategy))
}

// End sets the span status from err, records the classified kind when
// there is one, and ends the span.
func End(span trace.Span, err error, kind string) {
	if err != nil {
		if kind != "" {
			span.SetAttributes(attribute.String(AttrErrorKind, kind))
		}
		SetError(span, err)
	}
	SetStatus(span, err)
	span.End()
}

// SetError marks the span as failed and records the error.
func SetError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.SetAttributes(
		attribute.Bool("error", true),
		attribute.String("error.message", err.Error()),
	)
	span.RecordError(err)
}

// SetStatus sets the span status based on an error.
// If err is nil, status is set to OK, otherwise to Error.
func SetStatus(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
}
