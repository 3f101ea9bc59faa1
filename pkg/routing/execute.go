package routing

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"switchboard-hq/relay/pkg/backend"
	"switchboard-hq/relay/pkg/failure"
	"switchboard-hq/relay/pkg/limits/ratelimit"
	"switchboard-hq/relay/pkg/recovery"
	"switchboard-hq/relay/pkg/telemetry/logging"
	"switchboard-hq/relay/pkg/telemetry/metrics"
	"switchboard-hq/relay/pkg/telemetry/tracing"
)

// errIncompleteStream is reported when a stream closes without a done event.
var errIncompleteStream = &backend.StreamError{
	Code:    "incomplete_stream",
	Message: "stream closed before completion",
}

// attempt is one admitted backend call.
type attempt struct {
	provider string
	backend  backend.Backend
	request  *backend.Request
	release  func()

	// usage is filled by the call on success.
	usage backend.Usage

	// detached is set when the call took ownership of release.
	detached bool
}

// callFunc performs the backend call for an admitted attempt.
type callFunc func(ctx context.Context, a *attempt) error

// Execute routes a request through the provider chain of target and returns
// the drained response.
//
// For each chain member the router checks admission, takes a concurrency
// slot, calls the backend and on success commits the request and its tokens.
// On failure the error is classified and recovered: retries and successful
// credential refreshes try the same provider again, fallback_to_api_key tries
// it once more in API key mode, configuration errors are surfaced as
// *FailureError, and every other outcome advances to the next member. When
// the chain is exhausted Execute returns *ExhaustedError.
func (r *Router) Execute(ctx context.Context, target string, req *backend.Request) (*Response, error) {
	resp := &Response{}
	var text strings.Builder

	call := func(ctx context.Context, a *attempt) error {
		events, err := a.backend.Generate(ctx, a.request)
		if err != nil {
			return err
		}

		text.Reset()
		resp.ToolCalls = nil
		usage, err := drain(ctx, events, &text, &resp.ToolCalls)
		if err != nil {
			return err
		}
		a.usage = usage
		return nil
	}

	a, err := r.route(ctx, target, req, call, resp)
	if err != nil {
		return nil, err
	}

	resp.Text = text.String()
	resp.Usage = a.usage
	return resp, nil
}

// drain reads a stream to completion.
func drain(ctx context.Context, events <-chan backend.Event, text *strings.Builder, calls *[]backend.ToolCall) (backend.Usage, error) {
	for {
		select {
		case <-ctx.Done():
			return backend.Usage{}, ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return backend.Usage{}, errIncompleteStream
			}
			switch ev.Type {
			case backend.EventText:
				text.WriteString(ev.Text)
			case backend.EventToolCall:
				if ev.ToolCall != nil {
					*calls = append(*calls, *ev.ToolCall)
				}
			case backend.EventDone:
				return usageOf(ev), nil
			case backend.EventError:
				return backend.Usage{}, ev.Err()
			}
		}
	}
}

func usageOf(ev backend.Event) backend.Usage {
	if ev.Usage == nil {
		return backend.Usage{}
	}
	u := *ev.Usage
	if u.TotalTokens == 0 {
		u.TotalTokens = u.PromptTokens + u.CompletionTokens
	}
	return u
}

// route runs the chain loop shared by Execute and Stream. resp receives the
// request id, provider, attempt count and degraded flag.
func (r *Router) route(ctx context.Context, target string, req *backend.Request, call callFunc, resp *Response) (*attempt, error) {
	if r.closed.Load() {
		return nil, ErrRouterClosed
	}

	start := r.clock.Now()
	r.stats.IncrementTotal()

	resp.RequestID = uuid.NewString()
	ctx = logging.WithRequestID(ctx, resp.RequestID)
	ctx = logging.WithTarget(ctx, target)

	report := r.ChainReport(target)
	r.metrics.RecordChain(len(report.Chain))

	ctx, span := r.tracer.StartRequest(ctx, resp.RequestID, target, report.Chain)
	defer span.End()

	a, err := r.dispatch(ctx, report.Chain, req, call, resp)

	outcome := metrics.OutcomeSuccess
	switch {
	case err == nil:
		r.stats.IncrementSucceeded(a.provider)
		resp.Provider = a.provider
		for _, id := range report.Degraded {
			if id == a.provider {
				resp.Degraded = true
			}
		}
		r.logger.InfoContext(ctx, "Request served",
			"provider", a.provider,
			"attempts", resp.Attempts,
			"duration_ms", r.clock.Now().Sub(start).Milliseconds(),
		)
	case errors.Is(err, context.Canceled):
		outcome = metrics.OutcomeCanceled
	case errors.Is(err, ErrNoEligibleProvider):
		outcome = metrics.OutcomeNoProvider
	case errors.Is(err, ErrAllProvidersFailed):
		outcome = metrics.OutcomeExhausted
	default:
		outcome = metrics.OutcomeFailure
	}
	if err != nil {
		r.stats.IncrementErrors()
		r.logger.WarnContext(ctx, "Request failed",
			"attempts", resp.Attempts,
			"outcome", outcome,
			"error", err,
		)
	}

	r.metrics.RecordRequest(outcome, resp.Attempts, r.clock.Now().Sub(start))
	tracing.SetStatus(span, err)
	return a, err
}

// dispatch iterates the chain until one attempt succeeds.
func (r *Router) dispatch(ctx context.Context, chain []string, req *backend.Request, call callFunc, resp *Response) (*attempt, error) {
	if len(chain) == 0 {
		return nil, &NoEligibleProviderError{
			Target:        logging.GetTarget(ctx),
			FallbackChain: r.registry.FallbackChain(),
		}
	}

	var (
		attempted []string
		last      recovery.Context
		lastErr   error
		result    *recovery.Result
	)

	for i, id := range chain {
		cfg, b, ok := r.registry.Get(id)
		if !ok {
			// unregistered since the chain was built
			continue
		}
		if len(attempted) > 0 {
			r.stats.IncrementFallback()
			r.metrics.RecordFallback(attempted[len(attempted)-1], id)
			r.logger.InfoContext(ctx, "Falling back to next provider",
				"from", attempted[len(attempted)-1],
				"to", id,
				"position", i,
			)
		}
		attempted = append(attempted, id)

		providerReq := req.Clone()
		pending := r.countTokens(ctx, id, b, providerReq)
		retry := r.retryFor(cfg)

		// Bounds same-provider tries even when a concurrent success resets the
		// shared attempt counter.
		budget := max(retry.MaxRetries, 1) + 1

		for tries := 0; tries < budget; tries++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			check := r.tracker.Evaluate(id, pending)
			if !check.Allowed {
				r.stats.IncrementRateLimited()
				r.metrics.RecordRateLimited(id, string(check.Dimension))
				r.logger.InfoContext(ctx, "Provider rate limited",
					"provider", id,
					"dimension", check.Dimension,
					"limit", check.Limit,
					"current", check.Current,
					"retry_after", check.RetryAfter,
				)
				if lastErr == nil {
					last = recovery.Context{Provider: id, Operation: Operation, Kind: backend.KindRateLimit}
				}
				break
			}

			resp.Attempts++
			a := &attempt{provider: id, backend: b, request: providerReq}
			err := r.attempt(ctx, a, resp.Attempts, call)
			if err == nil {
				r.commit(ctx, a)
				return a, nil
			}

			if errors.Is(ctx.Err(), context.Canceled) {
				return nil, ctx.Err()
			}

			kind := failure.Classify(err)
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				kind = backend.KindTimeout
			}
			r.metrics.RecordError(id, string(kind))

			rc := recovery.Context{
				Provider:         id,
				Operation:        Operation,
				Kind:             kind,
				Err:              err,
				MaxRetries:       retry.MaxRetries,
				BaseDelay:        retry.BaseDelay,
				MaxDelay:         retry.MaxDelay,
				UseBackoff:       retry.UseBackoff,
				HasAlternateAuth: cfg.AltCredential,
				RetryAfter:       failure.Extract(err).RetryAfter,
			}
			res := r.recovery.Recover(ctx, rc)
			tracing.SetRecovery(trace.SpanFromContext(ctx), string(res.Strategy))
			r.stats.IncrementRecovery(string(res.Strategy))
			r.metrics.RecordRecovery(id, string(kind), string(res.Strategy), res.Success, res.RequiresUserIntervention)
			last, lastErr, result = rc, err, &res

			r.logger.WarnContext(ctx, "Provider attempt failed",
				"provider", id,
				"kind", kind,
				"strategy", res.Strategy,
				"recovery_attempt", res.Attempt,
				"error", err,
			)

			if cerr := ctx.Err(); cerr != nil {
				if errors.Is(cerr, context.Canceled) {
					return nil, cerr
				}
				final := r.recovery.Execute(ctx, recovery.StrategyUserIntervention, rc, res.Attempt)
				return nil, &FailureError{Provider: id, Kind: kind, Result: final, Err: err}
			}

			if !r.sameProvider(res, providerReq) {
				if res.Strategy == recovery.StrategyNoRecovery {
					return nil, &FailureError{Provider: id, Kind: kind, Result: res, Err: err}
				}
				break
			}
		}
	}

	return nil, r.exhausted(ctx, attempted, last, lastErr, result)
}

// sameProvider reports whether a recovery outcome asks for another try on the
// same provider, switching req to API key auth when that is the outcome.
func (r *Router) sameProvider(res recovery.Result, req *backend.Request) bool {
	switch res.Strategy {
	case recovery.StrategyRetry, recovery.StrategyRefreshTokens:
		return res.Success
	case recovery.StrategyFallbackToAPIKey:
		if req.Options.AuthMode == backend.AuthModeAPIKey {
			return false
		}
		req.Options.AuthMode = backend.AuthModeAPIKey
		return true
	default:
		return false
	}
}

// attempt runs one admitted call. The concurrency slot is released when the
// call returns unless the call detached it.
func (r *Router) attempt(ctx context.Context, a *attempt, n int, call callFunc) error {
	ctx, span := r.tracer.StartAttempt(ctx, a.provider, n)
	a.release = r.acquire(a.provider)

	start := r.clock.Now()
	err := call(ctx, a)
	if !a.detached {
		a.release()
	}

	outcome := metrics.OutcomeSuccess
	var kind string
	switch {
	case err == nil:
		tracing.SetTokens(span, a.usage.PromptTokens, a.usage.CompletionTokens, a.usage.TotalTokens)
	case errors.Is(err, context.Canceled):
		outcome = metrics.OutcomeCanceled
	default:
		outcome = metrics.OutcomeFailure
		kind = string(failure.Classify(err))
	}
	r.metrics.RecordAttempt(a.provider, outcome, r.clock.Now().Sub(start))
	tracing.End(span, err, kind)
	return err
}

// acquire takes a concurrency slot and returns its single-use release func.
func (r *Router) acquire(provider string) func() {
	release := r.tracker.Acquire(provider)
	r.metrics.IncInFlight(provider)

	var once sync.Once
	return func() {
		once.Do(func() {
			release()
			r.metrics.DecInFlight(provider)
		})
	}
}

// commit records a successful attempt against the provider's quota.
func (r *Router) commit(ctx context.Context, a *attempt) {
	r.tracker.Update(a.provider, ratelimit.DimensionRequests, 1)
	r.commitTokens(a.provider, a.usage.TotalTokens)
	r.recovery.Succeeded(recovery.Key{Provider: a.provider, Operation: Operation})

	r.logger.DebugContext(ctx, "Quota committed",
		"provider", a.provider,
		"total_tokens", a.usage.TotalTokens,
	)
}

func (r *Router) commitTokens(provider string, tokens int) {
	if tokens > 0 {
		r.tracker.Update(provider, ratelimit.DimensionTokens, int64(tokens))
		r.metrics.RecordTokens(provider, tokens)
	}
	if state, ok := r.tracker.State(provider); ok {
		r.metrics.UpdateWindow(provider, state.RequestCount, state.TokenCount)
	}
}

// countTokens returns the pending token estimate for admission, 0 when the
// backend cannot count.
func (r *Router) countTokens(ctx context.Context, provider string, b backend.Backend, req *backend.Request) int {
	n, err := b.CountTokens(ctx, req.Messages)
	if err != nil {
		r.logger.DebugContext(ctx, "Token count unavailable",
			"provider", provider,
			"error", err,
		)
		return 0
	}
	return max(n, 0)
}

// exhausted builds the error returned when no chain member served the request.
func (r *Router) exhausted(ctx context.Context, attempted []string, last recovery.Context, lastErr error, result *recovery.Result) error {
	var final recovery.Result
	if result != nil && result.RequiresUserIntervention {
		final = *result
	} else {
		attempt := 0
		if result != nil {
			attempt = result.Attempt
		}
		final = r.recovery.Execute(ctx, recovery.StrategyUserIntervention, last, attempt)
	}

	return &ExhaustedError{
		Attempted: attempted,
		Result:    final,
		LastError: lastErr,
	}
}
