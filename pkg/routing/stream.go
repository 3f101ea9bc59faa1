package routing

import (
	"context"

	"switchboard-hq/relay/pkg/backend"
)

// Stream routes a request like Execute but returns the provider's event
// stream instead of draining it. Admission, recovery and fallback apply to
// establishing the stream; an EventError received after that is forwarded
// to the caller as is.
//
// The concurrency slot is held until the returned channel is closed, which
// happens after the provider's stream ends or ctx is cancelled. Token usage
// from the done event is committed against the provider's quota.
func (r *Router) Stream(ctx context.Context, target string, req *backend.Request) (<-chan backend.Event, *Response, error) {
	resp := &Response{}
	out := make(chan backend.Event)

	call := func(ctx context.Context, a *attempt) error {
		events, err := a.backend.Generate(ctx, a.request)
		if err != nil {
			return err
		}
		a.detached = true
		go r.forward(ctx, a, events, out)
		return nil
	}

	if _, err := r.route(ctx, target, req, call, resp); err != nil {
		return nil, nil, err
	}
	return out, resp, nil
}

// forward copies events to out and releases the attempt's slot when the
// source stream ends or ctx is done.
func (r *Router) forward(ctx context.Context, a *attempt, events <-chan backend.Event, out chan<- backend.Event) {
	defer close(out)
	defer a.release()

	for ev := range events {
		if ev.Type == backend.EventDone {
			u := usageOf(ev)
			r.commitTokens(a.provider, u.TotalTokens)
		}

		select {
		case out <- ev:
		case <-ctx.Done():
			r.logger.DebugContext(ctx, "Stream consumer gone, draining provider stream",
				"provider", a.provider,
			)
			for range events {
			}
			return
		}
	}
}
