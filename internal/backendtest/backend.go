// Package backendtest provides test doubles for the backend contract.
package backendtest

import (
	"context"
	"sync"

	"switchboard-hq/relay/pkg/backend"
)

// Step scripts the outcome of one Generate call.
type Step struct {
	// Err is returned from Generate before any stream is opened.
	Err error

	// Events are sent on the stream in order. The stream is closed after the
	// last event.
	Events []backend.Event

	// Block keeps the stream open until the request context is cancelled.
	Block bool

	// Started, if set, is closed once Generate has been entered.
	Started chan struct{}
}

// Backend is a scriptable fake backend.Backend. Each Generate call consumes
// the next Step; once the script is exhausted the last step repeats. With no
// script every call succeeds with "mock response".
type Backend struct {
	name string

	mu        sync.Mutex
	steps     []Step
	calls     int
	requests  []*backend.Request
	tokens    int
	tokensErr error
	configErr error
}

// New creates a fake backend with the given script.
func New(name string, steps ...Step) *Backend {
	return &Backend{name: name, steps: steps}
}

// Name returns the backend name.
func (b *Backend) Name() string {
	return b.name
}

// SetSteps replaces the script and resets the call counter.
func (b *Backend) SetSteps(steps ...Step) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.steps = steps
	b.calls = 0
}

// SetTokenCount sets the value CountTokens returns.
func (b *Backend) SetTokenCount(n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens = n
	b.tokensErr = err
}

// SetConfigError sets the value ValidateConfig returns.
func (b *Backend) SetConfigError(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.configErr = err
}

// Calls returns the number of Generate calls.
func (b *Backend) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

// Requests returns copies of the requests passed to Generate.
func (b *Backend) Requests() []*backend.Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*backend.Request, len(b.requests))
	copy(out, b.requests)
	return out
}

// Generate implements backend.Backend.
func (b *Backend) Generate(ctx context.Context, req *backend.Request) (<-chan backend.Event, error) {
	b.mu.Lock()
	step := Success("mock response")
	if len(b.steps) > 0 {
		step = b.steps[min(b.calls, len(b.steps)-1)]
	}
	b.calls++
	b.requests = append(b.requests, req.Clone())
	b.mu.Unlock()

	if step.Started != nil {
		close(step.Started)
	}
	if step.Err != nil {
		return nil, step.Err
	}

	events := make(chan backend.Event)
	go func() {
		defer close(events)
		for _, ev := range step.Events {
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
		if step.Block {
			<-ctx.Done()
		}
	}()
	return events, nil
}

// CountTokens implements backend.Backend.
func (b *Backend) CountTokens(_ context.Context, _ []backend.Message) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tokens, b.tokensErr
}

// ValidateConfig implements backend.Backend.
func (b *Backend) ValidateConfig() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.configErr
}

// Success returns a step that streams text and a done event.
func Success(text string) Step {
	return SuccessWithUsage(text, backend.Usage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30})
}

// SuccessWithUsage returns a step that streams text and a done event
// carrying usage.
func SuccessWithUsage(text string, usage backend.Usage) Step {
	return Step{Events: []backend.Event{
		{Type: backend.EventText, Text: text},
		{Type: backend.EventDone, Usage: &usage},
	}}
}

// Fail returns a step whose Generate call returns err.
func Fail(err error) Step {
	return Step{Err: err}
}

// StreamError returns a step that fails inside the stream.
func StreamError(code, message string) Step {
	return Step{Events: []backend.Event{
		{Type: backend.EventError, Code: code, Message: message},
	}}
}

// Hang returns a step that opens a stream and waits for cancellation.
func Hang(started chan struct{}) Step {
	return Step{Block: true, Started: started}
}

var _ backend.Backend = (*Backend)(nil)
