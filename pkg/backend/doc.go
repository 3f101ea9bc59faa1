// Package backend defines the contract every LLM connector implements and the
// canonical error taxonomy vendor failures are mapped into.
//
// # Overview
//
// A Backend is one configured vendor connection (OpenAI, Anthropic, Gemini,
// a local model server, ...). The routing layer never talks to vendor SDKs
// directly; it only sees this package:
//
//   - Backend: streaming generation, token counting, config validation
//   - Event: one element of a generation stream (text, tool call, done, error)
//   - ErrorKind: the canonical failure kinds and the codes surfaced to callers
//   - Typed errors (ProviderError, AuthError, RateLimitError, ...) connectors
//     return so the failure classifier can read status codes and vendor fields
//
// # Streaming
//
// Generate returns a channel that yields events until it is closed. A stream
// ends with exactly one EventDone or EventError:
//
//	events, err := b.Generate(ctx, req)
//	if err != nil {
//	    return err
//	}
//	for ev := range events {
//	    switch ev.Type {
//	    case backend.EventText:
//	        fmt.Print(ev.Text)
//	    case backend.EventError:
//	        return ev.Err()
//	    }
//	}
//
// Implementations must stop sending and close the channel when ctx is done.
package backend
