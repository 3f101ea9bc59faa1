package backend

import "context"

// Backend is the uniform interface every vendor connector must implement.
//
// All methods that may block accept a context.Context. Implementations must
// return promptly once the context is cancelled; the router relies on this
// to release concurrency slots on timeout.
type Backend interface {
	// Generate starts a streaming generation. The returned channel is closed
	// after the final EventDone or EventError. Errors that occur before the
	// stream is established are returned directly.
	Generate(ctx context.Context, req *Request) (<-chan Event, error)

	// CountTokens returns the token count for messages (always >= 0).
	CountTokens(ctx context.Context, messages []Message) (int, error)

	// ValidateConfig reports an error when the connector is not usable
	// (missing credentials, unsupported model, ...).
	ValidateConfig() error
}

// Factory builds a Backend from a provider spec. Connector packages register
// factories; the routing layer only receives the constructed Backend.
type Factory func(spec Spec) (Backend, error)

// Spec carries the connector-facing subset of a provider configuration.
type Spec struct {
	// ID is the provider identifier (e.g., "openai", "anthropic-work")
	ID string

	// Model is the model name the connector should use
	Model string

	// BaseURL is the API endpoint base URL
	BaseURL string

	// CredentialRef names the credential in the external credential store
	CredentialRef string
}
