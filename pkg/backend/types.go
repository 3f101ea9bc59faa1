package backend

import "encoding/json"

// Message represents a single message in a conversation.
type Message struct {
	// Role identifies the message sender (system, user, assistant, tool)
	Role string `json:"role"`

	// Content is the message text content
	Content string `json:"content"`

	// ToolCalls contains tool calls made by the assistant
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ToolCallID references the tool call a tool message responds to
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// ToolCall represents a tool invocation requested by the model.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// Tool describes a tool the model may call.
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
}

// Options are per-request generation options.
type Options struct {
	// MaxTokens caps the generated output (0 = connector default)
	MaxTokens int `json:"max_tokens,omitempty"`

	// Temperature controls randomness
	Temperature float64 `json:"temperature,omitempty"`

	// AuthMode asks the connector to use a specific credential path.
	// The router sets AuthModeAPIKey after a fallback_to_api_key recovery.
	AuthMode string `json:"auth_mode,omitempty"`
}

// Request is a provider-agnostic generation request.
type Request struct {
	Messages []Message `json:"messages"`
	Tools    []Tool    `json:"tools,omitempty"`
	Options  Options   `json:"options,omitempty"`
}

// Clone returns a shallow copy of the request with its own Options value.
func (r *Request) Clone() *Request {
	if r == nil {
		return &Request{}
	}
	c := *r
	return &c
}

// Usage tracks token consumption for a generation.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// EventType identifies the kind of stream event.
type EventType string

// Stream event types.
const (
	EventText     EventType = "text"
	EventToolCall EventType = "tool_call"
	EventDone     EventType = "done"
	EventError    EventType = "error"
)

// Event is one element of a generation stream.
type Event struct {
	Type EventType `json:"type"`

	// Text is set for EventText
	Text string `json:"text,omitempty"`

	// ToolCall is set for EventToolCall
	ToolCall *ToolCall `json:"tool_call,omitempty"`

	// Usage may be set for EventDone
	Usage *Usage `json:"usage,omitempty"`

	// Code and Message are set for EventError
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`

	// Cause optionally carries the connector's original error for EventError
	Cause error `json:"-"`
}

// Err converts an EventError into an error. It returns nil for other events.
func (e Event) Err() error {
	if e.Type != EventError {
		return nil
	}
	if e.Cause != nil {
		return &StreamError{Code: e.Code, Message: e.Message, Cause: e.Cause}
	}
	return &StreamError{Code: e.Code, Message: e.Message}
}

// Auth modes understood by connectors.
const (
	AuthModeDefault = ""
	AuthModeAPIKey  = "api_key"
)

// Message role constants
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)
