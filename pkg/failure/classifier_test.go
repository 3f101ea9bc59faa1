package failure

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"syscall"
	"testing"
	"time"

	"switchboard-hq/relay/pkg/backend"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want backend.ErrorKind
	}{
		{"nil", nil, backend.KindUnknown},
		{"canceled", context.Canceled, backend.KindUnknown},
		{"wrapped canceled", fmt.Errorf("stream aborted: %w", context.Canceled), backend.KindUnknown},
		{"plain unknown", errors.New("something odd happened"), backend.KindUnknown},

		// transport
		{"econnrefused errno", &net.OpError{Op: "dial", Net: "tcp", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)}, backend.KindNetwork},
		{"dns", &net.DNSError{Err: "no such host", Name: "api.example.com"}, backend.KindNetwork},
		{"connection reset text", errors.New("read: connection reset by peer"), backend.KindNetwork},
		{"enotfound text", errors.New("getaddrinfo ENOTFOUND api.openai.com"), backend.KindNetwork},
		{"dial timeout is transport", errors.New("dial tcp 10.0.0.1:443: i/o timeout"), backend.KindNetwork},

		// timeout
		{"deadline", context.DeadlineExceeded, backend.KindTimeout},
		{"typed timeout", &backend.TimeoutError{Provider: "openai", After: 30 * time.Second}, backend.KindTimeout},
		{"url timeout", &url.Error{Op: "Post", URL: "https://x", Err: &backend.TimeoutError{}}, backend.KindTimeout},
		{"status 408", &backend.ProviderError{Provider: "p", StatusCode: 408, Message: "request timeout"}, backend.KindTimeout},
		{"deadline status", &backend.ProviderError{Provider: "google", Status: "DEADLINE_EXCEEDED", Message: "deadline"}, backend.KindTimeout},
		{"timed out text", errors.New("request timed out"), backend.KindTimeout},

		// auth
		{"invalid grant", &backend.AuthError{Provider: "p", Code: "invalid_grant", Message: "bad grant"}, backend.KindTokenInvalid},
		{"invalid grant expired", errors.New("invalid_grant: token has expired"), backend.KindTokenExpired},
		{"token expired code", &backend.ProviderError{Provider: "p", StatusCode: 401, Code: "token_expired", Message: "expired"}, backend.KindTokenExpired},
		{"status 401", &backend.ProviderError{Provider: "p", StatusCode: 401, Message: "bad key"}, backend.KindTokenInvalid},
		{"invalid api key text", errors.New("Incorrect API key provided"), backend.KindTokenInvalid},
		{"refresh expired", &backend.AuthError{Provider: "p", Refresh: true, Message: "refresh token expired"}, backend.KindRefreshTokenExpired},
		{"refresh invalid", &backend.AuthError{Provider: "p", Refresh: true, Code: "invalid_grant", Message: "revoked"}, backend.KindRefreshTokenInvalid},
		{"refresh text", errors.New("refresh_token is invalid"), backend.KindRefreshTokenInvalid},
		{"access denied code", &backend.AuthError{Provider: "p", Code: "access_denied", Message: "user denied"}, backend.KindAccessDenied},
		{"status 403", &backend.ProviderError{Provider: "p", StatusCode: 403, Message: "no access to model"}, backend.KindAccessDenied},
		{"permission status", &backend.ProviderError{Provider: "google", Status: "PERMISSION_DENIED", Message: "denied"}, backend.KindAccessDenied},

		// configuration
		{"typed config", &backend.ConfigError{Provider: "p", Field: "model", Message: "unsupported"}, backend.KindConfiguration},
		{"invalid client over 401", &backend.ProviderError{Provider: "p", StatusCode: 401, Code: "invalid_client", Message: "bad client"}, backend.KindConfiguration},
		{"unsupported provider text", errors.New("unsupported provider: foo"), backend.KindConfiguration},
		{"unauthorized client text", errors.New("unauthorized_client"), backend.KindConfiguration},
		{"invalid client text", errors.New("invalid_client: client authentication failed"), backend.KindConfiguration},
		{"unsupported grant type over 400", &backend.ProviderError{Provider: "p", StatusCode: 400, Message: "unsupported_grant_type: unauthorized"}, backend.KindConfiguration},
		{"model not found", &backend.ProviderError{Provider: "p", StatusCode: 404, Type: "not_found_error", Message: "model: claude-x"}, backend.KindConfiguration},

		// rate limit
		{"status 429", &backend.ProviderError{Provider: "p", StatusCode: 429, Message: "slow down"}, backend.KindRateLimit},
		{"resource exhausted status", &backend.ProviderError{Provider: "google", Status: "RESOURCE_EXHAUSTED", Message: "quota"}, backend.KindRateLimit},
		{"typed rate limit", &backend.RateLimitError{Provider: "p", RetryAfter: time.Second}, backend.KindRateLimit},
		{"rate limit text", errors.New("Rate limit reached for requests"), backend.KindRateLimit},
		{"http 429 text", errors.New("HTTP 429: slow down"), backend.KindRateLimit},
		{"stream code", &backend.StreamError{Code: "rate_limit_exceeded", Message: "try later"}, backend.KindRateLimit},

		// server
		{"status 500", &backend.ProviderError{Provider: "p", StatusCode: 500, Message: "oops"}, backend.KindServer},
		{"status 529", &backend.ProviderError{Provider: "anthropic", StatusCode: 529, Type: "overloaded_error", Message: "Overloaded"}, backend.KindServer},
		{"unavailable status", &backend.ProviderError{Provider: "google", Status: "UNAVAILABLE", Message: "try again"}, backend.KindServer},
		{"internal error text", errors.New("internal error encountered"), backend.KindServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			if got != tt.want {
				t.Errorf("Expected %s, got %s (err: %v)", tt.want, got, tt.err)
			}
		})
	}
}

func TestClassify_Precedence(t *testing.T) {
	tests := []struct {
		name string
		d    Details
		want backend.ErrorKind
	}{
		{"transport beats timeout", Details{Transport: true, Timeout: true}, backend.KindNetwork},
		{"timeout beats auth", Details{Timeout: true, StatusCode: 401}, backend.KindTimeout},
		{"auth beats config", Details{Auth: true, Config: true}, backend.KindTokenInvalid},
		{"config beats rate limit", Details{Config: true, StatusCode: 429}, backend.KindConfiguration},
		{"rate limit beats server", Details{RateLimited: true, StatusCode: 503}, backend.KindRateLimit},
		{"server", Details{StatusCode: 502}, backend.KindServer},
		{"empty", Details{}, backend.KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyDetails(tt.d); got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestClassify_ResourceExhaustedCode(t *testing.T) {
	err := &backend.ProviderError{Provider: "google", Status: "RESOURCE_EXHAUSTED", Message: "Quota exceeded for aiplatform"}

	kind := Classify(err)
	if kind != backend.KindRateLimit {
		t.Fatalf("Expected %s, got %s", backend.KindRateLimit, kind)
	}
	if kind.Code() != backend.CodeRateLimited {
		t.Errorf("Expected code %s, got %s", backend.CodeRateLimited, kind.Code())
	}
}

func TestExtract(t *testing.T) {
	err := fmt.Errorf("generate: %w", &backend.RateLimitError{Provider: "openai", RetryAfter: 7 * time.Second, Message: "slow"})

	d := Extract(err)
	if !d.RateLimited {
		t.Error("Expected RateLimited to be set")
	}
	if d.RetryAfter != 7*time.Second {
		t.Errorf("Expected retry after 7s, got %v", d.RetryAfter)
	}

	d = Extract(errors.New("upstream returned status 503"))
	if d.StatusCode != 503 {
		t.Errorf("Expected status parsed from message, got %d", d.StatusCode)
	}

	d = Extract(os.NewSyscallError("read", syscall.ECONNRESET))
	if !d.Transport || d.Code != "ECONNRESET" {
		t.Errorf("Expected transport ECONNRESET, got %+v", d)
	}

	if got := Extract(nil); got != (Details{}) {
		t.Errorf("Expected empty details for nil, got %+v", got)
	}
}

func TestUserMessage(t *testing.T) {
	seen := make(map[string]backend.ErrorKind)
	for _, kind := range backend.AllKinds {
		msg := UserMessage(kind)
		if msg == "" {
			t.Errorf("Expected message for %s", kind)
		}
		if prev, ok := seen[msg]; ok && kind != backend.KindUnknown {
			t.Errorf("Kinds %s and %s share message %q", prev, kind, msg)
		}
		seen[msg] = kind
	}

	if UserMessage("bogus") != UserMessage(backend.KindUnknown) {
		t.Error("Expected unknown message for unrecognized kind")
	}
}
