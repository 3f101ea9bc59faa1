package backend

import (
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestProviderError(t *testing.T) {
	t.Run("with status code", func(t *testing.T) {
		err := &ProviderError{
			Provider:   "openai",
			StatusCode: 500,
			Message:    "internal error",
		}

		expected := `provider "openai" error (status 500): internal error`
		if err.Error() != expected {
			t.Errorf("expected %q, got %q", expected, err.Error())
		}
	})

	t.Run("without status code", func(t *testing.T) {
		err := &ProviderError{
			Provider: "openai",
			Message:  "connection failed",
		}

		expected := `provider "openai" error: connection failed`
		if err.Error() != expected {
			t.Errorf("expected %q, got %q", expected, err.Error())
		}
	})

	t.Run("with cause", func(t *testing.T) {
		cause := errors.New("network timeout")
		err := &ProviderError{
			Provider: "openai",
			Message:  "request failed",
			Cause:    cause,
		}

		if !errors.Is(err, cause) {
			t.Error("expected error to wrap cause")
		}
	})
}

func TestAuthError(t *testing.T) {
	err := &AuthError{Provider: "google", Code: "invalid_grant", Message: "token expired"}

	if !strings.Contains(err.Error(), "invalid_grant") {
		t.Errorf("expected code in message, got %q", err.Error())
	}

	plain := &AuthError{Provider: "google", Message: "denied"}
	expected := `provider "google" authentication failed: denied`
	if plain.Error() != expected {
		t.Errorf("expected %q, got %q", expected, plain.Error())
	}
}

func TestRateLimitError(t *testing.T) {
	err := &RateLimitError{Provider: "anthropic", RetryAfter: 30 * time.Second, Message: "slow down"}
	if !strings.Contains(err.Error(), "retry after 30s") {
		t.Errorf("expected retry-after in message, got %q", err.Error())
	}

	noRetry := &RateLimitError{Provider: "anthropic", Message: "slow down"}
	if strings.Contains(noRetry.Error(), "retry after") {
		t.Errorf("did not expect retry-after in message, got %q", noRetry.Error())
	}
}

func TestTimeoutError(t *testing.T) {
	err := &TimeoutError{Provider: "openai", After: 5 * time.Second}

	expected := `provider "openai" request timeout after 5s`
	if err.Error() != expected {
		t.Errorf("expected %q, got %q", expected, err.Error())
	}
	if !err.Timeout() {
		t.Error("expected Timeout() to be true")
	}

	wrapped := &url.Error{Op: "Post", URL: "https://api.openai.com/v1", Err: err}
	if !wrapped.Timeout() {
		t.Error("expected url.Error wrapping TimeoutError to report a timeout")
	}
}

func TestConfigError(t *testing.T) {
	err := &ConfigError{Provider: "openai", Field: "client_id", Message: "missing"}

	expected := `provider "openai" configuration error for field "client_id": missing`
	if err.Error() != expected {
		t.Errorf("expected %q, got %q", expected, err.Error())
	}
}

func TestEventErr(t *testing.T) {
	if err := (Event{Type: EventText, Text: "hi"}).Err(); err != nil {
		t.Errorf("expected nil error for text event, got %v", err)
	}

	cause := errors.New("socket closed")
	err := Event{Type: EventError, Code: "overloaded", Message: "busy", Cause: cause}.Err()
	if err == nil {
		t.Fatal("expected error for error event")
	}
	if !errors.Is(err, cause) {
		t.Error("expected stream error to wrap cause")
	}

	var se *StreamError
	if !errors.As(err, &se) || se.Code != "overloaded" {
		t.Errorf("expected StreamError with code overloaded, got %v", err)
	}
}
