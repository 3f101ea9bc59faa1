package failure

import (
	"context"
	"errors"
	"net"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"time"

	"switchboard-hq/relay/pkg/backend"
)

// Details holds the structured fields the classifier reads.
// Callers that already have these fields can use ClassifyDetails directly.
type Details struct {
	// Message is the error text.
	Message string

	// StatusCode is the HTTP status code, 0 if unknown.
	StatusCode int

	// Status is the vendor status string (e.g. RESOURCE_EXHAUSTED).
	Status string

	// Type is the vendor error type (e.g. overloaded_error).
	Type string

	// Code is the vendor or transport error code (e.g. invalid_grant, ECONNREFUSED).
	Code string

	// Transport is set when a connectivity failure was detected structurally.
	Transport bool

	// Timeout is set for an explicit timeout signal.
	Timeout bool

	// Auth is set when the error is a typed authentication failure.
	Auth bool

	// Refresh is set when the failure came from a token refresh exchange.
	Refresh bool

	// Config is set when the error is a typed configuration failure.
	Config bool

	// RateLimited is set when the error is a typed rate limit failure.
	RateLimited bool

	// RetryAfter is the vendor supplied retry hint, if any.
	RetryAfter time.Duration
}

var statusInMessage = regexp.MustCompile(`(?i)\b(?:status|http|code)\b[^0-9]{0,8}([1-5][0-9]{2})\b`)

// Extract builds Details from an error chain.
func Extract(err error) Details {
	if err == nil {
		return Details{}
	}

	d := Details{Message: err.Error()}

	var provErr *backend.ProviderError
	if errors.As(err, &provErr) {
		d.StatusCode = provErr.StatusCode
		d.Status = provErr.Status
		d.Type = provErr.Type
		d.Code = provErr.Code
	}

	var authErr *backend.AuthError
	if errors.As(err, &authErr) {
		d.Auth = true
		d.Refresh = authErr.Refresh
		if authErr.Code != "" {
			d.Code = authErr.Code
		}
	}

	var rlErr *backend.RateLimitError
	if errors.As(err, &rlErr) {
		d.RateLimited = true
		d.RetryAfter = rlErr.RetryAfter
	}

	var cfgErr *backend.ConfigError
	if errors.As(err, &cfgErr) {
		d.Config = true
	}

	var streamErr *backend.StreamError
	if errors.As(err, &streamErr) && d.Code == "" {
		d.Code = streamErr.Code
	}

	var timeoutErr *backend.TimeoutError
	if errors.As(err, &timeoutErr) || errors.Is(err, context.DeadlineExceeded) {
		d.Timeout = true
	}

	extractTransport(err, &d)

	if d.StatusCode == 0 {
		if m := statusInMessage.FindStringSubmatch(d.Message); len(m) == 2 {
			d.StatusCode, _ = strconv.Atoi(m[1])
		}
	}

	return d
}

var transportErrnos = map[syscall.Errno]string{
	syscall.ECONNREFUSED: "ECONNREFUSED",
	syscall.ECONNRESET:   "ECONNRESET",
	syscall.ECONNABORTED: "ECONNABORTED",
	syscall.EHOSTUNREACH: "EHOSTUNREACH",
	syscall.ENETUNREACH:  "ENETUNREACH",
	syscall.ETIMEDOUT:    "ETIMEDOUT",
	syscall.EPIPE:        "EPIPE",
}

func extractTransport(err error, d *Details) {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		if code, ok := transportErrnos[errno]; ok {
			d.Transport = true
			if d.Code == "" {
				d.Code = code
			}
			return
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		d.Transport = true
		if d.Code == "" {
			d.Code = "ENOTFOUND"
		}
		return
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Op == "dial" || !opErr.Timeout() {
			d.Transport = true
			return
		}
		d.Timeout = true
		return
	}

	// Client-side timeouts from net/http surface as *url.Error with Timeout().
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		d.Timeout = true
		return
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		d.Timeout = true
	}
}

func (d Details) lowerMessage() string {
	return strings.ToLower(d.Message)
}
