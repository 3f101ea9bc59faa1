package failure

import (
	"context"
	"errors"
	"strings"

	"switchboard-hq/relay/pkg/backend"
)

// Classify maps an error to its canonical kind.
func Classify(err error) backend.ErrorKind {
	if err == nil || errors.Is(err, context.Canceled) {
		return backend.KindUnknown
	}
	return ClassifyDetails(Extract(err))
}

// ClassifyDetails maps already-extracted fields to a kind.
func ClassifyDetails(d Details) backend.ErrorKind {
	msg := d.lowerMessage()
	code := strings.ToLower(d.Code)
	status := strings.ToUpper(d.Status)
	typ := strings.ToLower(d.Type)

	if isTransport(d, msg, code) {
		return backend.KindNetwork
	}
	if isTimeout(d, msg, code, status) {
		return backend.KindTimeout
	}
	if kind, ok := authKind(d, msg, code, status, typ); ok {
		return kind
	}
	if isConfiguration(d, msg, code, typ) {
		return backend.KindConfiguration
	}
	if isRateLimit(d, msg, code, status, typ) {
		return backend.KindRateLimit
	}
	if isServer(d, msg, status, typ) {
		return backend.KindServer
	}
	return backend.KindUnknown
}

var transportCodes = []string{
	"econnrefused", "econnreset", "econnaborted", "enotfound", "eai_again",
	"ehostunreach", "enetunreach", "etimedout", "epipe",
}

var transportPhrases = []string{
	"connection refused",
	"connection reset",
	"no such host",
	"network is unreachable",
	"host is unreachable",
	"dial tcp",
	"getaddrinfo",
	"socket hang up",
	"broken pipe",
	"tls handshake",
	"network error",
}

func isTransport(d Details, msg, code string) bool {
	if d.Transport {
		return true
	}
	return containsAny(code, transportCodes) || containsAny(msg, transportCodes) || containsAny(msg, transportPhrases)
}

func isTimeout(d Details, msg, code, status string) bool {
	if d.Timeout || d.StatusCode == 408 || status == "DEADLINE_EXCEEDED" {
		return true
	}
	if code == "timeout" || code == "request_timeout" {
		return true
	}
	return containsAny(msg, []string{"timeout", "timed out", "deadline exceeded"})
}

func authKind(d Details, msg, code, status, typ string) (backend.ErrorKind, bool) {
	refresh := d.Refresh || strings.Contains(msg, "refresh token") || strings.Contains(msg, "refresh_token")
	expired := strings.Contains(msg, "expired") || strings.Contains(code, "expired")
	invalid := code == "invalid_grant" || code == "invalid_token" ||
		strings.Contains(msg, "invalid_grant") || strings.Contains(msg, "invalid") || strings.Contains(msg, "revoked")

	if refresh && (d.Auth || expired || invalid) {
		if expired {
			return backend.KindRefreshTokenExpired, true
		}
		return backend.KindRefreshTokenInvalid, true
	}

	if code == "access_denied" || status == "PERMISSION_DENIED" || typ == "permission_error" ||
		d.StatusCode == 403 ||
		containsAny(msg, []string{"access_denied", "access denied", "permission denied", "forbidden"}) {
		return backend.KindAccessDenied, true
	}

	if code == "token_expired" || containsAny(msg, []string{"token expired", "token has expired", "expired token", "jwt expired"}) ||
		(expired && (code == "invalid_grant" || strings.Contains(msg, "invalid_grant"))) {
		return backend.KindTokenExpired, true
	}

	if hasConfigCode(msg, code) {
		return "", false
	}

	if d.Auth || d.StatusCode == 401 || status == "UNAUTHENTICATED" || typ == "authentication_error" ||
		code == "invalid_grant" || code == "invalid_token" || code == "invalid_api_key" ||
		containsAny(msg, []string{
			"invalid_grant", "invalid_token", "invalid token", "invalid api key", "invalid_api_key",
			"incorrect api key", "unauthorized", "unauthenticated", "authentication failed",
		}) {
		if expired {
			return backend.KindTokenExpired, true
		}
		return backend.KindTokenInvalid, true
	}

	return "", false
}

var configCodes = []string{
	"invalid_client",
	"unauthorized_client",
	"unsupported_grant_type",
	"model_not_found",
	"invalid_config",
}

// hasConfigCode reports a configuration code in the structured code or
// anywhere in the message. OAuth client errors also carry generic auth
// wording ("unauthorized", "authentication failed") and must not be
// treated as bad tokens.
func hasConfigCode(msg, code string) bool {
	for _, c := range configCodes {
		if code == c {
			return true
		}
	}
	return containsAny(msg, configCodes)
}

func isConfiguration(d Details, msg, code, typ string) bool {
	if d.Config {
		return true
	}
	if hasConfigCode(msg, code) || typ == "not_found_error" {
		return true
	}
	return containsAny(msg, []string{
		"invalid_client", "invalid client", "client id", "client_id",
		"unsupported provider", "unknown provider", "model not found", "model_not_found",
		"missing api key", "no api key", "not configured", "configuration error",
	})
}

func isRateLimit(d Details, msg, code, status, typ string) bool {
	if d.RateLimited || d.StatusCode == 429 || status == "RESOURCE_EXHAUSTED" || typ == "rate_limit_error" {
		return true
	}
	if code == "rate_limit_exceeded" || code == "rate_limited" || code == "insufficient_quota" {
		return true
	}
	return containsAny(msg, []string{
		"rate limit", "rate_limit", "ratelimit", "too many requests",
		"quota exceeded", "exceeded your current quota", "resource_exhausted",
		"resource has been exhausted", "requests per minute",
	})
}

func isServer(d Details, msg, status, typ string) bool {
	if d.StatusCode >= 500 && d.StatusCode <= 599 {
		return true
	}
	switch status {
	case "INTERNAL", "UNAVAILABLE", "DATA_LOSS", "UNKNOWN":
		return true
	}
	if typ == "api_error" || typ == "overloaded_error" || typ == "server_error" {
		return true
	}
	return containsAny(msg, []string{
		"internal error", "internal server error", "server error", "service unavailable",
		"bad gateway", "overloaded", "temporarily unavailable",
	})
}

func containsAny(s string, needles []string) bool {
	if s == "" {
		return false
	}
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
