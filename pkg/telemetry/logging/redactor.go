package logging

import (
	"log/slog"
	"regexp"
	"strings"
)

// Redactor masks credentials in log attributes.
type Redactor struct {
	patterns []*redactPattern
}

// redactPattern contains a compiled regex and replacement string.
type redactPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

// Credential pattern names.
const (
	PatternAPIKey       = "api_key"
	PatternGoogleAPIKey = "google_api_key"
	PatternBearerToken  = "bearer_token"
	PatternQueryKey     = "query_key"
	PatternPassword     = "password"
)

// sensitiveKeys are attribute keys whose string values are always masked.
var sensitiveKeys = []string{
	"password", "passwd", "secret", "token",
	"api_key", "apikey", "authorization", "credential", "private_key",
}

// NewRedactor creates a Redactor with the built-in credential patterns.
func NewRedactor() *Redactor {
	defs := []struct {
		name        string
		regex       string
		replacement string
	}{
		// OpenAI and Anthropic style secret keys
		{PatternAPIKey, `sk-[a-zA-Z0-9_\-]{8,}`, "sk-***"},
		{PatternGoogleAPIKey, `AIza[0-9A-Za-z_\-]{20,}`, "AIza***"},
		{PatternBearerToken, `Bearer\s+[a-zA-Z0-9\-._~+/]+=*`, "Bearer ***"},
		// key=... in URLs
		{PatternQueryKey, `([?&](?:key|api_key|access_token)=)[^&\s]+`, "${1}***"},
		{PatternPassword, `(password|passwd|pwd)[:=]\s*[^\s]+`, "$1: ***"},
	}

	r := &Redactor{}
	for _, d := range defs {
		r.patterns = append(r.patterns, &redactPattern{
			name:        d.name,
			regex:       regexp.MustCompile(d.regex),
			replacement: d.replacement,
		})
	}
	return r
}

// RedactString masks every credential pattern found in value.
func (r *Redactor) RedactString(value string) string {
	if value == "" {
		return value
	}
	for _, p := range r.patterns {
		value = p.regex.ReplaceAllString(value, p.replacement)
	}
	return value
}

// ReplaceAttr is a slog.HandlerOptions.ReplaceAttr hook. Values under
// sensitive keys are masked entirely; other string and error values are
// scanned for credential patterns.
func (r *Redactor) ReplaceAttr(_ []string, a slog.Attr) slog.Attr {
	kind := a.Value.Kind()
	if (kind == slog.KindString || kind == slog.KindAny) && isSensitiveKey(a.Key) {
		return slog.String(a.Key, maskValue(a.Value.String()))
	}

	switch kind {
	case slog.KindString:
		if s := a.Value.String(); s != "" {
			if redacted := r.RedactString(s); redacted != s {
				return slog.String(a.Key, redacted)
			}
		}
	case slog.KindAny:
		if err, ok := a.Value.Any().(error); ok && err != nil {
			msg := err.Error()
			if redacted := r.RedactString(msg); redacted != msg {
				return slog.String(a.Key, redacted)
			}
		}
	}
	return a
}

func isSensitiveKey(key string) bool {
	lowerKey := strings.ToLower(key)
	for _, sensitive := range sensitiveKeys {
		if strings.Contains(lowerKey, sensitive) {
			return true
		}
	}
	return false
}

// maskValue keeps a short prefix as a debugging hint.
func maskValue(v string) string {
	if v == "" {
		return ""
	}
	if len(v) <= 8 {
		return "***"
	}
	return v[:4] + "***"
}
