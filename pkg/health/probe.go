package health

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"switchboard-hq/relay/pkg/backend"
	"switchboard-hq/relay/pkg/telemetry/tracing"
)

// HTTPTarget is the endpoint probed for a provider.
type HTTPTarget struct {
	// URL is requested with GET.
	URL string

	// APIKey is sent as a bearer token when set.
	APIKey string
}

// HTTPProbe probes providers with a lightweight GET request.
// Any 2xx or 3xx response is healthy.
type HTTPProbe struct {
	client *http.Client

	mu      sync.RWMutex
	targets map[string]HTTPTarget
}

// NewHTTPProbe creates an HTTP probe. A nil client uses a client with a
// 10 second timeout.
func NewHTTPProbe(client *http.Client) *HTTPProbe {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPProbe{
		client:  client,
		targets: make(map[string]HTTPTarget),
	}
}

// SetTarget sets the endpoint for a provider.
func (p *HTTPProbe) SetTarget(provider string, target HTTPTarget) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.targets[provider] = target
}

// RemoveTarget removes the endpoint for a provider.
func (p *HTTPProbe) RemoveTarget(provider string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.targets, provider)
}

// Probe implements the Probe signature. Providers without a target are
// reported healthy since there is nothing to check.
func (p *HTTPProbe) Probe(ctx context.Context, provider string) error {
	p.mu.RLock()
	target, ok := p.targets[provider]
	p.mu.RUnlock()

	if !ok || target.URL == "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.URL, nil)
	if err != nil {
		return &backend.ConfigError{Provider: provider, Field: "base_url", Message: err.Error()}
	}
	if target.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+target.APIKey)
	}
	tracing.Inject(ctx, req.Header)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("health probe for %s: %w", provider, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= 400 {
		return providerError(provider, resp, body)
	}
	return nil
}

// vendorError matches the error envelope used by OpenAI, Anthropic and Google.
// Google sends a numeric code and a status string; the others send string
// codes.
type vendorError struct {
	Error struct {
		Type    string          `json:"type"`
		Code    json.RawMessage `json:"code"`
		Status  string          `json:"status"`
		Message string          `json:"message"`
	} `json:"error"`
}

func providerError(provider string, resp *http.Response, body []byte) *backend.ProviderError {
	pe := &backend.ProviderError{
		Provider:   provider,
		StatusCode: resp.StatusCode,
		Message:    resp.Status,
	}

	var ve vendorError
	if json.Unmarshal(body, &ve) != nil {
		return pe
	}
	pe.Type = ve.Error.Type
	pe.Status = ve.Error.Status
	if ve.Error.Message != "" {
		pe.Message = ve.Error.Message
	}
	var code string
	if json.Unmarshal(ve.Error.Code, &code) == nil {
		pe.Code = code
	}
	return pe
}
