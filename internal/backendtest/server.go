package backendtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// Server is a mock vendor HTTP endpoint for health probe tests.
// Unknown paths answer 200 OK.
type Server struct {
	server *httptest.Server

	mu          sync.Mutex
	responses   map[string]Response
	requests    int
	lastHeaders http.Header
}

// Response defines a canned response for one path.
type Response struct {
	StatusCode int
	Body       interface{}
	Delay      time.Duration
	Headers    map[string]string
}

// NewServer starts a mock server.
func NewServer() *Server {
	s := &Server{
		responses: make(map[string]Response),
	}
	s.server = httptest.NewServer(http.HandlerFunc(s.handler))
	return s
}

// URL returns the server's base URL.
func (s *Server) URL() string {
	return s.server.URL
}

// Client returns an HTTP client wired to the server.
func (s *Server) Client() *http.Client {
	return s.server.Client()
}

// Close shuts the server down.
func (s *Server) Close() {
	s.server.Close()
}

// SetResponse sets the response for a path.
func (s *Server) SetResponse(path string, resp Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[path] = resp
}

// SetStatus sets a bodyless response status for a path.
func (s *Server) SetStatus(path string, status int) {
	s.SetResponse(path, Response{StatusCode: status})
}

// Requests returns the number of requests received.
func (s *Server) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

// LastHeaders returns the headers of the most recent request.
func (s *Server) LastHeaders() http.Header {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastHeaders.Clone()
}

func (s *Server) handler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests++
	s.lastHeaders = r.Header.Clone()
	resp, ok := s.responses[r.URL.Path]
	s.mu.Unlock()

	if !ok {
		w.WriteHeader(http.StatusOK)
		return
	}

	if resp.Delay > 0 {
		select {
		case <-time.After(resp.Delay):
		case <-r.Context().Done():
			return
		}
	}

	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}

	status := resp.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)

	switch v := resp.Body.(type) {
	case nil:
	case string:
		_, _ = w.Write([]byte(v))
	case []byte:
		_, _ = w.Write(v)
	default:
		_ = json.NewEncoder(w).Encode(v)
	}
}

// OpenAIError returns an OpenAI style error body.
func OpenAIError(typ, code, message string) map[string]interface{} {
	return map[string]interface{}{
		"error": map[string]interface{}{
			"type":    typ,
			"code":    code,
			"message": message,
		},
	}
}

// GoogleError returns a Google style error body.
func GoogleError(code int, status, message string) map[string]interface{} {
	return map[string]interface{}{
		"error": map[string]interface{}{
			"code":    code,
			"status":  status,
			"message": message,
		},
	}
}
