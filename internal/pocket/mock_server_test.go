package pocket

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// MockResponseConfig holds configuration for mock API responses
type MockResponseConfig struct {
	StatusCode   int
	ResponseBody interface{}
	Headers      map[string]string
}

// capturedRequest is one request seen by the mock server.
type capturedRequest struct {
	Method  string
	Path    string
	Headers http.Header
	Body    map[string]interface{}
}

// mockPocket is a test server that replays a fixed response and records
// every request it receives.
type mockPocket struct {
	*httptest.Server

	mu       sync.Mutex
	requests []capturedRequest
}

func (m *mockPocket) Requests() []capturedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]capturedRequest(nil), m.requests...)
}

// MockServer creates a test server that returns the configured response
func MockServer(t *testing.T, config MockResponseConfig) *mockPocket {
	t.Helper()

	m := &mockPocket{}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("Failed to read request body: %v", err)
		}
		var body map[string]interface{}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &body); err != nil {
				t.Errorf("Request body is not JSON: %v", err)
			}
		}

		m.mu.Lock()
		m.requests = append(m.requests, capturedRequest{
			Method:  r.Method,
			Path:    r.URL.Path,
			Headers: r.Header.Clone(),
			Body:    body,
		})
		m.mu.Unlock()

		for k, v := range config.Headers {
			w.Header().Set(k, v)
		}
		if _, exists := config.Headers["Content-Type"]; !exists {
			w.Header().Set("Content-Type", "application/json")
		}

		w.WriteHeader(config.StatusCode)

		if config.ResponseBody == nil {
			return
		}
		var respBytes []byte
		switch body := config.ResponseBody.(type) {
		case string:
			respBytes = []byte(body)
		case []byte:
			respBytes = body
		default:
			respBytes, err = json.Marshal(body)
			if err != nil {
				t.Errorf("Failed to marshal mock response: %v", err)
				return
			}
		}
		if _, err := w.Write(respBytes); err != nil {
			t.Errorf("Failed to write response body: %v", err)
		}
	}))
	t.Cleanup(m.Close)
	return m
}
