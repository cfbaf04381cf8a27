package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// MockANServer serves canned agenda and live-broadcast responses keyed by path.
type MockANServer struct {
	*httptest.Server

	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	hits     map[string]int
}

// NewMockANServer starts a test server that 404s any path without a handler.
func NewMockANServer(t *testing.T) *MockANServer {
	t.Helper()
	m := &MockANServer{
		handlers: make(map[string]http.HandlerFunc),
		hits:     make(map[string]int),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		handler, ok := m.handlers[r.URL.Path]
		m.hits[r.URL.Path]++
		m.mu.Unlock()
		if ok {
			handler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(m.Close)
	return m
}

// Handle installs a handler for path.
func (m *MockANServer) Handle(path string, h http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = h
}

// Hits returns how many requests reached path.
func (m *MockANServer) Hits(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hits[path]
}

// MockJSON serves v as JSON on path.
func (m *MockANServer) MockJSON(path string, v interface{}) {
	m.Handle(path, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // test mock response
	})
}

// MockStatus makes path answer with the given status code.
func (m *MockANServer) MockStatus(path string, code int) {
	m.Handle(path, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(code)
	})
}

// MockAgendaResponse serves entries on /agenda.
func (m *MockANServer) MockAgendaResponse(entries []map[string]interface{}) {
	m.MockJSON("/agenda", map[string]interface{}{"entries": entries})
}

// MockLiveResponse serves the given flux ids on /live as currently broadcasting.
func (m *MockANServer) MockLiveResponse(flux ...string) {
	streams := make([]map[string]string, 0, len(flux))
	for _, f := range flux {
		streams = append(streams, map[string]string{"flux": f})
	}
	m.MockJSON("/live", streams)
}

// MockEditoResponse serves diffusions on /edito.
func (m *MockANServer) MockEditoResponse(diffusions []map[string]interface{}) {
	m.MockJSON("/edito", map[string]interface{}{"diffusion": diffusions})
}
