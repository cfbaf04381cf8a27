package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/legibot/backend/anapi"
	"github.com/legibot/backend/interaction"
	"github.com/legibot/backend/nav"
)

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }

type fakeAgenda struct {
	entries []anapi.Entry
	err     error
	got     []nav.State
}

func (f *fakeAgenda) Fetch(_ context.Context, s nav.State) ([]anapi.Entry, error) {
	f.got = append(f.got, s)
	return f.entries, f.err
}

func testRouter() *interaction.Router {
	r := interaction.NewRouter()
	r.HandleCommand("ping", func(ctx context.Context, req *interaction.Request) (*interaction.Response, error) {
		return &interaction.Response{Ephemeral: true, Content: "pong"}, nil
	})
	r.HandleButton("boom", func(ctx context.Context, req *interaction.Request, payload string) (*interaction.Response, error) {
		return nil, errors.New("boom")
	})
	return r
}

func newTestMux(t *testing.T, deps Deps) http.Handler {
	t.Helper()
	t.Setenv("RATE_LIMIT_ENABLED", "0")
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return NewMux(ctx, deps)
}

func TestHealthzOK(t *testing.T) {
	h := newTestMux(t, Deps{DB: fakePinger{}})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body=%s", rr.Code, rr.Body.String())
	}
	if got := rr.Body.String(); got != "ok" {
		t.Fatalf("expected ok body, got %q", got)
	}
	if rr.Header().Get("X-Correlation-ID") == "" {
		t.Error("expected generated X-Correlation-ID")
	}
}

func TestHealthzDBDown(t *testing.T) {
	h := newTestMux(t, Deps{DB: fakePinger{err: errors.New("down")}})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}

func TestCorrelationIDPropagated(t *testing.T) {
	h := newTestMux(t, Deps{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Correlation-ID", "abc-123")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get("X-Correlation-ID"); got != "abc-123" {
		t.Errorf("X-Correlation-ID = %q", got)
	}
}

func TestReadyz(t *testing.T) {
	tests := []struct {
		name       string
		deps       Deps
		wantCode   int
		wantFailed string
	}{
		{"ready", Deps{DB: fakePinger{}, Checks: []Check{{Name: "live", Fn: func(context.Context) error { return nil }}}}, http.StatusOK, ""},
		{"database down", Deps{DB: fakePinger{err: errors.New("down")}}, http.StatusServiceUnavailable, "database"},
		{"upstream down", Deps{DB: fakePinger{}, Checks: []Check{{Name: "live", Fn: func(context.Context) error { return errors.New("timeout") }}}}, http.StatusServiceUnavailable, "live"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			newTestMux(t, tt.deps).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
			if rr.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d, body=%s", tt.wantCode, rr.Code, rr.Body.String())
			}
			var resp map[string]string
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp["failed_check"] != tt.wantFailed {
				t.Errorf("failed_check = %q, want %q", resp["failed_check"], tt.wantFailed)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	rr := httptest.NewRecorder()
	newTestMux(t, Deps{}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func postInteraction(t *testing.T, h http.Handler, body string, auth string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/interactions", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestInteractionsEndpoint(t *testing.T) {
	h := newTestMux(t, Deps{Router: testRouter()})

	rr := postInteraction(t, h, `{"type":"command","command":"ping"}`, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body=%s", rr.Code, rr.Body.String())
	}
	var resp interaction.Response
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Content != "pong" || !resp.Ephemeral {
		t.Errorf("resp = %+v", resp)
	}

	tests := []struct {
		name string
		body string
		want int
	}{
		{"bad json", `{"type":`, http.StatusBadRequest},
		{"unknown command", `{"type":"command","command":"nope"}`, http.StatusNotFound},
		{"unknown button", `{"type":"button","custom_id":"nope,1"}`, http.StatusNotFound},
		{"handler error", `{"type":"button","custom_id":"boom,x"}`, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rr := postInteraction(t, h, tt.body, ""); rr.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rr.Code)
			}
		})
	}

	get := httptest.NewRecorder()
	h.ServeHTTP(get, httptest.NewRequest(http.MethodGet, "/interactions", nil))
	if get.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET expected 405, got %d", get.Code)
	}
}

func TestInteractionsRequiresToken(t *testing.T) {
	h := newTestMux(t, Deps{Router: testRouter(), InteractionsToken: "tok"})
	body := `{"type":"command","command":"ping"}`
	if rr := postInteraction(t, h, body, ""); rr.Code != http.StatusUnauthorized {
		t.Errorf("no token: expected 401, got %d", rr.Code)
	}
	if rr := postInteraction(t, h, body, "Bearer tok"); rr.Code != http.StatusOK {
		t.Errorf("valid token: expected 200, got %d", rr.Code)
	}
}

func TestInteractionsRateLimited(t *testing.T) {
	t.Setenv("RATE_LIMIT_ENABLED", "1")
	t.Setenv("RATE_LIMIT_REQUESTS_PER_IP", "2")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewMux(ctx, Deps{Router: testRouter()})
	body := `{"type":"command","command":"ping"}`
	for i := 0; i < 2; i++ {
		if rr := postInteraction(t, h, body, ""); rr.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rr.Code)
		}
	}
	if rr := postInteraction(t, h, body, ""); rr.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", rr.Code)
	}
}

func TestAgendaICS(t *testing.T) {
	start := time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC)
	src := &fakeAgenda{entries: []anapi.Entry{
		{ID: "RUANR5L16S2024IDS1", Title: "Questions au gouvernement", Location: "Hemicycle", Start: start, End: start.Add(2 * time.Hour)},
		{Title: "Commission des lois", Organ: "CION_LOIS", Start: start.Add(3 * time.Hour)},
	}}
	h := newTestMux(t, Deps{Agenda: src, Location: time.UTC})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/agenda.ics?token=2024-03-04%7CW%7CCP", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body=%s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("Content-Type = %q", ct)
	}
	want := nav.State{Date: nav.Date{Year: 2024, Month: time.March, Day: 4}, Period: nav.Week, Filters: nav.Filters{Public: true, Committees: true}}
	if len(src.got) != 1 || src.got[0] != want {
		t.Errorf("fetched %+v, want %+v", src.got, want)
	}

	cal, err := ics.ParseCalendar(strings.NewReader(rr.Body.String()))
	if err != nil {
		t.Fatalf("parse calendar: %v", err)
	}
	events := cal.Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if p := events[0].GetProperty(ics.ComponentPropertySummary); p == nil || p.Value != "Questions au gouvernement" {
		t.Errorf("summary = %+v", p)
	}
	gotStart, err := events[0].GetStartAt()
	if err != nil || !gotStart.Equal(start) {
		t.Errorf("start = %v, %v; want %v", gotStart, err, start)
	}
	gotEnd, err := events[1].GetEndAt()
	if err != nil || !gotEnd.Equal(start.Add(4*time.Hour)) {
		t.Errorf("default end = %v, %v", gotEnd, err)
	}
}

func TestAgendaICSErrors(t *testing.T) {
	tests := []struct {
		name  string
		src   *fakeAgenda
		query string
		want  int
	}{
		{"malformed token", &fakeAgenda{}, "?token=garbage", http.StatusBadRequest},
		{"missing token", &fakeAgenda{}, "", http.StatusBadRequest},
		{"upstream error", &fakeAgenda{err: errors.New("down")}, "?token=2024-03-04%7CD%7C", http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			newTestMux(t, Deps{Agenda: tt.src}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/agenda.ics"+tt.query, nil))
			if rr.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rr.Code)
			}
		})
	}
}

func TestStartAndShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Run server in background on random port by using :0
	done := make(chan error, 1)
	go func() { done <- Start(ctx, Deps{DB: fakePinger{}}, "127.0.0.1:0") }()

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("server returned error: %v", err)
	}
}
