package postgrest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/anhhuy04/ai-lms-prd/internal/backends"
)

type recordedRequest struct {
	method string
	path   string
	query  map[string][]string
	apiKey string
	auth   string
	body   string
}

type fakePostgREST struct {
	mu       sync.Mutex
	requests []recordedRequest
	status   int
	response string
}

func (f *fakePostgREST) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{
		method: r.Method,
		path:   r.URL.Path,
		query:  r.URL.Query(),
		apiKey: r.Header.Get("apikey"),
		auth:   r.Header.Get("Authorization"),
		body:   string(body),
	})
	status, response := f.status, f.response
	f.mu.Unlock()

	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(response))
}

func (f *fakePostgREST) last(t *testing.T) recordedRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		t.Fatal("Expected at least one request")
	}
	return f.requests[len(f.requests)-1]
}

func connect(t *testing.T, fake *fakePostgREST) *Backend {
	t.Helper()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	b := NewBackend()
	err := b.Connect(&backends.ConnectionConfig{
		Backend: "postgrest",
		Schema:  "public",
		Extra: map[string]string{
			"url":     server.URL,
			"api_key": "test-key",
		},
	})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	return b
}

func TestConnect_RequiresURLAndKey(t *testing.T) {
	tests := []struct {
		name  string
		extra map[string]string
	}{
		{name: "missing url", extra: map[string]string{"api_key": "k"}},
		{name: "missing key", extra: map[string]string{"url": "https://example.supabase.co"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBackend()
			if err := b.Connect(&backends.ConnectionConfig{Extra: tt.extra}); err == nil {
				t.Error("Expected Connect() to fail")
			}
		})
	}
}

func TestInsert(t *testing.T) {
	fake := &fakePostgREST{status: http.StatusCreated}
	b := connect(t, fake)

	record := map[string]any{
		"name":    "Mạng máy tính",
		"subject": "2102011",
	}
	if err := b.Insert(t.Context(), "classes", record); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	req := fake.last(t)
	if req.method != http.MethodPost {
		t.Errorf("Expected POST, got %s", req.method)
	}
	if req.path != "/rest/v1/classes" {
		t.Errorf("Expected path /rest/v1/classes, got %s", req.path)
	}
	if req.apiKey != "test-key" {
		t.Errorf("Expected apikey header test-key, got %q", req.apiKey)
	}
	if req.auth != "Bearer test-key" {
		t.Errorf("Expected bearer authorization, got %q", req.auth)
	}

	var sent map[string]any
	if err := json.Unmarshal([]byte(req.body), &sent); err != nil {
		t.Fatalf("Expected JSON body, got %q: %v", req.body, err)
	}
	if sent["subject"] != "2102011" {
		t.Errorf("Expected subject 2102011 in body, got %v", sent["subject"])
	}
}

func TestInsert_ServerRejects(t *testing.T) {
	fake := &fakePostgREST{
		status:   http.StatusConflict,
		response: `{"code":"23505","message":"duplicate key value violates unique constraint","details":null,"hint":null}`,
	}
	b := connect(t, fake)

	if err := b.Insert(t.Context(), "classes", map[string]any{"name": "x"}); err == nil {
		t.Error("Expected Insert() to return the server error")
	}
}

// slowServer answers only after the client gives up
func slowServer(t *testing.T) string {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		w.WriteHeader(http.StatusCreated)
	}))
	t.Cleanup(server.Close)
	return server.URL
}

func TestInsert_StoreTimeout(t *testing.T) {
	b := NewBackend()
	err := b.Connect(&backends.ConnectionConfig{
		Extra: map[string]string{
			"url":     slowServer(t),
			"api_key": "test-key",
			"timeout": "100ms",
		},
	})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	start := time.Now()
	err = b.Insert(context.Background(), "classes", map[string]any{"name": "A"})
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("Expected Insert() to fail on a hung endpoint")
	}
	if elapsed > time.Second {
		t.Errorf("Expected Insert() to give up near 100ms, took %v", elapsed)
	}
}

func TestExists_ContextDeadline(t *testing.T) {
	b := NewBackend()
	err := b.Connect(&backends.ConnectionConfig{
		Extra: map[string]string{
			"url":     slowServer(t),
			"api_key": "test-key",
		},
	})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = b.Exists(ctx, "classes", map[string]any{"name": "A"})
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("Expected Exists() to fail once the context expires")
	}
	if elapsed > time.Second {
		t.Errorf("Expected Exists() to honour the context deadline, took %v", elapsed)
	}
}

func TestExists(t *testing.T) {
	fake := &fakePostgREST{response: `[{"id":"1"}]`}
	b := connect(t, fake)

	exists, err := b.Exists(t.Context(), "classes", map[string]any{"subject": "2102011"})
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if !exists {
		t.Error("Expected row to exist")
	}

	req := fake.last(t)
	if req.method != http.MethodGet {
		t.Errorf("Expected GET, got %s", req.method)
	}
	if got := req.query["subject"]; len(got) != 1 || got[0] != "eq.2102011" {
		t.Errorf("Expected subject=eq.2102011 filter, got %v", got)
	}
}

func TestExists_NoRows(t *testing.T) {
	fake := &fakePostgREST{response: `[]`}
	b := connect(t, fake)

	exists, err := b.Exists(t.Context(), "classes", map[string]any{"subject": "none"})
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if exists {
		t.Error("Expected no row")
	}
}

func TestHealthCheck(t *testing.T) {
	fake := &fakePostgREST{response: `{}`}
	b := connect(t, fake)

	if err := b.HealthCheck(t.Context()); err != nil {
		t.Fatalf("HealthCheck() error = %v", err)
	}
	if req := fake.last(t); !strings.HasPrefix(req.path, "/rest/v1") {
		t.Errorf("Expected health check under /rest/v1, got %s", req.path)
	}

	fake.mu.Lock()
	fake.status = http.StatusUnauthorized
	fake.mu.Unlock()
	if err := b.HealthCheck(t.Context()); err == nil {
		t.Error("Expected unhealthy result on 401")
	}
}

func TestRestURL(t *testing.T) {
	tests := map[string]string{
		"https://abc.supabase.co":          "https://abc.supabase.co/rest/v1",
		"https://abc.supabase.co/":         "https://abc.supabase.co/rest/v1",
		"https://abc.supabase.co/rest/v1":  "https://abc.supabase.co/rest/v1",
		"http://localhost:3000/rest/v1///": "http://localhost:3000/rest/v1",
	}
	for in, want := range tests {
		if got := restURL(in); got != want {
			t.Errorf("restURL(%q) = %q, want %q", in, got, want)
		}
	}
}
