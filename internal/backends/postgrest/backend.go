package postgrest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/supabase-community/postgrest-go"

	"github.com/anhhuy04/ai-lms-prd/internal/backends"
)

// restPath is where hosted Supabase projects expose PostgREST
const restPath = "/rest/v1"

// Backend implements the Backend interface for a hosted PostgREST endpoint
// (Supabase and compatible services). The API key is sent both as the
// apikey header and as a bearer token.
type Backend struct {
	client    *postgrest.Client
	http      *http.Client
	transport http.RoundTripper
	config    *backends.ConnectionConfig
	restURL   string
	schema    string
	apiKey    string
}

// NewBackend creates a new PostgREST backend
func NewBackend() *Backend {
	return &Backend{
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		transport: http.DefaultTransport,
	}
}

// Name returns the backend name
func (b *Backend) Name() string {
	return "postgrest"
}

// Connect builds the REST client. No request is made until the first call.
func (b *Backend) Connect(config *backends.ConnectionConfig) error {
	b.config = config

	rawURL := strings.TrimSpace(config.Extra["url"])
	if rawURL == "" {
		return fmt.Errorf("postgrest backend requires a store URL (DBOPS_STORE_URL)")
	}
	b.apiKey = config.Extra["api_key"]
	if b.apiKey == "" {
		return fmt.Errorf("postgrest backend requires an API key (DBOPS_STORE_API_KEY)")
	}

	if timeoutStr := config.Extra["timeout"]; timeoutStr != "" {
		if parsed, err := time.ParseDuration(timeoutStr); err == nil {
			b.http.Timeout = parsed
		}
	}

	b.restURL = restURL(rawURL)

	b.schema = config.Schema
	if b.schema == "" {
		b.schema = "public"
	}

	client := b.newClient(context.Background())
	if client.ClientError != nil {
		return fmt.Errorf("failed to create PostgREST client: %w", client.ClientError)
	}
	b.client = client

	return nil
}

// newClient returns a client whose requests are bound to ctx and to the
// store timeout. postgrest-go builds its requests without a context, so
// both are applied in the transport.
func (b *Backend) newClient(ctx context.Context) *postgrest.Client {
	client := postgrest.NewClient(b.restURL, b.schema, map[string]string{
		"apikey":        b.apiKey,
		"Authorization": "Bearer " + b.apiKey,
	})
	if client.ClientError == nil {
		client.Transport.Parent = &contextTransport{
			ctx:     ctx,
			timeout: b.http.Timeout,
			parent:  b.transport,
		}
	}
	return client
}

// Close releases the client (no-op for HTTP)
func (b *Backend) Close() error {
	b.client = nil
	return nil
}

// Insert posts one record to the table endpoint
func (b *Backend) Insert(ctx context.Context, table string, record map[string]any) error {
	if b.client == nil {
		return fmt.Errorf("postgrest client not initialized")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, _, err := b.newClient(ctx).From(table).Insert(record, false, "", "minimal", "").Execute(); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	return nil
}

// Exists selects rows filtered by equality on every column of match
func (b *Backend) Exists(ctx context.Context, table string, match map[string]any) (bool, error) {
	if b.client == nil {
		return false, fmt.Errorf("postgrest client not initialized")
	}
	if len(match) == 0 {
		return false, fmt.Errorf("existence check on %s needs at least one column", table)
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	query := b.newClient(ctx).From(table).Select("*", "", false)
	for column, value := range match {
		if value == nil {
			query = query.Is(column, "null")
			continue
		}
		query = query.Eq(column, backends.FilterValue(value))
	}

	data, _, err := query.Execute()
	if err != nil {
		return false, fmt.Errorf("failed to query %s: %w", table, err)
	}

	var rows []json.RawMessage
	if err := json.Unmarshal(data, &rows); err != nil {
		return false, fmt.Errorf("failed to decode %s rows: %w", table, err)
	}
	return len(rows) > 0, nil
}

// HealthCheck requests the REST root, which lists the exposed tables
func (b *Backend) HealthCheck(ctx context.Context) error {
	if b.client == nil {
		return fmt.Errorf("postgrest client not initialized")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.restURL+"/", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", b.apiKey)
	req.Header.Set("Authorization", "Bearer "+b.apiKey)

	resp, err := b.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("health check failed: status %d, body: %s", resp.StatusCode, string(body))
	}
	return nil
}

// restURL appends the PostgREST path to a bare project URL
func restURL(raw string) string {
	trimmed := strings.TrimRight(raw, "/")
	if strings.HasSuffix(trimmed, restPath) {
		return trimmed
	}
	return trimmed + restPath
}

// contextTransport attaches a context and a deadline to every request. The
// deadline is released when the response body is closed.
type contextTransport struct {
	ctx     context.Context
	timeout time.Duration
	parent  http.RoundTripper
}

func (t *contextTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if t.timeout > 0 {
		ctx, cancel = context.WithTimeout(t.ctx, t.timeout)
	} else {
		ctx, cancel = context.WithCancel(t.ctx)
	}

	resp, err := t.parent.RoundTrip(req.WithContext(ctx))
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
