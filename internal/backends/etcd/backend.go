package etcd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/anhhuy04/ai-lms-prd/internal/backends"
)

// Backend implements the Backend interface for Etcd. A table is a key
// prefix and every inserted record is a JSON value under a fresh UUID key,
// so repeated inserts of the same record produce separate rows.
type Backend struct {
	client *clientv3.Client
	config *backends.ConnectionConfig
	prefix string
}

// NewBackend creates a new Etcd backend
func NewBackend() *Backend {
	return &Backend{}
}

// Name returns the backend name
func (b *Backend) Name() string {
	return "etcd"
}

// Connect establishes a connection to Etcd
func (b *Backend) Connect(config *backends.ConnectionConfig) error {
	b.config = config

	// Parse endpoints
	endpoints := []string{fmt.Sprintf("%s:%s", config.Host, config.Port)}
	if config.Extra["endpoints"] != "" {
		endpoints = strings.Split(config.Extra["endpoints"], ",")
		for i, ep := range endpoints {
			endpoints[i] = strings.TrimSpace(ep)
		}
	}

	// Get timeout
	timeout := 5 * time.Second
	if timeoutStr := config.Extra["timeout"]; timeoutStr != "" {
		if parsed, err := time.ParseDuration(timeoutStr); err == nil {
			timeout = parsed
		}
	}

	b.prefix = normalizePrefix(config.Extra["prefix"])

	client, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		Username:    config.Username,
		Password:    config.Password,
		DialTimeout: timeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create etcd client: %w", err)
	}

	b.client = client

	// Test connection
	if err := b.HealthCheck(context.Background()); err != nil {
		_ = client.Close()
		b.client = nil
		return fmt.Errorf("failed to connect to etcd: %w", err)
	}

	return nil
}

// Close closes the Etcd connection
func (b *Backend) Close() error {
	if b.client != nil {
		err := b.client.Close()
		b.client = nil
		return err
	}
	return nil
}

// Insert stores the record as JSON under a new key in the table prefix
func (b *Backend) Insert(ctx context.Context, table string, record map[string]any) error {
	if b.client == nil {
		return fmt.Errorf("etcd client not initialized")
	}

	value, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	key := b.rowKey(table, uuid.NewString())
	if _, err := b.client.Put(ctx, key, string(value)); err != nil {
		return fmt.Errorf("failed to put key %s: %w", key, err)
	}
	return nil
}

// Exists scans the table prefix for a row matching every column in match
func (b *Backend) Exists(ctx context.Context, table string, match map[string]any) (bool, error) {
	if b.client == nil {
		return false, fmt.Errorf("etcd client not initialized")
	}

	resp, err := b.client.Get(ctx, b.tablePrefix(table), clientv3.WithPrefix())
	if err != nil {
		return false, fmt.Errorf("failed to list %s: %w", table, err)
	}

	for _, kv := range resp.Kvs {
		var row map[string]any
		if err := json.Unmarshal(kv.Value, &row); err != nil {
			// Foreign keys under the prefix are not rows
			continue
		}
		if backends.MatchesAll(row, match) {
			return true, nil
		}
	}
	return false, nil
}

// HealthCheck verifies the backend is accessible
func (b *Backend) HealthCheck(ctx context.Context) error {
	if b.client == nil {
		return fmt.Errorf("etcd client not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := b.client.Get(ctx, b.prefix+".health_check"); err != nil {
		return fmt.Errorf("failed to communicate with etcd: %w", err)
	}
	return nil
}

func (b *Backend) tablePrefix(table string) string {
	return b.prefix + strings.Trim(table, "/") + "/"
}

func (b *Backend) rowKey(table, id string) string {
	return b.tablePrefix(table) + id
}

func normalizePrefix(prefix string) string {
	if prefix == "" {
		prefix = "/"
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix
}
