package backends

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
)

// Backend represents a tabular store that records can be seeded into
type Backend interface {
	// Name returns the name of the backend (e.g., "postgrest", "postgresql", "etcd")
	Name() string

	// Connect establishes a connection to the backend
	Connect(config *ConnectionConfig) error

	// Close closes the connection to the backend
	Close() error

	// Insert writes a single record as a new row of table
	Insert(ctx context.Context, table string, record map[string]any) error

	// Exists reports whether table already holds a row whose columns equal match
	Exists(ctx context.Context, table string, match map[string]any) (bool, error)

	// HealthCheck verifies the backend is accessible
	HealthCheck(ctx context.Context) error
}

// ConnectionConfig holds configuration for a backend connection
type ConnectionConfig struct {
	Backend  string // "postgrest", "postgresql", "etcd"
	Host     string
	Port     string
	Username string
	Password string
	Database string
	Schema   string
	Extra    map[string]string // Additional backend-specific config (url, api_key, endpoints, prefix, timeout)
}

// MatchesAll reports whether every column in match has an equal value in row.
// Values are compared after a JSON round trip so numbers decoded from
// different sources compare equal.
func MatchesAll(row, match map[string]any) bool {
	for column, want := range match {
		got, ok := row[column]
		if !ok {
			return false
		}
		if !reflect.DeepEqual(normalize(got), normalize(want)) {
			return false
		}
	}
	return true
}

// FilterValue renders a match value the way REST filters expect it
func FilterValue(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprint(value)
	}
	return string(data)
}

func normalize(value any) any {
	data, err := json.Marshal(value)
	if err != nil {
		return value
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return value
	}
	return out
}
