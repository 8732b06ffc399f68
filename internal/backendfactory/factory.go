package backendfactory

import (
	"fmt"
	"strings"

	"github.com/anhhuy04/ai-lms-prd/internal/backends"
	"github.com/anhhuy04/ai-lms-prd/internal/backends/etcd"
	"github.com/anhhuy04/ai-lms-prd/internal/backends/postgresql"
	"github.com/anhhuy04/ai-lms-prd/internal/backends/postgrest"
)

// New returns an unconnected backend for the given name
func New(name string) (backends.Backend, error) {
	backendName := strings.ToLower(strings.TrimSpace(name))
	if backendName == "" {
		backendName = "postgrest" // Default to the hosted REST store
	}

	switch backendName {
	case "postgrest", "supabase":
		return postgrest.NewBackend(), nil
	case "postgresql", "postgres":
		return postgresql.NewBackend(), nil
	case "etcd":
		return etcd.NewBackend(), nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s (supported: postgrest, postgresql, etcd)", name)
	}
}

// Open creates the backend named in config and connects it
func Open(config *backends.ConnectionConfig) (backends.Backend, error) {
	backend, err := New(config.Backend)
	if err != nil {
		return nil, err
	}
	if err := backend.Connect(config); err != nil {
		return nil, fmt.Errorf("failed to connect to %s store: %w", backend.Name(), err)
	}
	return backend, nil
}
