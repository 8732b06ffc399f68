package postgresql

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/anhhuy04/ai-lms-prd/internal/backends"
)

// Backend implements the Backend interface for PostgreSQL
type Backend struct {
	pool   *pgxpool.Pool
	config *backends.ConnectionConfig
	schema string
}

// NewBackend creates a new PostgreSQL backend
func NewBackend() *Backend {
	return &Backend{}
}

// Name returns the backend name
func (b *Backend) Name() string {
	return "postgresql"
}

// Connect establishes a connection pool to PostgreSQL
func (b *Backend) Connect(config *backends.ConnectionConfig) error {
	b.config = config
	b.schema = config.Schema

	poolConfig, err := pgxpool.ParseConfig(buildDSN(config))
	if err != nil {
		return fmt.Errorf("failed to parse PostgreSQL connection string: %w", err)
	}

	// Configure connection pool settings
	configureConnectionPool(poolConfig)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	b.pool, err = pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return fmt.Errorf("failed to open PostgreSQL connection: %w", err)
	}

	// Test connection
	if err := b.pool.Ping(ctx); err != nil {
		b.pool.Close()
		b.pool = nil
		return fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	return nil
}

// Close closes the PostgreSQL pool
func (b *Backend) Close() error {
	if b.pool != nil {
		b.pool.Close()
		b.pool = nil
	}
	return nil
}

// Insert writes one row. Nested values are sent as JSON text so they land
// in json/jsonb columns unchanged.
func (b *Backend) Insert(ctx context.Context, table string, record map[string]any) error {
	if b.pool == nil {
		return fmt.Errorf("database connection not initialized")
	}

	query, args, err := buildInsert(b.schema, table, record)
	if err != nil {
		return err
	}

	if _, err := b.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	return nil
}

// Exists checks for a row matching every column in match
func (b *Backend) Exists(ctx context.Context, table string, match map[string]any) (bool, error) {
	if b.pool == nil {
		return false, fmt.Errorf("database connection not initialized")
	}

	query, args, err := buildExists(b.schema, table, match)
	if err != nil {
		return false, err
	}

	var exists bool
	if err := b.pool.QueryRow(ctx, query, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check row existence in %s: %w", table, err)
	}
	return exists, nil
}

// HealthCheck verifies the backend is accessible
func (b *Backend) HealthCheck(ctx context.Context) error {
	if b.pool == nil {
		return fmt.Errorf("database connection not initialized")
	}
	return b.pool.Ping(ctx)
}

func buildInsert(schema, table string, record map[string]any) (string, []any, error) {
	if len(record) == 0 {
		return "", nil, fmt.Errorf("record for %s has no columns", table)
	}

	columns := sortedColumns(record)
	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, column := range columns {
		quoted[i] = pgx.Identifier{column}.Sanitize()
		placeholders[i] = "$" + strconv.Itoa(i+1)
		value, err := encodeValue(record[column])
		if err != nil {
			return "", nil, fmt.Errorf("failed to encode column %s: %w", column, err)
		}
		args[i] = value
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		qualifiedTable(schema, table),
		strings.Join(quoted, ", "),
		strings.Join(placeholders, ", "),
	)
	return query, args, nil
}

func buildExists(schema, table string, match map[string]any) (string, []any, error) {
	if len(match) == 0 {
		return "", nil, fmt.Errorf("existence check on %s needs at least one column", table)
	}

	var conditions []string
	var args []any
	for _, column := range sortedColumns(match) {
		value := match[column]
		if value == nil {
			conditions = append(conditions, pgx.Identifier{column}.Sanitize()+" IS NULL")
			continue
		}
		encoded, err := encodeValue(value)
		if err != nil {
			return "", nil, fmt.Errorf("failed to encode column %s: %w", column, err)
		}
		args = append(args, encoded)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", pgx.Identifier{column}.Sanitize(), len(args)))
	}

	query := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE %s)",
		qualifiedTable(schema, table),
		strings.Join(conditions, " AND "),
	)
	return query, args, nil
}

func encodeValue(value any) (any, error) {
	switch value.(type) {
	case map[string]any, []any:
		data, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		return string(data), nil
	}
	return value, nil
}

func qualifiedTable(schema, table string) string {
	if schema == "" {
		return pgx.Identifier{table}.Sanitize()
	}
	return pgx.Identifier{schema, table}.Sanitize()
}

func sortedColumns(values map[string]any) []string {
	columns := make([]string, 0, len(values))
	for column := range values {
		columns = append(columns, column)
	}
	sort.Strings(columns)
	return columns
}

// buildDSN prefers an explicit URL and otherwise assembles one from the
// discrete settings, escaping the credentials.
func buildDSN(config *backends.ConnectionConfig) string {
	if raw := config.Extra["url"]; strings.HasPrefix(raw, "postgres://") || strings.HasPrefix(raw, "postgresql://") {
		return raw
	}

	sslMode := config.Extra["sslmode"]
	if sslMode == "" {
		sslMode = "disable"
	}

	dsn := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(config.Username, config.Password),
		Host:     net.JoinHostPort(config.Host, config.Port),
		Path:     "/" + config.Database,
		RawQuery: url.Values{"sslmode": []string{sslMode}}.Encode(),
	}
	return dsn.String()
}

// configureConnectionPool configures the pool with reasonable defaults
// that can be overridden via environment variables
func configureConnectionPool(cfg *pgxpool.Config) {
	cfg.MaxConns = int32(getEnvInt("DBOPS_DB_MAX_CONNS", 5))
	cfg.MinConns = int32(getEnvInt("DBOPS_DB_MIN_CONNS", 0))
	cfg.MaxConnLifetime = time.Duration(getEnvInt("DBOPS_DB_CONN_MAX_LIFETIME_MINUTES", 5)) * time.Minute
	cfg.MaxConnIdleTime = time.Duration(getEnvInt("DBOPS_DB_CONN_MAX_IDLE_TIME_MINUTES", 1)) * time.Minute
}

// getEnvInt gets an integer environment variable or returns the default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
