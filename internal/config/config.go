package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/anhhuy04/ai-lms-prd/internal/backends"
)

// Config holds the application configuration
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Store     StoreConfig     `mapstructure:"store"`
	Seed      SeedConfig      `mapstructure:"seed"`
	Migration MigrationConfig `mapstructure:"migration"`
	Server    ServerConfig    `mapstructure:"server"`
	Queue     QueueConfig     `mapstructure:"queue"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "text" or "json"
}

// StoreConfig describes the tabular store records are seeded into.
// The credential is never compiled in; it comes from DBOPS_STORE_API_KEY,
// DBOPS_STORE_PASSWORD or a config file.
type StoreConfig struct {
	Backend   string        `mapstructure:"backend"` // "postgrest", "postgresql" or "etcd"
	URL       string        `mapstructure:"url"`
	APIKey    string        `mapstructure:"api_key"`
	Host      string        `mapstructure:"host"`
	Port      string        `mapstructure:"port"`
	Username  string        `mapstructure:"username"`
	Password  string        `mapstructure:"password"`
	Database  string        `mapstructure:"database"`
	Schema    string        `mapstructure:"schema"`
	SSLMode   string        `mapstructure:"ssl_mode"`
	Endpoints []string      `mapstructure:"endpoints"`
	Prefix    string        `mapstructure:"prefix"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type SeedConfig struct {
	File       string   `mapstructure:"file"`
	Table      string   `mapstructure:"table"`
	Policy     string   `mapstructure:"policy"` // "always-insert" or "skip-if-exists"
	KeyColumns []string `mapstructure:"key_columns"`
	LabelField string   `mapstructure:"label_field"`
}

type MigrationConfig struct {
	File string `mapstructure:"file"`
}

type ServerConfig struct {
	HTTPPort string `mapstructure:"http_port"`
	APIToken string `mapstructure:"api_token"`
}

type QueueConfig struct {
	Enabled            bool     `mapstructure:"enabled"` // false = synchronous execution
	Type               string   `mapstructure:"type"`    // "kafka" or "pulsar"
	KafkaBrokers       []string `mapstructure:"kafka_brokers"`
	KafkaTopic         string   `mapstructure:"kafka_topic"`
	KafkaGroupID       string   `mapstructure:"kafka_group_id"`
	PulsarURL          string   `mapstructure:"pulsar_url"`
	PulsarTopic        string   `mapstructure:"pulsar_topic"`
	PulsarSubscription string   `mapstructure:"pulsar_subscription"`
}

// Load reads configuration from defaults, an optional config file and
// DBOPS_* environment variables, in increasing order of precedence.
// An empty configFile searches for dbops.yaml in . and ./config.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("DBOPS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("dbops")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg.Store.Backend = strings.ToLower(strings.TrimSpace(cfg.Store.Backend))
	cfg.Seed.Policy = strings.ToLower(strings.TrimSpace(cfg.Seed.Policy))
	cfg.Queue.Type = strings.ToLower(strings.TrimSpace(cfg.Queue.Type))
	cfg.Seed.KeyColumns = splitList(cfg.Seed.KeyColumns)
	cfg.Store.Endpoints = splitList(cfg.Store.Endpoints)
	cfg.Queue.KafkaBrokers = splitList(cfg.Queue.KafkaBrokers)

	return &cfg, nil
}

// ValidateForServer checks the settings only the HTTP server needs
func (c *Config) ValidateForServer() error {
	if c.Server.APIToken == "" {
		return fmt.Errorf("DBOPS_SERVER_API_TOKEN environment variable is required")
	}
	return nil
}

// Connection converts the store section into a backend connection config
func (c *Config) Connection() *backends.ConnectionConfig {
	extra := map[string]string{
		"url":     c.Store.URL,
		"api_key": c.Store.APIKey,
		"prefix":  c.Store.Prefix,
	}
	if c.Store.SSLMode != "" {
		extra["sslmode"] = c.Store.SSLMode
	}
	if len(c.Store.Endpoints) > 0 {
		extra["endpoints"] = strings.Join(c.Store.Endpoints, ",")
	}
	if c.Store.Timeout > 0 {
		extra["timeout"] = c.Store.Timeout.String()
	}

	return &backends.ConnectionConfig{
		Backend:  c.Store.Backend,
		Host:     c.Store.Host,
		Port:     c.Store.Port,
		Username: c.Store.Username,
		Password: c.Store.Password,
		Database: c.Store.Database,
		Schema:   c.Store.Schema,
		Extra:    extra,
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("store.backend", "postgrest")
	v.SetDefault("store.url", "")
	v.SetDefault("store.api_key", "")
	v.SetDefault("store.host", "localhost")
	v.SetDefault("store.port", "5432")
	v.SetDefault("store.username", "postgres")
	v.SetDefault("store.password", "")
	v.SetDefault("store.database", "postgres")
	v.SetDefault("store.schema", "public")
	v.SetDefault("store.ssl_mode", "")
	v.SetDefault("store.endpoints", []string{})
	v.SetDefault("store.prefix", "/dbops/")
	v.SetDefault("store.timeout", 30*time.Second)

	v.SetDefault("seed.file", "data/classes.yaml")
	v.SetDefault("seed.table", "classes")
	v.SetDefault("seed.policy", "always-insert")
	v.SetDefault("seed.key_columns", []string{})
	v.SetDefault("seed.label_field", "name")

	v.SetDefault("migration.file", "db/02_create_question_bank_tables.sql")

	v.SetDefault("server.http_port", "7070")
	v.SetDefault("server.api_token", "")

	v.SetDefault("queue.enabled", false)
	v.SetDefault("queue.type", "kafka")
	v.SetDefault("queue.kafka_brokers", []string{"localhost:9092"})
	v.SetDefault("queue.kafka_topic", "dbops-seed-jobs")
	v.SetDefault("queue.kafka_group_id", "dbops-seed-workers")
	v.SetDefault("queue.pulsar_url", "pulsar://localhost:6650")
	v.SetDefault("queue.pulsar_topic", "dbops-seed-jobs")
	v.SetDefault("queue.pulsar_subscription", "dbops-seed-workers")
}

// splitList trims entries and expands comma separated values, which is how
// list settings arrive from the environment.
func splitList(values []string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
