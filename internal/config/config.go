package config

import (
	"fmt"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Datastore DatastoreConfig `mapstructure:"datastore"`
	Metadata  MetadataConfig  `mapstructure:"metadata"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// AuthConfig represents API key authentication configuration
type AuthConfig struct {
	Enabled bool     `mapstructure:"enabled"`  // Enable/disable API key authentication
	APIKeys []string `mapstructure:"api_keys"` // List of valid API keys
}

// IngestConfig configures the message queue carrying series writes
type IngestConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Type     string `mapstructure:"type"`    // nats (default), redis, kafka, memory
	URL      string `mapstructure:"url"`     // nats://localhost:4222, localhost:6379
	Subject  string `mapstructure:"subject"` // Subject, stream suffix or topic carrying series
	Group    string `mapstructure:"group"`   // Consumer group / durable name
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`

	// Redis-specific options
	RedisDB     int    `mapstructure:"redis_db"`
	RedisStream string `mapstructure:"redis_stream"` // Stream key prefix (default: "soltix")

	// Kafka-specific options
	KafkaBrokers []string `mapstructure:"kafka_brokers"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`            // Bind address (e.g., 0.0.0.0 for all interfaces)
	HTTPPort       int           `mapstructure:"http_port"`       // HTTP server port
	GRPCPort       int           `mapstructure:"grpc_port"`       // gRPC server port (0 disables)
	RequestTimeout time.Duration `mapstructure:"request_timeout"` // Per-request evaluation timeout
	BodyLimit      int           `mapstructure:"body_limit"`      // Max request body in bytes
}

// EngineConfig controls evaluation limits and algorithm defaults
type EngineConfig struct {
	MaxDatapoints       int           `mapstructure:"max_datapoints"`        // Cap on synthesized points (FILL, PROPAGATE, RATE)
	Timezone            string        `mapstructure:"timezone"`              // Location used for day/week aligned buckets (e.g., "Asia/Tokyo", "+09:00")
	RPCAMaxIterations   int           `mapstructure:"rpca_max_iterations"`   // Iteration cap for robust PCA
	KMeansMaxIterations int           `mapstructure:"kmeans_max_iterations"` // Iteration cap for k-means
	RandomSeed          int64         `mapstructure:"random_seed"`           // Seed for random-sample reduction
	BootstrapWindow     time.Duration `mapstructure:"bootstrap_window"`      // History fetched before start for Holt-Winters
	PageSize            int           `mapstructure:"page_size"`             // Points per cursor page
}

// DatastoreConfig selects and configures the series store
type DatastoreConfig struct {
	Type   string       `mapstructure:"type"` // memory (default), badger, redis
	Badger BadgerConfig `mapstructure:"badger"`
	Redis  RedisConfig  `mapstructure:"redis"`
}

// BadgerConfig represents the embedded block store configuration
type BadgerConfig struct {
	Path     string `mapstructure:"path"`
	InMemory bool   `mapstructure:"in_memory"`
	Codec    string `mapstructure:"codec"` // snappy (default), zstd
}

// RedisConfig represents the sorted-set store configuration
type RedisConfig struct {
	URL       string `mapstructure:"url"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// MetadataConfig selects and configures the metadata lookup
type MetadataConfig struct {
	Type string     `mapstructure:"type"` // memory (default), etcd
	Etcd EtcdConfig `mapstructure:"etcd"`
}

// EtcdConfig represents etcd configuration
type EtcdConfig struct {
	Endpoints   []string      `mapstructure:"endpoints"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	Username    string        `mapstructure:"username"`
	Password    string        `mapstructure:"password"`
	Prefix      string        `mapstructure:"prefix"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, file path
	TimeFormat string `mapstructure:"time_format"` // RFC3339, Unix, UnixMs, etc
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("engine config: %w", err)
	}

	if err := c.Datastore.Validate(); err != nil {
		return fmt.Errorf("datastore config: %w", err)
	}

	if err := c.Metadata.Validate(); err != nil {
		return fmt.Errorf("metadata config: %w", err)
	}

	if err := c.Ingest.Validate(); err != nil {
		return fmt.Errorf("ingest config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates server configuration
func (c *ServerConfig) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid http_port: %d", c.HTTPPort)
	}

	if c.GRPCPort < 0 || c.GRPCPort > 65535 {
		return fmt.Errorf("invalid grpc_port: %d", c.GRPCPort)
	}

	if c.GRPCPort == c.HTTPPort {
		return fmt.Errorf("http_port and grpc_port cannot be the same")
	}

	if c.RequestTimeout < 0 {
		return fmt.Errorf("request_timeout must not be negative")
	}

	return nil
}

// Validate validates engine configuration
func (c *EngineConfig) Validate() error {
	if c.MaxDatapoints <= 0 {
		return fmt.Errorf("engine.max_datapoints must be positive")
	}

	if c.RPCAMaxIterations <= 0 {
		return fmt.Errorf("engine.rpca_max_iterations must be positive")
	}

	if c.KMeansMaxIterations <= 0 {
		return fmt.Errorf("engine.kmeans_max_iterations must be positive")
	}

	if c.BootstrapWindow < 0 {
		return fmt.Errorf("engine.bootstrap_window must not be negative")
	}

	if c.PageSize <= 0 {
		return fmt.Errorf("engine.page_size must be positive")
	}

	if c.Timezone != "" {
		if _, err := ParseLocation(c.Timezone); err != nil {
			return fmt.Errorf("engine.timezone: %w", err)
		}
	}

	return nil
}

// Validate validates datastore configuration
func (c *DatastoreConfig) Validate() error {
	switch c.Type {
	case "memory":
	case "badger":
		if !c.Badger.InMemory && c.Badger.Path == "" {
			return fmt.Errorf("datastore.badger.path is required unless in_memory is set")
		}
		if c.Badger.Codec != "snappy" && c.Badger.Codec != "zstd" {
			return fmt.Errorf("datastore.badger.codec must be 'snappy' or 'zstd'")
		}
	case "redis":
		if c.Redis.URL == "" {
			return fmt.Errorf("datastore.redis.url is required")
		}
	default:
		return fmt.Errorf("datastore.type must be one of: memory, badger, redis")
	}

	return nil
}

// Validate validates metadata configuration
func (c *MetadataConfig) Validate() error {
	switch c.Type {
	case "memory":
	case "etcd":
		if err := c.Etcd.Validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("metadata.type must be one of: memory, etcd")
	}

	return nil
}

// Validate validates etcd configuration
func (c *EtcdConfig) Validate() error {
	if len(c.Endpoints) == 0 {
		return fmt.Errorf("etcd.endpoints is required")
	}

	if c.DialTimeout <= 0 {
		return fmt.Errorf("etcd.dial_timeout must be positive")
	}

	if c.CacheTTL < 0 {
		return fmt.Errorf("etcd.cache_ttl must not be negative")
	}

	return nil
}

// Validate validates ingest configuration
func (c *IngestConfig) Validate() error {
	if !c.Enabled {
		return nil
	}

	switch c.Type {
	case "", "nats", "redis", "memory":
	case "kafka":
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("ingest.kafka_brokers is required for kafka")
		}
	default:
		return fmt.Errorf("ingest.type must be one of: nats, redis, kafka, memory")
	}

	if c.Subject == "" {
		return fmt.Errorf("ingest.subject is required")
	}

	return nil
}

// Validate validates logging configuration
func (c *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLevels[c.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{
		"json":    true,
		"console": true,
	}

	if !validFormats[c.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console'")
	}

	return nil
}
