package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Load loads configuration from file
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default config locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")           // Current directory
		v.AddConfigPath("./configs")   // Project configs directory
		v.AddConfigPath("./config")    // Alternative config directory
		v.AddConfigPath("/etc/soltix") // System-wide config
	}

	// Set defaults
	setDefaults(v)

	// Enable environment variable overrides (SOLTIX_ENGINE_MAX_DATAPOINTS, ...)
	v.SetEnvPrefix("SOLTIX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; use defaults
			return parseConfig(v)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return parseConfig(v)
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	// Server defaults
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.http_port", d.Server.HTTPPort)
	v.SetDefault("server.grpc_port", d.Server.GRPCPort)
	v.SetDefault("server.request_timeout", d.Server.RequestTimeout)
	v.SetDefault("server.body_limit", d.Server.BodyLimit)

	// Engine defaults
	v.SetDefault("engine.max_datapoints", d.Engine.MaxDatapoints)
	v.SetDefault("engine.timezone", d.Engine.Timezone)
	v.SetDefault("engine.rpca_max_iterations", d.Engine.RPCAMaxIterations)
	v.SetDefault("engine.kmeans_max_iterations", d.Engine.KMeansMaxIterations)
	v.SetDefault("engine.random_seed", d.Engine.RandomSeed)
	v.SetDefault("engine.bootstrap_window", d.Engine.BootstrapWindow)
	v.SetDefault("engine.page_size", d.Engine.PageSize)

	// Datastore defaults
	v.SetDefault("datastore.type", d.Datastore.Type)
	v.SetDefault("datastore.badger.path", d.Datastore.Badger.Path)
	v.SetDefault("datastore.badger.codec", d.Datastore.Badger.Codec)
	v.SetDefault("datastore.redis.url", d.Datastore.Redis.URL)
	v.SetDefault("datastore.redis.key_prefix", d.Datastore.Redis.KeyPrefix)

	// Metadata defaults
	v.SetDefault("metadata.type", d.Metadata.Type)
	v.SetDefault("metadata.etcd.endpoints", d.Metadata.Etcd.Endpoints)
	v.SetDefault("metadata.etcd.dial_timeout", d.Metadata.Etcd.DialTimeout)
	v.SetDefault("metadata.etcd.prefix", d.Metadata.Etcd.Prefix)
	v.SetDefault("metadata.etcd.cache_ttl", d.Metadata.Etcd.CacheTTL)

	// Ingest defaults
	v.SetDefault("ingest.enabled", d.Ingest.Enabled)
	v.SetDefault("ingest.type", d.Ingest.Type)
	v.SetDefault("ingest.url", d.Ingest.URL)
	v.SetDefault("ingest.subject", d.Ingest.Subject)
	v.SetDefault("ingest.group", d.Ingest.Group)
	v.SetDefault("ingest.redis_stream", d.Ingest.RedisStream)

	// Auth defaults
	v.SetDefault("auth.enabled", d.Auth.Enabled)

	// Logging defaults
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output_path", d.Logging.OutputPath)
}

// parseConfig parses viper config into Config struct
func parseConfig(v *viper.Viper) (*Config, error) {
	var cfg Config

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// LoadOrDefault loads configuration from file or returns default config
func LoadOrDefault(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		// Return default configuration
		return DefaultConfig()
	}
	return cfg
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			HTTPPort:       5580,
			GRPCPort:       5581,
			RequestTimeout: 30 * time.Second,
			BodyLimit:      16 * 1024 * 1024,
		},
		Engine: EngineConfig{
			MaxDatapoints:       100000,
			Timezone:            "UTC",
			RPCAMaxIterations:   228,
			KMeansMaxIterations: 100,
			RandomSeed:          1,
			BootstrapWindow:     7 * 24 * time.Hour,
			PageSize:            1024,
		},
		Datastore: DatastoreConfig{
			Type: "memory",
			Badger: BadgerConfig{
				Path:  "./data/series",
				Codec: "snappy",
			},
			Redis: RedisConfig{
				URL:       "redis://localhost:6379/0",
				KeyPrefix: "soltix:series:",
			},
		},
		Metadata: MetadataConfig{
			Type: "memory",
			Etcd: EtcdConfig{
				Endpoints:   []string{"http://localhost:2379"},
				DialTimeout: 5 * time.Second,
				Prefix:      "/soltix/metadata/",
				CacheTTL:    30 * time.Second,
			},
		},
		Ingest: IngestConfig{
			Type:        "nats",
			URL:         "nats://localhost:4222",
			Subject:     "soltix.series",
			Group:       "transformd",
			RedisStream: "soltix",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			OutputPath: "stdout",
		},
	}
}
