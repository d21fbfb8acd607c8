package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig
	Logging     LogConfig
	RateLimit   RateLimitConfig
	Dispatch    DispatchConfig
	Health      HealthConfig
	LocalTools  LocalToolsConfig
	Postgres    PostgresConfig
	Memory      MemoryConfig
	Cloud       CloudConfig
	GitHub      GitHubConfig
	N8N         N8NConfig
	ObjectStore ObjectStoreConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8000"`
	Host            string        `envconfig:"HOST" default:"0.0.0.0"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"15s"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
	// Scope is "ip" for one budget per client or "global" for one shared budget
	Scope string `envconfig:"RATE_LIMIT_SCOPE" default:"ip"`
}

// DispatchConfig holds dispatcher behaviour.
type DispatchConfig struct {
	Timeout time.Duration `envconfig:"DISPATCH_TIMEOUT" default:"30s"`
	// ExposeErrorDetails renders INTERNAL_ERROR details to clients.
	// Never enable for untrusted callers.
	ExposeErrorDetails bool `envconfig:"EXPOSE_ERROR_DETAILS" default:"false"`
}

// HealthConfig holds the periodic health monitor configuration.
type HealthConfig struct {
	Enabled  bool          `envconfig:"HEALTH_ENABLED" default:"true"`
	Schedule string        `envconfig:"HEALTH_SCHEDULE" default:"@every 1m"`
	Timeout  time.Duration `envconfig:"HEALTH_TIMEOUT" default:"5s"`
}

// LocalToolsConfig points at an optional catalog of extra local tools.
type LocalToolsConfig struct {
	File string `envconfig:"LOCAL_TOOLS_FILE"`
}

// PostgresConfig configures the relational database integration.
type PostgresConfig struct {
	Driver       string `envconfig:"POSTGRES_DRIVER" default:"pgx"`
	DSN          string `envconfig:"POSTGRES_DSN"`
	MaxOpenConns int    `envconfig:"POSTGRES_MAX_OPEN_CONNS" default:"10"`
	MaxRows      int    `envconfig:"POSTGRES_MAX_ROWS" default:"1000"`
}

// MemoryConfig configures the Redis-backed memory store.
type MemoryConfig struct {
	Addr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
	Prefix   string `envconfig:"MEMORY_PREFIX" default:"capgate"`
}

// CloudConfig configures the cloud-infrastructure API integration.
type CloudConfig struct {
	BaseURL string `envconfig:"CLOUD_API_URL"`
	Token   string `envconfig:"CLOUD_API_TOKEN"`
}

// GitHubConfig configures the source-hosting API integration.
type GitHubConfig struct {
	BaseURL string `envconfig:"GITHUB_API_URL" default:"https://api.github.com"`
	Token   string `envconfig:"GITHUB_TOKEN"`
}

// N8NConfig configures the workflow-automation API integration.
type N8NConfig struct {
	BaseURL string `envconfig:"N8N_API_URL"`
	APIKey  string `envconfig:"N8N_API_KEY"`
}

// ObjectStoreConfig configures the S3-compatible object store integration.
// The core treats it as opaque and hands it to that one handler.
type ObjectStoreConfig struct {
	Endpoint      string        `envconfig:"MINIO_ENDPOINT"`
	Port          int           `envconfig:"MINIO_PORT" default:"9000"`
	UseSSL        bool          `envconfig:"MINIO_USE_SSL" default:"false"`
	AccessKey     string        `envconfig:"MINIO_ACCESS_KEY"`
	SecretKey     string        `envconfig:"MINIO_SECRET_KEY"`
	Region        string        `envconfig:"MINIO_REGION" default:"us-east-1"`
	DefaultBucket string        `envconfig:"MINIO_BUCKET" default:"capgate"`
	MaxFileSize   int64         `envconfig:"MINIO_MAX_FILE_SIZE" default:"104857600"`
	AllowedTypes  []string      `envconfig:"MINIO_ALLOWED_TYPES"`
	URLExpiry     time.Duration `envconfig:"MINIO_URL_EXPIRY" default:"1h"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8000",
			Host:            "0.0.0.0",
			ShutdownTimeout: 15 * time.Second,
		},
		Logging: LogConfig{
			Level: "info",
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
			Scope:             "ip",
		},
		Dispatch: DispatchConfig{
			Timeout: 30 * time.Second,
		},
		Health: HealthConfig{
			Enabled:  true,
			Schedule: "@every 1m",
			Timeout:  5 * time.Second,
		},
		Postgres: PostgresConfig{
			Driver:       "pgx",
			MaxOpenConns: 10,
			MaxRows:      1000,
		},
		Memory: MemoryConfig{
			Addr:   "localhost:6379",
			Prefix: "capgate",
		},
		GitHub: GitHubConfig{
			BaseURL: "https://api.github.com",
		},
		ObjectStore: ObjectStoreConfig{
			Port:          9000,
			Region:        "us-east-1",
			DefaultBucket: "capgate",
			MaxFileSize:   100 << 20,
			URLExpiry:     time.Hour,
		},
	}
}
