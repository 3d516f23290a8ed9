package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all runtime configuration.
type Config struct {
	Server    ServerConfig
	Logging   LogConfig
	Telemetry TelemetryConfig
	Apps      AppsConfig
	Shell     ShellConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// TelemetryConfig holds table acquisition configuration.
type TelemetryConfig struct {
	PollInterval time.Duration `envconfig:"POLL_INTERVAL" default:"1s"`
	TableTimeout time.Duration `envconfig:"TABLE_TIMEOUT" default:"5s"`
	// DataPath is prepended to the table name to locate its snapshot.
	DataPath    string `envconfig:"DATA_PATH" default:"apps/system/customdata/casdk-"`
	SnapshotURL string `envconfig:"SNAPSHOT_URL" default:""`
	TablesFile  string `envconfig:"TABLES_FILE" default:""`
}

// AppsConfig holds application discovery and resource loading configuration.
type AppsConfig struct {
	Path            string        `envconfig:"APPS_PATH" default:"apps/system/custom/apps/"`
	ResourceURL     string        `envconfig:"RESOURCE_URL" default:""`
	ResourceTimeout time.Duration `envconfig:"RESOURCE_TIMEOUT" default:"10s"`
	ScriptTimeout   time.Duration `envconfig:"SCRIPT_TIMEOUT" default:"2s"`
}

// ShellConfig holds the host shell endpoint. Empty disables routing.
type ShellConfig struct {
	URL string `envconfig:"SHELL_URL" default:""`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
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
			Port: "8000",
			Host: "0.0.0.0",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		Telemetry: TelemetryConfig{
			PollInterval: time.Second,
			TableTimeout: 5 * time.Second,
			DataPath:     "apps/system/customdata/casdk-",
		},
		Apps: AppsConfig{
			Path:            "apps/system/custom/apps/",
			ResourceTimeout: 10 * time.Second,
			ScriptTimeout:   2 * time.Second,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}
