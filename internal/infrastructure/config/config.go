package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Comm      CommConfig
	Workload  WorkloadConfig
	Logging   LogConfig
	Metrics   MetricsConfig
	RateLimit RateLimitConfig
}

// CommConfig holds the messaging layer settings.
type CommConfig struct {
	Ranks          int           `envconfig:"THREADCOMM_RANKS" default:"4"`
	MaxRanks       int           `envconfig:"THREADCOMM_MAX_RANKS" default:"256"` // cap for -ranks and POST /runs
	ForceDeepCopy  bool          `envconfig:"THREADCOMM_FORCE_DEEP_COPY" default:"false"`
	ReceiveTimeout time.Duration `envconfig:"THREADCOMM_RECEIVE_TIMEOUT" default:"0s"`
}

// WorkloadConfig selects the demo workload run by the CLI.
type WorkloadConfig struct {
	Name     string `envconfig:"WORKLOAD" default:"ring"`
	Rounds   int    `envconfig:"WORKLOAD_ROUNDS" default:"3"`
	Document string `envconfig:"WORKLOAD_DOCUMENT"` // JSON, YAML or TOML file for broadcast
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// MetricsConfig holds the HTTP surface configuration. When enabled the CLI
// keeps serving metrics and run reports after the workload finishes.
type MetricsConfig struct {
	Enabled bool   `envconfig:"METRICS_ENABLED" default:"false"`
	Addr    string `envconfig:"METRICS_ADDR" default:"127.0.0.1:9464"`
}

// RateLimitConfig holds rate limiting configuration for the HTTP surface.
type RateLimitConfig struct {
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"20"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"40"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
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
		Comm: CommConfig{
			Ranks:          4,
			MaxRanks:       256,
			ForceDeepCopy:  false,
			ReceiveTimeout: 0,
		},
		Workload: WorkloadConfig{
			Name:   "ring",
			Rounds: 3,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9464",
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 20,
			Burst:             40,
		},
	}
}

// Validate reports settings the coordinator cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Comm.Ranks < 1 {
		errs = append(errs, fmt.Errorf("THREADCOMM_RANKS must be at least 1, got %d", c.Comm.Ranks))
	}
	if c.Comm.MaxRanks < c.Comm.Ranks {
		errs = append(errs, fmt.Errorf("THREADCOMM_MAX_RANKS must be at least THREADCOMM_RANKS (%d), got %d", c.Comm.Ranks, c.Comm.MaxRanks))
	}
	if c.Comm.ReceiveTimeout < 0 {
		errs = append(errs, fmt.Errorf("THREADCOMM_RECEIVE_TIMEOUT must not be negative, got %s", c.Comm.ReceiveTimeout))
	}
	if c.Workload.Rounds < 1 {
		errs = append(errs, fmt.Errorf("WORKLOAD_ROUNDS must be at least 1, got %d", c.Workload.Rounds))
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		errs = append(errs, errors.New("METRICS_ADDR is required when METRICS_ENABLED is set"))
	}
	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond < 1 || c.RateLimit.Burst < 1) {
		errs = append(errs, errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive when RATE_LIMIT_ENABLED is set"))
	}
	return errors.Join(errs...)
}
