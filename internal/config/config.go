package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all configuration for the MRWA execution core
type Config struct {
	// Server configuration
	HTTPPort int    `env:"MRWA_HTTP_PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Redis configuration
	Redis RedisConfig

	// Planner configuration
	Planner PlannerConfig

	// Orchestrator configuration
	Orchestrator OrchestratorConfig

	// Worker configuration
	Workers WorkerConfig

	// Timeouts
	Timeouts TimeoutConfig
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASS"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`

	// Connection pool settings
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	MaxRetries   int           `env:"REDIS_MAX_RETRIES" envDefault:"3"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`

	// TTL for persisted execution state
	StateTTL time.Duration `env:"REDIS_STATE_TTL" envDefault:"24h"`
}

// PlannerConfig holds plan generator configuration
type PlannerConfig struct {
	// Provider selects the plan generator: "anthropic" or "fixture"
	Provider string `env:"PLANNER_PROVIDER" envDefault:"fixture"`
	APIKey   string `env:"PLANNER_API_KEY"`

	Model          string        `env:"PLANNER_MODEL" envDefault:"claude-3-5-sonnet-20241022"`
	MaxTokens      int           `env:"PLANNER_MAX_TOKENS" envDefault:"1024"`
	RequestTimeout time.Duration `env:"PLANNER_REQUEST_TIMEOUT" envDefault:"60s"`
}

// OrchestratorConfig holds state machine tuning
type OrchestratorConfig struct {
	DefaultMaxRetries int           `env:"ORCH_DEFAULT_MAX_RETRIES" envDefault:"3"`
	BackoffBase       time.Duration `env:"ORCH_BACKOFF_BASE" envDefault:"500ms"`
	BackoffCap        time.Duration `env:"ORCH_BACKOFF_CAP" envDefault:"30s"`
	LeaseTTL          time.Duration `env:"ORCH_LEASE_TTL" envDefault:"60s"`

	// Persistence write retry budget (store-adapter layer)
	PersistAttempts int           `env:"ORCH_PERSIST_ATTEMPTS" envDefault:"3"`
	PersistBackoff  time.Duration `env:"ORCH_PERSIST_BACKOFF" envDefault:"200ms"`
}

// WorkerConfig holds worker pool configuration
type WorkerConfig struct {
	PoolSize            int           `env:"WORKER_POOL_SIZE" envDefault:"5"`
	QueueSize           int           `env:"WORKER_QUEUE_SIZE" envDefault:"100"`
	HealthCheckInterval time.Duration `env:"WORKER_HEALTH_CHECK_INTERVAL" envDefault:"30s"`
}

// TimeoutConfig holds various timeout configurations
type TimeoutConfig struct {
	ExecutionTimeout time.Duration `env:"TIMEOUT_EXECUTION" envDefault:"3600s"`
	StepTimeout      time.Duration `env:"TIMEOUT_STEP" envDefault:"300s"`
	ShutdownTimeout  time.Duration `env:"TIMEOUT_SHUTDOWN" envDefault:"30s"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}

	if c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required")
	}

	switch c.Planner.Provider {
	case "fixture":
	case "anthropic":
		if c.Planner.APIKey == "" {
			return fmt.Errorf("planner API key is required for anthropic provider")
		}
	default:
		return fmt.Errorf("unsupported planner provider: %s (must be anthropic or fixture)", c.Planner.Provider)
	}

	if c.Orchestrator.DefaultMaxRetries < 0 {
		return fmt.Errorf("default max retries must be >= 0")
	}
	if c.Orchestrator.BackoffBase <= 0 || c.Orchestrator.BackoffCap < c.Orchestrator.BackoffBase {
		return fmt.Errorf("backoff base must be positive and not exceed the cap")
	}
	if c.Orchestrator.PersistAttempts < 1 {
		return fmt.Errorf("persistence attempts must be at least 1")
	}

	if c.Workers.PoolSize < 1 {
		return fmt.Errorf("worker pool size must be at least 1")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
