package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the service configuration, read from the environment
type Config struct {
	// Server
	Port            int           `env:"PORT" envDefault:"8080"`
	GinMode         string        `env:"GIN_MODE" envDefault:"release"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
	MaxBodyBytes    int64         `env:"MAX_BODY_BYTES" envDefault:"4194304"`
	AllowedOrigins  []string      `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://localhost:5173"`
	EnableHSTS      bool          `env:"ENABLE_HSTS" envDefault:"false"`

	// Storage
	DataDir string `env:"DATA_DIR" envDefault:"./data"`

	// Redis; empty disables distributed rate limiting
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Rate limits
	IPLimitPerMin       int `env:"RATE_LIMIT_IP_PER_MIN" envDefault:"120"`
	OperatorLimitPerMin int `env:"RATE_LIMIT_OPERATOR_PER_MIN" envDefault:"30"`
	ComputeLimitPerMin  int `env:"RATE_LIMIT_COMPUTE_PER_MIN" envDefault:"600"`

	// Operator auth
	JWTSecret string `env:"JWT_SECRET,required"`

	// Caching
	CacheTTL time.Duration `env:"CACHE_TTL" envDefault:"10m"`

	// Responses at least this large are gzipped for clients that accept it
	CompressionMinBytes int `env:"COMPRESSION_MIN_BYTES" envDefault:"1024"`

	// Settlement
	SettlementWorkers       int     `env:"SETTLEMENT_WORKERS" envDefault:"8"`
	MaxBatchRecords         int     `env:"MAX_BATCH_RECORDS" envDefault:"10000"`
	DurationReviewThreshold float64 `env:"DURATION_REVIEW_THRESHOLD" envDefault:"13"`
}

// Load parses the process environment
func Load() (*Config, error) {
	return parse(env.Options{})
}

// LoadFrom parses an explicit environment, ignoring the process one
func LoadFrom(environ map[string]string) (*Config, error) {
	return parse(env.Options{Environment: environ})
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot run with
func (c *Config) Validate() error {
	var errs []error

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port))
	}
	switch c.GinMode {
	case "debug", "release", "test":
	default:
		errs = append(errs, fmt.Errorf("GIN_MODE must be debug, release or test, got %q", c.GinMode))
	}
	if len(c.JWTSecret) < 16 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 16 bytes"))
	}
	if c.SettlementWorkers <= 0 {
		errs = append(errs, fmt.Errorf("SETTLEMENT_WORKERS must be > 0, got %d", c.SettlementWorkers))
	}
	if c.MaxBatchRecords <= 0 {
		errs = append(errs, fmt.Errorf("MAX_BATCH_RECORDS must be > 0, got %d", c.MaxBatchRecords))
	}
	if c.DurationReviewThreshold < 0 {
		errs = append(errs, fmt.Errorf("DURATION_REVIEW_THRESHOLD must be >= 0, got %v", c.DurationReviewThreshold))
	}
	if c.IPLimitPerMin <= 0 || c.OperatorLimitPerMin <= 0 || c.ComputeLimitPerMin <= 0 {
		errs = append(errs, errors.New("rate limits must be > 0"))
	}
	if c.CompressionMinBytes <= 0 {
		errs = append(errs, fmt.Errorf("COMPRESSION_MIN_BYTES must be > 0, got %d", c.CompressionMinBytes))
	}
	if c.CacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("CACHE_TTL must be > 0, got %s", c.CacheTTL))
	}

	return errors.Join(errs...)
}

// Addr is the listen address for the HTTP server
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
