package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config is the runtime configuration of the messaging service.
// Values come from the process environment (optionally seeded from .env by the caller).
type Config struct {
	Env  string `mapstructure:"APP_ENV"`
	Port string `mapstructure:"PORT"`

	DBDriver   string `mapstructure:"DB_DRIVER"`
	DBURL      string `mapstructure:"DB_URL"`
	DBMaxConns int32  `mapstructure:"DB_MAX_CONNS"`

	// Empty REDIS_URL runs realtime delivery in-process (single node, no queue).
	RedisURL string `mapstructure:"REDIS_URL"`

	JWTSecret          string   `mapstructure:"JWT_SECRET"`
	CORSAllowedOrigins []string `mapstructure:"CORS_ALLOWED_ORIGINS"`

	RequestTimeout  time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`

	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST"`

	AsynqConcurrency int    `mapstructure:"ASYNQ_CONCURRENCY"`
	AsynqQueues      string `mapstructure:"ASYNQ_QUEUES"`

	MigrateOnStart bool `mapstructure:"MIGRATE_ON_START"`
}

var defaults = map[string]any{
	"APP_ENV":              "development",
	"PORT":                 "8080",
	"DB_DRIVER":            DriverPostgres,
	"DB_URL":               "",
	"DB_MAX_CONNS":         4,
	"REDIS_URL":            "",
	"JWT_SECRET":           "",
	"CORS_ALLOWED_ORIGINS": "http://localhost:3000",
	"REQUEST_TIMEOUT":      "3s",
	"SHUTDOWN_TIMEOUT":     "10s",
	"RATE_LIMIT_RPS":       10.0,
	"RATE_LIMIT_BURST":     50,
	"ASYNQ_CONCURRENCY":    10,
	"ASYNQ_QUEUES":         "realtime=6,default=1",
	"MIGRATE_ON_START":     false,
}

// Load reads configuration from the environment with sane defaults and validates it.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}

	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	cfg.CORSAllowedOrigins = trimAll(cfg.CORSAllowedOrigins)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case DriverPostgres:
		if strings.TrimSpace(c.DBURL) == "" {
			return errors.New("config: DB_URL is required when DB_DRIVER=postgres")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("config: unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.JWTSecret == "" {
		return errors.New("config: JWT_SECRET is required")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("config: REQUEST_TIMEOUT must be positive")
	}
	if c.DBMaxConns <= 0 {
		c.DBMaxConns = 4
	}
	if c.AsynqConcurrency <= 0 {
		c.AsynqConcurrency = 10
	}
	return nil
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
