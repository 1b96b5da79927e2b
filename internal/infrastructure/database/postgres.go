package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"petchat/internal/infrastructure/logger"
)

// Pool defaults for the messaging service. DB_MAX_CONNS overrides the size.
const (
	defaultMaxConns    int32 = 4
	defaultIdleTime          = 5 * time.Minute
	defaultLifetime          = time.Hour
	defaultHealthCheck       = time.Minute
)

// ErrEmptyDSN is returned when DB_URL resolves to nothing.
var ErrEmptyDSN = errors.New("postgres: empty DSN")

// Option tunes the pool before it is opened.
type Option func(*pgxpool.Config)

// WithMaxConns caps the pool size. Non-positive values keep the default.
func WithMaxConns(n int32) Option {
	return func(cfg *pgxpool.Config) {
		if n > 0 {
			cfg.MaxConns = n
		}
	}
}

// Connect opens the conversation store pool and pings it once.
func Connect(ctx context.Context, dsn string, opts ...Option) (*pgxpool.Pool, error) {
	cfg, err := poolConfig(dsn, opts...)
	if err != nil {
		return nil, err
	}

	log := logger.Component("database")
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: new pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		log.Error().Err(err).Str("host", cfg.ConnConfig.Host).Msg("postgres unreachable")
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	log.Info().
		Str("host", cfg.ConnConfig.Host).
		Str("database", cfg.ConnConfig.Database).
		Int32("max_conns", cfg.MaxConns).
		Msg("postgres pool ready")
	return pool, nil
}

// poolConfig parses dsn and applies service defaults, then opts. It never dials.
func poolConfig(dsn string, opts ...Option) (*pgxpool.Config, error) {
	dsn = normalizeDSN(dsn)
	if dsn == "" {
		return nil, ErrEmptyDSN
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}

	cfg.MaxConns = defaultMaxConns
	cfg.MaxConnIdleTime = defaultIdleTime
	cfg.MaxConnLifetime = defaultLifetime
	cfg.HealthCheckPeriod = defaultHealthCheck
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	return cfg, nil
}

// Shared .env files often carry SQLAlchemy driver suffixes; pgx wants the bare scheme.
var schemeAliases = map[string]string{
	"postgresql+asyncpg://": "postgresql://",
	"postgres+asyncpg://":   "postgres://",
	"postgresql+pgx://":     "postgresql://",
	"postgres+pgx://":       "postgres://",
}

func normalizeDSN(dsn string) string {
	s := strings.TrimSpace(dsn)
	for alias, scheme := range schemeAliases {
		if strings.HasPrefix(s, alias) {
			return scheme + strings.TrimPrefix(s, alias)
		}
	}
	return s
}
