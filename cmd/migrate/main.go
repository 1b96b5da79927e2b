package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"petchat/internal/infrastructure/config"
	"petchat/internal/infrastructure/database"
	"petchat/internal/infrastructure/logger"

	"github.com/joho/godotenv"
)

// Applies the embedded SQL migrations and exits.
func main() {
	if err := godotenv.Load(); err != nil {
		logger.Warn().Err(err).Msg(".env file not found or could not be loaded")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}
	logger.Init(cfg.Env)
	if cfg.DBDriver != config.DriverPostgres {
		logger.Fatal().Str("driver", cfg.DBDriver).Msg("migrations require DB_DRIVER=postgres")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	pool, err := database.Connect(connectCtx, cfg.DBURL, database.WithMaxConns(1))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	migrations, err := database.Migrations()
	if err != nil {
		logger.Fatal().Err(err).Msg("load migrations")
	}
	if err := database.RunMigrations(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("migration failed")
	}
	logger.Info().Int("known", len(migrations)).Msg("database schema is up to date")
}
