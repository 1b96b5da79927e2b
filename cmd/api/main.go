package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	v1 "petchat/cmd/api/router/v1"
	"petchat/internal/infrastructure/config"
	"petchat/internal/infrastructure/database"
	"petchat/internal/infrastructure/logger"
	pubsubAdapter "petchat/internal/infrastructure/pubsub/adapter"
	pubsub "petchat/internal/infrastructure/pubsub/port"
	queueAdapter "petchat/internal/infrastructure/queue/adapter"
	"petchat/internal/infrastructure/realtime"
	"petchat/internal/middleware"
	chat "petchat/internal/pkg/chat/application/domain"
	"petchat/internal/pkg/chat/application/task"
	"petchat/internal/pkg/chat/application/usecase"
	"petchat/internal/pkg/chat/persistence/repository/adapter"
	repository "petchat/internal/pkg/chat/persistence/repository/port"
	"petchat/internal/pkg/chat/presentation/controller"
	httpHandler "petchat/internal/pkg/chat/presentation/http"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		logger.Warn().Err(err).Msg(".env file not found or could not be loaded")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}
	logger.Init(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var repo repository.ChatRepository
	switch cfg.DBDriver {
	case config.DriverPostgres:
		connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		pool, err := database.Connect(connectCtx, cfg.DBURL, database.WithMaxConns(cfg.DBMaxConns))
		cancel()
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()

		if cfg.MigrateOnStart {
			if err := database.RunMigrations(ctx, pool); err != nil {
				logger.Fatal().Err(err).Msg("run migrations")
			}
		}
		repo = adapter.NewPgChatRepository(pool)
	default:
		logger.Warn().Msg("DB_DRIVER=memory: conversations are not persisted")
		repo = adapter.NewMemoryChatRepository()
	}

	// Realtime: queue-backed fan-out over Redis, or in-process when no Redis is configured.
	var (
		broker pubsub.Broker
		events usecase.EventSink
	)
	if cfg.RedisURL != "" {
		redisBroker, err := pubsubAdapter.NewRedisBroker(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("connect redis")
		}
		broker = redisBroker

		client, err := queueAdapter.NewAsynqClient(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("create task client")
		}
		defer client.Close()
		events = task.NewQueueEventSink(client)

		worker, err := queueAdapter.NewAsynqServer(cfg.RedisURL, cfg.AsynqConcurrency, cfg.AsynqQueues)
		if err != nil {
			logger.Fatal().Err(err).Msg("create task server")
		}
		task.RegisterPublishEventTask(worker, broker)
		go func() {
			if err := worker.Run(ctx); err != nil {
				logger.Error().Err(err).Msg("task server stopped")
			}
		}()
	} else {
		memoryBroker := pubsubAdapter.NewMemoryBroker()
		broker = memoryBroker
		events = task.NewBrokerEventSink(memoryBroker)
	}
	defer broker.Close()

	sessions := realtime.NewRouter()
	bridge := realtime.NewBridge(broker, sessions, chat.ConversationChannelPattern, chat.ConversationIDFromChannel)
	go func() {
		if err := bridge.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("realtime bridge stopped")
		}
	}()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.Recovery(), middleware.RequestLogger(), middleware.CORS(cfg.CORSAllowedOrigins))

	r.GET("/healthz", controller.NewHealthController(repo, broker, sessions).Handle())

	v1.RegisterRoutes(r, httpHandler.Dependencies{
		Repo:           repo,
		Events:         events,
		Router:         sessions,
		JWTSecret:      cfg.JWTSecret,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		RequestTimeout: cfg.RequestTimeout,
		RateLimiter:    middleware.NewKeyedRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
	})

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Str("driver", cfg.DBDriver).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown error")
	}
	// Hijacked websocket connections are not tracked by Shutdown.
	sessions.Close()
}
