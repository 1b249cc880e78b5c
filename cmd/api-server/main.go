package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/healthcareplus/scheduling-agent/internal/api"
	"github.com/healthcareplus/scheduling-agent/internal/config"
	"github.com/healthcareplus/scheduling-agent/internal/db"
	"github.com/healthcareplus/scheduling-agent/internal/dialogue"
	"github.com/healthcareplus/scheduling-agent/internal/extract"
	"github.com/healthcareplus/scheduling-agent/internal/logging"
	"github.com/healthcareplus/scheduling-agent/internal/notify"
	redisclient "github.com/healthcareplus/scheduling-agent/internal/redis"
	"github.com/healthcareplus/scheduling-agent/internal/scheduling"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("config load error: " + err.Error())
	}

	logger := logging.NewLogger(cfg.Env)
	defer logger.Sync() //nolint:errcheck

	logger.Info("api-server starting up",
		zap.String("env", cfg.Env),
		zap.String("http_port", cfg.HTTPPort))

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		logger.Fatal("postgres connection error", zap.Error(err))
	}
	defer pgPool.Close()
	logger.Info("connected to Postgres")

	// Apply pending migrations before serving
	migrator, err := db.NewMigrator(pgPool, cfg.MigrationsDir, logger)
	if err != nil {
		logger.Fatal("migrator init error", zap.Error(err))
	}
	if err := migrator.Run(rootCtx); err != nil {
		logger.Fatal("migration error", zap.Error(err))
	}
	_ = migrator.Close()

	// Connect Redis
	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		logger.Fatal("redis connection error", zap.Error(err))
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Warn("error closing redis", zap.Error(err))
		}
	}()
	logger.Info("connected to Redis")

	repo := scheduling.NewPgRepository(pgPool)
	locker := redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL)
	sched := scheduling.NewService(repo, locker, logger)

	var capability extract.Capability
	if cfg.GroqAPIKey != "" {
		capability = extract.NewLLMExtractor(cfg.GroqAPIKey, cfg.LLMBaseURL, cfg.LLMModel, logger)
		logger.Info("language-model extraction enabled")
	} else {
		logger.Warn("GROQ_API_KEY not set, pattern-based extraction only")
	}

	var notifier dialogue.IntakeSender
	if cfg.SMTPConfigured() {
		notifier = notify.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser,
			cfg.SMTPPassword, cfg.SMTPFrom, cfg.IntakeFormPath, logger)
	} else {
		logger.Warn("email credentials not set, intake forms run in simulation mode")
		notifier = notify.NewSimulatedSender(logger)
	}

	resolver := extract.NewNameResolver(capability, logger)
	router := dialogue.NewRouter(sched, resolver, capability, notifier, logger)
	sessions := dialogue.NewSessionManager(router, logger)

	handler := api.NewRouter(api.RouterConfig{
		Sessions: sessions,
		Repo:     repo,
		PgPool:   pgPool,
		Redis:    rdb,
		Logger:   logger,
		Env:      cfg.Env,
		Version:  version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-rootCtx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server error", zap.Error(err))
		}
	}

	logger.Info("shutting down api-server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
