package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/healthcareplus/scheduling-agent/internal/dialogue"
	"github.com/healthcareplus/scheduling-agent/internal/scheduling"
)

type RouterConfig struct {
	Sessions *dialogue.SessionManager
	Repo     scheduling.Repository
	PgPool   *pgxpool.Pool
	Redis    *redis.Client
	Logger   *zap.Logger
	Env      string
	Version  string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Conversation endpoints
	r.Route("/conversations/{sessionID}", func(r chi.Router) {
		r.Post("/messages", postMessageHandler(cfg.Sessions))
		r.Post("/reset", resetConversationHandler(cfg.Sessions))
		r.Get("/", getConversationHandler(cfg.Sessions))
	})

	// Admin reports
	r.Get("/reports/appointments", appointmentsReportHandler(cfg.Repo))
	r.Get("/reports/patients", patientsReportHandler(cfg.Repo))

	return r
}
