package api

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/edvin/tenantdb/internal/api/handler"
	mw "github.com/edvin/tenantdb/internal/api/middleware"
	"github.com/edvin/tenantdb/internal/api/response"
	"github.com/edvin/tenantdb/internal/config"
	"github.com/edvin/tenantdb/internal/core"
	"github.com/edvin/tenantdb/internal/tenantfile"
)

type Server struct {
	router   chi.Router
	logger   zerolog.Logger
	services *core.Services
	metaDB   *sql.DB
	cfg      *config.Config
}

func NewServer(logger zerolog.Logger, metaDB *sql.DB, registry *tenantfile.Registry, cfg *config.Config) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		logger:   logger,
		services: core.NewServices(metaDB, registry, cfg, logger),
		metaDB:   metaDB,
		cfg:      cfg,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(mw.RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(mw.Metrics)
}

func (s *Server) setupRoutes() {
	// Prometheus metrics endpoint
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Get("/health", s.handleHealth)

	auth := handler.NewAuth(s.services.Auth)
	s.router.Post("/auth/register", auth.Register)

	s.router.Group(func(r chi.Router) {
		r.Use(mw.Auth(s.services.Auth))

		// API keys
		r.Post("/auth/keys", auth.CreateKey)
		r.Get("/auth/keys", auth.ListKeys)
		r.Delete("/auth/keys/{id}", auth.RevokeKey)

		// Databases
		database := handler.NewDatabase(s.services.Database)
		r.Get("/databases", database.List)
		r.Post("/databases", database.Create)
		r.Get("/databases/{id}", database.Get)
		r.Patch("/databases/{id}", database.Update)
		r.Delete("/databases/{id}", database.Delete)

		// Query execution
		query := handler.NewQuery(s.services.Database, s.services.Query)
		r.Post("/databases/{id}/query", query.Execute)
		r.Post("/databases/{id}/batch", query.Batch)
		r.Post("/databases/{id}/migrate", query.Migrate)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := s.metaDB.PingContext(ctx); err != nil {
		response.WriteJSON(w, http.StatusServiceUnavailable,
			map[string]string{"status": "degraded", "metadata_db": err.Error()})
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
