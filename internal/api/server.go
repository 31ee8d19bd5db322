// Copyright (c) 2026 Quire. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package api wires the HTTP router, middleware chain and domain handlers into
a runnable [http.Server].

Architecture:

  - This package is the composition root for the HTTP transport (chi router).
  - Domain packages expose Routes(); only this package decides where they mount.
*/
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/taibuivan/quire/internal/core/journal"
	"github.com/taibuivan/quire/internal/platform/config"
	"github.com/taibuivan/quire/internal/platform/constants"
	"github.com/taibuivan/quire/internal/platform/metrics"
	"github.com/taibuivan/quire/internal/platform/middleware"
	"github.com/taibuivan/quire/internal/users/auth"
)

// # Server Definitions

// Server wraps the chi router and the [http.Server].
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	logger     *slog.Logger
}

// # Handler Registry

// Handlers groups every handler set mounted by [NewServer].
type Handlers struct {
	Liveness  http.HandlerFunc
	Readiness http.HandlerFunc

	// Auth serves /api/v1/auth and sits behind its own, stricter rate limit.
	Auth *auth.Handler

	// Journal serves /api/v1/journals.
	Journal *journal.Handler
}

// # Server Initialization

/*
NewServer builds the router with the full middleware chain.

The rate limiters run cleanup goroutines bound to ctx, so ctx should live as
long as the process.

Parameters:
  - ctx: context.Context (Process lifetime)
  - cfg: *config.Config
  - logger: *slog.Logger
  - registry: *metrics.Registry
  - handlers: Handlers

Returns:
  - *Server
*/
func NewServer(ctx context.Context, cfg *config.Config, logger *slog.Logger, registry *metrics.Registry, handlers Handlers) *Server {
	router := chi.NewRouter()

	// # Middleware Chain
	if cfg.TrustProxy {
		router.Use(chimw.RealIP)
	}
	router.Use(middleware.RequestID())
	router.Use(middleware.StructuredLogger(logger))
	router.Use(registry.Instrument)
	router.Use(chimw.CleanPath)
	router.Use(chimw.Timeout(constants.GlobalRequestTimeout))
	router.Use(middleware.NewRateLimiter(ctx, constants.DefaultRateLimitRPS, constants.DefaultRateLimitBurst).Handler)
	router.Use(middleware.PanicRecovery)
	router.Use(middleware.CORS(cfg.AllowedOrigins, cfg.IsDevelopment()))

	// # Infrastructure Endpoints
	router.Get("/health", handlers.Liveness)
	router.Get("/ready", handlers.Readiness)
	router.Method(http.MethodGet, "/metrics", registry.Handler())

	// # Application API
	authLimiter := middleware.NewRateLimiter(ctx, constants.AuthRateLimitRPS, constants.AuthRateLimitBurst)

	router.Route("/api/v1", func(api chi.Router) {
		api.Group(func(credentials chi.Router) {
			credentials.Use(authLimiter.Handler)
			credentials.Mount("/auth", handlers.Auth.Routes())
		})
		api.Mount("/journals", handlers.Journal.Routes())
	})

	return &Server{
		router: router,
		logger: logger,
		httpServer: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           router,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.GlobalRequestTimeout + constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		},
	}
}

// Handler exposes the router, mainly for httptest.
func (server *Server) Handler() http.Handler {
	return server.router
}

// # Server Lifecycle

// ListenAndServe blocks until the server is closed or fails.
func (server *Server) ListenAndServe() error {
	server.logger.Info("server_starting", slog.String("addr", server.httpServer.Addr))
	return server.httpServer.ListenAndServe()
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (server *Server) Shutdown(timeout time.Duration) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return server.httpServer.Shutdown(shutdownCtx)
}
