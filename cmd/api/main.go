// Copyright (c) 2026 Quire. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the Quire HTTP API server.
//
// # Startup Sequence
//
//  1. Load configuration from environment variables.
//  2. Initialize the structured logger.
//  3. Connect to PostgreSQL and apply migrations.
//  4. Build the revocation registry (in-process or Redis).
//  5. Wire the auth and journal domains.
//  6. Start the HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/taibuivan/quire/internal/api"
	"github.com/taibuivan/quire/internal/core/journal"
	"github.com/taibuivan/quire/internal/platform/config"
	"github.com/taibuivan/quire/internal/platform/constants"
	"github.com/taibuivan/quire/internal/platform/metrics"
	"github.com/taibuivan/quire/internal/platform/middleware"
	"github.com/taibuivan/quire/internal/platform/migration"
	pgstore "github.com/taibuivan/quire/internal/platform/postgres"
	redisstore "github.com/taibuivan/quire/internal/platform/redis"
	"github.com/taibuivan/quire/internal/platform/revocation"
	"github.com/taibuivan/quire/internal/platform/sec"
	"github.com/taibuivan/quire/internal/platform/transport"
	"github.com/taibuivan/quire/internal/users/auth"
)

func main() {
	// ── 1. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		slog.Error("startup_failure", slog.String("step", "load configuration"), slog.Any("error", err))
		os.Exit(1)
	}

	// ── 2. Logger ─────────────────────────────────────────────────────────
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})).
		With(slog.String(constants.FieldApp, constants.AppName))
	slog.SetDefault(logger)

	logger.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.String("revocation_store", cfg.RevocationStore),
	)

	// Lives until shutdown; background sweepers stop with it.
	rootCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	startupCtx, startupCancel := context.WithTimeout(rootCtx, 30*time.Second)
	defer startupCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, logger)
	must(logger, err, "connect to postgres")
	defer func() {
		logger.Info("postgres_pool_closing")
		pool.Close()
	}()

	must(logger, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, logger), "run migrations")

	checks := map[string]api.Check{
		"postgres": func(ctx context.Context) error { return pgstore.Ping(ctx, pool) },
	}

	// ── 4. Revocation Registry ────────────────────────────────────────────
	var registry revocation.Registry
	switch cfg.RevocationStore {
	case config.RevocationStoreRedis:
		client, err := redisstore.NewClient(startupCtx, cfg.RedisURL, logger)
		must(logger, err, "connect to redis")
		defer func() {
			if closeErr := client.Close(); closeErr != nil {
				logger.Error("redis_close_failed", slog.Any("error", closeErr))
			}
		}()
		registry = revocation.NewRedisRegistry(client)
		checks["redis"] = func(ctx context.Context) error { return redisstore.Ping(ctx, client) }
	default:
		memory := revocation.NewMemoryRegistry()
		memory.StartJanitor(rootCtx, cfg.RevocationSweepInterval, logger)
		registry = memory
	}

	// ── 5. Domain Wiring ──────────────────────────────────────────────────
	issuer, err := sec.NewTokenIssuer(cfg.AccessTokenSecret, cfg.RefreshTokenSecret, cfg.TokenIssuer)
	must(logger, err, "initialize token issuer")

	telemetry := metrics.New()
	sessions := transport.New(cfg.CookieSecure, cfg.SameSite(), cfg.CookieDomain)

	authService := auth.NewService(auth.NewUserRepository(pool), issuer, registry, telemetry)
	guard := middleware.NewGuard(issuer, sessions, authService)

	journalService := journal.NewService(journal.NewRepository(pool), journal.NewLogNotifier(logger), telemetry)

	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{Checks: checks}, logger)

	server := api.NewServer(rootCtx, cfg, logger, telemetry, api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Auth:      auth.NewHandler(authService, sessions, guard.Authenticate),
		Journal:   journal.NewHandler(journalService, guard.Authenticate, guard.OptionalAuthenticate),
	})

	// ── 6. Graceful Shutdown ──────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case sig := <-quit:
		logger.Info("shutdown_signal_received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		logger.Error("server_failed", slog.Any("error", err))
	}

	logger.Info("server_shutting_down", slog.Duration("timeout", constants.ShutdownTimeout))
	if err := server.Shutdown(constants.ShutdownTimeout); err != nil {
		logger.Error("server_shutdown_failed", slog.Any("error", err))
	}
	stopBackground()

	logger.Info("server_stopped")
}

// must terminates the process on a startup error. Only wiring code calls it.
func must(logger *slog.Logger, err error, step string) {
	if err != nil {
		logger.Error("startup_failure", slog.String("step", step), slog.Any("error", err))
		os.Exit(1)
	}
}
