// Copyright (c) 2026 Quire. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api

import (
	"context"
	"log/slog"
	"net/http"
	"slices"

	"github.com/taibuivan/quire/internal/platform/constants"
	"github.com/taibuivan/quire/internal/platform/respond"
)

// Check probes one dependency. A nil error means healthy.
type Check func(ctx context.Context) error

// HealthDependencies lists the named checks behind /ready.
//
// Redis is only present when the shared revocation registry is enabled.
type HealthDependencies struct {
	Checks map[string]Check
}

type healthHandler struct {
	dependencies HealthDependencies
	logger       *slog.Logger
}

type checkResult struct {
	Name  string `json:"name"`
	IsOK  bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// NewHealthHandlers creates the /health and /ready handlers.
func NewHealthHandlers(dependencies HealthDependencies, logger *slog.Logger) (liveness, readiness http.HandlerFunc) {
	handler := &healthHandler{dependencies: dependencies, logger: logger}
	return handler.liveness, handler.readiness
}

// liveness handles GET /health. It never touches a dependency.
func (handler *healthHandler) liveness(writer http.ResponseWriter, _ *http.Request) {
	respond.OK(writer, map[string]string{
		constants.FieldStatus:  "ok",
		constants.FieldApp:     constants.AppName,
		constants.FieldVersion: constants.AppVersion,
	})
}

// readiness handles GET /ready and answers 503 while any dependency is down.
func (handler *healthHandler) readiness(writer http.ResponseWriter, request *http.Request) {
	results := make([]checkResult, 0, len(handler.dependencies.Checks))
	isSystemReady := true

	for _, name := range sortedNames(handler.dependencies.Checks) {
		result := checkResult{Name: name, IsOK: true}
		if err := handler.dependencies.Checks[name](request.Context()); err != nil {
			result.IsOK = false
			result.Error = err.Error()
			isSystemReady = false
			handler.logger.Error("readiness_check_failed", slog.String("dependency", name), slog.Any("error", err))
		}
		results = append(results, result)
	}

	status, httpStatus := "ready", http.StatusOK
	if !isSystemReady {
		status, httpStatus = "degraded", http.StatusServiceUnavailable
	}

	respond.JSON(writer, httpStatus, respond.SuccessEnvelope{Data: map[string]any{
		constants.FieldStatus: status,
		constants.FieldChecks: results,
	}})
}

func sortedNames(checks map[string]Check) []string {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
