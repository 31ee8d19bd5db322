// Copyright (c) 2026 Quire. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package metrics exposes Prometheus instrumentation for the API.

Collectors live on a [Registry] instead of the global default registerer so
tests can build isolated instances.

Families:

  - HTTP: in-flight gauge, request counter and latency histogram keyed by route pattern.
  - Auth: refresh outcomes, revocations and refresh-token reuse attempts.
  - Journals: review decisions by resulting status.
*/
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// # Refresh outcomes

const (
	RefreshRotated  = "rotated"
	RefreshMissing  = "missing"
	RefreshInvalid  = "invalid"
	RefreshRevoked  = "revoked"
	RefreshNoUser   = "no_account"
	RefreshDegraded = "store_unavailable"
)

// Registry owns every collector the service exports.
type Registry struct {
	registry *prometheus.Registry

	httpInFlight        prometheus.Gauge
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	refreshTotal    *prometheus.CounterVec
	revocationTotal *prometheus.CounterVec
	reuseDetected   prometheus.Counter

	journalReviews *prometheus.CounterVec
}

// New creates and registers all collectors, plus the Go and process collectors.
func New() *Registry {
	registry := &Registry{
		registry: prometheus.NewRegistry(),

		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_in_flight_requests",
			Help: "In-flight HTTP requests.",
		}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),

		refreshTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_refresh_total",
			Help: "Refresh-token presentations by outcome.",
		}, []string{"outcome"}),
		revocationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_revocations_total",
			Help: "Refresh-token revocations by reason.",
		}, []string{"reason"}),
		reuseDetected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "auth_refresh_reuse_detected_total",
			Help: "Refresh tokens presented after they had already been revoked.",
		}),

		journalReviews: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "journal_reviews_total",
			Help: "Journal review decisions by resulting status.",
		}, []string{"status"}),
	}

	registry.registry.MustRegister(
		registry.httpInFlight,
		registry.httpRequestsTotal,
		registry.httpRequestDuration,
		registry.refreshTotal,
		registry.revocationTotal,
		registry.reuseDetected,
		registry.journalReviews,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return registry
}

// Handler serves the registry in the Prometheus exposition format.
func (registry *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(registry.registry, promhttp.HandlerOpts{})
}

// # Auth events

// RefreshOutcome counts one refresh presentation.
func (registry *Registry) RefreshOutcome(outcome string) {
	registry.refreshTotal.WithLabelValues(outcome).Inc()
}

// Revoked counts one revocation.
func (registry *Registry) Revoked(reason string) {
	registry.revocationTotal.WithLabelValues(reason).Inc()
}

// ReuseDetected counts a refresh token presented after revocation.
func (registry *Registry) ReuseDetected() {
	registry.reuseDetected.Inc()
}

// # Journal events

// JournalReviewed counts one review decision.
func (registry *Registry) JournalReviewed(status string) {
	registry.journalReviews.WithLabelValues(status).Inc()
}

// # HTTP instrumentation

// Instrument measures in-flight requests, throughput and latency.
//
// The route label is chi's matched pattern, so ids in the path do not explode cardinality.
func (registry *Registry) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		registry.httpInFlight.Inc()
		defer registry.httpInFlight.Dec()

		start := time.Now()
		recorder := &statusWriter{ResponseWriter: writer, code: http.StatusOK}
		next.ServeHTTP(recorder, request)

		route := "unmatched"
		if routeContext := chi.RouteContext(request.Context()); routeContext != nil {
			if pattern := routeContext.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		status := strconv.Itoa(recorder.code)
		registry.httpRequestDuration.WithLabelValues(request.Method, route, status).Observe(time.Since(start).Seconds())
		registry.httpRequestsTotal.WithLabelValues(request.Method, route, status).Inc()
	})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
