package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"pocket-calc/internal/calculator"
	"pocket-calc/internal/handlers"
	"pocket-calc/internal/observability"
	"pocket-calc/internal/session"
)

// Options carries the dependencies the router mounts.
type Options struct {
	Store *session.Store

	// MCP serves the MCP transport on /mcp; nil leaves the route unmounted.
	MCP http.Handler

	// Metrics is the registry served on /metrics; nil serves the default one.
	Metrics prometheus.Gatherer
}

func NewRouter(opts Options) http.Handler {

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(observability.RequestIDMiddleware)
	r.Use(observability.TracingMiddleware)
	r.Use(observability.LoggingMiddleware)

	r.Get("/health", handlers.Health)

	r.Handle("/metrics", observability.PrometheusHandler(opts.Metrics))

	calculator.RegisterRoutes(r, calculator.NewHandler(opts.Store))

	if opts.MCP != nil {
		r.Handle("/mcp", opts.MCP)
	}

	return r
}
