// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router sets up all HTTP routes and middleware chains for the
// taxonomy API.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"taxonomy/internal/handlers"
	"taxonomy/internal/middleware"
)

// New creates and returns the configured Chi router. limiter may be nil to
// disable rate limiting. trustProxy makes the client address come from
// X-Forwarded-For / X-Real-IP, which is only safe behind a proxy that sets
// them.
func New(categories *handlers.Categories, limiter *middleware.RateLimiter, trustProxy bool) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	if trustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(chimw.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)

	// Operational endpoints: no rate limit.
	r.Get("/health", healthHandler)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/categories", func(r chi.Router) {
		r.Use(middleware.SecureHeaders)
		if limiter != nil {
			r.Use(limiter.Middleware)
		}

		r.Get("/", categories.List)
		r.Post("/", categories.Create)
		r.Get("/tree", categories.Forest)
		r.Get("/{id}", categories.Get)
		r.Put("/{id}", categories.Update)
		r.Delete("/{id}", categories.Delete)
		r.Get("/{id}/children", categories.Children)
	})

	return r
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
