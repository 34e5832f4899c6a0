/*
Package handler provides the HTTP handlers and routing setup for the planning poker server.

This file defines the main Router, applying necessary middleware like logging, CORS,
and IP-based rate limiting before delegating requests to specific handlers (monitoring and WebSocket).
*/
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"planpoker/internal/pkg/auth/jwt"
	"planpoker/internal/pkg/limiter"
	"planpoker/internal/pkg/logx"
	"planpoker/internal/pkg/metrics"
)

const (
	ConnectRate  = 0.5
	ConnectBurst = 10
)

// Router sets up the main HTTP routing table (chi.Router) for the application.
// It initializes the IP-based connection limiter, configures CORS, and applies global and per-route middleware.
// Background work started here stops when ctx ends.
func Router(ctx context.Context, deps *AppDeps) http.Handler {
	connectLimiter := limiter.NewIPRateLimiter(ctx, rate.Limit(ConnectRate), ConnectBurst)

	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	wsUpgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.IsDevelopment() {
				return true
			}

			origin := r.Header.Get("Origin")
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := []string{}
	if deps.Config.IsDevelopment() {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger("/health", "/metrics"))
	r.Use(middleware.Recoverer)

	r.Get("/health", HandleHealth(deps))
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(api chi.Router) {
		if deps.Config.MonitorSecret != "" {
			api.Use(jwt.RequireOperator(deps.Config.MonitorSecret))
		}

		api.Get("/rooms", HandleListRooms(deps))
		api.Get("/rooms/{id}", HandleGetRoom(deps))
	})

	r.With(connectLimiter.Middleware).Get("/ws", HandleWebSocket(deps, wsUpgrader))

	return r
}
