// Package admin implements the read-only HTTP observability surface:
// health, task introspection, Prometheus metrics, and a WebSocket feed of
// live status changes. It never drives scheduler state; only the TCP
// RPC surface (internal/rpc) does that.
package admin

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	adminMiddleware "github.com/maumercado/localtaskd/internal/admin/middleware"
	"github.com/maumercado/localtaskd/internal/admin/websocket"
	"github.com/maumercado/localtaskd/internal/events"
	"github.com/maumercado/localtaskd/internal/logger"
)

// Server is the admin HTTP server: a chi router over /admin/health,
// /admin/tasks, /metrics, and /ws.
type Server struct {
	router    *chi.Mux
	scheduler Scheduler
	wsHub     *websocket.Hub
	wsHandler *websocket.Handler
}

// Config configures the admin server's optional pieces.
type Config struct {
	Auth adminMiddleware.AuthConfig
	// Publisher, if non-nil, feeds the /ws live-status endpoint. When nil
	// the server runs in a degraded, WS-less mode. The RPC surface never
	// depends on this either way.
	Publisher *events.RedisPubSub
}

// NewServer constructs a Server reading from sched.
func NewServer(sched Scheduler, cfg Config) *Server {
	var hub *websocket.Hub
	var handler *websocket.Handler
	if cfg.Publisher != nil {
		hub = websocket.NewHub(cfg.Publisher)
		handler = websocket.NewHandler(hub)
	}

	s := &Server{
		router:    chi.NewRouter(),
		scheduler: sched,
		wsHub:     hub,
		wsHandler: handler,
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(adminMiddleware.Metrics())

	s.router.Route("/admin", func(r chi.Router) {
		r.Use(adminMiddleware.Auth(cfg.Auth))
		r.Get("/health", s.handleHealth)
		r.Get("/tasks", s.handleTasks)
	})

	s.router.Handle("/metrics", promhttp.Handler())

	if s.wsHandler != nil {
		s.router.Group(func(r chi.Router) {
			r.Use(adminMiddleware.Auth(cfg.Auth))
			r.Get("/ws", s.wsHandler.ServeWS)
		})
	}

	return s
}

// Start starts the WebSocket hub's relay loop, if one is configured.
func (s *Server) Start(ctx context.Context) {
	if s.wsHub != nil {
		go s.wsHub.Run(ctx)
	}
}

// Stop stops the WebSocket hub.
func (s *Server) Stop() {
	if s.wsHub != nil {
		s.wsHub.Stop()
	}
}

// Router returns the chi router, for embedding in an *http.Server.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe is a convenience wrapper that builds an *http.Server
// bound to addr and serves until the process exits or Shutdown is
// called on the returned *http.Server by the caller.
func ListenAndServe(addr string, handler http.Handler) *http.Server {
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("admin http server error")
		}
	}()
	return srv
}
