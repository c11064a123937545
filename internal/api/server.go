// Package api provides the HTTP API server for convoscope.
package api

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/convolab/convoscope/internal/auth"
	"github.com/convolab/convoscope/internal/config"
	"github.com/convolab/convoscope/internal/conv"
	"github.com/convolab/convoscope/internal/intelligence"
)

// Server represents the HTTP API server.
type Server struct {
	cfg      *config.Config
	users    *auth.Store
	sessions *auth.SessionManager
	agent    intelligence.Agent // nil when no API key is configured
	logger   *slog.Logger
	router   chi.Router
	server   *http.Server

	mu sync.RWMutex
	ds *conv.Dataset

	rateLimiter *RateLimiter
}

// NewServer creates a new API server. agent may be nil; the
// intelligence endpoint then reports the missing credential.
func NewServer(cfg *config.Config, ds *conv.Dataset, users *auth.Store, agent intelligence.Agent, logger *slog.Logger) *Server {
	sessionTTL := time.Duration(cfg.Server.SessionHours) * time.Hour
	s := &Server{
		cfg:      cfg,
		users:    users,
		sessions: auth.NewSessionManager(sessionTTL),
		agent:    agent,
		logger:   logger,
		ds:       ds,
	}
	s.router = s.setupRouter()
	return s
}

// dataset returns the current dataset under the read lock.
func (s *Server) dataset() *conv.Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ds
}

// swapDataset replaces the dataset; readers pick it up on the next request.
func (s *Server) swapDataset(ds *conv.Dataset) {
	s.mu.Lock()
	s.ds = ds
	s.mu.Unlock()
}

// setupRouter configures the chi router with all routes and middleware.
func (s *Server) setupRouter() chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(s.loggerMiddleware)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))

	qps := s.cfg.Server.RateLimitQPS
	if qps <= 0 {
		qps = 20
	}
	s.rateLimiter = NewRateLimiter(qps, int(qps)*2)
	r.Use(RateLimitMiddleware(s.rateLimiter))

	// Health check and login (no session required)
	r.Get("/health", s.handleHealth)
	r.Post("/api/v1/login", s.handleLogin)

	// API routes (session required)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.sessionMiddleware)

		r.Post("/logout", s.handleLogout)

		r.Get("/stats", s.handleStats)
		r.Get("/latency", s.handleLatency)

		r.Get("/threads", s.handleListThreads)
		r.Get("/threads/{id}", s.handleGetThread)

		r.Get("/search", s.handleSearch)

		r.Post("/intelligence", s.handleIntelligence)

		// Dataset replacement is admin-only
		r.With(s.adminOnly).Post("/datasets", s.handleUploadDataset)
	})

	return r
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(s.cfg.Server.APIPort))

	if s.users.Empty() {
		s.logger.Warn("no users configured; add [[users]] entries to config.toml before anyone can log in")
	}

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.logger.Info("starting API server", "addr", addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	s.logger.Info("shutting down API server")
	return s.server.Shutdown(ctx)
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// loggerMiddleware logs HTTP requests.
func (s *Server) loggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", chimw.GetReqID(r.Context()),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
