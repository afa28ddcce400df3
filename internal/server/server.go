// Package server exposes live virtualizer sessions and one-shot layouts
// over HTTP.
//
// Routes:
//
//	GET    /healthz
//	POST   /v1/layout
//	POST   /v1/sessions
//	GET    /v1/sessions/{id}
//	GET    /v1/sessions/{id}/items
//	POST   /v1/sessions/{id}/actions
//	DELETE /v1/sessions/{id}
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/masonry/pkg/cache"
	"github.com/matzehuels/masonry/pkg/config"
	"github.com/matzehuels/masonry/pkg/observability"
	"github.com/matzehuels/masonry/pkg/pipeline"
	"github.com/matzehuels/masonry/pkg/session"
)

const (
	// maxBodyBytes bounds request bodies, which carry whole feeds.
	maxBodyBytes = 16 << 20

	cleanupInterval = time.Minute
	shutdownTimeout = 10 * time.Second
)

// Server serves the session API.
type Server struct {
	cfg      config.Config
	logger   *log.Logger
	sessions *session.Manager
	runner   *pipeline.Runner
	stats    *observability.Stats
	router   chi.Router
}

// New creates a server. Sessions and one-shot layouts share c for
// persisted sizes. New registers the server's event counters as the
// process-wide observability hooks.
func New(cfg config.Config, c cache.Cache, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	keyer := cfg.Cache.Keyer()

	sessions := session.NewManager(c, keyer, logger)
	if cfg.Server.SessionTTL > 0 {
		sessions.TTL = cfg.Server.SessionTTL
	}
	if cfg.Server.MaxSessions > 0 {
		sessions.Max = cfg.Server.MaxSessions
	}
	if cfg.Cache.TTL > 0 {
		sessions.SizesTTL = cfg.Cache.TTL
	}

	runner := pipeline.NewRunner(sessions.Cache, keyer, logger)
	runner.SizesTTL = sessions.SizesTTL

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		sessions: sessions,
		runner:   runner,
		stats:    observability.NewStats(),
	}
	s.stats.Register()
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Sessions returns the session manager.
func (s *Server) Sessions() *session.Manager { return s.sessions }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.observe)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/layout", s.handleLayout)
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.handleCreateSession)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetSession)
				r.Delete("/", s.handleDeleteSession)
				r.Get("/items", s.handleItems)
				r.Post("/actions", s.handleAction)
			})
		})
	})
	return r
}

// Run serves until ctx is cancelled, then shuts down and persists every
// live session.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Server.Addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	cleanupCtx, stopCleanup := context.WithCancel(ctx)
	defer stopCleanup()
	go s.cleanupLoop(cleanupCtx)

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", srv.Addr)
		errc <- srv.ListenAndServe()
	}()

	var serveErr error
	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("shutting down", "sessions", s.sessions.Len())
	return errors.Join(serveErr, srv.Shutdown(shutdownCtx), s.sessions.Close(shutdownCtx))
}

func (s *Server) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.sessions.Cleanup(ctx)
			if err != nil {
				s.logger.Warn("session cleanup", "err", err)
			}
			if n > 0 {
				s.logger.Debug("expired sessions", "count", n)
			}
		}
	}
}
