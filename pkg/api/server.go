package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cuemby/loft/pkg/log"
	"github.com/cuemby/loft/pkg/metrics"
	"github.com/cuemby/loft/pkg/reconcile"
	"github.com/cuemby/loft/pkg/storage"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Config holds API server configuration
type Config struct {
	Listen string
}

// Server is the HTTP surface of the control plane: the reconcile endpoint
// agents poll, plus the workspace management endpoints users drive.
type Server struct {
	config    Config
	store     storage.Store
	processor *reconcile.Processor
	logger    zerolog.Logger
	server    *http.Server
}

// New creates a new API server instance
func New(config Config, store storage.Store) *Server {
	return &Server{
		config:    config,
		store:     store,
		processor: reconcile.NewProcessor(store),
		logger:    log.WithComponent("api"),
	}
}

// Routes builds the router. Exposed separately so tests can drive the
// handlers without a listening socket.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/agents", s.handleCreateAgent)
		r.Route("/agents/{agentID}", func(r chi.Router) {
			r.Post("/reconcile", s.handleReconcile)
			r.Get("/workspaces", s.handleListWorkspaces)
			r.Post("/workspaces", s.handleCreateWorkspace)
			r.Put("/workspaces/{name}/desired_state", s.handleSetDesiredState)
		})
	})

	return r
}

// Start runs the server until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.config.Listen,
		Handler:      s.Routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info().Str("listen", s.config.Listen).Msg("API server starting")

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info().Msg("API server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
}
