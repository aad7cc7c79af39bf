// Package api serves repositories, layouts and live session updates over
// HTTP and websocket to the presentation layer.
package api

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"gitnet/internal/config"
	"gitnet/internal/executor"
	"gitnet/internal/repo"
	"gitnet/internal/session"
)

// Server represents the HTTP API server
type Server struct {
	router   chi.Router
	server   *http.Server
	addr     string
	logger   *slog.Logger
	cfg      *config.Config
	sessions *session.Manager
	svc      *repo.Service
	commands *executor.CommandLog

	closing   chan struct{}
	closeOnce sync.Once
}

// NewServer creates a new HTTP server instance. commands may be nil when
// git runs through something other than the executor.
func NewServer(addr string, sessions *session.Manager, commands *executor.CommandLog, cfg *config.Config, logger *slog.Logger) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Server{
		addr:     addr,
		logger:   logger,
		cfg:      cfg,
		sessions: sessions,
		svc:      sessions.Service(),
		commands: commands,
		closing:  make(chan struct{}),
	}

	s.router = s.routes()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", "addr", s.addr)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Serve accepts connections on ln.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("Starting HTTP server", "addr", ln.Addr().String())

	if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to serve: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server. Open websocket streams are
// told to finish first since the HTTP server does not track hijacked
// connections.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	s.closeOnce.Do(func() { close(s.closing) })

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.logger.Info("Server shut down successfully")
	return nil
}

// ServeHTTP implements http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
