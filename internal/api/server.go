// Package api exposes the expense commands and the sync trigger over HTTP.
// It is a thin binding: all semantics live in the expense service and the
// sync engine.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/marcus/spn/internal/expense"
	"github.com/marcus/spn/internal/sync"
)

// Config holds the HTTP server settings.
type Config struct {
	ListenAddr string
}

// Server is the HTTP API server for one replica.
type Server struct {
	config Config
	http   *http.Server
	svc    *expense.Service
	engine *sync.Engine
}

// NewServer creates a new Server over the expense service and sync engine.
// engine may be nil when no sync file is configured; POST /sync then
// returns an error response.
func NewServer(cfg Config, svc *expense.Service, engine *sync.Engine) *Server {
	s := &Server{
		config: cfg,
		svc:    svc,
		engine: engine,
	}

	s.http = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      s.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /expenses", s.handleCreate)
	mux.HandleFunc("GET /expenses", s.handleList)
	mux.HandleFunc("GET /expenses/{id}", s.handleFind)
	mux.HandleFunc("PUT /expenses/{id}", s.handleUpdate)
	mux.HandleFunc("DELETE /expenses/{id}", s.handleDelete)
	mux.HandleFunc("POST /sync", s.handleSync)
	mux.HandleFunc("GET /healthz", s.handleHealthz)

	return requestIDMiddleware(loggingMiddleware(recoverMiddleware(mux)))
}

// Start begins listening for HTTP requests (non-blocking).
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	go func() {
		if err := s.http.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("http server", "err", err)
		}
	}()

	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Handler returns the configured HTTP handler (used by tests).
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}
