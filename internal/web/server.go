// Package web exposes the results of a completed deduplication run over
// a read-only HTTP API.
package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/couckoo/couckoo/internal/dedupe"
)

// Server serves a completed run's labels, groups and scores. The result
// is immutable once the server starts, so handlers need no locking.
type Server struct {
	result     *dedupe.Result
	router     *chi.Mux
	httpServer *http.Server
}

// NewServer creates a server for the given run result.
func NewServer(result *dedupe.Result, host string, port int) *Server {
	r := chi.NewRouter()

	s := &Server{
		result: result,
		router: r,
	}

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(30 * time.Second))

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/labels", s.handleLabels)
		r.Get("/groups", s.handleGroups)
		r.Get("/scores", s.handleScores)
	})
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins serving; it blocks until the server stops.
func (s *Server) Start() error {
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
