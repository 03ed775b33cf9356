// Package server provides the HTTP API: question answering, metadata
// lookups, corpus status, and reindexing.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/papergraph/papergraph/internal/config"
	"github.com/papergraph/papergraph/internal/generation"
	"github.com/papergraph/papergraph/internal/graph"
	"github.com/papergraph/papergraph/internal/ingest"
	"github.com/papergraph/papergraph/internal/retrieval"
)

// Server is the HTTP server for the papergraph API.
type Server struct {
	responder *generation.Responder
	retriever *retrieval.GraphRetriever
	pipeline  *ingest.Pipeline
	store     graph.Store
	config    *config.Config
	logger    *zap.Logger
	server    *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	responder *generation.Responder,
	retriever *retrieval.GraphRetriever,
	pipeline *ingest.Pipeline,
	store graph.Store,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		responder: responder,
		retriever: retriever,
		pipeline:  pipeline,
		store:     store,
		config:    cfg,
		logger:    logger,
	}
}

// Router builds the chi router with middleware and routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.requireAPIKey)
		r.Post("/ask", s.handleAsk)
		r.Get("/metadata/{field}", s.handleMetadata)
		r.Get("/status", s.handleStatus)
		r.Post("/reindex", s.handleReindex)
	})

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// requestID tags every request with a UUID for log correlation.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(
			context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

type requestIDKey struct{}

// requireAPIKey rejects API requests without the configured X-API-Key. An
// empty configured key disables the check.
func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.config.Server.APIKey != "" && r.Header.Get("X-API-Key") != s.config.Server.APIKey {
			s.respondError(w, http.StatusUnauthorized, "invalid or missing API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}
