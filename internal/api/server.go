// Package api exposes cardgest runs over HTTP.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/cardgest/internal/llm"
	"github.com/dgallion1/cardgest/internal/pipeline"
)

// ModelInfo is what the stats endpoint reports on.
type ModelInfo interface {
	Model() string
	Stats() *llm.Stats
}

// Server is the HTTP API server for cardgest.
type Server struct {
	router chi.Router
	runner *pipeline.Runner
	model  ModelInfo
	log    *slog.Logger
	apiKey string
}

// NewServer creates and configures the HTTP server.
func NewServer(runner *pipeline.Runner, model ModelInfo, log *slog.Logger, apiKey string) *Server {
	s := &Server{
		runner: runner,
		model:  model,
		log:    log,
		apiKey: apiKey,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.apiKey))

		r.Post("/api/runs", s.handleRun)
		r.Get("/api/runs/{runID}", s.handleRunStatus)
		r.Get("/api/sections", s.handleSections)
		r.Post("/api/cards/parse", s.handleParseCards)
		r.Get("/api/stats/llm", s.handleLLMStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
