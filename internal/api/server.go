// Package api exposes the analysis pipeline over HTTP.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/compligest/internal/config"
	"github.com/dgallion1/compligest/internal/extract"
	"github.com/dgallion1/compligest/internal/pipeline"
)

// Server is the HTTP API server for compligest.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	llm          *extract.GeminiClient
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, llm *extract.GeminiClient, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		llm:          llm,
		log:          log,
		cfg:          cfg,
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
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/analyze", s.handleAnalyze)
		r.Post("/api/analyze/batch", s.handleBatchAnalyze)
		r.Get("/api/analyze/{jobID}/status", s.handleAnalyzeStatus)
		r.Get("/api/analyze/{jobID}/report", s.handleAnalyzeReport)
		r.Get("/api/stats/llm", s.handleLLMStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
