// Package server exposes the report engine over HTTP.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/reportloom/reportloom/internal/engine"
	"github.com/reportloom/reportloom/internal/metrics"
)

// Server wires the engine into an HTTP router.
type Server struct {
	engine    *engine.Engine
	collector *metrics.Collector
	logger    *slog.Logger
}

// New creates a server around the engine. The collector is shared with the
// engine so /api/stats covers API operations and background jobs alike.
func New(e *engine.Engine, collector *metrics.Collector, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if collector == nil {
		collector = metrics.NewCollector()
	}
	return &Server{engine: e, collector: collector, logger: logger}
}

// Router builds the HTTP surface.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(RequestLogger(s.logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Get("/api/stats", s.handleStats)

	r.Route("/api/reports/{sessionID}", func(r chi.Router) {
		r.Post("/init", s.handleInit)
		r.Get("/", s.handleState)
		r.Post("/finalize", s.handleFinalize)
		r.Get("/export", s.handleExport)
		r.Route("/sections/{sectionID}", func(r chi.Router) {
			r.Post("/generate", s.handleGenerate)
			r.Post("/review", s.handleReview)
			r.Post("/reset", s.handleReset)
		})
	})

	return r
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps an engine error onto its HTTP status and error payload.
// Internal errors are logged in full and served with a generic message.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	class := engine.Classify(err)
	status := statusFor(class)
	message := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
		message = "internal error"
	}
	writeJSON(w, status, errorResponse{Error: message, Code: string(class)})
}

func statusFor(class engine.Class) int {
	switch class {
	case engine.ClassValidation, engine.ClassUnsupportedFormat:
		return http.StatusBadRequest
	case engine.ClassNotFound:
		return http.StatusNotFound
	case engine.ClassConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
