package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/reportloom/reportloom/internal/engine"
	"github.com/reportloom/reportloom/internal/export"
	"github.com/reportloom/reportloom/internal/metrics"
)

type initRequest struct {
	// Confirm persists the report. Without it the response is a preview of
	// the plan and nothing is stored.
	Confirm bool `json:"confirm"`
}

type reviewRequest struct {
	Accepted bool   `json:"accepted"`
	Feedback string `json:"feedback"`
}

type resetRequest struct {
	Force bool `json:"force"`
}

// decodeBody decodes an optional JSON request body. An empty body leaves v
// at its zero value.
func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.collector.Snapshot())
}

func (s *Server) handleInit(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	var req initRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body", Code: string(engine.ClassValidation)})
		return
	}

	start := time.Now()
	state, err := s.engine.Init(r.Context(), sessionID, req.Confirm)
	s.collector.Record(metrics.OpInit, time.Since(start), err)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	start := time.Now()
	state, err := s.engine.State(r.Context(), sessionID)
	s.collector.Record(metrics.OpGetState, time.Since(start), err)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	sectionID := chi.URLParam(r, "sectionID")

	start := time.Now()
	sec, err := s.engine.GenerateSection(r.Context(), sessionID, sectionID)
	s.collector.Record(metrics.OpGenerate, time.Since(start), err)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sec)
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	sectionID := chi.URLParam(r, "sectionID")
	var req reviewRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body", Code: string(engine.ClassValidation)})
		return
	}

	start := time.Now()
	sec, err := s.engine.SubmitReview(r.Context(), sessionID, sectionID, req.Accepted, req.Feedback)
	s.collector.Record(metrics.OpReview, time.Since(start), err)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sec)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	sectionID := chi.URLParam(r, "sectionID")
	var req resetRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body", Code: string(engine.ClassValidation)})
		return
	}

	start := time.Now()
	sec, err := s.engine.ResetSection(r.Context(), sessionID, sectionID, req.Force)
	s.collector.Record(metrics.OpReset, time.Since(start), err)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sec)
}

func (s *Server) handleFinalize(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	start := time.Now()
	state, err := s.engine.Finalize(r.Context(), sessionID)
	s.collector.Record(metrics.OpFinalize, time.Since(start), err)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	format := r.URL.Query().Get("format")
	if format == "" {
		format = string(export.FormatMarkdown)
	}

	start := time.Now()
	doc, err := s.engine.Export(r.Context(), sessionID, format)
	s.collector.Record(metrics.OpExport, time.Since(start), err)
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	w.Write(doc.Data)
}
