// Package engine implements the authoritative report workflow: it owns the
// persisted aggregate, validates every command against the lifecycle rules,
// and runs the asynchronous generation and finalize jobs.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/reportloom/reportloom/internal/artifact"
	"github.com/reportloom/reportloom/internal/export"
	"github.com/reportloom/reportloom/internal/generator"
	"github.com/reportloom/reportloom/internal/metrics"
	"github.com/reportloom/reportloom/internal/report"
	"github.com/reportloom/reportloom/internal/store"
)

// DefaultMaxConcurrentGenerations bounds how many drafts one server renders
// at a time. Generation is the expensive call; everything else is cheap.
const DefaultMaxConcurrentGenerations = 4

// Engine orchestrates report workflows. All methods are safe for concurrent
// use; the store's version check arbitrates between racing writers.
type Engine struct {
	store     store.Store
	generator generator.Generator
	artifacts artifact.Store
	renderer  export.Renderer
	plan      report.Plan
	logger    *slog.Logger
	collector *metrics.Collector

	sem *semaphore.Weighted
	wg  sync.WaitGroup
}

// Options carries the optional engine collaborators.
type Options struct {
	// Renderer converts assembled documents to docx and pdf. Without one
	// those formats are refused as unsupported.
	Renderer export.Renderer

	Logger    *slog.Logger
	Collector *metrics.Collector

	// MaxConcurrentGenerations caps parallel generation jobs. Zero means
	// DefaultMaxConcurrentGenerations.
	MaxConcurrentGenerations int
}

// New creates an engine drafting sections with gen and persisting through st.
func New(st store.Store, gen generator.Generator, artifacts artifact.Store, plan report.Plan, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	collector := opts.Collector
	if collector == nil {
		collector = metrics.NewCollector()
	}
	maxJobs := opts.MaxConcurrentGenerations
	if maxJobs <= 0 {
		maxJobs = DefaultMaxConcurrentGenerations
	}
	return &Engine{
		store:     st,
		generator: gen,
		artifacts: artifacts,
		renderer:  opts.Renderer,
		plan:      plan,
		logger:    logger,
		collector: collector,
		sem:       semaphore.NewWeighted(int64(maxJobs)),
	}
}

// Stats returns a snapshot of the operation metrics.
func (e *Engine) Stats() metrics.Snapshot {
	return e.collector.Snapshot()
}

// Wait blocks until every background job has finished. Used on shutdown and
// in tests.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// Init creates the report for a session, or confirms an existing one. With
// confirm unset this is a dry run: the caller sees the sections the plan
// would instantiate, but nothing is persisted, so abandoned sessions leave
// no trace.
func (e *Engine) Init(ctx context.Context, sessionID string, confirm bool) (report.ReportState, error) {
	if strings.TrimSpace(sessionID) == "" {
		return report.ReportState{}, ErrInvalidSession
	}

	r, err := e.store.Get(ctx, sessionID)
	switch {
	case err == nil:
		if confirm && !r.Confirmed {
			r.Confirm()
			if err := e.store.Put(ctx, r); err != nil {
				return report.ReportState{}, fmt.Errorf("confirm report: %w", err)
			}
			e.logger.Info("report confirmed", "session_id", sessionID)
		}
		return r.State(), nil

	case errors.Is(err, store.ErrNotFound):
		r = report.New(sessionID, e.plan)
		if !confirm {
			return r.State(), nil
		}
		r.Confirm()
		if err := e.store.Put(ctx, r); err != nil {
			if errors.Is(err, store.ErrVersionConflict) {
				// Lost a create race; the other writer's report wins.
				return e.Init(ctx, sessionID, confirm)
			}
			return report.ReportState{}, fmt.Errorf("create report: %w", err)
		}
		e.logger.Info("report created", "session_id", sessionID, "plan", e.plan.Name, "sections", len(r.Sections))
		return r.State(), nil

	default:
		return report.ReportState{}, fmt.Errorf("load report: %w", err)
	}
}

// State returns the authoritative report state for a session.
func (e *Engine) State(ctx context.Context, sessionID string) (report.ReportState, error) {
	r, err := e.store.Get(ctx, sessionID)
	if err != nil {
		return report.ReportState{}, err
	}
	return r.State(), nil
}

// GenerateSection validates the transition, marks the section generating,
// and enqueues the draft job. The returned section already shows as
// generating; the draft itself lands asynchronously.
func (e *Engine) GenerateSection(ctx context.Context, sessionID, sectionID string) (report.Section, error) {
	r, err := e.store.Get(ctx, sessionID)
	if err != nil {
		return report.Section{}, err
	}
	sec, err := r.BeginGeneration(sectionID)
	if err != nil {
		return report.Section{}, err
	}
	if err := e.store.Put(ctx, r); err != nil {
		return report.Section{}, fmt.Errorf("persist generation start: %w", err)
	}
	e.logger.Info("generation requested", "session_id", sessionID, "section_id", sectionID, "revision", sec.Revision)
	e.spawnGeneration(r, sec)
	return sec.Clone(), nil
}

// SubmitReview applies a review verdict. An accepted section is frozen; a
// rejected one consumes a revision and re-enters generation immediately,
// steered by the feedback.
func (e *Engine) SubmitReview(ctx context.Context, sessionID, sectionID string, accepted bool, feedback string) (report.Section, error) {
	r, err := e.store.Get(ctx, sessionID)
	if err != nil {
		return report.Section{}, err
	}
	sec, err := r.SubmitReview(sectionID, accepted, feedback)
	if err != nil {
		return report.Section{}, err
	}
	if err := e.store.Put(ctx, r); err != nil {
		return report.Section{}, fmt.Errorf("persist review: %w", err)
	}
	e.logger.Info("review submitted", "session_id", sessionID, "section_id", sectionID, "accepted", accepted)
	if !accepted {
		e.spawnGeneration(r, sec)
	}
	return sec.Clone(), nil
}

// ResetSection returns a section to planned, destroying its content and
// revision history. Dependents are not cascaded; their accepted content
// stays valid until the user decides otherwise.
func (e *Engine) ResetSection(ctx context.Context, sessionID, sectionID string, force bool) (report.Section, error) {
	r, err := e.store.Get(ctx, sessionID)
	if err != nil {
		return report.Section{}, err
	}
	sec, err := r.ResetSection(sectionID, force)
	if err != nil {
		return report.Section{}, err
	}
	if err := e.store.Put(ctx, r); err != nil {
		return report.Section{}, fmt.Errorf("persist reset: %w", err)
	}
	e.logger.Info("section reset", "session_id", sessionID, "section_id", sectionID, "force", force)
	return sec.Clone(), nil
}

// Finalize enters the validating phase and enqueues the assembly job. The
// job drives the report to completed, or to failed with a remediation
// message.
func (e *Engine) Finalize(ctx context.Context, sessionID string) (report.ReportState, error) {
	r, err := e.store.Get(ctx, sessionID)
	if err != nil {
		return report.ReportState{}, err
	}
	if err := r.BeginFinalize(); err != nil {
		return report.ReportState{}, err
	}
	if err := e.store.Put(ctx, r); err != nil {
		return report.ReportState{}, fmt.Errorf("persist finalize start: %w", err)
	}
	e.logger.Info("finalize requested", "session_id", sessionID)
	e.spawnFinalize(sessionID)
	return r.State(), nil
}

// Document is an exported report document ready to serve.
type Document struct {
	Data        []byte
	ContentType string
	Filename    string
}

// Export serves the completed report in the requested format. Markdown comes
// straight from the assembled document artifact; docx and pdf are rendered
// on first request and the rendered artifact is reused afterwards.
func (e *Engine) Export(ctx context.Context, sessionID, formatParam string) (Document, error) {
	format, err := export.ParseFormat(formatParam)
	if err != nil {
		return Document{}, err
	}
	if format != export.FormatMarkdown && e.renderer == nil {
		return Document{}, fmt.Errorf("%w: no render service configured for %s", export.ErrUnsupportedFormat, format)
	}

	r, err := e.store.Get(ctx, sessionID)
	if err != nil {
		return Document{}, err
	}
	if err := report.CanExport(r.State()); err != nil {
		return Document{}, err
	}

	filename := fmt.Sprintf("%s.%s", r.SessionID, format.Ext())

	if format == export.FormatMarkdown {
		data, contentType, err := e.artifacts.Get(ctx, r.DocumentRef)
		if err != nil {
			return Document{}, fmt.Errorf("load document artifact: %w", err)
		}
		if contentType == "" {
			contentType = format.ContentType()
		}
		return Document{Data: data, ContentType: contentType, Filename: filename}, nil
	}

	if ref, ok := r.Exports[string(format)]; ok {
		data, contentType, err := e.artifacts.Get(ctx, ref)
		if err == nil {
			if contentType == "" {
				contentType = format.ContentType()
			}
			return Document{Data: data, ContentType: contentType, Filename: filename}, nil
		}
		if !errors.Is(err, artifact.ErrNotFound) {
			return Document{}, fmt.Errorf("load rendered artifact: %w", err)
		}
		e.logger.Warn("rendered artifact missing, re-rendering", "session_id", sessionID, "format", format)
	}

	markdown, _, err := e.artifacts.Get(ctx, r.DocumentRef)
	if err != nil {
		return Document{}, fmt.Errorf("load document artifact: %w", err)
	}
	data, err := e.renderer.Render(ctx, r.Title, markdown, format)
	if err != nil {
		return Document{}, fmt.Errorf("render %s: %w", format, err)
	}

	// Store the rendering for reuse. The export itself already succeeded,
	// so storage trouble only costs a re-render next time.
	ref := artifact.DocumentKey(sessionID, format.Ext())
	if err := e.artifacts.Put(ctx, ref, data, format.ContentType()); err != nil {
		e.logger.Warn("failed to store rendered artifact", "session_id", sessionID, "format", format, "error", err)
	} else if err := e.applyWithRetry(ctx, sessionID, func(r *report.Report) error {
		return r.RecordExport(string(format), ref)
	}); err != nil {
		e.logger.Warn("failed to record export", "session_id", sessionID, "format", format, "error", err)
	}

	return Document{Data: data, ContentType: format.ContentType(), Filename: filename}, nil
}
