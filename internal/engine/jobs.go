package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/reportloom/reportloom/internal/artifact"
	"github.com/reportloom/reportloom/internal/export"
	"github.com/reportloom/reportloom/internal/generator"
	"github.com/reportloom/reportloom/internal/metrics"
	"github.com/reportloom/reportloom/internal/report"
	"github.com/reportloom/reportloom/internal/store"
)

// jobWriteAttempts bounds the reload/apply/write cycle a job completion runs
// when user commands race it on the same report.
const jobWriteAttempts = 5

// applyWithRetry loads the aggregate, applies the mutation, and writes it
// back, retrying the whole cycle on version conflicts. Errors from apply
// itself are returned as-is and end the retries.
func (e *Engine) applyWithRetry(ctx context.Context, sessionID string, apply func(*report.Report) error) error {
	var lastErr error
	for attempt := 0; attempt < jobWriteAttempts; attempt++ {
		r, err := e.store.Get(ctx, sessionID)
		if err != nil {
			return err
		}
		if err := apply(r); err != nil {
			return err
		}
		err = e.store.Put(ctx, r)
		if err == nil {
			return nil
		}
		if !errors.Is(err, store.ErrVersionConflict) {
			return err
		}
		lastErr = err
		time.Sleep(time.Duration(attempt+1) * 50 * time.Millisecond)
	}
	return lastErr
}

// spawnGeneration snapshots the generation inputs and launches the draft
// job. The snapshot is taken synchronously so the job never touches the
// caller's aggregate.
func (e *Engine) spawnGeneration(r *report.Report, sec *report.Section) {
	req := generator.Request{
		SessionID:       r.SessionID,
		SectionID:       sec.ID,
		Title:           sec.Title,
		Description:     sec.Description,
		Feedback:        sec.Feedback,
		PreviousContent: sec.Content,
		Revision:        sec.Revision,
	}
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				e.logger.Error("generation job panicked", "session_id", req.SessionID, "section_id", req.SectionID, "panic", rec)
				if err := e.applyWithRetry(context.Background(), req.SessionID, func(r *report.Report) error {
					_, failErr := r.FailGeneration(req.SectionID, fmt.Sprintf("internal error: %v", rec))
					return failErr
				}); err != nil {
					e.logger.Error("failed to record generation panic", "session_id", req.SessionID, "section_id", req.SectionID, "error", err)
				}
			}
		}()

		if err := e.sem.Acquire(context.Background(), 1); err != nil {
			return
		}
		defer e.sem.Release(1)

		// Jobs outlive the request that spawned them.
		e.runGeneration(context.Background(), req)
	}()
}

func (e *Engine) runGeneration(ctx context.Context, req generator.Request) {
	start := time.Now()
	e.logger.Info("generation started", "session_id", req.SessionID, "section_id", req.SectionID, "revision", req.Revision)

	result, genErr := e.generator.Generate(ctx, req)

	var landErr error
	if genErr != nil {
		landErr = e.applyWithRetry(ctx, req.SessionID, func(r *report.Report) error {
			_, err := r.FailGeneration(req.SectionID, genErr.Error())
			return err
		})
	} else {
		// Snapshot the draft before landing it; the history entry points
		// at the snapshot.
		ref := artifact.SnapshotKey(req.SessionID, req.SectionID)
		if err := e.artifacts.Put(ctx, ref, []byte(result.Content), "text/markdown"); err != nil {
			e.logger.Warn("failed to store content snapshot", "session_id", req.SessionID, "section_id", req.SectionID, "error", err)
			ref = ""
		}
		entry := report.HistoryEntry{
			ContentSnapshotRef: ref,
			ModelName:          result.ModelName,
			Timestamp:          time.Now().UTC(),
		}
		landErr = e.applyWithRetry(ctx, req.SessionID, func(r *report.Report) error {
			_, err := r.CompleteGeneration(req.SectionID, result.Content, entry)
			return err
		})
	}

	jobErr := genErr
	if jobErr == nil {
		jobErr = landErr
	}
	e.collector.Record(metrics.OpGenerationJob, time.Since(start), jobErr)

	switch {
	case genErr == nil && landErr == nil:
		e.logger.Info("generation completed", "session_id", req.SessionID, "section_id", req.SectionID, "duration", time.Since(start))
	case errors.Is(landErr, report.ErrNotGenerating):
		// The section moved on while we worked; the result is stale and is
		// dropped without touching the newer state.
		e.logger.Info("generation result dropped as stale", "session_id", req.SessionID, "section_id", req.SectionID)
	case genErr != nil:
		e.logger.Warn("generation failed", "session_id", req.SessionID, "section_id", req.SectionID, "error", genErr)
	default:
		e.logger.Error("failed to land generation result", "session_id", req.SessionID, "section_id", req.SectionID, "error", landErr)
	}
}

// spawnFinalize launches the validate-and-assemble job. Finalize does not
// consume a generation slot; assembly is cheap compared to drafting.
func (e *Engine) spawnFinalize(sessionID string) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				e.logger.Error("finalize job panicked", "session_id", sessionID, "panic", rec)
				if err := e.applyWithRetry(context.Background(), sessionID, func(r *report.Report) error {
					r.FailFinalize(fmt.Sprintf("internal error: %v", rec))
					return nil
				}); err != nil {
					e.logger.Error("failed to record finalize panic", "session_id", sessionID, "error", err)
				}
			}
		}()
		e.runFinalize(context.Background(), sessionID)
	}()
}

func (e *Engine) runFinalize(ctx context.Context, sessionID string) {
	start := time.Now()
	e.logger.Info("finalize started", "session_id", sessionID)

	err := e.finalize(ctx, sessionID)
	e.collector.Record(metrics.OpFinalizeJob, time.Since(start), err)

	if err != nil {
		e.logger.Warn("finalize failed", "session_id", sessionID, "error", err)
		if failErr := e.applyWithRetry(ctx, sessionID, func(r *report.Report) error {
			r.FailFinalize(err.Error())
			return nil
		}); failErr != nil {
			e.logger.Error("failed to record finalize failure", "session_id", sessionID, "error", failErr)
		}
		return
	}
	e.logger.Info("finalize completed", "session_id", sessionID, "duration", time.Since(start))
}

func (e *Engine) finalize(ctx context.Context, sessionID string) error {
	r, err := e.store.Get(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load report: %w", err)
	}

	if err := validateDocument(r); err != nil {
		return err
	}

	if err := e.applyWithRetry(ctx, sessionID, func(r *report.Report) error {
		return r.MarkFinalizing()
	}); err != nil {
		return fmt.Errorf("enter finalizing: %w", err)
	}

	doc := export.Assemble(r)
	ref := artifact.DocumentKey(sessionID, export.FormatMarkdown.Ext())
	if err := e.artifacts.Put(ctx, ref, doc, export.FormatMarkdown.ContentType()); err != nil {
		return fmt.Errorf("store document: %w", err)
	}

	if err := e.applyWithRetry(ctx, sessionID, func(r *report.Report) error {
		return r.CompleteFinalize(ref)
	}); err != nil {
		return fmt.Errorf("complete finalize: %w", err)
	}
	return nil
}

// validateDocument re-checks the aggregate under the validating phase. The
// entry checks already required all sections accepted; this guards the
// assembled document against writes that slipped in between replicas.
func validateDocument(r *report.Report) error {
	for i := range r.Sections {
		sec := &r.Sections[i]
		if sec.Status != report.SectionAccepted {
			return fmt.Errorf("section %s is %s, expected accepted", sec.ID, sec.Status)
		}
		if strings.TrimSpace(sec.Content) == "" {
			return fmt.Errorf("section %s has no content", sec.ID)
		}
	}
	return nil
}

// Resume re-enqueues work that was in flight when the server stopped:
// sections stuck generating are re-drafted from their stored inputs, and
// reports caught mid-finalize re-run assembly from the validating phase.
func (e *Engine) Resume(ctx context.Context) error {
	sessions, err := e.store.Sessions(ctx)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}

	resumed := 0
	for _, sessionID := range sessions {
		r, err := e.store.Get(ctx, sessionID)
		if err != nil {
			e.logger.Warn("failed to load report for resume", "session_id", sessionID, "error", err)
			continue
		}

		for i := range r.Sections {
			sec := &r.Sections[i]
			if sec.Status != report.SectionGenerating {
				continue
			}
			e.logger.Info("resuming generation", "session_id", sessionID, "section_id", sec.ID)
			e.spawnGeneration(r, sec)
			resumed++
		}

		if r.Phase == report.PhaseValidating || r.Phase == report.PhaseFinalizing {
			e.logger.Info("resuming finalize", "session_id", sessionID, "phase", r.Phase)
			if err := e.applyWithRetry(ctx, sessionID, func(r *report.Report) error {
				return r.RestartFinalize()
			}); err != nil {
				e.logger.Warn("failed to rewind finalize for resume", "session_id", sessionID, "error", err)
				continue
			}
			e.spawnFinalize(sessionID)
			resumed++
		}
	}

	if resumed > 0 {
		e.logger.Info("resumed interrupted jobs", "sessions", len(sessions), "jobs", resumed)
	}
	return nil
}
