package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/reportloom/reportloom/internal/artifact"
	"github.com/reportloom/reportloom/internal/export"
	"github.com/reportloom/reportloom/internal/generator"
	"github.com/reportloom/reportloom/internal/report"
	"github.com/reportloom/reportloom/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testPlan() report.Plan {
	return report.Plan{
		Name:  "research-report",
		Title: "Research Report",
		Sections: []report.PlanSection{
			{ID: "intro", Title: "Introduction", Description: "Frame the research question."},
			{ID: "body", Title: "Body", Description: "Develop the argument.", DependsOn: []string{"intro"}},
		},
	}
}

// fakeGenerator records every request and answers with fn, or with a canned
// draft when fn is unset.
type fakeGenerator struct {
	mu    sync.Mutex
	calls []generator.Request
	fn    func(generator.Request) (generator.Result, error)
}

func (g *fakeGenerator) Generate(ctx context.Context, req generator.Request) (generator.Result, error) {
	g.mu.Lock()
	g.calls = append(g.calls, req)
	fn := g.fn
	g.mu.Unlock()
	if fn != nil {
		return fn(req)
	}
	return generator.Result{Content: "Draft for " + req.SectionID + ".", ModelName: "fake-model"}, nil
}

func (g *fakeGenerator) setFn(fn func(generator.Request) (generator.Result, error)) {
	g.mu.Lock()
	g.fn = fn
	g.mu.Unlock()
}

func (g *fakeGenerator) requests() []generator.Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]generator.Request, len(g.calls))
	copy(out, g.calls)
	return out
}

type fakeRenderer struct {
	mu      sync.Mutex
	renders int
}

func (f *fakeRenderer) Render(ctx context.Context, title string, markdown []byte, format export.Format) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.renders++
	return []byte(fmt.Sprintf("%s rendering of %q (%d bytes)", format, title, len(markdown))), nil
}

func (f *fakeRenderer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.renders
}

func newTestEngine(t *testing.T, opts Options) (*Engine, *store.Memory, *artifact.Memory, *fakeGenerator) {
	t.Helper()
	st := store.NewMemory()
	artifacts := artifact.NewMemory()
	gen := &fakeGenerator{}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	e := New(st, gen, artifacts, testPlan(), opts)
	t.Cleanup(e.Wait)
	return e, st, artifacts, gen
}

func awaitSection(t *testing.T, e *Engine, sessionID, sectionID string, status report.SectionStatus) report.ReportState {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		state, err := e.State(context.Background(), sessionID)
		if err != nil {
			t.Fatalf("State failed: %v", err)
		}
		sec := state.Section(sectionID)
		if sec == nil {
			t.Fatalf("Section %s missing from state", sectionID)
		}
		if sec.Status == status {
			return state
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Section %s never reached %s", sectionID, status)
	return report.ReportState{}
}

func awaitStatus(t *testing.T, e *Engine, sessionID string, status report.ReportStatus) report.ReportState {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		state, err := e.State(context.Background(), sessionID)
		if err != nil {
			t.Fatalf("State failed: %v", err)
		}
		if state.ReportStatus == status {
			return state
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Report never reached %s", status)
	return report.ReportState{}
}

func mustInit(t *testing.T, e *Engine, sessionID string) {
	t.Helper()
	if _, err := e.Init(context.Background(), sessionID, true); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
}

func acceptSection(t *testing.T, e *Engine, sessionID, sectionID string) {
	t.Helper()
	if _, err := e.GenerateSection(context.Background(), sessionID, sectionID); err != nil {
		t.Fatalf("GenerateSection(%s) failed: %v", sectionID, err)
	}
	awaitSection(t, e, sessionID, sectionID, report.SectionReview)
	if _, err := e.SubmitReview(context.Background(), sessionID, sectionID, true, ""); err != nil {
		t.Fatalf("SubmitReview(%s) failed: %v", sectionID, err)
	}
}

func TestInitDryRunDoesNotPersist(t *testing.T) {
	e, st, _, _ := newTestEngine(t, Options{})
	ctx := context.Background()

	state, err := e.Init(ctx, "session-1", false)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if state.ReportStatus != report.StatusUninitialized {
		t.Errorf("Expected status %s, got %s", report.StatusUninitialized, state.ReportStatus)
	}
	if len(state.Sections) != 2 {
		t.Errorf("Expected 2 planned sections in the preview, got %d", len(state.Sections))
	}
	if _, err := st.Get(ctx, "session-1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected dry run to persist nothing, got %v", err)
	}
}

func TestInitConfirmIsIdempotent(t *testing.T) {
	e, st, _, _ := newTestEngine(t, Options{})
	ctx := context.Background()

	state, err := e.Init(ctx, "session-1", true)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if state.ReportStatus != report.StatusInProgress {
		t.Errorf("Expected status %s, got %s", report.StatusInProgress, state.ReportStatus)
	}
	if !state.UserConfirmedStart {
		t.Error("Expected the confirmation gate to be set")
	}

	if _, err := e.Init(ctx, "session-1", true); err != nil {
		t.Fatalf("Second Init failed: %v", err)
	}
	r, err := st.Get(ctx, "session-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if r.Version != 1 {
		t.Errorf("Expected repeated confirm to leave version 1, got %d", r.Version)
	}
}

func TestInitRejectsEmptySession(t *testing.T) {
	e, _, _, _ := newTestEngine(t, Options{})

	_, err := e.Init(context.Background(), "  ", true)
	if !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("Expected ErrInvalidSession, got %v", err)
	}
	if got := Classify(err); got != ClassValidation {
		t.Errorf("Expected class %s, got %s", ClassValidation, got)
	}
}

func TestStateUnknownSession(t *testing.T) {
	e, _, _, _ := newTestEngine(t, Options{})

	_, err := e.State(context.Background(), "missing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
	if got := Classify(err); got != ClassNotFound {
		t.Errorf("Expected class %s, got %s", ClassNotFound, got)
	}
}

func TestGenerateLandsDraft(t *testing.T) {
	e, _, artifacts, gen := newTestEngine(t, Options{})
	ctx := context.Background()
	mustInit(t, e, "session-1")

	started, err := e.GenerateSection(ctx, "session-1", "intro")
	if err != nil {
		t.Fatalf("GenerateSection failed: %v", err)
	}
	if started.Status != report.SectionGenerating {
		t.Errorf("Expected immediate status %s, got %s", report.SectionGenerating, started.Status)
	}

	state := awaitSection(t, e, "session-1", "intro", report.SectionReview)
	sec := state.Section("intro")
	if sec.Content != "Draft for intro." {
		t.Errorf("Expected the draft content, got %q", sec.Content)
	}
	if sec.Revision != 0 {
		t.Errorf("Expected the first draft to stay at revision 0, got %d", sec.Revision)
	}
	if len(sec.History) != 1 {
		t.Fatalf("Expected 1 history entry, got %d", len(sec.History))
	}
	entry := sec.History[0]
	if entry.ModelName != "fake-model" {
		t.Errorf("Expected model name fake-model, got %q", entry.ModelName)
	}
	snap, _, err := artifacts.Get(ctx, entry.ContentSnapshotRef)
	if err != nil {
		t.Fatalf("Expected a stored content snapshot, got %v", err)
	}
	if string(snap) != "Draft for intro." {
		t.Errorf("Expected snapshot to match the draft, got %q", snap)
	}

	reqs := gen.requests()
	if len(reqs) != 1 {
		t.Fatalf("Expected 1 generation request, got %d", len(reqs))
	}
	if reqs[0].Description != "Frame the research question." {
		t.Errorf("Expected the plan description to be forwarded, got %q", reqs[0].Description)
	}
}

func TestGenerateRespectsDependencies(t *testing.T) {
	e, _, _, _ := newTestEngine(t, Options{})
	ctx := context.Background()
	mustInit(t, e, "session-1")

	_, err := e.GenerateSection(ctx, "session-1", "body")
	if !errors.Is(err, report.ErrDependenciesUnmet) {
		t.Fatalf("Expected ErrDependenciesUnmet, got %v", err)
	}
	if got := Classify(err); got != ClassValidation {
		t.Errorf("Expected class %s, got %s", ClassValidation, got)
	}

	acceptSection(t, e, "session-1", "intro")
	if _, err := e.GenerateSection(ctx, "session-1", "body"); err != nil {
		t.Fatalf("Expected generation to start once intro accepted, got %v", err)
	}
	awaitSection(t, e, "session-1", "body", report.SectionReview)
}

func TestGenerateDuplicateIsConflict(t *testing.T) {
	e, _, _, gen := newTestEngine(t, Options{})
	ctx := context.Background()
	mustInit(t, e, "session-1")

	release := make(chan struct{})
	gen.setFn(func(req generator.Request) (generator.Result, error) {
		<-release
		return generator.Result{Content: "Draft.", ModelName: "fake-model"}, nil
	})

	if _, err := e.GenerateSection(ctx, "session-1", "intro"); err != nil {
		t.Fatalf("GenerateSection failed: %v", err)
	}
	_, err := e.GenerateSection(ctx, "session-1", "intro")
	if !errors.Is(err, report.ErrGenerationInFlight) {
		t.Fatalf("Expected ErrGenerationInFlight, got %v", err)
	}
	if got := Classify(err); got != ClassConflict {
		t.Errorf("Expected class %s, got %s", ClassConflict, got)
	}

	close(release)
	awaitSection(t, e, "session-1", "intro", report.SectionReview)
}

func TestRejectionSpawnsRevision(t *testing.T) {
	e, _, _, gen := newTestEngine(t, Options{})
	ctx := context.Background()
	mustInit(t, e, "session-1")

	if _, err := e.GenerateSection(ctx, "session-1", "intro"); err != nil {
		t.Fatalf("GenerateSection failed: %v", err)
	}
	awaitSection(t, e, "session-1", "intro", report.SectionReview)

	rejected, err := e.SubmitReview(ctx, "session-1", "intro", false, "Needs more detail.")
	if err != nil {
		t.Fatalf("SubmitReview failed: %v", err)
	}
	if rejected.Status != report.SectionGenerating {
		t.Errorf("Expected rejection to re-enter %s, got %s", report.SectionGenerating, rejected.Status)
	}
	if rejected.Revision != 1 {
		t.Errorf("Expected revision 1 after rejection, got %d", rejected.Revision)
	}

	state := awaitSection(t, e, "session-1", "intro", report.SectionReview)
	sec := state.Section("intro")
	if sec.Feedback != "" {
		t.Errorf("Expected consumed feedback to be cleared, got %q", sec.Feedback)
	}
	if len(sec.History) != 2 {
		t.Errorf("Expected 2 history entries, got %d", len(sec.History))
	}

	reqs := gen.requests()
	if len(reqs) != 2 {
		t.Fatalf("Expected 2 generation requests, got %d", len(reqs))
	}
	second := reqs[1]
	if second.Feedback != "Needs more detail." {
		t.Errorf("Expected the feedback to steer the revision, got %q", second.Feedback)
	}
	if second.Revision != 1 {
		t.Errorf("Expected revision 1 in the request, got %d", second.Revision)
	}
	if second.PreviousContent != "Draft for intro." {
		t.Errorf("Expected the rejected draft as previous content, got %q", second.PreviousContent)
	}
}

func TestRejectionRequiresFeedback(t *testing.T) {
	e, _, _, _ := newTestEngine(t, Options{})
	ctx := context.Background()
	mustInit(t, e, "session-1")

	if _, err := e.GenerateSection(ctx, "session-1", "intro"); err != nil {
		t.Fatalf("GenerateSection failed: %v", err)
	}
	awaitSection(t, e, "session-1", "intro", report.SectionReview)

	_, err := e.SubmitReview(ctx, "session-1", "intro", false, "   ")
	if !errors.Is(err, report.ErrFeedbackRequired) {
		t.Fatalf("Expected ErrFeedbackRequired, got %v", err)
	}
}

func TestRevisionBudgetEnforced(t *testing.T) {
	st := store.NewMemory()
	artifacts := artifact.NewMemory()
	gen := &fakeGenerator{}
	one := 1
	plan := report.Plan{
		Name: "tight-budget",
		Sections: []report.PlanSection{
			{ID: "intro", Title: "Introduction", Description: "Short.", MaxRevisions: &one},
		},
	}
	e := New(st, gen, artifacts, plan, Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	t.Cleanup(e.Wait)
	ctx := context.Background()
	mustInit(t, e, "session-1")

	if _, err := e.GenerateSection(ctx, "session-1", "intro"); err != nil {
		t.Fatalf("GenerateSection failed: %v", err)
	}
	awaitSection(t, e, "session-1", "intro", report.SectionReview)

	if _, err := e.SubmitReview(ctx, "session-1", "intro", false, "Again."); err != nil {
		t.Fatalf("First rejection should fit the budget, got %v", err)
	}
	awaitSection(t, e, "session-1", "intro", report.SectionReview)

	_, err := e.SubmitReview(ctx, "session-1", "intro", false, "Once more.")
	if !errors.Is(err, report.ErrRevisionsExhausted) {
		t.Fatalf("Expected ErrRevisionsExhausted, got %v", err)
	}

	// Accepting stays possible after the budget is spent.
	if _, err := e.SubmitReview(ctx, "session-1", "intro", true, ""); err != nil {
		t.Fatalf("Expected accept to succeed, got %v", err)
	}
}

func TestGeneratorFailureLandsError(t *testing.T) {
	e, _, _, gen := newTestEngine(t, Options{})
	ctx := context.Background()
	mustInit(t, e, "session-1")

	gen.setFn(func(req generator.Request) (generator.Result, error) {
		return generator.Result{}, errors.New("model unavailable")
	})
	if _, err := e.GenerateSection(ctx, "session-1", "intro"); err != nil {
		t.Fatalf("GenerateSection failed: %v", err)
	}
	state := awaitSection(t, e, "session-1", "intro", report.SectionError)
	sec := state.Section("intro")
	if !strings.Contains(sec.Error, "model unavailable") {
		t.Errorf("Expected the failure message on the section, got %q", sec.Error)
	}
	if sec.Content != "" {
		t.Errorf("Expected no content on a failed first draft, got %q", sec.Content)
	}

	// The error status allows a retry.
	gen.setFn(nil)
	if _, err := e.GenerateSection(ctx, "session-1", "intro"); err != nil {
		t.Fatalf("Expected retry from error, got %v", err)
	}
	state = awaitSection(t, e, "session-1", "intro", report.SectionReview)
	if got := state.Section("intro").Error; got != "" {
		t.Errorf("Expected the error to clear on success, got %q", got)
	}
}

func TestResetSection(t *testing.T) {
	e, _, _, _ := newTestEngine(t, Options{})
	ctx := context.Background()
	mustInit(t, e, "session-1")
	acceptSection(t, e, "session-1", "intro")
	acceptSection(t, e, "session-1", "body")

	_, err := e.ResetSection(ctx, "session-1", "intro", false)
	if !errors.Is(err, report.ErrForceRequired) {
		t.Fatalf("Expected ErrForceRequired for an accepted section, got %v", err)
	}

	intro, err := e.ResetSection(ctx, "session-1", "intro", true)
	if err != nil {
		t.Fatalf("ResetSection failed: %v", err)
	}
	if intro.Status != report.SectionPlanned {
		t.Errorf("Expected status %s, got %s", report.SectionPlanned, intro.Status)
	}
	if intro.Content != "" || intro.Revision != 0 || len(intro.History) != 0 {
		t.Errorf("Expected reset to destroy progress, got content=%q revision=%d history=%d", intro.Content, intro.Revision, len(intro.History))
	}

	// Dependents keep their accepted content; reset never cascades.
	state, err := e.State(ctx, "session-1")
	if err != nil {
		t.Fatalf("State failed: %v", err)
	}
	if got := state.Section("body").Status; got != report.SectionAccepted {
		t.Errorf("Expected body to stay %s, got %s", report.SectionAccepted, got)
	}
	if state.ReportStatus != report.StatusInProgress {
		t.Errorf("Expected status %s after reset, got %s", report.StatusInProgress, state.ReportStatus)
	}
}

func TestFinalizeFlow(t *testing.T) {
	e, st, artifacts, _ := newTestEngine(t, Options{})
	ctx := context.Background()
	mustInit(t, e, "session-1")

	if _, err := e.Finalize(ctx, "session-1"); !errors.Is(err, report.ErrNotFinalizable) {
		t.Fatalf("Expected ErrNotFinalizable before acceptance, got %v", err)
	}

	acceptSection(t, e, "session-1", "intro")
	acceptSection(t, e, "session-1", "body")

	state, err := e.Finalize(ctx, "session-1")
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	if state.ReportStatus != report.StatusValidating {
		t.Errorf("Expected immediate status %s, got %s", report.StatusValidating, state.ReportStatus)
	}

	awaitStatus(t, e, "session-1", report.StatusCompleted)

	r, err := st.Get(ctx, "session-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if r.DocumentRef == "" {
		t.Fatal("Expected a document ref on the completed report")
	}
	doc, contentType, err := artifacts.Get(ctx, r.DocumentRef)
	if err != nil {
		t.Fatalf("Expected the assembled document artifact, got %v", err)
	}
	if contentType != "text/markdown" {
		t.Errorf("Expected markdown content type, got %q", contentType)
	}
	text := string(doc)
	for _, want := range []string{"# Research Report", "## Introduction", "## Body", "Draft for intro.", "Draft for body."} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected document to contain %q", want)
		}
	}

	// Completed reports are frozen.
	if _, err := e.GenerateSection(ctx, "session-1", "intro"); !errors.Is(err, report.ErrReportCompleted) {
		t.Errorf("Expected ErrReportCompleted, got %v", err)
	}
	if _, err := e.Finalize(ctx, "session-1"); !errors.Is(err, report.ErrReportCompleted) {
		t.Errorf("Expected ErrReportCompleted on re-finalize, got %v", err)
	}
}

func TestFinalizeValidationFailureAndRemediation(t *testing.T) {
	e, st, _, _ := newTestEngine(t, Options{})
	ctx := context.Background()

	// Seed a report whose sections are accepted but one draft is empty;
	// the validating phase must catch it.
	r := report.New("session-1", testPlan())
	r.Confirm()
	for i := range r.Sections {
		r.Sections[i].Status = report.SectionAccepted
		r.Sections[i].Content = "Fine text."
	}
	r.Sections[1].Content = "   "
	if err := st.Put(ctx, r); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if _, err := e.Finalize(ctx, "session-1"); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	state := awaitStatus(t, e, "session-1", report.StatusFailed)
	if !strings.Contains(state.FinalizeError, "has no content") {
		t.Errorf("Expected the validation message, got %q", state.FinalizeError)
	}

	// Any accepted section command counts as remediation and clears the
	// failed marker.
	if _, err := e.ResetSection(ctx, "session-1", "body", true); err != nil {
		t.Fatalf("ResetSection failed: %v", err)
	}
	state, err := e.State(ctx, "session-1")
	if err != nil {
		t.Fatalf("State failed: %v", err)
	}
	if state.ReportStatus != report.StatusInProgress {
		t.Errorf("Expected remediation to return to %s, got %s", report.StatusInProgress, state.ReportStatus)
	}
	if state.FinalizeError != "" {
		t.Errorf("Expected the finalize error to clear, got %q", state.FinalizeError)
	}
}

func TestFinalizeConflictWhilePhaseActive(t *testing.T) {
	e, st, _, _ := newTestEngine(t, Options{})
	ctx := context.Background()

	r := report.New("session-1", testPlan())
	r.Confirm()
	for i := range r.Sections {
		r.Sections[i].Status = report.SectionAccepted
		r.Sections[i].Content = "Fine text."
	}
	r.Phase = report.PhaseValidating
	if err := st.Put(ctx, r); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	_, err := e.Finalize(ctx, "session-1")
	if !errors.Is(err, report.ErrFinalizeInFlight) {
		t.Fatalf("Expected ErrFinalizeInFlight, got %v", err)
	}
	if got := Classify(err); got != ClassConflict {
		t.Errorf("Expected class %s, got %s", ClassConflict, got)
	}

	// Section commands are refused while the phase is active too.
	if _, err := e.GenerateSection(ctx, "session-1", "intro"); !errors.Is(err, report.ErrFinalizeInFlight) {
		t.Errorf("Expected ErrFinalizeInFlight for section command, got %v", err)
	}
}

func completeReport(t *testing.T, e *Engine, sessionID string) {
	t.Helper()
	mustInit(t, e, sessionID)
	acceptSection(t, e, sessionID, "intro")
	acceptSection(t, e, sessionID, "body")
	if _, err := e.Finalize(context.Background(), sessionID); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	awaitStatus(t, e, sessionID, report.StatusCompleted)
}

func TestExportGates(t *testing.T) {
	e, _, _, _ := newTestEngine(t, Options{})
	ctx := context.Background()
	mustInit(t, e, "session-1")

	_, err := e.Export(ctx, "session-1", "markdown")
	if !errors.Is(err, report.ErrNotCompleted) {
		t.Fatalf("Expected ErrNotCompleted before finalize, got %v", err)
	}

	_, err = e.Export(ctx, "session-1", "xlsx")
	if !errors.Is(err, export.ErrUnsupportedFormat) {
		t.Fatalf("Expected ErrUnsupportedFormat for xlsx, got %v", err)
	}
	if got := Classify(err); got != ClassUnsupportedFormat {
		t.Errorf("Expected class %s, got %s", ClassUnsupportedFormat, got)
	}

	// Without a renderer only markdown is available.
	_, err = e.Export(ctx, "session-1", "pdf")
	if !errors.Is(err, export.ErrUnsupportedFormat) {
		t.Fatalf("Expected ErrUnsupportedFormat without a renderer, got %v", err)
	}
}

func TestExportMarkdown(t *testing.T) {
	e, _, _, _ := newTestEngine(t, Options{})
	completeReport(t, e, "session-1")

	doc, err := e.Export(context.Background(), "session-1", "markdown")
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if !strings.Contains(string(doc.Data), "## Introduction") {
		t.Errorf("Expected the assembled document, got %q", doc.Data)
	}
	if doc.ContentType != "text/markdown" {
		t.Errorf("Expected markdown content type, got %q", doc.ContentType)
	}
	if doc.Filename != "session-1.md" {
		t.Errorf("Expected filename session-1.md, got %q", doc.Filename)
	}
}

func TestExportRenderedFormatsReuseArtifacts(t *testing.T) {
	renderer := &fakeRenderer{}
	e, st, _, _ := newTestEngine(t, Options{Renderer: renderer})
	completeReport(t, e, "session-1")
	ctx := context.Background()

	doc, err := e.Export(ctx, "session-1", "pdf")
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if !strings.Contains(string(doc.Data), "pdf rendering") {
		t.Errorf("Expected rendered bytes, got %q", doc.Data)
	}
	if doc.ContentType != "application/pdf" {
		t.Errorf("Expected pdf content type, got %q", doc.ContentType)
	}
	if renderer.count() != 1 {
		t.Fatalf("Expected 1 render, got %d", renderer.count())
	}

	r, err := st.Get(ctx, "session-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if r.Exports["pdf"] == "" {
		t.Fatal("Expected the rendered artifact to be recorded")
	}

	// The second export serves the stored artifact without re-rendering.
	again, err := e.Export(ctx, "session-1", "pdf")
	if err != nil {
		t.Fatalf("Second export failed: %v", err)
	}
	if string(again.Data) != string(doc.Data) {
		t.Error("Expected the same rendered bytes on re-export")
	}
	if renderer.count() != 1 {
		t.Errorf("Expected the render count to stay 1, got %d", renderer.count())
	}
}

func TestExportRerendersWhenArtifactLost(t *testing.T) {
	renderer := &fakeRenderer{}
	e, st, artifacts, _ := newTestEngine(t, Options{Renderer: renderer})
	completeReport(t, e, "session-1")
	ctx := context.Background()

	doc, err := e.Export(ctx, "session-1", "docx")
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	r, err := st.Get(ctx, "session-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if err := artifacts.Remove(ctx, r.Exports["docx"]); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	again, err := e.Export(ctx, "session-1", "docx")
	if err != nil {
		t.Fatalf("Export after artifact loss failed: %v", err)
	}
	if string(again.Data) != string(doc.Data) {
		t.Error("Expected the re-render to reproduce the document")
	}
	if renderer.count() != 2 {
		t.Errorf("Expected 2 renders, got %d", renderer.count())
	}
}

func TestResumeRestartsInterruptedWork(t *testing.T) {
	e, st, _, _ := newTestEngine(t, Options{})
	ctx := context.Background()

	// One report interrupted mid-generation, one mid-finalize.
	generating := report.New("session-gen", testPlan())
	generating.Confirm()
	generating.Sections[0].Status = report.SectionGenerating
	if err := st.Put(ctx, generating); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	finalizing := report.New("session-fin", testPlan())
	finalizing.Confirm()
	for i := range finalizing.Sections {
		finalizing.Sections[i].Status = report.SectionAccepted
		finalizing.Sections[i].Content = "Fine text."
	}
	finalizing.Phase = report.PhaseFinalizing
	if err := st.Put(ctx, finalizing); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if err := e.Resume(ctx); err != nil {
		t.Fatalf("Resume failed: %v", err)
	}

	awaitSection(t, e, "session-gen", "intro", report.SectionReview)
	awaitStatus(t, e, "session-fin", report.StatusCompleted)
}

func TestStatsRecordsJobs(t *testing.T) {
	e, _, _, _ := newTestEngine(t, Options{})
	mustInit(t, e, "session-1")
	acceptSection(t, e, "session-1", "intro")
	e.Wait()

	snap := e.Stats()
	if snap.GenerationJob == nil {
		t.Fatal("Expected generation job metrics")
	}
	if snap.GenerationJob.Count != 1 {
		t.Errorf("Expected 1 recorded job, got %d", snap.GenerationJob.Count)
	}
	if snap.GenerationJob.Failures != 0 {
		t.Errorf("Expected no failures, got %d", snap.GenerationJob.Failures)
	}
}
