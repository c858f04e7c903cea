package client_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reportloom/reportloom/internal/artifact"
	"github.com/reportloom/reportloom/internal/client"
	"github.com/reportloom/reportloom/internal/engine"
	"github.com/reportloom/reportloom/internal/generator"
	"github.com/reportloom/reportloom/internal/metrics"
	"github.com/reportloom/reportloom/internal/report"
	"github.com/reportloom/reportloom/internal/server"
	"github.com/reportloom/reportloom/internal/store"
)

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

// testStack spins up the full engine and server and returns a client bound
// to it, plus the backing store for seeding.
func testStack(t *testing.T) (*client.Client, *store.Memory) {
	t.Helper()
	st := store.NewMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	collector := metrics.NewCollector()
	eng := engine.New(st, generator.NewStatic(), artifact.NewMemory(), testPlan(), engine.Options{
		Logger:    logger,
		Collector: collector,
	})
	t.Cleanup(eng.Wait)

	ts := httptest.NewServer(server.New(eng, collector, logger).Router())
	t.Cleanup(ts.Close)
	return client.New(ts.URL), st
}

func awaitSection(t *testing.T, c *client.Client, sessionID, sectionID string, status report.SectionStatus) report.ReportState {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		state, err := c.State(context.Background(), sessionID)
		require.NoError(t, err)
		sec := state.Section(sectionID)
		require.NotNil(t, sec)
		if sec.Status == status {
			return state
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("section %s never reached %s", sectionID, status)
	return report.ReportState{}
}

func awaitStatus(t *testing.T, c *client.Client, sessionID string, status report.ReportStatus) report.ReportState {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		state, err := c.State(context.Background(), sessionID)
		require.NoError(t, err)
		if state.ReportStatus == status {
			return state
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("report never reached %s", status)
	return report.ReportState{}
}

func TestClientInitAndState(t *testing.T) {
	c, _ := testStack(t)
	ctx := context.Background()

	_, err := c.State(ctx, "session-1")
	require.ErrorIs(t, err, client.ErrNotFound)

	preview, err := c.Init(ctx, "session-1", false)
	require.NoError(t, err)
	assert.Equal(t, report.StatusUninitialized, preview.ReportStatus)
	assert.Len(t, preview.Sections, 2)

	// The dry run persisted nothing.
	_, err = c.State(ctx, "session-1")
	require.ErrorIs(t, err, client.ErrNotFound)

	state, err := c.Init(ctx, "session-1", true)
	require.NoError(t, err)
	assert.Equal(t, report.StatusInProgress, state.ReportStatus)

	fetched, err := c.State(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, report.StatusInProgress, fetched.ReportStatus)
	assert.True(t, fetched.UserConfirmedStart)
}

func TestClientSectionLifecycle(t *testing.T) {
	c, _ := testStack(t)
	ctx := context.Background()

	_, err := c.Init(ctx, "session-1", true)
	require.NoError(t, err)

	sec, err := c.GenerateSection(ctx, "session-1", "intro")
	require.NoError(t, err)
	assert.Equal(t, report.SectionGenerating, sec.Status)

	awaitSection(t, c, "session-1", "intro", report.SectionReview)

	_, err = c.SubmitReview(ctx, "session-1", "intro", false, "")
	require.ErrorIs(t, err, client.ErrValidation)

	rejected, err := c.SubmitReview(ctx, "session-1", "intro", false, "Needs sources.")
	require.NoError(t, err)
	assert.Equal(t, report.SectionGenerating, rejected.Status)
	assert.Equal(t, 1, rejected.Revision)

	awaitSection(t, c, "session-1", "intro", report.SectionReview)

	accepted, err := c.SubmitReview(ctx, "session-1", "intro", true, "")
	require.NoError(t, err)
	assert.Equal(t, report.SectionAccepted, accepted.Status)

	_, err = c.GenerateSection(ctx, "session-1", "nope")
	require.ErrorIs(t, err, client.ErrNotFound)
}

func TestClientConflict(t *testing.T) {
	c, st := testStack(t)
	ctx := context.Background()

	r := report.New("session-1", testPlan())
	r.Confirm()
	for i := range r.Sections {
		r.Sections[i].Status = report.SectionAccepted
		r.Sections[i].Content = "Fine text."
	}
	r.Phase = report.PhaseValidating
	require.NoError(t, st.Put(ctx, r))

	_, err := c.Finalize(ctx, "session-1")
	require.ErrorIs(t, err, client.ErrConflict)
	assert.Contains(t, err.Error(), "finalize")
}

func TestClientExport(t *testing.T) {
	c, _ := testStack(t)
	ctx := context.Background()

	_, err := c.Init(ctx, "session-1", true)
	require.NoError(t, err)

	_, err = c.Export(ctx, "session-1", "")
	require.ErrorIs(t, err, client.ErrValidation)

	for _, sectionID := range []string{"intro", "body"} {
		_, err := c.GenerateSection(ctx, "session-1", sectionID)
		require.NoError(t, err)
		awaitSection(t, c, "session-1", sectionID, report.SectionReview)
		_, err = c.SubmitReview(ctx, "session-1", sectionID, true, "")
		require.NoError(t, err)
	}
	_, err = c.Finalize(ctx, "session-1")
	require.NoError(t, err)
	awaitStatus(t, c, "session-1", report.StatusCompleted)

	doc, err := c.Export(ctx, "session-1", "")
	require.NoError(t, err)
	assert.Equal(t, "text/markdown", doc.ContentType)
	assert.Equal(t, "session-1.md", doc.Filename)
	assert.Contains(t, string(doc.Data), "## Introduction")

	_, err = c.Export(ctx, "session-1", "pdf")
	require.ErrorIs(t, err, client.ErrUnsupportedFormat)
}

func TestClientStatsAndHealth(t *testing.T) {
	c, _ := testStack(t)
	ctx := context.Background()

	require.NoError(t, c.Health(ctx))

	_, err := c.Init(ctx, "session-1", true)
	require.NoError(t, err)

	snap, err := c.Stats(ctx)
	require.NoError(t, err)
	require.NotNil(t, snap.Init)
	assert.Equal(t, int64(1), snap.Init.Count)
}

func TestClientUnavailable(t *testing.T) {
	c := client.New("http://127.0.0.1:1")

	_, err := c.State(context.Background(), "session-1")
	require.ErrorIs(t, err, client.ErrUnavailable)
}
