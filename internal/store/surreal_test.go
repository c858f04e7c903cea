// Integration tests for the SurrealDB store. Run with -short to skip the
// container-backed tests.
package store

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/reportloom/reportloom/internal/report"
)

var testStore *Surreal
var testContainer testcontainers.Container

// TestMain sets up and tears down the SurrealDB container for all tests.
func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	// Disable ryuk (cleanup container) as it can cause issues in some environments
	os.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")

	ctx := context.Background()

	var err error
	testContainer, err = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "surrealdb/surrealdb:v3.0.0-beta.1",
			ExposedPorts: []string{"8000/tcp"},
			Cmd:          []string{"start", "--log", "info", "--user", "root", "--pass", "root"},
			WaitingFor:   wait.ForLog("Started web server").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("Failed to start SurrealDB container: %v", err)
	}

	host, err := testContainer.Host(ctx)
	if err != nil {
		log.Fatalf("Failed to get container host: %v", err)
	}
	// Workaround: testcontainers may return "null" as host in some environments
	if host == "" || host == "null" {
		host = "localhost"
	}
	mappedPort, err := testContainer.MappedPort(ctx, "8000")
	if err != nil {
		log.Fatalf("Failed to get mapped port: %v", err)
	}

	testStore, err = NewSurreal(ctx, Config{
		URL:       fmt.Sprintf("ws://%s:%s/rpc", host, mappedPort.Port()),
		Namespace: "test",
		Database:  "test",
		Username:  "root",
		Password:  "root",
		AuthLevel: "root",
	}, nil)
	if err != nil {
		log.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := testStore.InitSchema(ctx); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}

	code := m.Run()

	_ = testStore.Close(ctx)
	_ = testContainer.Terminate(ctx)

	os.Exit(code)
}

func skipIfShort(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
}

func TestSurrealCreateAndGet(t *testing.T) {
	skipIfShort(t)
	ctx := context.Background()
	sessionID := uuid.New().String()

	r := report.New(sessionID, testPlan())
	r.Confirmed = true
	if err := testStore.Put(ctx, r); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if r.Version != 1 {
		t.Errorf("Expected version 1 after create, got %d", r.Version)
	}

	got, err := testStore.Get(ctx, sessionID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.SessionID != sessionID {
		t.Errorf("Expected session %q, got %q", sessionID, got.SessionID)
	}
	if !got.Confirmed {
		t.Error("Expected confirmed report")
	}
	if got.Plan != "test-plan" {
		t.Errorf("Expected plan 'test-plan', got %q", got.Plan)
	}
	if len(got.Sections) != 2 {
		t.Fatalf("Expected 2 sections, got %d", len(got.Sections))
	}
	if got.Sections[0].ID != "intro" || got.Sections[1].ID != "body" {
		t.Errorf("Section order not preserved: %q, %q", got.Sections[0].ID, got.Sections[1].ID)
	}
	if got.Sections[1].DependsOn[0] != "intro" {
		t.Errorf("Expected dependency on intro, got %v", got.Sections[1].DependsOn)
	}
	if got.Version != 1 {
		t.Errorf("Expected version 1, got %d", got.Version)
	}
}

func TestSurrealGetNotFound(t *testing.T) {
	skipIfShort(t)
	ctx := context.Background()

	_, err := testStore.Get(ctx, uuid.New().String())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSurrealCreateTwiceConflicts(t *testing.T) {
	skipIfShort(t)
	ctx := context.Background()
	sessionID := uuid.New().String()

	if err := testStore.Put(ctx, report.New(sessionID, testPlan())); err != nil {
		t.Fatalf("First Put failed: %v", err)
	}

	err := testStore.Put(ctx, report.New(sessionID, testPlan()))
	if !errors.Is(err, ErrVersionConflict) {
		t.Errorf("Expected ErrVersionConflict on duplicate create, got %v", err)
	}
}

func TestSurrealStaleWriteRejected(t *testing.T) {
	skipIfShort(t)
	ctx := context.Background()
	sessionID := uuid.New().String()

	if err := testStore.Put(ctx, report.New(sessionID, testPlan())); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	first, err := testStore.Get(ctx, sessionID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	second, err := testStore.Get(ctx, sessionID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	first.Confirmed = true
	if err := testStore.Put(ctx, first); err != nil {
		t.Fatalf("Winning Put failed: %v", err)
	}

	second.Confirmed = true
	err = testStore.Put(ctx, second)
	if !errors.Is(err, ErrVersionConflict) {
		t.Errorf("Expected ErrVersionConflict for stale write, got %v", err)
	}

	got, err := testStore.Get(ctx, sessionID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Version != 2 {
		t.Errorf("Expected version 2, got %d", got.Version)
	}
}

func TestSurrealLifecycleRoundTrip(t *testing.T) {
	skipIfShort(t)
	ctx := context.Background()
	sessionID := uuid.New().String()

	r := report.New(sessionID, testPlan())
	r.Confirm()
	if err := testStore.Put(ctx, r); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	// Walk intro through a draft, a rejection, and an acceptance, writing
	// each step, so nested sections and history survive the codec.
	if _, err := r.BeginGeneration("intro"); err != nil {
		t.Fatalf("BeginGeneration failed: %v", err)
	}
	if err := testStore.Put(ctx, r); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	entry := report.HistoryEntry{
		ContentSnapshotRef: "snap/intro/1",
		ModelName:          "test-model",
		Timestamp:          time.Now().UTC(),
	}
	if _, err := r.CompleteGeneration("intro", "Draft one.", entry); err != nil {
		t.Fatalf("CompleteGeneration failed: %v", err)
	}
	if _, err := r.SubmitReview("intro", false, "Needs more detail."); err != nil {
		t.Fatalf("SubmitReview failed: %v", err)
	}
	if err := testStore.Put(ctx, r); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := testStore.Get(ctx, sessionID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	sec := got.Section("intro")
	if sec == nil {
		t.Fatal("Section intro missing after round trip")
	}
	if sec.Status != report.SectionGenerating {
		t.Errorf("Expected generating after rejection, got %q", sec.Status)
	}
	if sec.Revision != 1 {
		t.Errorf("Expected revision 1, got %d", sec.Revision)
	}
	if sec.Feedback != "Needs more detail." {
		t.Errorf("Feedback lost in round trip: %q", sec.Feedback)
	}
	if len(sec.History) != 1 {
		t.Fatalf("Expected 1 history entry, got %d", len(sec.History))
	}
	if sec.History[0].ContentSnapshotRef != "snap/intro/1" {
		t.Errorf("History snapshot ref lost: %q", sec.History[0].ContentSnapshotRef)
	}
	if sec.History[0].ModelName != "test-model" {
		t.Errorf("History model name lost: %q", sec.History[0].ModelName)
	}
	if sec.History[0].Timestamp.IsZero() {
		t.Error("History timestamp lost in round trip")
	}
	if got.Status() != report.StatusInProgress {
		t.Errorf("Expected in_progress, got %q", got.Status())
	}
}

func TestSurrealSessions(t *testing.T) {
	skipIfShort(t)
	ctx := context.Background()

	ids := []string{uuid.New().String(), uuid.New().String()}
	for _, id := range ids {
		if err := testStore.Put(ctx, report.New(id, testPlan())); err != nil {
			t.Fatalf("Put %s failed: %v", id, err)
		}
	}

	sessions, err := testStore.Sessions(ctx)
	if err != nil {
		t.Fatalf("Sessions failed: %v", err)
	}
	found := make(map[string]bool)
	for _, id := range sessions {
		found[id] = true
	}
	for _, id := range ids {
		if !found[id] {
			t.Errorf("Expected session %s in listing", id)
		}
	}
}
