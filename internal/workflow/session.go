// Package workflow holds the client-side session engine: a local snapshot of
// one report, reconciliation against server observations, a polling loop for
// background work, and command orchestration with advisory validation.
package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/reportloom/reportloom/internal/client"
	"github.com/reportloom/reportloom/internal/report"
)

// ErrRequestInFlight rejects a command while an earlier one for the same
// section (or the report) is still waiting on the server.
var ErrRequestInFlight = errors.New("request already in flight")

// reportKey is the in-flight map entry for report-wide commands.
const reportKey = "report"

const defaultPollInterval = time.Second

// Options tune a session. The zero value is usable.
type Options struct {
	Logger *slog.Logger

	// PollInterval is the steady-state delay between fetches while the
	// report has background work. Defaults to one second.
	PollInterval time.Duration
}

// Session is the client-side view of one report. All access serializes
// through its mutex; snapshots are replaced wholesale on every sync, never
// mutated in place, so a returned snapshot stays internally consistent.
type Session struct {
	sessionID    string
	client       *client.Client
	logger       *slog.Logger
	pollInterval time.Duration

	mu         sync.Mutex
	state      report.ReportState
	everSynced bool
	lastSync   time.Time
	inFlight   map[string]bool
}

// NewSession attaches a session to the report with the given id. The first
// observation comes from Sync or from the first confirmed command.
func NewSession(c *client.Client, sessionID string, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Session{
		sessionID:    sessionID,
		client:       c,
		logger:       logger,
		pollInterval: interval,
		state:        report.Uninitialized(sessionID),
		inFlight:     map[string]bool{},
	}
}

// SessionID returns the id this session is attached to.
func (s *Session) SessionID() string {
	return s.sessionID
}

// State returns the last reconciled snapshot.
func (s *Session) State() report.ReportState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Synced reports whether at least one server observation has landed. Until
// then the snapshot is a local placeholder and advisory checks are skipped.
func (s *Session) Synced() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.everSynced
}

// LastSync returns when the most recent server observation landed.
func (s *Session) LastSync() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSync
}

// observe folds a server observation into the local view.
func (s *Session) observe(remote report.ReportState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Reconcile(s.state, remote)
	s.everSynced = true
	s.lastSync = time.Now()
}

// begin claims the in-flight slot for key after running the advisory check
// against the last snapshot. The check is skipped before the first sync;
// the server stays authoritative either way.
func (s *Session) begin(key string, check func(report.ReportState) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[key] {
		return ErrRequestInFlight
	}
	if check != nil && s.everSynced {
		if err := check(s.state); err != nil {
			return err
		}
	}
	s.inFlight[key] = true
	return nil
}

func (s *Session) end(key string) {
	s.mu.Lock()
	delete(s.inFlight, key)
	s.mu.Unlock()
}

// settle refreshes the snapshot after a server-answered command, success or
// not, so the local view never drifts more than one round trip. Transport
// failures skip the refresh: the server never saw the command.
func (s *Session) settle(ctx context.Context, cmdErr error) {
	if errors.Is(cmdErr, client.ErrUnavailable) {
		return
	}
	if err := s.Sync(ctx); err != nil {
		s.logger.Warn("resync after command failed",
			slog.String("session_id", s.sessionID),
			slog.Any("error", err))
	}
}
