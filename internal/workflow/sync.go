package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/reportloom/reportloom/internal/client"
	"github.com/reportloom/reportloom/internal/report"
)

// Reconcile folds a server observation into the local view. The server is
// authoritative: every remote field replaces its local counterpart, so any
// optimistic local transition vanishes on the next fetch. Only gaps a
// response cannot carry are filled from the local side.
func Reconcile(local, remote report.ReportState) report.ReportState {
	if remote.SessionID == "" {
		remote.SessionID = local.SessionID
	}
	if remote.Sections == nil {
		remote.Sections = []report.Section{}
	}
	return remote
}

// ShouldPoll reports whether the session still has server-side work worth
// watching: a section generating, or a finalize pass in flight.
func ShouldPoll(state report.ReportState) bool {
	switch state.ReportStatus {
	case report.StatusValidating, report.StatusFinalizing:
		return true
	}
	return state.AnyGenerating()
}

// Sync fetches the current server state and reconciles it in. A not-found
// answer is a valid observation, the uninitialized placeholder, distinct
// from a transport failure.
func (s *Session) Sync(ctx context.Context) error {
	state, err := s.client.State(ctx, s.sessionID)
	switch {
	case errors.Is(err, client.ErrNotFound):
		state = report.Uninitialized(s.sessionID)
	case err != nil:
		return err
	}
	s.observe(state)
	return nil
}

// Run polls the server until the report goes quiescent or ctx is done. Sync
// failures after the first successful observation are logged and retried
// with exponential backoff; a failure before any observation escalates to
// the caller, who should check the endpoint rather than wait.
func (s *Session) Run(ctx context.Context) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.pollInterval
	bo.MaxInterval = 15 * s.pollInterval
	bo.MaxElapsedTime = 0

	for {
		err := s.Sync(ctx)
		switch {
		case err == nil:
			bo.Reset()
			if !ShouldPoll(s.State()) {
				return nil
			}
		case !s.Synced():
			return fmt.Errorf("initial sync: %w", err)
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			s.logger.Warn("poll failed, backing off",
				slog.String("session_id", s.sessionID),
				slog.Any("error", err))
		}

		wait := s.pollInterval
		if err != nil {
			wait = bo.NextBackOff()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}
