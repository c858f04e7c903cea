// Package store persists report aggregates. The SurrealDB implementation
// backs production; the in-memory implementation backs tests and single-node
// runs; Cached decorates either with a snapshot cache for polling-heavy
// deployments.
package store

import (
	"context"
	"errors"

	"github.com/reportloom/reportloom/internal/report"
)

// Sentinel errors for store operations. Use errors.Is() in calling code.
var (
	// ErrNotFound indicates no report is stored for the session.
	ErrNotFound = errors.New("report not found")

	// ErrVersionConflict indicates the write lost a race: the stored report
	// changed since the caller read it. Reload and reissue.
	ErrVersionConflict = errors.New("report version conflict")
)

// Store owns report aggregates keyed by session id.
type Store interface {
	// Get returns the report for the session, or ErrNotFound.
	Get(ctx context.Context, sessionID string) (*report.Report, error)

	// Put writes the report, guarding against concurrent writers: the write
	// succeeds only while the stored version still equals r.Version (a
	// version of 0 means "create, must not exist"). On success the version
	// is bumped and UpdatedAt refreshed, both in the store and on r.
	Put(ctx context.Context, r *report.Report) error

	// Sessions lists the ids of every stored report.
	Sessions(ctx context.Context) ([]string, error)
}
