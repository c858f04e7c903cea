package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/reportloom/reportloom/internal/report"
)

// Memory is an in-process Store. Reads and writes exchange deep copies so
// callers can never alias stored state.
type Memory struct {
	mu      sync.RWMutex
	reports map[string]*report.Report
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{reports: make(map[string]*report.Report)}
}

// Get returns a copy of the stored report, or ErrNotFound.
func (m *Memory) Get(ctx context.Context, sessionID string) (*report.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.reports[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	return r.Clone(), nil
}

// Put stores a copy of r after the version check.
func (m *Memory) Put(ctx context.Context, r *report.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, exists := m.reports[r.SessionID]
	if r.Version == 0 {
		if exists {
			return fmt.Errorf("%w: %s already exists", ErrVersionConflict, r.SessionID)
		}
	} else {
		if !exists {
			return fmt.Errorf("%w: %s", ErrNotFound, r.SessionID)
		}
		if current.Version != r.Version {
			return fmt.Errorf("%w: stored version %d, expected %d", ErrVersionConflict, current.Version, r.Version)
		}
	}

	r.Version++
	r.UpdatedAt = time.Now().UTC()
	m.reports[r.SessionID] = r.Clone()
	return nil
}

// Sessions lists the stored session ids.
func (m *Memory) Sessions(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.reports))
	for id := range m.reports {
		ids = append(ids, id)
	}
	return ids, nil
}
