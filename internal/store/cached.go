package store

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/reportloom/reportloom/internal/cache"
	"github.com/reportloom/reportloom/internal/report"
)

// DefaultCacheTTL bounds staleness if an invalidation is lost; polling
// clients re-read well inside it.
const DefaultCacheTTL = 30 * time.Second

// Cached is a read-through decorator over a Store. Writes go to the inner
// store first and then invalidate, so a cache failure can only cost a read
// from the database, never serve a write.
type Cached struct {
	inner  Store
	cache  cache.Cache
	ttl    time.Duration
	logger *slog.Logger
}

// NewCached wraps the store with a cache. A nil logger falls back to the
// default logger.
func NewCached(inner Store, c cache.Cache, logger *slog.Logger) *Cached {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cached{inner: inner, cache: c, ttl: DefaultCacheTTL, logger: logger}
}

func cacheKey(sessionID string) string {
	return "report:" + sessionID
}

// Get returns the cached report when present, falling back to the inner
// store and repopulating on a miss. NotFound is never cached.
func (c *Cached) Get(ctx context.Context, sessionID string) (*report.Report, error) {
	key := cacheKey(sessionID)

	raw, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn("cache read failed, falling back to store", "session_id", sessionID, "error", err)
	} else if ok {
		var r report.Report
		if err := json.Unmarshal(raw, &r); err == nil {
			return &r, nil
		}
		c.logger.Warn("cache entry corrupt, evicting", "session_id", sessionID)
		_ = c.cache.Delete(ctx, key)
	}

	r, err := c.inner.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(r); err == nil {
		if err := c.cache.Set(ctx, key, raw, c.ttl); err != nil {
			c.logger.Warn("cache write failed", "session_id", sessionID, "error", err)
		}
	}
	return r, nil
}

// Put writes through to the inner store and invalidates the cached copy.
// Version conflicts propagate untouched so callers can reload.
func (c *Cached) Put(ctx context.Context, r *report.Report) error {
	err := c.inner.Put(ctx, r)
	if err != nil && !errors.Is(err, ErrVersionConflict) {
		return err
	}

	if delErr := c.cache.Delete(ctx, cacheKey(r.SessionID)); delErr != nil {
		c.logger.Warn("cache invalidation failed", "session_id", r.SessionID, "error", delErr)
	}
	return err
}

// Sessions bypasses the cache; listings are rare and must be complete.
func (c *Cached) Sessions(ctx context.Context) ([]string, error) {
	return c.inner.Sessions(ctx)
}
