package directory

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultRefreshInterval is the period of the background refresh.
const DefaultRefreshInterval = 10 * time.Minute

// Fallback produces the records served when the source fails.
type Fallback func(err error) []User

func emptyFallback(error) []User { return []User{} }

// Cache is a read-through cache of the user directory. Readers get the current
// immutable Snapshot without locking; refreshes replace it wholesale.
type Cache struct {
	source   Source
	fallback Fallback
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger

	current atomic.Pointer[Snapshot]
	loadMu  sync.Mutex
	loads   singleflight.Group
}

// CacheOption customises a Cache.
type CacheOption func(*Cache)

// WithRefreshInterval sets the background refresh period.
func WithRefreshInterval(d time.Duration) CacheOption {
	return func(c *Cache) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithFallback replaces the empty-list fallback.
func WithFallback(fn Fallback) CacheOption {
	return func(c *Cache) {
		if fn != nil {
			c.fallback = fn
		}
	}
}

// WithNow injects the clock used to stamp snapshots.
func WithNow(now func() time.Time) CacheOption {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the cache logger.
func WithLogger(logger *slog.Logger) CacheOption {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCache builds an empty cache over source, usually a *Breaker.
func NewCache(source Source, opts ...CacheOption) *Cache {
	c := &Cache{
		source:   source,
		fallback: emptyFallback,
		interval: DefaultRefreshInterval,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "directory_cache")
	return c
}

// Refresh fetches the directory and swaps in the new snapshot. On failure the
// previous snapshot stays in place and the error is returned.
func (c *Cache) Refresh(ctx context.Context) (*Snapshot, error) {
	c.loadMu.Lock()
	defer c.loadMu.Unlock()
	return c.refreshLocked(ctx)
}

func (c *Cache) refreshLocked(ctx context.Context) (*Snapshot, error) {
	users, err := c.source.FetchAll(ctx)
	if err != nil {
		c.logger.WarnContext(ctx, "directory refresh failed", "error", err)
		return c.current.Load(), err
	}

	next := NewSnapshot(users, c.now())
	if prev := c.current.Load(); prev != nil && prev.Digest() == next.Digest() {
		c.logger.DebugContext(ctx, "directory unchanged", "users", prev.Len(), "digest", prev.Digest())
		return prev, nil
	}
	c.current.Store(next)
	c.logger.InfoContext(ctx, "directory refreshed", "users", next.Len(), "digest", next.Digest())
	return next, nil
}

// Snapshot returns the current snapshot, loading it first when nothing has been
// fetched yet. Concurrent first readers share one upstream call. When loading fails
// the fallback records are served without being cached.
func (c *Cache) Snapshot(ctx context.Context) *Snapshot {
	if snap := c.current.Load(); snap != nil {
		return snap
	}

	loaded, err, _ := c.loads.Do("snapshot", func() (any, error) {
		c.loadMu.Lock()
		defer c.loadMu.Unlock()
		if snap := c.current.Load(); snap != nil {
			return snap, nil
		}
		return c.refreshLocked(ctx)
	})
	if err != nil {
		c.logger.WarnContext(ctx, "serving directory fallback", "error", err)
		return NewSnapshot(c.fallback(err), c.now())
	}
	return loaded.(*Snapshot)
}

// FetchAll returns every cached user. It never fails; a failing directory yields the
// fallback list.
func (c *Cache) FetchAll(ctx context.Context) []User {
	return c.Snapshot(ctx).Users()
}

// IDToName returns a fresh id to full name map.
func (c *Cache) IDToName(ctx context.Context) map[int64]string {
	return c.Snapshot(ctx).Names()
}

// IDToEmail returns a fresh id to email map.
func (c *Cache) IDToEmail(ctx context.Context) map[int64]string {
	return c.Snapshot(ctx).Emails()
}

// NameOf resolves a display name, or Unknown.
func (c *Cache) NameOf(ctx context.Context, id int64) string {
	if name, ok := c.Snapshot(ctx).Name(id); ok {
		return name
	}
	return Unknown
}

// EmailOf resolves an email address, or Unknown.
func (c *Cache) EmailOf(ctx context.Context, id int64) string {
	if email, ok := c.Snapshot(ctx).Email(id); ok {
		return email
	}
	return Unknown
}

// UsersByRole lists active users whose role matches case-insensitively.
func (c *Cache) UsersByRole(ctx context.Context, role string) []User {
	var out []User
	for _, user := range c.Snapshot(ctx).Users() {
		if user.Active && strings.EqualFold(user.Role, role) {
			out = append(out, user)
		}
	}
	return out
}

// Run refreshes immediately and then on every interval until ctx is done.
func (c *Cache) Run(ctx context.Context) error {
	_, _ = c.Refresh(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			_, _ = c.Refresh(ctx)
		}
	}
}
