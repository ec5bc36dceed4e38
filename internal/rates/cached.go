package rates

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"budgetbuddy/internal/cache"
	"budgetbuddy/internal/log"
)

const (
	DefaultTTL = time.Hour

	latestKey = "latest"
)

// CachedSource keeps the last table for a TTL and collapses concurrent
// refreshes into one upstream call. When a refresh fails, the last good
// table is served if there is one.
type CachedSource struct {
	source Source
	cache  *cache.LRUCache[Table]
	group  singleflight.Group
	logger *log.Logger

	mu        sync.Mutex
	lastGood  Table
	haveTable bool
}

var _ Source = (*CachedSource)(nil)

func NewCachedSource(source Source, ttl time.Duration, logger *log.Logger) *CachedSource {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &CachedSource{
		source: source,
		cache:  cache.NewLRUCache[Table](1, ttl),
		logger: logger.WithComponent(log.ComponentRates),
	}
}

// Cache exposes the underlying cache so it can be registered with a
// cache.Manager.
func (c *CachedSource) Cache() *cache.LRUCache[Table] {
	return c.cache
}

func (c *CachedSource) Rates(ctx context.Context) (Table, error) {
	if t, ok := c.cache.Get(latestKey); ok {
		return t, nil
	}

	ch := c.group.DoChan(latestKey, func() (any, error) {
		// Detach from the first caller so its cancellation does not fail the
		// other waiters.
		t, err := c.source.Rates(context.WithoutCancel(ctx))
		if err != nil {
			return Table{}, err
		}
		c.cache.Set(latestKey, t)
		c.mu.Lock()
		c.lastGood, c.haveTable = t, true
		c.mu.Unlock()
		return t, nil
	})

	select {
	case <-ctx.Done():
		return Table{}, ctx.Err()
	case res := <-ch:
		if res.Err == nil {
			return res.Val.(Table), nil
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.haveTable {
			c.logger.WarnContext(ctx, "Serving stale rate table", log.FieldError, res.Err.Error())
			return c.lastGood, nil
		}
		return Table{}, res.Err
	}
}
