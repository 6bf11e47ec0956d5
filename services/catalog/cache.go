package catalog

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Cache is the process-wide, TTL-based view of available models.
// A refresh replaces the whole snapshot atomically; readers never observe a
// half-updated list. Concurrent refreshes collapse to a single in-flight
// fetch. Stale reads are preferred over blocking while the window is valid,
// and a fetch failure degrades to the previous snapshot (or the curated-only
// list when none exists) rather than an error.
type Cache struct {
	source Source
	ttl    time.Duration
	logger *zap.Logger

	mu        sync.Mutex
	snapshot  []ModelDescriptor
	fetchedAt time.Time
	inflight  *fetch
}

// fetch tracks one in-flight catalog refresh
type fetch struct {
	done   chan struct{}
	models []ModelDescriptor
}

// NewCache creates a catalog cache over the given source
func NewCache(source Source, ttl time.Duration, logger *zap.Logger) *Cache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Cache{
		source: source,
		ttl:    ttl,
		logger: logger,
	}
}

// Get returns the current model list, refreshing when the validity window has
// expired or force is set. It never returns an error: downstream components
// degrade gracefully to the echo fallback on an empty list.
func (c *Cache) Get(ctx context.Context, force bool) []ModelDescriptor {
	c.mu.Lock()

	if !force && c.snapshot != nil && time.Since(c.fetchedAt) < c.ttl {
		models := c.snapshot
		c.mu.Unlock()
		return models
	}

	// Join an in-flight refresh instead of issuing a duplicate fetch
	if c.inflight != nil {
		f := c.inflight
		c.mu.Unlock()
		select {
		case <-f.done:
			return f.models
		case <-ctx.Done():
			return c.stale()
		}
	}

	f := &fetch{done: make(chan struct{})}
	c.inflight = f
	c.mu.Unlock()

	live, err := c.source.Fetch(ctx)

	c.mu.Lock()
	if err != nil {
		c.logger.Warn("catalog fetch failed; serving previous snapshot", zap.Error(err))
		if c.snapshot != nil {
			f.models = c.snapshot
		} else {
			// Never an error downstream: the curated table still routes.
			f.models = overlayCurated(nil)
			c.snapshot = f.models
			c.fetchedAt = time.Now()
		}
	} else {
		f.models = overlayCurated(live)
		c.snapshot = f.models
		c.fetchedAt = time.Now()
	}
	c.inflight = nil
	close(f.done)
	c.mu.Unlock()

	return f.models
}

// PriceFor looks up the per-token price for a model id.
// Unknown models cost zero, keeping ledger writes best-effort.
func (c *Cache) PriceFor(ctx context.Context, modelID string) (priceIn, priceOut float64) {
	for _, m := range c.Get(ctx, false) {
		if m.ID == modelID {
			return m.PriceIn, m.PriceOut
		}
	}
	return 0, 0
}

func (c *Cache) stale() []ModelDescriptor {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot
}
