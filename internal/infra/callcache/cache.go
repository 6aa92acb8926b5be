// Package callcache is the shared execution layer between the
// dispatcher and tool handlers. It serves repeated reads from a TTL
// cache and collapses concurrent identical calls onto a single
// upstream execution.
package callcache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"edgemcp/internal/domain"
	"edgemcp/internal/infra/telemetry"
)

type entry struct {
	value     any
	section   string
	expiresAt time.Time
}

type inflight struct {
	done  chan struct{}
	value any
	err   error
}

type Options struct {
	SweepInterval time.Duration
	Logger        *zap.Logger
	Metrics       domain.Metrics
	Health        *telemetry.HealthTracker
}

// Cache owns the call result cache and the in-flight execution table.
// Values stored in the cache are treated as immutable snapshots.
type Cache struct {
	mu       sync.Mutex
	entries  map[string]entry
	inflight map[string]*inflight

	sweepInterval time.Duration
	logger        *zap.Logger
	metrics       domain.Metrics
	beat          *telemetry.Heartbeat
}

func New(opts Options) *Cache {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	interval := opts.SweepInterval
	if interval <= 0 {
		interval = domain.DefaultCacheSweepSeconds * time.Second
	}
	c := &Cache{
		entries:       make(map[string]entry),
		inflight:      make(map[string]*inflight),
		sweepInterval: interval,
		logger:        logger.Named("callcache"),
		metrics:       metrics,
	}
	if opts.Health != nil {
		c.beat = opts.Health.Register("cache_sweep", interval)
	}
	return c
}

// Do executes fn through the cache according to opts. With a TTL set, a
// live entry short-circuits the call. With coalescing enabled, at most
// one execution runs per key; late arrivals wait for its outcome. Only
// successful results are stored, and only when a TTL is configured.
func (c *Cache) Do(ctx context.Context, key CallKey, opts domain.ToolOptions, fn func(context.Context) (any, error)) (any, error) {
	cacheable := opts.CacheTTL > 0
	if !cacheable && !opts.Coalesce {
		c.metrics.ObserveCache(key.Tool, domain.CacheOutcomeBypass)
		return fn(ctx)
	}

	hash, err := key.Hash()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if cacheable {
		if ent, ok := c.entries[hash]; ok {
			if time.Now().Before(ent.expiresAt) {
				c.mu.Unlock()
				c.metrics.ObserveCache(key.Tool, domain.CacheOutcomeHit)
				return ent.value, nil
			}
			delete(c.entries, hash)
			c.metrics.AddCacheEvictions(1)
		}
	}
	if opts.Coalesce {
		if fl, ok := c.inflight[hash]; ok {
			c.mu.Unlock()
			c.metrics.ObserveCache(key.Tool, domain.CacheOutcomeCoalesced)
			select {
			case <-fl.done:
				return fl.value, fl.err
			case <-ctx.Done():
				// The execution keeps running for the other waiters.
				return nil, ctx.Err()
			}
		}
	}
	fl := &inflight{done: make(chan struct{})}
	if opts.Coalesce {
		c.inflight[hash] = fl
	}
	c.mu.Unlock()

	c.metrics.ObserveCache(key.Tool, domain.CacheOutcomeMiss)
	value, err := fn(ctx)

	c.mu.Lock()
	if opts.Coalesce {
		delete(c.inflight, hash)
	}
	if err == nil && cacheable {
		c.entries[hash] = entry{
			value:     value,
			section:   key.Section,
			expiresAt: time.Now().Add(opts.CacheTTL),
		}
	}
	size := len(c.entries)
	c.mu.Unlock()
	c.metrics.SetCacheEntries(size)

	fl.value, fl.err = value, err
	close(fl.done)
	return value, err
}

// Run sweeps expired entries on an interval until ctx is canceled.
func (c *Cache) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if removed := c.Sweep(); removed > 0 {
				c.logger.Debug("swept expired cache entries", zap.Int("removed", removed))
			}
			if c.beat != nil {
				c.beat.Beat()
			}
		}
	}
}

// Sweep removes expired entries and returns how many were removed.
func (c *Cache) Sweep() int {
	now := time.Now()
	c.mu.Lock()
	removed := 0
	for hash, ent := range c.entries {
		if now.After(ent.expiresAt) {
			delete(c.entries, hash)
			removed++
		}
	}
	size := len(c.entries)
	c.mu.Unlock()

	if removed > 0 {
		c.metrics.AddCacheEvictions(removed)
	}
	c.metrics.SetCacheEntries(size)
	return removed
}

// InvalidateSection drops every cached value stored under section.
// Called when the section's credentials change under a live process.
func (c *Cache) InvalidateSection(section string) int {
	c.mu.Lock()
	removed := 0
	for hash, ent := range c.entries {
		if ent.section == section {
			delete(c.entries, hash)
			removed++
		}
	}
	size := len(c.entries)
	c.mu.Unlock()

	if removed > 0 {
		c.metrics.AddCacheEvictions(removed)
	}
	c.metrics.SetCacheEntries(size)
	return removed
}

// Clear drops every cached value.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
	c.metrics.SetCacheEntries(0)
}

// Len returns the number of live cache entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
