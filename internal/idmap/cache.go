package idmap

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hupe1980/bitsieve/internal/cache"
	"github.com/hupe1980/bitsieve/model"
	"golang.org/x/time/rate"
)

const (
	// DefaultCapacity is the number of generations kept.
	DefaultCapacity = 4
	// DefaultRetryInterval is the minimum time between rebuilds of a
	// generation whose build failed.
	DefaultRetryInterval = 30 * time.Second
)

// Stats are cumulative Cache counters.
type Stats struct {
	Hits          int64
	Misses        int64
	Builds        int64
	BuildFailures int64
	Evictions     int64
	Entries       int
}

// Options configure a Cache.
type Options struct {
	// Capacity is the number of generations kept. Default 4.
	Capacity int
	// RetryInterval bounds rebuild attempts of failed generations.
	// Default 30s; negative allows a rebuild on every lookup.
	RetryInterval time.Duration
	// Concurrency is the number of segments scanned in parallel.
	// Default GOMAXPROCS.
	Concurrency int
	Logger      *slog.Logger
	// OnBuild is called after every build attempt.
	OnBuild func(gen model.Generation, d time.Duration, err error)
}

// Cache holds the IdMaps of recent generations.
type Cache struct {
	opts    Options
	entries *cache.LRU[model.Generation, *IdMap]

	mu       sync.Mutex
	limiters map[model.Generation]*rate.Limiter

	hits          atomic.Int64
	misses        atomic.Int64
	builds        atomic.Int64
	buildFailures atomic.Int64
}

// NewCache creates a Cache.
func NewCache(opts Options) *Cache {
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}
	if opts.RetryInterval == 0 {
		opts.RetryInterval = DefaultRetryInterval
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = runtime.GOMAXPROCS(0)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	c := &Cache{
		opts:     opts,
		limiters: make(map[model.Generation]*rate.Limiter),
	}
	c.entries = cache.NewLRU(int64(opts.Capacity),
		cache.WithEvictCallback[model.Generation, *IdMap](func(gen model.Generation, _ *IdMap) {
			c.dropLimiter(gen)
		}))
	return c
}

// Get returns the IdMap of src's generation, building it on a miss.
//
// Get never fails: a failed build yields an empty map (Failed reports true)
// that stays cached until the retry limiter admits the next rebuild.
func (c *Cache) Get(ctx context.Context, src Source) *IdMap {
	m, _ := c.Fetch(ctx, src)
	return m
}

// Fetch is Get that also reports whether the map came from the cache.
func (c *Cache) Fetch(ctx context.Context, src Source) (*IdMap, bool) {
	gen := src.Generation()

	if m, ok := c.entries.Get(gen); ok {
		if !m.Failed() || !c.retryAllowed(gen) {
			c.hits.Add(1)
			return m, true
		}
	}
	c.misses.Add(1)

	return c.build(ctx, src, gen), false
}

func (c *Cache) build(ctx context.Context, src Source, gen model.Generation) *IdMap {
	start := time.Now()
	m, err := Build(ctx, src, c.opts.Concurrency)
	elapsed := time.Since(start)
	c.builds.Add(1)
	if c.opts.OnBuild != nil {
		c.opts.OnBuild(gen, elapsed, err)
	}

	if err != nil {
		c.buildFailures.Add(1)
		if ctx.Err() != nil {
			// The caller gave up; the generation itself is not at fault.
			return failed(gen, err)
		}
		first := c.markFailed(gen)
		if first {
			c.opts.Logger.Error("id map build failed",
				"generation", string(gen),
				"retry_in", c.opts.RetryInterval,
				"error", err)
		} else {
			c.opts.Logger.Debug("id map rebuild failed", "generation", string(gen), "error", err)
		}
		fm := failed(gen, err)
		c.entries.Put(gen, fm)
		return fm
	}

	c.dropLimiter(gen)
	c.entries.Put(gen, m)
	c.opts.Logger.Info("id map built",
		"generation", string(gen),
		"ids", m.Len(),
		"approx_size", humanize.Bytes(uint64(m.Len())*12),
		"elapsed", elapsed)
	return m
}

// markFailed installs the retry limiter of gen and reports whether gen had
// not failed before.
func (c *Cache) markFailed(gen model.Generation) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.limiters[gen]; ok {
		return false
	}
	var lim *rate.Limiter
	if c.opts.RetryInterval < 0 {
		lim = rate.NewLimiter(rate.Inf, 1)
	} else {
		lim = rate.NewLimiter(rate.Every(c.opts.RetryInterval), 1)
		// The failed attempt spends the burst.
		lim.Allow()
	}
	c.limiters[gen] = lim
	return true
}

func (c *Cache) retryAllowed(gen model.Generation) bool {
	c.mu.Lock()
	lim, ok := c.limiters[gen]
	c.mu.Unlock()
	return !ok || lim.Allow()
}

func (c *Cache) dropLimiter(gen model.Generation) {
	c.mu.Lock()
	delete(c.limiters, gen)
	c.mu.Unlock()
}

// Invalidate drops the map of gen.
func (c *Cache) Invalidate(gen model.Generation) {
	c.entries.Remove(gen)
	c.dropLimiter(gen)
}

// Retain drops every generation except gen.
func (c *Cache) Retain(gen model.Generation) {
	c.entries.Invalidate(func(k model.Generation) bool { return k != gen })
	c.mu.Lock()
	for k := range c.limiters {
		if k != gen {
			delete(c.limiters, k)
		}
	}
	c.mu.Unlock()
}

// Stats returns cumulative counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		Builds:        c.builds.Load(),
		BuildFailures: c.buildFailures.Load(),
		Evictions:     c.entries.Stats().Evictions,
		Entries:       c.entries.Len(),
	}
}
