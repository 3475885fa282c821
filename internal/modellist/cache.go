package modellist

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"switchboard/internal/logging"
)

const (
	defaultCacheSize = 64
	defaultCacheTTL  = 5 * time.Minute
)

// CacheConfig tunes the listing cache.
type CacheConfig struct {
	// MaxSize is the maximum number of platforms cached.
	MaxSize int
	// TTL is how long a successful listing stays fresh.
	TTL time.Duration
}

// DefaultCacheConfig returns the defaults used by the daemon.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{MaxSize: defaultCacheSize, TTL: defaultCacheTTL}
}

type cachedEntry struct {
	resp     Response
	storedAt time.Time
}

// Cached wraps a Requester with an LRU+TTL cache of successful listings.
// Failures are never cached, so a platform that recovers is picked up on
// the next request rather than after a TTL.
type Cached struct {
	inner  Requester
	cache  *lru.Cache[string, cachedEntry]
	ttl    time.Duration
	clock  func() time.Time
	logger logging.Logger
}

var _ Requester = (*Cached)(nil)

// NewCached wraps inner with a listing cache. Zero config values fall back
// to DefaultCacheConfig.
func NewCached(inner Requester, config CacheConfig, logger logging.Logger) *Cached {
	if config.MaxSize <= 0 {
		config.MaxSize = defaultCacheSize
	}
	if config.TTL <= 0 {
		config.TTL = defaultCacheTTL
	}
	// MaxSize is positive by the guards above, so New cannot fail.
	cache, _ := lru.New[string, cachedEntry](config.MaxSize)
	return &Cached{
		inner:  inner,
		cache:  cache,
		ttl:    config.TTL,
		clock:  time.Now,
		logger: logging.OrNop(logger),
	}
}

func (c *Cached) Request(ctx context.Context, platformID string) Response {
	if entry, ok := c.cache.Get(platformID); ok {
		if c.clock().Sub(entry.storedAt) < c.ttl {
			c.logger.Debug("model list for %s served from cache", platformID)
			return entry.resp
		}
		// Expired; evict so the LRU bookkeeping stays clean.
		c.cache.Remove(platformID)
	}

	resp := c.inner.Request(ctx, platformID)
	if resp.Success {
		c.cache.Add(platformID, cachedEntry{resp: resp, storedAt: c.clock()})
	}
	return resp
}

// Invalidate drops one platform's cached listing; the next request fetches
// fresh. Explicit refresh triggers use this to bypass the TTL.
func (c *Cached) Invalidate(platformID string) {
	c.cache.Remove(platformID)
}

// Purge drops every cached listing.
func (c *Cached) Purge() {
	c.cache.Purge()
}
