// Package cache keeps fetched GitHub responses keyed by URL. Entries live in
// an in-process LRU and, when configured, in a shared second tier (Redis).
package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"localeditor/redis"
	"localeditor/utils"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

const (
	DefaultSize = 512
	DefaultTTL  = 10 * time.Minute
	keySpace    = "cache"
)

// Tier is a shared byte store behind the LRU. *redis.Service implements it.
type Tier interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type entry struct {
	data    []byte
	expires time.Time
}

// Config controls cache sizing.
type Config struct {
	Size int
	TTL  time.Duration
}

// NewConfigFromEnv reads CACHE_SIZE and CACHE_TTL.
func NewConfigFromEnv() Config {
	return Config{
		Size: utils.GetEnvInt("CACHE_SIZE", DefaultSize),
		TTL:  utils.GetEnvDuration("CACHE_TTL", DefaultTTL),
	}
}

// Stats counts lookups since creation.
type Stats struct {
	Hits     int64 `json:"hits"`
	TierHits int64 `json:"tier_hits"`
	Misses   int64 `json:"misses"`
	Entries  int   `json:"entries"`
}

// Cache is safe for concurrent use.
type Cache struct {
	local *lru.Cache[string, entry]
	tier  Tier
	ttl   time.Duration
	now   func() time.Time

	hits, tierHits, misses atomic.Int64
}

// New creates a cache; tier may be nil.
func New(cfg Config, tier Tier) (*Cache, error) {
	if cfg.Size <= 0 {
		cfg.Size = DefaultSize
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	local, err := lru.New[string, entry](cfg.Size)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	return &Cache{
		local: local,
		tier:  tier,
		ttl:   cfg.TTL,
		now:   time.Now,
	}, nil
}

// Get returns the cached body for key. A second-tier hit is promoted into
// the LRU.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	if e, ok := c.local.Get(key); ok {
		if c.now().Before(e.expires) {
			c.hits.Add(1)
			return e.data, true
		}
		c.local.Remove(key)
	}

	if c.tier != nil {
		data, err := c.tier.Get(ctx, redis.Key(keySpace, key))
		switch {
		case err == nil:
			c.tierHits.Add(1)
			c.local.Add(key, entry{data: data, expires: c.now().Add(c.ttl)})
			return data, true
		case errors.Is(err, redis.ErrCacheMiss):
		default:
			utils.Logger.Debug("Cache tier lookup failed", zap.String("key", key), zap.Error(err))
		}
	}

	c.misses.Add(1)
	return nil, false
}

// Set stores data under key in both tiers.
func (c *Cache) Set(ctx context.Context, key string, data []byte) {
	c.local.Add(key, entry{data: data, expires: c.now().Add(c.ttl)})
	if c.tier == nil {
		return
	}
	if err := c.tier.Set(ctx, redis.Key(keySpace, key), data, c.ttl); err != nil {
		utils.Logger.Debug("Cache tier write failed", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate drops key from both tiers.
func (c *Cache) Invalidate(ctx context.Context, key string) {
	c.local.Remove(key)
	if c.tier == nil {
		return
	}
	if err := c.tier.Delete(ctx, redis.Key(keySpace, key)); err != nil {
		utils.Logger.Debug("Cache tier delete failed", zap.String("key", key), zap.Error(err))
	}
}

// Purge empties the local tier.
func (c *Cache) Purge() {
	c.local.Purge()
}

// Stats returns lookup counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:     c.hits.Load(),
		TierHits: c.tierHits.Load(),
		Misses:   c.misses.Load(),
		Entries:  c.local.Len(),
	}
}
