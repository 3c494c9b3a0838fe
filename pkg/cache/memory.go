package cache

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/boogy/drinks-warden/pkg/types"
)

type memoryCache struct {
	data       map[string]*cacheItem
	mu         sync.RWMutex
	maxSize    int           // Maximum number of items to store
	defaultTTL time.Duration // Default TTL for cache entries
	now        func() time.Time
}

type cacheItem struct {
	value      *types.JWKS
	expiration time.Time
	lastAccess atomic.Int64 // Unix nanoseconds, for LRU eviction
}

// MemoryOption configures the in-memory cache
type MemoryOption func(*memoryCache)

// WithMaxSize bounds the number of stored key sets
func WithMaxSize(size int) MemoryOption {
	return func(c *memoryCache) {
		if size > 0 {
			c.maxSize = size
		}
	}
}

// WithDefaultTTL sets the TTL used when Set is called without one
func WithDefaultTTL(ttl time.Duration) MemoryOption {
	return func(c *memoryCache) {
		if ttl > 0 {
			c.defaultTTL = ttl
		}
	}
}

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) MemoryOption {
	return func(c *memoryCache) { c.now = now }
}

func NewMemoryCache(opts ...MemoryOption) Cache {
	c := &memoryCache{
		data:       make(map[string]*cacheItem),
		maxSize:    Defaults.MaxLocalSize,
		defaultTTL: Defaults.TTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *memoryCache) Get(ctx context.Context, key string) (*types.JWKS, bool) {
	value, _, ok := c.GetWithExpiry(ctx, key)
	return value, ok
}

// GetWithExpiry is Get that also reports when the entry expires. Hits only
// take the read lock.
func (c *memoryCache) GetWithExpiry(_ context.Context, key string) (*types.JWKS, time.Time, bool) {
	now := c.now()

	c.mu.RLock()
	item, found := c.data[key]
	if found && now.Before(item.expiration) {
		item.lastAccess.Store(now.UnixNano())
	}
	c.mu.RUnlock()

	if !found {
		slog.Debug("Cache miss", "key", key)
		return nil, time.Time{}, false
	}

	if !now.Before(item.expiration) {
		slog.Debug("Cache entry expired", "key", key)

		c.mu.Lock()
		// Only drop the entry we looked at; a concurrent Set may have replaced it
		if c.data[key] == item {
			delete(c.data, key)
		}
		c.mu.Unlock()

		return nil, time.Time{}, false
	}

	slog.Debug("Cache hit", "key", key)
	return item.value, item.expiration, true
}

func (c *memoryCache) Set(_ context.Context, key string, value *types.JWKS, ttl time.Duration) {
	if value == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Use default TTL if not specified
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	if _, exists := c.data[key]; !exists && len(c.data) >= c.maxSize {
		c.evictLRU()
	}

	now := c.now()
	item := &cacheItem{value: value, expiration: now.Add(ttl)}
	item.lastAccess.Store(now.UnixNano())
	c.data[key] = item

	slog.Debug("Cached value", "key", key, "ttl", ttl, "keys", len(value.Keys))
}

// evictLRU removes the least recently used item from the cache
func (c *memoryCache) evictLRU() {
	var oldestKey string
	var oldest int64

	for k, entry := range c.data {
		if at := entry.lastAccess.Load(); oldestKey == "" || at < oldest {
			oldestKey = k
			oldest = at
		}
	}

	if oldestKey != "" {
		slog.Debug("Evicting LRU cache item", "key", oldestKey, "lastAccess", time.Unix(0, oldest))
		delete(c.data, oldestKey)
	}
}
