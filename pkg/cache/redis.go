package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/boogy/drinks-warden/pkg/types"
	"github.com/redis/go-redis/v9"
)

// redisCache shares fetched key sets between replicas through Redis.
type redisCache struct {
	client     redis.Cmdable
	prefix     string
	defaultTTL time.Duration
}

// NewRedisCache stores key sets under prefix+key with a Redis-side expiry.
func NewRedisCache(client redis.Cmdable, prefix string, defaultTTL time.Duration) Cache {
	if defaultTTL <= 0 {
		defaultTTL = Defaults.TTL
	}
	return &redisCache{client: client, prefix: prefix, defaultTTL: defaultTTL}
}

func (c *redisCache) Get(ctx context.Context, key string) (*types.JWKS, bool) {
	value, _, ok := c.GetWithExpiry(ctx, key)
	return value, ok
}

// GetWithExpiry reads the value and its remaining Redis TTL in one round trip.
func (c *redisCache) GetWithExpiry(ctx context.Context, key string) (*types.JWKS, time.Time, bool) {
	ctx, cancel := context.WithTimeout(ctx, Defaults.Timeout)
	defer cancel()

	var get *redis.StringCmd
	var pttl *redis.DurationCmd
	_, _ = c.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		get = pipe.Get(ctx, c.prefix+key)
		pttl = pipe.PTTL(ctx, c.prefix+key)
		return nil
	})

	data, err := get.Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			slog.Debug("Cache miss in Redis", "key", key)
		} else {
			slog.Error("Failed to get key set from Redis", "key", key, "error", err.Error())
		}
		return nil, time.Time{}, false
	}

	if int64(len(data)) > Defaults.MaxItemSize {
		slog.Warn("Redis cache item exceeds maximum allowed size",
			"key", key,
			"size", len(data),
			"maxAllowed", Defaults.MaxItemSize)
		return nil, time.Time{}, false
	}

	var jwks types.JWKS
	if err := json.Unmarshal(data, &jwks); err != nil {
		slog.Error("Failed to unmarshal key set from Redis", "key", key, "error", err.Error())
		return nil, time.Time{}, false
	}

	// Keys written without an expiry report a negative TTL
	left, err := pttl.Result()
	if err != nil || left <= 0 {
		left = c.defaultTTL
	}

	slog.Debug("Redis cache hit", "key", key, "ttl", left)
	return &jwks, time.Now().Add(left), true
}

func (c *redisCache) Set(ctx context.Context, key string, value *types.JWKS, ttl time.Duration) {
	if value == nil {
		return
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	data, err := json.Marshal(value)
	if err != nil {
		slog.Error("Failed to marshal key set", "key", key, "error", err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(ctx, Defaults.Timeout)
	defer cancel()

	if err := c.client.Set(ctx, c.prefix+key, data, ttl).Err(); err != nil {
		slog.Error("Failed to store key set in Redis", "key", key, "error", err.Error())
		return
	}

	slog.Debug("Cached value in Redis", "key", key, "ttl", ttl, "size", len(data))
}
