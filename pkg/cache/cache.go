package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/boogy/drinks-warden/pkg/config"
	"github.com/boogy/drinks-warden/pkg/types"
	"github.com/redis/go-redis/v9"
)

// CacheDefaults holds all default configuration values for cache implementations
type CacheDefaults struct {
	MaxRetries   int
	Timeout      time.Duration
	TTL          time.Duration
	MaxLocalSize int

	// Size limits
	MaxItemSize         int64 // Maximum size of a cached key set
	DynamoDBMaxItemSize int64
}

// Defaults provides the default configuration values for all cache implementations
var Defaults = CacheDefaults{
	MaxRetries:          3,                // Default number of retries for AWS calls
	Timeout:             2 * time.Second,  // Upper bound for a single remote cache call
	TTL:                 10 * time.Minute, // Default TTL for cache entries
	MaxLocalSize:        100,              // Default max local size for in-memory caches
	MaxItemSize:         512 * 1024,       // 512KB, far above any real key set
	DynamoDBMaxItemSize: 400 * 1024,       // DynamoDB item limit
}

// Cache stores key sets by source URL. Values returned by Get are shared
// snapshots and must be treated as read-only.
type Cache interface {
	Get(ctx context.Context, key string) (*types.JWKS, bool)
	Set(ctx context.Context, key string, value *types.JWKS, ttl time.Duration)
}

// expiringCache is implemented by tiers that know when a stored entry expires.
type expiringCache interface {
	GetWithExpiry(ctx context.Context, key string) (*types.JWKS, time.Time, bool)
}

// GetConfiguredTTL returns the TTL from config or the default if not specified
func GetConfiguredTTL(cfg *config.Config) time.Duration {
	if cfg != nil && cfg.Cache != nil && cfg.Cache.TTL > 0 {
		return cfg.Cache.TTL
	}
	return Defaults.TTL
}

// GetConfiguredMaxLocalSize returns the max local size from config or the default if not specified
func GetConfiguredMaxLocalSize(cfg *config.Config) int {
	if cfg != nil && cfg.Cache != nil && cfg.Cache.MaxLocalSize > 0 {
		return cfg.Cache.MaxLocalSize
	}
	return Defaults.MaxLocalSize
}

// NewCache creates a cache implementation based on the configuration. Remote
// backends are always fronted by a process-local memory tier.
func NewCache(ctx context.Context, cfg *config.Config) (Cache, error) {
	local := NewMemoryCache(
		WithMaxSize(GetConfiguredMaxLocalSize(cfg)),
		WithDefaultTTL(GetConfiguredTTL(cfg)),
	)
	if cfg == nil || cfg.Cache == nil {
		return local, nil
	}

	var remote Cache
	switch cfg.Cache.Type {
	case "", "memory":
		return local, nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		remote = NewRedisCache(client, cfg.Cache.RedisPrefix, GetConfiguredTTL(cfg))

	case "dynamodb":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRetryMaxAttempts(Defaults.MaxRetries))
		if err != nil {
			slog.Error("Failed to load AWS config for DynamoDB cache", slog.String("error", err.Error()))
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		remote = NewDynamoDBCache(dynamodb.NewFromConfig(awsCfg), cfg.Cache.DynamoDBTable, GetConfiguredTTL(cfg))

	case "s3":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRetryMaxAttempts(Defaults.MaxRetries))
		if err != nil {
			slog.Error("Failed to load AWS config for S3 cache", slog.String("error", err.Error()))
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		remote = NewS3Cache(s3.NewFromConfig(awsCfg), cfg.Cache.S3Bucket, cfg.Cache.S3Prefix, GetConfiguredTTL(cfg))

	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.Cache.Type)
	}

	return NewTieredCache(local, remote, GetConfiguredTTL(cfg)), nil
}

// tieredCache serves reads from a local tier and falls back to a shared remote tier.
type tieredCache struct {
	local    Cache
	remote   Cache
	localTTL time.Duration
	now      func() time.Time
}

// NewTieredCache combines a fast local cache with a remote one shared by all replicas.
func NewTieredCache(local, remote Cache, localTTL time.Duration) Cache {
	return &tieredCache{local: local, remote: remote, localTTL: localTTL, now: time.Now}
}

func (c *tieredCache) Get(ctx context.Context, key string) (*types.JWKS, bool) {
	if v, ok := c.local.Get(ctx, key); ok {
		return v, true
	}

	// A promoted entry never outlives its remote copy
	ttl := c.localTTL
	var v *types.JWKS
	if remote, ok := c.remote.(expiringCache); ok {
		var expiration time.Time
		if v, expiration, ok = remote.GetWithExpiry(ctx, key); !ok {
			return nil, false
		}
		if left := expiration.Sub(c.now()); left < ttl || ttl <= 0 {
			ttl = left
		}
		if ttl <= 0 {
			return v, true
		}
	} else if v, ok = c.remote.Get(ctx, key); !ok {
		return nil, false
	}

	c.local.Set(ctx, key, v, ttl)
	return v, true
}

func (c *tieredCache) Set(ctx context.Context, key string, value *types.JWKS, ttl time.Duration) {
	c.local.Set(ctx, key, value, ttl)
	c.remote.Set(ctx, key, value, ttl)
}
