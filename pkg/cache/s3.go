package cache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/boogy/drinks-warden/pkg/types"
)

// S3API is the subset of the S3 client used by the cache
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// s3Cache implements the Cache interface using an S3 bucket
type s3Cache struct {
	client     S3API
	bucketName string
	prefix     string
	defaultTTL time.Duration
	now        func() time.Time
}

// s3CacheItem wraps the JWKS value with metadata for caching
type s3CacheItem struct {
	Source     string      `json:"source"`
	Value      *types.JWKS `json:"value"`
	Expiration time.Time   `json:"expiration"`
	CreatedAt  time.Time   `json:"created_at"`
}

// NewS3Cache stores each key set as a JSON object under prefix
func NewS3Cache(client S3API, bucketName, prefix string, defaultTTL time.Duration) Cache {
	if defaultTTL <= 0 {
		defaultTTL = Defaults.TTL
	}
	return &s3Cache{
		client:     client,
		bucketName: bucketName,
		prefix:     prefix,
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

func (c *s3Cache) Get(ctx context.Context, key string) (*types.JWKS, bool) {
	value, _, ok := c.GetWithExpiry(ctx, key)
	return value, ok
}

// GetWithExpiry also returns the expiration recorded in the object
func (c *s3Cache) GetWithExpiry(ctx context.Context, key string) (*types.JWKS, time.Time, bool) {
	ctx, cancel := context.WithTimeout(ctx, Defaults.Timeout)
	defer cancel()

	resp, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucketName),
		Key:    aws.String(c.objectKey(key)),
	})
	if err != nil {
		var noSuchKey *s3types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			slog.Debug("Cache miss in S3", "key", key)
			return nil, time.Time{}, false
		}
		slog.Error("Failed to get object from S3", "key", key, "error", err)
		return nil, time.Time{}, false
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("Error closing S3 response body", "error", err)
		}
	}()

	// Limit read size regardless of content length header
	body, err := io.ReadAll(io.LimitReader(resp.Body, Defaults.MaxItemSize+1))
	if err != nil {
		slog.Error("Failed to read S3 object body", "key", key, "error", err)
		return nil, time.Time{}, false
	}
	if int64(len(body)) > Defaults.MaxItemSize {
		slog.Warn("S3 cache item exceeds maximum allowed size", "key", key, "maxAllowed", Defaults.MaxItemSize)
		return nil, time.Time{}, false
	}

	var item s3CacheItem
	if err := json.Unmarshal(body, &item); err != nil {
		slog.Error("Failed to decode S3 cache item", "key", key, "error", err)
		return nil, time.Time{}, false
	}

	// Guard against hash collisions and hand-edited objects
	if item.Source != key || item.Value == nil {
		slog.Warn("S3 cache item does not match requested key", "key", key, "source", item.Source)
		return nil, time.Time{}, false
	}

	if !c.now().Before(item.Expiration) {
		slog.Debug("S3 cache entry expired", "key", key)
		return nil, time.Time{}, false
	}

	slog.Debug("S3 cache hit", "key", key)
	return item.Value, item.Expiration, true
}

func (c *s3Cache) Set(ctx context.Context, key string, value *types.JWKS, ttl time.Duration) {
	if value == nil {
		return
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	now := c.now()
	data, err := json.Marshal(s3CacheItem{
		Source:     key,
		Value:      value,
		Expiration: now.Add(ttl),
		CreatedAt:  now,
	})
	if err != nil {
		slog.Error("Failed to marshal S3 cache item", "key", key, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, Defaults.Timeout)
	defer cancel()

	_, err = c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucketName),
		Key:         aws.String(c.objectKey(key)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"source":     key,
			"expiration": now.Add(ttl).UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		slog.Error("Failed to put object in S3", "key", key, "error", err)
		return
	}

	slog.Debug("Cached value in S3", "key", key, "ttl", ttl, "size", len(data))
}

// objectKey maps a key set URL to a stable object name
func (c *s3Cache) objectKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	name := hex.EncodeToString(sum[:]) + ".json"
	if c.prefix == "" {
		return name
	}
	return path.Join(c.prefix, name)
}
