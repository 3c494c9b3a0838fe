package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/boogy/drinks-warden/pkg/types"
)

// DynamoDBAPI is the subset of the DynamoDB client used by the cache
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// dynamoDBCache implements the Cache interface using a DynamoDB table keyed by "Key".
// The "TTL" attribute is meant for DynamoDB native expiry; "Expiration" is checked on read
// because native expiry is lazy.
type dynamoDBCache struct {
	client     DynamoDBAPI
	tableName  string
	defaultTTL time.Duration
	now        func() time.Time
}

// NewDynamoDBCache creates a new DynamoDB cache with the given table name
func NewDynamoDBCache(client DynamoDBAPI, tableName string, defaultTTL time.Duration) Cache {
	if defaultTTL <= 0 {
		defaultTTL = Defaults.TTL
	}
	return &dynamoDBCache{
		client:     client,
		tableName:  tableName,
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

// Get retrieves an item from the DynamoDB cache
func (c *dynamoDBCache) Get(ctx context.Context, key string) (*types.JWKS, bool) {
	value, _, ok := c.GetWithExpiry(ctx, key)
	return value, ok
}

// GetWithExpiry also returns the stored expiration of the item
func (c *dynamoDBCache) GetWithExpiry(ctx context.Context, key string) (*types.JWKS, time.Time, bool) {
	ctx, cancel := context.WithTimeout(ctx, Defaults.Timeout)
	defer cancel()

	result, err := c.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(c.tableName),
		Key: map[string]dbtypes.AttributeValue{
			"Key": &dbtypes.AttributeValueMemberS{Value: key},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		slog.Error("Failed to get item from DynamoDB",
			"key", key,
			"error", err.Error(),
			"table", c.tableName)
		return nil, time.Time{}, false
	}

	if result.Item == nil {
		slog.Debug("Cache miss in DynamoDB", "key", key)
		return nil, time.Time{}, false
	}

	valueStr, ok := result.Item["Value"].(*dbtypes.AttributeValueMemberS)
	if !ok {
		slog.Error("Invalid item format in DynamoDB - missing Value attribute", "key", key)
		return nil, time.Time{}, false
	}

	if int64(len(valueStr.Value)) > Defaults.MaxItemSize {
		slog.Warn("DynamoDB cache item exceeds maximum allowed size",
			"key", key,
			"size", len(valueStr.Value),
			"maxAllowed", Defaults.MaxItemSize)
		return nil, time.Time{}, false
	}

	expirationStr, ok := result.Item["Expiration"].(*dbtypes.AttributeValueMemberS)
	if !ok {
		slog.Error("Invalid item format in DynamoDB - missing Expiration attribute", "key", key)
		return nil, time.Time{}, false
	}
	expiration, err := time.Parse(time.RFC3339, expirationStr.Value)
	if err != nil || !c.now().Before(expiration) {
		slog.Debug("DynamoDB cache entry expired", "key", key)
		return nil, time.Time{}, false
	}

	var jwks types.JWKS
	if err := json.Unmarshal([]byte(valueStr.Value), &jwks); err != nil {
		slog.Error("Failed to unmarshal JWKS from DynamoDB",
			"key", key,
			"error", err.Error())
		return nil, time.Time{}, false
	}

	slog.Debug("DynamoDB cache hit", "key", key)
	return &jwks, expiration, true
}

// Set stores an item in the DynamoDB cache with the given TTL
func (c *dynamoDBCache) Set(ctx context.Context, key string, value *types.JWKS, ttl time.Duration) {
	if value == nil {
		return
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	valueJSON, err := json.Marshal(value)
	if err != nil {
		slog.Error("Failed to marshal JWKS", "key", key, "error", err.Error())
		return
	}

	if int64(len(valueJSON)) > Defaults.DynamoDBMaxItemSize {
		slog.Error("Cache item too large to store in DynamoDB",
			"key", key,
			"size", len(valueJSON),
			"maxAllowed", Defaults.DynamoDBMaxItemSize)
		return
	}

	now := c.now()
	expiresAt := now.Add(ttl)

	ctx, cancel := context.WithTimeout(ctx, Defaults.Timeout)
	defer cancel()

	_, err = c.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item: map[string]dbtypes.AttributeValue{
			"Key":        &dbtypes.AttributeValueMemberS{Value: key},
			"Value":      &dbtypes.AttributeValueMemberS{Value: string(valueJSON)},
			"Expiration": &dbtypes.AttributeValueMemberS{Value: expiresAt.UTC().Format(time.RFC3339)},
			"TTL":        &dbtypes.AttributeValueMemberN{Value: strconv.FormatInt(expiresAt.Unix(), 10)},
			"CreatedAt":  &dbtypes.AttributeValueMemberS{Value: now.UTC().Format(time.RFC3339)},
			"Size":       &dbtypes.AttributeValueMemberN{Value: fmt.Sprintf("%d", len(valueJSON))},
		},
	})
	if err != nil {
		slog.Error("Failed to set item in DynamoDB",
			"key", key,
			"error", err.Error(),
			"table", c.tableName)
		return
	}

	slog.Debug("Cached value in DynamoDB", "key", key, "ttl", ttl, "size", len(valueJSON))
}
