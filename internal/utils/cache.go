package utils

import (
	"context"       // Context for Redis operations
	"encoding/json" // JSON encoding/decoding
	"errors"        // Sentinel comparison
	"strconv"       // Key formatting
	"time"          // Time durations

	"github.com/redis/go-redis/v9" // Redis client
)

// Cache key prefixes
const (
	TransactionKeyPrefix      = "transaction:"    // Single transaction detail
	AdminTransactionKeyPrefix = "admin:txs:"      // Admin transaction listings
	AdminUserKeyPrefix        = "admin:users:"    // Admin user listings
	DashboardKey              = "admin:dashboard" // Admin dashboard totals
)

// TransactionKey returns the cache key of a single transaction
func TransactionKey(id uint) string {
	return TransactionKeyPrefix + strconv.FormatUint(uint64(id), 10)
}

// GetCache retrieves a value from Redis and unmarshals it into dest
func GetCache(ctx context.Context, rdb *redis.Client, key string, dest any) (bool, error) {
	val, err := rdb.Get(ctx, key).Result() // Get value from Redis
	if errors.Is(err, redis.Nil) {
		return false, nil // Key does not exist
	} else if err != nil {
		return false, err // Other Redis error
	}
	return true, json.Unmarshal([]byte(val), dest) // Unmarshal JSON into dest
}

// SetCache sets a value in Redis with a specified TTL
func SetCache(ctx context.Context, rdb *redis.Client, key string, value any, ttl time.Duration) error {
	b, err := json.Marshal(value) // Marshal value to JSON
	if err != nil {
		return err // Return error if marshaling fails
	}
	return rdb.Set(ctx, key, b, ttl).Err() // Set value in Redis with TTL
}

// DeleteCache deletes keys from Redis
func DeleteCache(ctx context.Context, rdb *redis.Client, keys ...string) error {
	return rdb.Del(ctx, keys...).Err() // Delete keys from Redis
}

// DeletePrefix deletes every key starting with prefix, scanning in batches
func DeletePrefix(ctx context.Context, rdb *redis.Client, prefix string) error {
	iter := rdb.Scan(ctx, 0, prefix+"*", 100).Iterator() // Cursor over matching keys
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		// Flush full batches
		if len(batch) == 100 {
			if err := DeleteCache(ctx, rdb, batch...); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err // Scan failed
	}
	if len(batch) > 0 {
		return DeleteCache(ctx, rdb, batch...)
	}
	return nil
}
