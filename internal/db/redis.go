package db

import (
	"context" // Ping deadline
	"fmt"     // Error wrapping

	"github.com/redis/go-redis/v9" // Redis client
)

// OpenRedis connects to Redis and verifies the connection with a ping
func OpenRedis(ctx context.Context, addr, password string, database int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,     // Redis server address
		Password: password, // Redis password
		DB:       database, // Redis database number
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return rdb, nil
}
