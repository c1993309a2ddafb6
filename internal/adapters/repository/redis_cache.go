package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"campaign-chat/internal/core/ports"
)

// Ensure RedisCache implements ReplyCache
var _ ports.ReplyCache = (*RedisCache)(nil)

// RedisCache is the lookaside cache for campaign and broadcast metadata.
// A miss is a normal outcome, never an error; only backend failures
// surface to the caller.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache creates a reply cache over the given client. All keys
// are namespaced under the prefix.
func NewRedisCache(client *redis.Client, prefix string) *RedisCache {
	return &RedisCache{
		client: client,
		prefix: prefix,
	}
}

// Get returns the cached value and true, or ok=false on a miss.
func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := r.client.Get(ctx, r.buildKey(key)).Bytes()

	if err == redis.Nil {
		return nil, false, nil
	}

	if err != nil {
		slog.Error("Failed to read cache",
			"error", err,
			"key", key,
		)
		return nil, false, fmt.Errorf("cache get: %w", err)
	}

	return value, true, nil
}

// Set writes through with the given TTL and returns the stored value so
// read-through callers use it directly instead of a second Get.
func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) ([]byte, error) {
	if err := r.client.Set(ctx, r.buildKey(key), value, ttl).Err(); err != nil {
		slog.Error("Failed to write cache",
			"error", err,
			"key", key,
			"ttl", ttl,
		)
		return nil, fmt.Errorf("cache set: %w", err)
	}

	slog.Debug("Cache entry written",
		"key", key,
		"ttl", ttl,
	)

	return value, nil
}

func (r *RedisCache) buildKey(key string) string {
	return fmt.Sprintf("%s:%s", r.prefix, key)
}
