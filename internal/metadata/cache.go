package metadata

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is Redis-backed storage for scraped metadata, keyed by content URL.
// A nil Redis client disables caching; every method tolerates it.
type Cache struct {
	client *redis.Client
	prefix string
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{
		client: client,
		prefix: "metadata:",
	}
}

func (c *Cache) makeKey(url string) string {
	hash := sha256.Sum256([]byte(url))
	return fmt.Sprintf("%s%x", c.prefix, hash)
}

// Get retrieves cached metadata by URL. Cache misses and Redis errors both
// come back as nil; the caller falls through to a live fetch either way.
func (c *Cache) Get(ctx context.Context, url string) *Metadata {
	if c == nil || c.client == nil {
		return nil
	}

	data, err := c.client.Get(ctx, c.makeKey(url)).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		slog.Warn("Redis cache get failed", "error", err)
		return nil
	}

	var meta Metadata
	if err := json.Unmarshal([]byte(data), &meta); err != nil {
		slog.Warn("Failed to unmarshal cached metadata", "error", err)
		return nil
	}
	return &meta
}

// Set stores metadata with the given TTL. Failures are logged, never fatal.
func (c *Cache) Set(ctx context.Context, url string, meta *Metadata, ttl time.Duration) {
	if c == nil || c.client == nil || meta == nil {
		return
	}

	data, err := json.Marshal(meta)
	if err != nil {
		return
	}

	if err := c.client.Set(ctx, c.makeKey(url), data, ttl).Err(); err != nil {
		slog.Warn("Redis cache set failed", "error", err)
	}
}
