// Package cache maintains the Redis-backed stats cache that the read API
// serves from. The ingestion side only ever invalidates: fresh values are
// rebuilt lazily by the readers.
package cache

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// Cache key prefixes owned by this service.
var statsKeyPatterns = []string{
	"stats:overview",
	"stats:by_category:*",
	"stats:by_country:*",
	"stats:skills:*",
	"jobs:search:*",
}

// Cache wraps the Redis client for stats invalidation.
type Cache struct {
	rdb    *redis.Client
	logger *slog.Logger
}

// New returns a Cache.
func New(rdb *redis.Client, logger *slog.Logger) *Cache {
	return &Cache{rdb: rdb, logger: logger}
}

// InvalidateStats deletes every cached aggregate after a batch lands.
// Invalidation failure is non-fatal: readers just serve stale aggregates
// until the keys expire on their own TTL.
func (c *Cache) InvalidateStats(ctx context.Context) {
	deleted := 0
	for _, pattern := range statsKeyPatterns {
		n, err := c.deletePattern(ctx, pattern)
		if err != nil {
			c.logger.Warn("cache invalidation failed", "pattern", pattern, "err", err)
			continue
		}
		deleted += n
	}
	if deleted > 0 {
		c.logger.Debug("stats cache invalidated", "keys", deleted)
	}
}

// deletePattern removes all keys matching pattern, using SCAN so a large
// keyspace never blocks Redis the way KEYS would.
func (c *Cache) deletePattern(ctx context.Context, pattern string) (int, error) {
	if !hasWildcard(pattern) {
		n, err := c.rdb.Del(ctx, pattern).Result()
		return int(n), err
	}

	deleted := 0
	iter := c.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return deleted, fmt.Errorf("del %s: %w", iter.Val(), err)
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("scan %s: %w", pattern, err)
	}
	return deleted, nil
}

func hasWildcard(pattern string) bool {
	for _, r := range pattern {
		if r == '*' || r == '?' || r == '[' {
			return true
		}
	}
	return false
}
