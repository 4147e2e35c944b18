// Package rediscache provides a Redis-backed implementation of the content
// service's result cache. Generation results are keyed by operation and
// content hash and expire after a configured TTL, so repeated requests for
// the same study material skip the model call entirely.
package rediscache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/studykit/api/internal/config"
)

const defaultTTL = 24 * time.Hour

// Cache stores generation results in Redis. Cache failures are logged and
// reported as misses; the content pipeline works identically without it.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// New creates a Cache from configuration and verifies connectivity with a
// ping. An unreachable Redis is an error so misconfiguration surfaces at
// startup rather than as a permanently cold cache.
func New(ctx context.Context, cfg config.CacheConfig, log *slog.Logger) (*Cache, error) {
	if log == nil {
		log = slog.Default()
	}

	client := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
	}

	ttl := time.Duration(cfg.TTLMinutes) * time.Minute
	if ttl <= 0 {
		ttl = defaultTTL
	}

	return &Cache{
		client: client,
		ttl:    ttl,
		logger: log.With(slog.String("component", "result_cache")),
	}, nil
}

// Get returns the cached value for key, or ok=false on miss or error.
func (c *Cache) Get(ctx context.Context, key string) (string, bool) {
	value, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WarnContext(ctx, "cache read failed", "key", key, "error", err)
		}
		return "", false
	}
	return value, true
}

// Set stores value under key with the configured TTL. Failures are logged
// and otherwise ignored.
func (c *Cache) Set(ctx context.Context, key, value string) {
	if err := c.client.Set(ctx, key, value, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "cache write failed", "key", key, "error", err)
	}
}

// Close releases the underlying Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}
