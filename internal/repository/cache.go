// Package repository reads reference data and writes quotations. Pricing
// rules and the blacklist are read through a Redis cache.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"cotacao-workers/internal/common/logger"
	"cotacao-workers/internal/common/metrics"

	"github.com/redis/go-redis/v9"
)

const (
	cacheHit   = "hit"
	cacheMiss  = "miss"
	cacheError = "error"
)

// referenceCache stores JSON snapshots of reference tables. A nil client
// disables caching; Redis failures degrade to a miss.
type referenceCache struct {
	client redis.Cmdable
	ttl    time.Duration
	logger logger.Logger
}

func (c *referenceCache) get(ctx context.Context, dataset, key string, dst interface{}) bool {
	if c.client == nil {
		return false
	}

	val, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		metrics.ReferenceCacheLookups.WithLabelValues(dataset, cacheMiss).Inc()
		return false
	}
	if err != nil {
		metrics.ReferenceCacheLookups.WithLabelValues(dataset, cacheError).Inc()
		c.logger.Warn("cache read failed", map[string]interface{}{"key": key, "error": err.Error()})
		return false
	}

	if err := json.Unmarshal([]byte(val), dst); err != nil {
		metrics.ReferenceCacheLookups.WithLabelValues(dataset, cacheError).Inc()
		c.logger.Warn("discarding unreadable cache entry", map[string]interface{}{"key": key, "error": err.Error()})
		return false
	}

	metrics.ReferenceCacheLookups.WithLabelValues(dataset, cacheHit).Inc()
	return true
}

func (c *referenceCache) set(ctx context.Context, key string, v interface{}) {
	if c.client == nil {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
}

func (c *referenceCache) invalidate(ctx context.Context, keys ...string) error {
	if c.client == nil || len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}
