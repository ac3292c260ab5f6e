package resolve

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

// Cache stores resolved mapping lists keyed by normalized term so parallel
// scoring workers do not re-resolve the same indication thousands of times.
// A cache is always optional: failures degrade to recomputation.
type Cache interface {
	Get(ctx context.Context, key string) ([]ResolvedMapping, bool)
	Set(ctx context.Context, key string, mappings []ResolvedMapping)
}

// RedisCache is a read-through cache over redis. Entries expire so a rebuilt
// ontology index wins over stale mappings within a day.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

// NewRedisCache connects to the redis instance at url (redis://... form).
func NewRedisCache(ctx context.Context, url string, ttl time.Duration, logger zerolog.Logger) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisCache{client: client, ttl: ttl, log: logger}, nil
}

// Get implements Cache. Any redis or decode error is treated as a miss.
func (c *RedisCache) Get(ctx context.Context, key string) ([]ResolvedMapping, bool) {
	raw, err := c.client.Get(ctx, cacheKey(key)).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("resolve cache get failed")
		return nil, false
	}
	var mappings []ResolvedMapping
	if err := json.Unmarshal([]byte(raw), &mappings); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("resolve cache entry corrupt")
		return nil, false
	}
	return mappings, true
}

// Set implements Cache. Failures are logged and ignored.
func (c *RedisCache) Set(ctx context.Context, key string, mappings []ResolvedMapping) {
	raw, err := json.Marshal(mappings)
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("resolve cache encode failed")
		return
	}
	if err := c.client.Set(ctx, cacheKey(key), raw, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("resolve cache set failed")
	}
}

// Close releases the redis connection.
func (c *RedisCache) Close() error { return c.client.Close() }

func cacheKey(key string) string { return "resolve:" + key }
