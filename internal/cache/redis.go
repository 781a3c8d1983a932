package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/raaihank/data-sentinel/internal/logger"
)

// ResultCache is a Redis-backed cache of scrub outcomes. The key covers the
// policy fingerprint and the full resolution context, so a policy reload or
// a different role never serves a stale result. Lookups degrade to a miss
// on any Redis error; the pipeline must work with the cache down.
type ResultCache struct {
	client *redis.Client
	config *Config
	log    *logger.Logger

	hits   int64
	misses int64
}

// NewResultCache connects to Redis and verifies the connection.
func NewResultCache(config *Config, log *logger.Logger) (*ResultCache, error) {
	if log == nil {
		log = logger.Nop()
	}
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if config.MaxConnections > 0 {
		opts.PoolSize = config.MaxConnections
	}
	if config.MinIdleConns > 0 {
		opts.MinIdleConns = config.MinIdleConns
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	c := &ResultCache{
		client: client,
		config: config,
		log:    log.WithComponent("result-cache"),
	}
	c.log.Info("result cache connected",
		zap.String("redis_url", maskRedisURL(config.RedisURL)),
		zap.Duration("default_ttl", config.DefaultTTL))
	return c, nil
}

// Key derives the cache key for one unit under one policy snapshot.
func (c *ResultCache) Key(policyFingerprint, dataset, role, field, text string) string {
	h := xxhash.New()
	for _, part := range []string{policyFingerprint, dataset, role, field, text} {
		h.WriteString(part)
		h.Write([]byte{0})
	}
	prefix := c.config.KeyPrefix
	if prefix == "" {
		prefix = "dsentinel:scrub:"
	}
	return prefix + strconv.FormatUint(h.Sum64(), 16)
}

// Get returns the cached result for a key, or (nil, nil) on a miss.
func (c *ResultCache) Get(ctx context.Context, key string) (*CachedResult, error) {
	data, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		atomic.AddInt64(&c.misses, 1)
		return nil, nil
	}
	if err != nil {
		atomic.AddInt64(&c.misses, 1)
		c.log.Warn("cache lookup failed", zap.Error(err))
		return nil, nil
	}

	var result CachedResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.log.Warn("corrupt cache entry dropped", zap.String("key", key), zap.Error(err))
		c.client.Del(ctx, key)
		atomic.AddInt64(&c.misses, 1)
		return nil, nil
	}

	atomic.AddInt64(&c.hits, 1)
	return &result, nil
}

// Put stores a result under the configured TTL. Failures are logged, not
// returned: caching is best-effort.
func (c *ResultCache) Put(ctx context.Context, key string, result *CachedResult) {
	result.CachedAt = time.Now().UTC()
	data, err := json.Marshal(result)
	if err != nil {
		c.log.Warn("cache marshal failed", zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, key, data, c.config.DefaultTTL).Err(); err != nil {
		c.log.Warn("cache store failed", zap.Error(err))
	}
}

// Stats returns hit/miss counters since start.
func (c *ResultCache) Stats() Stats {
	hits := atomic.LoadInt64(&c.hits)
	misses := atomic.LoadInt64(&c.misses)
	s := Stats{Hits: hits, Misses: misses}
	if total := hits + misses; total > 0 {
		s.HitRate = float64(hits) / float64(total) * 100
	}
	return s
}

// Clear removes every key under the cache prefix.
func (c *ResultCache) Clear(ctx context.Context) error {
	prefix := c.config.KeyPrefix
	if prefix == "" {
		prefix = "dsentinel:scrub:"
	}
	iter := c.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan cache keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	return nil
}

func (c *ResultCache) Close() error {
	return c.client.Close()
}

func maskRedisURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "redis://***"
	}
	if u.User != nil {
		u.User = url.User("***")
	}
	return u.String()
}
