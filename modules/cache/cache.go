// Package cache keeps owner task lists in Redis so list reads skip the database.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores JSON values in Redis under a key prefix, each with the same TTL.
// It satisfies task.ListCache.
type Cache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration

	hits, misses, writes, evictions, failures atomic.Uint64
}

// Stats is a point-in-time view of cache traffic.
type Stats struct {
	Hits      uint64  `json:"hits"`
	Misses    uint64  `json:"misses"`
	Writes    uint64  `json:"writes"`
	Evictions uint64  `json:"evictions"`
	Failures  uint64  `json:"failures"`
	HitRate   float64 `json:"hit_rate"`
}

// New creates a Cache. Keys are stored as prefix+key.
func New(client *redis.Client, prefix string, ttl time.Duration) *Cache {
	return &Cache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// Get decodes the value at key into dest and reports whether it was found.
func (c *Cache) Get(ctx context.Context, key string, dest any) (bool, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		c.misses.Add(1)
		return false, nil
	case err != nil:
		return false, c.fail("get", key, err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		// a value we cannot decode is as good as absent; drop it
		_ = c.client.Del(ctx, c.prefix+key).Err()
		return false, c.fail("decode", key, err)
	}

	c.hits.Add(1)
	return true, nil
}

// Set stores value at key for the cache TTL.
func (c *Cache) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return c.fail("encode", key, err)
	}
	if err := c.client.Set(ctx, c.prefix+key, data, c.ttl).Err(); err != nil {
		return c.fail("set", key, err)
	}
	c.writes.Add(1)
	return nil
}

// Delete evicts key. Evicting a missing key is not an error.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		return c.fail("delete", key, err)
	}
	c.evictions.Add(1)
	return nil
}

// Stats returns the traffic counters.
func (c *Cache) Stats() Stats {
	s := Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Writes:    c.writes.Load(),
		Evictions: c.evictions.Load(),
		Failures:  c.failures.Load(),
	}
	if reads := s.Hits + s.Misses; reads > 0 {
		s.HitRate = float64(s.Hits) / float64(reads) * 100
	}
	return s
}

// Ping checks the Redis connection.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Cache) fail(op, key string, err error) error {
	c.failures.Add(1)
	return fmt.Errorf("cache %s %q: %w", op, key, err)
}
