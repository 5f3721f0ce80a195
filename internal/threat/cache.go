package threat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sand/wallet-risk-engine/backend/internal/entities"
)

// Cache is a keyed store with per-entry TTL.
type Cache interface {
	Get(ctx context.Context, key string) (*entities.ThreatHistory, bool, error)
	Set(ctx context.Context, key string, value *entities.ThreatHistory, ttl time.Duration) error
}

type memoryEntry struct {
	value     entities.ThreatHistory
	expiresAt time.Time
}

// MemoryCache keeps entries in process. Expired entries are never returned and
// are removed by EvictExpired.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryCache(now func() time.Time) *MemoryCache {
	if now == nil {
		now = time.Now
	}
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     now,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) (*entities.ThreatHistory, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || !c.now().Before(e.expiresAt) {
		return nil, false, nil
	}
	v := e.value
	return &v, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value *entities.ThreatHistory, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = memoryEntry{value: *value, expiresAt: c.now().Add(ttl)}
	return nil
}

// EvictExpired removes expired entries and returns how many were dropped.
func (c *MemoryCache) EvictExpired(_ context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	var n int64
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
			n++
		}
	}
	return n, nil
}

func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// RedisCache stores entries as JSON with a redis-side expiry.
type RedisCache struct {
	client *redis.Client
	prefix string
}

func NewRedisCache(client *redis.Client, prefix string) *RedisCache {
	return &RedisCache{client: client, prefix: prefix}
}

func (c *RedisCache) Get(ctx context.Context, key string) (*entities.ThreatHistory, bool, error) {
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read threat cache: %w", err)
	}

	var v entities.ThreatHistory
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, false, fmt.Errorf("failed to decode threat cache entry: %w", err)
	}
	return &v, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value *entities.ThreatHistory, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode threat cache entry: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write threat cache: %w", err)
	}
	return nil
}
