package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/felleslosninger/idporten-user-service-sub000/internal/core/domain"
	"github.com/felleslosninger/idporten-user-service-sub000/internal/core/ports/driven"
	"github.com/felleslosninger/idporten-user-service-sub000/internal/metrics"
)

// Verify interface compliance
var _ driven.UserCache = (*UserCache)(nil)

const (
	// Key prefixes for Redis
	cachePIDPrefix = "iduser:pid:"
	cacheIDPrefix  = "iduser:id:"
)

// UserCache implements driven.UserCache using Redis. The primary entry maps a
// person identifier to the JSON-serialized record; the secondary entry maps a
// record id back to its person identifier.
type UserCache struct {
	client  *redis.Client
	ttl     time.Duration
	metrics *metrics.Metrics
}

// NewUserCache creates a new Redis-backed UserCache. A zero ttl means entries
// never expire and are evicted only by the event listener.
func NewUserCache(client *redis.Client, ttl time.Duration, m *metrics.Metrics) *UserCache {
	return &UserCache{client: client, ttl: ttl, metrics: m}
}

// GetByPersonIdentifier retrieves a cached record by person identifier
func (c *UserCache) GetByPersonIdentifier(ctx context.Context, pid string) (*domain.User, error) {
	data, err := c.client.Get(ctx, cachePIDPrefix+pid).Bytes()
	if err == redis.Nil {
		c.metrics.IncCacheMiss()
		return nil, domain.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached user: %w", err)
	}

	var user domain.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached user: %w", err)
	}

	c.metrics.IncCacheHit()
	return &user, nil
}

// GetIdentifier resolves a record id to its person identifier
func (c *UserCache) GetIdentifier(ctx context.Context, id string) (string, error) {
	pid, err := c.client.Get(ctx, cacheIDPrefix+id).Result()
	if err == redis.Nil {
		c.metrics.IncCacheMiss()
		return "", domain.ErrRecordNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve cached identifier: %w", err)
	}
	return pid, nil
}

// Set stores the primary entry and the secondary index entry atomically
func (c *UserCache) Set(ctx context.Context, user *domain.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}

	pipe := c.client.Pipeline()
	pipe.Set(ctx, cachePIDPrefix+user.PersonIdentifier, data, c.ttl)
	pipe.Set(ctx, cacheIDPrefix+user.ID, user.PersonIdentifier, c.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache user: %w", err)
	}
	return nil
}

// Remove drops the primary entry for pid and the secondary entry for id.
// Either argument may be empty.
func (c *UserCache) Remove(ctx context.Context, pid, id string) error {
	var keys []string
	if pid != "" {
		keys = append(keys, cachePIDPrefix+pid)
	}
	if id != "" {
		keys = append(keys, cacheIDPrefix+id)
	}
	if len(keys) == 0 {
		return nil
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to evict cached user: %w", err)
	}
	return nil
}

// Ping reports whether the Redis backend is reachable
func (c *UserCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
