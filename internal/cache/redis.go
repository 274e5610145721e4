package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/nadimakk/go-chat-service/internal/domain"
)

const defaultProfileTTL = 10 * time.Minute

// RedisCache is a Redis-backed ProfileCache storing JSON payloads with a
// per-entry TTL.
type RedisCache struct {
	client *goredis.Client
	ttl    time.Duration
}

// NewRedisCache connects to a Redis-compatible URL and verifies
// connectivity. A non-positive ttl falls back to the default.
func NewRedisCache(ctx context.Context, redisURL string, ttl time.Duration) (*RedisCache, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("profile cache: invalid URL: %w", err)
	}
	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("profile cache: ping failed: %w", err)
	}
	if ttl <= 0 {
		ttl = defaultProfileTTL
	}
	return &RedisCache{client: client, ttl: ttl}, nil
}

// Close releases the underlying client.
func (c *RedisCache) Close() error { return c.client.Close() }

func profileKey(username string) string { return "profile:" + username }

func (c *RedisCache) Get(ctx context.Context, username string) (*domain.Profile, bool) {
	raw, err := c.client.Get(ctx, profileKey(username)).Bytes()
	if err != nil {
		return nil, false
	}
	var p domain.Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		// Unreadable entry; drop it so the next read repopulates.
		c.client.Del(ctx, profileKey(username))
		return nil, false
	}
	return &p, true
}

func (c *RedisCache) Set(ctx context.Context, p domain.Profile) {
	raw, err := json.Marshal(p)
	if err != nil {
		return
	}
	c.client.Set(ctx, profileKey(p.Username), raw, c.ttl)
}

func (c *RedisCache) Invalidate(ctx context.Context, username string) {
	c.client.Del(ctx, profileKey(username))
}
