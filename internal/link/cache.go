package link

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "ptf:link:"

// Cache is a best-effort read-through cache for public link resolution.
// Tokens are unique across messages, so entries are keyed by token
// alone. Failures are swallowed; the store stays authoritative.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a redis-backed link cache.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{client: client, ttl: ttl}
}

// Get returns the cached link for a token, if present.
func (c *Cache) Get(ctx context.Context, token string) (*Link, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, cacheKeyPrefix+token).Bytes()
	if err != nil {
		return nil, false
	}
	var entry Link
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, false
	}
	return &entry, true
}

// Set stores a link, capping the TTL at the link's remaining lifetime.
func (c *Cache) Set(ctx context.Context, entry *Link) {
	if c == nil || c.client == nil || entry == nil {
		return
	}
	ttl := c.ttl
	if entry.ExpiresAt != nil {
		if remaining := time.Until(*entry.ExpiresAt); remaining < ttl {
			ttl = remaining
		}
	}
	if ttl <= 0 {
		return
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return
	}
	c.client.Set(ctx, cacheKeyPrefix+entry.Token, raw, ttl)
}

// Invalidate drops the cached entry for a token.
func (c *Cache) Invalidate(ctx context.Context, token string) {
	if c == nil || c.client == nil {
		return
	}
	c.client.Del(ctx, cacheKeyPrefix+token)
}
