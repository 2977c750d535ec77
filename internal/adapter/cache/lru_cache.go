package cache

import (
	"context"
	"time"

	"dify-manga/internal/domain"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type lruItem struct {
	value     string
	expiresAt time.Time
}

// LRUCache is an in-process domain.Cache used when Redis is not configured.
// Entries older than maxAge are evicted by the LRU itself; shorter per-key
// expirations are enforced on read.
type LRUCache struct {
	items *expirable.LRU[string, lruItem]
	now   func() time.Time
}

// NewLRUCache creates a cache holding at most size keys. A maxAge of 0
// disables the cache-wide age limit.
func NewLRUCache(size int, maxAge time.Duration) *LRUCache {
	if size <= 0 {
		size = 1024
	}
	return &LRUCache{
		items: expirable.NewLRU[string, lruItem](size, nil, maxAge),
		now:   time.Now,
	}
}

func (c *LRUCache) Get(_ context.Context, key string) (string, error) {
	item, ok := c.items.Get(key)
	if !ok {
		return "", domain.ErrCacheMiss
	}
	if !item.expiresAt.IsZero() && !c.now().Before(item.expiresAt) {
		c.items.Remove(key)
		return "", domain.ErrCacheMiss
	}
	return item.value, nil
}

func (c *LRUCache) Set(_ context.Context, key string, value string, expiration time.Duration) error {
	item := lruItem{value: value}
	if expiration > 0 {
		item.expiresAt = c.now().Add(expiration)
	}
	c.items.Add(key, item)
	return nil
}

func (c *LRUCache) Delete(_ context.Context, key string) error {
	c.items.Remove(key)
	return nil
}

func (c *LRUCache) Ping(context.Context) error {
	return nil
}
