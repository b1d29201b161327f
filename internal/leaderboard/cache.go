package leaderboard

import (
	"encoding/json"
	"time"

	"github.com/ZanzyTHEbar/lifescore-engine/internal/cache"
)

// Cache stores serialized leaderboard responses keyed by query shape.
type Cache struct {
	inner *cache.Cache
}

// NewCache creates a leaderboard cache with the given TTL.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{inner: cache.NewCache(ttl)}
}

// GetResponse retrieves a cached response, if present and fresh.
func (c *Cache) GetResponse(key string) (*Response, bool) {
	data, found := c.inner.Get(key)
	if !found {
		return nil, false
	}
	var response Response
	if err := json.Unmarshal(data, &response); err != nil {
		return nil, false
	}
	return &response, true
}

// SetResponse caches a response.
func (c *Cache) SetResponse(key string, response *Response) {
	data, err := json.Marshal(response)
	if err != nil {
		return
	}
	c.inner.Set(key, data)
}

// InvalidateAll drops every cached response.
func (c *Cache) InvalidateAll() {
	c.inner.InvalidateAll()
}
