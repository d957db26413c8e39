package cache

import (
	"context"
	"sync"
	"time"

	"github.com/mwhitford/zone-weather-service/internal/models"
)

// Cache defines the interface for zone index caching implementations.
// Get returns the cached zone list if present and not expired, Set stores it
// with a TTL.
type Cache interface {
	Get(ctx context.Context, key string) ([]models.Zone, bool, error)
	Set(ctx context.Context, key string, value []models.Zone, ttl time.Duration) error
}

// InMemoryCache implements Cache using a map with TTL-based expiration.
// Expired entries are removed on access. Safe for concurrent use.
type InMemoryCache struct {
	mu   sync.Mutex
	data map[string]cacheEntry
}

type cacheEntry struct {
	value     []models.Zone
	expiresAt time.Time
}

// NewInMemoryCache creates a new in-memory cache instance.
func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{
		data: make(map[string]cacheEntry),
	}
}

// Get returns the cached zone list for key if present and not expired.
// Returns (zones, true, nil) on hit, (nil, false, nil) on miss or expiration.
func (c *InMemoryCache) Get(ctx context.Context, key string) ([]models.Zone, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.data[key]
	if !ok {
		return nil, false, nil
	}
	if time.Now().After(entry.expiresAt) {
		delete(c.data, key)
		return nil, false, nil
	}
	return entry.value, true, nil
}

// Set stores the zone list with the specified TTL. The entry expires after
// TTL elapses and is removed on the next Get.
func (c *InMemoryCache) Set(ctx context.Context, key string, value []models.Zone, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[key] = cacheEntry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}
