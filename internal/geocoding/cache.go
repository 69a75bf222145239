package geocoding

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/jengzang/recap-backend-go/internal/models"
)

// Store is an optional shared second-level cache behind the in-memory one
// (SQLite or Redis). A miss returns ok=false and a nil error.
type Store interface {
	Get(ctx context.Context, key string) (models.GeocodeResult, bool, error)
	Set(ctx context.Context, key string, result models.GeocodeResult) error
}

// memoryCache is the process-local cache consulted before any other layer
type memoryCache interface {
	Get(key string) (models.GeocodeResult, bool)
	Add(key string, result models.GeocodeResult)
	Len() int
}

// mapCache never evicts; entries live as long as the process
type mapCache struct {
	mu      sync.RWMutex
	entries map[string]models.GeocodeResult
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string]models.GeocodeResult)}
}

func (c *mapCache) Get(key string) (models.GeocodeResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	res, ok := c.entries[key]
	return res, ok
}

func (c *mapCache) Add(key string, result models.GeocodeResult) {
	c.mu.Lock()
	c.entries[key] = result
	c.mu.Unlock()
}

func (c *mapCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// lruCache bounds memory for long-running processes
type lruCache struct {
	cache *lru.Cache[string, models.GeocodeResult]
}

func newLRUCache(size int) (*lruCache, error) {
	c, err := lru.New[string, models.GeocodeResult](size)
	if err != nil {
		return nil, err
	}
	return &lruCache{cache: c}, nil
}

func (c *lruCache) Get(key string) (models.GeocodeResult, bool) {
	return c.cache.Get(key)
}

func (c *lruCache) Add(key string, result models.GeocodeResult) {
	c.cache.Add(key, result)
}

func (c *lruCache) Len() int {
	return c.cache.Len()
}
