package caches

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"itinerary-service/internal/pipeline"
)

// MemoryGeocodeCache is the in-process rounded-coordinate cache. go-cache is
// already safe for concurrent use, so no extra locking is needed around the
// read-modify-write in the enricher.
type MemoryGeocodeCache struct {
	store *gocache.Cache
}

// NewMemoryGeocodeCache creates a memory cache with the given default TTL.
func NewMemoryGeocodeCache(defaultTTL time.Duration) *MemoryGeocodeCache {
	return &MemoryGeocodeCache{
		store: gocache.New(defaultTTL, 2*defaultTTL),
	}
}

func (c *MemoryGeocodeCache) Get(key string) (*pipeline.Address, bool) {
	v, ok := c.store.Get(key)
	if !ok {
		return nil, false
	}
	addr, ok := v.(*pipeline.Address)
	return addr, ok
}

func (c *MemoryGeocodeCache) Set(key string, addr *pipeline.Address, ttl time.Duration) {
	c.store.Set(key, addr, ttl)
}
