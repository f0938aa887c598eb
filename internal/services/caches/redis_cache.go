package caches

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"itinerary-service/internal/pipeline"
	"itinerary-service/internal/storage"
)

// RedisGeocodeCache shares the rounded-coordinate cache across instances.
// Failures degrade to cache misses; Redis being down never fails enrichment.
type RedisGeocodeCache struct {
	client *storage.RedisClient
}

// NewRedisGeocodeCache wraps an established Redis connection.
func NewRedisGeocodeCache(client *storage.RedisClient) *RedisGeocodeCache {
	return &RedisGeocodeCache{client: client}
}

const geocodeKeyPrefix = "geocode:"

func (c *RedisGeocodeCache) Get(key string) (*pipeline.Address, bool) {
	data, err := c.client.GetBytes(context.Background(), geocodeKeyPrefix+key)
	if err != nil {
		return nil, false
	}
	var addr pipeline.Address
	if err := json.Unmarshal(data, &addr); err != nil {
		log.Printf("Redis geocode cache: dropping corrupt entry %s: %v", key, err)
		return nil, false
	}
	return &addr, true
}

func (c *RedisGeocodeCache) Set(key string, addr *pipeline.Address, ttl time.Duration) {
	data, err := json.Marshal(addr)
	if err != nil {
		return
	}
	if err := c.client.SetBytes(context.Background(), geocodeKeyPrefix+key, data, ttl); err != nil {
		log.Printf("Redis geocode cache: failed to store %s: %v", key, err)
	}
}
