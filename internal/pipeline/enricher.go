package pipeline

import (
	"context"
	"log"
	"time"

	"itinerary-service/internal/metrics"
	"itinerary-service/internal/utils"
)

// Enricher attaches administrative names to resolved coordinates. Lookups go
// through a shared rounded-coordinate cache so near-identical points within a
// post cost one collaborator call. Enrichment is best-effort: the coordinates
// stay authoritative whether or not names arrive.
type Enricher struct {
	geocoder  Geocoder
	cache     GeocodeCache
	precision int
	ttl       time.Duration
	backoff   time.Duration
	metrics   *metrics.PipelineMetrics
}

// NewEnricher builds an enricher around the geocoding collaborator and cache.
func NewEnricher(geocoder Geocoder, cache GeocodeCache, precision int, ttl, backoff time.Duration, m *metrics.PipelineMetrics) *Enricher {
	return &Enricher{
		geocoder:  geocoder,
		cache:     cache,
		precision: precision,
		ttl:       ttl,
		backoff:   backoff,
		metrics:   m,
	}
}

// Enrich fills the location's Country/City/Region/Landmark in place. On
// collaborator failure the names stay null and the location remains resolved.
func (e *Enricher) Enrich(ctx context.Context, loc *ResolvedLocation) {
	if loc == nil || e.geocoder == nil {
		return
	}

	key := utils.CoordinateKey(loc.Latitude, loc.Longitude, e.precision)
	if e.cache != nil {
		if addr, ok := e.cache.Get(key); ok {
			e.metrics.GeocodeCacheHit()
			applyAddress(loc, addr)
			return
		}
	}
	e.metrics.GeocodeCacheMiss()

	addr, err := e.lookup(ctx, loc.Latitude, loc.Longitude)
	if err != nil {
		e.metrics.EnrichmentFailure()
		log.Printf("Photo %s: %v", loc.PhotoID, &EnrichmentFailedError{
			Latitude: loc.Latitude, Longitude: loc.Longitude, Cause: err,
		})
		return
	}

	if e.cache != nil {
		e.cache.Set(key, addr, e.ttl)
	}
	applyAddress(loc, addr)
}

// lookup calls the geocoder with one bounded retry. Permanent failure is
// non-fatal for the caller.
func (e *Enricher) lookup(ctx context.Context, lat, lng float64) (*Address, error) {
	addr, err := e.geocoder.ReverseGeocode(ctx, lat, lng)
	if err == nil {
		return addr, nil
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(e.backoff):
	}
	return e.geocoder.ReverseGeocode(ctx, lat, lng)
}

func applyAddress(loc *ResolvedLocation, addr *Address) {
	if addr == nil {
		return
	}
	loc.Country = addr.Country
	loc.City = addr.City
	loc.Region = addr.Region
	loc.Landmark = addr.Landmark
}
