package pipeline

import (
	"context"
	"log"
	"time"

	"itinerary-service/internal/metrics"
	"itinerary-service/internal/utils"
)

// DefaultRouteName names the chronological fallback route.
const DefaultRouteName = "Chronological route"

// RouteRecommender builds an ordered waypoint sequence from the timeline and
// resolved locations, optionally reordered by the route model. Model output
// is advisory: suggested waypoints must match known resolved locations, and
// anything unmatched is dropped rather than inserted.
type RouteRecommender struct {
	model           RouteModel // optional
	mergeMeters     float64
	providerTimeout time.Duration
	metrics         *metrics.PipelineMetrics
}

// NewRouteRecommender builds a recommender. model may be nil, which disables
// narrative reordering entirely.
func NewRouteRecommender(model RouteModel, mergeMeters float64, providerTimeout time.Duration, m *metrics.PipelineMetrics) *RouteRecommender {
	return &RouteRecommender{
		model:           model,
		mergeMeters:     mergeMeters,
		providerTimeout: providerTimeout,
		metrics:         m,
	}
}

// Recommend produces the post's route. The chronological ordering is always
// computed; a validated model suggestion replaces it only when at least two
// waypoints survive validation.
func (r *RouteRecommender) Recommend(ctx context.Context, timeline []TimelineEntry, resolutions []Resolution, categories []Category) Route {
	resolved := resolvedByPhoto(resolutions)
	base := r.chronologicalRoute(timeline, resolved)

	if r.model == nil {
		return base
	}

	modelCtx, cancel := context.WithTimeout(ctx, r.providerTimeout)
	defer cancel()

	suggestion, err := r.model.SuggestRoute(modelCtx, categories, timeline)
	if err != nil {
		log.Printf("Route model unavailable, keeping chronological order: %v", err)
		r.metrics.ProviderFailure("route_model")
		return base
	}

	validated, err := r.validateSuggestion(suggestion, base)
	if err != nil {
		log.Printf("Route suggestion rejected (%v), keeping chronological order", err)
		return base
	}
	return validated
}

// chronologicalRoute is the base ordering: day index ascending, then sequence
// index ascending, with consecutive near-identical stops collapsed.
func (r *RouteRecommender) chronologicalRoute(timeline []TimelineEntry, resolved map[string]*ResolvedLocation) Route {
	var waypoints []Waypoint
	for _, entry := range timeline {
		loc, ok := resolved[entry.PhotoID.String()]
		if !ok {
			continue
		}
		wp := Waypoint{
			PhotoID:   loc.PhotoID,
			Latitude:  loc.Latitude,
			Longitude: loc.Longitude,
			Label:     waypointLabel(loc),
		}
		if n := len(waypoints); n > 0 {
			last := waypoints[n-1]
			d := utils.HaversineDistance(last.Latitude, last.Longitude, wp.Latitude, wp.Longitude)
			if d <= r.mergeMeters {
				continue // same stop, keep the earlier photo as representative
			}
		}
		waypoints = append(waypoints, wp)
	}
	return Route{Name: DefaultRouteName, Waypoints: waypoints}
}

// validateSuggestion maps every suggested coordinate onto a known resolved
// location. Suggestions may reorder stops for narrative coherence but can
// never invent new ones: an unmatched waypoint is discarded, and fewer than
// two survivors rejects the whole suggestion.
func (r *RouteRecommender) validateSuggestion(suggestion *RouteSuggestion, base Route) (Route, error) {
	if suggestion == nil {
		return base, ErrInsufficientWaypoints
	}

	used := map[string]bool{}
	var waypoints []Waypoint
	for _, sw := range suggestion.Waypoints {
		if !utils.ValidCoordinate(sw.Latitude, sw.Longitude) {
			log.Printf("Dropping suggested waypoint %q: %v", sw.Label, ErrInvalidCoordinate)
			continue
		}
		match := r.nearestResolved(sw, base.Waypoints, used)
		if match == nil {
			log.Printf("Dropping suggested waypoint %q at (%.4f, %.4f): no resolved location within %.0f m",
				sw.Label, sw.Latitude, sw.Longitude, r.mergeMeters)
			continue
		}
		used[match.PhotoID.String()] = true
		wp := *match
		if sw.Label != "" {
			wp.Label = sw.Label
		}
		waypoints = append(waypoints, wp)
	}

	if len(waypoints) < 2 {
		return base, ErrInsufficientWaypoints
	}

	name := suggestion.RouteName
	if name == "" {
		name = DefaultRouteName
	}
	return Route{Name: name, Waypoints: waypoints}, nil
}

// nearestResolved finds the closest unused base waypoint within the merge
// threshold of the suggested coordinate.
func (r *RouteRecommender) nearestResolved(sw SuggestedWaypoint, base []Waypoint, used map[string]bool) *Waypoint {
	var best *Waypoint
	bestDist := r.mergeMeters
	for i := range base {
		if used[base[i].PhotoID.String()] {
			continue
		}
		d := utils.HaversineDistance(sw.Latitude, sw.Longitude, base[i].Latitude, base[i].Longitude)
		if d <= bestDist {
			best = &base[i]
			bestDist = d
		}
	}
	return best
}

func resolvedByPhoto(resolutions []Resolution) map[string]*ResolvedLocation {
	out := make(map[string]*ResolvedLocation, len(resolutions))
	for i := range resolutions {
		if loc := resolutions[i].Location; loc != nil {
			out[loc.PhotoID.String()] = loc
		}
	}
	return out
}

func waypointLabel(loc *ResolvedLocation) string {
	switch {
	case loc.Landmark != nil && *loc.Landmark != "":
		return *loc.Landmark
	case loc.City != nil && *loc.City != "":
		return *loc.City
	case loc.Country != nil && *loc.Country != "":
		return *loc.Country
	default:
		return ""
	}
}
