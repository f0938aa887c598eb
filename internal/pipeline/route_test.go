package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRouteModel returns a canned suggestion or error.
type fakeRouteModel struct {
	suggestion *RouteSuggestion
	err        error
	calls      int
}

func (f *fakeRouteModel) SuggestRoute(_ context.Context, _ []Category, _ []TimelineEntry) (*RouteSuggestion, error) {
	f.calls++
	return f.suggestion, f.err
}

func routeFixture() ([]TimelineEntry, []Resolution, []uuid.UUID) {
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	timeline := []TimelineEntry{
		{PhotoID: ids[0], DayIndex: 1, SequenceIndex: 0},
		{PhotoID: ids[1], DayIndex: 1, SequenceIndex: 1},
		{PhotoID: ids[2], DayIndex: 2, SequenceIndex: 2},
	}
	resolutions := []Resolution{
		{Location: &ResolvedLocation{PhotoID: ids[0], Latitude: 48.8584, Longitude: 2.2945, Source: SourceEXIF}},
		{Location: &ResolvedLocation{PhotoID: ids[1], Latitude: 48.8606, Longitude: 2.3376, Source: SourceEXIF}},
		{Location: &ResolvedLocation{PhotoID: ids[2], Latitude: 48.8530, Longitude: 2.3499, Source: SourceEXIF}},
	}
	return timeline, resolutions, ids
}

func TestChronologicalRouteWithoutModel(t *testing.T) {
	t.Parallel()

	timeline, resolutions, ids := routeFixture()
	r := NewRouteRecommender(nil, 200, time.Second, nil)

	route := r.Recommend(context.Background(), timeline, resolutions, nil)

	assert.Equal(t, DefaultRouteName, route.Name)
	require.Len(t, route.Waypoints, 3)
	for i, wp := range route.Waypoints {
		assert.Equal(t, ids[i], wp.PhotoID)
	}
}

func TestChronologicalRouteMergesNearbyStops(t *testing.T) {
	t.Parallel()

	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	timeline := []TimelineEntry{
		{PhotoID: ids[0], DayIndex: 1, SequenceIndex: 0},
		{PhotoID: ids[1], DayIndex: 1, SequenceIndex: 1},
		{PhotoID: ids[2], DayIndex: 1, SequenceIndex: 2},
	}
	// Second photo is ~50 m from the first; third is several km away.
	resolutions := []Resolution{
		{Location: &ResolvedLocation{PhotoID: ids[0], Latitude: 48.85840, Longitude: 2.29450, Source: SourceEXIF}},
		{Location: &ResolvedLocation{PhotoID: ids[1], Latitude: 48.85880, Longitude: 2.29460, Source: SourceEXIF}},
		{Location: &ResolvedLocation{PhotoID: ids[2], Latitude: 48.85300, Longitude: 2.34990, Source: SourceEXIF}},
	}

	r := NewRouteRecommender(nil, 200, time.Second, nil)
	route := r.Recommend(context.Background(), timeline, resolutions, nil)

	require.Len(t, route.Waypoints, 2)
	assert.Equal(t, ids[0], route.Waypoints[0].PhotoID, "earlier photo represents the merged stop")
	assert.Equal(t, ids[2], route.Waypoints[1].PhotoID)
}

func TestRouteSkipsUnresolvedPhotos(t *testing.T) {
	t.Parallel()

	timeline, resolutions, ids := routeFixture()
	resolutions[1] = Resolution{} // unresolved

	r := NewRouteRecommender(nil, 200, time.Second, nil)
	route := r.Recommend(context.Background(), timeline, resolutions, nil)

	require.Len(t, route.Waypoints, 2)
	assert.Equal(t, ids[0], route.Waypoints[0].PhotoID)
	assert.Equal(t, ids[2], route.Waypoints[1].PhotoID)
}

func TestModelSuggestionReorders(t *testing.T) {
	t.Parallel()

	timeline, resolutions, ids := routeFixture()
	model := &fakeRouteModel{suggestion: &RouteSuggestion{
		RouteName: "Left bank stroll",
		Waypoints: []SuggestedWaypoint{
			{Latitude: 48.8530, Longitude: 2.3499, Label: "Notre-Dame"},
			{Latitude: 48.8584, Longitude: 2.2945, Label: "Eiffel Tower"},
		},
	}}

	r := NewRouteRecommender(model, 200, time.Second, nil)
	route := r.Recommend(context.Background(), timeline, resolutions, nil)

	assert.Equal(t, 1, model.calls)
	assert.Equal(t, "Left bank stroll", route.Name)
	require.Len(t, route.Waypoints, 2)
	assert.Equal(t, ids[2], route.Waypoints[0].PhotoID)
	assert.Equal(t, "Notre-Dame", route.Waypoints[0].Label)
	assert.Equal(t, ids[0], route.Waypoints[1].PhotoID)
}

func TestModelHallucinatedWaypointsAreDropped(t *testing.T) {
	t.Parallel()

	timeline, resolutions, ids := routeFixture()
	// One matching stop plus one invented coordinate nowhere near a
	// resolved location: fewer than two survive, so the base route stands.
	model := &fakeRouteModel{suggestion: &RouteSuggestion{
		RouteName: "Imaginary tour",
		Waypoints: []SuggestedWaypoint{
			{Latitude: 48.8584, Longitude: 2.2945, Label: "Eiffel Tower"},
			{Latitude: 41.9028, Longitude: 12.4964, Label: "Colosseum"},
		},
	}}

	r := NewRouteRecommender(model, 200, time.Second, nil)
	route := r.Recommend(context.Background(), timeline, resolutions, nil)

	assert.Equal(t, DefaultRouteName, route.Name)
	require.Len(t, route.Waypoints, 3)
	assert.Equal(t, ids[0], route.Waypoints[0].PhotoID)
}

func TestModelFailureFallsBackToChronological(t *testing.T) {
	t.Parallel()

	timeline, resolutions, _ := routeFixture()
	model := &fakeRouteModel{err: errors.New("model unavailable")}

	r := NewRouteRecommender(model, 200, time.Second, nil)
	route := r.Recommend(context.Background(), timeline, resolutions, nil)

	assert.Equal(t, DefaultRouteName, route.Name)
	assert.Len(t, route.Waypoints, 3)
}

func TestModelInvalidCoordinatesAreDropped(t *testing.T) {
	t.Parallel()

	timeline, resolutions, _ := routeFixture()
	model := &fakeRouteModel{suggestion: &RouteSuggestion{
		Waypoints: []SuggestedWaypoint{
			{Latitude: 91, Longitude: 200, Label: "nowhere"},
		},
	}}

	r := NewRouteRecommender(model, 200, time.Second, nil)
	route := r.Recommend(context.Background(), timeline, resolutions, nil)

	assert.Equal(t, DefaultRouteName, route.Name)
	assert.Len(t, route.Waypoints, 3)
}
