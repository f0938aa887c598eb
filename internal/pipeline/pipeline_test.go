package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"itinerary-service/internal/config"
)

func testPipelineConfig() config.PipelineConfig {
	return config.PipelineConfig{
		ProximityMeters:     5000,
		ConflictMeters:      50000,
		RouteMergeMeters:    200,
		ExifAccuracyMeters:  100,
		CategorySupport:     0.10,
		CategoryHighConf:    0.9,
		ProviderTimeout:     time.Second,
		WorkerPoolSize:      4,
		GeocodeCacheTTL:     time.Hour,
		GeocodeRetryBackoff: time.Millisecond,
		GeocodePrecision:    3,
	}
}

func newTestPipeline(llm *fakeLocationModel, geo Geocoder) *Pipeline {
	cfg := testPipelineConfig()
	var model LocationModel
	if llm != nil {
		model = llm
	}
	collector := NewCollector(nil, model, cfg.ExifAccuracyMeters, cfg.ProviderTimeout, nil)
	enricher := NewEnricher(geo, newMapCache(), cfg.GeocodePrecision, cfg.GeocodeCacheTTL, cfg.GeocodeRetryBackoff, nil)
	router := NewRouteRecommender(nil, cfg.RouteMergeMeters, cfg.ProviderTimeout, nil)
	return New(collector, enricher, router, cfg, nil)
}

func exifInput(postID uuid.UUID) Input {
	return Input{
		PostID: postID,
		Photos: []PhotoInput{
			{
				ID: uuid.New(), UploadIndex: 0,
				CapturedAtRaw: "2024-05-12T09:00:00Z",
				EXIF:          &ExifGPS{Latitude: 48.8584, Longitude: 2.2945},
			},
			{
				ID: uuid.New(), UploadIndex: 1,
				CapturedAtRaw: "2024-05-12T23:30:00Z",
				EXIF:          &ExifGPS{Latitude: 48.8606, Longitude: 2.3376},
			},
			{
				ID: uuid.New(), UploadIndex: 2,
				CapturedAtRaw: "2024-05-13T08:00:00Z",
				EXIF:          &ExifGPS{Latitude: 48.8530, Longitude: 2.3499},
			},
		},
	}
}

func TestPipelineStructuralValidation(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(nil, nil)
	ctx := context.Background()

	_, err := p.Run(ctx, Input{PostID: uuid.New()})
	assert.ErrorIs(t, err, ErrNoPhotos)

	_, err = p.Run(ctx, Input{Photos: []PhotoInput{{ID: uuid.New()}}})
	assert.ErrorIs(t, err, ErrMissingPostID)

	_, err = p.Run(ctx, Input{PostID: uuid.New(), Photos: []PhotoInput{{}}})
	assert.ErrorIs(t, err, ErrMissingPhotoID)
}

func TestPipelineFullRun(t *testing.T) {
	t.Parallel()

	geo := &fakeGeocoder{addr: parisAddress()}
	p := newTestPipeline(nil, geo)
	in := exifInput(uuid.New())

	result, err := p.Run(context.Background(), in)

	require.NoError(t, err)
	require.Len(t, result.Resolutions, 3)
	for i, res := range result.Resolutions {
		require.NotNil(t, res.Location, "photo %d should resolve", i)
		assert.Equal(t, in.Photos[i].ID, res.Location.PhotoID)
		require.NotNil(t, res.Location.City)
		assert.Equal(t, "Paris", *res.Location.City)
	}

	require.Len(t, result.Timeline, 3)
	assert.Equal(t, 1, result.Timeline[0].DayIndex)
	assert.Equal(t, 2, result.Timeline[2].DayIndex)

	assert.Contains(t, categoryNames(result.Categories, CategoryCity), "Paris")
	assert.Equal(t, DefaultRouteName, result.Route.Name)
	assert.Len(t, result.Route.Waypoints, 3)
}

func TestPipelineRerunIsIdempotent(t *testing.T) {
	t.Parallel()

	geo := &fakeGeocoder{addr: parisAddress()}
	p := newTestPipeline(nil, geo)
	in := exifInput(uuid.New())

	first, err := p.Run(context.Background(), in)
	require.NoError(t, err)
	second, err := p.Run(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestPipelineSingleFlight(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	llm := &fakeLocationModel{
		imageGuess: &LocationGuess{Latitude: 48.8584, Longitude: 2.2945, Confidence: 0.7, Model: "test"},
		block:      block,
	}
	p := newTestPipeline(llm, nil)

	in := Input{
		PostID: uuid.New(),
		Photos: []PhotoInput{{
			ID: uuid.New(), UploadIndex: 0,
			CapturedAtRaw: "2024-05-12T09:00:00Z",
			ImageURL:      "https://storage.local/p.jpg",
		}},
	}

	var wg sync.WaitGroup
	results := make([]*Result, 2)
	errs := make([]error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], errs[0] = p.Run(context.Background(), in)
	}()

	// Wait until the first run is inside the collaborator call, then attach
	// a second identical request.
	require.Eventually(t, func() bool {
		return llm.imageCalls.Load() >= 1
	}, time.Second, time.Millisecond)

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[1], errs[1] = p.Run(context.Background(), in)
	}()

	time.Sleep(20 * time.Millisecond)
	close(block)
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, results[0], results[1])
	assert.Equal(t, int64(1), llm.imageCalls.Load(), "joined request must not re-drive the collaborator")
}

func TestPipelineCancellationDiscardsPartials(t *testing.T) {
	t.Parallel()

	block := make(chan struct{}) // never closed
	llm := &fakeLocationModel{
		imageGuess: &LocationGuess{Latitude: 1, Longitude: 1, Confidence: 0.7},
		block:      block,
	}
	p := newTestPipeline(llm, nil)

	in := Input{
		PostID: uuid.New(),
		Photos: []PhotoInput{{
			ID: uuid.New(), UploadIndex: 0,
			ImageURL: "https://storage.local/p.jpg",
		}},
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		for llm.imageCalls.Load() < 1 {
			time.Sleep(time.Millisecond)
		}
		cancel()
	}()

	result, err := p.Run(ctx, in)

	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, result)
}

func TestPipelineDifferentEvidenceIsNewFlight(t *testing.T) {
	t.Parallel()

	in := exifInput(uuid.New())
	keyA := flightKey(in)

	in.Photos[0].PriorEvidence = []Evidence{
		{Source: SourceManual, Latitude: 10, Longitude: 10, Confidence: 1},
	}
	keyB := flightKey(in)

	assert.NotEqual(t, keyA, keyB)
}
