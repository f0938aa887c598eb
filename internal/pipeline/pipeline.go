package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"itinerary-service/internal/config"
	"itinerary-service/internal/metrics"
)

// Input is one post's worth of photos ready for resolution.
type Input struct {
	PostID uuid.UUID
	Photos []PhotoInput
}

// Pipeline runs the full per-post flow: evidence collection under a bounded
// worker pool, resolution, enrichment, timeline, categories and route. Runs
// are single-flight per post: concurrent identical requests attach to the
// in-flight execution instead of re-driving external collaborators.
type Pipeline struct {
	collector *Collector
	resolver  *Resolver
	enricher  *Enricher
	router    *RouteRecommender
	classify  *Classifier

	workers int64
	metrics *metrics.PipelineMetrics

	mu      sync.Mutex
	flights map[string]*flight
}

type flight struct {
	done   chan struct{}
	result *Result
	err    error
}

// New assembles a pipeline from its components and configuration.
func New(collector *Collector, enricher *Enricher, router *RouteRecommender, cfg config.PipelineConfig, m *metrics.PipelineMetrics) *Pipeline {
	workers := cfg.WorkerPoolSize
	if workers < 1 {
		workers = 1
	}
	return &Pipeline{
		collector: collector,
		resolver:  NewResolver(cfg.ProximityMeters, cfg.ConflictMeters),
		enricher:  enricher,
		router:    router,
		classify:  NewClassifier(cfg.CategorySupport, cfg.CategoryHighConf),
		workers:   int64(workers),
		metrics:   m,
		flights:   map[string]*flight{},
	}
}

// Run executes the pipeline for one post, or attaches to an identical run
// already in flight. The returned result is fully computed; nothing partial
// ever escapes a cancelled run.
func (p *Pipeline) Run(ctx context.Context, in Input) (*Result, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	key := flightKey(in)

	p.mu.Lock()
	if f, ok := p.flights[key]; ok {
		p.mu.Unlock()
		p.metrics.SingleFlightJoin()
		select {
		case <-f.done:
			return f.result, f.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f := &flight{done: make(chan struct{})}
	p.flights[key] = f
	p.mu.Unlock()

	started := time.Now()
	f.result, f.err = p.execute(ctx, in)
	status := "ok"
	if f.err != nil {
		status = "error"
	}
	p.metrics.PipelineRun(status, time.Since(started))

	p.mu.Lock()
	delete(p.flights, key)
	p.mu.Unlock()
	close(f.done)

	return f.result, f.err
}

// execute is the actual per-post flow, fanned out photo by photo.
func (p *Pipeline) execute(ctx context.Context, in Input) (*Result, error) {
	n := len(in.Photos)
	collected := make([]CollectedPhoto, n)
	resolutions := make([]Resolution, n)

	sem := semaphore.NewWeighted(p.workers)
	var wg sync.WaitGroup

	for i := range in.Photos {
		if err := sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return nil, err
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer sem.Release(1)
			photo := in.Photos[i]

			collected[i] = p.collector.Collect(ctx, photo)

			// The resolver only ever sees the photo's complete evidence set:
			// prior history plus everything this run collected.
			evidence := append(append([]Evidence{}, photo.PriorEvidence...), collected[i].NewEvidence...)
			resolutions[i] = p.resolver.Resolve(photo.ID, evidence)
			if hasConflictRejection(resolutions[i]) {
				p.metrics.ResolutionConflict()
			}

			p.enricher.Enrich(ctx, resolutions[i].Location)
		}(i)
	}
	wg.Wait()

	// Cancellation discards everything; partial results are never returned.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	timeline := BuildTimeline(in.Photos)

	themes := make([][]ThemeLabel, n)
	for i := range collected {
		themes[i] = collected[i].Themes
	}
	categories := p.classify.Classify(resolutions, themes)

	route := p.router.Recommend(ctx, timeline, resolutions, categories)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log.Printf("Pipeline finished for post %s: %d photos, %d resolved, %d categories, %d waypoints",
		in.PostID, n, countResolved(resolutions), len(categories), len(route.Waypoints))

	return &Result{
		PostID:      in.PostID,
		Collected:   collected,
		Resolutions: resolutions,
		Timeline:    timeline,
		Categories:  categories,
		Route:       route,
	}, nil
}

// validateInput rejects the only fatal conditions before the pipeline starts.
func validateInput(in Input) error {
	if in.PostID == uuid.Nil {
		return ErrMissingPostID
	}
	if len(in.Photos) == 0 {
		return ErrNoPhotos
	}
	for _, p := range in.Photos {
		if p.ID == uuid.Nil {
			return ErrMissingPhotoID
		}
	}
	return nil
}

// flightKey identifies a run by post plus a content hash of its inputs, so a
// re-request with changed evidence is a new flight rather than a join.
func flightKey(in Input) string {
	h := sha256.New()
	fmt.Fprintf(h, "post=%s\n", in.PostID)

	lines := make([]string, 0, len(in.Photos))
	for _, p := range in.Photos {
		var b strings.Builder
		fmt.Fprintf(&b, "photo=%s idx=%d ts=%q", p.ID, p.UploadIndex, p.CapturedAtRaw)
		if p.UTCOffsetMinutes != nil {
			fmt.Fprintf(&b, " off=%d", *p.UTCOffsetMinutes)
		}
		if p.EXIF != nil {
			fmt.Fprintf(&b, " exif=%.6f,%.6f", p.EXIF.Latitude, p.EXIF.Longitude)
		}
		for _, ev := range p.PriorEvidence {
			fmt.Fprintf(&b, " ev=%s,%.6f,%.6f,%.4f", ev.Source, ev.Latitude, ev.Longitude, ev.Confidence)
		}
		lines = append(lines, b.String())
	}
	sort.Strings(lines)
	for _, l := range lines {
		fmt.Fprintln(h, l)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func hasConflictRejection(res Resolution) bool {
	for _, r := range res.Rejected {
		if r.Reason == RejectLostConflict {
			return true
		}
	}
	return false
}

func countResolved(resolutions []Resolution) int {
	n := 0
	for _, r := range resolutions {
		if r.Location != nil {
			n++
		}
	}
	return n
}

