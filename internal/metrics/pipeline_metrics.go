package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics collects Prometheus metrics for the resolution pipeline.
// A nil receiver is valid and drops every observation, which keeps the
// pipeline testable without a registry.
type PipelineMetrics struct {
	evidenceCollected *prometheus.CounterVec
	providerFailures  *prometheus.CounterVec
	conflicts         prometheus.Counter
	geocodeCacheHits  prometheus.Counter
	geocodeCacheMiss  prometheus.Counter
	enrichFailures    prometheus.Counter
	pipelineRuns      *prometheus.CounterVec
	pipelineDuration  prometheus.Histogram
	singleFlightJoins prometheus.Counter
}

// NewPipelineMetrics registers the pipeline collectors on the given registerer.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	m := &PipelineMetrics{
		evidenceCollected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_evidence_collected_total",
			Help: "Location evidence records collected, by source",
		}, []string{"source"}),
		providerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_provider_failures_total",
			Help: "External collaborator failures or timeouts, by source",
		}, []string{"source"}),
		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_resolution_conflicts_total",
			Help: "Evidence sets resolved by conflict policy",
		}),
		geocodeCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_geocode_cache_hits_total",
			Help: "Reverse-geocode lookups served from the rounded-coordinate cache",
		}),
		geocodeCacheMiss: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_geocode_cache_misses_total",
			Help: "Reverse-geocode lookups that went to the collaborator",
		}),
		enrichFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_enrichment_failures_total",
			Help: "Reverse-geocode calls that failed after the bounded retry",
		}),
		pipelineRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_runs_total",
			Help: "Pipeline executions per post, by outcome",
		}, []string{"status"}),
		pipelineDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pipeline_duration_seconds",
			Help:    "Wall time of full per-post pipeline runs",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		singleFlightJoins: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_single_flight_joins_total",
			Help: "Callers that attached to an already in-flight run",
		}),
	}

	reg.MustRegister(
		m.evidenceCollected, m.providerFailures, m.conflicts,
		m.geocodeCacheHits, m.geocodeCacheMiss, m.enrichFailures,
		m.pipelineRuns, m.pipelineDuration, m.singleFlightJoins,
	)
	return m
}

func (m *PipelineMetrics) EvidenceCollected(source string) {
	if m == nil {
		return
	}
	m.evidenceCollected.WithLabelValues(source).Inc()
}

func (m *PipelineMetrics) ProviderFailure(source string) {
	if m == nil {
		return
	}
	m.providerFailures.WithLabelValues(source).Inc()
}

func (m *PipelineMetrics) ResolutionConflict() {
	if m == nil {
		return
	}
	m.conflicts.Inc()
}

func (m *PipelineMetrics) GeocodeCacheHit() {
	if m == nil {
		return
	}
	m.geocodeCacheHits.Inc()
}

func (m *PipelineMetrics) GeocodeCacheMiss() {
	if m == nil {
		return
	}
	m.geocodeCacheMiss.Inc()
}

func (m *PipelineMetrics) EnrichmentFailure() {
	if m == nil {
		return
	}
	m.enrichFailures.Inc()
}

func (m *PipelineMetrics) PipelineRun(status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.pipelineRuns.WithLabelValues(status).Inc()
	m.pipelineDuration.Observe(elapsed.Seconds())
}

func (m *PipelineMetrics) SingleFlightJoin() {
	if m == nil {
		return
	}
	m.singleFlightJoins.Inc()
}
