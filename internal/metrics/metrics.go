// Package metrics holds the Prometheus instrumentation of the detection pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Pipeline
	AnalysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "desynth_analyses_total",
			Help: "Completed analyses by verdict",
		},
		[]string{"verdict"},
	)

	AnalysisFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "desynth_analysis_failures_total",
			Help: "Analyses that ended without a result, by reason",
		},
		[]string{"reason"}, // "validation", "canceled", "internal"
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "desynth_stage_duration_seconds",
			Help:    "Duration of pipeline stages in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"}, // "standardize", a module name, "fusion"
	)

	// ML ensemble
	ModelCallFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "desynth_model_call_failures_total",
			Help: "Classifier calls that failed and were dropped from the ensemble",
		},
		[]string{"model"},
	)

	// Result cache
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "desynth_cache_hits_total",
			Help: "Analyses served from the result cache",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "desynth_cache_misses_total",
			Help: "Analyses that were not in the result cache",
		},
	)
)

// RecordStage observes how long a stage took since start
func RecordStage(stage string, start time.Time) {
	StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
