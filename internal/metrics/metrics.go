// Package metrics exposes Prometheus instrumentation for the generation
// pipeline. All recording is observational; nothing in the pipeline
// depends on a metric being written.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cvgen_jobs_total",
		Help: "Jobs finished, by terminal status.",
	}, []string{"status"})

	jobDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cvgen_job_duration_seconds",
		Help:    "End-to-end job processing time.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	})

	renderTierTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cvgen_render_tier_total",
		Help: "Artifacts produced, by fallback tier.",
	}, []string{"tier"})

	generationDegraded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cvgen_generation_degraded_total",
		Help: "Jobs whose content generation fell back to substitute text.",
	})

	tokensIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cvgen_download_tokens_issued_total",
		Help: "Download tokens issued.",
	})
)

// JobFinished records one terminal job outcome with its duration.
func JobFinished(status string, seconds float64) {
	jobsTotal.WithLabelValues(status).Inc()
	jobDuration.Observe(seconds)
}

// RenderTier records which fallback tier produced an artifact.
func RenderTier(tier string) {
	renderTierTotal.WithLabelValues(tier).Inc()
}

// GenerationDegraded records a content-generation fallback.
func GenerationDegraded() {
	generationDegraded.Inc()
}

// TokenIssued records one issued download token.
func TokenIssued() {
	tokensIssued.Inc()
}
