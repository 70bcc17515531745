// Package metrics defines the Prometheus collectors for index builds and
// exposes an HTTP handler for scraping. A nil *Recorder is valid and
// records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "scribeindex"

// Recorder holds the build collectors on a private registry.
type Recorder struct {
	registry *prometheus.Registry

	BuildsTotal      *prometheus.CounterVec
	BuildDuration    *prometheus.HistogramVec
	FilesProcessed   *prometheus.CounterVec
	FileErrors       *prometheus.CounterVec
	DocumentsIndexed *prometheus.GaugeVec
	IndexSizeBytes   *prometheus.GaugeVec
	ActiveBuilds     prometheus.Gauge
	ContentCache     *prometheus.CounterVec
}

// New creates a Recorder and registers its collectors.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		BuildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "builds_total",
				Help:      "Finished builds by tool, operation, and status.",
			},
			[]string{"tool", "operation", "status"},
		),
		BuildDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "build_duration_seconds",
				Help:      "Build wall time in seconds.",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"tool", "operation"},
		),
		FilesProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "files_processed_total",
				Help:      "Content files successfully processed.",
			},
			[]string{"tool"},
		),
		FileErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "file_errors_total",
				Help:      "Content files that failed processing.",
			},
			[]string{"tool"},
		),
		DocumentsIndexed: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "index_documents",
				Help:      "Documents in the most recently written index.",
			},
			[]string{"tool"},
		),
		IndexSizeBytes: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "index_size_bytes",
				Help:      "Estimated size of the most recently written index.",
			},
			[]string{"tool"},
		),
		ActiveBuilds: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_builds",
				Help:      "Builds currently in progress.",
			},
		),
		ContentCache: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "content_cache_total",
				Help:      "Processed-content cache lookups by result (hit, miss).",
			},
			[]string{"result"},
		),
	}

	r.registry.MustRegister(
		r.BuildsTotal,
		r.BuildDuration,
		r.FilesProcessed,
		r.FileErrors,
		r.DocumentsIndexed,
		r.IndexSizeBytes,
		r.ActiveBuilds,
		r.ContentCache,
	)
	return r
}

// Registry returns the private registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler returns the scrape handler for this Recorder.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// BuildStarted increments the active build gauge.
func (r *Recorder) BuildStarted() {
	if r == nil {
		return
	}
	r.ActiveBuilds.Inc()
}

// BuildOutcome summarizes a finished build.
type BuildOutcome struct {
	Tool      string
	Operation string
	Success   bool
	Duration  time.Duration
	Files     int
	Errors    int
	Documents int
	SizeBytes int64
}

// BuildFinished records a finished build and decrements the active gauge.
func (r *Recorder) BuildFinished(o BuildOutcome) {
	if r == nil {
		return
	}
	r.ActiveBuilds.Dec()

	status := "success"
	if !o.Success {
		status = "failure"
	}
	r.BuildsTotal.WithLabelValues(o.Tool, o.Operation, status).Inc()
	r.BuildDuration.WithLabelValues(o.Tool, o.Operation).Observe(o.Duration.Seconds())
	r.FilesProcessed.WithLabelValues(o.Tool).Add(float64(o.Files))
	r.FileErrors.WithLabelValues(o.Tool).Add(float64(o.Errors))
	if o.Success {
		r.DocumentsIndexed.WithLabelValues(o.Tool).Set(float64(o.Documents))
		r.IndexSizeBytes.WithLabelValues(o.Tool).Set(float64(o.SizeBytes))
	}
}

// CacheLookup records a processed-content cache hit or miss.
func (r *Recorder) CacheLookup(hit bool) {
	if r == nil {
		return
	}
	if hit {
		r.ContentCache.WithLabelValues("hit").Inc()
		return
	}
	r.ContentCache.WithLabelValues("miss").Inc()
}
