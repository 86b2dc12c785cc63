// Package metrics exposes Prometheus instrumentation for the ingestion
// pipeline, the registry handlers, and the manifest resolver. Grounded on
// cuemby-warren/pkg/metrics (package-level metric vars, init-time
// registration, a Timer helper for histogram observations).
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	JobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bdp_ingestion_jobs_total",
			Help: "Total number of ingestion jobs by family and terminal status",
		},
		[]string{"family", "status"},
	)

	JobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bdp_ingestion_job_duration_seconds",
			Help:    "End-to-end ingestion job duration in seconds by family",
			Buckets: []float64{1, 5, 30, 60, 300, 900, 1800, 3600, 7200},
		},
		[]string{"family"},
	)

	WorkUnitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bdp_work_units_total",
			Help: "Total number of work units claimed by outcome",
		},
		[]string{"family", "outcome"},
	)

	WorkUnitDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bdp_work_unit_duration_seconds",
			Help:    "Time to process a single work unit in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"family"},
	)

	RecordsStoredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bdp_records_stored_total",
			Help: "Total number of records written by a batch storage writer",
		},
		[]string{"family"},
	)

	RecordsSkippedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bdp_records_skipped_total",
			Help: "Total number of records skipped by a batch storage writer",
		},
		[]string{"family"},
	)

	VersionBumpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bdp_version_bumps_total",
			Help: "Total number of version bumps detected by bump kind",
		},
		[]string{"family", "bump"},
	)

	ArtifactUploadDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bdp_artifact_upload_duration_seconds",
			Help:    "Time to upload a single artifact to the object store",
			Buckets: prometheus.DefBuckets,
		},
	)

	ArtifactUploadFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bdp_artifact_upload_failures_total",
			Help: "Total number of failed artifact uploads",
		},
	)

	CacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bdp_cache_hits_total",
			Help: "Total number of on-disk cache lookups by outcome",
		},
		[]string{"family", "outcome"},
	)

	ResolveRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bdp_resolve_requests_total",
			Help: "Total number of manifest resolver requests by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	ResolveDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bdp_resolve_duration_seconds",
			Help:    "Manifest resolver request duration in seconds by kind",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	RegistryRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bdp_registry_requests_total",
			Help: "Total number of registry command handler invocations by command and outcome",
		},
		[]string{"command", "outcome"},
	)

	QueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bdp_work_unit_queue_depth",
			Help: "Pending work units per active job",
		},
		[]string{"family"},
	)
)

func init() {
	prometheus.MustRegister(
		JobsTotal,
		JobDuration,
		WorkUnitsTotal,
		WorkUnitDuration,
		RecordsStoredTotal,
		RecordsSkippedTotal,
		VersionBumpsTotal,
		ArtifactUploadDuration,
		ArtifactUploadFailuresTotal,
		CacheHitsTotal,
		ResolveRequestsTotal,
		ResolveDuration,
		RegistryRequestsTotal,
		QueueDepth,
	)
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer times an operation for later observation against a histogram.
type Timer struct {
	start time.Time
}

func NewTimer() *Timer { return &Timer{start: time.Now()} }

func (t *Timer) ObserveDuration(h prometheus.Histogram) {
	h.Observe(time.Since(t.start).Seconds())
}

func (t *Timer) ObserveDurationVec(h prometheus.ObserverVec, labels ...string) {
	h.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}
