package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestCount counts HTTP requests
	RequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// RequestDuration measures HTTP request duration
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "HTTP request duration in seconds",
		},
		[]string{"method", "endpoint"},
	)

	// RunCount counts duplicate check runs by language and outcome
	RunCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duplicate_check_runs_total",
			Help: "Total number of duplicate check runs",
		},
		[]string{"language", "status"},
	)

	// RunDuration measures a whole run from acquisition to commit
	RunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "duplicate_check_run_duration_seconds",
			Help:    "Duplicate check run duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 14),
		},
	)

	ComparisonCount = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "duplicate_check_comparisons_total",
			Help: "Total number of pairwise comparisons",
		},
	)

	MalformedFileCount = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "duplicate_check_malformed_files_total",
			Help: "Source files skipped because they could not be tokenized",
		},
	)

	// IngestCount counts submission files consumed from the ingest stream
	IngestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "submission_ingest_messages_total",
			Help: "Total number of ingested submission files",
		},
		[]string{"status"},
	)
)

var registerOnce sync.Once

// InitPrometheus registers all collectors with the default registry
func InitPrometheus() {
	registerOnce.Do(func() {
		prometheus.MustRegister(RequestCount)
		prometheus.MustRegister(RequestDuration)
		prometheus.MustRegister(RunCount)
		prometheus.MustRegister(RunDuration)
		prometheus.MustRegister(ComparisonCount)
		prometheus.MustRegister(MalformedFileCount)
		prometheus.MustRegister(IngestCount)
	})
}

// Handler returns the Prometheus scrape handler
func Handler() http.Handler {
	return promhttp.Handler()
}
