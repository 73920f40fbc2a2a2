// Package metrics provides Prometheus metrics for stash.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts served requests.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stash",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration measures request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "stash",
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// ExtractionsTotal counts metadata extractions by outcome.
	ExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stash",
			Name:      "extractions_total",
			Help:      "Total number of page metadata extractions",
		},
		[]string{"result"},
	)

	// ExtractionDuration measures outbound fetch plus parse time.
	ExtractionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "stash",
			Name:      "extraction_duration_seconds",
			Help:      "Duration of page fetch and parse in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
	)

	// MetadataCacheTotal counts metadata cache lookups.
	MetadataCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stash",
			Name:      "metadata_cache_total",
			Help:      "Metadata cache lookups by result",
		},
		[]string{"result"},
	)

	// BookmarkOpsTotal counts bookmark operations by kind and outcome.
	BookmarkOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stash",
			Name:      "bookmark_operations_total",
			Help:      "Total number of bookmark operations",
		},
		[]string{"operation", "result"},
	)

	// RateLimitedTotal counts requests rejected by a rate limiter.
	RateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stash",
			Name:      "rate_limited_total",
			Help:      "Total number of requests rejected with 429",
		},
		[]string{"limiter"},
	)

	// OrphanTagsDeleted counts tags removed by the orphan collector.
	OrphanTagsDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "stash",
			Name:      "orphan_tags_deleted_total",
			Help:      "Total number of orphan tags removed",
		},
	)
)

// RecordRequest records one served HTTP request.
func RecordRequest(method, route, status string, seconds float64) {
	HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(seconds)
}

// RecordExtraction records one page extraction.
func RecordExtraction(result string, seconds float64) {
	ExtractionsTotal.WithLabelValues(result).Inc()
	ExtractionDuration.Observe(seconds)
}

// RecordCache records a metadata cache lookup ("hit", "miss" or "error").
func RecordCache(result string) {
	MetadataCacheTotal.WithLabelValues(result).Inc()
}

// RecordBookmarkOp records a bookmark service call.
func RecordBookmarkOp(operation, result string) {
	BookmarkOpsTotal.WithLabelValues(operation, result).Inc()
}

func RecordRateLimited(limiter string) {
	RateLimitedTotal.WithLabelValues(limiter).Inc()
}
