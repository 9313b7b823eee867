package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blogcore_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "blogcore_http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// CategoryCacheLookups counts category lookups by the layer that answered:
	// "local", "redis" or "db".
	CategoryCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blogcore_category_cache_lookups_total",
			Help: "Category lookups by answering layer.",
		},
		[]string{"layer"},
	)

	NotFoundTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blogcore_not_found_total",
			Help: "Lookups answered with not found, by resource.",
		},
		[]string{"resource"},
	)
)
