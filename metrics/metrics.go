// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "chattube"

var (
	// IndexCacheOperationsTotal tracks lookups against the per-video index cache.
	// Labels:
	//   - operation: get, build, evict
	//   - status: hit, miss, success, error
	IndexCacheOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_cache_operations_total",
			Help:      "Total number of index cache operations",
		},
		[]string{"operation", "status"},
	)

	// IndexCacheEntries is the number of video indexes currently cached.
	IndexCacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "index_cache_entries",
			Help:      "Number of video indexes held by the cache",
		},
	)

	// SingleflightRequestsTotal tracks singleflight behavior.
	// Labels:
	//   - result: initiated (new execution), shared (reused result)
	SingleflightRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "singleflight_requests_total",
			Help:      "Total number of singleflight requests",
		},
		[]string{"result"},
	)

	// RequestsTotal counts service calls by method and outcome.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of service requests",
		},
		[]string{"method", "status"},
	)

	// RequestDuration observes service call latency in seconds.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Service request latency",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"method"},
	)
)

// Cache operation constants.
const (
	CacheOpGet   = "get"
	CacheOpBuild = "build"
	CacheOpEvict = "evict"
)

// Status constants.
const (
	StatusHit     = "hit"
	StatusMiss    = "miss"
	StatusSuccess = "success"
	StatusError   = "error"
)

// Singleflight result constants.
const (
	SingleflightInitiated = "initiated"
	SingleflightShared    = "shared"
)
