package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	lifecycleOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailprov_lifecycle_operations_total",
			Help: "Total number of lifecycle operations by outcome",
		},
		[]string{"operation", "result"},
	)

	lifecycleOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mailprov_lifecycle_operation_duration_seconds",
			Help:    "Lifecycle operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	mailcowRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailprov_mailcow_requests_total",
			Help: "Total number of mailcow API calls by outcome",
		},
		[]string{"endpoint", "outcome"},
	)

	mailcowRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mailprov_mailcow_request_duration_seconds",
			Help:    "mailcow API call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)
)

// ObserveLifecycle records one finished lifecycle operation.
func ObserveLifecycle(operation string, ok bool, d time.Duration) {
	result := "success"
	if !ok {
		result = "error"
	}
	lifecycleOperationsTotal.WithLabelValues(operation, result).Inc()
	lifecycleOperationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// ObserveMailcowCall records one mailcow API call. endpoint must not carry
// per-domain path segments.
func ObserveMailcowCall(endpoint, outcome string, d time.Duration) {
	mailcowRequestsTotal.WithLabelValues(endpoint, outcome).Inc()
	mailcowRequestDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}
