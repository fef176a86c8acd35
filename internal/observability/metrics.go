package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "hr_identity"

// SecurityEventsTotal counts security events by name and severity tier.
var SecurityEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "security_events_total",
		Help:      "Security events by name and severity.",
	},
	[]string{"event", "severity"},
)

// AuthOperationsTotal counts identity operations by outcome.
// Labels:
//   - operation: login, refresh, logout, reset_request, reset_redeem, reset_complete
//   - outcome: ok or the error class
var AuthOperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_operations_total",
		Help:      "Identity operations by outcome.",
	},
	[]string{"operation", "outcome"},
)

// HTTPRequestsTotal counts HTTP requests.
var HTTPRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status.",
	},
	[]string{"method", "route", "status"},
)

// HTTPRequestDuration measures request latency.
var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latencies in seconds.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "route"},
)

// CleanupRowsTotal counts rows removed by the cleanup worker.
var CleanupRowsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cleanup_rows_total",
		Help:      "Expired identity rows purged by table.",
	},
	[]string{"table"},
)

// RecordOperation increments AuthOperationsTotal.
func RecordOperation(operation, outcome string) {
	AuthOperationsTotal.WithLabelValues(operation, outcome).Inc()
}
