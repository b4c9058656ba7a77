// Package observability provides Prometheus metrics, health checks, and logging.
//
// Uses github.com/prometheus/client_golang, the official Prometheus client.
// These metrics are local to the process and scraped from /metrics; business
// metrics for transactions go to CloudWatch through the telemetry package.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/x23379014/MyPOS/internal/resilience"
)

// Metrics holds all Prometheus metrics for the MyPOS service.
//
// Key metrics for monitoring:
//   - operations_total: every dependency call by operation and outcome kind
//   - transactions_created_total: completed checkouts
//   - advisory_failures_total: notification/metrics failures swallowed by checkout
//   - circuit_breaker_state: advisory dependency health (0=ok, 2=failing)
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	Operations          *prometheus.CounterVec
	TransactionsCreated prometheus.Counter
	TransactionAmount   prometheus.Histogram
	AdvisoryFailures    *prometheus.CounterVec

	CircuitBreakerState *prometheus.GaugeVec
	CircuitBreakerTrips *prometheus.CounterVec
}

// NewMetrics creates metrics on the default registry.
// The namespace prefixes all metric names (e.g., "mypos_operations_total").
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer, namespace)
}

// NewMetricsWith registers the metrics on reg. Tests pass a fresh registry so
// repeated construction does not collide.
func NewMetricsWith(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by method and path",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),

		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Dependency operations by outcome (success or error kind)",
		}, []string{"operation", "outcome"}),
		TransactionsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_created_total",
			Help:      "Total number of transactions persisted",
		}),
		TransactionAmount: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transaction_amount",
			Help:      "Distribution of transaction totals",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}),
		AdvisoryFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "advisory_failures_total",
			Help:      "Failed or skipped advisory effects after a transaction was persisted",
		}, []string{"effect"}),

		CircuitBreakerState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Current state of circuit breaker (0=closed, 1=half-open, 2=open)",
		}, []string{"effect"}),
		CircuitBreakerTrips: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_trips_total",
			Help:      "Total number of times circuit breaker tripped to open state",
		}, []string{"effect"}),
	}
}

// BreakerStateChanged mirrors a breaker transition into the gauges. It is
// shaped to be passed to resilience.Breakers.OnStateChange.
func (m *Metrics) BreakerStateChanged(effect string, _, to resilience.State) {
	switch to {
	case resilience.StateClosed:
		m.CircuitBreakerState.WithLabelValues(effect).Set(0)
	case resilience.StateHalfOpen:
		m.CircuitBreakerState.WithLabelValues(effect).Set(1)
	case resilience.StateOpen:
		m.CircuitBreakerState.WithLabelValues(effect).Set(2)
		m.CircuitBreakerTrips.WithLabelValues(effect).Inc()
	}
}
