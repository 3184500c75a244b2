package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the process-wide metrics container for the resilience layer.
type Metrics struct {
	// gRPC call metrics (per RPC, at the connection boundary).
	RPCRequestsTotal   *prometheus.CounterVec
	RPCRequestDuration *prometheus.HistogramVec
	RPCRequestsInFlight prometheus.Gauge

	// Circuit breaker.
	BreakerState        *prometheus.GaugeVec // 0=closed,1=open,2=half_open
	BreakerFailuresTotal *prometheus.CounterVec

	// Retry strategy.
	RetryAttemptsTotal *prometheus.CounterVec
	RetryExhaustedTotal *prometheus.CounterVec

	// Request queue.
	QueueDepth          prometheus.Gauge
	QueueInFlight       prometheus.Gauge
	QueueRejectedTotal  prometheus.Counter
	QueueCoalescedTotal prometheus.Counter

	// Write-ahead log.
	WALEntriesTotal *prometheus.CounterVec // by terminal state
	WALRecoveredTotal prometheus.Counter

	// Transaction orchestrator.
	OrderOutcomesTotal *prometheus.CounterVec
	VerifyCallsTotal   *prometheus.CounterVec

	ServiceInfo *prometheus.GaugeVec
}

var defaultMetrics *Metrics

// InitMetrics builds and registers the metrics set under namespace/subsystem.
func InitMetrics(namespace, subsystem string) *Metrics {
	m := &Metrics{
		RPCRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "rpc_requests_total",
				Help:      "Total number of RPCs issued to the terminal, by method and outcome",
			},
			[]string{"method", "outcome"},
		),

		RPCRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "rpc_request_duration_seconds",
				Help:      "Duration of RPCs issued to the terminal",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"method"},
		),

		RPCRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "rpc_requests_in_flight",
				Help:      "Current number of RPCs awaiting a response",
			},
		),

		BreakerState: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "breaker_state",
				Help:      "Circuit breaker state (0=closed, 1=open, 2=half_open)",
			},
			[]string{"breaker"},
		),

		BreakerFailuresTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "breaker_failures_total",
				Help:      "Total failures recorded by the circuit breaker",
			},
			[]string{"breaker"},
		),

		RetryAttemptsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "retry_attempts_total",
				Help:      "Total retry attempts, by operation",
			},
			[]string{"operation"},
		),

		RetryExhaustedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "retry_exhausted_total",
				Help:      "Total times a retry loop exhausted its attempts",
			},
			[]string{"operation"},
		),

		QueueDepth: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "queue_depth",
				Help:      "Current number of queued (not yet dispatched) requests",
			},
		),

		QueueInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "queue_in_flight",
				Help:      "Current number of dispatched requests awaiting completion",
			},
		),

		QueueRejectedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "queue_rejected_total",
				Help:      "Total submissions rejected with QueueFullError",
			},
		),

		QueueCoalescedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "queue_coalesced_total",
				Help:      "Total submissions that shared an in-flight future via coalescing",
			},
		),

		WALEntriesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "wal_entries_total",
				Help:      "Total WAL entries written, by terminal state",
			},
			[]string{"state"},
		),

		WALRecoveredTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "wal_recovered_total",
				Help:      "Total incomplete WAL entries reconciled on startup",
			},
		),

		OrderOutcomesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "order_outcomes_total",
				Help:      "Total order_send outcomes, by disposition",
			},
			[]string{"outcome"},
		),

		VerifyCallsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "verify_calls_total",
				Help:      "Total state-verification calls after an ambiguous order result",
			},
			[]string{"found"},
		),

		ServiceInfo: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "service_info",
				Help:      "Build and environment information",
			},
			[]string{"version", "environment"},
		),
	}

	defaultMetrics = m
	return m
}

// Get returns the process-wide metrics, lazily initializing them with
// package defaults if InitMetrics was never called.
func Get() *Metrics {
	if defaultMetrics == nil {
		return InitMetrics("mt5bridge", "")
	}
	return defaultMetrics
}

// RecordRPC records a single terminal RPC's outcome and latency.
func (m *Metrics) RecordRPC(method, outcome string, duration time.Duration) {
	m.RPCRequestsTotal.WithLabelValues(method, outcome).Inc()
	m.RPCRequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// SetBreakerState reports the breaker's current numeric state.
func (m *Metrics) SetBreakerState(breaker string, state int) {
	m.BreakerState.WithLabelValues(breaker).Set(float64(state))
}

// RecordBreakerFailure increments the named breaker's failure counter.
func (m *Metrics) RecordBreakerFailure(breaker string) {
	m.BreakerFailuresTotal.WithLabelValues(breaker).Inc()
}

// RecordRetryAttempt increments the retry counter for an operation.
func (m *Metrics) RecordRetryAttempt(operation string) {
	m.RetryAttemptsTotal.WithLabelValues(operation).Inc()
}

// RecordRetryExhausted increments the exhaustion counter for an operation.
func (m *Metrics) RecordRetryExhausted(operation string) {
	m.RetryExhaustedTotal.WithLabelValues(operation).Inc()
}

// SetQueueDepth reports the queue's current queued/in-flight counts.
func (m *Metrics) SetQueueDepth(queued, inFlight int) {
	m.QueueDepth.Set(float64(queued))
	m.QueueInFlight.Set(float64(inFlight))
}

// RecordWALEntry increments the WAL state counter.
func (m *Metrics) RecordWALEntry(state string) {
	m.WALEntriesTotal.WithLabelValues(state).Inc()
}

// RecordOrderOutcome increments the order-send disposition counter.
func (m *Metrics) RecordOrderOutcome(outcome string) {
	m.OrderOutcomesTotal.WithLabelValues(outcome).Inc()
}

// RecordVerifyCall increments the verification-call counter.
func (m *Metrics) RecordVerifyCall(found bool) {
	label := "not_found"
	if found {
		label = "found"
	}
	m.VerifyCallsTotal.WithLabelValues(label).Inc()
}

// SetServiceInfo publishes the build version/environment gauge.
func (m *Metrics) SetServiceInfo(version, environment string) {
	m.ServiceInfo.WithLabelValues(version, environment).Set(1)
}

// Handler returns the HTTP handler serving the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// StartMetricsServer runs a blocking HTTP server exposing /metrics and
// /health on the given port.
func StartMetricsServer(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK")) //nolint:errcheck // health endpoint, write failure is not actionable
	})

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return server.ListenAndServe()
}
