// Package mt5 is the typed client façade of spec.md §4.9: ~36 RPC
// wrappers grouped by domain, every one of them except HealthCheck routed
// through the queue+retry+breaker stack. The order-submission methods
// (OrderSend, OrderSendAsync, OrderSendBatch) are the only callers of the
// transaction orchestrator; everything else uses the generic retry path
// with should_retry = classifier.IsRetryableException. Payload decoding
// (JSON blobs, NumPy-style binary arrays) happens here, at the façade
// boundary, never inside pkg/queue, pkg/retry, pkg/breaker, or pkg/txn.
package mt5

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"google.golang.org/grpc"

	"mt5bridge/pkg/apperror"
	"mt5bridge/pkg/breaker"
	"mt5bridge/pkg/classifier"
	"mt5bridge/pkg/config"
	"mt5bridge/pkg/connection"
	"mt5bridge/pkg/constants"
	"mt5bridge/pkg/metrics"
	"mt5bridge/pkg/mt5gen"
	"mt5bridge/pkg/queue"
	"mt5bridge/pkg/retry"
	"mt5bridge/pkg/wal"
)

// Client is the façade a caller constructs once per terminal session. It
// owns the connection manager, the request queue, the circuit breaker,
// and the WAL, and exposes every MT5Service RPC as a plain Go method.
type Client struct {
	cfg     config.Config
	conn    *connection.Manager
	queue   *queue.Queue
	breaker *breaker.Breaker
	wal     *wal.WAL
	metrics *metrics.Metrics

	// rpcClient overrides rpc()'s normal conn-backed client, for tests that
	// exercise the façade without a dialed channel.
	rpcClient mt5gen.MT5ServiceClient

	// redisGauge is non-nil when cfg.Cache.Enabled: it publishes this
	// process's queue depth to the shared fleet-wide hash so multiple
	// bridge processes pointed at the same terminal see each other's
	// backpressure.
	redisGauge *queue.RedisDepthGauge
}

// queueMetricsAdapter satisfies queue.Metrics against the shared
// process-wide *metrics.Metrics, whose queue counters are plain
// prometheus types rather than an interface of their own.
type queueMetricsAdapter struct{ m *metrics.Metrics }

func (a queueMetricsAdapter) SetQueueDepth(queued, inFlight int) { a.m.SetQueueDepth(queued, inFlight) }
func (a queueMetricsAdapter) IncRejected()                      { a.m.QueueRejectedTotal.Inc() }
func (a queueMetricsAdapter) IncCoalesced()                     { a.m.QueueCoalescedTotal.Inc() }

// fanoutMetrics broadcasts queue events to every wrapped queue.Metrics, so
// the local Prometheus adapter and the optional fleet-wide Redis gauge can
// both observe the same queue without the queue itself knowing about
// either.
type fanoutMetrics []queue.Metrics

func (f fanoutMetrics) SetQueueDepth(queued, inFlight int) {
	for _, m := range f {
		m.SetQueueDepth(queued, inFlight)
	}
}
func (f fanoutMetrics) IncRejected() {
	for _, m := range f {
		m.IncRejected()
	}
}
func (f fanoutMetrics) IncCoalesced() {
	for _, m := range f {
		m.IncCoalesced()
	}
}

// New builds an unconnected Client from cfg and the process-wide metrics.
func New(cfg config.Config, m *metrics.Metrics) (*Client, error) {
	w, err := wal.Open(cfg.WAL.Path)
	if err != nil {
		return nil, fmt.Errorf("mt5: open WAL: %w", err)
	}

	c := &Client{cfg: cfg, wal: w, metrics: m}

	if cfg.Feature.CircuitBreaker {
		c.breaker = breaker.New(breaker.Config{
			Threshold:       cfg.Breaker.Threshold,
			RecoverySeconds: cfg.Breaker.RecoverySeconds,
			HalfOpenMax:     cfg.Breaker.HalfOpenMax,
		})
	}

	queueMetrics := fanoutMetrics{queueMetricsAdapter{m: m}}
	if cfg.Cache.Enabled {
		hostname, _ := os.Hostname()
		gauge, err := queue.NewRedisDepthGauge(queue.RedisDepthGaugeOptions{
			Addr:     cfg.Cache.Address(),
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
			Key:      "mt5bridge:queue_depth",
			Field:    hostname,
		})
		if err != nil {
			return nil, fmt.Errorf("mt5: connect queue depth gauge: %w", err)
		}
		c.redisGauge = gauge
		queueMetrics = append(queueMetrics, gauge)
	}

	c.queue = queue.New(cfg.Queue.MaxConcurrent, cfg.Queue.MaxDepth, queueMetrics)

	c.conn = connection.New(connection.Config{
		Address:             cfg.Conn.Address(),
		ConnectTimeout:      cfg.Conn.ConnectTimeout,
		MaxRecvMsgSize:      cfg.Conn.MaxRecvMsgSize,
		MaxSendMsgSize:      cfg.Conn.MaxSendMsgSize,
		KeepaliveTime:       30 * time.Second, // spec.md §6 fixed channel option
		KeepaliveTimeout:    10 * time.Second,
		HealthProbePeriod:   cfg.Conn.HealthProbePeriod,
		EnableHealthMonitor: cfg.Feature.HealthMonitor,
		MaxHealthRetries:    cfg.Retry.MaxAttempts,
		RetryBackoff:        cfg.Retry.InitialDelay,
		LoadConstants:       c.loadConstants,
		Health:              c.probeHealth,
		Breaker:             c.breaker,
	})

	return c, nil
}

// Connect dials the terminal, loads its constants table, starts the
// health monitor if enabled, and reconciles any WAL entries left PENDING
// or SENT by a previous, uncleanly terminated process.
func (c *Client) Connect(ctx context.Context) error {
	if err := c.conn.Connect(ctx); err != nil {
		return err
	}
	c.recoverIncomplete(ctx)
	return nil
}

// Disconnect idempotently tears down the channel, drains the queue, and
// closes the WAL.
func (c *Client) Disconnect() error {
	c.queue.Shutdown()
	err := c.conn.Disconnect()
	if c.redisGauge != nil {
		if gaugeErr := c.redisGauge.Close(); gaugeErr != nil && err == nil {
			err = gaugeErr
		}
	}
	if walErr := c.wal.Close(); walErr != nil && err == nil {
		err = walErr
	}
	return err
}

// Constants returns the terminal's named integer constant table.
func (c *Client) Constants() *constants.Table {
	return c.conn.Constants()
}

func (c *Client) rpc() mt5gen.MT5ServiceClient {
	if c.rpcClient != nil {
		return c.rpcClient
	}
	return mt5gen.NewClient(c.conn.Conn())
}

// loadConstants is the connection.ConstantsLoader injected into the
// manager: it runs once, synchronously, during Connect.
func (c *Client) loadConstants(ctx context.Context, conn *grpc.ClientConn) (map[string]int, error) {
	resp, err := mt5gen.NewClient(conn).GetConstants(ctx, &mt5gen.Empty{})
	if err != nil {
		return nil, err
	}
	values := make(map[string]int, len(resp.Values))
	for k, v := range resp.Values {
		values[k] = int(v)
	}
	return values, nil
}

// probeHealth is the connection.HealthProbe injected into the manager for
// the optional background health monitor.
func (c *Client) probeHealth(ctx context.Context, conn *grpc.ClientConn) error {
	resp, err := mt5gen.NewClient(conn).HealthCheck(ctx, &mt5gen.Empty{})
	if err != nil {
		return err
	}
	if !resp.Healthy {
		return apperror.New(apperror.CodeConnectionLost, resp.Reason)
	}
	return nil
}

// healthCheckBool adapts probeHealth's error-returning shape to the
// txn.HealthCheckFunc boolean probe the orchestrator uses mid-attempt.
func (c *Client) healthCheckBool(ctx context.Context) bool {
	return c.probeHealth(ctx, c.conn.Conn()) == nil
}

func (c *Client) admitBreaker() bool {
	if c.breaker == nil {
		return true
	}
	return c.breaker.CanAdmit()
}

// reportBreakerState publishes the breaker's current state to Prometheus.
// A no-op when either the breaker or the metrics set is absent.
func (c *Client) reportBreakerState() {
	if c.breaker == nil || c.metrics == nil {
		return
	}
	c.metrics.SetBreakerState("mt5", int(c.breaker.Status().State))
}

func (c *Client) recordBreakerSuccess() {
	if c.breaker == nil {
		return
	}
	c.breaker.RecordSuccess()
	c.reportBreakerState()
}

func (c *Client) recordBreakerFailure() {
	if c.breaker == nil {
		return
	}
	c.breaker.RecordFailure()
	if c.metrics != nil {
		c.metrics.RecordBreakerFailure("mt5")
	}
	c.reportBreakerState()
}

// resilientCall is the one wrapping helper every façade method (other
// than the order-submission methods and HealthCheck) funnels through:
// spec.md §9's replacement for
// decorator-based resilience. It sets queue priority from the operation's
// criticality, then runs work inside the generic retry loop under a
// per-attempt timeout (spec.md §5), gating and recording every attempt
// against the breaker and Prometheus.
func (c *Client) resilientCall(ctx context.Context, operation string, work func(ctx context.Context) (any, error)) (any, error) {
	criticality := classifier.OperationCriticalityOf(operation)
	priority := criticality.Priority()

	maxAttempts := c.cfg.Retry.MaxAttempts
	delayFor := c.cfg.Retry.DelayFor
	if criticality == classifier.Critical {
		maxAttempts = c.cfg.Retry.CriticalMaxAttempts
		delayFor = c.cfg.Retry.CriticalDelayFor
	}
	timeout := c.cfg.Conn.RPCTimeoutOrDefault()

	return c.queue.Submit(ctx, operation, priority, "", func(ctx context.Context) (any, error) {
		result, err := retry.Execute(ctx, retry.Config{
			MaxAttempts: maxAttempts,
			ShouldRetry: classifier.IsRetryableException,
			DelayFor:    delayFor,
			OnSuccess:   func() { c.recordBreakerSuccess() },
			OnFailure:   func(error) { c.recordBreakerFailure() },
			BeforeRetry: func(ctx context.Context) error {
				if c.metrics != nil {
					c.metrics.RecordRetryAttempt(operation)
				}
				return nil
			},
		}, func(ctx context.Context, attempt int) (any, error) {
			if !c.admitBreaker() {
				return nil, apperror.New(apperror.CodeCircuitOpen, "circuit breaker refused admission").WithDetails("operation", operation)
			}
			start := time.Now()
			result, err := retry.ExecuteWithTimeoutAndCancel(ctx, timeout, operation, work)
			if c.metrics != nil {
				outcome := "success"
				if err != nil {
					outcome = "error"
				}
				c.metrics.RecordRPC(operation, outcome, time.Since(start))
			}
			return result, err
		})

		if err != nil && c.metrics != nil {
			var exhausted *retry.ErrMaxAttemptsExceeded
			if errors.As(err, &exhausted) {
				c.metrics.RecordRetryExhausted(operation)
			}
		}
		return result, err
	})
}

// decodeJSONObject unmarshals a single JSON object into a generic map.
func decodeJSONObject(raw string) (map[string]any, error) {
	if raw == "" {
		return nil, apperror.ErrEmptyResponse
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("mt5: decode JSON object: %w", err)
	}
	return out, nil
}

// decodeJSONList unmarshals a list of JSON-object strings into a slice of
// generic maps.
func decodeJSONList(items []string) ([]map[string]any, error) {
	out := make([]map[string]any, 0, len(items))
	for i, raw := range items {
		var obj map[string]any
		if err := json.Unmarshal([]byte(raw), &obj); err != nil {
			return nil, fmt.Errorf("mt5: decode JSON list item %d: %w", i, err)
		}
		out = append(out, obj)
	}
	return out, nil
}

// decodeSymbolsChunks concatenates SymbolsResponse's chunked JSON arrays
// into a single flat slice of symbol names.
func decodeSymbolsChunks(chunks []string) ([]string, error) {
	symbols := make([]string, 0)
	for i, chunk := range chunks {
		var part []string
		if err := json.Unmarshal([]byte(chunk), &part); err != nil {
			return nil, fmt.Errorf("mt5: decode symbols chunk %d: %w", i, err)
		}
		symbols = append(symbols, part...)
	}
	return symbols, nil
}
