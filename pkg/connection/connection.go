// Package connection manages the gRPC channel to the trading terminal:
// spec.md §4.8. It owns the channel's lifecycle (connect, disconnect,
// idempotent reconnection), the cached constants table, and the optional
// background health monitor that couples liveness probes to the circuit
// breaker.
package connection

import (
	"context"
	"log/slog"
	"sync"
	"time"

	grpc_retry "github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/retry"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"

	"mt5bridge/pkg/apperror"
	"mt5bridge/pkg/breaker"
	"mt5bridge/pkg/constants"
)

// ConstantsLoader fetches the terminal's named-constant table over a
// single RPC. Injected so this package never imports the generated stubs
// directly.
type ConstantsLoader func(ctx context.Context, conn *grpc.ClientConn) (map[string]int, error)

// HealthProbe performs one liveness check against the terminal.
type HealthProbe func(ctx context.Context, conn *grpc.ClientConn) error

// Config parameterizes the manager.
type Config struct {
	Address            string
	ConnectTimeout     time.Duration
	MaxRecvMsgSize     int
	MaxSendMsgSize     int
	KeepaliveTime      time.Duration
	KeepaliveTimeout   time.Duration
	HealthProbePeriod  time.Duration
	EnableHealthMonitor bool
	MaxHealthRetries   int
	RetryBackoff       time.Duration

	LoadConstants ConstantsLoader
	Health        HealthProbe
	Breaker       *breaker.Breaker // optional; health monitor couples into it when set
}

// Manager owns the gRPC channel and its lifecycle.
type Manager struct {
	cfg Config

	mu        sync.Mutex
	conn      *grpc.ClientConn
	constants *constants.Table
	connected bool

	// healthMu guards the monitor goroutine's lifecycle independently of
	// mu: the monitor calls attemptReconnect (which takes mu) from inside
	// its own loop, so stopping it must never be attempted while holding
	// mu, or a concurrent Disconnect would deadlock waiting on a goroutine
	// that is itself blocked acquiring mu.
	healthMu     sync.Mutex
	healthCancel context.CancelFunc
	healthDone   chan struct{}
}

// New creates an unconnected Manager.
func New(cfg Config) *Manager {
	return &Manager{cfg: cfg}
}

func (m *Manager) dialOptions() []grpc.DialOption {
	retryOpts := []grpc_retry.CallOption{
		grpc_retry.WithBackoff(grpc_retry.BackoffLinear(m.cfg.RetryBackoff)),
		grpc_retry.WithCodes(codes.Unavailable, codes.Aborted, codes.DeadlineExceeded),
		grpc_retry.WithMax(uint(m.cfg.MaxHealthRetries)),
	}

	return []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(m.cfg.MaxRecvMsgSize),
			grpc.MaxCallSendMsgSize(m.cfg.MaxSendMsgSize),
			grpc.CallContentSubtype("json"),
		),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                m.cfg.KeepaliveTime,
			Timeout:             m.cfg.KeepaliveTimeout,
			PermitWithoutStream: true,
		}),
		grpc.WithChainUnaryInterceptor(
			grpc_retry.UnaryClientInterceptor(retryOpts...),
		),
	}
}

// Connect dials the terminal, loads the constants table, and starts the
// health monitor if enabled. Connect is idempotent and serialized so
// concurrent callers never create parallel channels.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return nil
	}

	dialCtx, cancel := context.WithTimeout(ctx, m.cfg.ConnectTimeout)
	defer cancel()

	conn, err := grpc.NewClient(m.cfg.Address, m.dialOptions()...)
	if err != nil {
		return apperror.Wrap(err, apperror.CodeNotConnected, "failed to dial terminal")
	}

	if m.cfg.LoadConstants != nil {
		values, err := m.cfg.LoadConstants(dialCtx, conn)
		if err != nil {
			conn.Close()
			return apperror.Wrap(err, apperror.CodeNotConnected, "failed to load constants table")
		}
		m.constants = constants.NewTable(values)
	}

	m.conn = conn
	m.connected = true

	if m.cfg.EnableHealthMonitor && m.cfg.Health != nil && m.cfg.HealthProbePeriod > 0 {
		m.startHealthMonitor()
	}

	return nil
}

// Disconnect idempotently tears down the channel and stops the health
// monitor.
func (m *Manager) Disconnect() error {
	m.stopHealthMonitor()

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return nil
	}

	err := m.conn.Close()
	m.conn = nil
	m.connected = false
	m.constants = nil
	return err
}

// IsConnected reports the current connection state.
func (m *Manager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// EnsureConnected connects if not already connected; a no-op otherwise.
func (m *Manager) EnsureConnected(ctx context.Context) error {
	if m.IsConnected() {
		return nil
	}
	return m.Connect(ctx)
}

// Conn returns the underlying channel, or nil if not connected.
func (m *Manager) Conn() *grpc.ClientConn {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conn
}

// Constants returns the cached constants table, or nil if not loaded.
func (m *Manager) Constants() *constants.Table {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.constants
}

func (m *Manager) startHealthMonitor() {
	m.healthMu.Lock()
	defer m.healthMu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	m.healthCancel = cancel
	m.healthDone = make(chan struct{})

	go func() {
		defer close(m.healthDone)
		ticker := time.NewTicker(m.cfg.HealthProbePeriod)
		defer ticker.Stop()

		consecutiveFailures := 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				conn := m.Conn()
				if conn == nil {
					return
				}
				probeCtx, probeCancel := context.WithTimeout(ctx, m.cfg.HealthProbePeriod)
				err := m.cfg.Health(probeCtx, conn)
				probeCancel()

				if err != nil {
					consecutiveFailures++
					slog.Warn("connection: health probe failed", "consecutive_failures", consecutiveFailures, "error", err)
					if m.cfg.Breaker != nil {
						m.cfg.Breaker.RecordFailure()
					}
					if consecutiveFailures >= 3 {
						m.attemptReconnect(ctx)
						consecutiveFailures = 0
					}
				} else {
					consecutiveFailures = 0
					if m.cfg.Breaker != nil {
						m.cfg.Breaker.RecordSuccess()
					}
				}
			}
		}
	}()
}

// attemptReconnect redials the channel in place, without going through
// Connect/Disconnect: those manage the health monitor's own lifecycle, and
// calling them from the monitor goroutine itself would deadlock against a
// concurrent user-initiated Disconnect waiting on this same goroutine to
// exit.
func (m *Manager) attemptReconnect(ctx context.Context) {
	slog.Warn("connection: attempting reconnect after consecutive health failures")

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}

	dialCtx, cancel := context.WithTimeout(ctx, m.cfg.ConnectTimeout)
	defer cancel()

	conn, err := grpc.NewClient(m.cfg.Address, m.dialOptions()...)
	if err != nil {
		m.connected = false
		slog.Error("connection: reconnect dial failed", "error", err)
		return
	}

	if m.cfg.LoadConstants != nil {
		values, err := m.cfg.LoadConstants(dialCtx, conn)
		if err != nil {
			conn.Close()
			m.connected = false
			slog.Error("connection: reconnect constants reload failed", "error", err)
			return
		}
		m.constants = constants.NewTable(values)
	}

	m.conn = conn
	m.connected = true
}

// stopHealthMonitor cancels the monitor and waits for it to exit. It must
// never be called while holding mu: the monitor itself takes mu inside
// attemptReconnect, so waiting on it here while mu is held would deadlock.
func (m *Manager) stopHealthMonitor() {
	m.healthMu.Lock()
	defer m.healthMu.Unlock()

	if m.healthCancel != nil {
		m.healthCancel()
		<-m.healthDone
		m.healthCancel = nil
		m.healthDone = nil
	}
}
