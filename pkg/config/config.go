// pkg/config/config.go
package config

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"
)

// Config is the single source of tunables for the bridge. It is built once
// by Loader.Load and is treated as immutable afterwards: every component
// that needs a setting holds a reference to the same frozen value.
type Config struct {
	App     AppConfig     `koanf:"app"`
	Conn    ConnConfig    `koanf:"connection"`
	Retry   RetryConfig   `koanf:"retry"`
	Breaker BreakerConfig `koanf:"breaker"`
	Queue   QueueConfig   `koanf:"queue"`
	WAL     WALConfig     `koanf:"wal"`
	Txn     TxnConfig     `koanf:"txn"`
	Feature FeatureConfig `koanf:"feature"`
	Log     LogConfig     `koanf:"log"`
	Metrics MetricsConfig `koanf:"metrics"`
	Tracing TracingConfig `koanf:"tracing"`
	Cache   CacheConfig   `koanf:"cache"`
}

// AppConfig carries process-level identity, used in logging and tracing
// resource attributes.
type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"` // development, staging, production
	Debug       bool   `koanf:"debug"`
}

// ConnConfig addresses the terminal-side gRPC endpoint. Per
// original_source/mt5linux's config split, three port roles are kept for
// fidelity even though only GRPCPort is load-bearing for the core.
type ConnConfig struct {
	Host             string        `koanf:"host"`
	GRPCPort         int           `koanf:"grpc_port"`
	DockerGRPCPort   int           `koanf:"docker_grpc_port"`
	TestGRPCPort     int           `koanf:"test_grpc_port"`
	HealthPort       int           `koanf:"health_port"`
	ConnectTimeout   time.Duration `koanf:"connection_timeout"`
	MaxRecvMsgSize   int           `koanf:"max_recv_msg_size"` // bytes
	MaxSendMsgSize   int           `koanf:"max_send_msg_size"` // bytes
	HealthProbePeriod time.Duration `koanf:"health_probe_period"`
	// RPCTimeout bounds a single attempt of any façade RPC (spec.md §5):
	// resilientCall and the order_send orchestrator both enforce it via
	// retry.ExecuteWithTimeoutAndCancel. Defaults to 30s when unset.
	RPCTimeout time.Duration `koanf:"rpc_timeout"`
}

// RPCTimeoutOrDefault returns RPCTimeout, defaulting to 30s when unset.
func (c ConnConfig) RPCTimeoutOrDefault() time.Duration {
	if c.RPCTimeout <= 0 {
		return 30 * time.Second
	}
	return c.RPCTimeout
}

// Address returns the host:port the connection manager dials.
func (c ConnConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.GRPCPort)
}

// RetryConfig governs the generic retry strategy and its critical-path
// overrides. delay_for/critical_delay_for implement the exponential
// backoff-with-jitter contract of spec.md §4.1.
type RetryConfig struct {
	MaxAttempts     int           `koanf:"max_attempts"`
	InitialDelay    time.Duration `koanf:"initial_delay"`
	MaxDelay        time.Duration `koanf:"max_delay"`
	ExponentialBase float64       `koanf:"exponential_base"`
	Jitter          bool          `koanf:"jitter"`

	CriticalMaxAttempts  int           `koanf:"critical_max_attempts"`
	CriticalInitialDelay time.Duration `koanf:"critical_initial_delay"`
	CriticalMaxDelay     time.Duration `koanf:"critical_max_delay"`
}

// DelayFor returns min(initial * base^attempt, max_delay), then optionally
// multiplies by a random factor in [0.5, 1.5).
func (r RetryConfig) DelayFor(attempt int) time.Duration {
	return jitteredDelay(r.InitialDelay, r.MaxDelay, r.ExponentialBase, attempt, r.Jitter)
}

// CriticalDelayFor uses a faster initial delay and a lower ceiling than
// DelayFor, per spec.md §4.1.
func (r RetryConfig) CriticalDelayFor(attempt int) time.Duration {
	initial := r.CriticalInitialDelay
	if initial <= 0 {
		initial = 100 * time.Millisecond
	}
	maxDelay := r.CriticalMaxDelay
	if maxDelay <= 0 {
		maxDelay = r.MaxDelay / 2
	}
	return jitteredDelay(initial, maxDelay, r.ExponentialBase, attempt, r.Jitter)
}

func jitteredDelay(initial, max time.Duration, base float64, attempt int, jitter bool) time.Duration {
	if base <= 0 {
		base = 2.0
	}
	raw := float64(initial) * math.Pow(base, float64(attempt))
	capped := math.Min(raw, float64(max))
	if jitter {
		factor := 0.5 + rand.Float64() // [0.5, 1.5)
		capped *= factor
	}
	return time.Duration(capped)
}

// BreakerConfig parameterizes the circuit breaker state machine (§4.3).
type BreakerConfig struct {
	Threshold       int           `koanf:"threshold"`
	RecoverySeconds time.Duration `koanf:"recovery_seconds"`
	HalfOpenMax     int           `koanf:"half_open_max"`
}

// QueueConfig bounds the request queue's concurrency and depth (§4.5).
type QueueConfig struct {
	MaxConcurrent int `koanf:"max_concurrent"`
	MaxDepth      int `koanf:"max_depth"`
}

// WALConfig locates and ages out the write-ahead log (§4.6).
type WALConfig struct {
	Path          string        `koanf:"path"`
	RetentionDays int           `koanf:"retention_days"`
	CleanupPeriod time.Duration `koanf:"cleanup_period"`
}

// TxnConfig tunes the order_send transaction orchestrator (§4.7). The
// verification window is an explicit site-tuning knob per §9's Open
// Questions: the source never explains why 15 minutes, so this design
// makes the default match it but leaves it configurable.
type TxnConfig struct {
	VerificationWindow time.Duration `koanf:"verification_window"`
}

// FeatureConfig toggles optional subsystems without recompilation.
type FeatureConfig struct {
	AutoReconnect   bool `koanf:"enable_auto_reconnect"`
	HealthMonitor   bool `koanf:"enable_health_monitor"`
	CircuitBreaker  bool `koanf:"enable_circuit_breaker"`
}

// LogConfig controls the slog + lumberjack logger.
type LogConfig struct {
	Level      string `koanf:"level"`       // debug, info, warn, error
	Format     string `koanf:"format"`      // json, text
	Output     string `koanf:"output"`      // stdout, stderr, file
	FilePath   string `koanf:"file_path"`
	MaxSize    int    `koanf:"max_size"`    // MB
	MaxBackups int    `koanf:"max_backups"`
	MaxAge     int    `koanf:"max_age"` // days
	Compress   bool   `koanf:"compress"`
}

// MetricsConfig controls the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Port      int    `koanf:"port"`
	Path      string `koanf:"path"`
	Namespace string `koanf:"namespace"`
	Subsystem string `koanf:"subsystem"`
}

// TracingConfig controls the optional OpenTelemetry exporter.
type TracingConfig struct {
	Enabled     bool    `koanf:"enabled"`
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	SampleRate  float64 `koanf:"sample_rate"`
}

// CacheConfig configures the optional Redis-backed distributed queue-depth
// gauge used when multiple bridge processes share one terminal session.
type CacheConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// Address returns the Redis host:port.
func (c CacheConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate checks field ranges and fills in a couple of implied defaults.
func (c *Config) Validate() error {
	var errs []string

	if c.App.Name == "" {
		errs = append(errs, "app.name is required")
	}

	if c.Conn.Host == "" {
		errs = append(errs, "connection.host is required")
	}

	if c.Conn.GRPCPort <= 0 || c.Conn.GRPCPort > 65535 {
		errs = append(errs, fmt.Sprintf("connection.grpc_port must be between 1 and 65535, got %d", c.Conn.GRPCPort))
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, fmt.Sprintf("log.level must be one of: debug, info, warn, error, got %s", c.Log.Level))
	}

	if c.Retry.MaxAttempts <= 0 {
		errs = append(errs, "retry.max_attempts must be >= 1")
	}
	if c.Retry.ExponentialBase <= 1.0 {
		errs = append(errs, "retry.exponential_base must be > 1.0")
	}

	if c.Breaker.Threshold <= 0 {
		errs = append(errs, "breaker.threshold must be >= 1")
	}
	if c.Breaker.HalfOpenMax <= 0 {
		errs = append(errs, "breaker.half_open_max must be >= 1")
	}

	if c.Queue.MaxConcurrent <= 0 {
		errs = append(errs, "queue.max_concurrent must be >= 1")
	}
	if c.Queue.MaxDepth < 0 {
		errs = append(errs, "queue.max_depth must be >= 0")
	}

	if c.WAL.Path == "" {
		errs = append(errs, "wal.path is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development" || c.App.Environment == "dev"
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production" || c.App.Environment == "prod"
}
