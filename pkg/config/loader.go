// pkg/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix    = "MT5BRIDGE_"
	configEnvVar = "CONFIG_PATH"
)

// Loader assembles a Config from layered sources.
type Loader struct {
	k           *koanf.Koanf
	configPaths []string
	envPrefix   string
}

// NewLoader creates a Loader with the given options applied over the
// package defaults.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		k: koanf.New("."),
		configPaths: []string{
			"config.yaml",
			"config/config.yaml",
			"/etc/mt5bridge/config.yaml",
		},
		envPrefix: envPrefix,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithConfigPaths overrides the list of paths searched for a config file.
func WithConfigPaths(paths ...string) LoaderOption {
	return func(l *Loader) {
		l.configPaths = paths
	}
}

// WithEnvPrefix overrides the environment variable prefix.
func WithEnvPrefix(prefix string) LoaderOption {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// Load layers sources by increasing priority:
//  1. compiled-in defaults
//  2. config file (yaml), optional
//  3. environment variables
// then unmarshals into Config and validates it.
func (l *Loader) Load() (*Config, error) {
	if err := l.loadDefaults(); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if err := l.loadConfigFile(); err != nil {
		fmt.Printf("warning: %v\n", err)
	}

	if err := l.loadEnv(); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}

	var cfg Config
	if err := l.k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadDefaults seeds every field named in spec.md §3 and §6 with a default.
func (l *Loader) loadDefaults() error {
	defaults := map[string]any{
		// App
		"app.name":        "mt5bridge",
		"app.version":     "0.1.0",
		"app.environment": "development",
		"app.debug":       false,

		// Connection
		"connection.host":                "127.0.0.1",
		"connection.grpc_port":           18812,
		"connection.docker_grpc_port":    8001,
		"connection.test_grpc_port":      18813,
		"connection.health_port":         18814,
		"connection.connection_timeout":  10 * time.Second,
		"connection.max_recv_msg_size":   50 * 1024 * 1024, // 50MiB, spec-mandated channel option
		"connection.max_send_msg_size":   50 * 1024 * 1024,
		"connection.health_probe_period": 15 * time.Second,
		"connection.rpc_timeout":         30 * time.Second,

		// Retry
		"retry.max_attempts":          5,
		"retry.initial_delay":         500 * time.Millisecond,
		"retry.max_delay":             30 * time.Second,
		"retry.exponential_base":      2.0,
		"retry.jitter":                true,
		"retry.critical_max_attempts": 5,
		"retry.critical_initial_delay": 100 * time.Millisecond,
		"retry.critical_max_delay":    15 * time.Second,

		// Circuit breaker
		"breaker.threshold":        5,
		"breaker.recovery_seconds": 30 * time.Second,
		"breaker.half_open_max":    2,

		// Queue
		"queue.max_concurrent": 8,
		"queue.max_depth":      256,

		// WAL
		"wal.path":           "mt5bridge.wal.db",
		"wal.retention_days": 7,
		"wal.cleanup_period": 1 * time.Hour,

		// Transaction orchestrator
		"txn.verification_window": 15 * time.Minute,

		// Feature flags
		"feature.enable_auto_reconnect":  true,
		"feature.enable_health_monitor":  true,
		"feature.enable_circuit_breaker": true,

		// Log
		"log.level":       "info",
		"log.format":      "json",
		"log.output":      "stdout",
		"log.max_size":    100,
		"log.max_backups": 3,
		"log.max_age":     7,
		"log.compress":    true,

		// Metrics
		"metrics.enabled":   true,
		"metrics.port":      9090,
		"metrics.path":      "/metrics",
		"metrics.namespace": "mt5bridge",
		"metrics.subsystem": "",

		// Tracing
		"tracing.enabled":      false,
		"tracing.endpoint":     "localhost:4317",
		"tracing.service_name": "mt5bridge",
		"tracing.sample_rate":  0.1,

		// Cache (optional distributed queue-depth gauge)
		"cache.enabled": false,
		"cache.host":    "localhost",
		"cache.port":    6379,
		"cache.db":      0,
	}

	return l.k.Load(confmap.Provider(defaults, "."), nil)
}

// loadConfigFile loads an optional yaml config file, checked first via
// CONFIG_PATH and then via the loader's search paths.
func (l *Loader) loadConfigFile() error {
	if configPath := os.Getenv(configEnvVar); configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return l.k.Load(file.Provider(configPath), yaml.Parser())
		}
	}

	for _, path := range l.configPaths {
		absPath, err := filepath.Abs(path)
		if err != nil {
			continue
		}

		if _, err := os.Stat(absPath); err == nil {
			return l.k.Load(file.Provider(absPath), yaml.Parser())
		}
	}

	return fmt.Errorf("config file not found in paths: %v", l.configPaths)
}

// loadEnv loads MT5BRIDGE_-prefixed environment variables, e.g.
// MT5BRIDGE_CONNECTION_GRPC_PORT -> connection.grpc_port.
func (l *Loader) loadEnv() error {
	return l.k.Load(env.Provider(l.envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(
				strings.TrimPrefix(s, l.envPrefix),
			),
			"_", ".",
		)
	}), nil)
}

// MustLoad loads the configuration or panics.
func MustLoad(opts ...LoaderOption) *Config {
	cfg, err := NewLoader(opts...).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// Load is a convenience function using default loader options.
func Load() (*Config, error) {
	return NewLoader().Load()
}

// LoadWithServiceDefaults loads the configuration, overriding the app name
// and gRPC port when they are still at their compiled-in defaults.
func LoadWithServiceDefaults(appName string, defaultPort int) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	if cfg.Conn.GRPCPort == 18812 && defaultPort != 0 {
		cfg.Conn.GRPCPort = defaultPort
	}

	if cfg.App.Name == "mt5bridge" {
		cfg.App.Name = appName
	}

	return cfg, nil
}
