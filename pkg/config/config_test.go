package config

import (
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		App:     AppConfig{Name: "test-bridge"},
		Conn:    ConnConfig{Host: "127.0.0.1", GRPCPort: 18812},
		Log:     LogConfig{Level: "info"},
		Retry:   RetryConfig{MaxAttempts: 5, ExponentialBase: 2.0},
		Breaker: BreakerConfig{Threshold: 5, HalfOpenMax: 2},
		Queue:   QueueConfig{MaxConcurrent: 8, MaxDepth: 256},
		WAL:     WALConfig{Path: "test.wal.db"},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid config", mutate: func(c *Config) {}, wantErr: false},
		{name: "missing app name", mutate: func(c *Config) { c.App.Name = "" }, wantErr: true},
		{name: "missing host", mutate: func(c *Config) { c.Conn.Host = "" }, wantErr: true},
		{name: "bad port", mutate: func(c *Config) { c.Conn.GRPCPort = 70000 }, wantErr: true},
		{name: "bad log level", mutate: func(c *Config) { c.Log.Level = "verbose" }, wantErr: true},
		{name: "zero retry attempts", mutate: func(c *Config) { c.Retry.MaxAttempts = 0 }, wantErr: true},
		{name: "bad exponential base", mutate: func(c *Config) { c.Retry.ExponentialBase = 1.0 }, wantErr: true},
		{name: "zero breaker threshold", mutate: func(c *Config) { c.Breaker.Threshold = 0 }, wantErr: true},
		{name: "zero queue concurrency", mutate: func(c *Config) { c.Queue.MaxConcurrent = 0 }, wantErr: true},
		{name: "missing wal path", mutate: func(c *Config) { c.WAL.Path = "" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_EnvironmentHelpers(t *testing.T) {
	cfg := &Config{App: AppConfig{Environment: "development"}}
	if !cfg.IsDevelopment() {
		t.Error("expected IsDevelopment true")
	}
	if cfg.IsProduction() {
		t.Error("expected IsProduction false")
	}

	cfg.App.Environment = "production"
	if !cfg.IsProduction() {
		t.Error("expected IsProduction true")
	}
}

func TestRetryConfig_DelayFor(t *testing.T) {
	r := RetryConfig{
		InitialDelay:    100 * time.Millisecond,
		MaxDelay:        1 * time.Second,
		ExponentialBase: 2.0,
		Jitter:          false,
	}

	got := r.DelayFor(0)
	if got != 100*time.Millisecond {
		t.Errorf("DelayFor(0) = %v, want 100ms", got)
	}

	got = r.DelayFor(10) // way past the cap
	if got != 1*time.Second {
		t.Errorf("DelayFor(10) = %v, want capped at 1s", got)
	}
}

func TestRetryConfig_DelayFor_Jitter(t *testing.T) {
	r := RetryConfig{
		InitialDelay:    100 * time.Millisecond,
		MaxDelay:        10 * time.Second,
		ExponentialBase: 2.0,
		Jitter:          true,
	}

	for i := 0; i < 50; i++ {
		got := r.DelayFor(1) // base delay 200ms
		if got < 100*time.Millisecond || got > 300*time.Millisecond {
			t.Errorf("DelayFor(1) with jitter = %v, out of [0.5x,1.5x] bounds", got)
		}
	}
}

func TestRetryConfig_CriticalDelayFor_Defaults(t *testing.T) {
	r := RetryConfig{
		MaxDelay:        20 * time.Second,
		ExponentialBase: 2.0,
	}

	got := r.CriticalDelayFor(0)
	if got != 100*time.Millisecond {
		t.Errorf("CriticalDelayFor(0) = %v, want default 100ms initial", got)
	}
}

func TestConnConfig_Address(t *testing.T) {
	c := ConnConfig{Host: "127.0.0.1", GRPCPort: 18812}
	if got := c.Address(); got != "127.0.0.1:18812" {
		t.Errorf("Address() = %q", got)
	}
}
