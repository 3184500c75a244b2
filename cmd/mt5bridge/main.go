package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mt5bridge/pkg/config"
	"mt5bridge/pkg/logger"
	"mt5bridge/pkg/metrics"
	"mt5bridge/pkg/mt5"
	"mt5bridge/pkg/telemetry"
)

func main() {
	host := flag.String("host", "", "terminal gRPC host (overrides connection.host)")
	port := flag.Int("port", 0, "terminal gRPC port (overrides connection.grpc_port)")
	flag.Parse()

	cfg, err := config.LoadWithServiceDefaults("mt5bridge", 18812)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *host != "" {
		cfg.Conn.Host = *host
	}
	if *port != 0 {
		cfg.Conn.GRPCPort = *port
	}

	logger.InitWithConfig(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		FilePath:   cfg.Log.FilePath,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})

	ctx := context.Background()

	if cfg.Tracing.Enabled {
		tp, err := telemetry.Init(ctx, telemetry.Config{
			Enabled:     cfg.Tracing.Enabled,
			Endpoint:    cfg.Tracing.Endpoint,
			ServiceName: cfg.App.Name,
			Version:     cfg.App.Version,
			Environment: cfg.App.Environment,
			SampleRate:  cfg.Tracing.SampleRate,
		})
		if err != nil {
			logger.Warn("failed to init telemetry", "error", err)
		} else {
			defer func() {
				if err := tp.Shutdown(context.Background()); err != nil {
					logger.Warn("failed to shutdown telemetry", "error", err)
				}
			}()
		}
	}

	m := metrics.InitMetrics(cfg.Metrics.Namespace, cfg.Metrics.Subsystem)
	m.SetServiceInfo(cfg.App.Version, cfg.App.Environment)

	if cfg.Metrics.Enabled {
		go func() {
			if err := metrics.StartMetricsServer(cfg.Metrics.Port); err != nil {
				logger.Warn("metrics server stopped", "error", err)
			}
		}()
	}

	client, err := mt5.New(*cfg, m)
	if err != nil {
		logger.Fatal("failed to build mt5 client", "error", err)
	}

	if err := client.Connect(ctx); err != nil {
		logger.Fatal("failed to connect to terminal", "error", err)
	}

	logger.Info("mt5bridge connected to terminal",
		"address", cfg.Conn.Address(),
		"environment", cfg.App.Environment,
		"version", cfg.App.Version,
	)

	waitForShutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := client.Shutdown(shutdownCtx); err != nil {
		logger.Warn("terminal shutdown call failed", "error", err)
	}
	if err := client.Disconnect(); err != nil {
		logger.Warn("disconnect failed", "error", err)
	}

	logger.Info("mt5bridge stopped cleanly")
}

func waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info("received shutdown signal", "signal", sig)
}
