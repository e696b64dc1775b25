package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/afeldman/ai-runtime/internal/config"
	"github.com/afeldman/ai-runtime/internal/httpserver"
	"github.com/afeldman/ai-runtime/internal/observability"
	"github.com/afeldman/ai-runtime/internal/runtime"
	"github.com/afeldman/ai-runtime/internal/tensor"
	"github.com/afeldman/ai-runtime/internal/types"
)

var (
	configPath  = flag.String("config", "runtime.toml", "Path to the runtime configuration file")
	warmupScale = flag.Int("warmup-factor", 4, "Number of synthetic warm-up batches to self-seed, as a multiple of input.batch")
)

func main() {
	flag.Parse()

	logger := observability.NewStandardLogger("ai-runtime", os.Getenv("LOG_LEVEL"))

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load configuration", map[string]interface{}{"path": *configPath, "error": err.Error()})
		os.Exit(1)
	}
	if cfg.LogLevel != "" {
		logger = observability.NewStandardLogger("ai-runtime", cfg.LogLevel)
	}

	logger.Info("starting runtime", map[string]interface{}{
		"backend": cfg.Model.Backend,
		"device":  cfg.Model.Device,
		"batch":   cfg.Input.Batch,
		"workers": cfg.WorkerCount(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		ServiceName:  "ai-runtime",
		OTLPEndpoint: cfg.OTLPEndpoint,
		SamplerRatio: 1.0,
	})
	if err != nil {
		logger.Error("failed to initialise tracing", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("tracing shutdown failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	rt, err := runtime.New(ctx, cfg, metrics, logger)
	if err != nil {
		logger.Error("failed to build runtime", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Warn("runtime close failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	var httpSrv *httpserver.Server
	if cfg.MetricsAddr != "" {
		httpSrv = httpserver.New(cfg.MetricsAddr, registry, rt)
		go func() {
			if err := httpSrv.Run(ctx); err != nil && err != http.ErrServerClosed {
				logger.Warn("http server exited", map[string]interface{}{"error": err.Error()})
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", map[string]interface{}{"signal": sig.String()})
		cancel()
	}()

	seedWarmupJobs(rt, cfg.Input, *warmupScale, logger)

	runErr := rt.Run(ctx)
	if runErr != nil {
		logger.Error("runtime exited with error", map[string]interface{}{"error": runErr.Error()})
		os.Exit(1)
	}
	logger.Info("runtime drained cleanly", nil)
}

// seedWarmupJobs pushes a batch of synthetic zero-valued jobs onto the
// runtime's input queue, then closes it. Without an external job
// producer this is the only way the binary exercises its own data
// plane end to end. With warmup-factor 0 no jobs are pushed, but the
// queue is still closed, so the runtime drains and exits at once.
func seedWarmupJobs(rt *runtime.Runtime, spec types.InputSpec, factor int, logger observability.Logger) {
	submit := rt.Submit()
	defer close(submit)

	if factor <= 0 {
		return
	}

	n := spec.Batch * factor
	logger.Info("self-seeding warm-up jobs", map[string]interface{}{"count": n})
	for k := 0; k < n; k++ {
		submit <- types.Job{
			ID:     fmt.Sprintf("warmup-%s", uuid.NewString()),
			Tensor: tensor.Zeros(spec.SampleShape()),
		}
	}
}
