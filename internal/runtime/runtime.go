// Package runtime wires one dispatcher to N workers, provisions the
// sink and transform pipeline from configuration, and drains cleanly
// on shutdown.
package runtime

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/afeldman/ai-runtime/internal/config"
	"github.com/afeldman/ai-runtime/internal/dispatcher"
	"github.com/afeldman/ai-runtime/internal/executor"
	"github.com/afeldman/ai-runtime/internal/observability"
	"github.com/afeldman/ai-runtime/internal/pipeline"
	"github.com/afeldman/ai-runtime/internal/sink"
	"github.com/afeldman/ai-runtime/internal/types"
	"github.com/afeldman/ai-runtime/internal/worker"
)

// Runtime owns the dispatcher, worker pool, sink, and transform
// pipeline for one process lifetime.
type Runtime struct {
	cfg        *config.Config
	dispatcher *dispatcher.Dispatcher
	workers    []*worker.Worker
	sink       *sink.Sink
	plCloser   io.Closer
	dead       atomic.Bool
}

// New constructs a Runtime from validated configuration. It
// provisions the sink, builds the transform pipeline, and creates one
// Executor per worker: N = len(gpu_ids) on GPU devices, 1 on CPU.
func New(ctx context.Context, cfg *config.Config, metrics *observability.Metrics, logger observability.Logger) (*Runtime, error) {
	if logger == nil {
		logger = observability.NoopLogger{}
	}

	sk, err := sink.New(sink.Config{
		URL:           cfg.RedisURL,
		OutPrefix:     cfg.OutPrefix,
		OutDataCap:    cfg.OutDataCap,
		DialTimeoutMs: cfg.DialTimeoutMs,
		PoolSize:      cfg.PoolSize,
	}, logger.WithPrefix("sink"))
	if err != nil {
		return nil, fmt.Errorf("runtime: provisioning sink: %w", err)
	}

	pl, plCloser, err := pipeline.Build(cfg.PreScript, cfg.PostScript)
	if err != nil {
		_ = sk.Close()
		return nil, fmt.Errorf("runtime: building transform pipeline: %w", err)
	}

	n := cfg.WorkerCount()
	d := dispatcher.New(n, metrics, logger.WithPrefix("dispatcher"))

	workers := make([]*worker.Worker, 0, n)
	maxBatch := cfg.Queue.Clamp(cfg.Input.Batch)
	for i := 0; i < n; i++ {
		deviceID := cfg.DeviceForWorker(i)
		device := "cpu"
		if deviceID >= 0 {
			device = fmt.Sprintf("gpu:%d", deviceID)
		}

		exec, err := executor.Create(ctx, cfg.Model, deviceID)
		if err != nil {
			_ = plCloser.Close()
			_ = sk.Close()
			return nil, fmt.Errorf("runtime: creating executor for worker %d (%s): %w", i, device, err)
		}

		workers = append(workers, worker.New(
			i, device, cfg.Input, maxBatch, cfg.Queue.MaxWaitMs,
			d.WorkerQueue(i), exec, pl, sk, metrics, logger.WithPrefix(fmt.Sprintf("worker-%d", i)),
		))
	}

	return &Runtime{cfg: cfg, dispatcher: d, workers: workers, sink: sk, plCloser: plCloser}, nil
}

// Submit returns the producer-facing queue. Closing it begins
// graceful shutdown: the dispatcher drains it, closes each worker
// queue, and every worker exits once its own queue drains.
func (r *Runtime) Submit() chan<- types.Job { return r.dispatcher.Submit() }

// Run starts the dispatcher and all workers, then blocks until every
// worker has exited. It returns the first non-nil worker error, if
// any, only after every worker has been joined — no worker is left
// running unobserved.
func (r *Runtime) Run(ctx context.Context) error {
	go r.dispatcher.Run(ctx)

	var wg sync.WaitGroup
	errs := make([]error, len(r.workers))
	for i, w := range r.workers {
		wg.Add(1)
		go func(i int, w *worker.Worker) {
			defer wg.Done()
			errs[i] = w.Run(ctx)
		}(i, w)
	}
	wg.Wait()
	r.dead.Store(true)

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// Alive reports whether Run is still in progress (or has not yet been
// called). It satisfies httpserver.Checker.
func (r *Runtime) Alive() bool { return !r.dead.Load() }

// Close releases the sink connection pool and any loaded transform
// interpreters. Call after Run returns.
func (r *Runtime) Close() error {
	var first error
	if err := r.plCloser.Close(); err != nil {
		first = err
	}
	if err := r.sink.Close(); err != nil && first == nil {
		first = err
	}
	return first
}
