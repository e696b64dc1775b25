// Package dispatcher implements the fan-out component: a single
// producer-facing queue that distributes jobs round-robin to N
// worker queues, terminating them on input close.
package dispatcher

import (
	"context"

	"github.com/afeldman/ai-runtime/internal/observability"
	"github.com/afeldman/ai-runtime/internal/types"
)

// MainQueueCapacity and WorkerQueueCapacity are the fixed queue
// bounds.
const (
	MainQueueCapacity   = 1024
	WorkerQueueCapacity = 512
)

// Dispatcher owns the single main input queue and N per-worker
// queues, forwarding jobs round-robin.
type Dispatcher struct {
	main    chan types.Job
	workers []chan types.Job
	metrics *observability.Metrics
	logger  observability.Logger
}

// New builds a Dispatcher for n workers. n must be >= 1.
func New(n int, metrics *observability.Metrics, logger observability.Logger) *Dispatcher {
	if logger == nil {
		logger = observability.NoopLogger{}
	}
	workers := make([]chan types.Job, n)
	for i := range workers {
		workers[i] = make(chan types.Job, WorkerQueueCapacity)
	}
	return &Dispatcher{
		main:    make(chan types.Job, MainQueueCapacity),
		workers: workers,
		metrics: metrics,
		logger:  logger,
	}
}

// Submit returns the producer-facing send channel. The caller closes
// this channel to begin graceful shutdown.
func (d *Dispatcher) Submit() chan<- types.Job { return d.main }

// WorkerQueue returns the i-th worker's single-consumer receive
// channel.
func (d *Dispatcher) WorkerQueue(i int) <-chan types.Job { return d.workers[i] }

// Run reads the main queue and forwards each job to worker i%n using
// a monotonically increasing counter, blocking if that worker's queue
// is full. When the main queue closes, Run closes every worker queue
// in turn and returns.
func (d *Dispatcher) Run(ctx context.Context) {
	n := len(d.workers)
	idx := 0
	defer func() {
		for _, w := range d.workers {
			close(w)
		}
	}()

	for {
		if d.metrics != nil {
			d.metrics.DispatcherQueued.Set(float64(len(d.main)))
		}
		select {
		case <-ctx.Done():
			return
		case job, ok := <-d.main:
			if !ok {
				return
			}
			target := idx % n
			idx++
			select {
			case d.workers[target] <- job:
			case <-ctx.Done():
				return
			}
		}
	}
}
