// Package worker implements the per-device worker loop: own one
// executor, repeatedly build a batch, run the inference pipeline,
// and emit results.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/afeldman/ai-runtime/internal/batcher"
	"github.com/afeldman/ai-runtime/internal/executor"
	"github.com/afeldman/ai-runtime/internal/observability"
	"github.com/afeldman/ai-runtime/internal/pipeline"
	"github.com/afeldman/ai-runtime/internal/rterrors"
	"github.com/afeldman/ai-runtime/internal/sink"
	"github.com/afeldman/ai-runtime/internal/tensor"
	"github.com/afeldman/ai-runtime/internal/types"
)

// Worker owns one Executor and drives batch -> pre -> infer -> post ->
// sink for as long as its input queue stays open.
type Worker struct {
	ID     int
	Device string

	spec     types.InputSpec
	maxBatch int
	maxWait  int64

	in       <-chan types.Job
	exec     executor.Executor
	pipeline *pipeline.Pipeline
	sink     *sink.Sink

	metrics *observability.Metrics
	logger  observability.Logger
	tracer  trace.Tracer
}

// New builds a Worker. maxBatch must already be clamped to the input
// spec's batch size.
func New(id int, device string, spec types.InputSpec, maxBatch int, maxWaitMs int64, in <-chan types.Job, exec executor.Executor, pl *pipeline.Pipeline, sk *sink.Sink, metrics *observability.Metrics, logger observability.Logger) *Worker {
	if logger == nil {
		logger = observability.NoopLogger{}
	}
	return &Worker{
		ID: id, Device: device,
		spec: spec, maxBatch: maxBatch, maxWait: maxWaitMs,
		in: in, exec: exec, pipeline: pl, sink: sk,
		metrics: metrics, logger: logger,
		tracer: observability.Tracer("ai-runtime/worker"),
	}
}

func (w *Worker) label() string { return strconv.Itoa(w.ID) }

// Run drives the worker loop until the input queue closes (clean
// exit, nil error) or a fatal error occurs.
func (w *Worker) Run(ctx context.Context) error {
	defer func() {
		if err := w.exec.Close(); err != nil {
			w.logger.Warn("executor close failed", map[string]interface{}{"worker": w.ID, "error": err.Error()})
		}
	}()

	for {
		batch, err := w.collectBatch(ctx)
		if err != nil {
			cerr := rterrors.Wrap(err, rterrors.ClassProducerContract, "collect_batch", w.ID, w.Device)
			w.countError(cerr)
			return cerr
		}
		if batch == nil {
			return nil // end of stream: clean exit
		}

		if err := w.processBatch(ctx, batch); err != nil {
			w.countError(err)
			return err
		}
	}
}

// collectBatch wraps batch assembly in a span so slow producers or
// deadline cutoffs are visible in a trace alongside the rest of the
// pipeline.
func (w *Worker) collectBatch(ctx context.Context) (batch *types.Batch, err error) {
	ctx, span := w.tracer.Start(ctx, "worker.collect_batch", trace.WithAttributes(
		attribute.String("worker.id", w.label()),
		attribute.String("worker.device", w.Device),
	))
	defer func() { endSpan(span, err) }()

	batch, err = batcher.CollectBatch(ctx, w.spec.Batch, w.in, w.maxBatch, w.maxWait)
	if batch != nil {
		span.SetAttributes(attribute.Int("batch.actual_len", batch.ActualLen))
	}
	return batch, err
}

func (w *Worker) processBatch(ctx context.Context, batch *types.Batch) (err error) {
	ctx, span := w.tracer.Start(ctx, "worker.process_batch", trace.WithAttributes(
		attribute.String("worker.id", w.label()),
		attribute.String("worker.device", w.Device),
		attribute.Int("batch.actual_len", batch.ActualLen),
		attribute.Int("batch.size", len(batch.IDs)),
	))
	defer func() { endSpan(span, err) }()

	if w.metrics != nil {
		w.metrics.BatchesEmitted.WithLabelValues(w.label()).Inc()
		w.metrics.BatchSize.WithLabelValues(w.label()).Observe(float64(len(batch.IDs)))
		w.metrics.BatchActualLen.WithLabelValues(w.label()).Observe(float64(batch.ActualLen))
	}

	x, err := w.runPre(ctx, batch)
	if err != nil {
		return err
	}

	y, err := w.runInfer(ctx, x, batch)
	if err != nil {
		return err
	}

	y, err = w.runPost(ctx, y, batch)
	if err != nil {
		return err
	}

	if y.Shape[0] != len(batch.IDs) {
		err = rterrors.Wrap(fmt.Errorf("output leading dim %d does not match %d ids", y.Shape[0], len(batch.IDs)),
			rterrors.ClassExecutor, "output_shape", w.ID, w.Device).WithBatchSize(len(batch.IDs))
		return err
	}

	return w.writeSink(ctx, y, batch)
}

func (w *Worker) runPre(ctx context.Context, batch *types.Batch) (x tensor.Tensor, err error) {
	_, span := w.tracer.Start(ctx, "worker.preprocess")
	defer func() { endSpan(span, err) }()

	x, err = w.pipeline.RunPre(batch.Tensor)
	if err != nil {
		return x, rterrors.Wrap(fmt.Errorf("preprocessor: %w", err), rterrors.ClassProducerContract, "preprocess", w.ID, w.Device).WithBatchSize(len(batch.IDs))
	}
	if err := validateBatchShape(w.spec, x); err != nil {
		return x, rterrors.Wrap(err, rterrors.ClassProducerContract, "validate_preprocessed", w.ID, w.Device).WithBatchSize(len(batch.IDs))
	}
	return x, nil
}

func (w *Worker) runInfer(ctx context.Context, x tensor.Tensor, batch *types.Batch) (y tensor.Tensor, err error) {
	ctx, span := w.tracer.Start(ctx, "worker.infer", trace.WithAttributes(
		attribute.String("executor.name", w.exec.Name()),
	))
	defer func() { endSpan(span, err) }()

	inferStart := time.Now()
	y, err = w.exec.Infer(ctx, x)
	if w.metrics != nil {
		w.metrics.InferDuration.WithLabelValues(w.label(), w.exec.Name()).Observe(time.Since(inferStart).Seconds())
	}
	if err != nil {
		return y, rterrors.Wrap(fmt.Errorf("infer: %w", err), rterrors.ClassExecutor, "infer", w.ID, w.Device).WithBatchSize(len(batch.IDs))
	}
	return y, nil
}

func (w *Worker) runPost(ctx context.Context, y tensor.Tensor, batch *types.Batch) (out tensor.Tensor, err error) {
	_, span := w.tracer.Start(ctx, "worker.postprocess")
	defer func() { endSpan(span, err) }()

	out, err = w.pipeline.RunPost(y)
	if err != nil {
		return out, rterrors.Wrap(fmt.Errorf("postprocessor: %w", err), rterrors.ClassProducerContract, "postprocess", w.ID, w.Device).WithBatchSize(len(batch.IDs))
	}
	return out, nil
}

func (w *Worker) writeSink(ctx context.Context, y tensor.Tensor, batch *types.Batch) (err error) {
	ctx, span := w.tracer.Start(ctx, "worker.sink_write", trace.WithAttributes(
		attribute.Int("batch.actual_len", batch.ActualLen),
	))
	defer func() { endSpan(span, err) }()

	for i := 0; i < batch.ActualLen; i++ {
		id := batch.IDs[i]
		sample := y.Slice(i)
		record := sink.RecordFor(id, sample.Shape, sample.Data, w.sink.OutDataCap())

		sinkStart := time.Now()
		werr := w.sink.StoreJSON(ctx, id, record)
		if w.metrics != nil {
			w.metrics.SinkDuration.WithLabelValues(w.label()).Observe(time.Since(sinkStart).Seconds())
		}
		if werr != nil {
			if w.metrics != nil {
				w.metrics.SinkWrites.WithLabelValues(w.label(), "error").Inc()
			}
			err = rterrors.Wrap(fmt.Errorf("sink write for %s: %w", id, werr), rterrors.ClassSink, "store_json", w.ID, w.Device).WithBatchSize(len(batch.IDs))
			return err
		}
		if w.metrics != nil {
			w.metrics.SinkWrites.WithLabelValues(w.label(), "ok").Inc()
		}
	}

	return nil
}

// endSpan records err on span, if any, and closes it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (w *Worker) countError(err error) {
	if w.metrics == nil {
		return
	}
	class := "unknown"
	if ce, ok := err.(*rterrors.Classified); ok {
		class = ce.Class.String()
	}
	w.metrics.WorkerErrors.WithLabelValues(w.label(), class).Inc()
}

func validateBatchShape(spec types.InputSpec, t tensor.Tensor) error {
	want := spec.BatchShape()
	got := t.Shape
	if len(got) != len(want) {
		return fmt.Errorf("preprocessed tensor rank %d does not match spec rank %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			return fmt.Errorf("preprocessed tensor shape %v does not match spec batch shape %v", got, want)
		}
	}
	return nil
}
