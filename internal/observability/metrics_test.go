package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsRegistersAllCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.BatchesEmitted.WithLabelValues("0").Inc()
	m.BatchSize.WithLabelValues("0").Observe(4)
	m.BatchActualLen.WithLabelValues("0").Observe(3)
	m.InferDuration.WithLabelValues("0", "onnx").Observe(0.01)
	m.SinkDuration.WithLabelValues("0").Observe(0.001)
	m.SinkWrites.WithLabelValues("0", "ok").Inc()
	m.WorkerErrors.WithLabelValues("0", "executor").Inc()
	m.DispatcherQueued.Set(7)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"ai_runtime_batches_emitted_total",
		"ai_runtime_batch_size",
		"ai_runtime_batch_actual_len",
		"ai_runtime_infer_duration_seconds",
		"ai_runtime_sink_write_duration_seconds",
		"ai_runtime_sink_writes_total",
		"ai_runtime_worker_errors_total",
		"ai_runtime_dispatcher_main_queue_depth",
	} {
		assert.True(t, names[want], "missing metric family %s", want)
	}
}
