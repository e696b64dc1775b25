package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the Prometheus collectors the data plane updates.
type Metrics struct {
	BatchesEmitted   *prometheus.CounterVec
	BatchSize        *prometheus.HistogramVec
	BatchActualLen   *prometheus.HistogramVec
	InferDuration    *prometheus.HistogramVec
	SinkDuration     *prometheus.HistogramVec
	SinkWrites       *prometheus.CounterVec
	WorkerErrors     *prometheus.CounterVec
	DispatcherQueued prometheus.Gauge
}

// NewMetrics registers the runtime's collectors against reg. Passing
// a fresh prometheus.NewRegistry() in tests avoids collisions with
// the default global registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		BatchesEmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ai_runtime",
			Name:      "batches_emitted_total",
			Help:      "Total batches emitted by the dynamic batcher, by worker.",
		}, []string{"worker"}),
		BatchSize: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ai_runtime",
			Name:      "batch_size",
			Help:      "Leading dimension of emitted batches.",
			Buckets:   prometheus.LinearBuckets(1, 4, 8),
		}, []string{"worker"}),
		BatchActualLen: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ai_runtime",
			Name:      "batch_actual_len",
			Help:      "Number of real (non-padding) jobs per emitted batch.",
			Buckets:   prometheus.LinearBuckets(1, 4, 8),
		}, []string{"worker"}),
		InferDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ai_runtime",
			Name:      "infer_duration_seconds",
			Help:      "Executor infer() call latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"worker", "backend"}),
		SinkDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ai_runtime",
			Name:      "sink_write_duration_seconds",
			Help:      "Sink store_json call latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"worker"}),
		SinkWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ai_runtime",
			Name:      "sink_writes_total",
			Help:      "Total result records written to the sink, by outcome.",
		}, []string{"worker", "outcome"}),
		WorkerErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ai_runtime",
			Name:      "worker_errors_total",
			Help:      "Fatal worker errors, by class.",
		}, []string{"worker", "class"}),
		DispatcherQueued: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "ai_runtime",
			Name:      "dispatcher_main_queue_depth",
			Help:      "Current depth of the dispatcher's main input queue.",
		}),
	}
}
