// Package sink implements the result sink adapter: a thin,
// concurrency-safe client that serialises a result record and writes
// it under a prefixed key in Redis.
package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/afeldman/ai-runtime/internal/observability"
	"github.com/afeldman/ai-runtime/internal/types"
)

// Config configures the Redis-backed sink's connection tuning.
type Config struct {
	URL           string
	OutPrefix     string
	OutDataCap    int
	DialTimeoutMs int
	PoolSize      int
}

// Sink writes result records to Redis. It is cheap to use from many
// goroutines concurrently: the underlying redis.Client already pools
// connections, and the circuit breaker/backoff wrapping is stateless
// per call beyond the breaker's own internal counters.
type Sink struct {
	client     *redis.Client
	outPrefix  string
	outDataCap int
	breaker    *gobreaker.CircuitBreaker
	logger     observability.Logger
}

// New builds a Sink from cfg. It does not eagerly connect; the first
// StoreJSON call establishes the connection pool.
func New(cfg Config, logger observability.Logger) (*Sink, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("sink: parsing redis url: %w", err)
	}
	if cfg.DialTimeoutMs > 0 {
		opts.DialTimeout = time.Duration(cfg.DialTimeoutMs) * time.Millisecond
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "ai-runtime-sink",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	if logger == nil {
		logger = observability.NoopLogger{}
	}

	outDataCap := cfg.OutDataCap
	if outDataCap <= 0 {
		outDataCap = 256
	}

	return &Sink{
		client:     redis.NewClient(opts),
		outPrefix:  cfg.OutPrefix,
		outDataCap: outDataCap,
		breaker:    breaker,
		logger:     logger,
	}, nil
}

// OutDataCap returns the configured result-payload truncation knob.
func (s *Sink) OutDataCap() int { return s.outDataCap }

// Close releases the underlying connection pool.
func (s *Sink) Close() error {
	return s.client.Close()
}

// key builds the "<out_prefix>:<job_id>" storage key.
func (s *Sink) key(jobID string) string {
	return fmt.Sprintf("%s:%s", s.outPrefix, jobID)
}

// StoreJSON serialises value and writes it under "<out_prefix>:<id>",
// retrying transient failures with exponential backoff behind a
// circuit breaker. Once retries are exhausted the returned error is
// fatal for the current batch.
func (s *Sink) StoreJSON(ctx context.Context, jobID string, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("sink: marshalling result for %s: %w", jobID, err)
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)

	op := func() error {
		_, err := s.breaker.Execute(func() (interface{}, error) {
			return nil, s.client.Set(ctx, s.key(jobID), payload, 0).Err()
		})
		if err != nil {
			s.logger.Warn("sink write failed, may retry", map[string]interface{}{"job_id": jobID, "error": err.Error()})
		}
		return err
	}

	if err := backoff.Retry(op, bo); err != nil {
		return fmt.Errorf("sink: storing result for %s: %w", jobID, err)
	}
	return nil
}

// RecordFor builds the stored result record for one sample,
// truncating data to the configured cap.
func RecordFor(id string, shape []int, data []float32, cap int) types.ResultRecord {
	if cap > 0 && len(data) > cap {
		data = data[:cap]
	}
	return types.ResultRecord{
		ID:        id,
		Timestamp: time.Now().UTC(),
		Shape:     shape,
		Data:      data,
	}
}
