// Package batcher implements the dynamic batcher: the core scheduling
// primitive that turns a stream of single-sample jobs into
// fixed-size batches with a latency deadline.
package batcher

import (
	"context"
	"fmt"
	"time"

	"github.com/afeldman/ai-runtime/internal/tensor"
	"github.com/afeldman/ai-runtime/internal/types"
)

// CollectBatch blocks until either a first job arrives on queue or
// queue is closed. Once a first job has arrived, it collects further
// jobs until max_batch real jobs have been seen, max_wait_ms has
// elapsed since the first job, or queue closes — whichever comes
// first, with the deadline winning any tie. The real jobs are then
// padded with zero-valued DUMMY samples up to specN and stacked into
// one Batch.
//
// A nil, nil return means end-of-stream: queue closed with nothing
// pending. This is normal termination, not an error.
func CollectBatch(ctx context.Context, specN int, queue <-chan types.Job, maxBatch int, maxWaitMs int64) (*types.Batch, error) {
	if specN < 1 {
		return nil, fmt.Errorf("batcher: specN must be >= 1, got %d", specN)
	}
	if maxBatch < 1 || maxBatch > specN {
		return nil, fmt.Errorf("batcher: maxBatch must be in [1, %d], got %d", specN, maxBatch)
	}

	ids := make([]string, 0, maxBatch)
	items := make([]tensor.Tensor, 0, maxBatch)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case first, ok := <-queue:
		if !ok {
			return nil, nil
		}
		ids = append(ids, first.ID)
		items = append(items, first.Tensor)
	}

	timer := time.NewTimer(time.Duration(maxWaitMs) * time.Millisecond)
	defer timer.Stop()

collect:
	for len(ids) < maxBatch {
		// Biased check: if the deadline already fired, it wins over
		// a simultaneously-ready receive.
		select {
		case <-timer.C:
			break collect
		default:
		}

		select {
		case <-timer.C:
			break collect
		case job, ok := <-queue:
			if !ok {
				break collect
			}
			ids = append(ids, job.ID)
			items = append(items, job.Tensor)
		}
	}

	actualLen := len(items)
	sampleShape := items[0].Shape
	for len(items) < specN {
		items = append(items, tensor.Zeros(sampleShape))
		ids = append(ids, fmt.Sprintf("DUMMY-%d", len(items)))
	}

	stacked, err := tensor.Stack(items...)
	if err != nil {
		return nil, fmt.Errorf("batcher: stacking batch: %w", err)
	}
	// Job tensors carry a leading dim of 1 ([1, C, H, W]); fold it into
	// the batch axis so the result is [specN, C, H, W].
	if len(stacked.Shape) >= 2 && stacked.Shape[1] == 1 {
		stacked.Shape = append([]int{stacked.Shape[0]}, stacked.Shape[2:]...)
	}
	if stacked.Shape[0] != specN {
		return nil, fmt.Errorf("batcher: stacked batch leading dim %d does not match specN %d", stacked.Shape[0], specN)
	}

	return &types.Batch{IDs: ids, Tensor: stacked, ActualLen: actualLen}, nil
}
