package batcher

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afeldman/ai-runtime/internal/tensor"
	"github.com/afeldman/ai-runtime/internal/types"
)

func sampleJob(id string) types.Job {
	return types.Job{ID: id, Tensor: tensor.New([]int{1, 2}, []float32{1, 2})}
}

func TestCollectBatchPadsSingleJob(t *testing.T) {
	queue := make(chan types.Job, 4)
	queue <- sampleJob("job-1")

	batch, err := CollectBatch(context.Background(), 4, queue, 4, 20)
	require.NoError(t, err)
	require.NotNil(t, batch)

	assert.Equal(t, 1, batch.ActualLen)
	assert.Equal(t, 4, batch.Tensor.Shape[0])
	assert.Len(t, batch.IDs, 4)
	assert.Equal(t, "job-1", batch.IDs[0])
	for _, id := range batch.IDs[1:] {
		assert.True(t, strings.HasPrefix(id, "DUMMY-"))
	}
}

func TestCollectBatchExactlyFull(t *testing.T) {
	queue := make(chan types.Job, 4)
	for i := 0; i < 4; i++ {
		queue <- sampleJob(fmt.Sprintf("job-%d", i))
	}

	batch, err := CollectBatch(context.Background(), 4, queue, 4, 1000)
	require.NoError(t, err)
	require.NotNil(t, batch)

	assert.Equal(t, 4, batch.ActualLen)
	assert.Equal(t, 4, batch.Tensor.Shape[0])
	for _, id := range batch.IDs {
		assert.False(t, strings.HasPrefix(id, "DUMMY-"))
	}
}

func TestCollectBatchStopsAtMaxBatch(t *testing.T) {
	queue := make(chan types.Job, 8)
	for i := 0; i < 8; i++ {
		queue <- sampleJob(fmt.Sprintf("job-%d", i))
	}

	batch, err := CollectBatch(context.Background(), 4, queue, 4, 1000)
	require.NoError(t, err)
	require.NotNil(t, batch)

	assert.Equal(t, 4, batch.ActualLen)
	assert.Len(t, batch.IDs, 4)
	assert.Len(t, queue, 4, "remaining jobs must stay queued for the next batch")
}

func TestCollectBatchDeadlineCutoff(t *testing.T) {
	queue := make(chan types.Job, 4)
	queue <- sampleJob("job-0")

	go func() {
		time.Sleep(30 * time.Millisecond)
		queue <- sampleJob("job-1")
	}()

	start := time.Now()
	batch, err := CollectBatch(context.Background(), 4, queue, 4, 10)
	elapsed := time.Since(start)
	require.NoError(t, err)
	require.NotNil(t, batch)

	assert.Equal(t, 1, batch.ActualLen)
	assert.Less(t, elapsed, 25*time.Millisecond)
}

func TestCollectBatchEndOfStream(t *testing.T) {
	queue := make(chan types.Job)
	close(queue)

	batch, err := CollectBatch(context.Background(), 4, queue, 4, 20)
	require.NoError(t, err)
	assert.Nil(t, batch)
}

func TestCollectBatchQueueClosedMidCollection(t *testing.T) {
	queue := make(chan types.Job, 4)
	queue <- sampleJob("job-0")
	queue <- sampleJob("job-1")
	close(queue)

	batch, err := CollectBatch(context.Background(), 4, queue, 4, 1000)
	require.NoError(t, err)
	require.NotNil(t, batch)

	assert.Equal(t, 2, batch.ActualLen)
	assert.Equal(t, 4, batch.Tensor.Shape[0])
}

func TestCollectBatchContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	queue := make(chan types.Job)
	_, err := CollectBatch(ctx, 4, queue, 4, 20)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCollectBatchRejectsInvalidSpecN(t *testing.T) {
	queue := make(chan types.Job, 1)
	_, err := CollectBatch(context.Background(), 0, queue, 1, 20)
	assert.Error(t, err)
}

func TestCollectBatchRejectsMaxBatchOutOfRange(t *testing.T) {
	queue := make(chan types.Job, 1)

	_, err := CollectBatch(context.Background(), 4, queue, 0, 20)
	assert.Error(t, err)

	_, err = CollectBatch(context.Background(), 4, queue, 5, 20)
	assert.Error(t, err)
}

func TestCollectBatchStackedShapeMatchesPaddedShape(t *testing.T) {
	queue := make(chan types.Job, 2)
	queue <- sampleJob("job-0")
	queue <- sampleJob("job-1")

	batch, err := CollectBatch(context.Background(), 3, queue, 3, 1000)
	require.NoError(t, err)

	assert.Equal(t, []int{3, 2}, batch.Tensor.Shape)
	assert.Equal(t, 2, batch.ActualLen)
}

func TestCollectBatchPaddingIsZeroValued(t *testing.T) {
	queue := make(chan types.Job, 1)
	queue <- sampleJob("job-0")

	batch, err := CollectBatch(context.Background(), 4, queue, 4, 20)
	require.NoError(t, err)

	for i := batch.ActualLen; i < 4; i++ {
		sample := batch.Tensor.Slice(i)
		for _, v := range sample.Data {
			assert.Equal(t, float32(0), v)
		}
	}
}

func TestCollectBatchOverflowSpansTwoBatches(t *testing.T) {
	queue := make(chan types.Job, 6)
	for i := 0; i < 6; i++ {
		queue <- sampleJob(fmt.Sprintf("j%d", i))
	}

	first, err := CollectBatch(context.Background(), 4, queue, 4, 10)
	require.NoError(t, err)
	assert.Equal(t, 4, first.ActualLen)
	assert.Equal(t, []string{"j0", "j1", "j2", "j3"}, first.IDs)

	second, err := CollectBatch(context.Background(), 4, queue, 4, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, second.ActualLen)
	assert.Equal(t, "j4", second.IDs[0])
	assert.Equal(t, "j5", second.IDs[1])
	assert.True(t, strings.HasPrefix(second.IDs[2], "DUMMY-"))
	assert.True(t, strings.HasPrefix(second.IDs[3], "DUMMY-"))
}

func TestCollectBatchRejectsMismatchedJobShapesInSameWindow(t *testing.T) {
	queue := make(chan types.Job, 2)
	queue <- types.Job{ID: "j0", Tensor: tensor.New([]int{1, 3, 64, 64}, make([]float32, 1*3*64*64))}
	queue <- types.Job{ID: "j1", Tensor: tensor.New([]int{1, 3, 32, 32}, make([]float32, 1*3*32*32))}

	_, err := CollectBatch(context.Background(), 4, queue, 4, 1000)
	assert.Error(t, err, "a batch mixing incompatible job shapes must fail before inference")
}

func TestCollectBatchZeroWaitWithSinglePendingJob(t *testing.T) {
	queue := make(chan types.Job, 1)
	queue <- sampleJob("job-0")

	batch, err := CollectBatch(context.Background(), 4, queue, 4, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, batch.ActualLen)
	assert.Equal(t, 4, batch.Tensor.Shape[0])
}
