package executor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afeldman/ai-runtime/internal/tensor"
	"github.com/afeldman/ai-runtime/internal/types"
)

func onnxConfig() types.ModelConfig {
	return types.ModelConfig{
		Backend:      "onnx",
		Device:       "cpu",
		ModelPath:    "models/reference.onnx",
		InputShapes:  [][]int{{2, 4}},
		OutputShapes: [][]int{{2, 3}},
	}
}

func TestNewReferenceExecutorDeterministic(t *testing.T) {
	cfg := onnxConfig()
	e1, err := newReferenceExecutor("onnx", cfg)
	require.NoError(t, err)
	e2, err := newReferenceExecutor("onnx", cfg)
	require.NoError(t, err)

	x := tensor.New([]int{2, 4}, []float32{1, 2, 3, 4, 5, 6, 7, 8})

	out1, err := e1.Infer(context.Background(), x)
	require.NoError(t, err)
	out2, err := e2.Infer(context.Background(), x)
	require.NoError(t, err)

	assert.Equal(t, out1.Data, out2.Data, "same model path must yield reproducible weights")
}

func TestReferenceExecutorInferShapes(t *testing.T) {
	cfg := onnxConfig()
	e, err := newReferenceExecutor("onnx", cfg)
	require.NoError(t, err)

	x := tensor.New([]int{2, 4}, []float32{1, 2, 3, 4, 5, 6, 7, 8})
	out, err := e.Infer(context.Background(), x)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, out.Shape)
}

func TestReferenceExecutorRejectsWrongInputShape(t *testing.T) {
	cfg := onnxConfig()
	e, err := newReferenceExecutor("onnx", cfg)
	require.NoError(t, err)

	bad := tensor.New([]int{2, 5}, []float32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})
	_, err = e.Infer(context.Background(), bad)
	assert.Error(t, err)
}

func TestNewReferenceExecutorRejectsDegenerateShapes(t *testing.T) {
	cfg := onnxConfig()
	cfg.InputShapes = [][]int{{2}}
	_, err := newReferenceExecutor("onnx", cfg)
	assert.Error(t, err)
}

func TestReferenceExecutorName(t *testing.T) {
	e, err := newReferenceExecutor("tensorrt", onnxConfig())
	require.NoError(t, err)
	assert.Equal(t, "tensorrt", e.Name())
	assert.NoError(t, e.Close())
}
