package executor

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/afeldman/ai-runtime/internal/tensor"
	"github.com/afeldman/ai-runtime/internal/types"
)

// referenceExecutor is a deterministic, CPU-bound stand-in for a real
// inference session. It performs a single dense projection from the
// declared input shape to the declared output shape, with weights
// derived deterministically from the model path and backend tag so
// repeated runs against the same config are reproducible, without
// depending on a native ONNX/TensorRT/Torch/TensorFlow runtime.
//
// onnx, tensorrt, torch, and tensorflow all share this implementation,
// differing only in their name tag and device validation.
type referenceExecutor struct {
	mu sync.Mutex

	name   string
	device string

	inShape  []int
	outShape []int

	weights *mat.Dense // [outFeatures x inFeatures]
}

func newReferenceExecutor(name string, cfg types.ModelConfig) (*referenceExecutor, error) {
	if len(cfg.InputShapes) == 0 || len(cfg.OutputShapes) == 0 {
		return nil, fmt.Errorf("executor: %s requires at least one input and one output shape", name)
	}

	inShape := cfg.InputShapes[0]
	outShape := cfg.OutputShapes[0]
	if len(inShape) < 2 || len(outShape) < 2 {
		return nil, fmt.Errorf("executor: %s has degenerate per-sample shape (in=%v out=%v)", name, inShape, outShape)
	}

	inFeatures := numelFrom(inShape[1:])
	outFeatures := numelFrom(outShape[1:])
	if inFeatures == 0 || outFeatures == 0 {
		return nil, fmt.Errorf("executor: %s has degenerate per-sample shape (in=%v out=%v)", name, inShape, outShape)
	}

	weights := mat.NewDense(outFeatures, inFeatures, nil)
	seed := deterministicSeed(name + ":" + cfg.ModelPath)
	rng := rand.New(rand.NewSource(seed))
	for i := 0; i < outFeatures; i++ {
		for j := 0; j < inFeatures; j++ {
			weights.Set(i, j, rng.Float64()*2-1)
		}
	}

	return &referenceExecutor{
		name:     name,
		device:   cfg.Device,
		inShape:  inShape,
		outShape: outShape,
		weights:  weights,
	}, nil
}

func deterministicSeed(s string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return int64(h.Sum64())
}

func numelFrom(dims []int) int {
	n := 1
	for _, d := range dims {
		n *= d
	}
	return n
}

func (e *referenceExecutor) Name() string { return e.name }

func (e *referenceExecutor) Infer(_ context.Context, x tensor.Tensor) (tensor.Tensor, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := validateShape(e.name+" input", x.Shape, e.inShape); err != nil {
		return tensor.Tensor{}, err
	}

	batchN := x.Shape[0]
	outF, inF := e.weights.Dims()

	in := mat.NewDense(batchN, inF, toFloat64(x.Data))
	wT := e.weights.T()

	out := mat.NewDense(batchN, outF, nil)
	out.Mul(in, wT)

	outData := make([]float32, batchN*outF)
	for i := 0; i < batchN; i++ {
		for j := 0; j < outF; j++ {
			outData[i*outF+j] = float32(out.At(i, j))
		}
	}

	result := tensor.New(append([]int(nil), e.outShape...), outData)
	if err := validateShape(e.name+" output", result.Shape, e.outShape); err != nil {
		return tensor.Tensor{}, err
	}
	return result, nil
}

func (e *referenceExecutor) Close() error { return nil }

func toFloat64(in []float32) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}
