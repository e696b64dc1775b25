// Package tensor implements the minimal dense float32 tensor type the
// data plane passes between batching, transforms, and executors.
package tensor

import "fmt"

// Tensor is a row-major, dense float32 array with an explicit shape.
type Tensor struct {
	Shape []int
	Data  []float32
}

// New builds a Tensor from an explicit shape and backing data. It does
// not copy data. Panics if the data length does not match the shape's
// element count, since this always indicates a caller bug.
func New(shape []int, data []float32) Tensor {
	n := numel(shape)
	if len(data) != n {
		panic(fmt.Sprintf("tensor: data length %d does not match shape %v (%d elements)", len(data), shape, n))
	}
	return Tensor{Shape: shape, Data: data}
}

// Zeros builds a zero-valued Tensor with the given shape.
func Zeros(shape []int) Tensor {
	return Tensor{Shape: append([]int(nil), shape...), Data: make([]float32, numel(shape))}
}

// ZerosLike builds a zero-valued Tensor sharing t's shape.
func ZerosLike(t Tensor) Tensor {
	return Zeros(t.Shape)
}

// Numel returns the total element count implied by the tensor's shape.
func (t Tensor) Numel() int { return numel(t.Shape) }

func numel(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// SameShape reports whether two tensors have identical shape.
func (t Tensor) SameShape(other Tensor) bool {
	if len(t.Shape) != len(other.Shape) {
		return false
	}
	for i := range t.Shape {
		if t.Shape[i] != other.Shape[i] {
			return false
		}
	}
	return true
}

// Stack builds a new Tensor with a fresh leading axis of length
// len(tensors), stacking samples that must all share the same shape.
// It is the inverse of Slice.
func Stack(tensors ...Tensor) (Tensor, error) {
	if len(tensors) == 0 {
		return Tensor{}, fmt.Errorf("tensor: Stack requires at least one tensor")
	}
	sampleShape := tensors[0].Shape
	sampleLen := numel(sampleShape)
	for i, t := range tensors {
		if !t.SameShape(tensors[0]) {
			return Tensor{}, fmt.Errorf("tensor: Stack shape mismatch at index %d: %v vs %v", i, t.Shape, sampleShape)
		}
	}
	outShape := append([]int{len(tensors)}, sampleShape...)
	out := make([]float32, 0, len(tensors)*sampleLen)
	for _, t := range tensors {
		out = append(out, t.Data...)
	}
	return Tensor{Shape: outShape, Data: out}, nil
}

// Slice returns a view (no copy) of the i-th element along the leading
// axis, dropping that axis from the result's shape.
func (t Tensor) Slice(i int) Tensor {
	if len(t.Shape) == 0 {
		panic("tensor: Slice on a rank-0 tensor")
	}
	sub := t.Shape[1:]
	n := numel(sub)
	start := i * n
	return Tensor{Shape: append([]int(nil), sub...), Data: t.Data[start : start+n]}
}
