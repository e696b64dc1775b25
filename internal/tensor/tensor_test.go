package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tr := New([]int{2, 2}, []float32{1, 2, 3, 4})
	assert.Equal(t, []int{2, 2}, tr.Shape)
	assert.Equal(t, 4, tr.Numel())
}

func TestNewPanicsOnMismatch(t *testing.T) {
	assert.Panics(t, func() {
		New([]int{2, 2}, []float32{1, 2, 3})
	})
}

func TestZeros(t *testing.T) {
	tr := Zeros([]int{1, 3, 2, 2})
	assert.Equal(t, 12, tr.Numel())
	for _, v := range tr.Data {
		assert.Equal(t, float32(0), v)
	}
}

func TestZerosLike(t *testing.T) {
	tr := New([]int{2, 3}, []float32{1, 2, 3, 4, 5, 6})
	z := ZerosLike(tr)
	assert.Equal(t, tr.Shape, z.Shape)
	assert.Equal(t, 6, z.Numel())
}

func TestSameShape(t *testing.T) {
	a := Zeros([]int{1, 2, 3})
	b := Zeros([]int{1, 2, 3})
	c := Zeros([]int{1, 2, 4})
	d := Zeros([]int{1, 2})

	assert.True(t, a.SameShape(b))
	assert.False(t, a.SameShape(c))
	assert.False(t, a.SameShape(d))
}

func TestStack(t *testing.T) {
	a := New([]int{2}, []float32{1, 2})
	b := New([]int{2}, []float32{3, 4})

	stacked, err := Stack(a, b)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2}, stacked.Shape)
	assert.Equal(t, []float32{1, 2, 3, 4}, stacked.Data)
}

func TestStackEmpty(t *testing.T) {
	_, err := Stack()
	assert.Error(t, err)
}

func TestStackShapeMismatch(t *testing.T) {
	a := New([]int{2}, []float32{1, 2})
	b := New([]int{3}, []float32{1, 2, 3})

	_, err := Stack(a, b)
	assert.Error(t, err)
}

func TestStackSliceRoundTrip(t *testing.T) {
	a := New([]int{2}, []float32{1, 2})
	b := New([]int{2}, []float32{3, 4})
	c := New([]int{2}, []float32{5, 6})

	stacked, err := Stack(a, b, c)
	require.NoError(t, err)

	assert.Equal(t, a.Data, stacked.Slice(0).Data)
	assert.Equal(t, b.Data, stacked.Slice(1).Data)
	assert.Equal(t, c.Data, stacked.Slice(2).Data)
}

func TestSlicePanicsOnRank0(t *testing.T) {
	tr := Tensor{Shape: nil, Data: nil}
	assert.Panics(t, func() {
		tr.Slice(0)
	})
}
