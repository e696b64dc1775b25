package pipeline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afeldman/ai-runtime/internal/tensor"
)

func TestIdentity(t *testing.T) {
	x := tensor.New([]int{2}, []float32{1, 2})
	out, err := Identity(x)
	require.NoError(t, err)
	assert.Equal(t, x, out)
}

func TestNewDefaultsToIdentity(t *testing.T) {
	p := New(nil, nil)
	x := tensor.New([]int{2}, []float32{1, 2})

	pre, err := p.RunPre(x)
	require.NoError(t, err)
	assert.Equal(t, x, pre)

	post, err := p.RunPost(x)
	require.NoError(t, err)
	assert.Equal(t, x, post)
}

func TestPipelineUsesSuppliedTransforms(t *testing.T) {
	double := func(x tensor.Tensor) (tensor.Tensor, error) {
		out := make([]float32, len(x.Data))
		for i, v := range x.Data {
			out[i] = v * 2
		}
		return tensor.New(x.Shape, out), nil
	}
	failing := func(x tensor.Tensor) (tensor.Tensor, error) {
		return tensor.Tensor{}, errors.New("post failed")
	}

	p := New(double, failing)
	x := tensor.New([]int{2}, []float32{1, 2})

	pre, err := p.RunPre(x)
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 4}, pre.Data)

	_, err = p.RunPost(x)
	assert.Error(t, err)
}

func TestBuildWithoutScriptsIsIdentity(t *testing.T) {
	pl, closer, err := Build("", "")
	require.NoError(t, err)
	require.NotNil(t, closer)
	defer closer.Close()

	x := tensor.New([]int{2}, []float32{3, 4})
	out, err := pl.RunPre(x)
	require.NoError(t, err)
	assert.Equal(t, x, out)
}

func TestBuildPropagatesMissingScriptError(t *testing.T) {
	_, _, err := Build("/nonexistent/path/does-not-exist.lua", "")
	assert.Error(t, err)
}
