// Package pipeline implements the transform pipeline: an optional
// preprocessor and postprocessor composed around inference, each a
// pure Tensor->Tensor function, identity by default.
package pipeline

import (
	"github.com/afeldman/ai-runtime/internal/tensor"
)

// Transform is a pure tensor-to-tensor function. Implementations must
// be re-entrant: the pipeline is shared by reference across all
// workers.
type Transform func(tensor.Tensor) (tensor.Tensor, error)

// Identity returns its input unchanged. It is the default transform
// when a pipeline stage is not configured.
func Identity(x tensor.Tensor) (tensor.Tensor, error) { return x, nil }

// Pipeline holds one preprocessor and one postprocessor. A zero-value
// Pipeline is not usable; construct with New.
type Pipeline struct {
	pre  Transform
	post Transform
}

// New builds a Pipeline, defaulting nil stages to Identity.
func New(pre, post Transform) *Pipeline {
	if pre == nil {
		pre = Identity
	}
	if post == nil {
		post = Identity
	}
	return &Pipeline{pre: pre, post: post}
}

// RunPre applies the preprocessor.
func (p *Pipeline) RunPre(x tensor.Tensor) (tensor.Tensor, error) { return p.pre(x) }

// RunPost applies the postprocessor.
func (p *Pipeline) RunPost(x tensor.Tensor) (tensor.Tensor, error) { return p.post(x) }
