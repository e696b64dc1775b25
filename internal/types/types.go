// Package types holds the value objects that flow across the data
// plane: input specs, jobs, batches, and the configuration records
// derived from runtime.toml.
package types

import (
	"fmt"
	"time"

	"github.com/afeldman/ai-runtime/internal/tensor"
)

// DType tags the element type carried by an InputSpec. Only "f32" has
// a wired execution path today; other tags are recognised so the
// field stays meaningful but fail fast at config load.
type DType string

const (
	DTypeF32 DType = "f32"
	DTypeU8  DType = "u8"
	DTypeI64 DType = "i64"
)

// recognisedDTypes lists tags the config loader accepts without
// erroring at parse time; only DTypeF32 has an executing code path.
var recognisedDTypes = map[DType]bool{
	DTypeF32: true,
	DTypeU8:  true,
	DTypeI64: true,
}

// Recognised reports whether d is a known dtype tag.
func (d DType) Recognised() bool { return recognisedDTypes[d] }

// Wired reports whether d has an implemented data path.
func (d DType) Wired() bool { return d == DTypeF32 }

// InputSpec carries the model's fixed NCHW shape and dtype tag. It is
// immutable once derived from config at startup.
type InputSpec struct {
	Batch    int
	Channels int
	Height   int
	Width    int
	DType    DType
}

// Validate checks that dims are positive and the dtype is recognised.
func (s InputSpec) Validate() error {
	if s.Batch <= 0 || s.Channels <= 0 || s.Height <= 0 || s.Width <= 0 {
		return fmt.Errorf("types: input spec dims must be > 0, got batch=%d channels=%d height=%d width=%d",
			s.Batch, s.Channels, s.Height, s.Width)
	}
	if !s.DType.Recognised() {
		return fmt.Errorf("types: unrecognised dtype %q", s.DType)
	}
	return nil
}

// SampleShape returns the per-sample NCHW shape, i.e. [1, C, H, W].
func (s InputSpec) SampleShape() []int {
	return []int{1, s.Channels, s.Height, s.Width}
}

// BatchShape returns the batched NCHW shape, i.e. [batch, C, H, W].
func (s InputSpec) BatchShape() []int {
	return []int{s.Batch, s.Channels, s.Height, s.Width}
}

// ValidateSample checks a job's tensor shape against the input
// spec's per-sample shape, i.e. [1, C, H, W].
func (s InputSpec) ValidateSample(t tensor.Tensor) error {
	want := s.SampleShape()
	if len(t.Shape) != len(want) {
		return fmt.Errorf("types: tensor must be rank-%d (NCHW), got rank-%d", len(want), len(t.Shape))
	}
	for i := range want {
		if i == 0 {
			continue // leading dim is always 1 for a single job's tensor
		}
		if t.Shape[i] != want[i] {
			return fmt.Errorf("types: tensor shape %v does not match spec shape %v at axis %d", t.Shape, want, i)
		}
	}
	if t.Shape[0] != 1 {
		return fmt.Errorf("types: job tensor must have leading dim 1, got %d", t.Shape[0])
	}
	return nil
}

// Job is a single inference request: a producer-assigned id and a
// single-sample tensor of shape [1, C, H, W].
type Job struct {
	ID     string
	Tensor tensor.Tensor
}

// Batch is a collection of jobs stacked on a leading axis, padded to
// the model's fixed batch size with zero-valued DUMMY samples.
type Batch struct {
	IDs       []string
	Tensor    tensor.Tensor
	ActualLen int
}

// ModelConfig describes the executor backend and its I/O contract.
type ModelConfig struct {
	Backend      string
	Device       string
	ModelPath    string
	GPUIDs       []int
	InputNames   []string
	InputShapes  [][]int
	OutputNames  []string
	OutputShapes [][]int

	// BedrockRegion and BedrockModelID are only consulted when
	// Backend == "bedrock".
	BedrockRegion  string
	BedrockModelID string
}

// Validate checks that input/output name and shape arrays line up
// one-to-one and that the declared primary input shape matches spec's
// batch shape.
func (m ModelConfig) Validate(spec InputSpec) error {
	if len(m.InputNames) != len(m.InputShapes) {
		return fmt.Errorf("types: model config has %d input names but %d input shapes", len(m.InputNames), len(m.InputShapes))
	}
	if len(m.OutputNames) != len(m.OutputShapes) {
		return fmt.Errorf("types: model config has %d output names but %d output shapes", len(m.OutputNames), len(m.OutputShapes))
	}
	if len(m.InputShapes) == 0 {
		return fmt.Errorf("types: model config must declare at least one input shape")
	}
	want := spec.BatchShape()
	got := m.InputShapes[0]
	if len(got) != len(want) {
		return fmt.Errorf("types: model input_shapes[0] rank %d does not match input spec rank %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			return fmt.Errorf("types: model input_shapes[0] %v does not match input spec batch shape %v", got, want)
		}
	}
	return nil
}

// QueueConfig bounds batch assembly.
type QueueConfig struct {
	MaxBatch  int
	MaxWaitMs int64
}

// Clamp returns the effective max batch size, never exceeding specN.
func (q QueueConfig) Clamp(specN int) int {
	if q.MaxBatch > specN {
		return specN
	}
	return q.MaxBatch
}

// ResultRecord is the JSON body stored under "<out_prefix>:<job_id>".
type ResultRecord struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Shape     []int     `json:"shape"`
	Data      []float32 `json:"data"`
}
