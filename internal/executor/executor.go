// Package executor implements the narrow backend contract: a
// device-bound object with Name() and Infer(), plus a config-driven
// factory. The reference backends here stand in for a real inference
// session behind a narrow interface, independent of any particular
// inference runtime's internals.
package executor

import (
	"context"
	"fmt"

	"github.com/afeldman/ai-runtime/internal/tensor"
)

// Executor is the per-backend inference object. Implementations are
// not required to be safe for concurrent calls: the worker that owns
// an Executor holds exclusive access to it.
type Executor interface {
	// Name returns a short tag identifying the backend.
	Name() string

	// Infer shape-validates x against the declared input shape, runs
	// one forward pass, shape-validates the output against the
	// declared output shape, and returns an owned tensor.
	Infer(ctx context.Context, x tensor.Tensor) (tensor.Tensor, error)

	// Close releases any backend-held resources (sessions, clients).
	Close() error
}

// shapesEqual compares two shapes for exact equality.
func shapesEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func validateShape(name string, got, want []int) error {
	if !shapesEqual(got, want) {
		return fmt.Errorf("executor: %s shape mismatch, want %v got %v", name, want, got)
	}
	return nil
}
