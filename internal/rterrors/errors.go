// Package rterrors classifies runtime errors by kind: configuration,
// producer-contract, executor, and sink failures each carry distinct
// retry and fatality semantics.
package rterrors

import (
	"fmt"
	"time"
)

// Class identifies which part of the runtime an error belongs to.
type Class int

const (
	// ClassConfiguration covers missing files, unrecognised backends,
	// and inconsistent name/shape arrays. Fatal at startup.
	ClassConfiguration Class = iota
	// ClassProducerContract covers job tensors that disagree with the
	// InputSpec or with other jobs in the same batch. Fatal for the
	// current batch.
	ClassProducerContract
	// ClassExecutor covers model load failure and output shape
	// mismatch. Fatal at worker start or for the current batch.
	ClassExecutor
	// ClassSink covers sink connection or serialisation failure.
	// Fatal for the current batch.
	ClassSink
)

func (c Class) String() string {
	switch c {
	case ClassConfiguration:
		return "configuration"
	case ClassProducerContract:
		return "producer_contract"
	case ClassExecutor:
		return "executor"
	case ClassSink:
		return "sink"
	default:
		return "unknown"
	}
}

// Classified is an error annotated with a Class and the worker/device
// context it occurred in, so log lines carry which worker, which
// device, and which batch size were involved.
type Classified struct {
	Class     Class
	Op        string
	WorkerID  int
	Device    string
	BatchSize int
	Timestamp time.Time
	cause     error
}

func (e *Classified) Error() string {
	return fmt.Sprintf("[%s] worker=%d device=%s batch=%d op=%s: %v", e.Class, e.WorkerID, e.Device, e.BatchSize, e.Op, e.cause)
}

func (e *Classified) Unwrap() error { return e.cause }

// Retryable reports whether this class of error is worth retrying at
// the sink layer. Only sink errors are retryable; everything else is
// a producer/config/executor bug that retrying cannot fix.
func (e *Classified) Retryable() bool {
	return e.Class == ClassSink
}

// Wrap classifies err with class/op/worker/device context.
func Wrap(err error, class Class, op string, workerID int, device string) *Classified {
	if err == nil {
		return nil
	}
	return &Classified{
		Class:     class,
		Op:        op,
		WorkerID:  workerID,
		Device:    device,
		Timestamp: time.Now(),
		cause:     err,
	}
}

// WithBatchSize attaches the batch size this error occurred against.
func (e *Classified) WithBatchSize(n int) *Classified {
	e.BatchSize = n
	return e
}
