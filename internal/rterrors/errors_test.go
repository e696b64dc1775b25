package rterrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapNilIsNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ClassSink, "store_json", 0, "cpu"))
}

func TestWrapCarriesContext(t *testing.T) {
	cause := errors.New("boom")
	ce := Wrap(cause, ClassExecutor, "infer", 2, "gpu:0")

	assert.Equal(t, ClassExecutor, ce.Class)
	assert.Equal(t, "infer", ce.Op)
	assert.Equal(t, 2, ce.WorkerID)
	assert.Equal(t, "gpu:0", ce.Device)
	assert.ErrorIs(t, ce, cause)
	assert.Contains(t, ce.Error(), "infer")
	assert.Contains(t, ce.Error(), "gpu:0")
}

func TestWithBatchSize(t *testing.T) {
	ce := Wrap(errors.New("x"), ClassProducerContract, "validate", 0, "cpu").WithBatchSize(4)
	assert.Equal(t, 4, ce.BatchSize)
}

func TestRetryable(t *testing.T) {
	assert.True(t, Wrap(errors.New("x"), ClassSink, "op", 0, "cpu").Retryable())
	assert.False(t, Wrap(errors.New("x"), ClassExecutor, "op", 0, "cpu").Retryable())
	assert.False(t, Wrap(errors.New("x"), ClassConfiguration, "op", 0, "cpu").Retryable())
	assert.False(t, Wrap(errors.New("x"), ClassProducerContract, "op", 0, "cpu").Retryable())
}

func TestClassString(t *testing.T) {
	assert.Equal(t, "configuration", ClassConfiguration.String())
	assert.Equal(t, "producer_contract", ClassProducerContract.String())
	assert.Equal(t, "executor", ClassExecutor.String())
	assert.Equal(t, "sink", ClassSink.String())
	assert.Equal(t, "unknown", Class(99).String())
}
