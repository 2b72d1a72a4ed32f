package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorClassification(t *testing.T) {
	retryable := []error{
		ErrFetchFailure,
		ErrThreadResolution,
		ErrWriteFailure,
		ErrStorageUnavailable,
		fmt.Errorf("%w: thread 101: timeout", ErrFetchFailure),
	}
	for _, err := range retryable {
		assert.True(t, IsRetryableError(err), "%v should be retryable", err)
		assert.False(t, IsPermanentError(err), "%v should not be permanent", err)
	}

	permanent := []error{
		ErrInvalidReference,
		ErrInvalidInput,
		ErrSurfaceDisposed,
		ErrNotImplemented,
		fmt.Errorf("%w: res_id for res.partner/12", ErrInvalidReference),
	}
	for _, err := range permanent {
		assert.True(t, IsPermanentError(err), "%v should be permanent", err)
		assert.False(t, IsRetryableError(err), "%v should not be retryable", err)
	}

	assert.False(t, IsRetryableError(nil))
	assert.False(t, IsPermanentError(nil))
}
