package services

import "errors"

// Standard service errors for the synchronization engine
var (
	// Resolution errors
	ErrInvalidReference = errors.New("host entity has no coercible record reference")
	ErrThreadResolution = errors.New("thread resolution failed")

	// Synchronization errors
	ErrFetchFailure    = errors.New("message fetch failed")
	ErrWriteFailure    = errors.New("write rejected")
	ErrSurfaceDisposed = errors.New("surface already disposed")
	ErrNoThread        = errors.New("surface has no resolved thread")

	// Storage errors
	ErrStorageUnavailable = errors.New("session storage unavailable")

	// Input errors
	ErrInvalidInput   = errors.New("invalid input provided")
	ErrNothingToPost  = errors.New("nothing to post")
	ErrNotImplemented = errors.New("operation not implemented")
)

// IsRetryableError determines if an error may succeed on the next trigger.
// There is no automatic retry; the next user toggle or push notification is
// the de facto retry path.
func IsRetryableError(err error) bool {
	return errors.Is(err, ErrFetchFailure) ||
		errors.Is(err, ErrThreadResolution) ||
		errors.Is(err, ErrWriteFailure) ||
		errors.Is(err, ErrStorageUnavailable)
}

// IsPermanentError determines if an error will repeat for the same input.
func IsPermanentError(err error) bool {
	return errors.Is(err, ErrInvalidReference) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrSurfaceDisposed) ||
		errors.Is(err, ErrNotImplemented)
}
