package domain

import "errors"

// Common errors used across the application to classify failures.
// Callers use errors.Is against these sentinels to decide whether an
// operation can be retried, must fail the group, or should only be logged.
var (
	// ErrTransient marks network or timeout failures that may resolve on retry.
	ErrTransient = errors.New("transient failure")

	// ErrValidation marks bad input or a missing source; never retried.
	ErrValidation = errors.New("validation failed")

	// ErrExternalService marks a failed external batch call. It fails the
	// whole group it belongs to, but not the batch.
	ErrExternalService = errors.New("external service failure")

	// ErrCacheIO marks a local cache persistence failure. The affected item
	// is treated as unprocessed for the current run.
	ErrCacheIO = errors.New("cache I/O failure")

	// ErrCancelled marks work aborted by a cancellation signal.
	ErrCancelled = errors.New("cancelled")

	// ErrBatchNotFound is returned when a batch ID has no known batch.
	ErrBatchNotFound = errors.New("batch not found")

	// ErrInvalidTransition is returned when a batch status change violates
	// the lifecycle state machine.
	ErrInvalidTransition = errors.New("invalid batch status transition")
)
