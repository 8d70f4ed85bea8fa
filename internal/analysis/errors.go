package analysis

import "errors"

// Common errors returned by Analyzer implementations
var (
	// ErrAnalysisFailed is returned when analysis fails for any general reason
	ErrAnalysisFailed = errors.New("failed to analyze samples")

	// ErrInvalidResponse is returned when the service response cannot be parsed or is malformed
	ErrInvalidResponse = errors.New("invalid response from analysis service")

	// ErrContentBlocked is returned when the service blocks the request via safety filters
	ErrContentBlocked = errors.New("content blocked by analysis service safety filters")

	// ErrTransientFailure is returned for temporary errors that might resolve on retry
	ErrTransientFailure = errors.New("transient error during sample analysis")

	// ErrInvalidConfig is returned when the analyzer configuration is invalid
	ErrInvalidConfig = errors.New("invalid analyzer configuration")
)
