package gemini

import "errors"

// Error definitions for the gemini package.
var (
	// ErrNoItems is returned when AnalyzeBatch is called with an empty group.
	ErrNoItems = errors.New("no items to analyze")
)
