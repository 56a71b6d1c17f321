package security

import "errors"

// Caller-facing error taxonomy. These are reported immediately and never
// retried.
var (
	// ErrInvalidParameter is returned for bad input shape or value.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrAccessDenied is returned when a path is not under an allowed root.
	ErrAccessDenied = errors.New("access denied")
)
