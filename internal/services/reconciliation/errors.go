package reconciliation

import "errors"

// Error taxonomy for the workflow. Callers classify with errors.Is; anything
// else is an infrastructure failure and retryable.
var (
	// ErrValidation marks malformed input, rejected before any write.
	ErrValidation = errors.New("validation failed")
	// ErrConflict marks a target no longer open or a transaction no longer
	// in the expected state at apply time. Never auto-retried.
	ErrConflict = errors.New("conflict")
	// ErrNotFound marks a referenced transaction or obligation that does
	// not exist.
	ErrNotFound = errors.New("not found")
)
