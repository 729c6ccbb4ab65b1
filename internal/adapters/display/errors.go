package display

import "errors"

// Sentinel kinds for display API errors.
var (
	// ErrNotFound marks an external resource that no longer exists; callers
	// recreate rather than fail.
	ErrNotFound = errors.New("display resource not found")

	// ErrRequest marks an unreachable display API or an invalid response.
	ErrRequest = errors.New("display request failed")
)
