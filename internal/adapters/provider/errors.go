package provider

import "errors"

// Sentinel kinds for provider errors.
var (
	// ErrFetch marks an unreachable provider or an invalid response body.
	ErrFetch = errors.New("profile fetch failed")

	// ErrNotFound marks a display name that resolves to no known subject.
	ErrNotFound = errors.New("player not found")
)
