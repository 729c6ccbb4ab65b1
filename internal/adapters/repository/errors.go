package repository

import "errors"

// Sentinel kinds for store errors.
var (
	// ErrNotFound marks an absent snapshot, subscription or display slot.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks an attempt to create a second active subscription
	// for a subscriber that already has one.
	ErrConflict = errors.New("subscription already exists")

	// ErrStorage wraps persistence I/O failures. Callers must treat a failed
	// save as "notification not yet confirmed" and retry on the next tick.
	ErrStorage = errors.New("storage failure")
)
