package service

import "errors"

// ErrNotStarted indicates a command arrived before Start completed.
var ErrNotStarted = errors.New("service not started")

// ErrUnknownSubject indicates a nickname could not be resolved to a subject.
var ErrUnknownSubject = errors.New("unknown subject")

// ErrNoVersionMarker indicates the provider has no update marker for the
// subject, so tracking it would never produce a check.
var ErrNoVersionMarker = errors.New("no version marker for subject")
