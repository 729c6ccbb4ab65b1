package notify

import "errors"

// Sentinel kinds for delivery errors.
var (
	ErrDelivery = errors.New("notification delivery failed")
)
