package models

import "errors"

var (
	// ErrCapacityExceeded is returned when a slot already holds as many
	// confirmed bookings as the facility allows. It is an expected outcome,
	// surfaced as a 409 on the manual path.
	ErrCapacityExceeded = errors.New("slot capacity exceeded")

	// ErrBadSlotRef marks a slot reference that cannot be resolved. Permanent:
	// the event is logged and dropped, not retried.
	ErrBadSlotRef = errors.New("malformed slot reference")

	ErrNotFound = errors.New("not found")
)
