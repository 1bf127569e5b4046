package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	// ErrSlotTaken means the unique active-slot index rejected the insert.
	ErrSlotTaken = errors.New("slot already held by another booking")

	// ErrStatusChanged means a compare-and-set transition lost the race:
	// the booking was not in the expected status when the update ran.
	ErrStatusChanged = errors.New("booking status changed concurrently")

	ErrLeaseHeld = errors.New("lease held by another process")
)
