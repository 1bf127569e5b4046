package errors

import "errors"

var (
	ErrNotFound = errors.New("payment not found")

	// ErrDuplicate means a payment already exists for the booking or the
	// transaction id.
	ErrDuplicate = errors.New("payment already recorded")
)
