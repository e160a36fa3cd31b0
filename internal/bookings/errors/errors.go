package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	// ErrVersionConflict means the stored status or version moved since the read
	ErrVersionConflict = errors.New("booking was modified concurrently")

	// ErrGuardFailed means a guarded escrow update matched no document
	ErrGuardFailed = errors.New("booking no longer satisfies the update guard")
)
