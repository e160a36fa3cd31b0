package errors

import "errors"

var (
	ErrEventNotFound = errors.New("market event not found")

	ErrBidNotFound = errors.New("bid not found")

	ErrInvalidID = errors.New("invalid market ID format")

	// ErrEventNotOpen means the guarded bid counter matched no open event
	ErrEventNotOpen = errors.New("market event is not open for bidding")

	ErrDuplicateBid = errors.New("performer already has a pending bid on this event")

	// ErrGuardFailed means a guarded status update matched no document
	ErrGuardFailed = errors.New("document no longer satisfies the update guard")
)
