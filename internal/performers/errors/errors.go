package errors

import "errors"

var (
	ErrNotFound = errors.New("performer not found")

	ErrInvalidID = errors.New("invalid performer ID format")

	ErrDuplicateAccount = errors.New("account already has a performer profile")
)
