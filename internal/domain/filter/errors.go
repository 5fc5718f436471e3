package filter

import "errors"

var (
	// ErrInvalidSpec is returned when a filter spec cannot be evaluated.
	ErrInvalidSpec = errors.New("invalid filter spec")
	// ErrUnknownFilter is returned when a filter ID is not registered.
	ErrUnknownFilter = errors.New("unknown filter")
)
