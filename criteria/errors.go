package criteria

import "errors"

var (
	// Definition errors
	ErrEmptyProperty = errors.New("criteria: criterion has empty property name")
	ErrUnknownMode   = errors.New("criteria: unknown comparison mode")
	ErrInvalidRange  = errors.New("criteria: range min exceeds max")

	// Evaluation errors
	ErrNotMet = errors.New("criteria: criterion not met")
)
