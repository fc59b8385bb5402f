package engine

import "errors"

var (
	// ErrInvalidOrder: the order failed validation before any book mutation.
	// Recoverable; the caller resubmits corrected input.
	ErrInvalidOrder = errors.New("invalid order")

	// ErrInvariantViolation: a matching pass left the book crossed or broke
	// quantity conservation. The affected pair is halted.
	ErrInvariantViolation = errors.New("book invariant violation")

	// ErrBookHalted: the pair's book was halted by a previous invariant
	// violation and refuses further matching.
	ErrBookHalted = errors.New("book halted")
)
