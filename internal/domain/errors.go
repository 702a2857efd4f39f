package domain

import "errors"

var (
	// ErrIntegrityViolation marks a fatal consistency failure: unique-key collisions,
	// inconsistent target days, cross-instrument data or an invalid discount curve.
	ErrIntegrityViolation = errors.New("integrity violation")

	// ErrInvalidRange is returned when an evaluation window ends before it starts
	ErrInvalidRange = errors.New("invalid date range")

	// ErrInvalidBondTerms is returned when bond terms cannot be priced
	ErrInvalidBondTerms = errors.New("invalid bond terms")

	// ErrNotFound is returned by repositories when a lookup matches nothing
	ErrNotFound = errors.New("not found")
)
