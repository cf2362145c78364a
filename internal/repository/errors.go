package repository

import "errors"

var (
	// ErrInvalidFilter reports an unknown operator or malformed operand.
	ErrInvalidFilter = errors.New("invalid filter")
	// ErrInvalidQuery reports a bad skip, limit or sort option.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrInvalidPatch reports partial data that does not fit the entity shape.
	ErrInvalidPatch = errors.New("invalid patch")
)
