package rota

import "errors"

var (
	// ErrValidation marks malformed input rejected before any store mutation.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks lookups for records that do not exist.
	ErrNotFound = errors.New("not found")
)
