package leave

import "errors"

var (
	// ErrValidation marks malformed input rejected before any store mutation.
	ErrValidation = errors.New("validation failed")
	// ErrLimitExceeded is returned when a grant would push the doctor past the
	// yearly leave limit. The ledger is left unchanged.
	ErrLimitExceeded = errors.New("leave limit exceeded")
	// ErrOverlap is returned when the requested dates are already covered by
	// an existing leave whose scope conflicts with the request.
	ErrOverlap = errors.New("overlapping leave exists")
	// ErrNoOpenShift is returned when a requested date has no resolvable,
	// unblocked shift matching the requested scope.
	ErrNoOpenShift = errors.New("no open shift on requested date")
	// ErrNotFound marks lookups for records that do not exist.
	ErrNotFound = errors.New("not found")
)
