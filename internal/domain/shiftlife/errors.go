package shiftlife

import "errors"

var (
	// ErrValidation marks malformed input rejected before any state change.
	ErrValidation = errors.New("validation failed")
	// ErrForbidden is returned when the actor lacks the capability for the
	// requested transition. Checked before any state is touched.
	ErrForbidden = errors.New("capability required")
	// ErrShiftNotOpen is returned when Start targets a shift that does not
	// resolve unblocked for the date.
	ErrShiftNotOpen = errors.New("shift is not open")
	// ErrShiftAlreadyActive is returned when Start would give the doctor a
	// second in-progress shift.
	ErrShiftAlreadyActive = errors.New("another shift is already in progress")
	// ErrIllegalTransition is returned for any transition the state machine
	// does not permit from the current status.
	ErrIllegalTransition = errors.New("illegal shift transition")
)
