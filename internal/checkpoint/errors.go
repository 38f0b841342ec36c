package checkpoint

import "errors"

var (
	// ErrInvalidInput flags a malformed odometer or date.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidTransition flags a submission out of phase order.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrConflictingSubmission flags a retry whose odometer contradicts the
	// reading already recorded for that transition.
	ErrConflictingSubmission = errors.New("conflicting submission")
	// ErrNotFound means no checkpoint exists for the bus and date.
	ErrNotFound = errors.New("checkpoint not found")
	// ErrNotOwner means the session is neither the owning driver nor an admin.
	ErrNotOwner = errors.New("checkpoint owned by another driver")
)
