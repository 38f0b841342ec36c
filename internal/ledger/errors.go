package ledger

import "errors"

var (
	// ErrAlreadyScanned means the targeted slot is already populated: the
	// same physical event was scanned twice. Rejected, never overwritten.
	ErrAlreadyScanned = errors.New("already scanned")
	// ErrOutOfOrder means the slot's prerequisite slot is still empty, e.g. a
	// university check-out for a student who never checked in.
	ErrOutOfOrder = errors.New("scan out of order")
	// ErrNotFound means no record exists where one was required.
	ErrNotFound = errors.New("attendance record not found")
)
