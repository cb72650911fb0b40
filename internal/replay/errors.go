package replay

import "errors"

var (
	// ErrInvalidOrdering is returned when journal entries are not contiguous in sequence.
	ErrInvalidOrdering = errors.New("journal entries are not in contiguous sequence order")

	// ErrUnknownOperation is returned for an entry kind that cannot be applied.
	ErrUnknownOperation = errors.New("unknown journal operation")
)
