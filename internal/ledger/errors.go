package ledger

import "errors"

var (
	// ErrDuplicateCoordinate is returned by Add when the coordinate is already
	// recorded; callers must use Update to replace it.
	ErrDuplicateCoordinate = errors.New("coordinate already recorded")
	ErrNotFound            = errors.New("coordinate not found")
	ErrInvalidCoordinate   = errors.New("invalid coordinate")
	ErrEmptyDescription    = errors.New("description is empty")
)
