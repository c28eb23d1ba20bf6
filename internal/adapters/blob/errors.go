package blob

import "errors"

// Sentinel kinds for blob store errors.
var (
	ErrNotFound  = errors.New("blob not found")
	ErrInvalidID = errors.New("invalid blob id")
)
