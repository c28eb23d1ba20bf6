package pixels

import "errors"

// Sentinel kinds for pixel source errors.
var (
	// ErrUnsupportedFormat marks input that cannot be decoded into a grid.
	// Callers skip the item rather than abort the batch.
	ErrUnsupportedFormat = errors.New("unsupported image format")
)
