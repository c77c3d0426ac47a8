package render

import "errors"

var (
	// ErrShortBuffer is returned when a destination buffer cannot hold a block.
	ErrShortBuffer = errors.New("destination buffer too small for block")

	// ErrInvalidZoom is returned when a camera zoom is zero or negative.
	ErrInvalidZoom = errors.New("camera zoom must be positive")
)
