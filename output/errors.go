package output

import "errors"

var (
	// ErrUnsupportedFormat is returned for an image format with no encoder.
	ErrUnsupportedFormat = errors.New("unsupported image format")

	// ErrUnknownMode is returned by New for an output mode other than
	// disk, network or disabled.
	ErrUnknownMode = errors.New("unknown output mode")

	// ErrPixelCount is returned when a pixel buffer is not width*height*3 bytes.
	ErrPixelCount = errors.New("pixel buffer does not match image size")

	// ErrFrameTooLarge is returned by Receive for a frame above MaxFrameSize.
	ErrFrameTooLarge = errors.New("frame exceeds maximum size")
)
