package buffer

import "errors"

var (
	// ErrUnderflow indicates a read past the bytes available in the region.
	ErrUnderflow = errors.New("buffer: read past available bytes")

	// ErrCapacityExceeded indicates a write past the capacity of a
	// fixed-capacity writer.
	ErrCapacityExceeded = errors.New("buffer: write past fixed capacity")

	// ErrInvalidSeek indicates a seek to a position outside the region.
	ErrInvalidSeek = errors.New("buffer: seek to invalid position")

	// ErrNegativeCount indicates an operation was requested with a negative
	// byte count.
	ErrNegativeCount = errors.New("buffer: negative byte count")
)
