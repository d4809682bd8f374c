package zerocopy

import "errors"

var (
	// ErrLayout indicates an invalid layout table: unordered or misaligned
	// offsets, fields past the declared size, or an unsupported field kind.
	ErrLayout = errors.New("zerocopy: invalid layout")

	// ErrAlignment indicates a buffer whose base address does not satisfy
	// the layout's alignment requirement.
	ErrAlignment = errors.New("zerocopy: buffer misaligned for layout")

	// ErrInvalidDiscriminant indicates a discriminant field holding a value
	// outside its declared legal set.
	ErrInvalidDiscriminant = errors.New("zerocopy: discriminant outside legal set")
)
