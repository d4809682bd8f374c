package vellum

import (
	"errors"
	"fmt"

	"github.com/oy3o/vellum/buffer"
	"github.com/oy3o/vellum/varint"
)

// Error kinds shared across the engine. Cursor and varint sentinels are
// aliased so errors.Is matches regardless of which layer raised them.
var (
	// ErrBufferUnderflow indicates a read past the available bytes.
	ErrBufferUnderflow = buffer.ErrUnderflow

	// ErrCapacityExceeded indicates a write past a fixed-capacity buffer.
	ErrCapacityExceeded = buffer.ErrCapacityExceeded

	// ErrTruncated indicates a varint or frame ended prematurely, or that a
	// declared length did not exactly bound the payload consumed.
	ErrTruncated = varint.ErrTruncated

	// ErrIntegerOverflow indicates a decoded integer exceeds the target width.
	ErrIntegerOverflow = varint.ErrOverflow

	// ErrInvalidTag indicates an unrecognized or mismatched type tag in the
	// self-describing framing.
	ErrInvalidTag = errors.New("vellum: invalid type tag")

	// ErrUnknownField marks a field id with no matching target during
	// field-tagged decode. It is recovered locally by skipping the field and
	// only surfaces as a diagnostic in collect mode.
	ErrUnknownField = errors.New("vellum: unknown field id")

	// ErrDuplicateField indicates a field id occurred twice within one
	// struct region. A single encoded value never produces this; it usually
	// means two concatenated values were decoded as one.
	ErrDuplicateField = errors.New("vellum: field id repeated within struct region")

	// ErrInvalidDiscriminant indicates a variant discriminant outside the
	// declared case set.
	ErrInvalidDiscriminant = errors.New("vellum: discriminant outside declared variant set")

	// ErrUtf8 indicates invalid text bytes where a string was declared.
	ErrUtf8 = errors.New("vellum: invalid utf-8 where a string was declared")

	// ErrUnsupportedShape indicates a value shape incompatible with the
	// chosen framing or mode.
	ErrUnsupportedShape = errors.New("vellum: value shape unsupported by framing or mode")

	// ErrMaxDepth indicates the configured nesting-depth limit was exceeded.
	ErrMaxDepth = errors.New("vellum: nesting depth limit exceeded")

	// ErrTrailingData indicates bytes were left over after a whole-buffer
	// decode consumed the value it was asked for.
	ErrTrailingData = errors.New("vellum: trailing data after decoded value")

	// ErrNotStruct indicates a descriptor was requested for a non-struct
	// type where a struct was required.
	ErrNotStruct = errors.New("vellum: expected a struct type")

	// ErrNotPointer indicates a decode target that is not a non-nil pointer.
	ErrNotPointer = errors.New("vellum: decode target must be a non-nil pointer")
)

func errLengthBeyond(n uint64, remaining int) error {
	return fmt.Errorf("%w: declared length %d exceeds remaining %d bytes",
		ErrTruncated, n, remaining)
}

// Error decorates an underlying error kind with the diagnostic path where a
// nested encode or decode failed.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%v (at %s)", e.Err, e.Path)
}

func (e *Error) Unwrap() error { return e.Err }
