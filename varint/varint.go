// Package varint implements variable-length integer encoding with
// continuation bits: seven low-order bits per byte, least-significant group
// first, bit 7 set on every byte except the last. Signed integers pass
// through a zigzag transform first so small magnitudes stay compact.
package varint

import (
	"errors"
	"fmt"

	"golang.org/x/exp/constraints"

	"github.com/oy3o/vellum/buffer"
)

// MaxLen is the maximum encoded length of a 64-bit value: ten 7-bit groups.
const MaxLen = 10

var (
	// ErrTruncated indicates the source ended before a terminating byte
	// (one with the continuation bit clear) was found.
	ErrTruncated = errors.New("varint: truncated, missing terminating byte")

	// ErrOverflow indicates the decoded value does not fit the target width.
	ErrOverflow = errors.New("varint: value overflows target width")
)

// Append appends the encoding of v to dst and returns the extended slice.
// Zero encodes to a single zero byte.
func Append(dst []byte, v uint64) []byte {
	for v >= 0x80 {
		dst = append(dst, byte(v)|0x80)
		v >>= 7
	}
	return append(dst, byte(v))
}

// AppendSigned appends the zigzag encoding of v to dst.
func AppendSigned(dst []byte, v int64) []byte {
	return Append(dst, Zigzag(v))
}

// EncodedLen returns the number of bytes Append produces for v.
func EncodedLen[T constraints.Unsigned](v T) int {
	n := 1
	for u := uint64(v); u >= 0x80; u >>= 7 {
		n++
	}
	return n
}

// Zigzag maps a signed integer to an unsigned one, folding the sign into
// bit 0: zz(n) = (n << 1) ^ (n >> 63).
func Zigzag(n int64) uint64 {
	return uint64(n)<<1 ^ uint64(n>>63)
}

// Unzigzag inverts Zigzag.
func Unzigzag(u uint64) int64 {
	return int64(u>>1) ^ -int64(u&1)
}

// Read decodes an unsigned value of up to 64 bits from r. On failure the
// reader position is restored to where it was before the call.
func Read(r *buffer.Reader) (uint64, error) {
	start := r.Position()
	var v uint64
	var s uint
	for i := 0; i < MaxLen; i++ {
		c, err := r.ReadByte()
		if err != nil {
			r.Seek(start)
			return 0, fmt.Errorf("%w: after %d bytes", ErrTruncated, i)
		}
		if c < 0x80 {
			// The tenth group holds the two remaining bits of a 64-bit
			// value; anything above that cannot fit.
			if i == MaxLen-1 && c > 1 {
				r.Seek(start)
				return 0, fmt.Errorf("%w: 64 bits", ErrOverflow)
			}
			return v | uint64(c)<<s, nil
		}
		v |= uint64(c&0x7f) << s
		s += 7
	}
	r.Seek(start)
	return 0, fmt.Errorf("%w: 64 bits", ErrOverflow)
}

// ReadMax decodes an unsigned value and rejects anything that does not fit
// in the given bit width.
func ReadMax(r *buffer.Reader, bits uint8) (uint64, error) {
	start := r.Position()
	v, err := Read(r)
	if err != nil {
		return 0, err
	}
	if bits < 64 && v >= 1<<bits {
		r.Seek(start)
		return 0, fmt.Errorf("%w: %d does not fit %d bits", ErrOverflow, v, bits)
	}
	return v, nil
}

// ReadSigned decodes a zigzag-encoded signed value of up to 64 bits.
func ReadSigned(r *buffer.Reader) (int64, error) {
	u, err := Read(r)
	if err != nil {
		return 0, err
	}
	return Unzigzag(u), nil
}

// ReadSignedMax decodes a zigzag-encoded signed value and rejects anything
// that does not fit in the given bit width.
func ReadSignedMax(r *buffer.Reader, bits uint8) (int64, error) {
	start := r.Position()
	v, err := ReadSigned(r)
	if err != nil {
		return 0, err
	}
	if bits < 64 {
		lo, hi := int64(-1)<<(bits-1), int64(1)<<(bits-1)-1
		if v < lo || v > hi {
			r.Seek(start)
			return 0, fmt.Errorf("%w: %d does not fit %d bits", ErrOverflow, v, bits)
		}
	}
	return v, nil
}

// Write encodes v to w.
func Write(w *buffer.Writer, v uint64) error {
	var scratch [MaxLen]byte
	_, err := w.Write(Append(scratch[:0], v))
	return err
}

// WriteSigned zigzag-encodes v to w.
func WriteSigned(w *buffer.Writer, v int64) error {
	return Write(w, Zigzag(v))
}
