package vellum

import (
	"encoding/binary"
	"math"

	"github.com/oy3o/vellum/buffer"
	"github.com/oy3o/vellum/value"
	"github.com/oy3o/vellum/varint"
)

// FrameWriter is the encode capability set a framing strategy implements.
// Dispatch walks a value depth-first and calls these in document order; the
// strategy decides what metadata, if any, surrounds each payload.
//
// Begin/End calls are strictly balanced. Struct fields are bracketed by
// BeginField/EndField; sequence elements and map entries are written as bare
// values between the corresponding Begin and End.
type FrameWriter interface {
	Unit() error
	Bool(v bool) error
	Uint(v uint64, bits uint8) error
	Int(v int64, bits uint8) error
	Float(v float64, bits uint8) error
	String(s string) error
	Bytes(p []byte) error

	BeginSequence(n int) error
	EndSequence() error

	BeginMap(n int) error
	EndMap() error

	BeginVariant(disc uint64) error
	EndVariant() error

	BeginStruct(n int) error
	BeginField(id uint64, name string) error
	EndField() error
	EndStruct() error
}

// FrameReader is the decode capability set a framing strategy implements,
// mirroring FrameWriter.
//
// Struct decoding differs per framing: positional framings report no fields
// from NextField (dispatch drives decoding from the descriptor order), while
// tagged framings report each encoded field by id and/or name until done.
// After NextField reports a field, the caller either decodes it and calls
// EndField, or discards it with SkipField.
type FrameReader interface {
	Unit() error
	Bool() (bool, error)
	Uint(bits uint8) (uint64, error)
	Int(bits uint8) (int64, error)
	Float(bits uint8) (float64, error)
	String() (string, error)
	Bytes() ([]byte, error)

	// BeginSequence returns the element count, or -1 when the framing does
	// not announce it up front; MoreElements drives iteration either way.
	BeginSequence() (int, error)
	MoreElements() (bool, error)
	EndSequence() error

	BeginMap() (int, error)
	MoreEntries() (bool, error)
	EndMap() error

	BeginVariant() (uint64, error)
	EndVariant() error

	BeginStruct() error
	NextField() (id uint64, name string, done bool, err error)
	EndField() error
	SkipField() error
	EndStruct() error
}

// ValueReader is implemented by self-describing framings that can decode
// with no external type information at all.
type ValueReader interface {
	ReadValue() (value.Value, error)
}

// DepthLimiter is implemented by frame readers that recurse internally,
// during schema-free decode or value skipping. The engine pushes the
// encoding's depth limit through it before decoding starts; zero or
// negative means unlimited.
type DepthLimiter interface {
	SetMaxDepth(limit int)
}

// binWriter holds the primitive-level encoders shared by the binary
// framings. Mode selects varint versus fixed-width little-endian integers;
// floats and prefix lengths are mode-independent.
type binWriter struct {
	w    *buffer.Writer
	mode Mode
}

func (b *binWriter) putUint(v uint64, bits uint8) error {
	if b.mode == ModeFixed {
		var p [8]byte
		binary.LittleEndian.PutUint64(p[:], v)
		_, err := b.w.Write(p[:bits/8])
		return err
	}
	return varint.Write(b.w, v)
}

func (b *binWriter) putInt(v int64, bits uint8) error {
	if b.mode == ModeFixed {
		return b.putUint(uint64(v), bits)
	}
	return varint.WriteSigned(b.w, v)
}

func (b *binWriter) putFloat(v float64, bits uint8) error {
	var p [8]byte
	if bits == 32 {
		binary.LittleEndian.PutUint32(p[:4], math.Float32bits(float32(v)))
		_, err := b.w.Write(p[:4])
		return err
	}
	binary.LittleEndian.PutUint64(p[:], math.Float64bits(v))
	_, err := b.w.Write(p[:8])
	return err
}

func (b *binWriter) putLen(n int) error {
	return varint.Write(b.w, uint64(n))
}

func (b *binWriter) putBytes(p []byte) error {
	if err := b.putLen(len(p)); err != nil {
		return err
	}
	_, err := b.w.Write(p)
	return err
}

func (b *binWriter) putString(s string) error {
	if err := b.putLen(len(s)); err != nil {
		return err
	}
	_, err := b.w.WriteString(s)
	return err
}

// binReader mirrors binWriter on the decode side.
type binReader struct {
	r    *buffer.Reader
	mode Mode
}

func (b *binReader) getUint(bits uint8) (uint64, error) {
	if b.mode == ModeFixed {
		p, err := b.r.Advance(int(bits) / 8)
		if err != nil {
			return 0, err
		}
		var v uint64
		for i := len(p) - 1; i >= 0; i-- {
			v = v<<8 | uint64(p[i])
		}
		return v, nil
	}
	return varint.ReadMax(b.r, bits)
}

func (b *binReader) getInt(bits uint8) (int64, error) {
	if b.mode == ModeFixed {
		v, err := b.getUint(bits)
		if err != nil {
			return 0, err
		}
		// Sign-extend from the stored width.
		shift := 64 - uint(bits)
		return int64(v<<shift) >> shift, nil
	}
	return varint.ReadSignedMax(b.r, bits)
}

func (b *binReader) getFloat(bits uint8) (float64, error) {
	if bits == 32 {
		p, err := b.r.Advance(4)
		if err != nil {
			return 0, err
		}
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(p))), nil
	}
	p, err := b.r.Advance(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(p)), nil
}

func (b *binReader) getLen() (int, error) {
	n, err := varint.Read(b.r)
	if err != nil {
		return 0, err
	}
	if n > uint64(b.r.Remaining()) {
		return 0, errLengthBeyond(n, b.r.Remaining())
	}
	return int(n), nil
}

func (b *binReader) getBytes() ([]byte, error) {
	n, err := b.getLen()
	if err != nil {
		return nil, err
	}
	return b.r.Advance(n)
}
