// Package tag defines the type markers used by the self-describing framing
// and the field-tag contract used by the field-tagged framing.
//
// A self-describing value starts with a single kind byte, optionally
// followed by kind-specific varint metadata (byte length, element count or
// discriminant) and then the payload. Booleans are payload-free: the kind
// byte itself carries the value.
//
// A field tag is a varint field identifier followed by a varint byte length.
// Identifiers need not be contiguous; a decoder must treat an unrecognized
// identifier as skippable, consuming exactly the declared length.
package tag

import "fmt"

// Kind is the one-byte type marker of a self-describing value. The byte
// values are part of the wire contract and must not change.
type Kind byte

const (
	Unit  Kind = 0x00
	False Kind = 0x01
	True  Kind = 0x02

	Uint8  Kind = 0x10
	Uint16 Kind = 0x11
	Uint32 Kind = 0x12
	Uint64 Kind = 0x13
	Int8   Kind = 0x14
	Int16  Kind = 0x15
	Int32  Kind = 0x16
	Int64  Kind = 0x17

	Float32 Kind = 0x18
	Float64 Kind = 0x19

	String Kind = 0x20
	Bytes  Kind = 0x21

	Sequence Kind = 0x30
	Map      Kind = 0x31
	Variant  Kind = 0x32
)

// Valid reports whether k is a recognized kind byte.
func (k Kind) Valid() bool {
	switch {
	case k <= True:
		return true
	case k >= Uint8 && k <= Float64:
		return true
	case k == String || k == Bytes:
		return true
	case k >= Sequence && k <= Variant:
		return true
	}
	return false
}

// IsUint reports whether k marks an unsigned integer.
func (k Kind) IsUint() bool { return k >= Uint8 && k <= Uint64 }

// IsInt reports whether k marks a signed integer.
func (k Kind) IsInt() bool { return k >= Int8 && k <= Int64 }

// IsFloat reports whether k marks a floating point number.
func (k Kind) IsFloat() bool { return k == Float32 || k == Float64 }

// Bits returns the width in bits for numeric kinds, 0 otherwise.
func (k Kind) Bits() uint8 {
	switch k {
	case Uint8, Int8:
		return 8
	case Uint16, Int16:
		return 16
	case Uint32, Int32, Float32:
		return 32
	case Uint64, Int64, Float64:
		return 64
	}
	return 0
}

// ForUint returns the unsigned integer kind of the given width.
func ForUint(bits uint8) Kind {
	switch bits {
	case 8:
		return Uint8
	case 16:
		return Uint16
	case 32:
		return Uint32
	default:
		return Uint64
	}
}

// ForInt returns the signed integer kind of the given width.
func ForInt(bits uint8) Kind {
	switch bits {
	case 8:
		return Int8
	case 16:
		return Int16
	case 32:
		return Int32
	default:
		return Int64
	}
}

// ForFloat returns the float kind of the given width.
func ForFloat(bits uint8) Kind {
	if bits == 32 {
		return Float32
	}
	return Float64
}

func (k Kind) String() string {
	switch k {
	case Unit:
		return "unit"
	case False:
		return "false"
	case True:
		return "true"
	case Uint8:
		return "u8"
	case Uint16:
		return "u16"
	case Uint32:
		return "u32"
	case Uint64:
		return "u64"
	case Int8:
		return "i8"
	case Int16:
		return "i16"
	case Int32:
		return "i32"
	case Int64:
		return "i64"
	case Float32:
		return "f32"
	case Float64:
		return "f64"
	case String:
		return "string"
	case Bytes:
		return "bytes"
	case Sequence:
		return "sequence"
	case Map:
		return "map"
	case Variant:
		return "variant"
	}
	return fmt.Sprintf("kind(0x%02x)", byte(k))
}
