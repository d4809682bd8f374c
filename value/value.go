// Package value provides a schema-free in-memory representation of decoded
// values. A Value tree is what the self-describing framing decodes into when
// no target type is known, and what format conversion walks when re-encoding
// under a different framing.
package value

import (
	"fmt"
	"strings"
)

// Kind discriminates the members of the Value union.
type Kind uint8

const (
	KindUnit Kind = iota
	KindBool
	KindUint
	KindInt
	KindFloat
	KindString
	KindBytes
	KindSequence
	KindMap
	KindVariant
)

func (k Kind) String() string {
	switch k {
	case KindUnit:
		return "unit"
	case KindBool:
		return "bool"
	case KindUint:
		return "uint"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindSequence:
		return "sequence"
	case KindMap:
		return "map"
	case KindVariant:
		return "variant"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Entry is one key/value pair of a map value. Keys need not be unique at
// this layer; duplicate-key policy is a decode-time concern.
type Entry struct {
	Key Value
	Val Value
}

// Value is a tagged union over the shapes the engine can represent. Only the
// members selected by Kind are meaningful.
type Value struct {
	Kind Kind
	Bits uint8 // numeric width: 8, 16, 32 or 64

	B   bool
	U   uint64
	I   int64
	F   float64
	S   string
	Raw []byte

	Items   []Value
	Entries []Entry

	Disc uint64
	Body *Value
}

// Unit returns the unit value.
func Unit() Value { return Value{Kind: KindUnit} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{Kind: KindBool, B: b} }

// Uint returns an unsigned integer value of the given width.
func Uint(v uint64, bits uint8) Value {
	return Value{Kind: KindUint, Bits: normBits(bits), U: v}
}

// Uint64 returns a 64-bit unsigned integer value.
func Uint64(v uint64) Value { return Uint(v, 64) }

// Int returns a signed integer value of the given width.
func Int(v int64, bits uint8) Value {
	return Value{Kind: KindInt, Bits: normBits(bits), I: v}
}

// Int64 returns a 64-bit signed integer value.
func Int64(v int64) Value { return Int(v, 64) }

// Float32 returns a 32-bit float value.
func Float32(f float32) Value {
	return Value{Kind: KindFloat, Bits: 32, F: float64(f)}
}

// Float64 returns a 64-bit float value.
func Float64(f float64) Value { return Value{Kind: KindFloat, Bits: 64, F: f} }

// String returns a string value.
func String(s string) Value { return Value{Kind: KindString, S: s} }

// Bytes returns a byte-string value. The slice is borrowed, not copied.
func Bytes(p []byte) Value { return Value{Kind: KindBytes, Raw: p} }

// Sequence returns an ordered sequence value.
func Sequence(items ...Value) Value {
	return Value{Kind: KindSequence, Items: items}
}

// Map returns an ordered map value.
func Map(entries ...Entry) Value {
	return Value{Kind: KindMap, Entries: entries}
}

// Pair builds a map entry.
func Pair(k, v Value) Entry { return Entry{Key: k, Val: v} }

// Variant returns a discriminated variant value.
func Variant(disc uint64, body Value) Value {
	return Value{Kind: KindVariant, Disc: disc, Body: &body}
}

func normBits(bits uint8) uint8 {
	switch bits {
	case 8, 16, 32:
		return bits
	default:
		return 64
	}
}

// Equal reports deep structural equality. Numeric values compare by width
// and magnitude; floats compare with ==, so NaN never equals NaN.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindUnit:
		return true
	case KindBool:
		return v.B == o.B
	case KindUint:
		return v.Bits == o.Bits && v.U == o.U
	case KindInt:
		return v.Bits == o.Bits && v.I == o.I
	case KindFloat:
		return v.Bits == o.Bits && v.F == o.F
	case KindString:
		return v.S == o.S
	case KindBytes:
		return string(v.Raw) == string(o.Raw)
	case KindSequence:
		if len(v.Items) != len(o.Items) {
			return false
		}
		for i := range v.Items {
			if !v.Items[i].Equal(o.Items[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.Entries) != len(o.Entries) {
			return false
		}
		for i := range v.Entries {
			if !v.Entries[i].Key.Equal(o.Entries[i].Key) {
				return false
			}
			if !v.Entries[i].Val.Equal(o.Entries[i].Val) {
				return false
			}
		}
		return true
	case KindVariant:
		if v.Disc != o.Disc {
			return false
		}
		if (v.Body == nil) != (o.Body == nil) {
			return false
		}
		return v.Body == nil || v.Body.Equal(*o.Body)
	}
	return false
}

// String renders a compact debug form of the tree.
func (v Value) String() string {
	var sb strings.Builder
	v.render(&sb)
	return sb.String()
}

func (v Value) render(sb *strings.Builder) {
	switch v.Kind {
	case KindUnit:
		sb.WriteString("()")
	case KindBool:
		fmt.Fprintf(sb, "%t", v.B)
	case KindUint:
		fmt.Fprintf(sb, "%du%d", v.U, v.Bits)
	case KindInt:
		fmt.Fprintf(sb, "%di%d", v.I, v.Bits)
	case KindFloat:
		fmt.Fprintf(sb, "%gf%d", v.F, v.Bits)
	case KindString:
		fmt.Fprintf(sb, "%q", v.S)
	case KindBytes:
		fmt.Fprintf(sb, "b%q", v.Raw)
	case KindSequence:
		sb.WriteByte('[')
		for i, it := range v.Items {
			if i > 0 {
				sb.WriteString(", ")
			}
			it.render(sb)
		}
		sb.WriteByte(']')
	case KindMap:
		sb.WriteByte('{')
		for i, e := range v.Entries {
			if i > 0 {
				sb.WriteString(", ")
			}
			e.Key.render(sb)
			sb.WriteString(": ")
			e.Val.render(sb)
		}
		sb.WriteByte('}')
	case KindVariant:
		fmt.Fprintf(sb, "variant(%d, ", v.Disc)
		if v.Body != nil {
			v.Body.render(sb)
		}
		sb.WriteByte(')')
	}
}
