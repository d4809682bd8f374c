package zerocopy

import (
	"encoding/binary"
	"fmt"
	"math"
	"unsafe"

	"github.com/oy3o/vellum/buffer"
)

// Ref is a validated window over one record. Accessors perform no bounds,
// alignment or discriminant checks: Validate already established every
// invariant, so reads compile down to plain loads. A Ref borrows the buffer
// it was validated against; if the bytes are mutated externally, the Ref
// must be revalidated before further use.
type Ref struct {
	buf    []byte
	layout *Layout
}

// Validate checks buf against the layout and returns a Ref on success. It
// checks, in order: the buffer holds at least Size bytes (failing with
// buffer.ErrUnderflow), the base address satisfies the record alignment
// (ErrAlignment), and every discriminant field holds a legal value
// (ErrInvalidDiscriminant). It never returns a partially-validated Ref.
func Validate(buf []byte, layout *Layout) (*Ref, error) {
	if len(buf) < layout.Size {
		return nil, fmt.Errorf("%w: %d bytes for layout of %d",
			buffer.ErrUnderflow, len(buf), layout.Size)
	}
	if layout.Size > 0 {
		addr := uintptr(unsafe.Pointer(&buf[0]))
		if addr%uintptr(layout.Align) != 0 {
			return nil, fmt.Errorf("%w: base %#x, need %d", ErrAlignment, addr, layout.Align)
		}
	}
	r := &Ref{buf: buf[:layout.Size], layout: layout}
	for i := range layout.Fields {
		f := &layout.Fields[i]
		if len(f.Legal) == 0 {
			continue
		}
		if v := r.load(f); !f.legal(v) {
			return nil, fmt.Errorf("%w: field %q holds %d", ErrInvalidDiscriminant, f.Name, v)
		}
	}
	return r, nil
}

// ValidateOrder validates a record that may have been produced on a
// big-endian writer: when order is binary.BigEndian, every field is
// byte-swapped in place once before validation, normalizing the record to
// little-endian. The caller must own buf exclusively during the call.
func ValidateOrder(buf []byte, layout *Layout, order binary.ByteOrder) (*Ref, error) {
	if len(buf) < layout.Size {
		return nil, fmt.Errorf("%w: %d bytes for layout of %d",
			buffer.ErrUnderflow, len(buf), layout.Size)
	}
	if order == binary.ByteOrder(binary.BigEndian) {
		for i := range layout.Fields {
			f := &layout.Fields[i]
			p := buf[f.Offset : f.Offset+f.Kind.Size()]
			for a, b := 0, len(p)-1; a < b; a, b = a+1, b-1 {
				p[a], p[b] = p[b], p[a]
			}
		}
	}
	return Validate(buf, layout)
}

// Layout returns the layout the Ref was validated against.
func (r *Ref) Layout() *Layout { return r.layout }

// Bytes returns the validated window.
func (r *Ref) Bytes() []byte { return r.buf }

// load reads a field's raw bits zero-extended to 64.
func (r *Ref) load(f *Field) uint64 {
	p := r.buf[f.Offset:]
	switch f.Kind.Size() {
	case 1:
		return uint64(p[0])
	case 2:
		return uint64(binary.LittleEndian.Uint16(p))
	case 4:
		return uint64(binary.LittleEndian.Uint32(p))
	default:
		return binary.LittleEndian.Uint64(p)
	}
}

func (r *Ref) field(i int) *Field { return &r.layout.Fields[i] }

// Uint reads field i zero-extended, whatever its width.
func (r *Ref) Uint(i int) uint64 { return r.load(r.field(i)) }

// Int reads field i sign-extended from its stored width.
func (r *Ref) Int(i int) int64 {
	f := r.field(i)
	v := r.load(f)
	shift := 64 - uint(f.Kind.Size())*8
	return int64(v<<shift) >> shift
}

func (r *Ref) Uint8(i int) uint8   { return uint8(r.load(r.field(i))) }
func (r *Ref) Uint16(i int) uint16 { return uint16(r.load(r.field(i))) }
func (r *Ref) Uint32(i int) uint32 { return uint32(r.load(r.field(i))) }
func (r *Ref) Uint64(i int) uint64 { return r.load(r.field(i)) }

func (r *Ref) Int8(i int) int8   { return int8(r.Int(i)) }
func (r *Ref) Int16(i int) int16 { return int16(r.Int(i)) }
func (r *Ref) Int32(i int) int32 { return int32(r.Int(i)) }
func (r *Ref) Int64(i int) int64 { return r.Int(i) }

func (r *Ref) Float32(i int) float32 {
	return math.Float32frombits(uint32(r.load(r.field(i))))
}

func (r *Ref) Float64(i int) float64 {
	return math.Float64frombits(r.load(r.field(i)))
}
