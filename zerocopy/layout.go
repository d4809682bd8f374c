// Package zerocopy provides validated zero-copy views over fixed-layout
// binary records. A Layout describes where each field lives; Validate checks
// a byte buffer against it exactly once; the resulting Ref reads fields
// directly out of the buffer with no further checks and no copying.
package zerocopy

import (
	"fmt"
	"reflect"

	"github.com/puzpuzpuz/xsync/v4"
	"golang.org/x/exp/constraints"
)

// Kind is the primitive type of one layout field. All kinds have a fixed
// size equal to their natural alignment.
type Kind uint8

const (
	Uint8 Kind = iota
	Uint16
	Uint32
	Uint64
	Int8
	Int16
	Int32
	Int64
	Float32
	Float64
)

func (k Kind) Size() int {
	switch k {
	case Uint8, Int8:
		return 1
	case Uint16, Int16:
		return 2
	case Uint32, Int32, Float32:
		return 4
	default:
		return 8
	}
}

// Align is the natural alignment rule: a field aligns to its own size.
func (k Kind) Align() int { return k.Size() }

// Field is one member of a fixed layout. Offset is relative to the start of
// the record. A non-empty Legal set marks the field as a discriminant whose
// value Validate checks.
type Field struct {
	Name   string
	Kind   Kind
	Offset int
	Legal  []uint64
}

func (f *Field) legal(v uint64) bool {
	for _, l := range f.Legal {
		if v == l {
			return true
		}
	}
	return false
}

// Layout is a validated field table plus the record's total size and
// alignment. Layouts are immutable once built and safe to share.
type Layout struct {
	Fields []Field
	Size   int
	Align  int

	byName map[string]int
}

// Roundup returns the smallest multiple of align that is >= n. align must be
// a power of two.
func Roundup[T constraints.Integer](n, align T) T {
	return (n + align - 1) &^ (align - 1)
}

// LayoutOf computes natural offsets for fields in declaration order: each
// field starts at the smallest multiple of its alignment at or after the end
// of the previous field, and the total size is rounded up to the record
// alignment.
func LayoutOf(fields ...Field) (*Layout, error) {
	end := 0
	align := 1
	for i := range fields {
		f := &fields[i]
		if a := f.Kind.Align(); a > align {
			align = a
		}
		f.Offset = Roundup(end, f.Kind.Align())
		end = f.Offset + f.Kind.Size()
	}
	return New(Roundup(end, align), fields...)
}

// New builds a layout from explicit offsets, validating that every field is
// aligned, in bounds and non-overlapping in declaration order.
func New(size int, fields ...Field) (*Layout, error) {
	if size < 0 {
		return nil, fmt.Errorf("%w: negative size %d", ErrLayout, size)
	}
	align := 1
	end := 0
	byName := make(map[string]int, len(fields))
	for i := range fields {
		f := &fields[i]
		if a := f.Kind.Align(); a > align {
			align = a
		}
		if f.Offset < end {
			return nil, fmt.Errorf("%w: field %q at offset %d overlaps previous end %d",
				ErrLayout, f.Name, f.Offset, end)
		}
		if f.Offset%f.Kind.Align() != 0 {
			return nil, fmt.Errorf("%w: field %q offset %d not aligned to %d",
				ErrLayout, f.Name, f.Offset, f.Kind.Align())
		}
		end = f.Offset + f.Kind.Size()
		if end > size {
			return nil, fmt.Errorf("%w: field %q ends at %d past size %d",
				ErrLayout, f.Name, end, size)
		}
		if _, dup := byName[f.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate field %q", ErrLayout, f.Name)
		}
		byName[f.Name] = i
	}
	if size%align != 0 {
		return nil, fmt.Errorf("%w: size %d not a multiple of alignment %d",
			ErrLayout, size, align)
	}
	return &Layout{Fields: fields, Size: size, Align: align, byName: byName}, nil
}

// Index returns the position of the named field, or -1.
func (l *Layout) Index(name string) int {
	if i, ok := l.byName[name]; ok {
		return i
	}
	return -1
}

// layoutCache avoids re-walking struct types with reflection on every
// BindLayout call.
var layoutCache = xsync.NewMap[reflect.Type, *Layout]()

// BindLayout derives a natural layout from a Go struct whose exported fields
// are all fixed-size numerics. Discriminant legality cannot be expressed in
// a Go type; use LayoutOf with an explicit Legal set for that.
func BindLayout(t reflect.Type) (*Layout, error) {
	if l, ok := layoutCache.Load(t); ok {
		return l, nil
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s is not a struct", ErrLayout, t)
	}
	var fields []Field
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		k, err := kindOf(sf.Type.Kind())
		if err != nil {
			return nil, fmt.Errorf("%w: field %s.%s: %v", ErrLayout, t, sf.Name, err)
		}
		fields = append(fields, Field{Name: sf.Name, Kind: k})
	}
	l, err := LayoutOf(fields...)
	if err != nil {
		return nil, err
	}
	layoutCache.Store(t, l)
	return l, nil
}

func kindOf(k reflect.Kind) (Kind, error) {
	switch k {
	case reflect.Uint8:
		return Uint8, nil
	case reflect.Uint16:
		return Uint16, nil
	case reflect.Uint32:
		return Uint32, nil
	case reflect.Uint64:
		return Uint64, nil
	case reflect.Int8:
		return Int8, nil
	case reflect.Int16:
		return Int16, nil
	case reflect.Int32:
		return Int32, nil
	case reflect.Int64:
		return Int64, nil
	case reflect.Float32:
		return Float32, nil
	case reflect.Float64:
		return Float64, nil
	}
	return 0, fmt.Errorf("unsupported kind %s", k)
}
