package vellum

import (
	"fmt"
	"reflect"
)

// Shape classifies what a descriptor describes. Dispatch switches on the
// shape first and only then consults shape-specific descriptor parts.
type Shape uint8

const (
	ShapeInvalid Shape = iota
	ShapeUnit
	ShapeBool
	ShapeUint
	ShapeInt
	ShapeFloat
	ShapeString
	ShapeBytes
	ShapeSequence
	ShapeMap
	ShapeStruct
	ShapeVariant
)

func (s Shape) String() string {
	switch s {
	case ShapeUnit:
		return "unit"
	case ShapeBool:
		return "bool"
	case ShapeUint:
		return "uint"
	case ShapeInt:
		return "int"
	case ShapeFloat:
		return "float"
	case ShapeString:
		return "string"
	case ShapeBytes:
		return "bytes"
	case ShapeSequence:
		return "sequence"
	case ShapeMap:
		return "map"
	case ShapeStruct:
		return "struct"
	case ShapeVariant:
		return "variant"
	}
	return "invalid"
}

// Descriptor is the schema table dispatch walks for one type. Descriptors
// are built once (by Bind, or by hand for generated code) and shared
// read-only afterwards, so they are safe for concurrent encodes.
type Descriptor struct {
	Shape Shape

	// Bits is the width of numeric shapes: 8, 16, 32 or 64.
	Bits uint8

	// Fields lists struct fields in declaration order, which is also the
	// positional encode order.
	Fields []Field

	// Elem describes sequence elements and map values.
	Elem *Descriptor

	// Key describes map keys.
	Key *Descriptor

	// Cases lists the legal variant alternatives.
	Cases []Case

	// GoType is the reflect type the descriptor was bound from, nil for
	// hand-built tables.
	GoType reflect.Type

	byID   map[uint64]*Field
	byName map[string]*Field
	byDisc map[uint64]*Case
}

// Field is one struct member: a stable numeric id for field-tagged framings,
// the encoded name for self-describing framings, and the Go field index.
type Field struct {
	Name  string
	ID    uint64
	Index int
	Desc  *Descriptor
}

// Case is one variant alternative.
type Case struct {
	Disc   uint64
	Name   string
	GoType reflect.Type
	Desc   *Descriptor
}

// index builds the lookup maps. Called once after the field and case tables
// are final.
func (d *Descriptor) index() error {
	if len(d.Fields) > 0 {
		d.byID = make(map[uint64]*Field, len(d.Fields))
		d.byName = make(map[string]*Field, len(d.Fields))
		for i := range d.Fields {
			f := &d.Fields[i]
			if _, dup := d.byID[f.ID]; dup {
				return fmt.Errorf("vellum: duplicate field id %d on %q", f.ID, f.Name)
			}
			d.byID[f.ID] = f
			d.byName[f.Name] = f
		}
	}
	if len(d.Cases) > 0 {
		d.byDisc = make(map[uint64]*Case, len(d.Cases))
		for i := range d.Cases {
			c := &d.Cases[i]
			if _, dup := d.byDisc[c.Disc]; dup {
				return fmt.Errorf("vellum: duplicate discriminant %d on case %q", c.Disc, c.Name)
			}
			d.byDisc[c.Disc] = c
		}
	}
	return nil
}

func (d *Descriptor) fieldByID(id uint64) *Field     { return d.byID[id] }
func (d *Descriptor) fieldByName(name string) *Field { return d.byName[name] }
func (d *Descriptor) caseByDisc(disc uint64) *Case   { return d.byDisc[disc] }

// Union is implemented by Go values that encode as a tagged variant. The
// encoder asks a value for its discriminant and payload; the decoder asks
// the zero Union to Select a fresh payload target for a decoded
// discriminant.
type Union interface {
	// Discriminant identifies the active case.
	Discriminant() uint64

	// Payload returns the active case's value to encode. A unit case
	// returns nil.
	Payload() any

	// Select returns a pointer to a fresh payload for disc and an assign
	// callback that installs the decoded payload into the union, or an
	// error wrapping ErrInvalidDiscriminant for an unknown disc.
	Select(disc uint64) (target any, assign func(), err error)

	// Cases enumerates the legal alternatives so descriptors and tooling
	// can be derived without decoding anything.
	Cases() []UnionCase
}

// UnionCase names one legal alternative of a Union.
type UnionCase struct {
	Disc uint64
	Name string
	Type reflect.Type
}

var unionType = reflect.TypeOf((*Union)(nil)).Elem()
