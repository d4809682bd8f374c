package vellum

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/puzpuzpuz/xsync/v4"
)

// descCache avoids the high performance cost of re-walking struct types with
// reflection on every call. Using a concurrent map makes binding safe from
// any goroutine.
var descCache = xsync.NewMap[reflect.Type, *Descriptor]()

// Bind derives a Descriptor from a Go type by reflection and caches it.
//
// Struct fields take their id from a `vellum:"<id>"` tag; untagged exported
// fields get their declaration position (0-based). `vellum:"-"` and
// unexported fields are excluded. Types implementing Union are bound as
// variants from their declared case set.
func Bind(t reflect.Type) (*Descriptor, error) {
	if d, ok := descCache.Load(t); ok {
		return d, nil
	}
	d, err := bindType(t, map[reflect.Type]*Descriptor{})
	if err != nil {
		return nil, err
	}
	descCache.Store(t, d)
	return d, nil
}

// bindType walks one type. seen breaks recursive types: a type already being
// bound gets the in-progress descriptor, which is completed by the time any
// encode can reach it.
func bindType(t reflect.Type, seen map[reflect.Type]*Descriptor) (*Descriptor, error) {
	if d, ok := seen[t]; ok {
		return d, nil
	}
	if t.Implements(unionType) || reflect.PointerTo(t).Implements(unionType) {
		return bindUnion(t, seen)
	}

	switch t.Kind() {
	case reflect.Bool:
		return &Descriptor{Shape: ShapeBool, GoType: t}, nil
	case reflect.Uint8:
		return &Descriptor{Shape: ShapeUint, Bits: 8, GoType: t}, nil
	case reflect.Uint16:
		return &Descriptor{Shape: ShapeUint, Bits: 16, GoType: t}, nil
	case reflect.Uint32:
		return &Descriptor{Shape: ShapeUint, Bits: 32, GoType: t}, nil
	case reflect.Uint64, reflect.Uint, reflect.Uintptr:
		return &Descriptor{Shape: ShapeUint, Bits: 64, GoType: t}, nil
	case reflect.Int8:
		return &Descriptor{Shape: ShapeInt, Bits: 8, GoType: t}, nil
	case reflect.Int16:
		return &Descriptor{Shape: ShapeInt, Bits: 16, GoType: t}, nil
	case reflect.Int32:
		return &Descriptor{Shape: ShapeInt, Bits: 32, GoType: t}, nil
	case reflect.Int64, reflect.Int:
		return &Descriptor{Shape: ShapeInt, Bits: 64, GoType: t}, nil
	case reflect.Float32:
		return &Descriptor{Shape: ShapeFloat, Bits: 32, GoType: t}, nil
	case reflect.Float64:
		return &Descriptor{Shape: ShapeFloat, Bits: 64, GoType: t}, nil
	case reflect.String:
		return &Descriptor{Shape: ShapeString, GoType: t}, nil

	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return &Descriptor{Shape: ShapeBytes, GoType: t}, nil
		}
		elem, err := bindType(t.Elem(), seen)
		if err != nil {
			return nil, err
		}
		return &Descriptor{Shape: ShapeSequence, Elem: elem, GoType: t}, nil

	case reflect.Array:
		elem, err := bindType(t.Elem(), seen)
		if err != nil {
			return nil, err
		}
		return &Descriptor{Shape: ShapeSequence, Elem: elem, GoType: t}, nil

	case reflect.Map:
		key, err := bindType(t.Key(), seen)
		if err != nil {
			return nil, err
		}
		val, err := bindType(t.Elem(), seen)
		if err != nil {
			return nil, err
		}
		return &Descriptor{Shape: ShapeMap, Key: key, Elem: val, GoType: t}, nil

	case reflect.Pointer:
		// Pointers are transparent: the pointee's shape is encoded and a
		// nil pointer encodes as the pointee's zero value.
		return bindType(t.Elem(), seen)

	case reflect.Struct:
		return bindStruct(t, seen)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedShape, t)
}

func bindStruct(t reflect.Type, seen map[reflect.Type]*Descriptor) (*Descriptor, error) {
	if t == reflect.TypeOf(struct{}{}) {
		return &Descriptor{Shape: ShapeUnit, GoType: t}, nil
	}
	d := &Descriptor{Shape: ShapeStruct, GoType: t}
	seen[t] = d
	defer delete(seen, t)

	pos := uint64(0)
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		name := sf.Name
		id := pos
		if tag, ok := sf.Tag.Lookup("vellum"); ok {
			if tag == "-" {
				pos++
				continue
			}
			n, err := strconv.ParseUint(tag, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("vellum: bad tag %q on %s.%s: %w", tag, t, sf.Name, err)
			}
			id = n
		}
		fd, err := bindType(sf.Type, seen)
		if err != nil {
			return nil, fmt.Errorf("vellum: field %s.%s: %w", t, sf.Name, err)
		}
		d.Fields = append(d.Fields, Field{Name: name, ID: id, Index: i, Desc: fd})
		pos++
	}
	if err := d.index(); err != nil {
		return nil, err
	}
	return d, nil
}

func bindUnion(t reflect.Type, seen map[reflect.Type]*Descriptor) (*Descriptor, error) {
	d := &Descriptor{Shape: ShapeVariant, GoType: t}
	seen[t] = d
	defer delete(seen, t)

	zero := reflect.New(t).Elem()
	u, ok := zero.Interface().(Union)
	if !ok {
		u = zero.Addr().Interface().(Union)
	}
	for _, uc := range u.Cases() {
		var cd *Descriptor
		if uc.Type == nil {
			cd = &Descriptor{Shape: ShapeUnit}
		} else {
			var err error
			cd, err = bindType(uc.Type, seen)
			if err != nil {
				return nil, fmt.Errorf("vellum: case %q of %s: %w", uc.Name, t, err)
			}
		}
		d.Cases = append(d.Cases, Case{Disc: uc.Disc, Name: uc.Name, GoType: uc.Type, Desc: cd})
	}
	if err := d.index(); err != nil {
		return nil, err
	}
	return d, nil
}
