package vellum

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/oy3o/vellum/value"
)

// dispatch walks Go values against a descriptor and drives a framing
// strategy. The walk is identical for every framing; the strategy alone
// decides what bytes surround each payload.

type encodeState struct {
	ctx *Context
	w   FrameWriter
}

type decodeState struct {
	ctx *Context
	r   FrameReader

	// positional is set for framings that carry no field metadata, in
	// which case struct decoding follows descriptor order instead of the
	// stream's field reports.
	positional bool
}

func (s *encodeState) encode(v reflect.Value, d *Descriptor) error {
	if d.Shape == ShapeVariant {
		return s.encodeVariant(v, d)
	}
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			v = reflect.Zero(v.Type().Elem())
		} else {
			v = v.Elem()
		}
	}

	switch d.Shape {
	case ShapeUnit:
		return s.w.Unit()
	case ShapeBool:
		return s.w.Bool(v.Bool())
	case ShapeUint:
		return s.w.Uint(v.Uint(), d.Bits)
	case ShapeInt:
		return s.w.Int(v.Int(), d.Bits)
	case ShapeFloat:
		return s.w.Float(v.Float(), d.Bits)
	case ShapeString:
		return s.w.String(v.String())
	case ShapeBytes:
		return s.w.Bytes(v.Bytes())
	case ShapeSequence:
		return s.encodeSequence(v, d)
	case ShapeMap:
		return s.encodeMap(v, d)
	case ShapeStruct:
		return s.encodeStruct(v, d)
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedShape, d.Shape)
}

func (s *encodeState) encodeSequence(v reflect.Value, d *Descriptor) error {
	if err := s.ctx.enter(); err != nil {
		return err
	}
	defer s.ctx.leave()

	n := v.Len()
	if err := s.w.BeginSequence(n); err != nil {
		return s.ctx.fail(err)
	}
	for i := 0; i < n; i++ {
		s.ctx.pushIndex(i)
		err := s.encode(v.Index(i), d.Elem)
		s.ctx.pop()
		if err != nil {
			return s.ctx.fail(err)
		}
	}
	return s.w.EndSequence()
}

func (s *encodeState) encodeMap(v reflect.Value, d *Descriptor) error {
	if err := s.ctx.enter(); err != nil {
		return err
	}
	defer s.ctx.leave()

	keys := v.MapKeys()
	sortKeys(keys)
	if err := s.w.BeginMap(len(keys)); err != nil {
		return s.ctx.fail(err)
	}
	for _, k := range keys {
		s.ctx.pushKey(fmt.Sprint(k.Interface()))
		err := s.encode(k, d.Key)
		if err == nil {
			err = s.encode(v.MapIndex(k), d.Elem)
		}
		s.ctx.pop()
		if err != nil {
			return s.ctx.fail(err)
		}
	}
	return s.w.EndMap()
}

func (s *encodeState) encodeStruct(v reflect.Value, d *Descriptor) error {
	if err := s.ctx.enter(); err != nil {
		return err
	}
	defer s.ctx.leave()

	if err := s.w.BeginStruct(len(d.Fields)); err != nil {
		return s.ctx.fail(err)
	}
	for i := range d.Fields {
		f := &d.Fields[i]
		s.ctx.pushField(f.Name)
		err := s.w.BeginField(f.ID, f.Name)
		if err == nil {
			err = s.encode(v.Field(f.Index), f.Desc)
		}
		if err == nil {
			err = s.w.EndField()
		}
		s.ctx.pop()
		if err != nil {
			return s.ctx.fail(err)
		}
	}
	return s.w.EndStruct()
}

func (s *encodeState) encodeVariant(v reflect.Value, d *Descriptor) error {
	if err := s.ctx.enter(); err != nil {
		return err
	}
	defer s.ctx.leave()

	u, err := asUnion(v)
	if err != nil {
		return s.ctx.fail(err)
	}
	disc := u.Discriminant()
	c := d.caseByDisc(disc)
	if c == nil {
		return s.ctx.fail(fmt.Errorf("%w: %d", ErrInvalidDiscriminant, disc))
	}
	s.ctx.pushVariant(disc)
	defer s.ctx.pop()

	if err := s.w.BeginVariant(disc); err != nil {
		return s.ctx.fail(err)
	}
	payload := u.Payload()
	if payload == nil {
		if err := s.w.Unit(); err != nil {
			return s.ctx.fail(err)
		}
	} else if err := s.encode(reflect.ValueOf(payload), c.Desc); err != nil {
		return s.ctx.fail(err)
	}
	return s.w.EndVariant()
}

func asUnion(v reflect.Value) (Union, error) {
	if u, ok := v.Interface().(Union); ok {
		return u, nil
	}
	if v.CanAddr() {
		if u, ok := v.Addr().Interface().(Union); ok {
			return u, nil
		}
	}
	return nil, fmt.Errorf("%w: %s does not implement Union", ErrUnsupportedShape, v.Type())
}

// sortKeys orders map keys so equal maps always encode to equal bytes.
func sortKeys(keys []reflect.Value) {
	if len(keys) < 2 {
		return
	}
	switch keys[0].Kind() {
	case reflect.String:
		sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		sort.Slice(keys, func(i, j int) bool { return keys[i].Int() < keys[j].Int() })
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		sort.Slice(keys, func(i, j int) bool { return keys[i].Uint() < keys[j].Uint() })
	default:
		sort.Slice(keys, func(i, j int) bool {
			return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
		})
	}
}

func (s *decodeState) decode(v reflect.Value, d *Descriptor) error {
	if d.Shape == ShapeVariant {
		return s.decodeVariant(v, d)
	}
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			v.Set(reflect.New(v.Type().Elem()))
		}
		v = v.Elem()
	}

	switch d.Shape {
	case ShapeUnit:
		return s.r.Unit()
	case ShapeBool:
		b, err := s.r.Bool()
		if err != nil {
			return s.ctx.fail(err)
		}
		v.SetBool(b)
		return nil
	case ShapeUint:
		u, err := s.r.Uint(d.Bits)
		if err != nil {
			return s.ctx.fail(err)
		}
		v.SetUint(u)
		return nil
	case ShapeInt:
		n, err := s.r.Int(d.Bits)
		if err != nil {
			return s.ctx.fail(err)
		}
		v.SetInt(n)
		return nil
	case ShapeFloat:
		f, err := s.r.Float(d.Bits)
		if err != nil {
			return s.ctx.fail(err)
		}
		v.SetFloat(f)
		return nil
	case ShapeString:
		str, err := s.r.String()
		if err != nil {
			return s.ctx.fail(err)
		}
		v.SetString(str)
		return nil
	case ShapeBytes:
		p, err := s.r.Bytes()
		if err != nil {
			return s.ctx.fail(err)
		}
		// The reader may alias the input buffer; the decoded value owns
		// its bytes.
		v.SetBytes(append([]byte(nil), p...))
		return nil
	case ShapeSequence:
		return s.decodeSequence(v, d)
	case ShapeMap:
		return s.decodeMap(v, d)
	case ShapeStruct:
		return s.decodeStruct(v, d)
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedShape, d.Shape)
}

func (s *decodeState) decodeSequence(v reflect.Value, d *Descriptor) error {
	if err := s.ctx.enter(); err != nil {
		return err
	}
	defer s.ctx.leave()

	n, err := s.r.BeginSequence()
	if err != nil {
		return s.ctx.fail(err)
	}

	if v.Kind() == reflect.Array {
		for i := 0; i < v.Len(); i++ {
			more, err := s.r.MoreElements()
			if err != nil {
				return s.ctx.fail(err)
			}
			if !more {
				return s.ctx.fail(fmt.Errorf("%w: %d elements do not fill array of %d",
					ErrUnsupportedShape, i, v.Len()))
			}
			s.ctx.pushIndex(i)
			err = s.decode(v.Index(i), d.Elem)
			s.ctx.pop()
			if err != nil {
				return s.ctx.fail(err)
			}
		}
		more, err := s.r.MoreElements()
		if err != nil {
			return s.ctx.fail(err)
		}
		if more {
			return s.ctx.fail(fmt.Errorf("%w: sequence overflows array of %d",
				ErrUnsupportedShape, v.Len()))
		}
		return s.r.EndSequence()
	}

	cap := n
	if cap < 0 {
		cap = 0
	}
	out := reflect.MakeSlice(v.Type(), 0, cap)
	for i := 0; ; i++ {
		more, err := s.r.MoreElements()
		if err != nil {
			return s.ctx.fail(err)
		}
		if !more {
			break
		}
		elem := reflect.New(v.Type().Elem()).Elem()
		s.ctx.pushIndex(i)
		err = s.decode(elem, d.Elem)
		s.ctx.pop()
		if err != nil {
			return s.ctx.fail(err)
		}
		out = reflect.Append(out, elem)
	}
	v.Set(out)
	return s.r.EndSequence()
}

func (s *decodeState) decodeMap(v reflect.Value, d *Descriptor) error {
	if err := s.ctx.enter(); err != nil {
		return err
	}
	defer s.ctx.leave()

	n, err := s.r.BeginMap()
	if err != nil {
		return s.ctx.fail(err)
	}
	if n < 0 {
		n = 0
	}
	out := reflect.MakeMapWithSize(v.Type(), n)
	for {
		more, err := s.r.MoreEntries()
		if err != nil {
			return s.ctx.fail(err)
		}
		if !more {
			break
		}
		key := reflect.New(v.Type().Key()).Elem()
		if err := s.decode(key, d.Key); err != nil {
			return s.ctx.fail(err)
		}
		val := reflect.New(v.Type().Elem()).Elem()
		s.ctx.pushKey(fmt.Sprint(key.Interface()))
		err = s.decode(val, d.Elem)
		s.ctx.pop()
		if err != nil {
			return s.ctx.fail(err)
		}
		out.SetMapIndex(key, val)
	}
	v.Set(out)
	return s.r.EndMap()
}

func (s *decodeState) decodeStruct(v reflect.Value, d *Descriptor) error {
	if err := s.ctx.enter(); err != nil {
		return err
	}
	defer s.ctx.leave()

	if err := s.r.BeginStruct(); err != nil {
		return s.ctx.fail(err)
	}
	if s.positional {
		for i := range d.Fields {
			f := &d.Fields[i]
			s.ctx.pushField(f.Name)
			err := s.decode(v.Field(f.Index), f.Desc)
			s.ctx.pop()
			if err != nil {
				return s.ctx.fail(err)
			}
		}
		return s.r.EndStruct()
	}

	for {
		id, name, done, err := s.r.NextField()
		if err != nil {
			return s.ctx.fail(err)
		}
		if done {
			break
		}
		var f *Field
		if name != "" {
			f = d.fieldByName(name)
		} else {
			f = d.fieldByID(id)
		}
		if f == nil {
			// Unknown fields are the forward-compatibility path: skip the
			// payload and keep going. In collect mode the skip still
			// surfaces as a diagnostic.
			s.ctx.note(unknownFieldErr(id, name))
			if err := s.r.SkipField(); err != nil {
				return s.ctx.fail(err)
			}
			continue
		}
		s.ctx.pushField(f.Name)
		err = s.decode(v.Field(f.Index), f.Desc)
		if err == nil {
			err = s.r.EndField()
		}
		s.ctx.pop()
		if err != nil {
			return s.ctx.fail(err)
		}
	}
	return s.r.EndStruct()
}

func unknownFieldErr(id uint64, name string) error {
	if name != "" {
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return fmt.Errorf("%w: %d", ErrUnknownField, id)
}

func (s *decodeState) decodeVariant(v reflect.Value, d *Descriptor) error {
	if err := s.ctx.enter(); err != nil {
		return err
	}
	defer s.ctx.leave()

	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			v.Set(reflect.New(v.Type().Elem()))
		}
		v = v.Elem()
	}
	u, err := asUnion(v)
	if err != nil {
		return s.ctx.fail(err)
	}
	disc, err := s.r.BeginVariant()
	if err != nil {
		return s.ctx.fail(err)
	}
	c := d.caseByDisc(disc)
	if c == nil {
		return s.ctx.fail(fmt.Errorf("%w: %d", ErrInvalidDiscriminant, disc))
	}
	target, assign, err := u.Select(disc)
	if err != nil {
		return s.ctx.fail(err)
	}
	s.ctx.pushVariant(disc)
	if target == nil {
		err = s.r.Unit()
	} else {
		err = s.decode(reflect.ValueOf(target).Elem(), c.Desc)
	}
	s.ctx.pop()
	if err != nil {
		return s.ctx.fail(err)
	}
	assign()
	return s.r.EndVariant()
}

// encodeTree writes a dynamic value tree through a framing. This is the
// encode half of format conversion: any tree a self-describing decode
// produced can be re-emitted through any framing.
func (s *encodeState) encodeTree(v value.Value) error {
	switch v.Kind {
	case value.KindUnit:
		return s.w.Unit()
	case value.KindBool:
		return s.w.Bool(v.B)
	case value.KindUint:
		return s.w.Uint(v.U, v.Bits)
	case value.KindInt:
		return s.w.Int(v.I, v.Bits)
	case value.KindFloat:
		return s.w.Float(v.F, v.Bits)
	case value.KindString:
		return s.w.String(v.S)
	case value.KindBytes:
		return s.w.Bytes(v.Raw)
	case value.KindSequence:
		if err := s.ctx.enter(); err != nil {
			return err
		}
		defer s.ctx.leave()
		if err := s.w.BeginSequence(len(v.Items)); err != nil {
			return s.ctx.fail(err)
		}
		for i, it := range v.Items {
			s.ctx.pushIndex(i)
			err := s.encodeTree(it)
			s.ctx.pop()
			if err != nil {
				return s.ctx.fail(err)
			}
		}
		return s.w.EndSequence()
	case value.KindMap:
		if err := s.ctx.enter(); err != nil {
			return err
		}
		defer s.ctx.leave()
		if err := s.w.BeginMap(len(v.Entries)); err != nil {
			return s.ctx.fail(err)
		}
		for _, e := range v.Entries {
			if err := s.encodeTree(e.Key); err != nil {
				return s.ctx.fail(err)
			}
			if err := s.encodeTree(e.Val); err != nil {
				return s.ctx.fail(err)
			}
		}
		return s.w.EndMap()
	case value.KindVariant:
		if err := s.ctx.enter(); err != nil {
			return err
		}
		defer s.ctx.leave()
		if err := s.w.BeginVariant(v.Disc); err != nil {
			return s.ctx.fail(err)
		}
		s.ctx.pushVariant(v.Disc)
		var err error
		if v.Body == nil {
			err = s.w.Unit()
		} else {
			err = s.encodeTree(*v.Body)
		}
		s.ctx.pop()
		if err != nil {
			return s.ctx.fail(err)
		}
		return s.w.EndVariant()
	}
	return fmt.Errorf("%w: unknown value kind %d", ErrUnsupportedShape, v.Kind)
}
