package vellum

import (
	"fmt"
	"unicode/utf8"

	"github.com/oy3o/vellum/buffer"
	"github.com/oy3o/vellum/tag"
	"github.com/oy3o/vellum/value"
	"github.com/oy3o/vellum/varint"
)

// Descriptive framing prefixes every value with a kind byte from the tag
// package, so a decoder needs no external schema at all: the byte stream can
// always be reconstructed into a value tree. It is the most verbose framing
// and the common source for format conversion.
//
// Structs are encoded as maps keyed by field name, which is what makes the
// format self-describing across schema changes.

type descriptiveWriter struct {
	binWriter
}

func newDescriptiveWriter(w *buffer.Writer, mode Mode) *descriptiveWriter {
	return &descriptiveWriter{binWriter{w: w, mode: mode}}
}

func (e *descriptiveWriter) kind(k tag.Kind) error {
	return e.w.WriteByte(byte(k))
}

func (e *descriptiveWriter) Unit() error { return e.kind(tag.Unit) }

func (e *descriptiveWriter) Bool(v bool) error {
	if v {
		return e.kind(tag.True)
	}
	return e.kind(tag.False)
}

func (e *descriptiveWriter) Uint(v uint64, bits uint8) error {
	if err := e.kind(tag.ForUint(bits)); err != nil {
		return err
	}
	return e.putUint(v, bits)
}

func (e *descriptiveWriter) Int(v int64, bits uint8) error {
	if err := e.kind(tag.ForInt(bits)); err != nil {
		return err
	}
	return e.putInt(v, bits)
}

func (e *descriptiveWriter) Float(v float64, bits uint8) error {
	if err := e.kind(tag.ForFloat(bits)); err != nil {
		return err
	}
	return e.putFloat(v, bits)
}

func (e *descriptiveWriter) String(s string) error {
	if err := e.kind(tag.String); err != nil {
		return err
	}
	return e.putString(s)
}

func (e *descriptiveWriter) Bytes(p []byte) error {
	if err := e.kind(tag.Bytes); err != nil {
		return err
	}
	return e.putBytes(p)
}

func (e *descriptiveWriter) BeginSequence(n int) error {
	if err := e.kind(tag.Sequence); err != nil {
		return err
	}
	return e.putLen(n)
}

func (e *descriptiveWriter) EndSequence() error { return nil }

func (e *descriptiveWriter) BeginMap(n int) error {
	if err := e.kind(tag.Map); err != nil {
		return err
	}
	return e.putLen(n)
}

func (e *descriptiveWriter) EndMap() error { return nil }

func (e *descriptiveWriter) BeginVariant(disc uint64) error {
	if err := e.kind(tag.Variant); err != nil {
		return err
	}
	return varint.Write(e.w, disc)
}

func (e *descriptiveWriter) EndVariant() error { return nil }

func (e *descriptiveWriter) BeginStruct(n int) error {
	return e.BeginMap(n)
}

func (e *descriptiveWriter) BeginField(id uint64, name string) error {
	return e.String(name)
}

func (e *descriptiveWriter) EndField() error  { return nil }
func (e *descriptiveWriter) EndStruct() error { return nil }

type descriptiveReader struct {
	binReader
	counts []int

	// ctx bounds and locates the reader's own recursion: schema-free
	// ReadValue and the tag walk behind SkipField. Typed decode depth is
	// tracked by the dispatch context instead.
	ctx *Context
}

func newDescriptiveReader(r *buffer.Reader, mode Mode) *descriptiveReader {
	return &descriptiveReader{
		binReader: binReader{r: r, mode: mode},
		ctx:       newContext(defaultMaxDepth, false),
	}
}

// SetMaxDepth bounds ReadValue recursion.
func (d *descriptiveReader) SetMaxDepth(limit int) { d.ctx.maxDepth = limit }

func (d *descriptiveReader) readKind() (tag.Kind, error) {
	c, err := d.r.ReadByte()
	if err != nil {
		return 0, err
	}
	k := tag.Kind(c)
	if !k.Valid() {
		return 0, fmt.Errorf("%w: 0x%02x", ErrInvalidTag, c)
	}
	return k, nil
}

func (d *descriptiveReader) Unit() error {
	k, err := d.readKind()
	if err != nil {
		return err
	}
	if k != tag.Unit {
		return fmt.Errorf("%w: expected unit, got %v", ErrInvalidTag, k)
	}
	return nil
}

func (d *descriptiveReader) Bool() (bool, error) {
	k, err := d.readKind()
	if err != nil {
		return false, err
	}
	switch k {
	case tag.True:
		return true, nil
	case tag.False:
		return false, nil
	}
	return false, fmt.Errorf("%w: expected bool, got %v", ErrInvalidTag, k)
}

// Uint accepts any unsigned kind whose value fits the target width, so a
// reader with a wider field than the writer keeps decoding.
func (d *descriptiveReader) Uint(bits uint8) (uint64, error) {
	k, err := d.readKind()
	if err != nil {
		return 0, err
	}
	if !k.IsUint() {
		return 0, fmt.Errorf("%w: expected unsigned integer, got %v", ErrInvalidTag, k)
	}
	v, err := d.getUint(k.Bits())
	if err != nil {
		return 0, err
	}
	if bits < 64 && v >= 1<<bits {
		return 0, fmt.Errorf("%w: %d does not fit %d bits", ErrIntegerOverflow, v, bits)
	}
	return v, nil
}

func (d *descriptiveReader) Int(bits uint8) (int64, error) {
	k, err := d.readKind()
	if err != nil {
		return 0, err
	}
	if !k.IsInt() {
		return 0, fmt.Errorf("%w: expected signed integer, got %v", ErrInvalidTag, k)
	}
	v, err := d.getInt(k.Bits())
	if err != nil {
		return 0, err
	}
	if bits < 64 {
		lo, hi := int64(-1)<<(bits-1), int64(1)<<(bits-1)-1
		if v < lo || v > hi {
			return 0, fmt.Errorf("%w: %d does not fit %d bits", ErrIntegerOverflow, v, bits)
		}
	}
	return v, nil
}

func (d *descriptiveReader) Float(bits uint8) (float64, error) {
	k, err := d.readKind()
	if err != nil {
		return 0, err
	}
	if !k.IsFloat() {
		return 0, fmt.Errorf("%w: expected float, got %v", ErrInvalidTag, k)
	}
	if k.Bits() > bits {
		return 0, fmt.Errorf("%w: f%d does not fit f%d", ErrIntegerOverflow, k.Bits(), bits)
	}
	return d.getFloat(k.Bits())
}

func (d *descriptiveReader) String() (string, error) {
	k, err := d.readKind()
	if err != nil {
		return "", err
	}
	if k != tag.String {
		return "", fmt.Errorf("%w: expected string, got %v", ErrInvalidTag, k)
	}
	return d.stringBody()
}

func (d *descriptiveReader) stringBody() (string, error) {
	p, err := d.getBytes()
	if err != nil {
		return "", err
	}
	if !utf8.Valid(p) {
		return "", fmt.Errorf("%w: %d bytes", ErrUtf8, len(p))
	}
	return string(p), nil
}

func (d *descriptiveReader) Bytes() ([]byte, error) {
	k, err := d.readKind()
	if err != nil {
		return nil, err
	}
	if k != tag.Bytes {
		return nil, fmt.Errorf("%w: expected bytes, got %v", ErrInvalidTag, k)
	}
	return d.getBytes()
}

func (d *descriptiveReader) beginCounted(want tag.Kind, what string) (int, error) {
	k, err := d.readKind()
	if err != nil {
		return 0, err
	}
	if k != want {
		return 0, fmt.Errorf("%w: expected %s, got %v", ErrInvalidTag, what, k)
	}
	n, err := d.getLen()
	if err != nil {
		return 0, err
	}
	d.counts = append(d.counts, n)
	return n, nil
}

func (d *descriptiveReader) BeginSequence() (int, error) {
	return d.beginCounted(tag.Sequence, "sequence")
}

func (d *descriptiveReader) MoreElements() (bool, error) {
	top := len(d.counts) - 1
	if d.counts[top] == 0 {
		return false, nil
	}
	d.counts[top]--
	return true, nil
}

func (d *descriptiveReader) EndSequence() error {
	d.counts = d.counts[:len(d.counts)-1]
	return nil
}

func (d *descriptiveReader) BeginMap() (int, error) {
	return d.beginCounted(tag.Map, "map")
}

func (d *descriptiveReader) MoreEntries() (bool, error) { return d.MoreElements() }
func (d *descriptiveReader) EndMap() error              { return d.EndSequence() }

func (d *descriptiveReader) BeginVariant() (uint64, error) {
	k, err := d.readKind()
	if err != nil {
		return 0, err
	}
	if k != tag.Variant {
		return 0, fmt.Errorf("%w: expected variant, got %v", ErrInvalidTag, k)
	}
	return varint.Read(d.r)
}

func (d *descriptiveReader) EndVariant() error { return nil }

func (d *descriptiveReader) BeginStruct() error {
	_, err := d.beginCounted(tag.Map, "struct map")
	return err
}

func (d *descriptiveReader) NextField() (uint64, string, bool, error) {
	top := len(d.counts) - 1
	if d.counts[top] == 0 {
		return 0, "", true, nil
	}
	d.counts[top]--
	name, err := d.String()
	if err != nil {
		return 0, "", false, err
	}
	return 0, name, false, nil
}

func (d *descriptiveReader) EndField() error { return nil }

// SkipField discards the field's value by walking it tag by tag.
func (d *descriptiveReader) SkipField() error {
	return d.skipValue()
}

func (d *descriptiveReader) EndStruct() error { return d.EndSequence() }

func (d *descriptiveReader) skipValue() error {
	_, err := d.ReadValue()
	return err
}

// ReadValue reconstructs one value with no external type information,
// yielding a schema-free tree.
func (d *descriptiveReader) ReadValue() (value.Value, error) {
	k, err := d.readKind()
	if err != nil {
		return value.Value{}, err
	}
	switch {
	case k == tag.Unit:
		return value.Unit(), nil
	case k == tag.True:
		return value.Bool(true), nil
	case k == tag.False:
		return value.Bool(false), nil
	case k.IsUint():
		v, err := d.getUint(k.Bits())
		if err != nil {
			return value.Value{}, err
		}
		return value.Uint(v, k.Bits()), nil
	case k.IsInt():
		v, err := d.getInt(k.Bits())
		if err != nil {
			return value.Value{}, err
		}
		return value.Int(v, k.Bits()), nil
	case k.IsFloat():
		f, err := d.getFloat(k.Bits())
		if err != nil {
			return value.Value{}, err
		}
		if k.Bits() == 32 {
			return value.Float32(float32(f)), nil
		}
		return value.Float64(f), nil
	case k == tag.String:
		s, err := d.stringBody()
		if err != nil {
			return value.Value{}, err
		}
		return value.String(s), nil
	case k == tag.Bytes:
		p, err := d.getBytes()
		if err != nil {
			return value.Value{}, err
		}
		out := make([]byte, len(p))
		copy(out, p)
		return value.Bytes(out), nil
	case k == tag.Sequence:
		if err := d.ctx.enter(); err != nil {
			return value.Value{}, err
		}
		defer d.ctx.leave()
		n, err := d.getLen()
		if err != nil {
			return value.Value{}, err
		}
		items := make([]value.Value, 0, n)
		for i := 0; i < n; i++ {
			d.ctx.pushIndex(i)
			it, err := d.ReadValue()
			if err != nil {
				err = d.ctx.fail(err)
			}
			d.ctx.pop()
			if err != nil {
				return value.Value{}, err
			}
			items = append(items, it)
		}
		return value.Sequence(items...), nil
	case k == tag.Map:
		if err := d.ctx.enter(); err != nil {
			return value.Value{}, err
		}
		defer d.ctx.leave()
		n, err := d.getLen()
		if err != nil {
			return value.Value{}, err
		}
		entries := make([]value.Entry, 0, n)
		for i := 0; i < n; i++ {
			key, err := d.ReadValue()
			if err != nil {
				return value.Value{}, d.ctx.fail(err)
			}
			d.ctx.pushKey(keyLabel(key))
			val, err := d.ReadValue()
			if err != nil {
				err = d.ctx.fail(err)
			}
			d.ctx.pop()
			if err != nil {
				return value.Value{}, err
			}
			entries = append(entries, value.Pair(key, val))
		}
		return value.Map(entries...), nil
	case k == tag.Variant:
		if err := d.ctx.enter(); err != nil {
			return value.Value{}, err
		}
		defer d.ctx.leave()
		disc, err := varint.Read(d.r)
		if err != nil {
			return value.Value{}, err
		}
		d.ctx.pushVariant(disc)
		body, err := d.ReadValue()
		if err != nil {
			err = d.ctx.fail(err)
		}
		d.ctx.pop()
		if err != nil {
			return value.Value{}, err
		}
		return value.Variant(disc, body), nil
	}
	return value.Value{}, fmt.Errorf("%w: %v", ErrInvalidTag, k)
}

// keyLabel renders a map key for diagnostic paths.
func keyLabel(k value.Value) string {
	if k.Kind == value.KindString {
		return k.S
	}
	return k.String()
}
