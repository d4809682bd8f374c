package vellum

import (
	"fmt"
	"unicode/utf8"

	"github.com/oy3o/vellum/buffer"
	"github.com/oy3o/vellum/varint"
)

// Wire framing tags every struct field with a varint field id and a varint
// byte length, so a decoder can skip fields it does not recognize and new
// fields can be added on either side of a deployment without breaking the
// other. Everything below the field level reuses the positional primitive
// encodings: only struct fields need the skippability contract.
//
// Struct bodies themselves are framed by position: the top-level struct and
// a struct that is the sole occupant of a field body are bounded by the
// enclosing region and carry no extra metadata, while a struct nested inside
// a sequence, map or similar multi-occupant container gets its own varint
// byte-length prefix so its end can be found.
//
// A consequence of the bare top level is that wire values are not
// self-delimiting: one decode claims the whole remaining region. The reader
// rejects a field id that repeats within a region, so two concatenated
// values fail loudly instead of silently merging.

type wwFrame struct {
	parent   *buffer.Writer
	id       uint64
	prefixed bool
}

type wireWriter struct {
	binWriter
	// bounded tracks whether the current value position is the sole
	// occupant of a length-bounded region.
	bounded []bool
	frames  []wwFrame
}

func newWireWriter(w *buffer.Writer, mode Mode) *wireWriter {
	return &wireWriter{
		binWriter: binWriter{w: w, mode: mode},
		bounded:   []bool{true},
	}
}

func (e *wireWriter) top() bool { return e.bounded[len(e.bounded)-1] }

func (e *wireWriter) Unit() error { return nil }

func (e *wireWriter) Bool(v bool) error {
	if v {
		return e.w.WriteByte(1)
	}
	return e.w.WriteByte(0)
}

func (e *wireWriter) Uint(v uint64, bits uint8) error   { return e.putUint(v, bits) }
func (e *wireWriter) Int(v int64, bits uint8) error     { return e.putInt(v, bits) }
func (e *wireWriter) Float(v float64, bits uint8) error { return e.putFloat(v, bits) }
func (e *wireWriter) String(s string) error             { return e.putString(s) }
func (e *wireWriter) Bytes(p []byte) error              { return e.putBytes(p) }

func (e *wireWriter) BeginSequence(n int) error {
	e.bounded = append(e.bounded, false)
	return e.putLen(n)
}

func (e *wireWriter) EndSequence() error {
	e.bounded = e.bounded[:len(e.bounded)-1]
	return nil
}

func (e *wireWriter) BeginMap(n int) error { return e.BeginSequence(n) }
func (e *wireWriter) EndMap() error        { return e.EndSequence() }

func (e *wireWriter) BeginVariant(disc uint64) error {
	// The variant body inherits the boundedness of the variant itself: a
	// variant that solely occupies a region leaves the rest of that region
	// to its body.
	e.bounded = append(e.bounded, e.top())
	return varint.Write(e.w, disc)
}

func (e *wireWriter) EndVariant() error {
	e.bounded = e.bounded[:len(e.bounded)-1]
	return nil
}

func (e *wireWriter) BeginStruct(n int) error {
	if e.top() {
		e.frames = append(e.frames, wwFrame{})
		return nil
	}
	e.frames = append(e.frames, wwFrame{parent: e.w, prefixed: true})
	e.w = getScratch()
	return nil
}

func (e *wireWriter) EndStruct() error {
	f := e.frames[len(e.frames)-1]
	e.frames = e.frames[:len(e.frames)-1]
	if !f.prefixed {
		return nil
	}
	body := e.w
	e.w = f.parent
	defer putScratch(body)
	p, err := body.Result()
	if err != nil {
		return err
	}
	if err := e.putLen(len(p)); err != nil {
		return err
	}
	_, err = e.w.Write(p)
	return err
}

func (e *wireWriter) BeginField(id uint64, name string) error {
	e.frames = append(e.frames, wwFrame{parent: e.w, id: id})
	e.w = getScratch()
	e.bounded = append(e.bounded, true)
	return nil
}

func (e *wireWriter) EndField() error {
	f := e.frames[len(e.frames)-1]
	e.frames = e.frames[:len(e.frames)-1]
	e.bounded = e.bounded[:len(e.bounded)-1]
	body := e.w
	e.w = f.parent
	defer putScratch(body)
	p, err := body.Result()
	if err != nil {
		return err
	}
	if err := varint.Write(e.w, f.id); err != nil {
		return err
	}
	if err := e.putLen(len(p)); err != nil {
		return err
	}
	_, err = e.w.Write(p)
	return err
}

type wrFrame struct {
	parent *buffer.Reader
	sliced bool
}

type wireReader struct {
	binReader
	bounded []bool
	frames  []wrFrame
	counts  []int

	// seen tracks the field ids reported so far in each open struct region.
	seen []map[uint64]struct{}
}

func newWireReader(r *buffer.Reader, mode Mode) *wireReader {
	return &wireReader{
		binReader: binReader{r: r, mode: mode},
		bounded:   []bool{true},
	}
}

func (d *wireReader) top() bool { return d.bounded[len(d.bounded)-1] }

func (d *wireReader) Unit() error { return nil }

func (d *wireReader) Bool() (bool, error) {
	c, err := d.r.ReadByte()
	if err != nil {
		return false, err
	}
	return c != 0, nil
}

func (d *wireReader) Uint(bits uint8) (uint64, error)   { return d.getUint(bits) }
func (d *wireReader) Int(bits uint8) (int64, error)     { return d.getInt(bits) }
func (d *wireReader) Float(bits uint8) (float64, error) { return d.getFloat(bits) }

func (d *wireReader) String() (string, error) {
	p, err := d.getBytes()
	if err != nil {
		return "", err
	}
	if !utf8.Valid(p) {
		return "", fmt.Errorf("%w: %d bytes", ErrUtf8, len(p))
	}
	return string(p), nil
}

func (d *wireReader) Bytes() ([]byte, error) { return d.getBytes() }

func (d *wireReader) BeginSequence() (int, error) {
	n, err := d.getLen()
	if err != nil {
		return 0, err
	}
	d.counts = append(d.counts, n)
	d.bounded = append(d.bounded, false)
	return n, nil
}

func (d *wireReader) MoreElements() (bool, error) {
	top := len(d.counts) - 1
	if d.counts[top] == 0 {
		return false, nil
	}
	d.counts[top]--
	return true, nil
}

func (d *wireReader) EndSequence() error {
	d.counts = d.counts[:len(d.counts)-1]
	d.bounded = d.bounded[:len(d.bounded)-1]
	return nil
}

func (d *wireReader) BeginMap() (int, error)     { return d.BeginSequence() }
func (d *wireReader) MoreEntries() (bool, error) { return d.MoreElements() }
func (d *wireReader) EndMap() error              { return d.EndSequence() }

func (d *wireReader) BeginVariant() (uint64, error) {
	d.bounded = append(d.bounded, d.top())
	return varint.Read(d.r)
}

func (d *wireReader) EndVariant() error {
	d.bounded = d.bounded[:len(d.bounded)-1]
	return nil
}

func (d *wireReader) BeginStruct() error {
	d.seen = append(d.seen, make(map[uint64]struct{}))
	if d.top() {
		d.frames = append(d.frames, wrFrame{})
		return nil
	}
	n, err := d.getLen()
	if err != nil {
		return err
	}
	sub, err := d.r.Slice(n)
	if err != nil {
		return errLengthBeyond(uint64(n), d.r.Remaining())
	}
	d.frames = append(d.frames, wrFrame{parent: d.r, sliced: true})
	d.r = sub
	return nil
}

// NextField scans the next (id, length) pair and bounds the reader to the
// field's payload. It reports done when the struct's region is exhausted.
// An id that already appeared in this region fails: an encoder writes each
// field once, so a repeat means the region spans more than one value.
func (d *wireReader) NextField() (uint64, string, bool, error) {
	if d.r.Remaining() == 0 {
		return 0, "", true, nil
	}
	id, err := varint.Read(d.r)
	if err != nil {
		return 0, "", false, err
	}
	ids := d.seen[len(d.seen)-1]
	if _, dup := ids[id]; dup {
		return 0, "", false, fmt.Errorf("%w: id %d", ErrDuplicateField, id)
	}
	ids[id] = struct{}{}
	n, err := d.getLen()
	if err != nil {
		return 0, "", false, err
	}
	sub, err := d.r.Slice(n)
	if err != nil {
		return 0, "", false, errLengthBeyond(uint64(n), d.r.Remaining())
	}
	d.frames = append(d.frames, wrFrame{parent: d.r, sliced: true})
	d.r = sub
	d.bounded = append(d.bounded, true)
	return id, "", false, nil
}

// EndField verifies the declared length exactly bounded the payload that was
// consumed; leftover bytes mean the encoder and decoder disagree about the
// field's shape.
func (d *wireReader) EndField() error {
	f := d.frames[len(d.frames)-1]
	d.frames = d.frames[:len(d.frames)-1]
	d.bounded = d.bounded[:len(d.bounded)-1]
	if rem := d.r.Remaining(); rem != 0 {
		return fmt.Errorf("%w: %d bytes left inside field frame", ErrTruncated, rem)
	}
	d.r = f.parent
	return nil
}

// SkipField discards the remainder of the current field payload. This is the
// forward-compatibility contract: an unknown id consumes exactly its
// declared length and decoding continues.
func (d *wireReader) SkipField() error {
	f := d.frames[len(d.frames)-1]
	d.frames = d.frames[:len(d.frames)-1]
	d.bounded = d.bounded[:len(d.bounded)-1]
	d.r = f.parent
	return nil
}

func (d *wireReader) EndStruct() error {
	d.seen = d.seen[:len(d.seen)-1]
	f := d.frames[len(d.frames)-1]
	d.frames = d.frames[:len(d.frames)-1]
	if f.sliced {
		if rem := d.r.Remaining(); rem != 0 {
			return fmt.Errorf("%w: %d bytes left inside struct frame", ErrTruncated, rem)
		}
		d.r = f.parent
	}
	return nil
}
