package vellum

import (
	"fmt"
	"unicode/utf8"

	"github.com/oy3o/vellum/buffer"
	"github.com/oy3o/vellum/varint"
)

// Storage framing carries no tags at all: values are concatenated in the
// positional order the descriptor declares, making it the most compact
// layout. The encode and decode order must match exactly; reordering or
// inserting fields between encode and decode silently corrupts the decode
// (or fails with a width mismatch) and is not internally detectable. Use the
// field-tagged framing when the schema needs room to evolve.

type storageWriter struct {
	binWriter
}

func newStorageWriter(w *buffer.Writer, mode Mode) *storageWriter {
	return &storageWriter{binWriter{w: w, mode: mode}}
}

func (e *storageWriter) Unit() error { return nil }

func (e *storageWriter) Bool(v bool) error {
	if v {
		return e.w.WriteByte(1)
	}
	return e.w.WriteByte(0)
}

func (e *storageWriter) Uint(v uint64, bits uint8) error   { return e.putUint(v, bits) }
func (e *storageWriter) Int(v int64, bits uint8) error     { return e.putInt(v, bits) }
func (e *storageWriter) Float(v float64, bits uint8) error { return e.putFloat(v, bits) }
func (e *storageWriter) String(s string) error             { return e.putString(s) }
func (e *storageWriter) Bytes(p []byte) error              { return e.putBytes(p) }

func (e *storageWriter) BeginSequence(n int) error { return e.putLen(n) }
func (e *storageWriter) EndSequence() error        { return nil }

func (e *storageWriter) BeginMap(n int) error { return e.putLen(n) }
func (e *storageWriter) EndMap() error        { return nil }

func (e *storageWriter) BeginVariant(disc uint64) error { return varint.Write(e.w, disc) }
func (e *storageWriter) EndVariant() error              { return nil }

func (e *storageWriter) BeginStruct(n int) error                { return nil }
func (e *storageWriter) BeginField(id uint64, name string) error { return nil }
func (e *storageWriter) EndField() error                        { return nil }
func (e *storageWriter) EndStruct() error                       { return nil }

type storageReader struct {
	binReader
	counts []int
}

func newStorageReader(r *buffer.Reader, mode Mode) *storageReader {
	return &storageReader{binReader: binReader{r: r, mode: mode}}
}

func (d *storageReader) Unit() error { return nil }

func (d *storageReader) Bool() (bool, error) {
	c, err := d.r.ReadByte()
	if err != nil {
		return false, err
	}
	return c != 0, nil
}

func (d *storageReader) Uint(bits uint8) (uint64, error)   { return d.getUint(bits) }
func (d *storageReader) Int(bits uint8) (int64, error)     { return d.getInt(bits) }
func (d *storageReader) Float(bits uint8) (float64, error) { return d.getFloat(bits) }

func (d *storageReader) String() (string, error) {
	p, err := d.getBytes()
	if err != nil {
		return "", err
	}
	if !utf8.Valid(p) {
		return "", fmt.Errorf("%w: %d bytes", ErrUtf8, len(p))
	}
	return string(p), nil
}

func (d *storageReader) Bytes() ([]byte, error) { return d.getBytes() }

func (d *storageReader) BeginSequence() (int, error) {
	n, err := d.getLen()
	if err != nil {
		return 0, err
	}
	d.counts = append(d.counts, n)
	return n, nil
}

func (d *storageReader) MoreElements() (bool, error) {
	top := len(d.counts) - 1
	if d.counts[top] == 0 {
		return false, nil
	}
	d.counts[top]--
	return true, nil
}

func (d *storageReader) EndSequence() error {
	d.counts = d.counts[:len(d.counts)-1]
	return nil
}

func (d *storageReader) BeginMap() (int, error)     { return d.BeginSequence() }
func (d *storageReader) MoreEntries() (bool, error) { return d.MoreElements() }
func (d *storageReader) EndMap() error              { return d.EndSequence() }

func (d *storageReader) BeginVariant() (uint64, error) {
	return varint.Read(d.r)
}

func (d *storageReader) EndVariant() error { return nil }

// Struct decoding is purely positional: dispatch drives field order from the
// descriptor, so NextField reports nothing and skipping is impossible.
func (d *storageReader) BeginStruct() error { return nil }

func (d *storageReader) NextField() (uint64, string, bool, error) {
	return 0, "", true, nil
}

func (d *storageReader) EndField() error { return nil }

func (d *storageReader) SkipField() error {
	return fmt.Errorf("%w: positional framing cannot skip fields", ErrUnsupportedShape)
}

func (d *storageReader) EndStruct() error { return nil }
