// Package jsontext renders and parses JSON text through the engine's framing
// contract. It is the proof that the capability interfaces are not
// binary-specific: the same dispatch that drives the binary framings drives
// this one, and schema-free parsing produces the same value trees.
//
// Mapping: unit is null, structs and maps are objects, sequences are arrays,
// bytes are base64 strings, and a variant is a one-entry object keyed by the
// decimal discriminant. Non-string values in key position are rendered as
// their quoted text.
package jsontext

import (
	"encoding/base64"
	"encoding/json"
	"strconv"

	"github.com/oy3o/vellum/buffer"
)

type wframe struct {
	obj     bool
	n       int
	keyNext bool
}

// Writer emits JSON text through the framing capability set.
type Writer struct {
	w      *buffer.Writer
	frames []wframe
}

func NewWriter(w *buffer.Writer) *Writer {
	return &Writer{w: w}
}

// pre writes any separator the position requires and reports whether the
// next token is an object key.
func (e *Writer) pre() (key bool, err error) {
	if len(e.frames) == 0 {
		return false, e.w.Err()
	}
	f := &e.frames[len(e.frames)-1]
	if !f.obj {
		if f.n > 0 {
			if err := e.w.WriteByte(','); err != nil {
				return false, err
			}
		}
		f.n++
		return false, nil
	}
	if f.keyNext {
		if f.n > 0 {
			if err := e.w.WriteByte(','); err != nil {
				return false, err
			}
		}
		f.keyNext = false
		return true, nil
	}
	f.keyNext = true
	f.n++
	return false, e.w.WriteByte(':')
}

func (e *Writer) literal(s string, key bool) error {
	if key {
		return e.quoted(s)
	}
	_, err := e.w.WriteString(s)
	return err
}

func (e *Writer) quoted(s string) error {
	p, err := json.Marshal(s)
	if err != nil {
		return err
	}
	_, err = e.w.Write(p)
	return err
}

func (e *Writer) Unit() error {
	key, err := e.pre()
	if err != nil {
		return err
	}
	return e.literal("null", key)
}

func (e *Writer) Bool(v bool) error {
	key, err := e.pre()
	if err != nil {
		return err
	}
	return e.literal(strconv.FormatBool(v), key)
}

func (e *Writer) Uint(v uint64, bits uint8) error {
	key, err := e.pre()
	if err != nil {
		return err
	}
	return e.literal(strconv.FormatUint(v, 10), key)
}

func (e *Writer) Int(v int64, bits uint8) error {
	key, err := e.pre()
	if err != nil {
		return err
	}
	return e.literal(strconv.FormatInt(v, 10), key)
}

func (e *Writer) Float(v float64, bits uint8) error {
	key, err := e.pre()
	if err != nil {
		return err
	}
	return e.literal(strconv.FormatFloat(v, 'g', -1, int(bits)), key)
}

func (e *Writer) String(s string) error {
	if _, err := e.pre(); err != nil {
		return err
	}
	return e.quoted(s)
}

func (e *Writer) Bytes(p []byte) error {
	if _, err := e.pre(); err != nil {
		return err
	}
	return e.quoted(base64.StdEncoding.EncodeToString(p))
}

func (e *Writer) begin(c byte, obj bool) error {
	key, err := e.pre()
	if err != nil {
		return err
	}
	if key {
		return ErrKey
	}
	if err := e.w.WriteByte(c); err != nil {
		return err
	}
	e.frames = append(e.frames, wframe{obj: obj, keyNext: obj})
	return nil
}

func (e *Writer) end(c byte) error {
	e.frames = e.frames[:len(e.frames)-1]
	return e.w.WriteByte(c)
}

func (e *Writer) BeginSequence(n int) error { return e.begin('[', false) }
func (e *Writer) EndSequence() error        { return e.end(']') }

func (e *Writer) BeginMap(n int) error { return e.begin('{', true) }
func (e *Writer) EndMap() error        { return e.end('}') }

func (e *Writer) BeginVariant(disc uint64) error {
	if err := e.begin('{', true); err != nil {
		return err
	}
	return e.Uint(disc, 64)
}

func (e *Writer) EndVariant() error { return e.end('}') }

func (e *Writer) BeginStruct(n int) error { return e.begin('{', true) }

func (e *Writer) BeginField(id uint64, name string) error {
	return e.String(name)
}

func (e *Writer) EndField() error  { return nil }
func (e *Writer) EndStruct() error { return e.end('}') }
