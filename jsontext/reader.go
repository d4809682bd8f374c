package jsontext

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	vellum "github.com/oy3o/vellum"
	"github.com/oy3o/vellum/buffer"
	"github.com/oy3o/vellum/value"
)

type rframe struct {
	obj   bool
	first bool
	key   bool
	colon bool
}

// maxNesting bounds readRaw recursion when no explicit limit has been set.
const maxNesting = 128

// Reader parses JSON text through the framing capability set. It is a
// single-pass tokenizer over a byte cursor; no intermediate DOM is built
// unless the caller asks for a schema-free tree via ReadValue.
type Reader struct {
	r      *buffer.Reader
	frames []rframe

	depth    int
	maxDepth int
}

func NewReader(r *buffer.Reader) *Reader {
	return &Reader{r: r, maxDepth: maxNesting}
}

// SetMaxDepth bounds the recursion of schema-free parsing and value
// skipping. Zero or negative means unlimited.
func (d *Reader) SetMaxDepth(limit int) { d.maxDepth = limit }

func (d *Reader) enter() error {
	d.depth++
	if d.maxDepth > 0 && d.depth > d.maxDepth {
		return fmt.Errorf("%w: %d", vellum.ErrMaxDepth, d.maxDepth)
	}
	return nil
}

func (d *Reader) leave() { d.depth-- }

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func (d *Reader) skipWS() {
	for {
		p, err := d.r.Peek(1)
		if err != nil || !isSpace(p[0]) {
			return
		}
		_, _ = d.r.ReadByte()
	}
}

func (d *Reader) peek() (byte, error) {
	d.skipWS()
	p, err := d.r.Peek(1)
	if err != nil {
		return 0, err
	}
	return p[0], nil
}

func (d *Reader) expect(c byte) error {
	got, err := d.peek()
	if err != nil {
		return err
	}
	if got != c {
		return fmt.Errorf("%w: expected %q, found %q", ErrSyntax, c, got)
	}
	_, err = d.r.ReadByte()
	return err
}

// pre consumes any separator the position requires and reports whether the
// next token sits in object-key position.
func (d *Reader) pre() (key bool, err error) {
	d.skipWS()
	if len(d.frames) == 0 {
		return false, nil
	}
	f := &d.frames[len(d.frames)-1]
	if f.obj && f.key {
		f.key = false
		f.colon = true
		return true, nil
	}
	if f.obj && f.colon {
		f.colon = false
		if err := d.expect(':'); err != nil {
			return false, err
		}
		d.skipWS()
	}
	return false, nil
}

// stringToken consumes one quoted string and decodes its escapes.
func (d *Reader) stringToken() (string, error) {
	d.skipWS()
	tok, err := d.rawStringToken()
	if err != nil {
		return "", err
	}
	var s string
	if err := json.Unmarshal(tok, &s); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	return s, nil
}

// rawStringToken consumes one quoted string including the quotes, leaving
// escapes intact.
func (d *Reader) rawStringToken() ([]byte, error) {
	start := d.r.Position()
	c, err := d.r.ReadByte()
	if err != nil {
		return nil, err
	}
	if c != '"' {
		return nil, fmt.Errorf("%w: expected string, found %q", ErrSyntax, c)
	}
	for {
		c, err := d.r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("%w: unterminated string", ErrSyntax)
		}
		switch c {
		case '\\':
			if _, err := d.r.ReadByte(); err != nil {
				return nil, fmt.Errorf("%w: unterminated escape", ErrSyntax)
			}
		case '"':
			end := d.r.Position()
			if err := d.r.Seek(start); err != nil {
				return nil, err
			}
			return d.r.Advance(end - start)
		}
	}
}

func (d *Reader) numberToken() (string, error) {
	d.skipWS()
	var sb strings.Builder
	for {
		p, err := d.r.Peek(1)
		if err != nil {
			break
		}
		c := p[0]
		if (c < '0' || c > '9') && c != '-' && c != '+' && c != '.' && c != 'e' && c != 'E' {
			break
		}
		sb.WriteByte(c)
		_, _ = d.r.ReadByte()
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("%w: expected number", ErrSyntax)
	}
	return sb.String(), nil
}

func (d *Reader) literal(lit string) error {
	p, err := d.r.Peek(len(lit))
	if err != nil {
		return err
	}
	if string(p) != lit {
		return fmt.Errorf("%w: expected %s", ErrSyntax, lit)
	}
	return d.r.Skip(len(lit))
}

func (d *Reader) Unit() error {
	if _, err := d.pre(); err != nil {
		return err
	}
	d.skipWS()
	return d.literal("null")
}

func (d *Reader) Bool() (bool, error) {
	key, err := d.pre()
	if err != nil {
		return false, err
	}
	tok := ""
	if key {
		tok, err = d.stringToken()
		if err != nil {
			return false, err
		}
	} else {
		c, err := d.peek()
		if err != nil {
			return false, err
		}
		if c == 't' {
			tok = "true"
		} else {
			tok = "false"
		}
		if err := d.literal(tok); err != nil {
			return false, err
		}
	}
	v, err := strconv.ParseBool(tok)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	return v, nil
}

func (d *Reader) scalarToken(key bool) (string, error) {
	if key {
		return d.stringToken()
	}
	return d.numberToken()
}

func (d *Reader) Uint(bits uint8) (uint64, error) {
	key, err := d.pre()
	if err != nil {
		return 0, err
	}
	tok, err := d.scalarToken(key)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(tok, 10, int(bits))
	if err != nil {
		if strings.Contains(err.Error(), "out of range") {
			return 0, fmt.Errorf("%w: %q does not fit %d bits", vellum.ErrIntegerOverflow, tok, bits)
		}
		return 0, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	return v, nil
}

func (d *Reader) Int(bits uint8) (int64, error) {
	key, err := d.pre()
	if err != nil {
		return 0, err
	}
	tok, err := d.scalarToken(key)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(tok, 10, int(bits))
	if err != nil {
		if strings.Contains(err.Error(), "out of range") {
			return 0, fmt.Errorf("%w: %q does not fit %d bits", vellum.ErrIntegerOverflow, tok, bits)
		}
		return 0, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	return v, nil
}

func (d *Reader) Float(bits uint8) (float64, error) {
	key, err := d.pre()
	if err != nil {
		return 0, err
	}
	tok, err := d.scalarToken(key)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(tok, int(bits))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	return v, nil
}

func (d *Reader) String() (string, error) {
	if _, err := d.pre(); err != nil {
		return "", err
	}
	return d.stringToken()
}

func (d *Reader) Bytes() ([]byte, error) {
	s, err := d.String()
	if err != nil {
		return nil, err
	}
	p, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	return p, nil
}

func (d *Reader) begin(c byte, obj bool) error {
	if _, err := d.pre(); err != nil {
		return err
	}
	if err := d.expect(c); err != nil {
		return err
	}
	d.frames = append(d.frames, rframe{obj: obj, first: true})
	return nil
}

func (d *Reader) end(c byte) error {
	d.frames = d.frames[:len(d.frames)-1]
	return d.expect(c)
}

// more consumes the element separator and reports whether another element
// follows before the closing delimiter.
func (d *Reader) more(closing byte) (bool, error) {
	c, err := d.peek()
	if err != nil {
		return false, err
	}
	if c == closing {
		return false, nil
	}
	f := &d.frames[len(d.frames)-1]
	if f.first {
		f.first = false
		return true, nil
	}
	if err := d.expect(','); err != nil {
		return false, err
	}
	return true, nil
}

// BeginSequence reports -1: JSON does not announce element counts.
func (d *Reader) BeginSequence() (int, error) {
	if err := d.begin('[', false); err != nil {
		return 0, err
	}
	return -1, nil
}

func (d *Reader) MoreElements() (bool, error) { return d.more(']') }
func (d *Reader) EndSequence() error          { return d.end(']') }

func (d *Reader) BeginMap() (int, error) {
	if err := d.begin('{', true); err != nil {
		return 0, err
	}
	return -1, nil
}

func (d *Reader) MoreEntries() (bool, error) {
	ok, err := d.more('}')
	if err != nil || !ok {
		return ok, err
	}
	d.frames[len(d.frames)-1].key = true
	return true, nil
}

func (d *Reader) EndMap() error { return d.end('}') }

func (d *Reader) BeginVariant() (uint64, error) {
	if err := d.begin('{', true); err != nil {
		return 0, err
	}
	key, err := d.stringToken()
	if err != nil {
		return 0, err
	}
	disc, err := strconv.ParseUint(key, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: variant discriminant %q", ErrSyntax, key)
	}
	d.frames[len(d.frames)-1].colon = true
	return disc, nil
}

func (d *Reader) EndVariant() error { return d.end('}') }

func (d *Reader) BeginStruct() error { return d.begin('{', true) }

func (d *Reader) NextField() (uint64, string, bool, error) {
	ok, err := d.more('}')
	if err != nil {
		return 0, "", false, err
	}
	if !ok {
		return 0, "", true, nil
	}
	name, err := d.stringToken()
	if err != nil {
		return 0, "", false, err
	}
	d.frames[len(d.frames)-1].colon = true
	return 0, name, false, nil
}

func (d *Reader) EndField() error { return nil }

func (d *Reader) SkipField() error {
	f := &d.frames[len(d.frames)-1]
	if f.colon {
		f.colon = false
		if err := d.expect(':'); err != nil {
			return err
		}
	}
	return d.skipRaw()
}

func (d *Reader) EndStruct() error { return d.end('}') }

// skipRaw discards one complete JSON value with no frame bookkeeping.
func (d *Reader) skipRaw() error {
	_, err := d.readRaw()
	return err
}

// ReadValue parses one complete JSON value into a schema-free tree.
// Numbers with a fraction or exponent become 64-bit floats; integral
// numbers become 64-bit signed or unsigned depending on sign. Objects
// become maps with string keys.
func (d *Reader) ReadValue() (value.Value, error) {
	d.skipWS()
	return d.readRaw()
}

func (d *Reader) readRaw() (value.Value, error) {
	c, err := d.peek()
	if err != nil {
		return value.Value{}, err
	}
	switch {
	case c == 'n':
		return value.Unit(), d.literal("null")
	case c == 't':
		return value.Bool(true), d.literal("true")
	case c == 'f':
		return value.Bool(false), d.literal("false")
	case c == '"':
		s, err := d.stringToken()
		if err != nil {
			return value.Value{}, err
		}
		return value.String(s), nil
	case c == '[':
		_, _ = d.r.ReadByte()
		if err := d.enter(); err != nil {
			return value.Value{}, err
		}
		defer d.leave()
		var items []value.Value
		for {
			c, err := d.peek()
			if err != nil {
				return value.Value{}, err
			}
			if c == ']' {
				_, _ = d.r.ReadByte()
				return value.Sequence(items...), nil
			}
			if len(items) > 0 {
				if err := d.expect(','); err != nil {
					return value.Value{}, err
				}
			}
			it, err := d.readRaw()
			if err != nil {
				return value.Value{}, err
			}
			items = append(items, it)
		}
	case c == '{':
		_, _ = d.r.ReadByte()
		if err := d.enter(); err != nil {
			return value.Value{}, err
		}
		defer d.leave()
		var entries []value.Entry
		for {
			c, err := d.peek()
			if err != nil {
				return value.Value{}, err
			}
			if c == '}' {
				_, _ = d.r.ReadByte()
				return value.Map(entries...), nil
			}
			if len(entries) > 0 {
				if err := d.expect(','); err != nil {
					return value.Value{}, err
				}
				d.skipWS()
			}
			key, err := d.stringToken()
			if err != nil {
				return value.Value{}, err
			}
			if err := d.expect(':'); err != nil {
				return value.Value{}, err
			}
			d.skipWS()
			val, err := d.readRaw()
			if err != nil {
				return value.Value{}, err
			}
			entries = append(entries, value.Pair(value.String(key), val))
		}
	default:
		tok, err := d.numberToken()
		if err != nil {
			return value.Value{}, err
		}
		if strings.ContainsAny(tok, ".eE") {
			f, err := strconv.ParseFloat(tok, 64)
			if err != nil {
				return value.Value{}, fmt.Errorf("%w: %v", ErrSyntax, err)
			}
			return value.Float64(f), nil
		}
		if strings.HasPrefix(tok, "-") {
			n, err := strconv.ParseInt(tok, 10, 64)
			if err != nil {
				return value.Value{}, fmt.Errorf("%w: %v", ErrSyntax, err)
			}
			return value.Int64(n), nil
		}
		u, err := strconv.ParseUint(tok, 10, 64)
		if err != nil {
			return value.Value{}, fmt.Errorf("%w: %v", ErrSyntax, err)
		}
		return value.Uint64(u), nil
	}
}
