package buffer

import "fmt"

// Reader is a bounds-checked cursor over a borrowed byte region.
//
// Every advance is checked against the remaining bytes before any state
// changes: an operation either succeeds in full or leaves the position
// untouched. The Reader never copies or takes ownership of the region.
type Reader struct {
	b   []byte
	pos int
}

// NewReader creates a Reader over b. The Reader borrows b; the caller must
// keep it alive and unmutated while the Reader (or any sub-reader) is in use.
func NewReader(b []byte) *Reader {
	return &Reader{b: b}
}

// Advance returns the next n bytes and moves the position past them.
// The returned slice aliases the underlying region.
func (r *Reader) Advance(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrNegativeCount
	}
	if n > len(r.b)-r.pos {
		return nil, fmt.Errorf("%w: need %d, have %d", ErrUnderflow, n, len(r.b)-r.pos)
	}
	p := r.b[r.pos : r.pos+n : r.pos+n]
	r.pos += n
	return p, nil
}

// ReadByte implements io.ByteReader over the region.
func (r *Reader) ReadByte() (byte, error) {
	if r.pos >= len(r.b) {
		return 0, fmt.Errorf("%w: need 1, have 0", ErrUnderflow)
	}
	c := r.b[r.pos]
	r.pos++
	return c, nil
}

// Peek returns the next n bytes without advancing.
func (r *Reader) Peek(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrNegativeCount
	}
	if n > len(r.b)-r.pos {
		return nil, fmt.Errorf("%w: need %d, have %d", ErrUnderflow, n, len(r.b)-r.pos)
	}
	return r.b[r.pos : r.pos+n : r.pos+n], nil
}

// Skip discards the next n bytes.
func (r *Reader) Skip(n int) error {
	_, err := r.Advance(n)
	return err
}

// Slice consumes the next n bytes and returns a Reader bounded to exactly
// that window. Used for length-delimited frames: the sub-reader cannot read
// past the declared length.
func (r *Reader) Slice(n int) (*Reader, error) {
	p, err := r.Advance(n)
	if err != nil {
		return nil, err
	}
	return &Reader{b: p}, nil
}

// Remaining reports the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.b) - r.pos }

// Position reports the current read position.
func (r *Reader) Position() int { return r.pos }

// Len reports the total length of the region.
func (r *Reader) Len() int { return len(r.b) }

// Seek moves the read position to pos.
func (r *Reader) Seek(pos int) error {
	if pos < 0 || pos > len(r.b) {
		return fmt.Errorf("%w: %d not in [0, %d]", ErrInvalidSeek, pos, len(r.b))
	}
	r.pos = pos
	return nil
}
