package buffer

import "fmt"

// Writer is a write cursor over an owned growable region or a caller-supplied
// fixed-capacity region. Both behave identically behind the same interface so
// encoders stay agnostic to the allocation strategy.
//
// Writer latches the first error it encounters. After an error every
// operation becomes a no-op, so encoders can issue a run of writes and check
// Err (or Result) once at the end. A failed write never partially advances
// the position.
type Writer struct {
	b     []byte
	pos   int
	fixed bool
	err   error
}

// NewWriter creates a growable Writer with the given capacity hint.
func NewWriter(hint int) *Writer {
	if hint < 0 {
		hint = 0
	}
	return &Writer{b: make([]byte, 0, hint)}
}

// NewFixed creates a Writer over the caller-supplied region dst. The Writer
// never grows past len(dst); writes beyond it fail with ErrCapacityExceeded.
func NewFixed(dst []byte) *Writer {
	return &Writer{b: dst[:0:len(dst)], fixed: true}
}

// ensure extends the region so that n bytes can be written at the current
// position. On failure the region and position are unchanged.
func (w *Writer) ensure(n int) error {
	need := w.pos + n
	if need <= len(w.b) {
		return nil
	}
	if need > cap(w.b) {
		if w.fixed {
			w.err = fmt.Errorf("%w: need %d, capacity %d", ErrCapacityExceeded, need, cap(w.b))
			return w.err
		}
		newCap := 2 * cap(w.b)
		if newCap < need {
			newCap = need
		}
		if newCap < 64 {
			newCap = 64
		}
		nb := make([]byte, len(w.b), newCap)
		copy(nb, w.b)
		w.b = nb
	}
	w.b = w.b[:need]
	return nil
}

// Write implements io.Writer. Writing past the current length at an earlier
// seek position overwrites and then extends.
func (w *Writer) Write(p []byte) (int, error) {
	if w.err != nil {
		return 0, w.err
	}
	if err := w.ensure(len(p)); err != nil {
		return 0, err
	}
	copy(w.b[w.pos:], p)
	w.pos += len(p)
	return len(p), nil
}

// WriteByte implements io.ByteWriter.
func (w *Writer) WriteByte(c byte) error {
	if w.err != nil {
		return w.err
	}
	if err := w.ensure(1); err != nil {
		return err
	}
	w.b[w.pos] = c
	w.pos++
	return nil
}

// WriteString implements io.StringWriter.
func (w *Writer) WriteString(s string) (int, error) {
	if w.err != nil {
		return 0, w.err
	}
	if err := w.ensure(len(s)); err != nil {
		return 0, err
	}
	copy(w.b[w.pos:], s)
	w.pos += len(s)
	return len(s), nil
}

// Reserve appends n zero bytes and returns the offset of the reserved span.
// Combined with Seek this supports length back-patching: reserve a
// placeholder, write the payload, seek back and fill in the true value.
func (w *Writer) Reserve(n int) (int, error) {
	if w.err != nil {
		return 0, w.err
	}
	if n < 0 {
		w.err = ErrNegativeCount
		return 0, w.err
	}
	if err := w.ensure(n); err != nil {
		return 0, err
	}
	off := w.pos
	clear(w.b[off : off+n])
	w.pos += n
	return off, nil
}

// Position reports the current write position.
func (w *Writer) Position() int { return w.pos }

// Len reports the high-water length of written data.
func (w *Writer) Len() int { return len(w.b) }

// Seek moves the write position. Seeking backward lets a caller overwrite a
// previously reserved span; it never discards bytes already written.
func (w *Writer) Seek(pos int) error {
	if w.err != nil {
		return w.err
	}
	if pos < 0 || pos > len(w.b) {
		w.err = fmt.Errorf("%w: %d not in [0, %d]", ErrInvalidSeek, pos, len(w.b))
		return w.err
	}
	w.pos = pos
	return nil
}

// Truncate shortens the written data to n bytes.
func (w *Writer) Truncate(n int) {
	if w.err != nil || n < 0 || n > len(w.b) {
		return
	}
	w.b = w.b[:n]
	if w.pos > n {
		w.pos = n
	}
}

// Reset clears the written data so the region can be reused.
func (w *Writer) Reset() {
	w.b = w.b[:0]
	w.pos = 0
	w.err = nil
}

// Err returns the first error encountered, if any.
func (w *Writer) Err() error { return w.err }

// Bytes returns the written data. The slice aliases the Writer's region.
func (w *Writer) Bytes() []byte { return w.b }

// Result returns the written data and the final error state. No usable
// output is returned once an error has been latched.
func (w *Writer) Result() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	return w.b, nil
}
