package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// --- Reader Test Suite ---

type ReaderTestSuite struct {
	suite.Suite
}

func (s *ReaderTestSuite) TestSuccessfulReads() {
	r := NewReader([]byte{0x01, 0x02, 0x03, 0x04, 0x05})

	c, err := r.ReadByte()
	s.Require().NoError(err)
	s.Assert().Equal(byte(0x01), c)

	p, err := r.Advance(2)
	s.Require().NoError(err)
	s.Assert().Equal([]byte{0x02, 0x03}, p)
	s.Assert().Equal(3, r.Position())
	s.Assert().Equal(2, r.Remaining())
}

func (s *ReaderTestSuite) TestFullOrUnchanged() {
	r := NewReader([]byte{0x01, 0x02, 0x03})
	r.Skip(1)

	// A read past the end must fail without moving the position.
	_, err := r.Advance(3)
	s.Require().Error(err)
	s.Assert().ErrorIs(err, ErrUnderflow)
	s.Assert().Equal(1, r.Position())

	// The remaining bytes are still readable in full.
	p, err := r.Advance(2)
	s.Require().NoError(err)
	s.Assert().Equal([]byte{0x02, 0x03}, p)

	_, err = r.ReadByte()
	s.Assert().ErrorIs(err, ErrUnderflow)
}

func (s *ReaderTestSuite) TestPeekDoesNotAdvance() {
	r := NewReader([]byte{0xAA, 0xBB})

	p, err := r.Peek(2)
	s.Require().NoError(err)
	s.Assert().Equal([]byte{0xAA, 0xBB}, p)
	s.Assert().Equal(0, r.Position())

	_, err = r.Peek(3)
	s.Assert().ErrorIs(err, ErrUnderflow)
}

func (s *ReaderTestSuite) TestSliceBoundsSubReader() {
	r := NewReader([]byte{0x01, 0x02, 0x03, 0x04})

	sub, err := r.Slice(2)
	s.Require().NoError(err)
	s.Assert().Equal(2, r.Position(), "Slice consumes the window from the parent")

	p, err := sub.Advance(2)
	s.Require().NoError(err)
	s.Assert().Equal([]byte{0x01, 0x02}, p)

	// The sub-reader cannot see past its declared window.
	_, err = sub.ReadByte()
	s.Assert().ErrorIs(err, ErrUnderflow)

	_, err = r.Slice(5)
	s.Assert().ErrorIs(err, ErrUnderflow)
}

func (s *ReaderTestSuite) TestSeek() {
	r := NewReader([]byte{0x01, 0x02, 0x03})
	s.Require().NoError(r.Seek(2))
	c, _ := r.ReadByte()
	s.Assert().Equal(byte(0x03), c)

	s.Assert().ErrorIs(r.Seek(-1), ErrInvalidSeek)
	s.Assert().ErrorIs(r.Seek(4), ErrInvalidSeek)
}

func (s *ReaderTestSuite) TestNegativeCount() {
	r := NewReader([]byte{0x01})
	_, err := r.Advance(-1)
	s.Assert().ErrorIs(err, ErrNegativeCount)
	_, err = r.Peek(-1)
	s.Assert().ErrorIs(err, ErrNegativeCount)
}

func TestReader(t *testing.T) {
	suite.Run(t, new(ReaderTestSuite))
}

// --- Writer Test Suite ---

type WriterTestSuite struct {
	suite.Suite
}

func (s *WriterTestSuite) TestBasicWrites() {
	w := NewWriter(4)
	w.WriteByte(0xAA)
	w.Write([]byte{0xBB, 0xCC})
	w.WriteString("hi")

	p, err := w.Result()
	s.Require().NoError(err)
	s.Assert().Equal([]byte{0xAA, 0xBB, 0xCC, 'h', 'i'}, p)
}

func (s *WriterTestSuite) TestGrowsPastHint() {
	w := NewWriter(2)
	for i := 0; i < 100; i++ {
		s.Require().NoError(w.WriteByte(byte(i)))
	}
	s.Assert().Equal(100, w.Len())
}

func (s *WriterTestSuite) TestFixedCapacity() {
	s.T().Run("ExactFit", func(t *testing.T) {
		w := NewFixed(make([]byte, 3))
		_, err := w.Write([]byte{1, 2, 3})
		require.NoError(t, err)
		p, err := w.Result()
		require.NoError(t, err)
		assert.Equal(t, []byte{1, 2, 3}, p)
	})

	s.T().Run("OverflowLatches", func(t *testing.T) {
		w := NewFixed(make([]byte, 2))
		require.NoError(t, w.WriteByte(1))
		_, err := w.Write([]byte{2, 3})
		require.ErrorIs(t, err, ErrCapacityExceeded)

		// Later writes are no-ops and Result reports the latched error.
		assert.ErrorIs(t, w.WriteByte(4), ErrCapacityExceeded)
		_, err = w.Result()
		assert.ErrorIs(t, err, ErrCapacityExceeded)
	})

	s.T().Run("FailedWriteDoesNotAdvance", func(t *testing.T) {
		w := NewFixed(make([]byte, 2))
		w.WriteByte(1)
		w.Write([]byte{2, 3})
		assert.Equal(t, 1, w.Position())
	})
}

func (s *WriterTestSuite) TestReserveAndBackpatch() {
	w := NewWriter(8)
	off, err := w.Reserve(2)
	s.Require().NoError(err)
	s.Assert().Equal(0, off)
	w.Write([]byte{0xEE, 0xFF})

	s.Require().NoError(w.Seek(off))
	w.Write([]byte{0x12, 0x34})

	s.Require().NoError(w.Seek(w.Len()))
	w.WriteByte(0x56)

	p, err := w.Result()
	s.Require().NoError(err)
	s.Assert().Equal([]byte{0x12, 0x34, 0xEE, 0xFF, 0x56}, p)
}

func (s *WriterTestSuite) TestTruncateAndReset() {
	w := NewWriter(8)
	w.Write([]byte{1, 2, 3, 4})
	w.Truncate(2)
	s.Assert().Equal([]byte{1, 2}, w.Bytes())

	w.Reset()
	s.Assert().Zero(w.Len())
	s.Require().NoError(w.Err())
	w.WriteByte(9)
	s.Assert().Equal([]byte{9}, w.Bytes())
}

func (s *WriterTestSuite) TestSeekBounds() {
	w := NewWriter(4)
	w.Write([]byte{1, 2})
	s.Assert().ErrorIs(w.Seek(3), ErrInvalidSeek)
	s.Assert().ErrorIs(w.Err(), ErrInvalidSeek)
}

func TestWriter(t *testing.T) {
	suite.Run(t, new(WriterTestSuite))
}
