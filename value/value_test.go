package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEqual(t *testing.T) {
	a := Map(
		Pair(String("id"), Uint64(7)),
		Pair(String("tags"), Sequence(String("x"), String("y"))),
	)
	b := Map(
		Pair(String("id"), Uint64(7)),
		Pair(String("tags"), Sequence(String("x"), String("y"))),
	)
	assert.True(t, a.Equal(b))

	c := Map(
		Pair(String("id"), Uint64(8)),
		Pair(String("tags"), Sequence(String("x"), String("y"))),
	)
	assert.False(t, a.Equal(c))
}

func TestEqualIsWidthSensitive(t *testing.T) {
	assert.False(t, Uint(1, 8).Equal(Uint(1, 16)))
	assert.True(t, Uint(1, 8).Equal(Uint(1, 8)))
	assert.False(t, Uint64(1).Equal(Int64(1)))
}

func TestVariant(t *testing.T) {
	v := Variant(3, String("payload"))
	assert.Equal(t, uint64(3), v.Disc)
	assert.True(t, v.Body.Equal(String("payload")))

	assert.False(t, Variant(3, Unit()).Equal(Variant(4, Unit())))
	assert.True(t, Variant(3, Unit()).Equal(Variant(3, Unit())))
}

func TestStringRender(t *testing.T) {
	v := Sequence(Int64(1), String("x"))
	assert.Equal(t, `[1i64, "x"]`, v.String())

	m := Map(Pair(String("k"), Bool(true)))
	assert.Equal(t, `{"k": true}`, m.String())
}
