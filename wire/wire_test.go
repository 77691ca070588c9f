package wire

import (
	"testing"

	"github.com/lus-lang/lus/arena"
	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, v Value) Value {
	t.Helper()
	a := arena.NewStandalone(0)
	w := NewWriter(a)
	require.NoError(t, Encode(w, v))
	r := NewReader(w.Bytes())
	out, err := Decode(r)
	require.NoError(t, err)
	return out
}

func TestRoundTripScalars(t *testing.T) {
	require.True(t, Equal(Nil(), roundTrip(t, Nil())))
	require.True(t, Equal(Bool(true), roundTrip(t, Bool(true))))
	require.True(t, Equal(Int(42), roundTrip(t, Int(42))))
	require.True(t, Equal(Float(3.5), roundTrip(t, Float(3.5))))
	require.True(t, Equal(Str("hello"), roundTrip(t, Str("hello"))))
}

func TestRoundTripTable(t *testing.T) {
	tbl := Table([]TableEntry{
		{Key: Str("x"), Val: Int(1)},
		{Key: Str("y"), Val: Table([]TableEntry{{Key: Int(1), Val: Str("z")}})},
	})
	require.True(t, Equal(tbl, roundTrip(t, tbl)))
}

func TestDepthCapExceeded(t *testing.T) {
	v := Int(1)
	for i := 0; i < MaxTableDepth+5; i++ {
		v = Table([]TableEntry{{Key: Int(0), Val: v}})
	}
	a := arena.NewStandalone(0)
	w := NewWriter(a)
	err := Encode(w, v)
	require.ErrorIs(t, err, ErrDepthExceeded)
}
