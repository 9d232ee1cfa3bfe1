package posting

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	p := New(42, 7, true)
	require.True(t, p.Important())
	require.NotZero(t, p.Bits&BitSentinel)

	decoded, err := Decode(p.Bytes())
	require.NoError(t, err)
	require.Equal(t, p, decoded)
}

func TestNotImportant(t *testing.T) {
	p := New(1, 1, false)
	require.False(t, p.Important())
}

func TestDecodeRejectsMissingSentinel(t *testing.T) {
	buf := New(1, 1, false).Bytes()
	buf[15] &^= 0x80 // clear top bit of the bits field's high byte
	_, err := Decode(buf)
	require.Error(t, err)
}

func TestDecodeListOrdering(t *testing.T) {
	ps := []Posting{New(1, 1, false), New(2, 3, true), New(5, 1, false)}
	var buf []byte
	for _, p := range ps {
		buf = append(buf, p.Bytes()...)
	}
	decoded, err := DecodeList(buf, len(ps))
	require.NoError(t, err)
	require.Equal(t, ps, decoded)
}
