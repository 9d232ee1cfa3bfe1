package codec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTripU8(t *testing.T) {
	for _, v := range []uint8{0, 1, 127, 255} {
		got, n, err := DecodeU8(EncodeU8(v))
		require.NoError(t, err)
		require.Equal(t, 1, n)
		require.Equal(t, v, got)
	}
}

func TestRoundTripU32(t *testing.T) {
	for _, v := range []uint32{0, 1, 1 << 31, 0xFFFFFFFF} {
		got, n, err := DecodeU32(EncodeU32(v))
		require.NoError(t, err)
		require.Equal(t, 4, n)
		require.Equal(t, v, got)
	}
}

func TestRoundTripU64(t *testing.T) {
	for _, v := range []uint64{0, 1, 1 << 63, 0xFFFFFFFFFFFFFFFF} {
		got, n, err := DecodeU64(EncodeU64(v))
		require.NoError(t, err)
		require.Equal(t, 8, n)
		require.Equal(t, v, got)
	}
}

func TestRoundTripF32(t *testing.T) {
	for _, v := range []float32{0, 1, -1, 3.14159, 1e30} {
		got, n, err := DecodeF32(EncodeF32(v))
		require.NoError(t, err)
		require.Equal(t, 4, n)
		require.Equal(t, v, got)
	}
}

func TestRoundTripStr(t *testing.T) {
	for _, s := range []string{"", "hello", "héllo wörld 日本語", "x"} {
		got, n, err := DecodeStr(EncodeStr(s))
		require.NoError(t, err)
		require.Equal(t, len(EncodeStr(s)), n)
		require.Equal(t, s, got)
	}
}

func TestDecodeShortReadFails(t *testing.T) {
	_, _, err := DecodeU32([]byte{1, 2})
	require.ErrorIs(t, err, ErrCorruptRecord)

	_, _, err = DecodeStr([]byte{5, 0, 0, 0, 'h', 'i'}) // declares 5 bytes, only has 2
	require.ErrorIs(t, err, ErrCorruptRecord)
}
