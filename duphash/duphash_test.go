package duphash

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExactHashEmpty(t *testing.T) {
	fp := ExactHash(nil)
	require.Equal(t, [4]byte{0, 0, 0, 0}, [4]byte{fp[0], fp[1], fp[2], fp[3]})
}

func TestExactHashKnownVector(t *testing.T) {
	// CRC-32 of "123456789" is the standard check value 0xCBF43926.
	fp := ExactHash([]byte("123456789"))
	require.Equal(t, byte(0x26), fp[0])
	require.Equal(t, byte(0x39), fp[1])
	require.Equal(t, byte(0xF4), fp[2])
	require.Equal(t, byte(0xCB), fp[3])
	require.Equal(t, byte(9), fp[4])
}

func TestExactHashLengthDiscriminates(t *testing.T) {
	a := ExactHash([]byte("hello"))
	b := ExactHash([]byte("hello!"))
	require.NotEqual(t, a, b)
}

func TestSimHashLength(t *testing.T) {
	fp := SimHash(map[string]int{"hello": 1, "world": 1})
	require.Len(t, fp, 32)
}

func TestSimHashStableUnderRareTokenChange(t *testing.T) {
	base := map[string]int{"the": 10, "quick": 5, "brown": 5, "fox": 3, "jumps": 1}
	changed := map[string]int{"the": 10, "quick": 5, "brown": 5, "fox": 3, "jumped": 1}

	fpBase := SimHash(base)
	fpChanged := SimHash(changed)
	require.LessOrEqual(t, HammingDistance(fpBase, fpChanged), SimilarityThreshold)
}

func TestIsSimilarThreshold(t *testing.T) {
	require.True(t, IsSimilar("000000", "000000"))
	require.True(t, IsSimilar("000000", "000111"))
	require.False(t, IsSimilar("000000", "001111"))
}

func TestRecentDequeEviction(t *testing.T) {
	d := NewRecentDeque(2)
	d.Push("00000000000000000000000000000000000000")
	d.Push("11111111111111111111111111111111111111")
	require.Equal(t, 2, d.Len())
	d.Push("00000000000000000000000000000000000001")
	require.Equal(t, 2, d.Len())
	_, found := d.FindSimilar("11111111111111111111111111111111111111")
	require.True(t, found)
}

func TestRecentDequeFindSimilar(t *testing.T) {
	d := NewRecentDeque(200)
	fp1 := SimHash(map[string]int{"hello": 5, "world": 3})
	d.Push(fp1)
	fp2 := SimHash(map[string]int{"hello": 5, "world": 3, "hello2": 1})
	_, found := d.FindSimilar(fp2)
	require.True(t, found)
}
