package docstore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDocumentRoundTrip(t *testing.T) {
	d := NewDocument(7, 240, "https://example.com/a")
	buf := d.Bytes()

	got, n, err := Decode(buf)
	require.NoError(t, err)
	require.Equal(t, len(buf), n)
	require.Equal(t, d.DocID, got.DocID)
	require.Equal(t, d.TotalTokens, got.TotalTokens)
	require.Equal(t, d.PRQuality, got.PRQuality)
	require.Equal(t, d.HubQuality, got.HubQuality)
	require.Equal(t, d.AuthQuality, got.AuthQuality)
	require.Equal(t, d.URL, got.URL)
	require.False(t, got.Empty)
}

func TestPlaceholderEmpty(t *testing.T) {
	p := Placeholder(3)
	require.True(t, p.Empty)
	require.Equal(t, "", p.URL)
	require.Equal(t, uint32(0), p.TotalTokens)
}

func TestDecodeMultipleConsecutive(t *testing.T) {
	a := NewDocument(1, 10, "https://a.example/")
	b := NewDocument(2, 20, "https://b.example/longer-path-here")

	buf := append(a.Bytes(), b.Bytes()...)

	got1, n1, err := Decode(buf)
	require.NoError(t, err)
	got2, n2, err := Decode(buf[n1:])
	require.NoError(t, err)
	require.Equal(t, n1+n2, len(buf))
	require.Equal(t, a.URL, got1.URL)
	require.Equal(t, b.URL, got2.URL)
}

func TestDecodeShortBufferFails(t *testing.T) {
	_, _, err := Decode([]byte{1, 2, 3})
	require.Error(t, err)
}
