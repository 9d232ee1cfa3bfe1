package partial

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rpcpool/corpusdex/posting"
	"github.com/stretchr/testify/require"
)

func TestNewPartialFreshHeader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.part")
	require.NoError(t, NewPartial(path))

	status, h, err := CheckPartial(path)
	require.NoError(t, err)
	require.Equal(t, StatusIncomplete, status)
	require.Equal(t, uint8(Version), h.Version)
	require.Equal(t, uint64(0), h.LastDocID)
	require.Equal(t, uint32(0), h.PartCount)
}

func TestMarkPartialSetsComplete(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.part")
	require.NoError(t, NewPartial(path))
	require.NoError(t, MarkPartial(path))

	status, _, err := CheckPartial(path)
	require.NoError(t, err)
	require.Equal(t, StatusOK, status)
}

func TestCheckPartialVersionMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.part")
	require.NoError(t, NewPartial(path))

	h, err := ReadHeader(path)
	require.NoError(t, err)
	h.Version = 99
	require.NoError(t, writeHeaderAt(path, h))

	status, _, err := CheckPartial(path)
	require.NoError(t, err)
	require.Equal(t, StatusVersionMismatch, status)
}

func TestEncodeDecodePartitionRoundTrip(t *testing.T) {
	entries := []TermPostings{
		{Term: "zebra", Postings: []posting.Posting{posting.New(1, 3, false)}},
		{Term: "apple", Postings: []posting.Posting{posting.New(2, 1, true), posting.New(5, 4, false)}},
	}
	payload := EncodePartition(entries)

	decoded, err := DecodePartition(payload)
	require.NoError(t, err)
	require.Len(t, decoded, 2)
	// EncodePartition sorts lexicographically.
	require.Equal(t, "apple", decoded[0].Term)
	require.Equal(t, "zebra", decoded[1].Term)
	require.Len(t, decoded[0].Postings, 2)
}

func TestCursorStreamsEntries(t *testing.T) {
	entries := []TermPostings{
		{Term: "apple", Postings: []posting.Posting{posting.New(1, 1, false)}},
		{Term: "banana", Postings: []posting.Posting{posting.New(2, 2, true)}},
	}
	payload := EncodePartition(entries)

	cur := NewCursor(payload)
	require.False(t, cur.Done())

	first, err := cur.Next()
	require.NoError(t, err)
	require.Equal(t, "apple", first.Term)

	second, err := cur.Next()
	require.NoError(t, err)
	require.Equal(t, "banana", second.Term)

	require.True(t, cur.Done())
}

func TestReadPartitionsAfterRawAppend(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.part")
	require.NoError(t, NewPartial(path))

	entries := []TermPostings{
		{Term: "cat", Postings: []posting.Posting{posting.New(1, 1, false)}},
	}
	payload := EncodePartition(entries)

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	require.NoError(t, err)
	sizePrefixed := append(encodeU32(uint32(len(payload))), payload...)
	_, err = f.WriteAt(sizePrefixed, HeaderSize)
	require.NoError(t, err)
	h, err := ReadHeader(path)
	require.NoError(t, err)
	h.PartCount = 1
	require.NoError(t, writeHeaderAtFile(f, h))
	require.NoError(t, f.Close())

	readHeader, partitions, err := ReadPartitions(path)
	require.NoError(t, err)
	require.Equal(t, uint32(1), readHeader.PartCount)
	require.Len(t, partitions, 1)

	decoded, err := DecodePartition(partitions[0])
	require.NoError(t, err)
	require.Equal(t, "cat", decoded[0].Term)
}

func encodeU32(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

func writeHeaderAtFile(f *os.File, h Header) error {
	_, err := f.WriteAt(h.Bytes(), 0)
	return err
}
