package partial

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rpcpool/corpusdex/docstore"
	"github.com/rpcpool/corpusdex/posting"
	"github.com/stretchr/testify/require"
)

func setupContainer(t *testing.T) (partPath, docPath string, dl *docstore.RawWriter, doclinksPath string) {
	t.Helper()
	dir := t.TempDir()
	partPath = filepath.Join(dir, "index.part")
	docPath = filepath.Join(dir, "documents.bin")
	doclinksPath = filepath.Join(dir, "doclinks.raw")

	require.NoError(t, NewPartial(partPath))
	f, err := os.Create(docPath)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	dl, err = docstore.OpenRawWriter(doclinksPath)
	require.NoError(t, err)
	return
}

func TestWritePartialAppendsAllThreeFiles(t *testing.T) {
	partPath, docPath, dl, doclinksPath := setupContainer(t)
	defer dl.Close()

	docs := []docstore.Document{
		func() docstore.Document {
			d := docstore.NewDocument(1, 10, "https://a.example/")
			d.Links = []string{"https://b.example/"}
			return d
		}(),
		docstore.NewDocument(2, 20, "https://b.example/"),
	}
	entries := []TermPostings{
		{Term: "hello", Postings: []posting.Posting{posting.New(1, 1, false)}},
	}

	require.NoError(t, WritePartial(partPath, docPath, dl, entries, docs, 2))

	status, h, err := CheckPartial(partPath)
	require.NoError(t, err)
	require.Equal(t, StatusIncomplete, status)
	require.Equal(t, uint64(2), h.LastDocID)
	require.Equal(t, uint32(1), h.PartCount)

	_, partitions, err := ReadPartitions(partPath)
	require.NoError(t, err)
	require.Len(t, partitions, 1)

	tbl, err := docstore.LoadTable(docPath)
	require.NoError(t, err)
	require.Equal(t, uint64(2), tbl.Count())

	records, err := docstore.ReadRaw(doclinksPath)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, uint64(1), records[0].DocID)
}

func TestWritePartialSecondFlushAppendsNotOverwrites(t *testing.T) {
	partPath, docPath, dl, _ := setupContainer(t)
	defer dl.Close()

	first := []docstore.Document{docstore.NewDocument(1, 10, "https://a.example/")}
	require.NoError(t, WritePartial(partPath, docPath, dl, []TermPostings{
		{Term: "a", Postings: []posting.Posting{posting.New(1, 1, false)}},
	}, first, 1))

	second := []docstore.Document{docstore.NewDocument(2, 5, "https://b.example/")}
	require.NoError(t, WritePartial(partPath, docPath, dl, []TermPostings{
		{Term: "b", Postings: []posting.Posting{posting.New(2, 1, false)}},
	}, second, 2))

	_, h, err := CheckPartial(partPath)
	require.NoError(t, err)
	require.Equal(t, uint32(2), h.PartCount)
	require.Equal(t, uint64(2), h.LastDocID)

	tbl, err := docstore.LoadTable(docPath)
	require.NoError(t, err)
	require.Equal(t, uint64(2), tbl.Count())
}
