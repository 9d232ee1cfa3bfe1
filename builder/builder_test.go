package builder

import (
	"path/filepath"
	"testing"

	"github.com/rpcpool/corpusdex/collab"
	"github.com/rpcpool/corpusdex/config"
	"github.com/rpcpool/corpusdex/docstore"
	"github.com/rpcpool/corpusdex/partial"
	"github.com/stretchr/testify/require"
)

// fakeLoader replays a fixed slice of pages.
type fakeLoader struct {
	pages []collab.Page
	idx   int
}

func (f *fakeLoader) Next() (collab.Page, bool, error) {
	if f.idx >= len(f.pages) {
		return collab.Page{}, false, nil
	}
	p := f.pages[f.idx]
	f.idx++
	return p, true, nil
}

func newTestBuilder(t *testing.T, pages []collab.Page) (*Builder, string, string) {
	t.Helper()
	dir := t.TempDir()
	partPath := filepath.Join(dir, "index.part")
	docPath := filepath.Join(dir, "documents.bin")
	doclinksPath := filepath.Join(dir, "doclinks.raw")

	b, err := Open(
		config.Default(),
		&fakeLoader{pages: pages},
		collab.NewGoqueryExtractor(),
		collab.NewDefaultTokenizer(),
		collab.NewSnowballStemmer(),
		partPath, docPath, doclinksPath,
	)
	require.NoError(t, err)
	return b, partPath, docPath
}

func TestBuilderIndexesDistinctDocuments(t *testing.T) {
	pages := []collab.Page{
		{RawContent: []byte("<html><body>hello world</body></html>"), URL: "https://a.example/"},
		{RawContent: []byte("<html><body>hello there</body></html>"), URL: "https://b.example/"},
	}
	b, partPath, docPath := newTestBuilder(t, pages)
	defer b.Close()

	stats, err := b.Run()
	require.NoError(t, err)
	require.Equal(t, uint64(2), stats.DocsAssigned)
	require.Equal(t, 2, stats.DocsIndexed)

	status, h, err := partial.CheckPartial(partPath)
	require.NoError(t, err)
	require.Equal(t, partial.StatusOK, status)
	require.Equal(t, uint64(2), h.LastDocID)

	tbl, err := docstore.LoadTable(docPath)
	require.NoError(t, err)
	require.Equal(t, uint64(2), tbl.Count())
}

func TestBuilderPrunesEmptyContent(t *testing.T) {
	pages := []collab.Page{
		{RawContent: nil, URL: "https://a.example/"},
		{RawContent: []byte("<html><body>content</body></html>"), URL: "https://b.example/"},
	}
	b, _, docPath := newTestBuilder(t, pages)
	defer b.Close()

	stats, err := b.Run()
	require.NoError(t, err)
	require.Equal(t, 1, stats.PrunedEmpty)
	require.Equal(t, 1, stats.DocsIndexed)

	tbl, err := docstore.LoadTable(docPath)
	require.NoError(t, err)
	d1, ok := tbl.Get(1)
	require.True(t, ok)
	require.True(t, d1.Empty)
}

func TestBuilderPrunesExactDuplicate(t *testing.T) {
	content := []byte("<html><body>duplicate content here</body></html>")
	pages := []collab.Page{
		{RawContent: content, URL: "https://a.example/"},
		{RawContent: content, URL: "https://b.example/"},
	}
	b, _, _ := newTestBuilder(t, pages)
	defer b.Close()

	stats, err := b.Run()
	require.NoError(t, err)
	require.Equal(t, 1, stats.PrunedExact)
	require.Equal(t, 1, stats.DocsIndexed)
}

func TestBuilderSkipsDuplicateURLWithoutPrunedIncrement(t *testing.T) {
	pages := []collab.Page{
		{RawContent: []byte("<html><body>first version</body></html>"), URL: "https://a.example/"},
		{RawContent: []byte("<html><body>second version, different content</body></html>"), URL: "https://a.example/"},
	}
	b, _, _ := newTestBuilder(t, pages)
	defer b.Close()

	stats, err := b.Run()
	require.NoError(t, err)
	require.Equal(t, 0, stats.PrunedEmpty)
	require.Equal(t, 0, stats.PrunedExact)
	require.Equal(t, 1, stats.DocsIndexed)
}

func TestBuilderFlushesPeriodically(t *testing.T) {
	cfg := config.Default()
	cfg.Builder.FlushPeriod = 2
	dir := t.TempDir()
	partPath := filepath.Join(dir, "index.part")
	docPath := filepath.Join(dir, "documents.bin")
	doclinksPath := filepath.Join(dir, "doclinks.raw")

	pages := make([]collab.Page, 5)
	for i := range pages {
		pages[i] = collab.Page{RawContent: []byte("<html><body>unique page content number " + string(rune('a'+i)) + "</body></html>"), URL: "https://example.com/" + string(rune('a'+i))}
	}

	b, err := Open(cfg, &fakeLoader{pages: pages}, collab.NewGoqueryExtractor(), collab.NewDefaultTokenizer(), collab.NewSnowballStemmer(), partPath, docPath, doclinksPath)
	require.NoError(t, err)
	defer b.Close()

	stats, err := b.Run()
	require.NoError(t, err)
	require.GreaterOrEqual(t, stats.FlushCount, 2)
}

func TestBuilderReopenAfterCompleteReturnsErrAlreadyComplete(t *testing.T) {
	cfg := config.Default()
	dir := t.TempDir()
	partPath := filepath.Join(dir, "index.part")
	docPath := filepath.Join(dir, "documents.bin")
	doclinksPath := filepath.Join(dir, "doclinks.raw")

	first := []collab.Page{{RawContent: []byte("<html><body>first page</body></html>"), URL: "https://a.example/"}}
	b1, err := Open(cfg, &fakeLoader{pages: first}, collab.NewGoqueryExtractor(), collab.NewDefaultTokenizer(), collab.NewSnowballStemmer(), partPath, docPath, doclinksPath)
	require.NoError(t, err)
	_, err = b1.Run()
	require.NoError(t, err)
	require.NoError(t, b1.Close())

	b2, err := Open(cfg, &fakeLoader{}, collab.NewGoqueryExtractor(), collab.NewDefaultTokenizer(), collab.NewSnowballStemmer(), partPath, docPath, doclinksPath)
	require.ErrorIs(t, err, ErrAlreadyComplete)
	require.Nil(t, b2)
}

func TestPostingAccumulationRecordsImportance(t *testing.T) {
	pages := []collab.Page{
		{RawContent: []byte("<html><body><h1>keyword</h1><p>filler filler filler</p></body></html>"), URL: "https://a.example/"},
	}
	b, partPath, _ := newTestBuilder(t, pages)
	defer b.Close()

	_, err := b.Run()
	require.NoError(t, err)

	_, partitions, err := partial.ReadPartitions(partPath)
	require.NoError(t, err)
	require.Len(t, partitions, 1)

	entries, err := partial.DecodePartition(partitions[0])
	require.NoError(t, err)

	var found bool
	for _, e := range entries {
		if e.Term == "keyword" {
			found = true
			require.Len(t, e.Postings, 1)
			require.True(t, e.Postings[0].Important())
		}
	}
	require.True(t, found, "expected a posting for the stemmed h1 term")
}
