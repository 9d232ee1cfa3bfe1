package rank

import (
	"path/filepath"
	"testing"

	"github.com/rpcpool/corpusdex/bucket"
	"github.com/rpcpool/corpusdex/docstore"
	"github.com/rpcpool/corpusdex/merge"
	"github.com/rpcpool/corpusdex/partial"
	"github.com/rpcpool/corpusdex/posting"
	"github.com/stretchr/testify/require"
)

// buildChainIndex builds a 3-document corpus where doc 1 links to doc 2,
// which links to doc 3, which links back to doc 1 — a simple cycle with a
// uniform out-degree of 1 everywhere, so PageRank and HITS both converge
// to a symmetric fixed point we can assert on cheaply.
func buildChainIndex(t *testing.T) (*bucket.Reader, func()) {
	t.Helper()
	dir := t.TempDir()
	partPath := filepath.Join(dir, "index.part")
	docPath := filepath.Join(dir, "documents.bin")
	doclinksPath := filepath.Join(dir, "doclinks.raw")
	mergePath := filepath.Join(dir, "index.mergeinfo")
	bucketsDir := filepath.Join(dir, "buckets")

	docs := []docstore.Document{
		docstore.NewDocument(1, 5, "https://a.example/"),
		docstore.NewDocument(2, 5, "https://b.example/"),
		docstore.NewDocument(3, 5, "https://c.example/"),
	}
	entries := []partial.TermPostings{
		{Term: "x", Postings: []posting.Posting{posting.New(1, 1, false)}},
	}

	require.NoError(t, partial.NewPartial(partPath))
	dw, err := docstore.OpenRawWriter(doclinksPath)
	require.NoError(t, err)
	require.NoError(t, partial.WritePartial(partPath, docPath, dw, entries, docs, 3))
	require.NoError(t, dw.Close())
	require.NoError(t, partial.MarkPartial(partPath))

	dw2, err := docstore.OpenRawWriter(doclinksPath)
	require.NoError(t, err)
	require.NoError(t, dw2.Append(1, []string{"https://b.example/"}))
	require.NoError(t, dw2.Append(2, []string{"https://c.example/"}))
	require.NoError(t, dw2.Append(3, []string{"https://a.example/"}))
	require.NoError(t, dw2.Close())

	_, err = merge.Run(partPath, bucketsDir, mergePath)
	require.NoError(t, err)

	r, err := bucket.Initialize(docPath, mergePath, bucketsDir)
	require.NoError(t, err)
	require.NoError(t, r.InitializeDoclinks(doclinksPath))

	return r, func() { r.Close() }
}

func TestPageRankConvergesUniformOnCycle(t *testing.T) {
	r, closeFn := buildChainIndex(t)
	defer closeFn()

	require.NoError(t, PageRank(r))

	d1, _ := r.GetDocument(1)
	d2, _ := r.GetDocument(2)
	d3, _ := r.GetDocument(3)
	require.InDelta(t, float64(d1.PRQuality), float64(d2.PRQuality), 1e-3)
	require.InDelta(t, float64(d2.PRQuality), float64(d3.PRQuality), 1e-3)
	require.InDelta(t, 1.0, float64(d1.PRQuality), 1e-3)
}

func TestHITSConvergesUniformOnCycle(t *testing.T) {
	r, closeFn := buildChainIndex(t)
	defer closeFn()

	require.NoError(t, HITS(r))

	d1, _ := r.GetDocument(1)
	d2, _ := r.GetDocument(2)
	require.InDelta(t, float64(d1.HubQuality), float64(d2.HubQuality), 1e-3)
	require.InDelta(t, float64(d1.AuthQuality), float64(d2.AuthQuality), 1e-3)
	require.Greater(t, float64(d1.HubQuality), 0.0)
}
