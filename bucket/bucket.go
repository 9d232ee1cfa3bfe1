// Package bucket implements the Reader (§4.6): it opens the merged bucket
// files, the document table and the doclinks file, and answers
// get_postings/get_document/get_linked_docids against them.
package bucket

import (
	"fmt"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cespare/xxhash/v2"
	"github.com/rpcpool/corpusdex/codec"
	"github.com/rpcpool/corpusdex/docstore"
	"github.com/rpcpool/corpusdex/merge"
	"github.com/rpcpool/corpusdex/posting"
)

// postingCacheSize is the reader's optional memoization cache capacity,
// per §4.6's "LRU of modest capacity (≈256)".
const postingCacheSize = 256

// seekEntry is one bucket's in-memory {term -> offset} map, loaded in full
// from its .seek file at Initialize time.
type seekEntry struct {
	bucketFile *os.File
	offsets    map[string]uint32
}

// Reader holds an open index: the document table, the merge-info header,
// and every bucket's lazily-read file handle plus fully-loaded seek map.
type Reader struct {
	Table    *docstore.Table
	Info     merge.Info
	bucketsDir string
	buckets  map[int]*seekEntry

	linked map[uint64][]uint64 // set by InitializeDoclinks, nil until then

	cache *lru.Cache[uint64, []posting.Posting]
}

// Initialize reads the document table, the merge-info header, and every
// bucket's seek table into memory, opening each bucket file for lazy
// reads. Idempotent: calling it again on a fresh Reader simply reloads.
func Initialize(docPath, mergePath, bucketsDir string) (*Reader, error) {
	table, err := docstore.LoadTable(docPath)
	if err != nil {
		return nil, fmt.Errorf("bucket: load document table: %w", err)
	}

	infoBytes, err := os.ReadFile(mergePath)
	if err != nil {
		return nil, fmt.Errorf("bucket: read merge-info %s: %w", mergePath, err)
	}
	info, err := merge.DecodeInfo(infoBytes)
	if err != nil {
		return nil, fmt.Errorf("bucket: decode merge-info: %w", err)
	}

	entries, err := os.ReadDir(bucketsDir)
	if err != nil {
		return nil, fmt.Errorf("bucket: read buckets dir %s: %w", bucketsDir, err)
	}

	buckets := make(map[int]*seekEntry)
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".bucket" {
			continue
		}
		var id int
		if _, err := fmt.Sscanf(e.Name(), "%d.bucket", &id); err != nil {
			continue
		}
		se, err := loadBucket(bucketsDir, id)
		if err != nil {
			return nil, err
		}
		buckets[id] = se
	}

	cache, err := lru.New[uint64, []posting.Posting](postingCacheSize)
	if err != nil {
		return nil, fmt.Errorf("bucket: create posting cache: %w", err)
	}

	return &Reader{
		Table:      table,
		Info:       info,
		bucketsDir: bucketsDir,
		buckets:    buckets,
		cache:      cache,
	}, nil
}

func loadBucket(dir string, id int) (*seekEntry, error) {
	bucketPath := filepath.Join(dir, fmt.Sprintf("%d.bucket", id))
	seekPath := filepath.Join(dir, fmt.Sprintf("%d.seek", id))

	bf, err := os.Open(bucketPath)
	if err != nil {
		return nil, fmt.Errorf("bucket: open %s: %w", bucketPath, err)
	}

	seekBytes, err := os.ReadFile(seekPath)
	if err != nil {
		bf.Close()
		return nil, fmt.Errorf("bucket: read %s: %w", seekPath, err)
	}

	offsets := make(map[string]uint32)
	for len(seekBytes) > 0 {
		term, n, err := codec.DecodeStr(seekBytes)
		if err != nil {
			bf.Close()
			return nil, fmt.Errorf("bucket: decode seek term in %s: %w", seekPath, err)
		}
		seekBytes = seekBytes[n:]
		off, n, err := codec.DecodeU32(seekBytes)
		if err != nil {
			bf.Close()
			return nil, fmt.Errorf("bucket: decode seek offset in %s: %w", seekPath, err)
		}
		seekBytes = seekBytes[n:]
		offsets[term] = off
	}

	return &seekEntry{bucketFile: bf, offsets: offsets}, nil
}

// Close releases every open bucket file handle.
func (r *Reader) Close() error {
	var firstErr error
	for _, se := range r.buckets {
		if err := se.bucketFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// GetDocument is O(1) array access into the document table.
func (r *Reader) GetDocument(docID uint64) (docstore.Document, bool) {
	return r.Table.Get(docID)
}

// GetLinkedDocids is O(1) array access into the translated link sets
// built by InitializeDoclinks. Returns nil, false if InitializeDoclinks
// was never called or docID has no materialized links.
func (r *Reader) GetLinkedDocids(docID uint64) ([]uint64, bool) {
	if r.linked == nil {
		return nil, false
	}
	ids, ok := r.linked[docID]
	return ids, ok
}

// bucketIDFor mirrors package merge's routing rule: ASCII first byte maps
// to its own ordinal, non-ASCII (>= 128) maps to the catch-all bucket.
func bucketIDFor(term string) int {
	if len(term) == 0 {
		return merge.CatchAllBucket
	}
	b := term[0]
	if b >= merge.CatchAllBucket {
		return merge.CatchAllBucket
	}
	return int(b)
}

// GetPostings looks up term's bucket's seek map; if absent, returns an
// empty result. Otherwise seeks to the recorded offset, reads the
// num_postings-prefixed record, and decodes it. Results are cached by an
// xxhash of the term in a bounded LRU.
func (r *Reader) GetPostings(term string) ([]posting.Posting, error) {
	key := xxhash.Sum64String(term)
	if cached, ok := r.cache.Get(key); ok {
		return cached, nil
	}

	bid := bucketIDFor(term)
	se, ok := r.buckets[bid]
	if !ok {
		return nil, nil
	}
	offset, ok := se.offsets[term]
	if !ok {
		return nil, nil
	}

	countBuf := make([]byte, 4)
	if _, err := se.bucketFile.ReadAt(countBuf, int64(offset)); err != nil {
		return nil, fmt.Errorf("bucket: read posting count for %q: %w", term, err)
	}
	count, _, err := codec.DecodeU32(countBuf)
	if err != nil {
		return nil, fmt.Errorf("bucket: decode posting count for %q: %w", term, err)
	}

	postingsBuf := make([]byte, int(count)*posting.Size)
	if _, err := se.bucketFile.ReadAt(postingsBuf, int64(offset)+4); err != nil {
		return nil, fmt.Errorf("bucket: read postings for %q: %w", term, err)
	}
	postings, err := posting.DecodeList(postingsBuf, int(count))
	if err != nil {
		return nil, fmt.Errorf("bucket: decode postings for %q: %w", term, err)
	}

	r.cache.Add(key, postings)
	return postings, nil
}

// InitializeDoclinks reads the sparse raw-or-compressed doclinks file at
// path, translates each URL to a docid via the table's URL->docid map,
// discards unknown/empty targets, and stores the resulting sets. Only
// needed for scorer runs (§4.6). Sparse gaps are padded with empty sets
// implicitly: GetLinkedDocids returns false for any docid not present.
func (r *Reader) InitializeDoclinks(path string) error {
	records, err := readDoclinks(path)
	if err != nil {
		return err
	}

	linked := make(map[uint64][]uint64, len(records))
	for _, rec := range records {
		var ids []uint64
		for _, u := range rec.URLs {
			if u == "" {
				continue
			}
			docID, ok := r.Table.URLToDocID[u]
			if !ok {
				continue
			}
			ids = append(ids, docID)
		}
		linked[rec.DocID] = ids
	}
	r.linked = linked
	return nil
}

func readDoclinks(path string) ([]docstore.RawRecord, error) {
	if filepath.Ext(path) == ".raw" {
		return docstore.ReadRaw(path)
	}
	return docstore.ReadCompressed(path)
}
