// Package merge implements the external k-way merge (§4.5): it consumes
// a complete partial container and produces per-first-byte bucket files,
// their companion seek tables, and the merge-info header.
package merge

import (
	"container/heap"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rpcpool/corpusdex/codec"
	"github.com/rpcpool/corpusdex/partial"
	"github.com/rpcpool/corpusdex/posting"
	"go.uber.org/multierr"
)

// MergeInfoSize is the fixed 32-byte merge-info record: MERGE_VER u8, 3
// pad bytes, max_docid u64, unique_term_count u32, 16 pad bytes.
const MergeInfoSize = 32

// MergeVersion is the only merge-info format version this build writes.
const MergeVersion = 1

// CatchAllBucket is the bucket id for non-ASCII first bytes.
const CatchAllBucket = 128

// Info is the decoded merge-info header.
type Info struct {
	Version         uint8
	MaxDocID        uint64
	UniqueTermCount uint32
}

// Bytes encodes the merge-info header.
func (i Info) Bytes() []byte {
	buf := make([]byte, 0, MergeInfoSize)
	buf = append(buf, codec.EncodeU8(i.Version)...)
	buf = append(buf, 0, 0, 0) // pad
	buf = append(buf, codec.EncodeU64(i.MaxDocID)...)
	buf = append(buf, codec.EncodeU32(i.UniqueTermCount)...)
	buf = append(buf, make([]byte, 16)...) // pad
	return buf
}

// DecodeInfo parses a 32-byte merge-info buffer.
func DecodeInfo(buf []byte) (Info, error) {
	if len(buf) < MergeInfoSize {
		return Info{}, fmt.Errorf("merge: short merge-info: %w", codec.ErrCorruptRecord)
	}
	var i Info
	off := 0
	v, n, _ := codec.DecodeU8(buf[off:])
	i.Version, off = v, off+n
	off += 3 // pad
	maxDocID, n, _ := codec.DecodeU64(buf[off:])
	i.MaxDocID, off = maxDocID, off+n
	cnt, n, _ := codec.DecodeU32(buf[off:])
	i.UniqueTermCount, off = cnt, off+n
	return i, nil
}

// bucketIDFor computes the target bucket from a term's first byte: ASCII
// bytes map to their own ordinal, non-ASCII (first byte >= 128) maps to
// the catch-all.
func bucketIDFor(term string) int {
	if len(term) == 0 {
		return CatchAllBucket
	}
	b := term[0]
	if b >= CatchAllBucket {
		return CatchAllBucket
	}
	return int(b)
}

// termKey is one entry in the key priority queue: a term read from a
// given partition, to be ordered lexicographically with stable ties on
// partition id.
type termKey struct {
	term        string
	partitionID int
}

type keyHeap []termKey

func (h keyHeap) Len() int { return len(h) }
func (h keyHeap) Less(i, j int) bool {
	if h[i].term != h[j].term {
		return h[i].term < h[j].term
	}
	return h[i].partitionID < h[j].partitionID
}
func (h keyHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *keyHeap) Push(x interface{}) { *h = append(*h, x.(termKey)) }
func (h *keyHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// scratchHeap orders postings for the current term by docid, so the
// merged posting list comes out in ascending docid order regardless of
// which partition each posting came from.
type scratchHeap []posting.Posting

func (h scratchHeap) Len() int            { return len(h) }
func (h scratchHeap) Less(i, j int) bool  { return h[i].DocID < h[j].DocID }
func (h scratchHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *scratchHeap) Push(x interface{}) { *h = append(*h, x.(posting.Posting)) }
func (h *scratchHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// bucketWriter holds the open bucket and seek file handles for the
// currently-active bucket id during the merge, plus the bucket file's
// running write offset (what the seek table records).
type bucketWriter struct {
	id         int
	bucketFile *os.File
	seekFile   *os.File
	offset     uint32
}

func openBucket(dir string, id int) (*bucketWriter, error) {
	bucketPath := filepath.Join(dir, fmt.Sprintf("%d.bucket", id))
	seekPath := filepath.Join(dir, fmt.Sprintf("%d.seek", id))

	bf, err := os.Create(bucketPath)
	if err != nil {
		return nil, fmt.Errorf("merge: create %s: %w", bucketPath, err)
	}
	sf, err := os.Create(seekPath)
	if err != nil {
		bf.Close()
		return nil, fmt.Errorf("merge: create %s: %w", seekPath, err)
	}
	return &bucketWriter{id: id, bucketFile: bf, seekFile: sf}, nil
}

func (bw *bucketWriter) writeTerm(term string, postings []posting.Posting) error {
	if err := binarySeekWrite(bw.seekFile, term, bw.offset); err != nil {
		return err
	}
	payload := make([]byte, 0, 4+len(postings)*posting.Size)
	payload = append(payload, codec.EncodeU32(uint32(len(postings)))...)
	for _, p := range postings {
		payload = append(payload, p.Bytes()...)
	}
	n, err := bw.bucketFile.Write(payload)
	if err != nil {
		return fmt.Errorf("merge: write bucket %d postings for %q: %w", bw.id, term, err)
	}
	bw.offset += uint32(n)
	return nil
}

func binarySeekWrite(f *os.File, term string, offset uint32) error {
	buf := append(codec.EncodeStr(term), codec.EncodeU32(offset)...)
	if _, err := f.Write(buf); err != nil {
		return fmt.Errorf("merge: write seek entry for %q: %w", term, err)
	}
	return nil
}

// close releases both the bucket and seek file handles on every exit
// path, even when the bucket file fails to close, aggregating both
// errors rather than leaking the seek handle behind the first failure.
func (bw *bucketWriter) close() error {
	return multierr.Combine(bw.bucketFile.Close(), bw.seekFile.Close())
}

// Run performs the external k-way merge of partPath's partitions into
// bucketsDir and writes the merge-info header to mergeInfoPath.
func Run(partPath, bucketsDir, mergeInfoPath string) (Info, error) {
	header, payloads, err := partial.ReadPartitions(partPath)
	if err != nil {
		return Info{}, fmt.Errorf("merge: read partitions: %w", err)
	}
	if !header.IsComplete {
		return Info{}, fmt.Errorf("merge: partial container is not complete")
	}

	if err := os.MkdirAll(bucketsDir, 0o755); err != nil {
		return Info{}, fmt.Errorf("merge: mkdir %s: %w", bucketsDir, err)
	}

	cursors := make([]*partial.Cursor, len(payloads))
	for i, p := range payloads {
		cursors[i] = partial.NewCursor(p)
	}

	kh := &keyHeap{}
	heap.Init(kh)
	pending := make(map[int]partial.TermPostings, len(cursors)) // partitionID -> the entry it already read
	for pid, cur := range cursors {
		if cur.Done() {
			continue
		}
		entry, err := cur.Next()
		if err != nil {
			return Info{}, fmt.Errorf("merge: read first term of partition %d: %w", pid, err)
		}
		pending[pid] = entry
		heap.Push(kh, termKey{term: entry.Term, partitionID: pid})
	}

	var (
		current      string
		currentOpen  bool
		scratch      scratchHeap
		activeBucket *bucketWriter
		uniqueTerms  uint32
	)
	// On an error return the active bucket pair may still be open.
	defer func() {
		if activeBucket != nil {
			activeBucket.close()
		}
	}()
	flush := func() error {
		if !currentOpen || len(scratch) == 0 {
			return nil
		}
		bid := bucketIDFor(current)
		if activeBucket == nil || activeBucket.id != bid {
			if activeBucket != nil {
				err := activeBucket.close()
				activeBucket = nil
				if err != nil {
					return err
				}
			}
			nb, err := openBucket(bucketsDir, bid)
			if err != nil {
				return err
			}
			activeBucket = nb
		}

		sorted := make([]posting.Posting, len(scratch))
		copy(sorted, scratch)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].DocID < sorted[j].DocID })

		if err := activeBucket.writeTerm(current, sorted); err != nil {
			return err
		}
		uniqueTerms++
		scratch = scratch[:0]
		return nil
	}

	for kh.Len() > 0 {
		top := heap.Pop(kh).(termKey)
		entry := pending[top.partitionID]

		if currentOpen && entry.Term != current {
			if err := flush(); err != nil {
				return Info{}, err
			}
		}
		current, currentOpen = entry.Term, true
		for _, p := range entry.Postings {
			scratch = append(scratch, p)
		}

		cur := cursors[top.partitionID]
		if !cur.Done() {
			next, err := cur.Next()
			if err != nil {
				return Info{}, fmt.Errorf("merge: read next term of partition %d: %w", top.partitionID, err)
			}
			pending[top.partitionID] = next
			heap.Push(kh, termKey{term: next.Term, partitionID: top.partitionID})
		} else {
			delete(pending, top.partitionID)
		}
	}
	if err := flush(); err != nil {
		return Info{}, err
	}
	if activeBucket != nil {
		err := activeBucket.close()
		activeBucket = nil
		if err != nil {
			return Info{}, err
		}
	}

	info := Info{Version: MergeVersion, MaxDocID: header.LastDocID, UniqueTermCount: uniqueTerms}
	if err := os.WriteFile(mergeInfoPath, info.Bytes(), 0o644); err != nil {
		return Info{}, fmt.Errorf("merge: write merge-info: %w", err)
	}
	return info, nil
}
