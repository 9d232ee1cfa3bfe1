package docstore

import (
	"fmt"
	"os"

	"github.com/rpcpool/corpusdex/codec"
)

// Table is the in-memory document table: every document indexed by
// docid-1, a URL→docid lookup built while loading, and the byte offset of
// each record's fixed prefix in the backing file so the scorers can patch
// quality fields in place without rewriting the whole table.
type Table struct {
	Docs       []Document
	URLToDocID map[string]uint64
	offsets    []int64
	path       string
}

// LoadTable reads the entire document table file into memory. Docid gaps
// left by pruned documents are not actually gaps on disk — the builder
// writes a Placeholder record for every skipped docid — so the table is a
// dense array indexed by docid-1 once loaded.
func LoadTable(path string) (*Table, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("docstore: read document table %s: %w", path, err)
	}
	t := &Table{URLToDocID: make(map[string]uint64), path: path}
	var off int64
	for len(b) > 0 {
		d, n, err := Decode(b)
		if err != nil {
			return nil, fmt.Errorf("docstore: decode document table %s at offset %d: %w", path, off, err)
		}
		t.Docs = append(t.Docs, d)
		t.offsets = append(t.offsets, off)
		if !d.Empty && d.URL != "" {
			t.URLToDocID[d.URL] = d.DocID
		}
		off += int64(n)
		b = b[n:]
	}
	return t, nil
}

// Get returns the document for docID, or false if it is out of range.
func (t *Table) Get(docID uint64) (Document, bool) {
	if docID == 0 || docID > uint64(len(t.Docs)) {
		return Document{}, false
	}
	return t.Docs[docID-1], true
}

// Count returns the highest docid assigned, i.e. the size of the corpus
// including pruned placeholders.
func (t *Table) Count() uint64 {
	return uint64(len(t.Docs))
}

// PatchPRQuality overwrites a document's pr_quality field in place, both
// in memory and on disk, seeking past the fixed docid and total_tokens
// prefix fields.
func (t *Table) PatchPRQuality(docID uint64, value float32) error {
	return t.patchAt(docID, 8+4, value)
}

// PatchHubAuth overwrites a document's hub_quality and auth_quality fields
// in place, as two consecutive f32 writes immediately after pr_quality.
func (t *Table) PatchHubAuth(docID uint64, hub, auth float32) error {
	if err := t.patchAt(docID, 8+4+4, hub); err != nil {
		return err
	}
	return t.patchAt(docID, 8+4+4+4, auth)
}

func (t *Table) patchAt(docID uint64, prefixOffset int64, value float32) error {
	if docID == 0 || docID > uint64(len(t.offsets)) {
		return fmt.Errorf("docstore: patch docid %d out of range", docID)
	}
	f, err := os.OpenFile(t.path, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("docstore: open document table for patch: %w", err)
	}
	defer f.Close()

	recordOffset := t.offsets[docID-1]
	if _, err := f.WriteAt(codec.EncodeF32(value), recordOffset+prefixOffset); err != nil {
		return fmt.Errorf("docstore: patch docid %d at offset %d: %w", docID, recordOffset+prefixOffset, err)
	}
	return nil
}

// PatchWriter batches multiple in-place field patches against one open
// file handle, for scorers that patch every document in the corpus.
type PatchWriter struct {
	f *os.File
	t *Table
}

// OpenPatchWriter opens the table's backing file once for a batch of
// in-place patches, amortizing the open/close cost across every docid a
// scorer touches.
func (t *Table) OpenPatchWriter() (*PatchWriter, error) {
	f, err := os.OpenFile(t.path, os.O_WRONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("docstore: open document table for patch: %w", err)
	}
	return &PatchWriter{f: f, t: t}, nil
}

func (pw *PatchWriter) Close() error {
	return pw.f.Close()
}

// PatchPRQuality writes pr_quality for docID using the already-open handle.
func (pw *PatchWriter) PatchPRQuality(docID uint64, value float32) error {
	return pw.writeAt(docID, 8+4, value)
}

// PatchHubAuth writes hub_quality and auth_quality for docID using the
// already-open handle.
func (pw *PatchWriter) PatchHubAuth(docID uint64, hub, auth float32) error {
	if err := pw.writeAt(docID, 8+4+4, hub); err != nil {
		return err
	}
	return pw.writeAt(docID, 8+4+4+4, auth)
}

func (pw *PatchWriter) writeAt(docID uint64, prefixOffset int64, value float32) error {
	if docID == 0 || docID > uint64(len(pw.t.offsets)) {
		return fmt.Errorf("docstore: patch docid %d out of range", docID)
	}
	recordOffset := pw.t.offsets[docID-1]
	if _, err := pw.f.WriteAt(codec.EncodeF32(value), recordOffset+prefixOffset); err != nil {
		return fmt.Errorf("docstore: patch docid %d at offset %d: %w", docID, recordOffset+prefixOffset, err)
	}
	return nil
}
