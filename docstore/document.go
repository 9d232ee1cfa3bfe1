// Package docstore implements the document table and doclinks container:
// §3's Document record, the sparse-with-placeholders doc table file, and
// the append-only raw doclinks file the builder emits. Reader-side
// URL→docid translation of doclinks lives in package bucket, since §4.6
// assigns that to the Reader component.
package docstore

import (
	"fmt"
	"io"

	"github.com/rpcpool/corpusdex/codec"
)

// FixedPrefixSize is the byte size of a Document's fixed-width prefix:
// docid u64, total_tokens u32, pr_quality/hub_quality/auth_quality f32.
// The scorers patch fields inside this prefix in place without touching
// the variable-length URL that follows it.
const FixedPrefixSize = 8 + 4 + 4 + 4 + 4

// Document is the persisted unit of §3's data model. Empty and Links are
// transient: Empty is derived at load time for placeholder docids, and
// Links only exists in the builder before it is flushed to the doclinks
// file and discarded.
type Document struct {
	DocID       uint64
	TotalTokens uint32
	PRQuality   float32
	HubQuality  float32
	AuthQuality float32
	URL         string

	Empty bool
	Links []string
}

// NewDocument builds a document with the spec's initial quality fields
// (all 1.0), to be overwritten in place by the scorers later.
func NewDocument(docID uint64, totalTokens uint32, url string) Document {
	return Document{
		DocID:       docID,
		TotalTokens: totalTokens,
		PRQuality:   1.0,
		HubQuality:  1.0,
		AuthQuality: 1.0,
		URL:         url,
	}
}

// Placeholder returns the empty record substituted for a pruned docid gap.
func Placeholder(docID uint64) Document {
	d := NewDocument(docID, 0, "")
	d.Empty = true
	return d
}

// Bytes encodes the document as its on-disk record: fixed prefix then the
// length-prefixed URL string.
func (d Document) Bytes() []byte {
	buf := make([]byte, 0, FixedPrefixSize+4+len(d.URL))
	buf = append(buf, codec.EncodeU64(d.DocID)...)
	buf = append(buf, codec.EncodeU32(d.TotalTokens)...)
	buf = append(buf, codec.EncodeF32(d.PRQuality)...)
	buf = append(buf, codec.EncodeF32(d.HubQuality)...)
	buf = append(buf, codec.EncodeF32(d.AuthQuality)...)
	buf = append(buf, codec.EncodeStr(d.URL)...)
	return buf
}

// Decode parses one document record from the front of buf, returning the
// document and the total number of bytes consumed.
func Decode(buf []byte) (Document, int, error) {
	if len(buf) < FixedPrefixSize {
		return Document{}, 0, codec.ErrCorruptRecord
	}
	var d Document
	off := 0

	docID, n, err := codec.DecodeU64(buf[off:])
	if err != nil {
		return Document{}, 0, err
	}
	d.DocID, off = docID, off+n

	totalTokens, n, err := codec.DecodeU32(buf[off:])
	if err != nil {
		return Document{}, 0, err
	}
	d.TotalTokens, off = totalTokens, off+n

	pr, n, err := codec.DecodeF32(buf[off:])
	if err != nil {
		return Document{}, 0, err
	}
	d.PRQuality, off = pr, off+n

	hub, n, err := codec.DecodeF32(buf[off:])
	if err != nil {
		return Document{}, 0, err
	}
	d.HubQuality, off = hub, off+n

	auth, n, err := codec.DecodeF32(buf[off:])
	if err != nil {
		return Document{}, 0, err
	}
	d.AuthQuality, off = auth, off+n

	url, n, err := codec.DecodeStr(buf[off:])
	if err != nil {
		return Document{}, 0, err
	}
	d.URL, off = url, off+n

	d.Empty = d.URL == ""

	return d, off, nil
}

// WriteAll appends the byte-encoded form of every document in docs to w.
func WriteAll(w io.Writer, docs []Document) error {
	for _, d := range docs {
		if _, err := w.Write(d.Bytes()); err != nil {
			return fmt.Errorf("docstore: write document %d: %w", d.DocID, err)
		}
	}
	return nil
}
