// Package partial implements the resumable partial-index container: the
// SPIMI builder's crash-safe flush target. §4.3 of the storage format.
package partial

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/rpcpool/corpusdex/codec"
	"github.com/rpcpool/corpusdex/posting"
)

// HeaderSize is the fixed 14-byte header: version u8, is_complete u8,
// last_docid u64, partcnt u32.
const HeaderSize = 1 + 1 + 8 + 4

// Version is the only partial container format version this build writes
// or accepts.
const Version = 1

// Status is the result of CheckPartial.
type Status int

const (
	// StatusOK means the container is marked complete and safe to merge.
	StatusOK Status = iota
	// StatusIncomplete means is_complete=0 but the header itself parses;
	// callers resume appending after LastDocID.
	StatusIncomplete
	// StatusVersionMismatch means the header's version byte doesn't match
	// Version; callers must discard and rebuild from scratch.
	StatusVersionMismatch
)

// Header is the partial container's 14-byte header record.
type Header struct {
	Version     uint8
	IsComplete  bool
	LastDocID   uint64
	PartCount   uint32
}

// ErrCorruptPartial marks a partial container whose header or partition
// framing could not be parsed.
var ErrCorruptPartial = errors.New("partial: corrupt container")

// NewPartial truncates (or creates) path and writes a fresh header with
// version=1, is_complete=0, and all other fields zeroed.
func NewPartial(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("partial: create %s: %w", path, err)
	}
	defer f.Close()

	h := Header{Version: Version}
	if _, err := f.Write(h.Bytes()); err != nil {
		return fmt.Errorf("partial: write fresh header %s: %w", path, err)
	}
	return nil
}

// Bytes encodes the header in its fixed 14-byte wire form.
func (h Header) Bytes() []byte {
	buf := make([]byte, 0, HeaderSize)
	buf = append(buf, codec.EncodeU8(h.Version)...)
	buf = append(buf, codec.EncodeU8(boolToU8(h.IsComplete))...)
	buf = append(buf, codec.EncodeU64(h.LastDocID)...)
	buf = append(buf, codec.EncodeU32(h.PartCount)...)
	return buf
}

func boolToU8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// DecodeHeader parses a 14-byte header buffer.
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, ErrCorruptPartial
	}
	var h Header
	off := 0

	v, n, err := codec.DecodeU8(buf[off:])
	if err != nil {
		return Header{}, ErrCorruptPartial
	}
	h.Version, off = v, off+n

	c, n, err := codec.DecodeU8(buf[off:])
	if err != nil {
		return Header{}, ErrCorruptPartial
	}
	h.IsComplete, off = c != 0, off+n

	last, n, err := codec.DecodeU64(buf[off:])
	if err != nil {
		return Header{}, ErrCorruptPartial
	}
	h.LastDocID, off = last, off+n

	cnt, n, err := codec.DecodeU32(buf[off:])
	if err != nil {
		return Header{}, ErrCorruptPartial
	}
	h.PartCount, off = cnt, off+n

	return h, nil
}

// ReadHeader reads just the header from an existing partial container.
func ReadHeader(path string) (Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, fmt.Errorf("partial: open %s: %w", path, err)
	}
	defer f.Close()

	buf := make([]byte, HeaderSize)
	if _, err := f.ReadAt(buf, 0); err != nil {
		return Header{}, fmt.Errorf("partial: read header %s: %w", path, err)
	}
	return DecodeHeader(buf)
}

// CheckPartial classifies an existing partial container's header.
func CheckPartial(path string) (Status, Header, error) {
	h, err := ReadHeader(path)
	if err != nil {
		return StatusIncomplete, Header{}, err
	}
	if h.Version != Version {
		return StatusVersionMismatch, h, nil
	}
	if h.IsComplete {
		return StatusOK, h, nil
	}
	return StatusIncomplete, h, nil
}

// MarkPartial sets is_complete=1 in place, leaving the rest of the header
// untouched.
func MarkPartial(path string) error {
	h, err := ReadHeader(path)
	if err != nil {
		return err
	}
	h.IsComplete = true
	return writeHeaderAt(path, h)
}

func writeHeaderAt(path string, h Header) error {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("partial: open %s for header write: %w", path, err)
	}
	defer f.Close()
	if _, err := f.WriteAt(h.Bytes(), 0); err != nil {
		return fmt.Errorf("partial: write header %s: %w", path, err)
	}
	return nil
}

// TermPostings is one (term, postings) entry inside a partition, kept
// sorted lexicographically by term within the partition payload.
type TermPostings struct {
	Term     string
	Postings []posting.Posting
}

// EncodePartition builds one partition payload: repeated
// (term, num_postings, postings) triples in lexicographic term order. It
// sorts entries by term in place before encoding, so callers may pass
// them in any order.
func EncodePartition(entries []TermPostings) []byte {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Term < entries[j].Term })

	var buf []byte
	for _, e := range entries {
		buf = append(buf, codec.EncodeStr(e.Term)...)
		buf = append(buf, codec.EncodeU32(uint32(len(e.Postings)))...)
		for _, p := range e.Postings {
			buf = append(buf, p.Bytes()...)
		}
	}
	return buf
}

// DecodePartition parses a partition payload back into its term/posting
// entries, in on-disk order (already lexicographic by construction).
func DecodePartition(buf []byte) ([]TermPostings, error) {
	var out []TermPostings
	for len(buf) > 0 {
		term, n, err := codec.DecodeStr(buf)
		if err != nil {
			return nil, fmt.Errorf("partial: decode term: %w", err)
		}
		buf = buf[n:]

		count, n, err := codec.DecodeU32(buf)
		if err != nil {
			return nil, fmt.Errorf("partial: decode posting count for %q: %w", term, err)
		}
		buf = buf[n:]

		need := int(count) * posting.Size
		if len(buf) < need {
			return nil, fmt.Errorf("partial: short posting list for %q: %w", term, ErrCorruptPartial)
		}
		postings, err := posting.DecodeList(buf[:need], int(count))
		if err != nil {
			return nil, fmt.Errorf("partial: decode postings for %q: %w", term, err)
		}
		buf = buf[need:]

		out = append(out, TermPostings{Term: term, Postings: postings})
	}
	return out, nil
}
