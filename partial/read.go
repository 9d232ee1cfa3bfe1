package partial

import (
	"fmt"
	"os"

	"github.com/rpcpool/corpusdex/codec"
	"github.com/rpcpool/corpusdex/posting"
)

// ReadPartitions reads a complete partial container's header and the raw
// (still term-encoded, undecoded) payload bytes of each of its partcnt
// partitions. The merger wraps each payload in a Cursor to stream terms
// one at a time instead of decoding the whole partition up front.
func ReadPartitions(path string) (Header, [][]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Header{}, nil, fmt.Errorf("partial: read %s: %w", path, err)
	}
	if len(b) < HeaderSize {
		return Header{}, nil, ErrCorruptPartial
	}
	h, err := DecodeHeader(b[:HeaderSize])
	if err != nil {
		return Header{}, nil, err
	}
	b = b[HeaderSize:]

	partitions := make([][]byte, 0, h.PartCount)
	for i := uint32(0); i < h.PartCount; i++ {
		size, n, err := codec.DecodeU32(b)
		if err != nil {
			return Header{}, nil, fmt.Errorf("partial: partition %d size: %w", i, err)
		}
		b = b[n:]
		if uint32(len(b)) < size {
			return Header{}, nil, fmt.Errorf("partial: partition %d truncated: %w", i, ErrCorruptPartial)
		}
		partitions = append(partitions, b[:size])
		b = b[size:]
	}
	return h, partitions, nil
}

// Cursor streams (term, postings) entries one at a time out of a single
// partition's raw payload, mirroring the merger's description of
// "independent read cursors ... positioned at the start of its partition".
type Cursor struct {
	buf []byte
}

// NewCursor wraps a partition payload for incremental reads.
func NewCursor(payload []byte) *Cursor {
	return &Cursor{buf: payload}
}

// Done reports whether the cursor has consumed the entire partition.
func (c *Cursor) Done() bool {
	return len(c.buf) == 0
}

// Next decodes and consumes the next (term, postings) entry.
func (c *Cursor) Next() (TermPostings, error) {
	if c.Done() {
		return TermPostings{}, fmt.Errorf("partial: cursor exhausted")
	}
	term, n, err := codec.DecodeStr(c.buf)
	if err != nil {
		return TermPostings{}, fmt.Errorf("partial: cursor decode term: %w", err)
	}
	c.buf = c.buf[n:]

	count, n, err := codec.DecodeU32(c.buf)
	if err != nil {
		return TermPostings{}, fmt.Errorf("partial: cursor decode posting count for %q: %w", term, err)
	}
	c.buf = c.buf[n:]

	need := int(count) * posting.Size
	if len(c.buf) < need {
		return TermPostings{}, fmt.Errorf("partial: cursor short posting list for %q: %w", term, ErrCorruptPartial)
	}
	postings, err := posting.DecodeList(c.buf[:need], int(count))
	if err != nil {
		return TermPostings{}, fmt.Errorf("partial: cursor decode postings for %q: %w", term, err)
	}
	c.buf = c.buf[need:]

	return TermPostings{Term: term, Postings: postings}, nil
}
