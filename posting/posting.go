// Package posting defines the fixed 16-byte Posting record and the field
// bitmask it packs, shared by the partial container, the merger and the
// bucket reader.
package posting

import (
	"github.com/rpcpool/corpusdex/codec"
)

// Size is the fixed on-disk size of a Posting: docid u64, tf u32, bits u32.
const Size = 16

// BitImportant marks that the term occurred inside a title/heading/bold/
// mark tag for this document.
const BitImportant = 1 << 0

// BitSentinel must always be set; it guards against decoding a stream at
// the wrong offset.
const BitSentinel = 1 << 31

// Posting records that a term occurs in DocID with raw frequency TF and
// the packed field vector Bits.
type Posting struct {
	DocID uint64
	TF    uint32
	Bits  uint32
}

// New builds a Posting with the sentinel bit set and BitImportant set
// according to important.
func New(docID uint64, tf uint32, important bool) Posting {
	bits := uint32(BitSentinel)
	if important {
		bits |= BitImportant
	}
	return Posting{DocID: docID, TF: tf, Bits: bits}
}

// Important reports whether the term occurred in an important fragment.
func (p Posting) Important() bool {
	return p.Bits&BitImportant != 0
}

// Bytes encodes the posting to its fixed 16-byte form.
func (p Posting) Bytes() []byte {
	buf := make([]byte, Size)
	copy(buf[0:8], codec.EncodeU64(p.DocID))
	copy(buf[8:12], codec.EncodeU32(p.TF))
	copy(buf[12:16], codec.EncodeU32(p.Bits))
	return buf
}

// Decode parses a single posting from buf, which must be at least Size
// bytes. It returns ErrCorruptRecord if the sentinel bit is unset, since
// that indicates the stream is misaligned.
func Decode(buf []byte) (Posting, error) {
	if len(buf) < Size {
		return Posting{}, codec.ErrCorruptRecord
	}
	docID, _, err := codec.DecodeU64(buf[0:8])
	if err != nil {
		return Posting{}, err
	}
	tf, _, err := codec.DecodeU32(buf[8:12])
	if err != nil {
		return Posting{}, err
	}
	bits, _, err := codec.DecodeU32(buf[12:16])
	if err != nil {
		return Posting{}, err
	}
	if bits&BitSentinel == 0 {
		return Posting{}, codec.ErrCorruptRecord
	}
	return Posting{DocID: docID, TF: tf, Bits: bits}, nil
}

// DecodeList decodes n consecutive postings from buf.
func DecodeList(buf []byte, n int) ([]Posting, error) {
	if len(buf) < n*Size {
		return nil, codec.ErrCorruptRecord
	}
	out := make([]Posting, n)
	for i := 0; i < n; i++ {
		p, err := Decode(buf[i*Size : (i+1)*Size])
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}
