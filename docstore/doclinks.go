package docstore

import (
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/mostynb/zstdpool-freelist"
	"github.com/rpcpool/corpusdex/codec"
)

// doclinks records are sparse: the builder only emits one for documents
// that actually extracted outlinks, as (docid u64, num_urls u32, url*).
// URLs are written raw and untranslated — the URL→docid table isn't
// complete until the whole corpus has been walked, so translation is a
// Reader-side concern (package bucket), not the builder's.

// RawWriter appends doclinks records to an uncompressed, truncatable file
// during the build. Plain (not zstd-framed) so write_partial's rollback
// can truncate it back to a prior offset on failure, the same way it does
// the document table and partial files.
type RawWriter struct {
	f *os.File
}

// OpenRawWriter opens (creating if necessary) the raw doclinks file for
// appending.
func OpenRawWriter(path string) (*RawWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("docstore: open doclinks %s: %w", path, err)
	}
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		f.Close()
		return nil, fmt.Errorf("docstore: seek doclinks %s: %w", path, err)
	}
	return &RawWriter{f: f}, nil
}

// Append writes one (docid, urls) record. Documents with no outlinks are
// simply never appended.
func (w *RawWriter) Append(docID uint64, urls []string) error {
	if len(urls) == 0 {
		return nil
	}
	buf := make([]byte, 0, 12+len(urls)*8)
	buf = append(buf, codec.EncodeU64(docID)...)
	buf = append(buf, codec.EncodeU32(uint32(len(urls)))...)
	for _, u := range urls {
		buf = append(buf, codec.EncodeStr(u)...)
	}
	if _, err := w.f.Write(buf); err != nil {
		return fmt.Errorf("docstore: append doclinks for docid %d: %w", docID, err)
	}
	return nil
}

// Offset returns the current append position, used by write_partial to
// snapshot a rollback point before a flush.
func (w *RawWriter) Offset() (int64, error) {
	return w.f.Seek(0, io.SeekCurrent)
}

// Truncate discards everything appended after offset, restoring the file
// to a previous flush's rollback point.
func (w *RawWriter) Truncate(offset int64) error {
	if err := w.f.Truncate(offset); err != nil {
		return fmt.Errorf("docstore: truncate doclinks: %w", err)
	}
	_, err := w.f.Seek(offset, io.SeekStart)
	return err
}

func (w *RawWriter) Close() error {
	return w.f.Close()
}

// RawRecord is one decoded, untranslated doclinks entry.
type RawRecord struct {
	DocID uint64
	URLs  []string
}

// ReadRaw reads every record from an uncompressed doclinks file.
func ReadRaw(path string) ([]RawRecord, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("docstore: read doclinks %s: %w", path, err)
	}
	return decodeRawRecords(b)
}

func decodeRawRecords(b []byte) ([]RawRecord, error) {
	var out []RawRecord
	for len(b) > 0 {
		docID, n, err := codec.DecodeU64(b)
		if err != nil {
			return nil, fmt.Errorf("docstore: decode doclinks docid: %w", err)
		}
		b = b[n:]

		count, n, err := codec.DecodeU32(b)
		if err != nil {
			return nil, fmt.Errorf("docstore: decode doclinks count: %w", err)
		}
		b = b[n:]

		urls := make([]string, 0, count)
		for i := uint32(0); i < count; i++ {
			u, n, err := codec.DecodeStr(b)
			if err != nil {
				return nil, fmt.Errorf("docstore: decode doclinks url %d for docid %d: %w", i, docID, err)
			}
			urls = append(urls, u)
			b = b[n:]
		}
		out = append(out, RawRecord{DocID: docID, URLs: urls})
	}
	return out, nil
}

// zstdDecoderPool and zstdEncoderPool amortize the cost of constructing a
// zstd encoder/decoder (each allocates a nontrivial window buffer) across
// every doclinks compress/decompress call.
var (
	zstdDecoderPool = zstdpool.NewDecoderPool()
	zstdEncoderPool = zstdpool.NewEncoderPool(
		zstd.WithEncoderLevel(zstd.SpeedBetterCompression),
	)
)

// CompressFinal zstd-compresses the finished raw doclinks file into its
// at-rest form and removes the raw file. Doclinks is read and written
// strictly sequentially once the build is done — never seeked into, unlike
// the bucket postings store — so it's the one container where a whole-file
// codec pays for itself without complicating random access.
func CompressFinal(rawPath, finalPath string) error {
	raw, err := os.ReadFile(rawPath)
	if err != nil {
		return fmt.Errorf("docstore: read raw doclinks %s: %w", rawPath, err)
	}

	enc, err := zstdEncoderPool.Get(nil)
	if err != nil {
		return fmt.Errorf("docstore: get zstd encoder: %w", err)
	}
	defer zstdEncoderPool.Put(enc)
	compressed := enc.EncodeAll(raw, nil)

	if err := os.WriteFile(finalPath, compressed, 0o644); err != nil {
		return fmt.Errorf("docstore: write doclinks %s: %w", finalPath, err)
	}
	return os.Remove(rawPath)
}

// ReadCompressed reads every record from the zstd-compressed at-rest
// doclinks file produced by CompressFinal.
func ReadCompressed(path string) ([]RawRecord, error) {
	compressed, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("docstore: read doclinks %s: %w", path, err)
	}

	dec, err := zstdDecoderPool.Get(nil)
	if err != nil {
		return nil, fmt.Errorf("docstore: get zstd decoder: %w", err)
	}
	defer zstdDecoderPool.Put(dec)

	b, err := dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("docstore: decompress doclinks %s: %w", path, err)
	}
	return decodeRawRecords(b)
}
