package partial

import (
	"fmt"
	"os"

	"github.com/rpcpool/corpusdex/codec"
	"github.com/rpcpool/corpusdex/continuity"
	"github.com/rpcpool/corpusdex/docstore"
	"github.com/valyala/bytebufferpool"
)

// WritePartial performs the atomic-across-three-files flush described by
// write_partial: it fully buffers the new partition, the new document
// records, and the new doclinks records in memory before touching any
// file, then writes the updated header, appends the partition, appends
// the documents, and appends the doclinks — in that order. If any step
// fails, the partial header is restored to its pre-call value and the
// partial and document files are truncated back to their pre-call sizes;
// the raw doclinks writer is truncated back to its pre-call offset. The
// caller's in-memory index and pending document list are untouched either
// way — on success it is the caller's job to clear them, on failure there
// is nothing to undo there.
func WritePartial(
	partPath string,
	docPath string,
	doclinks *docstore.RawWriter,
	entries []TermPostings,
	docs []docstore.Document,
	lastDocID uint64,
) (err error) {
	oldHeader, err := ReadHeader(partPath)
	if err != nil {
		return fmt.Errorf("partial: write_partial read header: %w", err)
	}

	partBuf := bytebufferpool.Get()
	defer bytebufferpool.Put(partBuf)
	docBuf := bytebufferpool.Get()
	defer bytebufferpool.Put(docBuf)

	partitionPayload := EncodePartition(entries)
	partBuf.B = append(partBuf.B[:0], partitionPayload...)

	for _, d := range docs {
		docBuf.B = append(docBuf.B, d.Bytes()...)
	}

	doclinksByDoc := make(map[uint64][]string, len(docs))
	for _, d := range docs {
		if len(d.Links) > 0 {
			doclinksByDoc[d.DocID] = d.Links
		}
	}

	partFile, err := os.OpenFile(partPath, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("partial: write_partial open part file: %w", err)
	}
	defer partFile.Close()

	docFile, err := os.OpenFile(docPath, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("partial: write_partial open doc file: %w", err)
	}
	defer docFile.Close()

	partStat, err := partFile.Stat()
	if err != nil {
		return fmt.Errorf("partial: write_partial stat part file: %w", err)
	}
	docStat, err := docFile.Stat()
	if err != nil {
		return fmt.Errorf("partial: write_partial stat doc file: %w", err)
	}
	partPreSize := partStat.Size()
	docPreSize := docStat.Size()

	doclinksCheckpoint, err := doclinks.Offset()
	if err != nil {
		return fmt.Errorf("partial: write_partial checkpoint doclinks: %w", err)
	}

	newHeader := Header{
		Version:    oldHeader.Version,
		IsComplete: oldHeader.IsComplete,
		LastDocID:  lastDocID,
		PartCount:  oldHeader.PartCount + 1,
	}

	chain := continuity.New().
		Thenf("write header", func() error {
			_, werr := partFile.WriteAt(newHeader.Bytes(), 0)
			return werr
		}).
		Thenf("append partition", func() error {
			sizePrefixed := append(codec.EncodeU32(uint32(len(partBuf.B))), partBuf.B...)
			_, werr := partFile.WriteAt(sizePrefixed, partPreSize)
			return werr
		}).
		Thenf("append documents", func() error {
			_, werr := docFile.WriteAt(docBuf.B, docPreSize)
			return werr
		}).
		Thenf("append doclinks", func() error {
			for _, d := range docs {
				if urls, ok := doclinksByDoc[d.DocID]; ok {
					if werr := doclinks.Append(d.DocID, urls); werr != nil {
						return werr
					}
				}
			}
			return nil
		})

	if chainErr := chain.Err(); chainErr != nil {
		rollbackErr := rollback(partFile, docFile, oldHeader, partPreSize, docPreSize, doclinks, doclinksCheckpoint)
		if rollbackErr != nil {
			return fmt.Errorf("partial: write_partial failed (%w) and rollback failed: %v", chainErr, rollbackErr)
		}
		return fmt.Errorf("partial: write_partial failed, rolled back: %w", chainErr)
	}
	return nil
}

func rollback(partFile, docFile *os.File, oldHeader Header, partPreSize, docPreSize int64, doclinks *docstore.RawWriter, doclinksCheckpoint int64) error {
	if _, err := partFile.WriteAt(oldHeader.Bytes(), 0); err != nil {
		return fmt.Errorf("restore header: %w", err)
	}
	if err := partFile.Truncate(partPreSize); err != nil {
		return fmt.Errorf("truncate part file: %w", err)
	}
	if err := docFile.Truncate(docPreSize); err != nil {
		return fmt.Errorf("truncate doc file: %w", err)
	}
	if err := doclinks.Truncate(doclinksCheckpoint); err != nil {
		return fmt.Errorf("truncate doclinks: %w", err)
	}
	return nil
}
