// Package builder implements the SPIMI-style corpus walker (§4.4): it
// consumes documents from a collab.PageLoader, dedups and tokenizes them,
// accumulates an in-memory inverted index, and periodically flushes to
// the partial container, document table, and doclinks file via
// package partial's atomic write_partial.
package builder

import (
	"fmt"
	"sort"

	"github.com/rpcpool/corpusdex/collab"
	"github.com/rpcpool/corpusdex/config"
	"github.com/rpcpool/corpusdex/docstore"
	"github.com/rpcpool/corpusdex/duphash"
	"github.com/rpcpool/corpusdex/partial"
	"github.com/rpcpool/corpusdex/posting"
	"k8s.io/klog/v2"
)

// Stats reports the outcome of a Run call.
type Stats struct {
	DocsAssigned  uint64 // highest docid assigned, i.e. the sparse corpus size
	DocsIndexed   int    // documents actually contributing postings
	PrunedEmpty   int
	PrunedExact   int
	PrunedSimhash int
	FlushCount    int
}

// Builder walks a page source and builds the on-disk SPIMI index.
type Builder struct {
	cfg config.Scoring

	loader    collab.PageLoader
	extractor collab.Extractor
	tokenizer collab.Tokenizer
	stemmer   collab.Stemmer

	partPath string
	docPath  string
	doclinks *docstore.RawWriter

	index map[string][]posting.Posting

	seenURLs  map[string]struct{}
	seenExact map[[8]byte]struct{}
	recent    *duphash.RecentDeque

	pending    []docstore.Document
	sinceFlush int

	docID      uint64
	resumeUpTo uint64

	stats   Stats
	metrics *Metrics
}

// Open prepares a builder against partPath/docPath/doclinksRawPath. If
// partPath does not yet exist, a fresh partial container is created. If it
// exists and is complete, ErrAlreadyComplete is returned — callers who
// want to rebuild must remove the container first. If it exists and is
// incomplete, the builder resumes after its last_docid. A version mismatch
// resets the container to fresh, matching the indexer's documented
// FRESH/RESUMING/MERGING state machine (§4.8).
func Open(
	cfg config.Scoring,
	loader collab.PageLoader,
	extractor collab.Extractor,
	tokenizer collab.Tokenizer,
	stemmer collab.Stemmer,
	partPath, docPath, doclinksRawPath string,
) (*Builder, error) {
	resumeUpTo, err := openOrResetPartial(partPath)
	if err != nil {
		return nil, err
	}

	dl, err := docstore.OpenRawWriter(doclinksRawPath)
	if err != nil {
		return nil, fmt.Errorf("builder: open doclinks: %w", err)
	}

	return &Builder{
		cfg:        cfg,
		loader:     loader,
		extractor:  extractor,
		tokenizer:  tokenizer,
		stemmer:    stemmer,
		partPath:   partPath,
		docPath:    docPath,
		doclinks:   dl,
		index:      make(map[string][]posting.Posting),
		seenURLs:   make(map[string]struct{}),
		seenExact:  make(map[[8]byte]struct{}),
		recent:     duphash.NewRecentDeque(cfg.Builder.DedupDequeSize),
		resumeUpTo: resumeUpTo,
		docID:      0,
	}, nil
}

// ErrAlreadyComplete is returned by Open when the partial container is
// already marked complete.
var ErrAlreadyComplete = fmt.Errorf("builder: partial container already complete")

func openOrResetPartial(path string) (uint64, error) {
	status, header, err := partial.CheckPartial(path)
	if err != nil {
		// No container yet (or unreadable): start fresh.
		if createErr := partial.NewPartial(path); createErr != nil {
			return 0, createErr
		}
		return 0, nil
	}
	switch status {
	case partial.StatusOK:
		return 0, ErrAlreadyComplete
	case partial.StatusVersionMismatch:
		if err := partial.NewPartial(path); err != nil {
			return 0, err
		}
		return 0, nil
	default: // StatusIncomplete
		return header.LastDocID, nil
	}
}

// Close releases the doclinks writer. Call after Run returns.
func (b *Builder) Close() error {
	return b.doclinks.Close()
}

// Run walks every page from the loader to completion, flushing every
// FlushPeriod documents, and performs a final flush + mark_partial.
func (b *Builder) Run() (Stats, error) {
	for {
		page, ok, err := b.loader.Next()
		if err != nil {
			return b.stats, fmt.Errorf("builder: load page: %w", err)
		}
		if !ok {
			break
		}
		b.docID++

		if err := b.processOne(b.docID, page); err != nil {
			return b.stats, fmt.Errorf("builder: process docid %d: %w", b.docID, err)
		}

		if b.sinceFlush >= b.cfg.Builder.FlushPeriod && len(b.pending) > 0 {
			if err := b.flush(); err != nil {
				return b.stats, err
			}
		}
	}

	if err := b.flush(); err != nil {
		return b.stats, err
	}
	if err := partial.MarkPartial(b.partPath); err != nil {
		return b.stats, fmt.Errorf("builder: mark_partial: %w", err)
	}

	b.stats.DocsAssigned = b.docID
	return b.stats, nil
}

// processOne runs the per-document pipeline (§4.4 steps 1-9) for a single
// page already assigned docID.
func (b *Builder) processOne(docID uint64, page collab.Page) error {
	if docID <= b.resumeUpTo {
		return nil // step 1: already flushed in a prior run
	}

	if len(page.RawContent) == 0 {
		b.stats.PrunedEmpty++
		b.pruned(docID)
		return nil // step 2
	}

	defragged, err := collab.Defragment(page.URL)
	if err != nil {
		return fmt.Errorf("defragment url %q: %w", page.URL, err)
	}
	if _, seen := b.seenURLs[defragged]; seen {
		b.pruned(docID)
		return nil // step 3: no pruned-counter increment, per spec
	}
	b.seenURLs[defragged] = struct{}{}

	exact := duphash.ExactHash(page.RawContent)
	if _, seen := b.seenExact[exact]; seen {
		b.stats.PrunedExact++
		b.pruned(docID)
		return nil // step 4
	}
	b.seenExact[exact] = struct{}{}

	extraction, err := b.extractor.Extract(page.RawContent)
	if err != nil {
		return fmt.Errorf("extract html: %w", err)
	}

	tokens := b.tokenizer.Tokenize(extraction.Text)
	tokenCounts := make(map[string]int, len(tokens))
	stemmedTokens := make([]string, len(tokens))
	for i, tok := range tokens {
		stemmed := b.stemmer.Stem(tok)
		stemmedTokens[i] = stemmed
		tokenCounts[stemmed]++
	}

	importantSet := make(map[string]struct{})
	for _, class := range collab.ImportantTagClasses {
		for _, fragment := range extraction.ImportantFragments[class] {
			for _, tok := range b.tokenizer.Tokenize(fragment) {
				importantSet[b.stemmer.Stem(tok)] = struct{}{}
			}
		}
	}

	fingerprint := duphash.SimHash(tokenCounts)
	if _, similar := b.recent.FindSimilar(fingerprint); similar {
		b.stats.PrunedSimhash++
		b.pruned(docID)
		return nil // step 7
	}
	b.recent.Push(fingerprint)

	for token, count := range tokenCounts {
		_, important := importantSet[token]
		b.index[token] = append(b.index[token], posting.New(docID, uint32(count), important))
	}

	var links []string
	for _, href := range extraction.Outlinks {
		resolved, err := collab.ResolveOutlink(defragged, href)
		if err != nil {
			continue // malformed outlink: drop silently, not fatal to the document
		}
		links = append(links, resolved)
	}

	doc := docstore.NewDocument(docID, uint32(len(tokens)), defragged)
	doc.Links = links
	b.pending = append(b.pending, doc)
	b.sinceFlush++
	b.stats.DocsIndexed++

	return nil
}

// pruned records an empty placeholder for a pruned docid so the document
// table stays dense: docid gaps left by pruning would otherwise desync
// every later Get(docid)/Count() from the sparse docid space (§3 invariant
// 1, §8 "Document sparsity").
func (b *Builder) pruned(docID uint64) {
	b.pending = append(b.pending, docstore.Placeholder(docID))
	b.sinceFlush++
}

func (b *Builder) flush() error {
	entries := make([]partial.TermPostings, 0, len(b.index))
	for term, postings := range b.index {
		entries = append(entries, partial.TermPostings{Term: term, Postings: postings})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Term < entries[j].Term })

	if err := partial.WritePartial(b.partPath, b.docPath, b.doclinks, entries, b.pending, b.docID); err != nil {
		return fmt.Errorf("write_partial: %w", err)
	}

	klog.V(1).Infof("builder: flushed partial, last_docid=%d, terms=%d, docs=%d", b.docID, len(entries), len(b.pending))

	b.index = make(map[string][]posting.Posting)
	b.pending = nil
	b.sinceFlush = 0
	b.stats.FlushCount++
	b.recordFlushMetrics()
	return nil
}
