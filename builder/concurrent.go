package builder

import (
	"context"
	"fmt"

	concurrently "github.com/tejzpr/ordered-concurrently/v3"

	"github.com/rpcpool/corpusdex/collab"
	"github.com/rpcpool/corpusdex/docstore"
	"github.com/rpcpool/corpusdex/duphash"
	"github.com/rpcpool/corpusdex/partial"
	"github.com/rpcpool/corpusdex/posting"
	"k8s.io/klog/v2"
)

// heavyResult is what a pageWork produces: the extract/tokenize/stem
// stage of the per-document pipeline (§4.4 steps 5-6), run off the main
// goroutine. The cheap, stateful steps (resume-skip, empty check, URL
// dedup, exact-hash dedup) already ran before dispatch; the SimHash
// comparison (step 7) runs afterwards in consumeHeavyResult.
type heavyResult struct {
	docID        uint64
	pruned       bool
	defragged    string
	totalTokens  int
	tokenCounts  map[string]int
	importantSet map[string]struct{}
	links        []string
	err          error
}

type pageWork struct {
	docID     uint64
	page      collab.Page
	defragged string
	b         *Builder
}

// prunedWork stands in for a docid consumed-but-dropped before the heavy
// extract/tokenize stage (empty content, URL dedup, exact-hash dedup). It
// carries no work of its own; it exists so the docid still passes through
// outputChan in submission order and gets a document_table placeholder on
// the consumer goroutine, never from the dispatch goroutine.
type prunedWork struct {
	docID uint64
}

func (w prunedWork) Run(_ context.Context) interface{} {
	return heavyResult{docID: w.docID, pruned: true}
}

// Run executes the heavy per-document stage. It is called concurrently
// across a worker pool; ordered-concurrently guarantees the consumer sees
// results in submission (docid) order regardless of completion order.
func (w pageWork) Run(_ context.Context) interface{} {
	extraction, err := w.b.extractor.Extract(w.page.RawContent)
	if err != nil {
		return heavyResult{docID: w.docID, err: fmt.Errorf("extract html: %w", err)}
	}

	tokens := w.b.tokenizer.Tokenize(extraction.Text)
	tokenCounts := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		tokenCounts[w.b.stemmer.Stem(tok)]++
	}

	importantSet := make(map[string]struct{})
	for _, class := range collab.ImportantTagClasses {
		for _, fragment := range extraction.ImportantFragments[class] {
			for _, tok := range w.b.tokenizer.Tokenize(fragment) {
				importantSet[w.b.stemmer.Stem(tok)] = struct{}{}
			}
		}
	}

	var links []string
	for _, href := range extraction.Outlinks {
		resolved, err := collab.ResolveOutlink(w.defragged, href)
		if err != nil {
			continue
		}
		links = append(links, resolved)
	}

	return heavyResult{
		docID:        w.docID,
		defragged:    w.defragged,
		totalTokens:  len(tokens),
		tokenCounts:  tokenCounts,
		importantSet: importantSet,
		links:        links,
	}
}

// RunConcurrent is the concurrent alternative to Run: the extract/tokenize/
// stem stage fans out across n workers. Docid assignment and URL/exact-hash
// dedup run on a single dispatch goroutine in docid order; SimHash near-dup
// comparison, index accumulation, and write_partial stay on the calling
// goroutine, which consumes results in strict docid order and records as
// last_docid only docids it has consumed, so the resumability and rollback
// guarantees of write_partial are unaffected.
func (b *Builder) RunConcurrent(workers int) (Stats, error) {
	if workers < 1 {
		workers = 1
	}

	ctx := context.Background()
	inputChan := make(chan concurrently.WorkFunction, workers)
	outputChan := concurrently.Process(ctx, inputChan, &concurrently.Options{
		PoolSize:         workers,
		OutChannelBuffer: workers,
	})

	dispatchDone := make(chan error, 1)
	// The dispatch goroutine owns nextID and the pre-extract prune counts;
	// they are read back only after dispatchDone has been received.
	nextID := b.docID
	var prunedEmpty, prunedExact int
	go func() {
		defer close(inputChan)
		for {
			page, ok, err := b.loader.Next()
			if err != nil {
				dispatchDone <- fmt.Errorf("load page: %w", err)
				return
			}
			if !ok {
				dispatchDone <- nil
				return
			}
			nextID++
			docID := nextID

			if docID <= b.resumeUpTo {
				continue
			}
			if len(page.RawContent) == 0 {
				prunedEmpty++
				inputChan <- prunedWork{docID: docID}
				continue
			}
			defragged, err := collab.Defragment(page.URL)
			if err != nil {
				dispatchDone <- fmt.Errorf("defragment url %q: %w", page.URL, err)
				return
			}
			if _, seen := b.seenURLs[defragged]; seen {
				inputChan <- prunedWork{docID: docID}
				continue
			}
			b.seenURLs[defragged] = struct{}{}

			exact := duphash.ExactHash(page.RawContent)
			if _, seen := b.seenExact[exact]; seen {
				prunedExact++
				inputChan <- prunedWork{docID: docID}
				continue
			}
			b.seenExact[exact] = struct{}{}

			inputChan <- pageWork{docID: docID, page: page, defragged: defragged, b: b}
		}
	}()

	for out := range outputChan {
		hr, ok := out.Value.(heavyResult)
		if !ok {
			return b.stats, fmt.Errorf("builder: unexpected concurrent result type %T", out.Value)
		}
		if hr.err != nil {
			return b.stats, fmt.Errorf("builder: process docid %d: %w", hr.docID, hr.err)
		}
		if hr.pruned {
			b.pruned(hr.docID)
		} else if err := b.consumeHeavyResult(hr); err != nil {
			return b.stats, fmt.Errorf("builder: process docid %d: %w", hr.docID, err)
		}
		b.docID = hr.docID
		if b.sinceFlush >= b.cfg.Builder.FlushPeriod && len(b.pending) > 0 {
			if err := b.flush(); err != nil {
				return b.stats, err
			}
		}
	}

	if err := <-dispatchDone; err != nil {
		return b.stats, err
	}
	b.docID = nextID
	b.stats.PrunedEmpty += prunedEmpty
	b.stats.PrunedExact += prunedExact

	if err := b.flush(); err != nil {
		return b.stats, err
	}
	if err := partial.MarkPartial(b.partPath); err != nil {
		return b.stats, fmt.Errorf("mark_partial: %w", err)
	}

	b.stats.DocsAssigned = b.docID
	return b.stats, nil
}

// consumeHeavyResult applies steps 7-9 (SimHash prune, index accumulation,
// pending buffer) for one already-extracted document, on the caller's
// goroutine.
func (b *Builder) consumeHeavyResult(hr heavyResult) error {
	fingerprint := duphash.SimHash(hr.tokenCounts)
	if _, similar := b.recent.FindSimilar(fingerprint); similar {
		b.stats.PrunedSimhash++
		b.pruned(hr.docID)
		return nil
	}
	b.recent.Push(fingerprint)

	for token, count := range hr.tokenCounts {
		_, important := hr.importantSet[token]
		b.index[token] = append(b.index[token], posting.New(hr.docID, uint32(count), important))
	}

	doc := docstore.NewDocument(hr.docID, uint32(hr.totalTokens), hr.defragged)
	doc.Links = hr.links
	b.pending = append(b.pending, doc)
	b.sinceFlush++
	b.stats.DocsIndexed++

	klog.V(2).Infof("builder: concurrent consumed docid=%d tokens=%d", hr.docID, hr.totalTokens)
	return nil
}
