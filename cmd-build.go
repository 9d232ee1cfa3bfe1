package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/rpcpool/corpusdex/builder"
	"github.com/rpcpool/corpusdex/collab"
	"github.com/rpcpool/corpusdex/docstore"
	"github.com/rpcpool/corpusdex/telemetry"
	"github.com/urfave/cli/v2"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"k8s.io/klog/v2"
)

func newCmd_Build() *cli.Command {
	var pagesDir, userAgent string
	var partPath, docPath, doclinksPath string
	var concurrency uint

	return &cli.Command{
		Name:        "build",
		Usage:       "Walk a crawled page directory and build the SPIMI partial index.",
		Description: "Builds index.part and documents.bin by walking a crawl directory and deduping/tokenizing every page; outlinks go to doclinks.raw, which is compressed to doclinks.zst once the walk completes. Resumable: rerunning against an incomplete partial picks up after its last_docid.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "pages-dir", Usage: "crawl directory containing manifest.txt and (optionally) robots.txt", Required: true, Destination: &pagesDir},
			&cli.StringFlag{Name: "user-agent", Usage: "user agent to honor robots.txt for", Value: "corpusdex", Destination: &userAgent},
			&cli.StringFlag{Name: "part-path", Usage: "path to the partial container", Value: "index.part", Destination: &partPath},
			&cli.StringFlag{Name: "doc-path", Usage: "path to the document table", Value: "documents.bin", Destination: &docPath},
			&cli.StringFlag{Name: "doclinks-path", Usage: "path to the raw doclinks file kept open during the build; zstd-compressed to its .zst at-rest form on completion", Value: "doclinks.raw", Destination: &doclinksPath},
			&cli.UintFlag{Name: "concurrency", Usage: "if > 1, run the extract/tokenize/stem stage across this many workers", Value: 1, Destination: &concurrency},
		},
		Action: func(c *cli.Context) error {
			ctx, span := telemetry.Tracer("corpusdex").Start(c.Context, "build")
			defer span.End()

			cfg := loadedConfig(c)

			loader, err := collab.NewDirectoryPageLoader(pagesDir, userAgent)
			if err != nil {
				return fmt.Errorf("open pages dir %s: %w", pagesDir, err)
			}

			b, err := builder.Open(cfg, loader, collab.NewGoqueryExtractor(), collab.NewDefaultTokenizer(), collab.NewSnowballStemmer(), partPath, docPath, doclinksPath)
			if err != nil {
				if err == builder.ErrAlreadyComplete {
					klog.Infof("build: %s is already complete; nothing to do", partPath)
					return nil
				}
				return fmt.Errorf("open builder: %w", err)
			}

			registry := prometheus.NewRegistry()
			b.SetMetrics(builder.NewMetrics(registry))

			progress := mpb.New(mpb.WithWidth(40))
			spinner := progress.AddSpinner(0,
				mpb.SpinnerOnLeft,
				mpb.PrependDecorators(decor.Name("indexing corpus")),
				mpb.AppendDecorators(decor.Elapsed(decor.ET_STYLE_GO)),
			)

			resultCh := make(chan struct {
				stats builder.Stats
				err   error
			}, 1)
			go func() {
				var stats builder.Stats
				var runErr error
				if concurrency > 1 {
					stats, runErr = b.RunConcurrent(int(concurrency))
				} else {
					stats, runErr = b.Run()
				}
				resultCh <- struct {
					stats builder.Stats
					err   error
				}{stats, runErr}
			}()

			var result struct {
				stats builder.Stats
				err   error
			}
			ticker := time.NewTicker(150 * time.Millisecond)
			defer ticker.Stop()
		waitLoop:
			for {
				select {
				case result = <-resultCh:
					break waitLoop
				case <-ticker.C:
					spinner.Increment()
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			spinner.SetTotal(1, true)
			progress.Wait()

			if result.err != nil {
				b.Close()
				return fmt.Errorf("build: %w", result.err)
			}
			if err := b.Close(); err != nil {
				return fmt.Errorf("close builder: %w", err)
			}
			stats := result.stats
			klog.Infof("build: docs_assigned=%d docs_indexed=%d pruned_empty=%d pruned_exact=%d pruned_simhash=%d flushes=%d",
				stats.DocsAssigned, stats.DocsIndexed, stats.PrunedEmpty, stats.PrunedExact, stats.PrunedSimhash, stats.FlushCount)

			finalDoclinksPath := strings.TrimSuffix(doclinksPath, ".raw") + ".zst"
			if err := docstore.CompressFinal(doclinksPath, finalDoclinksPath); err != nil {
				return fmt.Errorf("compress doclinks: %w", err)
			}
			klog.Infof("build: compressed doclinks to %s", finalDoclinksPath)

			families, err := registry.Gather()
			if err != nil {
				return fmt.Errorf("gather metrics: %w", err)
			}
			enc := expfmt.NewEncoder(os.Stdout, expfmt.FmtText)
			for _, family := range families {
				if err := enc.Encode(family); err != nil {
					return fmt.Errorf("encode metrics: %w", err)
				}
			}
			return nil
		},
	}
}
