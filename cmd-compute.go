package main

import (
	"fmt"

	"github.com/rpcpool/corpusdex/bucket"
	"github.com/rpcpool/corpusdex/rank"
	"github.com/rpcpool/corpusdex/telemetry"
	"github.com/urfave/cli/v2"
	"k8s.io/klog/v2"
)

func newCmd_Compute() *cli.Command {
	var docPath, mergePath, bucketsDir, doclinksPath string
	var skipPageRank, skipHITS bool

	return &cli.Command{
		Name:        "compute",
		Usage:       "Run the PageRank and HITS link-graph scorers over a merged index.",
		Description: "Reads the document table and merged buckets, translates doclinks to docids, and patches pr_quality/hub_quality/auth_quality into the document table in place. Offline: no concurrent reader may be active against doc-path while this runs.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "doc-path", Usage: "path to the document table", Value: "documents.bin", Destination: &docPath},
			&cli.StringFlag{Name: "merge-path", Usage: "path to the merge-info file", Value: "index.mergeinfo", Destination: &mergePath},
			&cli.StringFlag{Name: "buckets-dir", Usage: "directory containing <n>.bucket/<n>.seek pairs", Value: "buckets", Destination: &bucketsDir},
			&cli.StringFlag{Name: "doclinks-path", Usage: "path to the doclinks file; a .raw extension is read uncompressed, anything else as zstd", Value: "doclinks.zst", Destination: &doclinksPath},
			&cli.BoolFlag{Name: "skip-pagerank", Destination: &skipPageRank},
			&cli.BoolFlag{Name: "skip-hits", Destination: &skipHITS},
		},
		Action: func(c *cli.Context) error {
			_, span := telemetry.Tracer("corpusdex").Start(c.Context, "compute")
			defer span.End()

			r, err := bucket.Initialize(docPath, mergePath, bucketsDir)
			if err != nil {
				return fmt.Errorf("initialize reader: %w", err)
			}
			defer r.Close()

			if err := r.InitializeDoclinks(doclinksPath); err != nil {
				return fmt.Errorf("initialize doclinks: %w", err)
			}

			if !skipPageRank {
				klog.Info("compute: running pagerank")
				if err := rank.PageRank(r); err != nil {
					return fmt.Errorf("pagerank: %w", err)
				}
			}
			if !skipHITS {
				klog.Info("compute: running hits")
				if err := rank.HITS(r); err != nil {
					return fmt.Errorf("hits: %w", err)
				}
			}
			klog.Infof("compute: patched quality fields for %d documents", r.Table.Count())
			return nil
		},
	}
}
