package main

import (
	"fmt"

	"github.com/rpcpool/corpusdex/merge"
	"github.com/rpcpool/corpusdex/telemetry"
	"github.com/urfave/cli/v2"
	"k8s.io/klog/v2"
)

func newCmd_Merge() *cli.Command {
	var partPath, bucketsDir, mergePath string

	return &cli.Command{
		Name:        "merge",
		Usage:       "External k-way merge a complete partial container into queryable buckets.",
		Description: "Consumes a complete index.part and produces buckets/<n>.bucket, buckets/<n>.seek, and the merge-info header that compute and query both read.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "part-path", Usage: "path to the partial container built by `build`", Value: "index.part", Destination: &partPath},
			&cli.StringFlag{Name: "buckets-dir", Usage: "directory to write <n>.bucket/<n>.seek pairs into", Value: "buckets", Destination: &bucketsDir},
			&cli.StringFlag{Name: "merge-path", Usage: "path to write the merge-info file", Value: "index.mergeinfo", Destination: &mergePath},
		},
		Action: func(c *cli.Context) error {
			_, span := telemetry.Tracer("corpusdex").Start(c.Context, "merge")
			defer span.End()

			info, err := merge.Run(partPath, bucketsDir, mergePath)
			if err != nil {
				return fmt.Errorf("merge: %w", err)
			}
			klog.Infof("merge: max_docid=%d unique_terms=%d buckets_dir=%s", info.MaxDocID, info.UniqueTermCount, bucketsDir)
			return nil
		},
	}
}
