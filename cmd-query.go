package main

import (
	"fmt"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/dustin/go-humanize"
	"github.com/rpcpool/corpusdex/bucket"
	"github.com/rpcpool/corpusdex/collab"
	"github.com/rpcpool/corpusdex/query"
	"github.com/rpcpool/corpusdex/telemetry"
	"github.com/urfave/cli/v2"
)

func newCmd_Query() *cli.Command {
	var docPath, mergePath, bucketsDir, stopwordsPath string
	var verbose bool

	return &cli.Command{
		Name:        "query",
		Usage:       "Run a search query against a merged index.",
		Description: "Tokenizes, stems, and stopword-prunes the query the same way the builder indexed content, intersects posting lists, and prints the top-K results by blended relevance/quality score.",
		ArgsUsage:   "<query text>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "doc-path", Usage: "path to the document table", Value: "documents.bin", Destination: &docPath},
			&cli.StringFlag{Name: "merge-path", Usage: "path to the merge-info file", Value: "index.mergeinfo", Destination: &mergePath},
			&cli.StringFlag{Name: "buckets-dir", Usage: "directory containing <n>.bucket/<n>.seek pairs", Value: "buckets", Destination: &bucketsDir},
			&cli.StringFlag{Name: "stopwords", Usage: "newline-delimited stopword file; defaults to the bundled English list", Destination: &stopwordsPath},
			&cli.BoolFlag{Name: "verbose", Usage: "dump full result structs instead of a formatted table", Destination: &verbose},
		},
		Action: func(c *cli.Context) error {
			_, span := telemetry.Tracer("corpusdex").Start(c.Context, "query")
			defer span.End()

			queryText := strings.Join(c.Args().Slice(), " ")
			if queryText == "" {
				return fmt.Errorf("query: no query text given")
			}

			cfg := loadedConfig(c)

			var stopwords collab.StopwordOracle
			var err error
			if stopwordsPath != "" {
				stopwords, err = collab.LoadStopwords(stopwordsPath)
				if err != nil {
					return fmt.Errorf("load stopwords: %w", err)
				}
			} else {
				stopwords = collab.NewStopwords(collab.DefaultEnglishStopwords)
			}

			r, err := bucket.Initialize(docPath, mergePath, bucketsDir)
			if err != nil {
				return fmt.Errorf("initialize reader: %w", err)
			}
			defer r.Close()

			results, err := query.Run(r, cfg, collab.NewDefaultTokenizer(), collab.NewSnowballStemmer(), stopwords, queryText)
			if err != nil {
				return fmt.Errorf("query: %w", err)
			}

			if verbose {
				spew.Dump(results)
				return nil
			}

			if len(results) == 0 {
				fmt.Println("no results")
				return nil
			}
			for i, res := range results {
				fmt.Printf("%2d. [%s] %s (docid %s)\n", i+1, humanize.FormatFloat("#.####", res.Score), res.URL, humanize.Comma(int64(res.DocID)))
			}
			return nil
		},
	}
}
