package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/rpcpool/corpusdex/config"
	"github.com/rpcpool/corpusdex/telemetry"
	"github.com/urfave/cli/v2"
	"k8s.io/klog/v2"
)

// configMetadataKey is where the Before hook stashes the loaded, already-
// validated config.Scoring for every command's Action to read back via
// c.App.Metadata, so §10.3's "fail startup otherwise" validation runs
// exactly once regardless of which command was invoked.
const configMetadataKey = "scoring-config"

// loadedConfig retrieves the config.Scoring the Before hook validated.
func loadedConfig(c *cli.Context) config.Scoring {
	return c.App.Metadata[configMetadataKey].(config.Scoring)
}

var gitCommitSHA = ""

func main() {
	// set up a context that is canceled when a command is interrupted
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// set up a signal handler to cancel the context
	go func() {
		interrupt := make(chan os.Signal, 1)
		signal.Notify(interrupt, syscall.SIGTERM, syscall.SIGINT)

		select {
		case <-interrupt:
			fmt.Println()
			klog.Info("received interrupt signal")
			cancel()
		case <-ctx.Done():
		}

		// Allow any further SIGTERM or SIGINT to kill process
		signal.Stop(interrupt)
	}()

	shutdownTelemetry, err := telemetry.Init(ctx, "corpusdex")
	if err != nil {
		klog.Fatalf("telemetry init: %v", err)
	}
	defer shutdownTelemetry()

	var configPath string
	app := &cli.App{
		Name:        "corpusdex",
		Version:     gitCommitSHA,
		Description: "Disk-resident inverted-index search engine for a static crawled web corpus: build, compute link-graph quality, and query.",
		Metadata:    map[string]interface{}{},
		Before: func(c *cli.Context) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			c.App.Metadata[configMetadataKey] = cfg
			return nil
		},
		Flags: append(NewKlogFlagSet(), &cli.StringFlag{
			Name:        "config",
			Usage:       "YAML scoring/builder config; defaults are used if omitted",
			Destination: &configPath,
		}),
		Commands: []*cli.Command{
			newCmd_Build(),
			newCmd_Merge(),
			newCmd_Compute(),
			newCmd_Query(),
			newCmd_Version(),
		},
	}

	sort.Sort(cli.FlagsByName(app.Flags))
	sort.Sort(cli.CommandsByName(app.Commands))

	if err := app.RunContext(ctx, os.Args); err != nil {
		klog.Fatal(err)
	}
}
