package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/linto-ai/lintoctl/pkg/status"
)

func statusCmd() *cli.Command {
	return &cli.Command{
		Name:      "status",
		Usage:     "Show the live status of a profile's deployment",
		ArgsUsage: "<profile>",
		Description: `Aggregates the cluster state of every enabled service into one view:
health, pod readiness, restarts, resource usage (when a metrics server is
installed) and the public URL.

A namespace with no matching workloads reports Unknown, not an error, so
status is safe to run before the first deploy.

# Examples

One-shot status table:
  lintoctl status demo

Continuously refreshing compact view:
  lintoctl status demo --compact --follow --interval 10`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "compact",
				Usage: "Only show service and health columns",
			},
			&cli.BoolFlag{
				Name:  "follow",
				Usage: "Keep polling until interrupted",
			},
			&cli.IntFlag{
				Name:  "interval",
				Value: 5,
				Usage: "Poll interval in seconds for --follow",
			},
			formatFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			name, err := requireProfileArg(cmd)
			if err != nil {
				return err
			}
			p, err := a.loadProfile(name)
			if err != nil {
				return err
			}

			agg, err := a.aggregator(cmd, p)
			if err != nil {
				return err
			}
			writer, err := outputWriter(cmd, os.Stdout)
			if err != nil {
				return err
			}
			compact := cmd.Bool("compact")

			if !cmd.Bool("follow") {
				report, err := agg.Aggregate(ctx, p)
				if err != nil {
					return err
				}
				report.Compact = compact
				return writer.Serialize(ctx, report)
			}

			interval := time.Duration(cmd.Int("interval")) * time.Second
			if interval <= 0 {
				return errValidationf("--interval must be positive")
			}
			return agg.Follow(ctx, p, interval, func(report *status.Report, err error) {
				if err != nil {
					fmt.Fprintf(os.Stderr, "status poll failed: %v\n", err)
					return
				}
				report.Compact = compact
				if err := writer.Serialize(ctx, report); err != nil {
					fmt.Fprintf(os.Stderr, "status output failed: %v\n", err)
				}
				fmt.Fprintln(os.Stdout)
			})
		},
	}
}
