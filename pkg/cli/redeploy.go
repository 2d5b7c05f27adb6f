package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

func redeployCmd() *cli.Command {
	return &cli.Command{
		Name:      "redeploy",
		Usage:     "Trigger a rolling restart of a profile's deployments",
		ArgsUsage: "<profile> [service]",
		Description: `Requests a rolling restart of the profile's workloads without re-resolving
or re-rendering configuration. With a floating image tag this forces the
cluster to pull the newest image.

An optional trailing argument restricts the restart to one service
(studio, stt, live or llm; the linto- chart prefix is accepted).

# Examples

Restart everything:
  lintoctl redeploy demo

Restart only the speech-to-text service:
  lintoctl redeploy demo stt`,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			name, err := requireProfileArg(cmd)
			if err != nil {
				return err
			}
			only, err := serviceArg(cmd.Args().Get(1))
			if err != nil {
				return err
			}

			p, err := a.loadProfile(name)
			if err != nil {
				return err
			}
			orch, err := a.connect(cmd, p)
			if err != nil {
				return err
			}

			report, err := orch.Redeploy(ctx, name, only)
			if err != nil {
				return err
			}
			if len(report.Restarted) == 0 {
				fmt.Fprintln(os.Stdout, "no deployments matched")
				return nil
			}
			for _, deployment := range report.Restarted {
				fmt.Fprintf(os.Stdout, "restarted %s\n", deployment)
			}
			return nil
		},
	}
}
