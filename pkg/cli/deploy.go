package cli

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/linto-ai/lintoctl/pkg/orchestrator"
)

func deployCmd() *cli.Command {
	return &cli.Command{
		Name:      "deploy",
		Usage:     "Deploy or upgrade the platform for a profile",
		ArgsUsage: "<profile>",
		Description: `Brings the cluster in line with the profile: the namespace is ensured,
cert-manager is installed when the profile uses ACME, previously backed-up
TLS secrets are restored, values artifacts are rendered when missing, and
every enabled service is installed or upgraded in dependency order.

A failure on one service does not roll back the others; the command reports
which services applied and which failed, and exits with a partial-deployment
status so the run can be retried.

# Examples

Deploy with previously rendered artifacts when present:
  lintoctl deploy demo

Re-render before deploying and pin a manifest:
  lintoctl deploy demo --force --manifest versions.yaml

Override a single resolved value for this run:
  lintoctl deploy demo --set tag.stt=1.4.2`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Re-render values artifacts even when they already exist",
			},
			&cli.StringFlag{
				Name:  "manifest",
				Usage: "Path to a version manifest file",
			},
			&cli.StringSliceFlag{
				Name:  "set",
				Usage: "Override a resolved value (format: key=value, can be repeated)",
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

			overrides, err := parseOverrides(cmd.StringSlice("set"))
			if err != nil {
				return err
			}

			orch, err := a.connect(cmd, p)
			if err != nil {
				return err
			}

			report, deployErr := orch.Deploy(ctx, name, orchestrator.DeployOptions{
				ForceRender:  cmd.Bool("force"),
				Overrides:    overrides,
				ManifestPath: cmd.String("manifest"),
			})
			if report != nil && len(report.Services) > 0 {
				writer, werr := outputWriter(cmd, os.Stdout)
				if werr != nil {
					return werr
				}
				// A partial failure still gets its per-service report.
				if serr := writer.Serialize(ctx, report); serr != nil && deployErr == nil {
					return serr
				}
			}
			return deployErr
		},
	}
}
