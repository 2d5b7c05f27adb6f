package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/linto-ai/lintoctl/pkg/orchestrator"
)

func destroyCmd() *cli.Command {
	return &cli.Command{
		Name:      "destroy",
		Usage:     "Tear down a profile's deployment",
		ArgsUsage: "<profile>",
		Description: `Uninstalls every release belonging to the profile in reverse dependency
order. When the profile's TLS mode keeps externally-issued certificates,
their secrets are backed up first so the next deploy can restore them.

Persistent volume claims survive unless --volumes is given. When the
certificate backup fails, volume removal is skipped even with --volumes;
the uninstall itself still proceeds.

--force skips the confirmation prompt. It never changes what is deleted.

# Examples

Tear down, keeping data volumes:
  lintoctl destroy demo

Tear down everything including data, without a prompt:
  lintoctl destroy demo --force --volumes --remove-files`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Skip the confirmation prompt",
			},
			&cli.BoolFlag{
				Name:  "volumes",
				Usage: "Also delete the persistent volume claims",
			},
			&cli.BoolFlag{
				Name:  "remove-files",
				Usage: "Also delete the rendered values artifacts",
			},
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

			if !cmd.Bool("force") {
				prompt := fmt.Sprintf("Destroy deployment %q in namespace %q?", name, p.Namespace)
				if cmd.Bool("volumes") {
					prompt = fmt.Sprintf("Destroy deployment %q in namespace %q AND DELETE ITS DATA VOLUMES?", name, p.Namespace)
				}
				if !confirm(os.Stdin, os.Stdout, prompt) {
					fmt.Fprintln(os.Stdout, "aborted")
					return nil
				}
			}

			orch, err := a.connect(cmd, p)
			if err != nil {
				return err
			}

			report, err := orch.Destroy(ctx, name, orchestrator.DestroyOptions{
				RemoveVolumes: cmd.Bool("volumes"),
				RemoveFiles:   cmd.Bool("remove-files"),
			})
			if err != nil {
				return err
			}

			for _, release := range report.Uninstalled {
				fmt.Fprintf(os.Stdout, "uninstalled %s\n", release)
			}
			if len(report.BackedUpCerts) > 0 {
				fmt.Fprintf(os.Stdout, "backed up %d TLS secret(s)\n", len(report.BackedUpCerts))
			}
			for _, pvc := range report.VolumesDeleted {
				fmt.Fprintf(os.Stdout, "deleted volume claim %s\n", pvc)
			}
			if report.VolumesSkipped != "" {
				fmt.Fprintf(os.Stdout, "volume removal skipped: %s\n", report.VolumesSkipped)
			}
			if report.FilesRemoved {
				fmt.Fprintln(os.Stdout, "rendered artifacts removed")
			}
			return nil
		},
	}
}
