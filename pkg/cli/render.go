package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/linto-ai/lintoctl/pkg/errors"
	"github.com/linto-ai/lintoctl/pkg/manifest"
	"github.com/linto-ai/lintoctl/pkg/render"
	"github.com/linto-ai/lintoctl/pkg/resolve"
)

func renderCmd() *cli.Command {
	return &cli.Command{
		Name:      "render",
		Usage:     "Render the values artifacts for a profile without touching the cluster",
		ArgsUsage: "<profile>",
		Description: `Resolves the profile against the version manifest and writes one values
document per enabled service. Rendering is deterministic: the same profile
produces byte-identical artifacts, so it is safe to re-run.

Existing artifacts are not overwritten unless --force is given.

# Examples

Render into the default directory (~/.linto/profiles/<name>.values):
  lintoctl render demo

Render into an explicit directory, replacing previous output:
  lintoctl render demo --output ./values --force`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Directory to write the values artifacts into",
			},
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Overwrite artifacts that already exist",
			},
			&cli.StringFlag{
				Name:  "manifest",
				Usage: "Path to a version manifest file",
			},
			&cli.StringSliceFlag{
				Name:  "set",
				Usage: "Override a resolved value (format: key=value, can be repeated)",
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
			if p.EnsureSecrets() {
				if err := a.store.Save(p); err != nil {
					return err
				}
			}

			var m *manifest.Manifest
			if path := cmd.String("manifest"); path != "" {
				if m, err = manifest.Load(path); err != nil {
					return err
				}
			}
			overrides, err := parseOverrides(cmd.StringSlice("set"))
			if err != nil {
				return err
			}

			resolved, err := resolve.Resolve(p, m, overrides, resolve.DefaultTagPolicy())
			if err != nil {
				return err
			}

			dir := cmd.String("output")
			if dir == "" {
				dir = a.cfg.RenderDir(name)
			}
			if !cmd.Bool("force") && render.Exist(dir, resolved.Services) {
				return errors.Newf(errors.ErrCodeAlreadyExists,
					"values artifacts already exist in %s, use --force to overwrite", dir)
			}

			artifacts, err := render.Render(resolved)
			if err != nil {
				return err
			}
			paths, err := render.WriteAll(dir, artifacts)
			if err != nil {
				return err
			}
			for _, path := range paths {
				fmt.Fprintln(os.Stdout, path)
			}
			return nil
		},
	}
}
