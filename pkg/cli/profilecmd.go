package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/linto-ai/lintoctl/pkg/profile"
	"github.com/linto-ai/lintoctl/pkg/service"
)

// profileList renders stored profiles as a table.
type profileList struct {
	Profiles []*profile.Profile `json:"profiles" yaml:"profiles"`
}

func (l *profileList) Headers() []string {
	return []string{"NAME", "DOMAIN", "SERVICES", "TLS", "GPU", "NAMESPACE"}
}

func (l *profileList) Rows() [][]string {
	rows := make([][]string, 0, len(l.Profiles))
	for _, p := range l.Profiles {
		enabled := p.Services.Enabled()
		names := make([]string, 0, len(enabled))
		for _, id := range enabled {
			names = append(names, string(id))
		}
		services := "-"
		if len(names) > 0 {
			services = strings.Join(names, ",")
		}
		rows = append(rows, []string{
			p.Name, p.Domain, services, string(p.TLSMode), string(p.GPUMode), p.Namespace,
		})
	}
	return rows
}

func profileCmd() *cli.Command {
	return &cli.Command{
		Name:    "profile",
		Aliases: []string{"profiles"},
		Usage:   "Manage deployment profiles",
		Commands: []*cli.Command{
			profileListCmd(),
			profileShowCmd(),
			profileDeleteCmd(),
			profileCopyCmd(),
		},
	}
}

func profileListCmd() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List stored profiles",
		Flags: []cli.Flag{formatFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}

			names, err := a.store.List()
			if err != nil {
				return err
			}
			list := &profileList{}
			for _, name := range names {
				p, err := a.store.Load(name)
				if err != nil {
					return err
				}
				list.Profiles = append(list.Profiles, p)
			}

			writer, err := outputWriter(cmd, os.Stdout)
			if err != nil {
				return err
			}
			return writer.Serialize(ctx, list)
		},
	}
}

func profileShowCmd() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show one profile",
		ArgsUsage: "<profile>",
		Flags:     []cli.Flag{formatFlag()},
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

			writer, err := outputWriter(cmd, os.Stdout)
			if err != nil {
				return err
			}
			return writer.Serialize(ctx, p)
		},
	}
}

func profileDeleteCmd() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a stored profile",
		ArgsUsage: "<profile>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Delete without asking for confirmation",
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

			// Surface the suggestion before asking for confirmation.
			if _, err := a.loadProfile(name); err != nil {
				return err
			}

			if !cmd.Bool("force") {
				if !confirm(os.Stdin, os.Stdout, fmt.Sprintf("Delete profile %q?", name)) {
					fmt.Fprintln(os.Stdout, "aborted")
					return nil
				}
			}
			if err := a.store.Delete(name); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "profile %q deleted\n", name)
			return nil
		},
	}
}

func profileCopyCmd() *cli.Command {
	return &cli.Command{
		Name:      "copy",
		Usage:     "Copy a profile under a new name, resetting its generated secrets",
		ArgsUsage: "<from> <to>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			from := cmd.Args().Get(0)
			to := cmd.Args().Get(1)
			if from == "" || to == "" {
				return errValidationf("usage: profile copy <from> <to>")
			}

			if err := profile.Copy(a.store, from, to); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "profile %q copied to %q\n", from, to)
			return nil
		},
	}
}

// serviceArg parses an optional trailing chart/service argument.
func serviceArg(value string) (*service.ID, error) {
	if value == "" {
		return nil, nil
	}
	id, err := service.Parse(value)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
