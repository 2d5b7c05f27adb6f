package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/urfave/cli/v3"

	"github.com/linto-ai/lintoctl/pkg/errors"
	"github.com/linto-ai/lintoctl/pkg/profile"
	"github.com/linto-ai/lintoctl/pkg/resolve"
	"github.com/linto-ai/lintoctl/pkg/serializer"
)

// Exit codes surfaced to scripts and CI.
const (
	exitOK                 = 0
	exitFailure            = 1
	exitValidation         = 2
	exitPartialDeployment  = 3
	exitClusterUnreachable = 4
)

// ExitCode maps an error to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return exitOK
	}
	switch errors.CodeOf(err) {
	case errors.ErrCodeValidation:
		return exitValidation
	case errors.ErrCodePartialDeployment:
		return exitPartialDeployment
	case errors.ErrCodeClusterUnreachable:
		return exitClusterUnreachable
	default:
		return exitFailure
	}
}

// suggestionDistance is the maximum edit distance for a name hint.
const suggestionDistance = 3

// suggestProfile returns the closest stored profile name, or empty when
// nothing is near enough.
func suggestProfile(store profile.Store, name string) string {
	names, err := store.List()
	if err != nil {
		return ""
	}
	best := ""
	bestDistance := suggestionDistance + 1
	for _, candidate := range names {
		d := levenshtein.ComputeDistance(strings.ToLower(name), strings.ToLower(candidate))
		if d < bestDistance {
			best = candidate
			bestDistance = d
		}
	}
	return best
}

// parseOverrides converts repeated --set key=value flags.
func parseOverrides(pairs []string) (resolve.Overrides, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	overrides := resolve.Overrides{}
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, errors.Newf(errors.ErrCodeValidation, "invalid --set value %q, expected key=value", pair)
		}
		overrides[key] = value
	}
	return overrides, nil
}

// formatFlag is the shared output-format flag.
func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "format",
		Usage: "Output format: table, yaml or json",
	}
}

// errValidationf builds a validation error from a format string.
func errValidationf(format string, args ...any) error {
	return errors.Newf(errors.ErrCodeValidation, format, args...)
}

// outputWriter builds a serializer for the command's --format flag.
func outputWriter(cmd *cli.Command, out io.Writer) (*serializer.Writer, error) {
	format, err := serializer.ParseFormat(cmd.String("format"))
	if err != nil {
		return nil, err
	}
	return serializer.NewWriter(format, out), nil
}

// confirm asks for interactive confirmation of a destructive action.
func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", prompt)
	reader := bufio.NewReader(in)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

// requireProfileArg extracts the mandatory profile name argument.
func requireProfileArg(cmd *cli.Command) (string, error) {
	name := cmd.Args().First()
	if name == "" {
		return "", errors.New(errors.ErrCodeValidation, "a profile name is required")
	}
	return name, nil
}
