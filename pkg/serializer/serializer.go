// Package serializer renders command output in the formats the CLI
// exposes: yaml, json and aligned tables.
package serializer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/linto-ai/lintoctl/pkg/errors"
)

// Format selects the output encoding.
type Format string

const (
	FormatYAML  Format = "yaml"
	FormatJSON  Format = "json"
	FormatTable Format = "table"
)

// ParseFormat normalizes a user-supplied format value.
func ParseFormat(value string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(value))) {
	case FormatYAML:
		return FormatYAML, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatTable, "":
		return FormatTable, nil
	default:
		return "", errors.Newf(errors.ErrCodeValidation, "unknown output format %q", value)
	}
}

// Tabler is implemented by values that know their own table layout.
type Tabler interface {
	Headers() []string
	Rows() [][]string
}

// Writer serializes values to one destination in one format.
type Writer struct {
	format Format
	out    io.Writer
}

// NewWriter returns a writer for the given format.
func NewWriter(format Format, out io.Writer) *Writer {
	return &Writer{format: format, out: out}
}

// Serialize writes data in the configured format. Table format requires
// the value to implement Tabler and falls back to YAML otherwise.
func (w *Writer) Serialize(ctx context.Context, data any) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(errors.ErrCodeTimeout, "serialization cancelled", err)
	}

	switch w.format {
	case FormatJSON:
		enc := json.NewEncoder(w.out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(data); err != nil {
			return errors.Wrap(errors.ErrCodeInternal, "failed to encode json", err)
		}
		return nil
	case FormatTable:
		if tabler, ok := data.(Tabler); ok {
			return w.writeTable(tabler)
		}
		fallthrough
	default:
		enc := yaml.NewEncoder(w.out)
		enc.SetIndent(2)
		if err := enc.Encode(data); err != nil {
			return errors.Wrap(errors.ErrCodeInternal, "failed to encode yaml", err)
		}
		return enc.Close()
	}
}

func (w *Writer) writeTable(data Tabler) error {
	tw := tabwriter.NewWriter(w.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(data.Headers(), "\t"))
	for _, row := range data.Rows() {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}
