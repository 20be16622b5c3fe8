// Package report renders a checkpoint summary for people and machines.
package report

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/firmckpt/internal/checkpoint"
	"github.com/Sumatoshi-tech/firmckpt/pkg/persist"
	"github.com/Sumatoshi-tech/firmckpt/pkg/safeconv"
)

// Formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

const yamlIndent = 2

// ErrUnknownFormat is returned for a format Write does not know.
var ErrUnknownFormat = errors.New("unknown report format")

// Options controls rendering.
type Options struct {
	Format    string
	ShowFirms bool
}

// Write renders s in the requested format. Empty format means text.
func Write(w io.Writer, s *checkpoint.Summary, opts Options) error {
	switch opts.Format {
	case "", FormatText:
		return WriteText(w, s, opts.ShowFirms)
	case FormatJSON:
		return WriteJSON(w, s)
	case FormatYAML:
		return WriteYAML(w, s)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, opts.Format)
	}
}

// textWriter remembers the first write error so the report body reads
// top to bottom.
type textWriter struct {
	w   io.Writer
	err error
}

func (tw *textWriter) printf(c *color.Color, format string, args ...any) {
	if tw.err != nil {
		return
	}

	if c == nil {
		_, tw.err = fmt.Fprintf(tw.w, format, args...)

		return
	}

	_, tw.err = c.Fprintf(tw.w, format, args...)
}

// WriteText prints the total, any skipped files, and one row per stage.
func WriteText(w io.Writer, s *checkpoint.Summary, showFirms bool) error {
	bold := color.New(color.Bold)
	warn := color.New(color.FgYellow)
	tw := &textWriter{w: w}

	tw.printf(bold, "Total checkpoints: %d\n", s.Total)

	if s.Corrupt > 0 {
		tw.printf(warn, "Skipped %d corrupt checkpoint(s):\n", s.Corrupt)

		for _, cf := range s.CorruptFiles {
			tw.printf(warn, "  - %s: %s\n", cf.Path, cf.Error)
		}
	}

	if s.Total > 0 {
		tw.printf(nil, "Read %s from %s\n\n", humanize.Bytes(safeconv.ClampInt64ToUint64(s.Bytes)), s.Dir)
		tw.printf(nil, "%s\n", stageTable(s, showFirms))
	}

	if tw.err != nil {
		return fmt.Errorf("write report: %w", tw.err)
	}

	return nil
}

func stageTable(s *checkpoint.Summary, showFirms bool) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.SeparateColumns = false
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateHeader = false

	header := table.Row{"Stage", "Count"}
	if showFirms {
		header = append(header, "Firms")
	}

	tbl.AppendHeader(header)

	for _, stage := range s.OrderedStages() {
		row := table.Row{stage, strconv.Itoa(s.Counts[stage])}
		if showFirms {
			row = append(row, strings.Join(s.Firms[stage], ", "))
		}

		tbl.AppendRow(row)
	}

	return tbl.Render()
}

// WriteJSON writes s as indented JSON.
func WriteJSON(w io.Writer, s *checkpoint.Summary) error {
	err := persist.NewJSONCodec().Encode(w, s)
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	return nil
}

// WriteYAML writes s as YAML.
func WriteYAML(w io.Writer, s *checkpoint.Summary) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(yamlIndent)

	err := enc.Encode(s)
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	err = enc.Close()
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	return nil
}
