// Package render writes command output as tables, JSON or YAML, and prints
// merge reports and ownership diffs for terminals.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"gopkg.in/yaml.v3"

	"github.com/lherron/transplant/internal/domain"
	"github.com/lherron/transplant/internal/merge"
)

// Format represents an output format
type Format string

const (
	FormatTable  Format = "table"
	FormatJSON   Format = "json"
	FormatNDJSON Format = "ndjson"
	FormatYAML   Format = "yaml"
)

// Options for rendering
type Options struct {
	Format    Format
	Porcelain bool
	NoColor   bool
}

// Renderer handles output rendering
type Renderer struct {
	writer io.Writer
	opts   Options

	green, red, yellow, cyan *color.Color
}

// NewRenderer creates a new renderer
func NewRenderer(writer io.Writer, opts Options) *Renderer {
	r := &Renderer{
		writer: writer,
		opts:   opts,
		green:  color.New(color.FgGreen),
		red:    color.New(color.FgRed),
		yellow: color.New(color.FgYellow),
		cyan:   color.New(color.FgCyan),
	}
	if opts.NoColor || opts.Porcelain || !isTerminal(writer) {
		for _, c := range []*color.Color{r.green, r.red, r.yellow, r.cyan} {
			c.DisableColor()
		}
	}
	return r
}

// Render writes data in the configured structured format. Table output is
// not handled here; use RenderTable.
func (r *Renderer) Render(data any) error {
	switch r.opts.Format {
	case FormatYAML:
		return r.RenderYAML(data)
	case FormatNDJSON:
		if items, ok := data.([]any); ok {
			return r.RenderNDJSON(items)
		}
		return json.NewEncoder(r.writer).Encode(data)
	default:
		return r.RenderJSON(data)
	}
}

// RenderJSON renders data as JSON
func (r *Renderer) RenderJSON(data any) error {
	encoder := json.NewEncoder(r.writer)
	if !r.opts.Porcelain {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

// RenderNDJSON renders data as newline-delimited JSON
func (r *Renderer) RenderNDJSON(items []any) error {
	encoder := json.NewEncoder(r.writer)
	for _, item := range items {
		if err := encoder.Encode(item); err != nil {
			return err
		}
	}
	return nil
}

// RenderYAML renders data as YAML
func (r *Renderer) RenderYAML(data any) error {
	encoder := yaml.NewEncoder(r.writer)
	defer encoder.Close()
	return encoder.Encode(data)
}

// RenderTable renders rows under headers with padded columns. Porcelain
// output is tab-separated.
func (r *Renderer) RenderTable(headers []string, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	if r.opts.Porcelain {
		for _, row := range append([][]string{headers}, rows...) {
			if _, err := fmt.Fprintln(r.writer, strings.Join(row, "\t")); err != nil {
				return err
			}
		}
		return nil
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	separator := make([]string, len(widths))
	for i, w := range widths {
		separator[i] = strings.Repeat("-", w)
	}

	for _, row := range append([][]string{headers, separator}, rows...) {
		var b strings.Builder
		for i, cell := range row {
			if i >= len(widths) {
				break
			}
			if i > 0 {
				b.WriteString("  ")
			}
			if i == len(row)-1 {
				b.WriteString(cell)
			} else {
				fmt.Fprintf(&b, "%-*s", widths[i], cell)
			}
		}
		if _, err := fmt.Fprintln(r.writer, b.String()); err != nil {
			return err
		}
	}
	return nil
}

// RenderAccounts renders accounts as a table.
func (r *Renderer) RenderAccounts(list []*domain.Account) error {
	headers := []string{"ID", "Slug", "Display Name", "Role", "Active"}
	rows := make([][]string, 0, len(list))
	for _, a := range list {
		name := ""
		if a.DisplayName != nil {
			name = *a.DisplayName
		}
		active := "yes"
		if !a.Active {
			active = "no"
		}
		rows = append(rows, []string{a.ID, a.Slug, name, a.Role, active})
	}
	return r.RenderTable(headers, rows)
}

// RenderDiff prints a unified diff with added lines in green and removed
// lines in red.
func (r *Renderer) RenderDiff(diff string) {
	for _, line := range strings.SplitAfter(diff, "\n") {
		switch {
		case line == "":
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			fmt.Fprint(r.writer, line)
		case strings.HasPrefix(line, "@@"):
			r.cyan.Fprint(r.writer, line)
		case strings.HasPrefix(line, "+"):
			r.green.Fprint(r.writer, line)
		case strings.HasPrefix(line, "-"):
			r.red.Fprint(r.writer, line)
		default:
			fmt.Fprint(r.writer, line)
		}
	}
}

// RenderMergeResult prints a human summary of a merge result.
func (r *Renderer) RenderMergeResult(res *merge.Result) {
	switch res.Outcome {
	case merge.OutcomeRedirect:
		r.red.Fprintf(r.writer, "Merge failed and was rolled back: %v\n", res.Cause)
		fmt.Fprintf(r.writer, "Redirect: %s\n", res.Target)
		return
	case merge.OutcomeDryRun:
		r.yellow.Fprintln(r.writer, "Dry run: nothing was committed")
	}

	rep := res.Report
	if rep == nil {
		return
	}
	verb := "Merged"
	if rep.DryRun {
		verb = "Would merge"
	}
	fmt.Fprintf(r.writer, "%s %s into %s\n", verb, accountLabel(rep.Donor), accountLabel(rep.Receiver))

	for _, op := range rep.Operations {
		desc := domain.OperationDescriptor{Model: op.Model, Accessor: op.Accessor, Strategy: op.Strategy, Field: op.Field}
		count := fmt.Sprintf("%d reassigned", op.Reassigned)
		if op.Reassigned > 0 {
			count = r.green.Sprint(count)
		}
		fmt.Fprintf(r.writer, "  %s  %s\n", desc.String(), count)
	}
	if len(rep.Operations) == 0 {
		fmt.Fprintln(r.writer, "  (no operations configured)")
	}
	if rep.DonorDeactivated {
		r.yellow.Fprintf(r.writer, "Deactivated %s\n", accountLabel(rep.Donor))
	}
	if rep.Diff != "" {
		fmt.Fprintln(r.writer)
		r.RenderDiff(rep.Diff)
	}
	if res.Target != "" {
		fmt.Fprintf(r.writer, "Redirect: %s\n", res.Target)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

func accountLabel(a *domain.Account) string {
	if a == nil {
		return "?"
	}
	return fmt.Sprintf("%s (%s)", a.ID, a.Slug)
}
