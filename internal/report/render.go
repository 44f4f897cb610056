package report

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/fatih/color"

	"github.com/example/stackscan/internal/model"
)

// Renderer writes a report in one output format.
type Renderer func(w io.Writer, rep model.Report) error

var renderers = map[string]Renderer{
	"json":     RenderJSON,
	"markdown": RenderMarkdown,
	"table":    RenderTable,
	"sarif":    RenderSARIF,
}

// FormatNames returns the supported formats in sorted order.
func FormatNames() []string {
	names := make([]string, 0, len(renderers))
	for name := range renderers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Render writes rep to w in the named format.
func Render(w io.Writer, rep model.Report, format string) error {
	r, ok := renderers[strings.ToLower(format)]
	if !ok {
		return fmt.Errorf("unsupported format %q", format)
	}
	return r(w, rep)
}

// RenderJSON writes the report as indented JSON.
func RenderJSON(w io.Writer, rep model.Report) error {
	return writeJSON(w, rep)
}

// RenderMarkdown writes a human-readable summary followed by per-stack evidence.
func RenderMarkdown(w io.Writer, rep model.Report) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# Stack report: %s\n\n", rep.Repo.Root)
	fmt.Fprintf(&b, "- Go modules: %d\n", len(rep.Repo.GoMods))
	if rep.Repo.MaxGoVersion != "" {
		fmt.Fprintf(&b, "- Highest go directive: %s\n", rep.Repo.MaxGoVersion)
	}
	if rep.ScanID != "" {
		fmt.Fprintf(&b, "- Scan ID: `%s`\n", rep.ScanID)
	}
	b.WriteString("\n")

	if len(rep.Stacks) == 0 {
		b.WriteString("No stack components detected.\n\n")
	} else {
		b.WriteString("| Category | Name | Confidence | Signals |\n")
		b.WriteString("|---|---|---|---|\n")
		for _, f := range rep.Stacks {
			fmt.Fprintf(&b, "| %s | %s | %.2f | %d |\n", f.Category, escapeCell(f.Name), f.Confidence, len(f.Reasons))
		}
		b.WriteString("\n")

		for _, f := range rep.Stacks {
			fmt.Fprintf(&b, "## %s/%s (%.2f)\n\n", f.Category, f.Name, f.Confidence)
			for _, r := range f.Reasons {
				fmt.Fprintf(&b, "- %s\n", r)
			}
			if len(f.Evidence) > 0 {
				b.WriteString("\nEvidence:\n\n")
				for _, e := range f.Evidence {
					fmt.Fprintf(&b, "- `%s:%d` `%s` (%s)\n", e.File, e.LineStart, strings.ReplaceAll(e.Match, "`", "'"), e.Why)
				}
			}
			b.WriteString("\n")
		}
	}

	if len(rep.Notes) > 0 {
		b.WriteString("## Notes\n\n")
		for _, n := range rep.Notes {
			fmt.Fprintf(&b, "- %s\n", n)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

// RenderTable writes an aligned terminal listing. Confidence is colored by
// band; fatih/color disables colors when stdout is not a terminal.
func RenderTable(w io.Writer, rep model.Report) error {
	header := color.New(color.Bold)
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s\n", header.Sprint("Repository:"), rep.Repo.Root)
	fmt.Fprintf(&b, "%s %d\n\n", header.Sprint("Go modules:"), len(rep.Repo.GoMods))

	if len(rep.Stacks) == 0 {
		b.WriteString("No stack components detected.\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	fmt.Fprintf(&b, "%-6s %-18s %-36s %s\n", "CONF", "CATEGORY", "NAME", "FIRST EVIDENCE")
	for _, f := range rep.Stacks {
		first := "-"
		if len(f.Evidence) > 0 {
			first = fmt.Sprintf("%s:%d", f.Evidence[0].File, f.Evidence[0].LineStart)
		}
		conf := confidenceColor(f.Confidence).Sprintf("%-6.2f", f.Confidence)
		fmt.Fprintf(&b, "%s %-18s %-36s %s\n", conf, f.Category, f.Name, first)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func confidenceColor(c float64) *color.Color {
	switch {
	case c >= 0.75:
		return color.New(color.FgGreen)
	case c >= 0.5:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}
