package tui

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aretw0/formwork"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Report output formats.
const (
	FormatAuto     = "auto"
	FormatMarkdown = "markdown"
	FormatPlain    = "plain"
	FormatJSON     = "json"
)

// ResolveFormat turns FormatAuto into markdown on a terminal and plain
// otherwise.
func ResolveFormat(format string, out *os.File) string {
	if format != "" && format != FormatAuto {
		return format
	}
	if out != nil && term.IsTerminal(int(out.Fd())) {
		return FormatMarkdown
	}
	return FormatPlain
}

// ReportMarkdown builds the markdown document of a check report.
func ReportMarkdown(rep *formwork.Report) string {
	var sb strings.Builder
	status := "✅ valid"
	if !rep.Valid {
		status = "❌ invalid"
	}
	fmt.Fprintf(&sb, "# %s: %s\n\n", rep.Schema, status)

	sb.WriteString("| Field | Value | Result |\n|---|---|---|\n")
	for _, name := range rep.Fields {
		result := "ok"
		if msg := rep.Errors[name]; msg != "" {
			result = "**" + escapeCell(msg) + "**"
		}
		fmt.Fprintf(&sb, "| %s | %s | %s |\n", name, escapeCell(fmt.Sprint(rep.Values[name])), result)
	}

	if len(rep.Unknown) > 0 {
		fmt.Fprintf(&sb, "\n> Ignored undeclared fields: %s\n", strings.Join(rep.Unknown, ", "))
	}
	return sb.String()
}

// ReportPlain builds a line-oriented report, one field per line.
func ReportPlain(rep *formwork.Report) string {
	var sb strings.Builder
	status := "valid"
	if !rep.Valid {
		status = "invalid"
	}
	fmt.Fprintf(&sb, "%s: %s\n", rep.Schema, status)
	for _, name := range rep.Fields {
		if msg := rep.Errors[name]; msg != "" {
			fmt.Fprintf(&sb, "  FAIL %s: %s\n", name, msg)
		} else {
			fmt.Fprintf(&sb, "  ok   %s\n", name)
		}
	}
	for _, name := range rep.Unknown {
		fmt.Fprintf(&sb, "  skip %s: not declared\n", name)
	}
	return sb.String()
}

// WriteReport renders rep in format to w.
func WriteReport(w io.Writer, rep *formwork.Report, format string) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	case FormatMarkdown:
		out, err := NewRenderer()(ReportMarkdown(rep))
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)
		return err
	case FormatPlain, "":
		_, err := io.WriteString(w, ReportPlain(rep))
		return err
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

// Status colours a one-line summary for a terminal.
func Status(valid bool, text string) string {
	p := termenv.ColorProfile()
	color := "#22c55e"
	if !valid {
		color = "#ef4444"
	}
	return termenv.String(text).Foreground(p.Color(color)).Bold().String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
