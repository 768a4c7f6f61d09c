package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"mmunblock/internal/preflight"
	"mmunblock/internal/unblock"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
)

const statusLabelWidth = 24

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func paint(s, color string, colorize bool) string {
	if !colorize || color == "" {
		return s
	}
	return color + s + ansiReset
}

func renderPreflightLine(r preflight.Result, colorize bool) string {
	status, color := "OK", ansiGreen
	if !r.Passed {
		status, color = "FAIL", ansiRed
	}
	line := fmt.Sprintf("  %-*s [%s] %s", statusLabelWidth, r.Name+":", status, r.Detail)
	return paint(line, color, colorize)
}

func outcomeColor(outcome string) string {
	switch outcome {
	case "unblocked", "unblocked via fallback":
		return ansiGreen
	case "would unblock":
		return ansiYellow
	case "failed", "skipped", "fallback exhausted":
		return ansiRed
	default:
		return ""
	}
}

func writeReport(w io.Writer, report *unblock.Report, diagnosticsDir string) {
	colorize := shouldColorize(w)
	rows := report.Rows()
	if len(rows) > 0 {
		cells := make([][]string, 0, len(rows))
		for _, row := range rows {
			cells = append(cells, []string{
				row.Key,
				row.Address,
				paint(row.Outcome, outcomeColor(row.Outcome), colorize),
				row.Detail,
			})
		}
		fmt.Fprintln(w, renderTable([]column{
			{title: "Key"},
			{title: "Address"},
			{title: "Outcome"},
			{title: "Detail", maxWidth: 60},
		}, cells))
	} else if len(report.Keys) > 0 {
		fmt.Fprintf(w, "No blocked members under keys %s.\n", strings.Join(report.Keys, ","))
	}
	if report.Interrupted {
		fmt.Fprintln(w, paint("Run interrupted before every key was processed.", ansiYellow, colorize))
	}
	if diagnosticsDir != "" {
		fmt.Fprintf(w, "Diagnostics: %s\n", diagnosticsDir)
	}
	fmt.Fprintln(w, report.Summary())
}
