package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/thomasrohde/rev/pkg/diagnostics"
)

var (
	colorError   = lipgloss.Color("#EF4444")
	colorHint    = lipgloss.Color("#F59E0B")
	colorMuted   = lipgloss.Color("#6B7280")
	colorSuccess = lipgloss.Color("#10B981")

	errorStyle    = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	locationStyle = lipgloss.NewStyle().Foreground(colorMuted)
	hintStyle     = lipgloss.NewStyle().Foreground(colorHint)
	okStyle       = lipgloss.NewStyle().Foreground(colorSuccess)
	warnStyle     = lipgloss.NewStyle().Foreground(colorHint)
)

// printDiags writes diagnostics as JSON, or styled for a terminal when
// pretty is set.
func printDiags(w io.Writer, diags []diagnostics.Diagnostic, pretty bool) {
	if !pretty {
		fmt.Fprintln(w, diagnostics.FormatDiagnostics(diags, false))
		return
	}
	parts := make([]string, len(diags))
	for i, d := range diags {
		parts[i] = renderDiag(d)
	}
	fmt.Fprintln(w, strings.Join(parts, "\n\n"))
}

// renderDiag is the styled form of diagnostics.FormatDiagnostic.
func renderDiag(d diagnostics.Diagnostic) string {
	var sb strings.Builder
	sb.WriteString(errorStyle.Render(fmt.Sprintf("error[%s]", d.Code)))
	sb.WriteString(": ")
	sb.WriteString(d.Message)
	sb.WriteString("\n  ")
	sb.WriteString(locationStyle.Render("--> " + d.Location()))
	if d.Hint != "" {
		sb.WriteString("\n  ")
		sb.WriteString(hintStyle.Render("hint: " + d.Hint))
	}
	return sb.String()
}
