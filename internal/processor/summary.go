package processor

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"codeberg.org/snonux/kumajala/internal/resolver"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	badStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle   = lipgloss.NewStyle().Faint(true)
)

type summaryRow struct {
	label string
	value string
}

func row(label, format string, args ...interface{}) summaryRow {
	return summaryRow{label: label, value: fmt.Sprintf(format, args...)}
}

// renderSummary draws a titled box of aligned label/value rows.
func renderSummary(title string, rows []summaryRow) string {
	width := 0
	for _, r := range rows {
		if w := lipgloss.Width(r.label); w > width {
			width = w
		}
	}

	lines := []string{titleStyle.Render(title), ""}
	for _, r := range rows {
		lines = append(lines, labelStyle.Width(width+2).Render(r.label+":")+r.value)
	}
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// describeAttempts renders the tiers tried, e.g.
// "dictionary unavailable, neural low-confidence 0.42, generative hit".
func describeAttempts(attempts []resolver.Attempt) string {
	parts := make([]string, 0, len(attempts))
	for _, a := range attempts {
		s := fmt.Sprintf("%s %s", a.Source, a.Outcome)
		if a.Source == resolver.SourceNeural && a.Outcome != resolver.Unavailable {
			s += fmt.Sprintf(" %.2f", a.Score)
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, ", ")
}

func mark(ok bool) string {
	if ok {
		return okStyle.Render("✓")
	}
	return badStyle.Render("✗")
}
