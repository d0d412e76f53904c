package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/apilens/apilens/internal/endpoint"
)

// Style definitions shared by the output commands.
var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7571F9"})
	labelStyle = lipgloss.NewStyle().
			Faint(true).
			Width(14)
	dimStyle = lipgloss.NewStyle().Faint(true)

	validStyle      = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#1A7F37", Dark: "#3FB950"})
	invalidStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#CF222E", Dark: "#F85149"})
	unresolvedStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#9A6700", Dark: "#D29922"})
	mismatchStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#BC4C00", Dark: "#DB6D28"})
)

// statusStyle picks the render style for an entry status.
func statusStyle(s endpoint.Status) lipgloss.Style {
	switch s {
	case endpoint.StatusValid:
		return validStyle
	case endpoint.StatusInvalid:
		return invalidStyle
	case endpoint.StatusUnresolved:
		return unresolvedStyle
	case endpoint.StatusParamMismatch:
		return mismatchStyle
	default:
		return dimStyle
	}
}

// formatEntryLine renders one list row: path, method, status.
func formatEntryLine(e endpoint.Entry) string {
	return fmt.Sprintf("%s [%s]  %s",
		e.Endpoint, e.HTTPMethod, statusStyle(e.Status).Render(string(e.Status)))
}

func printSection(out io.Writer, title string) {
	fmt.Fprintf(out, "  %s\n", headerStyle.Render(title))
}

func printKV(out io.Writer, label, value string) {
	fmt.Fprintf(out, "    %s%s\n", labelStyle.Render(label+":"), value)
}
