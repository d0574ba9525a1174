package palette

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Preview renders the map as terminal swatches, one row per entry. Used by
// the CLI's -palette mode.
func (m *Map) Preview() string {
	label := lipgloss.NewStyle().Width(9)

	var b strings.Builder
	for _, e := range m.entries {
		src := lipgloss.NewStyle().Background(lipgloss.Color(e.Source.Hex())).Render("      ")
		dst := lipgloss.NewStyle().Background(lipgloss.Color(e.Target.Hex())).Render("      ")
		b.WriteString(src)
		b.WriteString(" ")
		b.WriteString(label.Render(e.Source.Hex()))
		b.WriteString("-> ")
		b.WriteString(dst)
		b.WriteString(" ")
		b.WriteString(e.Target.Hex())
		b.WriteString("\n")
	}
	return b.String()
}
