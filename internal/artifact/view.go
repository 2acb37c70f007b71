package artifact

import (
	"github.com/charmbracelet/lipgloss"
)

// Summary renders a one-line description of a stored artifact
func Summary(a *Artifact) string {
	digest := a.SHA256
	if len(digest) > 12 {
		digest = digest[:12]
	}

	return lipgloss.JoinHorizontal(lipgloss.Left,
		lipgloss.NewStyle().Width(44).Align(lipgloss.Left).Padding(0, 1).Render(a.Name),
		lipgloss.NewStyle().Width(10).Align(lipgloss.Right).Padding(0, 1).Render(FormatBytes(a.Size)),
		lipgloss.NewStyle().Faint(true).Padding(0, 1).Render(digest),
	)
}
