// Package style holds the colours and text styles of xrel's reports
package style

import "github.com/charmbracelet/lipgloss"

// colours (see https://www.ditig.com/publications/256-colors-cheat-sheet)
const (
	Red   = lipgloss.Color("1")
	Green = lipgloss.Color("2")
	Olive = lipgloss.Color("3")
	Blue  = lipgloss.Color("4")
	Grey  = lipgloss.Color("8")
)

const (
	Ellipsis = "…"

	PassMark = "✓"
	FailMark = "✗"
	SkipMark = "•"
	UpMark   = "↑"
)

// Styles are built on the default renderer, so output.ConfigureRenderer must
// run before they are used
func Pass() lipgloss.Style  { return lipgloss.NewStyle().Foreground(Green) }
func Fail() lipgloss.Style  { return lipgloss.NewStyle().Foreground(Red) }
func Skip() lipgloss.Style  { return lipgloss.NewStyle().Foreground(Olive) }
func Faint() lipgloss.Style { return lipgloss.NewStyle().Foreground(Grey) }
func Title() lipgloss.Style { return lipgloss.NewStyle().Bold(true).Foreground(Blue) }

// Truncate shortens s to at most n runes, ending in an ellipsis
func Truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n == 1 {
		return Ellipsis
	}
	return string(r[:n-1]) + Ellipsis
}
