package output

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// headerRow is the row index StyleFunc receives for the header
const headerRow = 0

// Table renders rows under upper-case headers without borders
func Table(headers []string, rows [][]string) string {
	if len(headers) == 0 {
		return ""
	}

	headerStyle := lipgloss.NewStyle().Bold(true).PaddingRight(4)
	cellStyle := lipgloss.NewStyle().PaddingRight(4)

	t := table.New().
		Border(lipgloss.HiddenBorder()).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderColumn(false).
		BorderHeader(false).
		Headers(upper(headers)...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == headerRow {
				return headerStyle
			}
			return cellStyle
		})
	return t.Render()
}

func upper(headers []string) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		out[i] = strings.ToUpper(h)
	}
	return out
}
