package main

import (
	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
)

const maxCellWidth = 48

type tableStyle struct {
	header  lipgloss.Style
	oddRow  lipgloss.Style
	evenRow lipgloss.Style
	border  lipgloss.Style
}

func newTableStyle() tableStyle {
	purple := lipgloss.Color("99")
	gray := lipgloss.Color("245")
	lightGray := lipgloss.Color("241")

	return tableStyle{
		header: lipgloss.NewStyle().
			Foreground(purple).
			Bold(true).
			Align(lipgloss.Center).
			Padding(0, 1),
		oddRow: lipgloss.NewStyle().
			Foreground(gray).
			Padding(0, 1),
		evenRow: lipgloss.NewStyle().
			Foreground(lightGray).
			Padding(0, 1),
		border: lipgloss.NewStyle().
			Foreground(purple),
	}
}

// renderTable draws rows under headers with alternating row colors. Long
// cells are cut to keep the table inside a normal terminal.
func renderTable(headers []string, rows [][]string) string {
	style := newTableStyle()

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(style.border).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return style.header
			case row%2 == 0:
				return style.evenRow
			default:
				return style.oddRow
			}
		}).
		Headers(headers...)

	for _, r := range rows {
		cells := make([]string, len(r))
		for i, c := range r {
			cells[i] = truncateString(c, maxCellWidth)
		}
		t.Row(cells...)
	}

	return t.String()
}

func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
