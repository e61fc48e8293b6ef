package common

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// NewTable builds a focused table with the shared styling.
func NewTable(columns []table.Column, rows []table.Row, height int) table.Model {
	if height < 3 {
		height = 3
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(height),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.Bold(true).BorderStyle(lipgloss.NormalBorder()).BorderBottom(true)
	t.SetStyles(s)
	return t
}

// FilterRows keeps the rows where any cell contains query, case-insensitively.
func FilterRows(rows []table.Row, query string) []table.Row {
	if query == "" {
		return rows
	}
	filtered := []table.Row{}
	for _, r := range rows {
		for _, c := range r {
			if ContainsFold(c, query) {
				filtered = append(filtered, r)
				break
			}
		}
	}
	return filtered
}
