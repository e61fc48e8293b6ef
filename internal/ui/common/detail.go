package common

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Field is one labelled value of a detail view.
type Field struct {
	Label string
	Value string
}

// DetailModel renders a title and fields in the order given.
type DetailModel struct {
	title  string
	fields []Field
}

// NewDetail creates a detail view with a title and ordered fields.
func NewDetail(title string, fields []Field) DetailModel {
	return DetailModel{title: title, fields: fields}
}

// View renders the detail view with labels padded to a common display width.
func (m DetailModel) View() string {
	width := 0
	for _, f := range m.fields {
		if w := DisplayWidth(f.Label); w > width {
			width = w
		}
	}
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Render(m.title) + "\n")
	for _, f := range m.fields {
		b.WriteString(fmt.Sprintf("%s: %s\n", PadRight(f.Label, width), f.Value))
	}
	return b.String()
}
