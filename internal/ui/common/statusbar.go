package common

import "github.com/charmbracelet/lipgloss"

// StatusBar is a one-line message area. Error messages are shown in red.
// The zero value is an empty bar.
type StatusBar struct {
	message string
	isError bool
}

// SetMessage updates the status bar text.
func (s *StatusBar) SetMessage(msg string) {
	s.message = msg
	s.isError = false
}

// SetError shows msg as an error.
func (s *StatusBar) SetError(msg string) {
	s.message = msg
	s.isError = true
}

// Message returns the current text.
func (s StatusBar) Message() string { return s.message }

// IsError reports whether the current message is an error.
func (s StatusBar) IsError() bool { return s.isError }

// View renders the status bar.
func (s StatusBar) View() string {
	style := lipgloss.NewStyle().
		Background(lipgloss.Color("#333")).
		Foreground(lipgloss.Color("#fff")).
		Padding(0, 1)
	if s.isError {
		style = style.Foreground(lipgloss.Color("#ff5f5f"))
	}
	return style.Render(s.message)
}
