package common

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// FormModel is a vertical list of labelled text inputs. enter on the last
// field submits, esc cancels; the owner polls Submitted/Cancelled.
type FormModel struct {
	title      string
	inputs     []textinput.Model
	focusIndex int
	submitted  bool
	cancelled  bool
}

// NewForm creates a form with the given field labels.
func NewForm(title string, fields []string) FormModel {
	inputs := make([]textinput.Model, len(fields))
	for i, f := range fields {
		ti := textinput.New()
		ti.Placeholder = f
		ti.Prompt = f + ": "
		ti.CharLimit = 256
		ti.Width = 40
		if i == 0 {
			ti.Focus()
		}
		inputs[i] = ti
	}
	return FormModel{title: title, inputs: inputs}
}

// SetValue pre-fills field i.
func (m *FormModel) SetValue(i int, v string) {
	if i >= 0 && i < len(m.inputs) {
		m.inputs[i].SetValue(v)
	}
}

// Values returns the trimmed field values in order.
func (m FormModel) Values() []string {
	out := make([]string, len(m.inputs))
	for i := range m.inputs {
		out[i] = strings.TrimSpace(m.inputs[i].Value())
	}
	return out
}

// Submitted reports whether enter was pressed on the last field.
func (m FormModel) Submitted() bool { return m.submitted }

// Cancelled reports whether esc was pressed.
func (m FormModel) Cancelled() bool { return m.cancelled }

// Init implements tea.Model.
func (m FormModel) Init() tea.Cmd { return textinput.Blink }

// Update handles key events and input updates.
func (m FormModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "esc":
			m.cancelled = true
			return m, nil
		case "enter":
			if m.focusIndex < len(m.inputs)-1 {
				m.inputs[m.focusIndex].Blur()
				m.focusIndex++
				return m, m.inputs[m.focusIndex].Focus()
			}
			m.submitted = true
			return m, nil
		case "tab", "shift+tab", "down", "up":
			m.inputs[m.focusIndex].Blur()
			if msg.String() == "tab" || msg.String() == "down" {
				m.focusIndex = (m.focusIndex + 1) % len(m.inputs)
			} else {
				m.focusIndex = (m.focusIndex - 1 + len(m.inputs)) % len(m.inputs)
			}
			return m, m.inputs[m.focusIndex].Focus()
		}
	}

	var cmd tea.Cmd
	m.inputs[m.focusIndex], cmd = m.inputs[m.focusIndex].Update(msg)
	return m, cmd
}

// View renders the form fields.
func (m FormModel) View() string {
	var b strings.Builder
	if m.title != "" {
		b.WriteString(lipgloss.NewStyle().Bold(true).Render(m.title) + "\n\n")
	}
	for i := range m.inputs {
		b.WriteString(m.inputs[i].View())
		b.WriteRune('\n')
	}
	b.WriteString("\nenter: next/submit  tab: switch field  esc: cancel")
	return b.String()
}

var _ tea.Model = (*FormModel)(nil)
