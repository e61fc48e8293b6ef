// Package shell is the root model of the TUI: a three-way view switch that
// mounts one panel at a time and hands it the configured API base.
package shell

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"venom/internal/ui/common"
)

// Title is the header shown above the navigation bar.
const Title = "Venom SuperEngine - 中文原型"

// chromeHeight is the number of lines the shell draws around the panel.
const chromeHeight = 5

// Panel is a child view. It receives the API base when it is built and must
// report it back unchanged.
type Panel interface {
	tea.Model
	APIBase() string
}

// InputCapturer is implemented by panels that sometimes own the keyboard
// (forms, filters). While CapturingInput is true the shell forwards every key
// except ctrl+c.
type InputCapturer interface {
	CapturingInput() bool
}

// PanelFactory builds a fresh panel for apiBase.
type PanelFactory func(apiBase string) Panel

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	navStyle      = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("245"))
	navActive     = navStyle.Bold(true).Foreground(lipgloss.Color("#fff")).Background(lipgloss.Color("62"))
	commandPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
)

// Model owns the selected view. Only SelectView changes it.
type Model struct {
	apiBase   string
	factories map[View]PanelFactory
	selected  View
	panel     Panel

	keys       KeyMap
	help       help.Model
	showHelp   bool
	command    textinput.Model
	commanding bool
	status     common.StatusBar

	width  int
	height int
}

// New builds the shell and mounts the skills panel. Every view in Views must
// have a factory.
func New(apiBase string, factories map[View]PanelFactory) (Model, error) {
	for _, v := range Views {
		if factories[v] == nil {
			return Model{}, fmt.Errorf("no panel factory for view %q", v)
		}
	}
	ti := textinput.New()
	ti.Prompt = ":"
	ti.Placeholder = "skills | projects | optimizer | quit"
	m := Model{
		apiBase:   apiBase,
		factories: factories,
		keys:      DefaultKeyMap,
		help:      help.New(),
		command:   ti,
	}
	m.mount(ViewSkills)
	return m, nil
}

// APIBase returns the API base every panel is built with.
func (m Model) APIBase() string { return m.apiBase }

// Selected returns the active view.
func (m Model) Selected() View { return m.selected }

// Panel returns the mounted panel.
func (m Model) Panel() Panel { return m.panel }

// SelectView switches to v. Selecting the active view does nothing; an
// unknown view leaves the state untouched and returns ErrUnknownView.
func (m *Model) SelectView(v View) (tea.Cmd, error) {
	if !v.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownView, v)
	}
	if v == m.selected {
		return nil, nil
	}
	return m.mount(v), nil
}

func (m *Model) mount(v View) tea.Cmd {
	m.selected = v
	m.panel = m.factories[v](m.apiBase)
	cmds := []tea.Cmd{m.panel.Init()}
	if m.width > 0 {
		cmds = append(cmds, m.forward(m.panelSize()))
	}
	return tea.Batch(cmds...)
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.panel.Init()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, m.forward(m.panelSize())
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, m.forward(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.ForceQuit) {
		return m, tea.Quit
	}
	if m.commanding {
		return m.updateCommand(msg)
	}
	if c, ok := m.panel.(InputCapturer); ok && c.CapturingInput() {
		return m, m.forward(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		return m, nil
	case key.Matches(msg, m.keys.Command):
		m.commanding = true
		m.command.SetValue("")
		return m, m.command.Focus()
	case key.Matches(msg, m.keys.Skills):
		return m.selectAndReport(ViewSkills)
	case key.Matches(msg, m.keys.Projects):
		return m.selectAndReport(ViewProjects)
	case key.Matches(msg, m.keys.Optimizer):
		return m.selectAndReport(ViewOptimizer)
	case key.Matches(msg, m.keys.Next):
		return m.selectAndReport(Views[(m.selected.index()+1)%len(Views)])
	case key.Matches(msg, m.keys.Prev):
		return m.selectAndReport(Views[(m.selected.index()+len(Views)-1)%len(Views)])
	}
	return m, m.forward(msg)
}

func (m Model) updateCommand(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.commanding = false
		m.command.Blur()
		return m, nil
	case tea.KeyEnter:
		m.commanding = false
		m.command.Blur()
		input := strings.TrimSpace(m.command.Value())
		if input == "" {
			return m, nil
		}
		if input == "quit" || input == "q" {
			return m, tea.Quit
		}
		v, err := ParseView(input)
		if err != nil {
			m.status.SetError(err.Error())
			return m, nil
		}
		return m.selectAndReport(v)
	}
	var cmd tea.Cmd
	m.command, cmd = m.command.Update(msg)
	return m, cmd
}

func (m Model) selectAndReport(v View) (tea.Model, tea.Cmd) {
	cmd, err := m.SelectView(v)
	if err != nil {
		m.status.SetError(err.Error())
		return m, nil
	}
	m.status.SetMessage("")
	return m, cmd
}

func (m *Model) forward(msg tea.Msg) tea.Cmd {
	next, cmd := m.panel.Update(msg)
	if p, ok := next.(Panel); ok {
		m.panel = p
	}
	return cmd
}

func (m Model) panelSize() tea.WindowSizeMsg {
	h := m.height - chromeHeight
	if h < 0 {
		h = 0
	}
	return tea.WindowSizeMsg{Width: m.width, Height: h}
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(Title))
	b.WriteString("\n")
	b.WriteString(m.navView())
	b.WriteString("\n\n")
	b.WriteString(m.panel.View())
	b.WriteString("\n")
	switch {
	case m.commanding:
		b.WriteString(commandPrompt.Render(m.command.View()))
	case m.status.Message() != "":
		b.WriteString(m.status.View())
	default:
		if m.showHelp {
			b.WriteString(m.help.FullHelpView(m.keys.FullHelp()))
		} else {
			b.WriteString(m.help.ShortHelpView(m.keys.ShortHelp()))
		}
	}
	return b.String()
}

func (m Model) navView() string {
	items := make([]string, len(Views))
	for i, v := range Views {
		label := fmt.Sprintf("%d %s", i+1, Label(v))
		if v == m.selected {
			items[i] = navActive.Render(label)
		} else {
			items[i] = navStyle.Render(label)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, items...)
}

var _ tea.Model = Model{}
