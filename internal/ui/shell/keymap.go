package shell

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the shell-level keybindings. Everything else is forwarded to
// the active panel.
type KeyMap struct {
	Skills    key.Binding
	Projects  key.Binding
	Optimizer key.Binding
	Next      key.Binding
	Prev      key.Binding
	Command   key.Binding
	Help      key.Binding
	Quit      key.Binding
	ForceQuit key.Binding
}

// DefaultKeyMap holds the bindings used by New.
var DefaultKeyMap = KeyMap{
	Skills: key.NewBinding(
		key.WithKeys("1"),
		key.WithHelp("1", Label(ViewSkills)),
	),
	Projects: key.NewBinding(
		key.WithKeys("2"),
		key.WithHelp("2", Label(ViewProjects)),
	),
	Optimizer: key.NewBinding(
		key.WithKeys("3"),
		key.WithHelp("3", Label(ViewOptimizer)),
	),
	Next: key.NewBinding(
		key.WithKeys("tab", "right"),
		key.WithHelp("tab/→", "next view"),
	),
	Prev: key.NewBinding(
		key.WithKeys("shift+tab", "left"),
		key.WithHelp("shift+tab/←", "previous view"),
	),
	Command: key.NewBinding(
		key.WithKeys(":"),
		key.WithHelp(":", "command"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "toggle help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q"),
		key.WithHelp("q", "quit"),
	),
	ForceQuit: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("ctrl+c", "quit"),
	),
}

// ShortHelp returns a slice of key bindings for the help view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Command, k.Help, k.Quit}
}

// FullHelp returns a matrix of key bindings for the help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Skills, k.Projects, k.Optimizer},
		{k.Next, k.Prev, k.Command},
		{k.Help, k.Quit, k.ForceQuit},
	}
}
