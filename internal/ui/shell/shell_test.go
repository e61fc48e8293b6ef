package shell

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePanel struct {
	view      View
	apiBase   string
	capturing bool
	keys      []string
	size      tea.WindowSizeMsg
}

func (p *fakePanel) Init() tea.Cmd { return nil }

func (p *fakePanel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		p.keys = append(p.keys, msg.String())
	case tea.WindowSizeMsg:
		p.size = msg
	}
	return p, nil
}

func (p *fakePanel) View() string         { return "panel:" + string(p.view) }
func (p *fakePanel) APIBase() string      { return p.apiBase }
func (p *fakePanel) CapturingInput() bool { return p.capturing }

type mountCounter map[View]int

func (c mountCounter) factories() map[View]PanelFactory {
	f := map[View]PanelFactory{}
	for _, v := range Views {
		f[v] = func(apiBase string) Panel {
			c[v]++
			return &fakePanel{view: v, apiBase: apiBase}
		}
	}
	return f
}

func newTestShell(t *testing.T, apiBase string) (Model, mountCounter) {
	t.Helper()
	mounts := mountCounter{}
	m, err := New(apiBase, mounts.factories())
	require.NoError(t, err)
	return m, mounts
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func send(m Model, msg tea.Msg) (Model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func mounted(m Model) View {
	return m.Panel().(*fakePanel).view
}

func TestInitialViewIsSkills(t *testing.T) {
	m, mounts := newTestShell(t, "")
	assert.Equal(t, ViewSkills, m.Selected())
	assert.Equal(t, ViewSkills, mounted(m))
	assert.Equal(t, mountCounter{ViewSkills: 1}, mounts)

	out := m.View()
	assert.Contains(t, out, Title)
	assert.Contains(t, out, "panel:skills")
	assert.NotContains(t, out, "panel:projects")
	assert.NotContains(t, out, "panel:optimizer")
}

func TestNavigationScenario(t *testing.T) {
	m, _ := newTestShell(t, "")
	for _, step := range []struct {
		label string
		want  View
	}{
		{"技能管理", ViewSkills},
		{"副业项目", ViewProjects},
		{"优化器", ViewOptimizer},
		{"技能管理", ViewSkills},
	} {
		v, err := ParseView(step.label)
		require.NoError(t, err)
		_, err = m.SelectView(v)
		require.NoError(t, err)
		assert.Equal(t, step.want, m.Selected(), step.label)
		assert.Equal(t, step.want, mounted(m), step.label)
		assert.Contains(t, m.View(), "panel:"+string(step.want))
	}
}

func TestNumberKeysSelectViews(t *testing.T) {
	m, _ := newTestShell(t, "")
	for key, want := range map[string]View{"2": ViewProjects, "3": ViewOptimizer, "1": ViewSkills} {
		m, _ = send(m, runes(key))
		assert.Equal(t, want, m.Selected(), "key %s", key)
		assert.Equal(t, want, mounted(m))
	}
}

func TestTabCycles(t *testing.T) {
	m, _ := newTestShell(t, "")
	m, _ = send(m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, ViewProjects, m.Selected())
	m, _ = send(m, tea.KeyMsg{Type: tea.KeyShiftTab})
	m, _ = send(m, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, ViewOptimizer, m.Selected())
	m, _ = send(m, tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, ViewSkills, m.Selected())
}

func TestReselectDoesNotRemount(t *testing.T) {
	m, mounts := newTestShell(t, "")
	first := m.Panel()
	for i := 0; i < 3; i++ {
		cmd, err := m.SelectView(ViewSkills)
		require.NoError(t, err)
		assert.Nil(t, cmd)
		m, _ = send(m, runes("1"))
	}
	assert.Same(t, first, m.Panel())
	assert.Equal(t, mountCounter{ViewSkills: 1}, mounts)
}

func TestEachSelectionMountsOnePanel(t *testing.T) {
	m, mounts := newTestShell(t, "")
	_, err := m.SelectView(ViewProjects)
	require.NoError(t, err)
	_, err = m.SelectView(ViewOptimizer)
	require.NoError(t, err)
	assert.Equal(t, mountCounter{ViewSkills: 1, ViewProjects: 1, ViewOptimizer: 1}, mounts)
	assert.Equal(t, ViewOptimizer, mounted(m))
}

func TestAPIBaseForwardedUnchanged(t *testing.T) {
	for _, base := range []string{"", "/api", "http://10.0.0.5:8000"} {
		m, _ := newTestShell(t, base)
		for _, v := range Views {
			_, err := m.SelectView(v)
			require.NoError(t, err)
			assert.Equal(t, base, m.Panel().APIBase(), "view %s", v)
			assert.Equal(t, base, m.APIBase())
		}
	}
}

func TestUnknownViewRejected(t *testing.T) {
	m, mounts := newTestShell(t, "")
	_, err := m.SelectView(ViewProjects)
	require.NoError(t, err)

	cmd, err := m.SelectView(View("settings"))
	assert.True(t, errors.Is(err, ErrUnknownView))
	assert.Nil(t, cmd)
	assert.Equal(t, ViewProjects, m.Selected())
	assert.Equal(t, ViewProjects, mounted(m))
	assert.Equal(t, 1, mounts[ViewProjects])
}

func TestCommandBar(t *testing.T) {
	m, _ := newTestShell(t, "")
	m, _ = send(m, runes(":"))
	for _, r := range "opt" {
		m, _ = send(m, runes(string(r)))
	}
	m, _ = send(m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, ViewOptimizer, m.Selected())

	m, _ = send(m, runes(":"))
	for _, r := range "nope" {
		m, _ = send(m, runes(string(r)))
	}
	m, _ = send(m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, ViewOptimizer, m.Selected())
	assert.True(t, m.status.IsError())
	assert.True(t, strings.Contains(m.View(), "unknown view"))

	m, _ = send(m, runes(":"))
	for _, r := range "quit" {
		m, _ = send(m, runes(string(r)))
	}
	_, cmd := send(m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, isQuit(cmd))
}

func TestQuitUnlessCapturing(t *testing.T) {
	m, _ := newTestShell(t, "")
	_, cmd := send(m, runes("q"))
	assert.True(t, isQuit(cmd))

	p := m.Panel().(*fakePanel)
	p.capturing = true
	m, cmd = send(m, runes("q"))
	assert.False(t, isQuit(cmd))
	m, _ = send(m, runes("2"))
	assert.Equal(t, ViewSkills, m.Selected())
	assert.Equal(t, []string{"q", "2"}, p.keys)

	_, cmd = send(m, tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.True(t, isQuit(cmd))
}

func TestWindowSizeReachesNewPanels(t *testing.T) {
	m, _ := newTestShell(t, "")
	m, _ = send(m, tea.WindowSizeMsg{Width: 120, Height: 40})
	assert.Equal(t, tea.WindowSizeMsg{Width: 120, Height: 40 - chromeHeight}, m.Panel().(*fakePanel).size)

	_, err := m.SelectView(ViewProjects)
	require.NoError(t, err)
	assert.Equal(t, 120, m.Panel().(*fakePanel).size.Width)
}

func TestHelpToggle(t *testing.T) {
	m, _ := newTestShell(t, "")
	assert.False(t, m.showHelp)
	m, _ = send(m, runes("?"))
	assert.True(t, m.showHelp)
	assert.Contains(t, m.View(), "ctrl+c")
}

func TestNewRequiresAllFactories(t *testing.T) {
	_, err := New("", map[View]PanelFactory{
		ViewSkills: func(string) Panel { return &fakePanel{} },
	})
	assert.Error(t, err)
}

func TestParseView(t *testing.T) {
	for in, want := range map[string]View{
		"skills": ViewSkills, "Skill": ViewSkills, " proj ": ViewProjects,
		"OPT": ViewOptimizer, "优化器": ViewOptimizer,
	} {
		got, err := ParseView(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseView("dashboard")
	assert.True(t, errors.Is(err, ErrUnknownView))
}
