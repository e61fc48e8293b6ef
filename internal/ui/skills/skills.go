// Package skills is the skill list panel.
package skills

import (
	"context"
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"venom/internal/api"
	"venom/internal/client"
	"venom/internal/ui/common"
	"venom/internal/ui/uiconst"
)

type mode int

const (
	modeList mode = iota
	modeFilter
	modeAdd
	modeUpgrade
)

// defaultVersion pre-fills the add form.
const defaultVersion = "1.0.0"

// SkillsModel lists registered skill versions and lets the user add,
// upgrade and simulate them.
type SkillsModel struct {
	client  client.SkillClient
	table   table.Model
	spinner spinner.Model
	filter  textinput.Model
	form    common.FormModel
	mode    mode
	loading bool
	err     error
	allRows []table.Row
	byID    map[string]api.Skill
	status  string

	// upgrading is the skill the upgrade form applies to.
	upgrading string

	width  int
	height int
}

type skillsLoadedMsg struct {
	skills []api.Skill
	err    error
}

type skillSavedMsg struct {
	status string
	err    error
}

// NewSkillsModel creates a SkillsModel backed by sc.
func NewSkillsModel(sc client.SkillClient) SkillsModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	ti := textinput.New()
	ti.Placeholder = "filter..."
	return SkillsModel{
		client:  sc,
		loading: true,
		spinner: s,
		filter:  ti,
		byID:    map[string]api.Skill{},
		width:   uiconst.DefaultWidth,
		height:  uiconst.DefaultHeight,
	}
}

// APIBase returns the API base the panel's client was built with.
func (m SkillsModel) APIBase() string { return m.client.APIBase() }

// CapturingInput reports whether keys are going to a text field.
func (m SkillsModel) CapturingInput() bool { return m.mode != modeList }

// Init starts the async data loading.
func (m SkillsModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.load())
}

func (m SkillsModel) load() tea.Cmd {
	sc := m.client
	return func() tea.Msg {
		skills, err := sc.ListSkills(context.Background())
		return skillsLoadedMsg{skills: skills, err: err}
	}
}

// Update handles messages for the model.
func (m SkillsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case skillsLoadedMsg:
		m.loading = false
		m.err = msg.err
		if msg.err != nil {
			return m, nil
		}
		m.setSkills(msg.skills)
		return m, nil
	case skillSavedMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Failed: %s", msg.err)
			return m, nil
		}
		m.status = msg.status
		m.loading = true
		return m, tea.Batch(m.spinner.Tick, m.load())
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.table.Columns() != nil {
			m.table.SetHeight(m.height - uiconst.TableHeightOffset)
			m.table.SetColumns(m.columns())
			m.table.SetRows(m.visibleRows())
		}
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	default:
		if m.loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

func (m SkillsModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case modeAdd, modeUpgrade:
		return m.updateForm(msg)
	case modeFilter:
		switch msg.String() {
		case "esc":
			m.mode = modeList
			m.filter.Blur()
			m.filter.SetValue("")
			m.table.SetRows(m.allRows)
			return m, nil
		case "enter":
			m.mode = modeList
			m.filter.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(msg)
		m.table.SetRows(m.visibleRows())
		return m, cmd
	}

	if m.loading {
		return m, nil
	}
	if m.err != nil {
		if msg.String() == "r" {
			m.err = nil
			m.loading = true
			return m, tea.Batch(m.spinner.Tick, m.load())
		}
		return m, nil
	}

	switch msg.String() {
	case "/":
		if len(m.allRows) == 0 {
			return m, nil
		}
		m.mode = modeFilter
		return m, m.filter.Focus()
	case "r":
		m.loading = true
		m.status = ""
		return m, tea.Batch(m.spinner.Tick, m.load())
	case "a":
		m.mode = modeAdd
		m.form = common.NewForm("Add skill", []string{"Name", "Version"})
		m.form.SetValue(1, defaultVersion)
		return m, m.form.Init()
	case "u":
		sk, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.mode = modeUpgrade
		m.upgrading = sk.Name
		m.form = common.NewForm("Upgrade "+sk.Name, []string{"New version", "Notes"})
		return m, m.form.Init()
	case "s":
		sk, ok := m.selected()
		if !ok {
			return m, nil
		}
		sc := m.client
		return m, func() tea.Msg {
			out, err := sc.SimulateTask(context.Background(), sk.Name)
			if err != nil {
				return skillSavedMsg{err: err}
			}
			result := "failed"
			if out.OK {
				result = "ok"
			}
			return skillSavedMsg{status: fmt.Sprintf("Simulated %s: %s", out.Skill, result)}
		}
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m SkillsModel) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	updated, cmd := m.form.Update(msg)
	m.form = updated.(common.FormModel)
	if m.form.Cancelled() {
		m.mode = modeList
		return m, nil
	}
	if !m.form.Submitted() {
		return m, cmd
	}

	vals := m.form.Values()
	sc := m.client
	prev := m.mode
	m.mode = modeList
	if prev == modeAdd {
		if vals[0] == "" {
			m.status = "Failed: name is required"
			return m, nil
		}
		in := api.SkillIn{Name: vals[0], Version: vals[1]}
		return m, func() tea.Msg {
			ref, err := sc.AddSkill(context.Background(), in)
			if err != nil {
				return skillSavedMsg{err: err}
			}
			return skillSavedMsg{status: fmt.Sprintf("Added %s %s", ref.Name, ref.Version)}
		}
	}
	in := api.UpgradeIn{Name: m.upgrading, NewVersion: vals[0], Notes: vals[1]}
	return m, func() tea.Msg {
		out, err := sc.UpgradeSkill(context.Background(), in)
		if err != nil {
			return skillSavedMsg{err: err}
		}
		return skillSavedMsg{status: fmt.Sprintf("Upgraded %s to %s", out.Skill, out.NewVersion)}
	}
}

// View renders the appropriate UI based on state.
func (m SkillsModel) View() string {
	if m.mode == modeAdd || m.mode == modeUpgrade {
		return m.form.View()
	}
	if m.loading {
		return m.spinner.View() + " Loading skills..."
	}
	if m.err != nil {
		return fmt.Sprintf("Failed to list skills: %s\n\nr: retry", m.err)
	}
	if len(m.allRows) == 0 {
		return "No skills registered yet.\n\na: add skill  r: refresh"
	}
	if m.mode == modeFilter {
		return fmt.Sprintf("Filter: %s\n%s\nenter: apply  esc: clear", m.filter.View(), m.table.View())
	}
	footer := "/: filter  r: refresh  a: add  u: upgrade  s: simulate"
	if m.status != "" {
		footer = m.status + "\n" + footer
	}
	return m.table.View() + "\n" + footer
}

func (m *SkillsModel) setSkills(skills []api.Skill) {
	m.byID = make(map[string]api.Skill, len(skills))
	rows := make([]table.Row, 0, len(skills))
	nameW := m.nameWidth()
	for _, s := range skills {
		id := strconv.FormatInt(s.ID, 10)
		m.byID[id] = s
		rows = append(rows, table.Row{id, common.Truncate(s.Name, nameW), s.Version, common.FormatUnix(s.CreatedAt)})
	}
	m.allRows = rows
	m.table = common.NewTable(m.columns(), m.visibleRows(), m.height-uiconst.TableHeightOffset)
}

func (m SkillsModel) visibleRows() []table.Row {
	return common.FilterRows(m.allRows, m.filter.Value())
}

func (m SkillsModel) selected() (api.Skill, bool) {
	row := m.table.SelectedRow()
	if row == nil {
		return api.Skill{}, false
	}
	sk, ok := m.byID[row[0]]
	return sk, ok
}

func (m SkillsModel) nameWidth() int {
	w := m.width - uiconst.ColWidthID - uiconst.ColWidthVersion - uiconst.ColWidthCreated - 8
	if w < uiconst.ColWidthMinFlexible {
		w = uiconst.ColWidthMinFlexible
	}
	return w
}

// columns adjusts column widths based on the current width.
func (m SkillsModel) columns() []table.Column {
	return []table.Column{
		{Title: "ID", Width: uiconst.ColWidthID},
		{Title: "Name", Width: m.nameWidth()},
		{Title: "Version", Width: uiconst.ColWidthVersion},
		{Title: "Created", Width: uiconst.ColWidthCreated},
	}
}

var _ tea.Model = (*SkillsModel)(nil)
