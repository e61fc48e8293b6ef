// Package projects is the side-project list panel.
package projects

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"venom/internal/api"
	"venom/internal/client"
	"venom/internal/ui/common"
	"venom/internal/ui/uiconst"
)

// ProjectsModel lists side projects with their required skills.
type ProjectsModel struct {
	client    client.ProjectClient
	table     table.Model
	spinner   spinner.Model
	filter    textinput.Model
	filtering bool
	form      *common.FormModel
	detail    *common.DetailModel
	loading   bool
	err       error
	allRows   []table.Row
	byID      map[string]api.Project
	status    string
	width     int
	height    int
}

type projectsLoadedMsg struct {
	projects []api.Project
	err      error
}

type projectSavedMsg struct {
	ref api.ProjectRef
	err error
}

// NewProjectsModel creates a ProjectsModel backed by pc.
func NewProjectsModel(pc client.ProjectClient) ProjectsModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	ti := textinput.New()
	ti.Placeholder = "filter..."
	return ProjectsModel{
		client:  pc,
		loading: true,
		spinner: s,
		filter:  ti,
		byID:    map[string]api.Project{},
		width:   uiconst.DefaultWidth,
		height:  uiconst.DefaultHeight,
	}
}

// APIBase returns the API base the panel's client was built with.
func (m ProjectsModel) APIBase() string { return m.client.APIBase() }

// CapturingInput reports whether keys are going to a text field.
func (m ProjectsModel) CapturingInput() bool { return m.filtering || m.form != nil }

// Init starts the async data loading.
func (m ProjectsModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.load())
}

func (m ProjectsModel) load() tea.Cmd {
	pc := m.client
	return func() tea.Msg {
		projects, err := pc.ListProjects(context.Background())
		return projectsLoadedMsg{projects: projects, err: err}
	}
}

// Update handles messages for the model.
func (m ProjectsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case projectsLoadedMsg:
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.setProjects(msg.projects)
		}
		return m, nil
	case projectSavedMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Failed: %s", msg.err)
			return m, nil
		}
		m.status = fmt.Sprintf("Added project #%d %s", msg.ref.ID, msg.ref.Name)
		m.loading = true
		return m, tea.Batch(m.spinner.Tick, m.load())
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.table.Columns() != nil {
			m.table.SetHeight(m.height - uiconst.TableHeightOffset)
			m.table.SetColumns(m.columns())
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

func (m ProjectsModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.form != nil {
		return m.updateForm(msg)
	}
	if m.detail != nil {
		if msg.String() == "esc" || msg.String() == "enter" {
			m.detail = nil
		}
		return m, nil
	}
	if m.filtering {
		switch msg.String() {
		case "esc":
			m.filtering = false
			m.filter.Blur()
			m.filter.SetValue("")
			m.table.SetRows(m.allRows)
			return m, nil
		case "enter":
			m.filtering = false
			m.filter.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(msg)
		m.table.SetRows(common.FilterRows(m.allRows, m.filter.Value()))
		return m, cmd
	}
	if m.loading {
		return m, nil
	}

	switch msg.String() {
	case "r":
		m.err = nil
		m.status = ""
		m.loading = true
		return m, tea.Batch(m.spinner.Tick, m.load())
	case "a":
		f := common.NewForm("Add project", []string{"Name", "Description", "Required skills"})
		m.form = &f
		return m, f.Init()
	}
	if m.err != nil {
		return m, nil
	}
	switch msg.String() {
	case "/":
		if len(m.allRows) == 0 {
			return m, nil
		}
		m.filtering = true
		return m, m.filter.Focus()
	case "enter":
		row := m.table.SelectedRow()
		if row == nil {
			return m, nil
		}
		if p, ok := m.byID[row[0]]; ok {
			d := common.NewDetail("Project Details", detailFields(p))
			m.detail = &d
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m ProjectsModel) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	updated, cmd := m.form.Update(msg)
	f := updated.(common.FormModel)
	m.form = &f
	if f.Cancelled() {
		m.form = nil
		return m, nil
	}
	if !f.Submitted() {
		return m, cmd
	}
	m.form = nil
	vals := f.Values()
	if vals[0] == "" {
		m.status = "Failed: name is required"
		return m, nil
	}
	in := api.ProjectIn{Name: vals[0], Description: vals[1], RequiredSkills: common.SplitList(vals[2])}
	pc := m.client
	return m, func() tea.Msg {
		ref, err := pc.AddProject(context.Background(), in)
		return projectSavedMsg{ref: ref, err: err}
	}
}

// View renders the appropriate UI based on state.
func (m ProjectsModel) View() string {
	if m.form != nil {
		return m.form.View()
	}
	if m.detail != nil {
		return m.detail.View() + "\n\nesc: back"
	}
	if m.loading {
		return m.spinner.View() + " Loading projects..."
	}
	if m.err != nil {
		return fmt.Sprintf("Failed to list projects: %s\n\nr: retry  a: add project", m.err)
	}
	if len(m.allRows) == 0 {
		return "No projects yet.\n\na: add project  r: refresh"
	}
	if m.filtering {
		return fmt.Sprintf("Filter: %s\n%s\nenter: apply  esc: clear", m.filter.View(), m.table.View())
	}
	footer := "/: filter  enter: details  r: refresh  a: add"
	if m.status != "" {
		footer = m.status + "\n" + footer
	}
	return m.table.View() + "\n" + footer
}

func (m *ProjectsModel) setProjects(projects []api.Project) {
	m.byID = make(map[string]api.Project, len(projects))
	rows := make([]table.Row, 0, len(projects))
	nameW := m.nameWidth()
	for _, p := range projects {
		id := strconv.FormatInt(p.ID, 10)
		m.byID[id] = p
		rows = append(rows, table.Row{
			id,
			common.Truncate(p.Name, nameW),
			common.Truncate(strings.Join(p.RequiredSkills, ", "), uiconst.ColWidthSkills),
			common.FormatUnix(p.CreatedAt),
		})
	}
	m.allRows = rows
	m.table = common.NewTable(m.columns(), common.FilterRows(rows, m.filter.Value()), m.height-uiconst.TableHeightOffset)
}

func (m ProjectsModel) nameWidth() int {
	w := m.width - uiconst.ColWidthID - uiconst.ColWidthSkills - uiconst.ColWidthCreated - 8
	if w < uiconst.ColWidthMinFlexible {
		w = uiconst.ColWidthMinFlexible
	}
	return w
}

func (m ProjectsModel) columns() []table.Column {
	return []table.Column{
		{Title: "ID", Width: uiconst.ColWidthID},
		{Title: "Name", Width: m.nameWidth()},
		{Title: "Required skills", Width: uiconst.ColWidthSkills},
		{Title: "Created", Width: uiconst.ColWidthCreated},
	}
}

func detailFields(p api.Project) []common.Field {
	skills := strings.Join(p.RequiredSkills, ", ")
	if skills == "" {
		skills = "-"
	}
	return []common.Field{
		{Label: "ID", Value: strconv.FormatInt(p.ID, 10)},
		{Label: "Name", Value: p.Name},
		{Label: "Description", Value: p.Description},
		{Label: "Required skills", Value: skills},
		{Label: "Created", Value: common.FormatUnix(p.CreatedAt)},
	}
}

var _ tea.Model = (*ProjectsModel)(nil)
