// Package optimizer is the optimizer panel: pick a project, read the
// suggestions for it.
package optimizer

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"golang.org/x/sync/errgroup"

	"venom/internal/api"
	"venom/internal/client"
	planner "venom/internal/optimizer"
	"venom/internal/ui/common"
	"venom/internal/ui/uiconst"
)

// DefaultStyle is the glamour style used for reports.
const DefaultStyle = "dark"

// OptimizerModel lists projects with their missing-skill count and shows the
// optimizer report for the selected one.
type OptimizerModel struct {
	client  client.OptimizerClient
	style   string
	table   table.Model
	spinner spinner.Model
	report  viewport.Model
	loading bool
	err     error

	projects  []api.Project
	available []string

	// reporting is set while the report for a project is shown.
	reporting bool
	result    api.OptimizerResult

	width  int
	height int
}

// Option configures an OptimizerModel.
type Option func(*OptimizerModel)

// WithStyle sets the glamour style ("dark", "light", "notty", ...).
func WithStyle(style string) Option {
	return func(m *OptimizerModel) { m.style = style }
}

type dataLoadedMsg struct {
	projects []api.Project
	skills   []api.Skill
	err      error
}

type suggestionsMsg struct {
	result api.OptimizerResult
	err    error
}

// NewOptimizerModel creates an OptimizerModel backed by oc.
func NewOptimizerModel(oc client.OptimizerClient, opts ...Option) OptimizerModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	m := OptimizerModel{
		client:  oc,
		style:   DefaultStyle,
		loading: true,
		spinner: s,
		width:   uiconst.DefaultWidth,
		height:  uiconst.DefaultHeight,
	}
	for _, o := range opts {
		o(&m)
	}
	m.report = viewport.New(m.width, m.height-uiconst.TableHeightOffset)
	return m
}

// APIBase returns the API base the panel's client was built with.
func (m OptimizerModel) APIBase() string { return m.client.APIBase() }

// Init starts the async data loading.
func (m OptimizerModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.load())
}

// load fetches projects and skills concurrently.
func (m OptimizerModel) load() tea.Cmd {
	oc := m.client
	return func() tea.Msg {
		var msg dataLoadedMsg
		g, ctx := errgroup.WithContext(context.Background())
		g.Go(func() error {
			var err error
			msg.projects, err = oc.ListProjects(ctx)
			return err
		})
		g.Go(func() error {
			var err error
			msg.skills, err = oc.ListSkills(ctx)
			return err
		})
		msg.err = g.Wait()
		return msg
	}
}

func (m OptimizerModel) suggest(id int64) tea.Cmd {
	oc := m.client
	return func() tea.Msg {
		res, err := oc.Suggest(context.Background(), id)
		return suggestionsMsg{result: res, err: err}
	}
}

// Update handles messages for the model.
func (m OptimizerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case dataLoadedMsg:
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.setData(msg.projects, msg.skills)
		}
		return m, nil
	case suggestionsMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.reporting = true
		m.result = msg.result
		m.report.SetContent(m.render(Report(msg.result)))
		m.report.GotoTop()
		return m, nil
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.report.Width = msg.Width
		m.report.Height = max(msg.Height-uiconst.TableHeightOffset, 3)
		if m.reporting {
			m.report.SetContent(m.render(Report(m.result)))
		}
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

func (m OptimizerModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.loading {
		return m, nil
	}
	switch msg.String() {
	case "r":
		m.err = nil
		m.reporting = false
		m.loading = true
		return m, tea.Batch(m.spinner.Tick, m.load())
	case "esc":
		m.reporting = false
		m.err = nil
		return m, nil
	}
	if m.err != nil {
		return m, nil
	}
	if m.reporting {
		var cmd tea.Cmd
		m.report, cmd = m.report.Update(msg)
		return m, cmd
	}
	if msg.String() == "enter" {
		row := m.table.SelectedRow()
		if row == nil {
			return m, nil
		}
		id, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			return m, nil
		}
		m.loading = true
		return m, tea.Batch(m.spinner.Tick, m.suggest(id))
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View renders the appropriate UI based on state.
func (m OptimizerModel) View() string {
	if m.loading {
		return m.spinner.View() + " Loading optimizer..."
	}
	if m.err != nil {
		return fmt.Sprintf("Failed to load optimizer data: %s\n\nr: retry", m.err)
	}
	if m.reporting {
		return m.report.View() + "\nesc: back  ↑/↓: scroll  r: refresh"
	}
	if len(m.projects) == 0 {
		return "No projects to optimize. Add one in 副业项目.\n\nr: refresh"
	}
	return m.table.View() + "\nenter: suggestions  r: refresh"
}

func (m *OptimizerModel) setData(projects []api.Project, skills []api.Skill) {
	m.projects = projects
	seen := map[string]bool{}
	m.available = m.available[:0]
	for _, s := range skills {
		if !seen[s.Name] {
			seen[s.Name] = true
			m.available = append(m.available, s.Name)
		}
	}
	nameW := m.nameWidth()
	rows := make([]table.Row, 0, len(projects))
	for _, p := range projects {
		rows = append(rows, table.Row{
			strconv.FormatInt(p.ID, 10),
			common.Truncate(p.Name, nameW),
			strconv.Itoa(len(p.RequiredSkills)),
			strconv.Itoa(len(planner.Missing(p, m.available))),
		})
	}
	m.table = common.NewTable(m.columns(), rows, m.height-uiconst.TableHeightOffset)
}

func (m OptimizerModel) nameWidth() int {
	w := m.width - uiconst.ColWidthID - 2*uiconst.ColWidthMissing - 8
	if w < uiconst.ColWidthMinFlexible {
		w = uiconst.ColWidthMinFlexible
	}
	return w
}

func (m OptimizerModel) columns() []table.Column {
	return []table.Column{
		{Title: "ID", Width: uiconst.ColWidthID},
		{Title: "Project", Width: m.nameWidth()},
		{Title: "Skills", Width: uiconst.ColWidthMissing},
		{Title: "Missing", Width: uiconst.ColWidthMissing},
	}
}

func (m OptimizerModel) render(md string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath(m.style),
		glamour.WithWordWrap(max(m.width-4, 20)),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}

// Report formats an optimizer result as markdown.
func Report(res api.OptimizerResult) string {
	var b strings.Builder
	if res.Error != "" {
		fmt.Fprintf(&b, "# 优化建议\n\n**%s**\n", res.Error)
		return b.String()
	}
	if res.Project == nil {
		return "# 优化建议\n\n_无数据_\n"
	}
	p := res.Project
	fmt.Fprintf(&b, "# 优化建议: %s\n\n", p.Name)
	if p.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", p.Description)
	}
	if len(p.RequiredSkills) > 0 {
		fmt.Fprintf(&b, "所需技能: %s\n\n", strings.Join(p.RequiredSkills, ", "))
	}
	if len(res.Suggestions) == 0 {
		b.WriteString("_暂无建议_\n")
		return b.String()
	}
	for _, s := range res.Suggestions {
		switch s.Type {
		case api.SuggestionAddSkill:
			fmt.Fprintf(&b, "- **%s** `%s`: %s", s.Type, s.Skill, s.Reason)
			if s.Similar != "" {
				fmt.Fprintf(&b, " (相似: `%s`)", s.Similar)
			}
			b.WriteString("\n")
		default:
			fmt.Fprintf(&b, "- **%s**: %s\n", s.Type, s.Plan)
		}
	}
	return b.String()
}

var _ tea.Model = (*OptimizerModel)(nil)
