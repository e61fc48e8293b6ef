package common

import (
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
)

func typeString(m FormModel, s string) FormModel {
	for _, r := range s {
		updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		m = updated.(FormModel)
	}
	return m
}

func press(m FormModel, k tea.KeyType) FormModel {
	updated, _ := m.Update(tea.KeyMsg{Type: k})
	return updated.(FormModel)
}

func TestFormSubmit(t *testing.T) {
	m := NewForm("Add skill", []string{"Name", "Version"})
	m = typeString(m, "writer")
	m = press(m, tea.KeyEnter)
	if m.Submitted() {
		t.Fatalf("enter on first field should move focus, not submit")
	}
	m = typeString(m, " 2.0 ")
	m = press(m, tea.KeyEnter)
	if !m.Submitted() {
		t.Fatalf("enter on last field should submit")
	}
	vals := m.Values()
	if vals[0] != "writer" || vals[1] != "2.0" {
		t.Fatalf("unexpected values %q", vals)
	}
}

func TestFormQIsText(t *testing.T) {
	m := NewForm("", []string{"Name"})
	m = typeString(m, "quiz")
	if got := m.Values()[0]; got != "quiz" {
		t.Fatalf("expected q to be typed, got %q", got)
	}
}

func TestFormCancel(t *testing.T) {
	m := NewForm("", []string{"Name"})
	m = press(m, tea.KeyEsc)
	if !m.Cancelled() {
		t.Fatalf("esc should cancel")
	}
}

func TestFormView(t *testing.T) {
	m := NewForm("Add project", []string{"Name", "Description"})
	out := m.View()
	if !strings.Contains(out, "Name:") || !strings.Contains(out, "Description:") || !strings.Contains(out, "Add project") {
		t.Fatalf("expected form fields in output, got %s", out)
	}
}

func TestDetailKeepsOrder(t *testing.T) {
	out := NewDetail("Project", []Field{{"名称", "blog"}, {"ID", "7"}}).View()
	if strings.Index(out, "名称") > strings.Index(out, "ID") {
		t.Fatalf("fields out of order: %s", out)
	}
	if !strings.Contains(out, "ID  : 7") {
		t.Fatalf("expected label padded to CJK width, got %q", out)
	}
}

func TestTruncateCJK(t *testing.T) {
	if got := Truncate("技能管理面板", 7); DisplayWidth(got) > 7 {
		t.Fatalf("truncated string too wide: %q (%d)", got, DisplayWidth(got))
	}
	if got := Truncate("abc", 10); got != "abc" {
		t.Fatalf("short strings must be untouched, got %q", got)
	}
	if Truncate("abc", 0) != "" {
		t.Fatalf("zero width should be empty")
	}
}

func TestSplitList(t *testing.T) {
	got := SplitList("writer, seo，, scraper ")
	want := []string{"writer", "seo", "scraper"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("got %q want %q", got, want)
	}
	if len(SplitList("  ")) != 0 {
		t.Fatalf("blank input should give empty list")
	}
}

func TestFilterRows(t *testing.T) {
	rows := []table.Row{{"1", "Writer"}, {"2", "seo"}}
	if got := FilterRows(rows, "WRI"); len(got) != 1 || got[0][0] != "1" {
		t.Fatalf("unexpected filter result %v", got)
	}
	if got := FilterRows(rows, ""); len(got) != 2 {
		t.Fatalf("empty query keeps all rows")
	}
}

func TestStatusBar(t *testing.T) {
	var s StatusBar
	if s.Message() != "" || s.IsError() {
		t.Fatalf("zero value should be empty")
	}
	s.SetError("boom")
	if !s.IsError() || s.Message() != "boom" {
		t.Fatalf("expected error state")
	}
	s.SetMessage("ok")
	if s.IsError() || !strings.Contains(s.View(), "ok") {
		t.Fatalf("expected plain message")
	}
}
