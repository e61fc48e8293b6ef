package shell

import (
	"errors"
	"fmt"
	"strings"
)

// View identifies one of the panels the shell can display.
type View string

const (
	ViewSkills    View = "skills"
	ViewProjects  View = "projects"
	ViewOptimizer View = "optimizer"
)

// Views lists the views in navigation order.
var Views = []View{ViewSkills, ViewProjects, ViewOptimizer}

// ErrUnknownView is returned when a view outside Views is selected.
var ErrUnknownView = errors.New("unknown view")

var labels = map[View]string{
	ViewSkills:    "技能管理",
	ViewProjects:  "副业项目",
	ViewOptimizer: "优化器",
}

var aliases = map[string]View{
	"skills":    ViewSkills,
	"skill":     ViewSkills,
	"projects":  ViewProjects,
	"proj":      ViewProjects,
	"optimizer": ViewOptimizer,
	"opt":       ViewOptimizer,
}

// Valid reports whether v is one of Views.
func (v View) Valid() bool {
	_, ok := labels[v]
	return ok
}

// Label returns the navigation label for v, or the raw id if v is unknown.
func Label(v View) string {
	if l, ok := labels[v]; ok {
		return l
	}
	return string(v)
}

// ParseView resolves a view id, alias or navigation label.
func ParseView(s string) (View, error) {
	s = strings.TrimSpace(s)
	if v, ok := aliases[strings.ToLower(s)]; ok {
		return v, nil
	}
	for v, l := range labels {
		if l == s {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownView, s)
}

func (v View) index() int {
	for i, x := range Views {
		if x == v {
			return i
		}
	}
	return -1
}
