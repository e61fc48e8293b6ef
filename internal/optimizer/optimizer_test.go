package optimizer

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"venom/internal/api"
)

func TestSuggestMissingSkills(t *testing.T) {
	p := api.Project{ID: 1, Name: "blog", RequiredSkills: []string{"writer", "seo", "scrapper"}}
	got := Suggest(p, []string{"writer", "scraper"})
	want := []api.Suggestion{
		{Type: api.SuggestionAddSkill, Skill: "seo", Reason: "项目需要"},
		{Type: api.SuggestionAddSkill, Skill: "scrapper", Reason: "项目需要", Similar: "scraper"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Suggest mismatch (-want +got):\n%s", diff)
	}
}

func TestSuggestPipelineWhenComplete(t *testing.T) {
	p := api.Project{ID: 2, RequiredSkills: []string{"writer", "seo"}}
	got := Suggest(p, []string{"seo", "writer", "other"})
	want := []api.Suggestion{{Type: api.SuggestionCombine, Plan: "使用本地技能形成流水线: writer, seo"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Suggest mismatch (-want +got):\n%s", diff)
	}
}

func TestSuggestNoRequiredSkills(t *testing.T) {
	got := Suggest(api.Project{ID: 3}, nil)
	if len(got) != 1 || got[0].Type != api.SuggestionCombine {
		t.Fatalf("expected a single pipeline suggestion, got %+v", got)
	}
	if got[0].Plan != "使用本地技能形成流水线: " {
		t.Fatalf("unexpected plan %q", got[0].Plan)
	}
}

func TestMissingKeepsOrder(t *testing.T) {
	p := api.Project{RequiredSkills: []string{"c", "a", "b"}}
	got := Missing(p, []string{"a"})
	if diff := cmp.Diff([]string{"c", "b"}, got); diff != "" {
		t.Fatalf("Missing mismatch (-want +got):\n%s", diff)
	}
}
