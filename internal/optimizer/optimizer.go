// Package optimizer turns a project's required skills into suggestions.
package optimizer

import (
	"strings"

	"github.com/agnivade/levenshtein"

	"venom/internal/api"
)

// maxSimilarDistance bounds the edit distance for a "similar skill" hint.
const maxSimilarDistance = 2

// Suggest compares a project's required skills against the available skill
// names. Each missing skill becomes an add-skill suggestion; when nothing is
// missing a single pipeline suggestion lists the required skills in order.
func Suggest(p api.Project, available []string) []api.Suggestion {
	var out []api.Suggestion
	for _, req := range Missing(p, available) {
		out = append(out, api.Suggestion{
			Type:    api.SuggestionAddSkill,
			Skill:   req,
			Reason:  "项目需要",
			Similar: closest(req, available),
		})
	}
	if len(out) > 0 {
		return out
	}
	return []api.Suggestion{{
		Type: api.SuggestionCombine,
		Plan: "使用本地技能形成流水线: " + strings.Join(p.RequiredSkills, ", "),
	}}
}

// Missing returns the required skills of p that are not in available,
// preserving order and duplicates.
func Missing(p api.Project, available []string) []string {
	have := make(map[string]struct{}, len(available))
	for _, name := range available {
		have[name] = struct{}{}
	}
	missing := []string{}
	for _, req := range p.RequiredSkills {
		if _, ok := have[req]; !ok {
			missing = append(missing, req)
		}
	}
	return missing
}

// closest returns the available name nearest to want, or "" when none is
// within maxSimilarDistance.
func closest(want string, available []string) string {
	best, bestDist := "", maxSimilarDistance+1
	for _, name := range available {
		d := levenshtein.ComputeDistance(strings.ToLower(want), strings.ToLower(name))
		if d < bestDist {
			best, bestDist = name, d
		}
	}
	return best
}
