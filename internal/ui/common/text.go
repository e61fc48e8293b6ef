package common

import (
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
)

// DisplayWidth returns the number of terminal cells s occupies. CJK runes
// count as two.
func DisplayWidth(s string) int {
	return runewidth.StringWidth(s)
}

// Truncate shortens s to at most width cells, ending with "…" when cut.
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(s, width, "…")
}

// PadRight pads s with spaces to width cells.
func PadRight(s string, width int) string {
	return runewidth.FillRight(s, width)
}

// ContainsFold reports whether substr is in s, ignoring case.
func ContainsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// FormatUnix renders a unix timestamp for table cells.
func FormatUnix(ts int64) string {
	if ts == 0 {
		return "-"
	}
	return time.Unix(ts, 0).Format("2006-01-02 15:04")
}

// SplitList splits a comma separated value, dropping blanks. Full-width
// commas are accepted too.
func SplitList(s string) []string {
	s = strings.ReplaceAll(s, "，", ",")
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
