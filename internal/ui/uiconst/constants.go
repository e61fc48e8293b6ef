package uiconst

// Table column widths
const (
	ColWidthID          = 6  // Numeric row id
	ColWidthVersion     = 14 // Skill version, e.g. auto-1700000000
	ColWidthCreated     = 16 // "2006-01-02 15:04"
	ColWidthSkills      = 30 // Comma separated required skills
	ColWidthMissing     = 8  // Skill counts in the optimizer table
	ColWidthMinFlexible = 10 // Lower bound for a column that absorbs spare width
)

// TableHeightOffset is subtracted from the panel height: m.height - TableHeightOffset.
const TableHeightOffset = 6

// Panel size before the first WindowSizeMsg.
const (
	DefaultWidth  = 100
	DefaultHeight = 30
)
