// Package api holds the JSON shapes exchanged between the venom backend and
// its clients.
package api

import "encoding/json"

// Skill is a registered skill version. Manifest and Metadata are free-form
// JSON documents kept as raw text.
type Skill struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Version   string          `json:"version"`
	Manifest  json.RawMessage `json:"manifest"`
	Metadata  json.RawMessage `json:"metadata"`
	CreatedAt int64           `json:"created_at"`
}

// Project is a side project and the skills it needs.
type Project struct {
	ID             int64    `json:"id"`
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	CreatedAt      int64    `json:"created_at"`
	RequiredSkills []string `json:"required_skills"`
}

// AuditEntry is one row of the audit trail.
type AuditEntry struct {
	ID      int64           `json:"id"`
	TS      int64           `json:"ts"`
	Actor   string          `json:"actor"`
	Action  string          `json:"action"`
	Details json.RawMessage `json:"details"`
}

// Suggestion kinds produced by the optimizer.
const (
	SuggestionAddSkill = "新增技能"
	SuggestionCombine  = "技能组合"
)

// Suggestion is a single optimizer recommendation. Skill and Reason are set
// for SuggestionAddSkill, Plan for SuggestionCombine.
type Suggestion struct {
	Type    string `json:"type"`
	Skill   string `json:"skill,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Similar string `json:"similar,omitempty"`
	Plan    string `json:"plan,omitempty"`
}

// OptimizerResult is the response of GET /optimizer/{id}. Error is set
// instead of Project when the project does not exist.
type OptimizerResult struct {
	Project     *Project     `json:"project,omitempty"`
	Suggestions []Suggestion `json:"suggestions,omitempty"`
	Error       string       `json:"error,omitempty"`
}

// SkillIn is the body of POST /skills.
type SkillIn struct {
	Name     string          `json:"name"`
	Version  string          `json:"version,omitempty"`
	Manifest json.RawMessage `json:"manifest,omitempty"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// SkillRef identifies a skill version.
type SkillRef struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// UpgradeIn is the body of POST /skills/upgrade.
type UpgradeIn struct {
	Name       string          `json:"name"`
	NewVersion string          `json:"new_version,omitempty"`
	Manifest   json.RawMessage `json:"manifest,omitempty"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
	Notes      string          `json:"notes,omitempty"`
}

// UpgradeOut is the response of POST /skills/upgrade.
type UpgradeOut struct {
	Skill      string `json:"skill"`
	NewVersion string `json:"new_version"`
}

// ProjectIn is the body of POST /projects.
type ProjectIn struct {
	Name           string   `json:"name"`
	Description    string   `json:"description,omitempty"`
	RequiredSkills []string `json:"required_skills,omitempty"`
}

// ProjectRef is the response of POST /projects.
type ProjectRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// TestCase is one sandbox test: Expected nil means "any output passes".
type TestCase struct {
	Input    any `json:"input"`
	Expected any `json:"expected"`
}

// UploadIn is the body of POST /skills/upload.
type UploadIn struct {
	Name    string     `json:"name"`
	Version string     `json:"version,omitempty"`
	Code    string     `json:"code"`
	Tests   []TestCase `json:"tests"`
}

// SandboxResult is the outcome of running uploaded code against its tests.
type SandboxResult struct {
	OK       bool           `json:"ok"`
	ExitCode int            `json:"exit_code"`
	Score    float64        `json:"score"`
	Details  map[string]any `json:"details,omitempty"`
	Stdout   string         `json:"stdout"`
	Stderr   string         `json:"stderr"`
	Error    string         `json:"error,omitempty"`
}

// UploadOut is the response of POST /skills/upload.
type UploadOut struct {
	UploadFile string        `json:"upload_file"`
	Result     SandboxResult `json:"result"`
}

// ActivateIn is the body of POST /skills/activate.
type ActivateIn struct {
	Name             string `json:"name"`
	Version          string `json:"version"`
	SourceUploadPath string `json:"source_upload_path"`
	Force            bool   `json:"force,omitempty"`
}

// SkillMeta is written to metadata.json next to an activated skill.
type SkillMeta struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Hash        string `json:"hash"`
	ActivatedAt int64  `json:"activated_at"`
}

// ActivateOut is the response of POST /skills/activate.
type ActivateOut struct {
	Activated bool      `json:"activated"`
	Path      string    `json:"path"`
	Meta      SkillMeta `json:"meta"`
}

// SimulateOut is the response of POST /simulate_task.
type SimulateOut struct {
	Skill string `json:"skill"`
	OK    bool   `json:"ok"`
}

// Status is the response of GET /.
type Status struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ErrorBody is returned with every non-2xx response.
type ErrorBody struct {
	Detail string `json:"detail"`
}
