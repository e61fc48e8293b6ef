// Package engine implements the skill, project and optimizer operations on
// top of the store, recording every mutation in the audit trail.
package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"venom/internal/api"
	"venom/internal/optimizer"
	"venom/internal/store"
)

// Audit actors.
const (
	ActorUser      = "用户"
	ActorSystem    = "系统"
	ActorOptimizer = "optimizer"
	ActorSimulator = "simulator"
	ActorUploader  = "user"
)

// AuditLimit caps the number of rows returned by ListAudits.
const AuditLimit = 200

var (
	// ErrUploadMissing is returned when activation points at a missing upload.
	ErrUploadMissing = errors.New("upload file not found")
	// ErrUnsafeCode is returned when uploaded code contains a forbidden call.
	ErrUnsafeCode = errors.New("包含不允许的代码片段")
	// ErrInvalidInput is returned for requests missing required fields.
	ErrInvalidInput = errors.New("invalid input")
)

// unsafeTokens are rejected at activation time.
var unsafeTokens = []string{"__import__", "os.system", "subprocess", "open(", "eval(", "exec("}

// Store is the persistence the engine needs.
type Store interface {
	ListSkills(ctx context.Context) ([]api.Skill, error)
	SkillNames(ctx context.Context) ([]string, error)
	AddSkill(ctx context.Context, name, version string, manifest, metadata json.RawMessage) (int64, error)
	ListProjects(ctx context.Context) ([]api.Project, error)
	GetProject(ctx context.Context, id int64) (api.Project, error)
	AddProject(ctx context.Context, name, description string, requiredSkills []string) (int64, error)
	AppendAudit(ctx context.Context, actor, action string, details any) error
	ListAudits(ctx context.Context, limit int) ([]api.AuditEntry, error)
}

// Sandbox runs uploaded code against its tests.
type Sandbox interface {
	Run(ctx context.Context, code string, tests []api.TestCase) api.SandboxResult
}

// Options configures an Engine.
type Options struct {
	UploadDir string
	SkillsDir string
	Logger    *zap.Logger
	Now       func() time.Time
}

// Engine is the backend's business layer.
type Engine struct {
	store     Store
	sandbox   Sandbox
	uploadDir string
	skillsDir string
	logger    *zap.Logger
	now       func() time.Time
}

// New creates an Engine and makes sure the upload and skills directories exist.
func New(st Store, sb Sandbox, opts Options) (*Engine, error) {
	if opts.UploadDir == "" {
		opts.UploadDir = "uploads"
	}
	if opts.SkillsDir == "" {
		opts.SkillsDir = "skills"
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	for _, dir := range []string{opts.UploadDir, opts.SkillsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return &Engine{
		store:     st,
		sandbox:   sb,
		uploadDir: opts.UploadDir,
		skillsDir: opts.SkillsDir,
		logger:    opts.Logger,
		now:       opts.Now,
	}, nil
}

// Startup records the start of the backend.
func (e *Engine) Startup(ctx context.Context) error {
	return e.audit(ctx, ActorSystem, "启动", map[string]int64{"ts": e.now().Unix()})
}

// ListSkills returns all skill versions, newest first.
func (e *Engine) ListSkills(ctx context.Context) ([]api.Skill, error) {
	return e.store.ListSkills(ctx)
}

// AddSkill registers a skill version. Version defaults to 1.0.0.
func (e *Engine) AddSkill(ctx context.Context, in api.SkillIn, actor string) (api.SkillRef, error) {
	if strings.TrimSpace(in.Name) == "" {
		return api.SkillRef{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if in.Version == "" {
		in.Version = "1.0.0"
	}
	if _, err := e.store.AddSkill(ctx, in.Name, in.Version, in.Manifest, in.Metadata); err != nil {
		return api.SkillRef{}, err
	}
	if err := e.audit(ctx, actor, "add_skill", map[string]string{"name": in.Name, "version": in.Version}); err != nil {
		return api.SkillRef{}, err
	}
	return api.SkillRef{Name: in.Name, Version: in.Version}, nil
}

// ProposeUpgrade records a new version of a skill. A missing version is
// generated as auto-<unix seconds>.
func (e *Engine) ProposeUpgrade(ctx context.Context, in api.UpgradeIn, actor string) (api.UpgradeOut, error) {
	version := in.NewVersion
	if version == "" {
		version = fmt.Sprintf("auto-%d", e.now().Unix())
	}
	if _, err := e.AddSkill(ctx, api.SkillIn{
		Name:     in.Name,
		Version:  version,
		Manifest: in.Manifest,
		Metadata: in.Metadata,
	}, actor); err != nil {
		return api.UpgradeOut{}, err
	}
	details := map[string]any{"skill": in.Name, "new_version": version, "notes": nil}
	if in.Notes != "" {
		details["notes"] = in.Notes
	}
	if err := e.audit(ctx, actor, "propose_upgrade", details); err != nil {
		return api.UpgradeOut{}, err
	}
	return api.UpgradeOut{Skill: in.Name, NewVersion: version}, nil
}

// ListProjects returns all projects with their required skills.
func (e *Engine) ListProjects(ctx context.Context) ([]api.Project, error) {
	return e.store.ListProjects(ctx)
}

// AddProject creates a project.
func (e *Engine) AddProject(ctx context.Context, in api.ProjectIn, actor string) (api.ProjectRef, error) {
	if strings.TrimSpace(in.Name) == "" {
		return api.ProjectRef{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if in.RequiredSkills == nil {
		in.RequiredSkills = []string{}
	}
	id, err := e.store.AddProject(ctx, in.Name, in.Description, in.RequiredSkills)
	if err != nil {
		return api.ProjectRef{}, err
	}
	if err := e.audit(ctx, actor, "add_project", map[string]any{"name": in.Name, "required_skills": in.RequiredSkills}); err != nil {
		return api.ProjectRef{}, err
	}
	return api.ProjectRef{ID: id, Name: in.Name}, nil
}

// Suggest runs the optimizer for a project. An unknown project yields a
// result carrying Error rather than a Go error.
func (e *Engine) Suggest(ctx context.Context, projectID int64) (api.OptimizerResult, error) {
	p, err := e.store.GetProject(ctx, projectID)
	if errors.Is(err, store.ErrNotFound) {
		return api.OptimizerResult{Error: "项目不存在"}, nil
	}
	if err != nil {
		return api.OptimizerResult{}, err
	}
	available, err := e.store.SkillNames(ctx)
	if err != nil {
		return api.OptimizerResult{}, err
	}
	suggestions := optimizer.Suggest(p, available)
	if err := e.audit(ctx, ActorOptimizer, "suggest", map[string]any{
		"project_id":  projectID,
		"missing":     optimizer.Missing(p, available),
		"suggestions": suggestions,
	}); err != nil {
		return api.OptimizerResult{}, err
	}
	return api.OptimizerResult{Project: &p, Suggestions: suggestions}, nil
}

// Simulate reports whether a skill with the given name is registered.
func (e *Engine) Simulate(ctx context.Context, skillName string) (api.SimulateOut, error) {
	names, err := e.store.SkillNames(ctx)
	if err != nil {
		return api.SimulateOut{}, err
	}
	ok := false
	for _, n := range names {
		if n == skillName {
			ok = true
			break
		}
	}
	if err := e.audit(ctx, ActorSimulator, "simulate", map[string]any{"skill": skillName, "result": ok}); err != nil {
		return api.SimulateOut{}, err
	}
	return api.SimulateOut{Skill: skillName, OK: ok}, nil
}

// UploadSkill stores uploaded code and runs its tests in the sandbox.
func (e *Engine) UploadSkill(ctx context.Context, in api.UploadIn) (api.UploadOut, error) {
	if strings.TrimSpace(in.Name) == "" {
		return api.UploadOut{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if in.Version == "" {
		in.Version = "0.0.1"
	}
	if err := checkPathPart("skill name", in.Name); err != nil {
		return api.UploadOut{}, err
	}
	safeName := strings.ReplaceAll(in.Name, " ", "_")
	path := filepath.Join(e.uploadDir, fmt.Sprintf("%s_%d.py", safeName, e.now().Unix()))
	if err := checkWithin(e.uploadDir, path); err != nil {
		return api.UploadOut{}, err
	}
	if err := os.WriteFile(path, []byte(in.Code), 0o644); err != nil {
		return api.UploadOut{}, fmt.Errorf("write upload: %w", err)
	}

	result := e.sandbox.Run(ctx, in.Code, in.Tests)
	e.logger.Info("skill uploaded",
		zap.String("name", in.Name),
		zap.String("path", path),
		zap.Float64("score", result.Score))

	if err := e.audit(ctx, ActorUploader, "upload_skill", map[string]any{
		"name":        in.Name,
		"version":     in.Version,
		"upload_file": path,
		"result":      result,
	}); err != nil {
		return api.UploadOut{}, err
	}
	return api.UploadOut{UploadFile: path, Result: result}, nil
}

// ActivateSkill moves a previously uploaded file into the skills directory
// under a content-addressed name and writes its metadata.json.
func (e *Engine) ActivateSkill(ctx context.Context, in api.ActivateIn) (api.ActivateOut, error) {
	if strings.TrimSpace(in.Name) == "" || in.Version == "" {
		return api.ActivateOut{}, fmt.Errorf("%w: name and version are required", ErrInvalidInput)
	}
	if err := checkPathPart("skill name", in.Name); err != nil {
		return api.ActivateOut{}, err
	}
	if err := checkPathPart("version", in.Version); err != nil {
		return api.ActivateOut{}, err
	}
	code, err := os.ReadFile(in.SourceUploadPath)
	if errors.Is(err, os.ErrNotExist) {
		return api.ActivateOut{}, ErrUploadMissing
	}
	if err != nil {
		return api.ActivateOut{}, fmt.Errorf("read upload: %w", err)
	}
	if tok := UnsafeToken(string(code)); tok != "" {
		return api.ActivateOut{}, fmt.Errorf("%w: %s", ErrUnsafeCode, tok)
	}

	sum := sha256.Sum256(code)
	hash := hex.EncodeToString(sum[:])[:16]
	dir := filepath.Join(e.skillsDir, in.Name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return api.ActivateOut{}, fmt.Errorf("create skill dir: %w", err)
	}
	dest := filepath.Join(dir, fmt.Sprintf("%s_v%s_%s.py", in.Name, in.Version, hash))
	if err := checkWithin(e.skillsDir, dest); err != nil {
		return api.ActivateOut{}, err
	}
	if err := os.WriteFile(dest, code, 0o644); err != nil {
		return api.ActivateOut{}, fmt.Errorf("write skill: %w", err)
	}

	meta := api.SkillMeta{Name: in.Name, Version: in.Version, Hash: hash, ActivatedAt: e.now().Unix()}
	b, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return api.ActivateOut{}, err
	}
	if err := os.WriteFile(filepath.Join(dir, "metadata.json"), b, 0o644); err != nil {
		return api.ActivateOut{}, fmt.Errorf("write metadata: %w", err)
	}

	if err := e.audit(ctx, ActorUploader, "activate_skill", map[string]string{
		"name": in.Name, "version": in.Version, "dest": dest,
	}); err != nil {
		return api.ActivateOut{}, err
	}
	return api.ActivateOut{Activated: true, Path: dest, Meta: meta}, nil
}

// ListAudits returns the most recent audit entries.
func (e *Engine) ListAudits(ctx context.Context) ([]api.AuditEntry, error) {
	return e.store.ListAudits(ctx, AuditLimit)
}

// checkPathPart rejects values that would change the directory of a file
// name built from them.
func checkPathPart(field, v string) error {
	if strings.ContainsAny(v, `/\`) || v == "." || v == ".." {
		return fmt.Errorf("%w: bad %s %q", ErrInvalidInput, field, v)
	}
	return nil
}

// checkWithin returns ErrInvalidInput unless path lies inside root.
func checkWithin(root, path string) error {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("%w: path %q escapes %q", ErrInvalidInput, path, root)
	}
	return nil
}

// UnsafeToken returns the first forbidden token found in code, or "".
func UnsafeToken(code string) string {
	for _, t := range unsafeTokens {
		if strings.Contains(code, t) {
			return t
		}
	}
	return ""
}

func (e *Engine) audit(ctx context.Context, actor, action string, details any) error {
	if err := e.store.AppendAudit(ctx, actor, action, details); err != nil {
		e.logger.Error("audit write failed", zap.String("action", action), zap.Error(err))
		return err
	}
	return nil
}
