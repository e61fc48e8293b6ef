package engine

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venom/internal/api"
	"venom/internal/store"
)

type fakeSandbox struct {
	result api.SandboxResult
	calls  int
	code   string
}

func (f *fakeSandbox) Run(ctx context.Context, code string, tests []api.TestCase) api.SandboxResult {
	f.calls++
	f.code = code
	return f.result
}

var fixedNow = time.Unix(1700000000, 0)

func newTestEngine(t *testing.T) (*Engine, *fakeSandbox, string) {
	t.Helper()
	dir := t.TempDir()
	now := func() time.Time { return fixedNow }
	st, err := store.Open(filepath.Join(dir, "venom.sqlite"), store.WithClock(now))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	sb := &fakeSandbox{result: api.SandboxResult{OK: true, Score: 100}}
	e, err := New(st, sb, Options{
		UploadDir: filepath.Join(dir, "uploads"),
		SkillsDir: filepath.Join(dir, "skills"),
		Now:       now,
	})
	require.NoError(t, err)
	return e, sb, dir
}

func auditActions(t *testing.T, e *Engine) []string {
	t.Helper()
	entries, err := e.ListAudits(context.Background())
	require.NoError(t, err)
	var actions []string
	for i := len(entries) - 1; i >= 0; i-- {
		actions = append(actions, entries[i].Actor+"/"+entries[i].Action)
	}
	return actions
}

func TestAddSkillDefaultsVersion(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ref, err := e.AddSkill(context.Background(), api.SkillIn{Name: "writer"}, ActorUser)
	require.NoError(t, err)
	assert.Equal(t, api.SkillRef{Name: "writer", Version: "1.0.0"}, ref)
	assert.Equal(t, []string{"用户/add_skill"}, auditActions(t, e))
}

func TestAddSkillRequiresName(t *testing.T) {
	e, _, _ := newTestEngine(t)
	_, err := e.AddSkill(context.Background(), api.SkillIn{Name: "  "}, ActorUser)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestProposeUpgradeGeneratesVersion(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	out, err := e.ProposeUpgrade(ctx, api.UpgradeIn{Name: "writer", Notes: "faster"}, ActorUser)
	require.NoError(t, err)
	assert.Equal(t, "auto-1700000000", out.NewVersion)

	skills, err := e.ListSkills(ctx)
	require.NoError(t, err)
	require.Len(t, skills, 1)
	assert.Equal(t, "auto-1700000000", skills[0].Version)
	assert.Equal(t, []string{"用户/add_skill", "用户/propose_upgrade"}, auditActions(t, e))
}

func TestSuggestUnknownProject(t *testing.T) {
	e, _, _ := newTestEngine(t)
	res, err := e.Suggest(context.Background(), 99)
	require.NoError(t, err)
	assert.Equal(t, "项目不存在", res.Error)
	assert.Nil(t, res.Project)
}

func TestSuggestMissingAndComplete(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	ref, err := e.AddProject(ctx, api.ProjectIn{Name: "blog", RequiredSkills: []string{"writer"}}, ActorUser)
	require.NoError(t, err)

	res, err := e.Suggest(ctx, ref.ID)
	require.NoError(t, err)
	require.Len(t, res.Suggestions, 1)
	assert.Equal(t, api.SuggestionAddSkill, res.Suggestions[0].Type)
	assert.Equal(t, "writer", res.Suggestions[0].Skill)

	_, err = e.AddSkill(ctx, api.SkillIn{Name: "writer"}, ActorUser)
	require.NoError(t, err)
	res, err = e.Suggest(ctx, ref.ID)
	require.NoError(t, err)
	require.Len(t, res.Suggestions, 1)
	assert.Equal(t, api.SuggestionCombine, res.Suggestions[0].Type)
	assert.Equal(t, "blog", res.Project.Name)
}

func TestSimulate(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	_, err := e.AddSkill(ctx, api.SkillIn{Name: "writer"}, ActorUser)
	require.NoError(t, err)

	out, err := e.Simulate(ctx, "writer")
	require.NoError(t, err)
	assert.True(t, out.OK)
	out, err = e.Simulate(ctx, "painter")
	require.NoError(t, err)
	assert.False(t, out.OK)
}

func TestUploadThenActivate(t *testing.T) {
	e, sb, dir := newTestEngine(t)
	ctx := context.Background()
	code := "def run(x):\n    return x\n"

	up, err := e.UploadSkill(ctx, api.UploadIn{Name: "echo skill", Code: code})
	require.NoError(t, err)
	assert.Equal(t, 1, sb.calls)
	assert.Equal(t, code, sb.code)
	assert.Equal(t, filepath.Join(dir, "uploads", "echo_skill_1700000000.py"), up.UploadFile)
	assert.Equal(t, 100.0, up.Result.Score)

	act, err := e.ActivateSkill(ctx, api.ActivateIn{Name: "echo", Version: "1.0", SourceUploadPath: up.UploadFile})
	require.NoError(t, err)
	assert.True(t, act.Activated)
	assert.Len(t, act.Meta.Hash, 16)
	assert.True(t, strings.HasSuffix(act.Path, "echo_v1.0_"+act.Meta.Hash+".py"))

	data, err := os.ReadFile(filepath.Join(dir, "skills", "echo", "metadata.json"))
	require.NoError(t, err)
	var meta api.SkillMeta
	require.NoError(t, json.Unmarshal(data, &meta))
	assert.Equal(t, act.Meta, meta)

	assert.Equal(t, []string{"user/upload_skill", "user/activate_skill"}, auditActions(t, e))
}

func TestActivateRejectsMissingUpload(t *testing.T) {
	e, _, dir := newTestEngine(t)
	_, err := e.ActivateSkill(context.Background(), api.ActivateIn{
		Name: "echo", Version: "1", SourceUploadPath: filepath.Join(dir, "nope.py"),
	})
	assert.True(t, errors.Is(err, ErrUploadMissing))
}

func TestActivateRejectsUnsafeCode(t *testing.T) {
	e, _, dir := newTestEngine(t)
	path := filepath.Join(dir, "bad.py")
	require.NoError(t, os.WriteFile(path, []byte("import os\nos.system('ls')\n"), 0o644))

	_, err := e.ActivateSkill(context.Background(), api.ActivateIn{Name: "bad", Version: "1", SourceUploadPath: path})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsafeCode))
	assert.Contains(t, err.Error(), "os.system")
}

func TestUnsafeToken(t *testing.T) {
	assert.Equal(t, "", UnsafeToken("def run(x):\n    return x\n"))
	assert.Equal(t, "eval(", UnsafeToken("eval('1')"))
	assert.Equal(t, "__import__", UnsafeToken("__import__('os')"))
}

func TestStartupAudit(t *testing.T) {
	e, _, _ := newTestEngine(t)
	require.NoError(t, e.Startup(context.Background()))
	assert.Equal(t, []string{"系统/启动"}, auditActions(t, e))
}

func TestActivateRejectsVersionWithPathSeparator(t *testing.T) {
	e, _, dir := newTestEngine(t)
	src := filepath.Join(dir, "ok.py")
	require.NoError(t, os.WriteFile(src, []byte("def run(x):\n    return x\n"), 0o644))

	for _, version := range []string{"1/../../../escaped", `1\..\x`, ".."} {
		_, err := e.ActivateSkill(context.Background(), api.ActivateIn{Name: "echo", Version: version, SourceUploadPath: src})
		assert.True(t, errors.Is(err, ErrInvalidInput), "version %q: %v", version, err)
	}
	matches, err := filepath.Glob(filepath.Join(dir, "*escaped*"))
	require.NoError(t, err)
	assert.Empty(t, matches)
	assert.Empty(t, auditActions(t, e))
}

func TestUploadRejectsNameWithPathSeparator(t *testing.T) {
	e, sb, dir := newTestEngine(t)
	for _, name := range []string{"../../outside", `..\outside`, ".."} {
		_, err := e.UploadSkill(context.Background(), api.UploadIn{Name: name, Code: "x = 1\n"})
		assert.True(t, errors.Is(err, ErrInvalidInput), "name %q: %v", name, err)
	}
	assert.Equal(t, 0, sb.calls)
	matches, err := filepath.Glob(filepath.Join(filepath.Dir(dir), "outside_*"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestCheckWithin(t *testing.T) {
	root := filepath.Join("data", "skills")
	assert.NoError(t, checkWithin(root, filepath.Join(root, "echo", "echo_v1_abc.py")))
	assert.Error(t, checkWithin(root, filepath.Join(root, "..", "escaped.py")))
	assert.Error(t, checkWithin(root, filepath.Join("data", "other", "x.py")))
}
