// Package sandbox runs uploaded Python skills against their test cases in a
// throwaway directory.
package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"venom/internal/api"
)

// graceOverTimeout is added to the configured timeout before the process is killed.
const graceOverTimeout = 2 * time.Second

const testRunner = `import json, sys, traceback
with open("tests.json", encoding="utf-8") as f:
    tests = json.load(f)
try:
    import skill
except Exception:
    traceback.print_exc()
    sys.exit(2)

results = []
for t in tests:
    inp = t.get("input")
    expected = t.get("expected")
    try:
        out = skill.run(inp) if hasattr(skill, "run") else None
        ok = (out == expected) if expected is not None else True
        results.append({"ok": bool(ok), "input": inp, "output": out, "expected": expected})
    except Exception as e:
        results.append({"ok": False, "error": str(e), "traceback": traceback.format_exc()})
print(json.dumps({"results": results}, ensure_ascii=False))
`

// Runner executes skill code with an external Python interpreter.
type Runner struct {
	Python  string
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewRunner returns a Runner using python and timeout, defaulting to
// "python3" and 8s.
func NewRunner(python string, timeout time.Duration, logger *zap.Logger) *Runner {
	if python == "" {
		python = "python3"
	}
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{Python: python, Timeout: timeout, Logger: logger}
}

// Run writes code as skill.py next to a generated test runner, executes it
// and scores the results. Failures to run are reported inside the result,
// never as a Go error.
func (r *Runner) Run(ctx context.Context, code string, tests []api.TestCase) api.SandboxResult {
	dir, err := os.MkdirTemp("", "skill_")
	if err != nil {
		return api.SandboxResult{Error: err.Error()}
	}
	defer os.RemoveAll(dir)

	if tests == nil {
		tests = []api.TestCase{}
	}
	testsJSON, err := json.Marshal(tests)
	if err != nil {
		return api.SandboxResult{Error: err.Error()}
	}
	files := map[string][]byte{
		"skill.py":       []byte(code),
		"test_runner.py": []byte(testRunner),
		"tests.json":     testsJSON,
	}
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o600); err != nil {
			return api.SandboxResult{Error: err.Error()}
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, r.Timeout+graceOverTimeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, r.Python, "test_runner.py")
	cmd.Dir = dir
	cmd.WaitDelay = graceOverTimeout
	killGroupOnCancel(cmd)
	var out, errOut bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errOut

	start := time.Now()
	err = cmd.Run()
	r.Logger.Debug("sandbox run finished",
		zap.String("dir", dir),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err))

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return api.SandboxResult{Error: "timeout", Stderr: "timeout"}
	}
	var exitErr *exec.ExitError
	exitCode := 0
	if err != nil {
		if !errors.As(err, &exitErr) {
			return api.SandboxResult{Error: fmt.Sprintf("run %s: %s", r.Python, err)}
		}
		exitCode = exitErr.ExitCode()
	}

	stdout, stderr := out.String(), errOut.String()
	details, score := Score(stdout)
	if details == nil {
		details = map[string]any{"raw_stdout": stdout, "raw_stderr": stderr}
	}
	return api.SandboxResult{
		OK:       true,
		ExitCode: exitCode,
		Score:    score,
		Details:  details,
		Stdout:   stdout,
		Stderr:   stderr,
	}
}

// Score parses the runner's JSON output and returns it with the percentage
// of passing tests rounded to two decimals. details is nil when stdout is
// not a JSON object.
func Score(stdout string) (details map[string]any, score float64) {
	trimmed := strings.TrimSpace(stdout)
	if trimmed == "" {
		trimmed = "{}"
	}
	if err := json.Unmarshal([]byte(trimmed), &details); err != nil {
		return nil, 0
	}
	results, _ := details["results"].([]any)
	if len(results) == 0 {
		return details, 0
	}
	passed := 0
	for _, r := range results {
		if m, ok := r.(map[string]any); ok {
			if ok, _ := m["ok"].(bool); ok {
				passed++
			}
		}
	}
	pct := float64(passed) / float64(len(results)) * 100
	return details, math.Round(pct*100) / 100
}
