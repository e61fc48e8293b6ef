package sandbox

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venom/internal/api"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name    string
		stdout  string
		want    float64
		wantNil bool
	}{
		{name: "all pass", stdout: `{"results":[{"ok":true},{"ok":true}]}`, want: 100},
		{name: "one of three", stdout: `{"results":[{"ok":true},{"ok":false},{"ok":false}]}`, want: 33.33},
		{name: "no results", stdout: `{"results":[]}`, want: 0},
		{name: "empty output", stdout: "  \n", want: 0},
		{name: "garbage", stdout: "Traceback (most recent call last)", wantNil: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			details, score := Score(tt.stdout)
			assert.Equal(t, tt.want, score)
			assert.Equal(t, tt.wantNil, details == nil)
		})
	}
}

func TestNewRunnerDefaults(t *testing.T) {
	r := NewRunner("", 0, nil)
	assert.Equal(t, "python3", r.Python)
	assert.Equal(t, 8*time.Second, r.Timeout)
	assert.NotNil(t, r.Logger)
}

func TestRunMissingInterpreter(t *testing.T) {
	r := NewRunner("definitely-not-a-python-binary", time.Second, nil)
	res := r.Run(context.Background(), "def run(x):\n    return x\n", nil)
	assert.False(t, res.OK)
	assert.NotEmpty(t, res.Error)
}

func TestRunPython(t *testing.T) {
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not available")
	}
	r := NewRunner("python3", 5*time.Second, nil)
	code := "def run(x):\n    return x * 2\n"
	res := r.Run(context.Background(), code, []api.TestCase{
		{Input: 2, Expected: 4},
		{Input: 3, Expected: 7},
	})
	require.True(t, res.OK, "stderr: %s", res.Stderr)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, 50.0, res.Score)
}

func TestRunPythonImportFailure(t *testing.T) {
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not available")
	}
	r := NewRunner("python3", 5*time.Second, nil)
	res := r.Run(context.Background(), "this is not python", nil)
	require.True(t, res.OK)
	assert.Equal(t, 2, res.ExitCode)
	assert.Equal(t, 0.0, res.Score)
	assert.Contains(t, res.Stderr, "Error")
}

func TestRunTimeoutWithChildHoldingStdout(t *testing.T) {
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not available")
	}
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep not available")
	}
	r := NewRunner("python3", time.Second, nil)
	code := "import subprocess, time\nsubprocess.Popen(['sleep', '12'])\ntime.sleep(12)\n"

	start := time.Now()
	res := r.Run(context.Background(), code, nil)
	assert.Equal(t, "timeout", res.Error)
	assert.Less(t, time.Since(start), 8*time.Second)
}
