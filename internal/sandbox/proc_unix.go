//go:build unix

package sandbox

import (
	"os/exec"
	"syscall"
)

// killGroupOnCancel puts the interpreter in its own process group so that
// children it spawns are killed along with it.
func killGroupOnCancel(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
