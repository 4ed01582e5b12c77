//go:build !windows

package spawn

import (
	"os/exec"
	"syscall"
)

// The child leads its own process group so tree kills can signal the whole
// group.
func configureSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
