//go:build windows

package spawn

import (
	"os/exec"
	"syscall"
)

// The child gets its own console process group so termination requests do
// not propagate back to the parent.
func configureSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
}
