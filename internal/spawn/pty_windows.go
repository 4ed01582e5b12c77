//go:build windows

package spawn

import (
	"errors"
	"os/exec"

	"github.com/mxslade/procmux/internal/proc"
)

func startPTY(*exec.Cmd) (proc.Handle, error) {
	return nil, errors.New("spawn: pty is not supported on windows")
}
