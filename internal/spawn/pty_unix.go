//go:build !windows

package spawn

import (
	"fmt"
	"io"
	"os/exec"

	"github.com/creack/pty"

	"github.com/mxslade/procmux/internal/proc"
)

// startPTY launches cmd attached to a fresh pseudo-terminal. The terminal
// merges the child's stderr into stdout, so the handle reports an empty
// stderr stream. pty.Start makes the child a session leader, so its pid is
// also the process-group id that tree kills target.
func startPTY(cmd *exec.Cmd) (proc.Handle, error) {
	tty, err := pty.Start(cmd)
	if err != nil {
		return nil, fmt.Errorf("spawn %s: pty: %w", cmd.Path, err)
	}
	return &ptyHandle{pid: cmd.Process.Pid, tty: tty}, nil
}

// ptyHandle reads and writes the terminal master on both sides.
type ptyHandle struct {
	pid int
	tty io.ReadWriteCloser
}

func (h *ptyHandle) Stdout() io.Reader     { return h.tty }
func (h *ptyHandle) Stderr() io.Reader     { return emptyReader{} }
func (h *ptyHandle) Stdin() io.WriteCloser { return h.tty }
func (h *ptyHandle) Pid() int              { return h.pid }

type emptyReader struct{}

func (emptyReader) Read([]byte) (int, error) {
	return 0, io.EOF
}
