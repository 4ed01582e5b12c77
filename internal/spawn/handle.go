package spawn

import (
	"io"
	"os"
	"os/exec"
)

// pipeHandle exposes a pipe-wired child to the engine.
type pipeHandle struct {
	pid    int
	stdout *os.File
	stderr *os.File
	stdin  *os.File

	childEnds []*os.File
}

// wirePipes connects the child's three streams through raw OS pipes. The
// exec helpers (StdoutPipe and friends) close the parent's read ends inside
// cmd.Wait as soon as the child exits, dropping whatever the kernel still
// buffers; raw pipes leave the read ends to the pumps, which drain to a
// natural EOF once every writer end is gone.
func wirePipes(cmd *exec.Cmd) (*pipeHandle, error) {
	stdinR, stdinW, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		stdinR.Close()
		stdinW.Close()
		return nil, err
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		stdinR.Close()
		stdinW.Close()
		stdoutR.Close()
		stdoutW.Close()
		return nil, err
	}

	cmd.Stdin = stdinR
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	return &pipeHandle{
		stdout:    stdoutR,
		stderr:    stderrR,
		stdin:     stdinW,
		childEnds: []*os.File{stdinR, stdoutW, stderrW},
	}, nil
}

// closeChildEnds drops the parent's copies of the child-side descriptors
// after a successful start, so EOF propagates when the child exits.
func (h *pipeHandle) closeChildEnds() {
	for _, f := range h.childEnds {
		f.Close()
	}
	h.childEnds = nil
}

// closeAll releases every descriptor; used when the start itself fails.
func (h *pipeHandle) closeAll() {
	h.closeChildEnds()
	h.stdout.Close()
	h.stderr.Close()
	h.stdin.Close()
}

func (h *pipeHandle) Stdout() io.Reader     { return h.stdout }
func (h *pipeHandle) Stderr() io.Reader     { return h.stderr }
func (h *pipeHandle) Stdin() io.WriteCloser { return h.stdin }
func (h *pipeHandle) Pid() int              { return h.pid }
