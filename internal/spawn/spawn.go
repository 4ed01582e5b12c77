// Package spawn launches local child processes and hands them to the
// running-process engine. It owns the exec.Cmd plumbing: pipe or
// pseudo-terminal wiring, platform process-group attributes, and the
// facade chain assembled from the wait and native kill backends.
package spawn

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/mxslade/procmux/internal/backend"
	"github.com/mxslade/procmux/internal/dispatch"
	"github.com/mxslade/procmux/internal/facade"
	"github.com/mxslade/procmux/internal/proc"
)

// Command describes a child process to launch locally.
type Command struct {
	Program string
	Args    []string
	Dir     string
	Env     map[string]string

	// PTY attaches the child to a pseudo-terminal instead of pipes. The
	// terminal merges stderr into stdout.
	PTY bool

	// Proc configures the engine wrapped around the child.
	Proc proc.Config
}

// Start launches the command and returns the wired engine. The engine owns
// the process from here on: ctx only gates the launch itself, not the
// child's lifetime, which ends through Kill or the process exiting.
func Start(ctx context.Context, pool *dispatch.Pool, spec Command) (*proc.Process, error) {
	if spec.Program == "" {
		return nil, errors.New("spawn: program is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cmd := exec.Command(spec.Program, spec.Args...)
	cmd.Dir = spec.Dir
	env := os.Environ()
	for k, v := range spec.Env {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	cmd.Env = env

	var handle proc.Handle
	if spec.PTY {
		h, err := startPTY(cmd)
		if err != nil {
			return nil, err
		}
		handle = h
	} else {
		h, err := wirePipes(cmd)
		if err != nil {
			return nil, fmt.Errorf("spawn %s: pipes: %w", spec.Program, err)
		}
		configureSysProcAttr(cmd)
		if err := cmd.Start(); err != nil {
			h.closeAll()
			return nil, fmt.Errorf("spawn %s: %w", spec.Program, err)
		}
		h.closeChildEnds()
		h.pid = cmd.Process.Pid
		handle = h
	}

	fac := facade.Chain(backend.Platform(cmd.Process.Pid), backend.NewWaiter(pool, cmd))
	p, err := proc.New(handle, fac, spec.Proc, pool)
	if err != nil {
		_ = cmd.Process.Kill()
		return nil, err
	}
	return p, nil
}
