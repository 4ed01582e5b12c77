//go:build windows

package backend

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/mxslade/procmux/internal/facade"
)

// taskkill exit code when no matching process exists: the process already
// terminated, which counts as success here.
const taskkillNotFound = 128

// Taskkill controls a local process through the Windows taskkill utility.
// The graceful phase posts WM_CLOSE-style termination requests; the forceful
// phase adds /f. Tree kills add /t so descendants are covered.
type Taskkill struct {
	pid int
}

// NewTaskkill returns a taskkill backend for pid.
func NewTaskkill(pid int) *Taskkill {
	return &Taskkill{pid: pid}
}

func (t *Taskkill) Pid() facade.Result[int] {
	return facade.Supported(t.pid)
}

func (t *Taskkill) KillGracefully(ctx context.Context, tree bool) facade.Result[error] {
	return facade.Supported(t.run(ctx, tree, false))
}

func (t *Taskkill) KillForcefully(ctx context.Context, tree bool) facade.Result[error] {
	return facade.Supported(t.run(ctx, tree, true))
}

func (t *Taskkill) NotifyExit(func(code int)) facade.Result[struct{}] {
	return facade.Unsupported[struct{}]()
}

func (t *Taskkill) run(ctx context.Context, tree, force bool) error {
	args := []string{"/pid", strconv.Itoa(t.pid)}
	if tree {
		args = append(args, "/t")
	}
	if force {
		args = append(args, "/f")
	}
	if err := exec.CommandContext(ctx, "taskkill", args...).Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == taskkillNotFound {
			return nil
		}
		return fmt.Errorf("taskkill pid %d: %w", t.pid, err)
	}
	return nil
}

// Platform returns the native process-control backend for this OS.
func Platform(pid int) facade.Facade {
	return NewTaskkill(pid)
}
