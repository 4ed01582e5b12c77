// Package backend provides process-control backends behind the facade
// contract. Each backend is tied to one mechanism and implements only the
// capabilities that mechanism offers; callers compose them with
// facade.Chain.
package backend

import (
	"context"
	"errors"
	"os/exec"

	"github.com/mxslade/procmux/internal/dispatch"
	"github.com/mxslade/procmux/internal/facade"
)

// Waiter adapts an exec.Cmd wait into the exit-notification capability. It
// supports nothing else; chain it with a signal-capable backend. Register at
// most one callback per command: each registration issues its own Wait call.
type Waiter struct {
	pool *dispatch.Pool
	cmd  *exec.Cmd
}

// NewWaiter wraps a started command.
func NewWaiter(pool *dispatch.Pool, cmd *exec.Cmd) *Waiter {
	return &Waiter{pool: pool, cmd: cmd}
}

func (w *Waiter) Pid() facade.Result[int] {
	return facade.Unsupported[int]()
}

func (w *Waiter) KillGracefully(context.Context, bool) facade.Result[error] {
	return facade.Unsupported[error]()
}

func (w *Waiter) KillForcefully(context.Context, bool) facade.Result[error] {
	return facade.Unsupported[error]()
}

func (w *Waiter) NotifyExit(fn func(code int)) facade.Result[struct{}] {
	w.pool.Go(func() {
		err := w.cmd.Wait()
		code := 0
		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				code = exitErr.ExitCode()
			} else {
				code = -1
			}
		}
		fn(code)
	})
	return facade.Supported(struct{}{})
}
