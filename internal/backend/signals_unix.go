//go:build !windows

package backend

import (
	"context"
	"errors"
	"fmt"
	"syscall"

	"github.com/mxslade/procmux/internal/facade"
)

// Signals controls a local process with POSIX signals: SIGTERM for the
// graceful phase, SIGKILL for the forceful one. Tree kills signal the
// process group, which requires the child to have been started with Setpgid.
// A process that is already gone (ESRCH) counts as success; killing it was
// the point.
type Signals struct {
	pid int
}

// NewSignals returns a signal backend for pid.
func NewSignals(pid int) *Signals {
	return &Signals{pid: pid}
}

func (s *Signals) Pid() facade.Result[int] {
	return facade.Supported(s.pid)
}

func (s *Signals) KillGracefully(_ context.Context, tree bool) facade.Result[error] {
	return facade.Supported(s.signal(syscall.SIGTERM, tree))
}

func (s *Signals) KillForcefully(_ context.Context, tree bool) facade.Result[error] {
	return facade.Supported(s.signal(syscall.SIGKILL, tree))
}

func (s *Signals) NotifyExit(func(code int)) facade.Result[struct{}] {
	return facade.Unsupported[struct{}]()
}

func (s *Signals) signal(sig syscall.Signal, tree bool) error {
	pid := s.pid
	if tree {
		pid = -pid
	}
	if err := syscall.Kill(pid, sig); err != nil && !errors.Is(err, syscall.ESRCH) {
		return fmt.Errorf("signal pid %d: %w", s.pid, err)
	}
	return nil
}

// Platform returns the native process-control backend for this OS.
func Platform(pid int) facade.Facade {
	return NewSignals(pid)
}
