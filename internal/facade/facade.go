// Package facade defines the capability contract process-control backends
// implement and the composite that chains partially-capable backends into a
// single facade. A backend is typically tied to one platform mechanism
// (POSIX signals, taskkill, the Docker API) and supports only a subset of
// the operations; the composite dispatches each call to the first backend
// that answers it.
package facade

import (
	"context"
	"fmt"
	"strings"
)

// Capability names used when reporting an exhausted chain.
const (
	CapabilityPid            = "pid"
	CapabilityKillGracefully = "kill-gracefully"
	CapabilityKillForcefully = "kill-forcefully"
	CapabilityNotifyExit     = "notify-exit"
)

// Facade is the capability set a process-control backend exposes. Each
// method returns Unsupported when the backend lacks the capability;
// Supported results carry the operation's outcome.
type Facade interface {
	// Pid reports the operating-system identifier of the process.
	Pid() Result[int]

	// KillGracefully asks the process to exit voluntarily, for example by
	// delivering SIGTERM. tree extends the request to descendant processes.
	KillGracefully(ctx context.Context, tree bool) Result[error]

	// KillForcefully terminates the process without giving it a chance to
	// clean up. tree extends the request to descendant processes.
	KillForcefully(ctx context.Context, tree bool) Result[error]

	// NotifyExit registers fn to be invoked exactly once with the process
	// exit code when the operating system reports termination. Implementations
	// may assume it is called at most once per process.
	NotifyExit(fn func(code int)) Result[struct{}]
}

// UnsupportedError reports that a required capability is not implemented by
// any backend behind a facade. It is a hard failure: there is no remaining
// backend to fall through to.
type UnsupportedError struct {
	Capability string
	Backends   []Facade
}

func (e *UnsupportedError) Error() string {
	names := make([]string, 0, len(e.Backends))
	for _, b := range e.Backends {
		names = append(names, fmt.Sprintf("%T", b))
	}
	return fmt.Sprintf("no backend supports %s (backends: %s)", e.Capability, strings.Join(names, ", "))
}

// NewUnsupportedError builds the error surfaced when f cannot satisfy the
// named capability, expanding composites so the message lists every backend
// that was consulted.
func NewUnsupportedError(capability string, f Facade) *UnsupportedError {
	if c, ok := f.(*Composite); ok {
		return &UnsupportedError{Capability: capability, Backends: c.Backends()}
	}
	return &UnsupportedError{Capability: capability, Backends: []Facade{f}}
}
