// Package proc implements the running-process engine. A Process owns a
// spawned OS process handle for its lifetime: it pumps the process byte
// streams into line channels, merges stdout lines, stderr lines and the exit
// code into one event stream, accepts line-oriented stdin, and drives
// two-phase kill through a process-control facade.
package proc

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/mxslade/procmux/internal/dispatch"
	"github.com/mxslade/procmux/internal/facade"
	"github.com/mxslade/procmux/internal/lines"
	"github.com/mxslade/procmux/internal/pump"
)

// stdinBacklog bounds how many lines Send may queue ahead of the write pump
// before blocking; TrySend reports false once it is full.
const stdinBacklog = 16

// Handle is the contract a spawn provider satisfies: the byte streams of a
// started OS process plus its identifier. The engine takes exclusive
// ownership of the handle for the process lifetime.
type Handle interface {
	Stdout() io.Reader
	Stderr() io.Reader
	Stdin() io.WriteCloser
	Pid() int
}

// Process is the unified asynchronous handle to one running OS process.
type Process struct {
	fac  facade.Facade
	cfg  Config
	pool *dispatch.Pool
	sep  string

	stdout io.Reader
	stderr io.Reader

	stdoutLines <-chan string
	stderrLines <-chan string
	stdoutDone  <-chan error
	stderrDone  <-chan error

	stdinLines chan string
	stdinQuit  chan struct{}
	stdinOnce  sync.Once

	exitDone chan struct{}
	exitCode int
	exitOnce sync.Once

	events     chan Event
	eventsOnce sync.Once

	shutdownOnce sync.Once
}

// New wires a running-process engine around a started process. It starts the
// output pumps and splitters, the stdin pump, and registers the exit future
// through the facade's exit-notification capability; absence of that
// capability is a hard error since the engine cannot operate without an
// observable exit.
func New(handle Handle, fac facade.Facade, cfg Config, pool *dispatch.Pool) (*Process, error) {
	sep := cfg.LineSeparator
	if sep == "" {
		sep = platformSeparator()
	}

	p := &Process{
		fac:        fac,
		cfg:        cfg,
		pool:       pool,
		sep:        sep,
		stdout:     handle.Stdout(),
		stderr:     handle.Stderr(),
		stdinLines: make(chan string, stdinBacklog),
		stdinQuit:  make(chan struct{}),
		exitDone:   make(chan struct{}),
	}

	stdoutRunes, stdoutDone := pump.Reader(pool, p.stdout, cfg.Encoding)
	stderrRunes, stderrDone := pump.Reader(pool, p.stderr, cfg.Encoding)
	p.stdoutLines = lines.Split(stdoutRunes)
	p.stderrLines = lines.Split(stderrRunes)
	p.stdoutDone = stdoutDone
	p.stderrDone = stderrDone

	stdinRunes := make(chan rune)
	go expandLines(p.stdinLines, p.stdinQuit, stdinRunes)
	stdinWriter := handle.Stdin()
	stdinDone := pump.Writer(pool, stdinRunes, stdinWriter, cfg.Encoding)
	pool.Go(func() {
		for range stdinDone {
		}
		// Closing the pipe delivers EOF to the child once the pump has
		// written everything it accepted.
		_ = stdinWriter.Close()
	})

	if res := fac.NotifyExit(p.resolveExit); !res.IsSupported() {
		p.shutdown()
		return nil, facade.NewUnsupportedError(facade.CapabilityNotifyExit, fac)
	}
	return p, nil
}

// expandLines forwards each queued stdin line rune by rune to the write
// pump's channel. Once quit closes it flushes lines already queued, then
// closes the pump's channel so the underlying stream can be closed.
func expandLines(in <-chan string, quit <-chan struct{}, out chan<- rune) {
	defer close(out)
	forward := func(line string) {
		for _, r := range line {
			out <- r
		}
	}
	for {
		select {
		case line := <-in:
			forward(line)
		case <-quit:
			for {
				select {
				case line := <-in:
					forward(line)
				default:
					return
				}
			}
		}
	}
}

// resolveExit is the single-resolution exit future; later invocations are
// ignored.
func (p *Process) resolveExit(code int) {
	p.exitOnce.Do(func() {
		p.exitCode = code
		close(p.exitDone)
	})
}

// Pid reports the process identifier, when any backend can supply it.
func (p *Process) Pid() facade.Result[int] {
	return p.fac.Pid()
}

// Wait blocks until the process exit code is available and both output pump
// stages have finished draining, so no event observable through Events is
// produced after Wait returns. An I/O failure in either pump is returned
// alongside the exit code.
//
// Cancelling ctx while the process is live triggers one unconditional
// forceful kill before the cancellation is returned; waiting on a process is
// never silently abandoned.
func (p *Process) Wait(ctx context.Context) (int, error) {
	select {
	case <-p.exitDone:
	case <-ctx.Done():
		_ = p.Kill(context.Background(), 0)
		return 0, ctx.Err()
	}

	var pumpErr error
	for err := range p.stdoutDone {
		if pumpErr == nil {
			pumpErr = err
		}
	}
	for err := range p.stderrDone {
		if pumpErr == nil {
			pumpErr = err
		}
	}
	p.shutdown()
	return p.exitCode, pumpErr
}

// Kill terminates the process. With grace > 0 it first requests a graceful
// stop and waits up to grace for the exit to be observed; if the process
// does not exit in time, or grace <= 0, it escalates to a forceful kill and
// blocks until the exit resolves. Calling Kill after the exit code has
// resolved is a no-op that touches no backend. Every path out of Kill closes
// stdin and cancels both output streams.
func (p *Process) Kill(ctx context.Context, grace time.Duration) error {
	select {
	case <-p.exitDone:
		return nil
	default:
	}
	defer p.shutdown()

	if grace > 0 {
		res := p.fac.KillGracefully(ctx, p.cfg.KillTree)
		if !res.IsSupported() {
			return facade.NewUnsupportedError(facade.CapabilityKillGracefully, p.fac)
		}
		if err := res.Value(); err != nil {
			return err
		}

		timer := time.NewTimer(grace)
		defer timer.Stop()
		select {
		case <-p.exitDone:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			// Graceful window elapsed; escalate.
		}
	}

	res := p.fac.KillForcefully(ctx, p.cfg.KillTree)
	if !res.IsSupported() {
		return facade.NewUnsupportedError(facade.CapabilityKillForcefully, p.fac)
	}
	if err := res.Value(); err != nil {
		return err
	}

	select {
	case <-p.exitDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Send queues line, terminated by the configured separator, for the stdin
// pump. It blocks while the stdin backlog is full; cancellation of ctx or a
// prior CloseStdin aborts the send.
func (p *Process) Send(ctx context.Context, line string) error {
	select {
	case <-p.stdinQuit:
		return ErrStdinClosed
	default:
	}
	select {
	case p.stdinLines <- line + p.sep:
		return nil
	case <-p.stdinQuit:
		return ErrStdinClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySend queues line like Send but never blocks; it reports false when the
// stdin backlog is full or stdin is closed.
func (p *Process) TrySend(line string) bool {
	select {
	case <-p.stdinQuit:
		return false
	default:
	}
	select {
	case p.stdinLines <- line + p.sep:
		return true
	default:
		return false
	}
}

// CloseStdin stops accepting input and, once queued lines are written,
// closes the process standard input so the child observes EOF. Safe to call
// repeatedly.
func (p *Process) CloseStdin() {
	p.stdinOnce.Do(func() {
		close(p.stdinQuit)
	})
}

// shutdown tears the engine's channels down: stdin stops accepting input and
// the output streams are cancelled. Lines still queued behind the merge
// stage are discarded.
func (p *Process) shutdown() {
	p.shutdownOnce.Do(func() {
		p.CloseStdin()
		if c, ok := p.stdout.(io.Closer); ok {
			_ = c.Close()
		}
		if c, ok := p.stderr.(io.Closer); ok {
			_ = c.Close()
		}
		go discard(p.stdoutLines)
		go discard(p.stderrLines)
	})
}

func discard(ch <-chan string) {
	for range ch {
	}
}
