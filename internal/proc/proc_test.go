package proc

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mxslade/procmux/internal/dispatch"
	"github.com/mxslade/procmux/internal/facade"
)

// syncBuffer is a write sink tests can poll safely from another goroutine.
type syncBuffer struct {
	mu     sync.Mutex
	data   strings.Builder
	closed bool
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return 0, io.ErrClosedPipe
	}
	return b.data.Write(p)
}

func (b *syncBuffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func (b *syncBuffer) snapshot() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.data.String(), b.closed
}

type fakeHandle struct {
	stdout io.Reader
	stderr io.Reader
	stdin  io.WriteCloser
}

func (h *fakeHandle) Stdout() io.Reader     { return h.stdout }
func (h *fakeHandle) Stderr() io.Reader     { return h.stderr }
func (h *fakeHandle) Stdin() io.WriteCloser { return h.stdin }
func (h *fakeHandle) Pid() int              { return 42 }

// fakeFacade counts kill invocations and lets tests resolve the exit future
// on demand.
type fakeFacade struct {
	mu         sync.Mutex
	graceful   int
	forceful   int
	onGraceful func()
	onForceful func()
	exitFn     func(int)

	notifySupported   bool
	gracefulSupported bool
	forcefulSupported bool
}

func newFakeFacade() *fakeFacade {
	return &fakeFacade{notifySupported: true, gracefulSupported: true, forcefulSupported: true}
}

func (f *fakeFacade) Pid() facade.Result[int] {
	return facade.Supported(42)
}

func (f *fakeFacade) KillGracefully(context.Context, bool) facade.Result[error] {
	if !f.gracefulSupported {
		return facade.Unsupported[error]()
	}
	f.mu.Lock()
	f.graceful++
	fn := f.onGraceful
	f.mu.Unlock()
	if fn != nil {
		fn()
	}
	return facade.Supported[error](nil)
}

func (f *fakeFacade) KillForcefully(context.Context, bool) facade.Result[error] {
	if !f.forcefulSupported {
		return facade.Unsupported[error]()
	}
	f.mu.Lock()
	f.forceful++
	fn := f.onForceful
	f.mu.Unlock()
	if fn != nil {
		fn()
	}
	return facade.Supported[error](nil)
}

func (f *fakeFacade) NotifyExit(fn func(int)) facade.Result[struct{}] {
	if !f.notifySupported {
		return facade.Unsupported[struct{}]()
	}
	f.mu.Lock()
	f.exitFn = fn
	f.mu.Unlock()
	return facade.Supported(struct{}{})
}

func (f *fakeFacade) resolve(code int) {
	f.mu.Lock()
	fn := f.exitFn
	f.mu.Unlock()
	fn(code)
}

func (f *fakeFacade) counts() (graceful, forceful int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.graceful, f.forceful
}

type fixture struct {
	proc    *Process
	fac     *fakeFacade
	pool    *dispatch.Pool
	stdoutW *io.PipeWriter
	stderrW *io.PipeWriter
	stdin   *syncBuffer
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	stdoutR, stdoutW := io.Pipe()
	stderrR, stderrW := io.Pipe()
	stdin := &syncBuffer{}
	fac := newFakeFacade()
	pool := dispatch.New()

	p, err := New(&fakeHandle{stdout: stdoutR, stderr: stderrR, stdin: stdin}, fac, cfg, pool)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return &fixture{proc: p, fac: fac, pool: pool, stdoutW: stdoutW, stderrW: stderrW, stdin: stdin}
}

func (fx *fixture) closeOutputs() {
	_ = fx.stdoutW.Close()
	_ = fx.stderrW.Close()
}

func TestEventsMergeWithTerminalExit(t *testing.T) {
	fx := newFixture(t, Config{})
	events := fx.proc.Events()

	if _, err := io.WriteString(fx.stdoutW, "o1\n"); err != nil {
		t.Fatalf("write stdout: %v", err)
	}
	if _, err := io.WriteString(fx.stderrW, "e1\n"); err != nil {
		t.Fatalf("write stderr: %v", err)
	}

	seen := map[EventType]string{}
	for i := 0; i < 2; i++ {
		ev := <-events
		seen[ev.Type] = ev.Line
	}
	if seen[EventStdout] != "o1" || seen[EventStderr] != "e1" {
		t.Fatalf("line events = %v, want stdout o1 and stderr e1", seen)
	}

	// Exit becomes available only after both lines were delivered.
	fx.closeOutputs()
	fx.fac.resolve(0)

	ev, ok := <-events
	if !ok || ev.Type != EventExit || ev.ExitCode != 0 {
		t.Fatalf("terminal event = %+v (open=%t), want Exit(0)", ev, ok)
	}
	if _, ok := <-events; ok {
		t.Fatal("events channel still open after the exit event")
	}

	if code, err := fx.proc.Wait(context.Background()); err != nil || code != 0 {
		t.Fatalf("Wait = (%d, %v), want (0, nil)", code, err)
	}
	fx.pool.Wait()
}

func TestExitEndsEventsAheadOfBufferedLines(t *testing.T) {
	fx := newFixture(t, Config{})

	for i := 0; i < 32; i++ {
		if _, err := io.WriteString(fx.stdoutW, "buffered\n"); err != nil {
			t.Fatalf("write stdout: %v", err)
		}
	}
	fx.fac.resolve(0)
	fx.closeOutputs()

	sawExit := false
	for ev := range fx.proc.Events() {
		if sawExit {
			t.Fatalf("event %+v delivered after the terminal exit event", ev)
		}
		if ev.Type == EventExit {
			sawExit = true
		}
	}
	if !sawExit {
		t.Fatal("stream ended without an exit event")
	}

	if _, err := fx.proc.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	fx.pool.Wait()
}

func TestKillAfterExitIsNoOp(t *testing.T) {
	fx := newFixture(t, Config{})
	fx.fac.resolve(0)
	fx.closeOutputs()

	if err := fx.proc.Kill(context.Background(), time.Second); err != nil {
		t.Fatalf("Kill after exit: %v", err)
	}
	if g, f := fx.fac.counts(); g != 0 || f != 0 {
		t.Fatalf("kill invoked backends (graceful=%d forceful=%d), want none", g, f)
	}

	if _, err := fx.proc.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	fx.pool.Wait()
}

func TestKillEscalatesWhenGracefulTimesOut(t *testing.T) {
	fx := newFixture(t, Config{})
	// Graceful kill is acknowledged but never produces an exit; forceful
	// does.
	fx.fac.onForceful = func() {
		go func() {
			fx.fac.resolve(137)
			fx.closeOutputs()
		}()
	}

	if err := fx.proc.Kill(context.Background(), 20*time.Millisecond); err != nil {
		t.Fatalf("Kill: %v", err)
	}
	if g, f := fx.fac.counts(); g != 1 || f != 1 {
		t.Fatalf("graceful=%d forceful=%d, want 1 and 1", g, f)
	}

	select {
	case <-fx.proc.exitDone:
	default:
		t.Fatal("Kill returned before the exit was observed")
	}

	if code, err := fx.proc.Wait(context.Background()); err != nil || code != 137 {
		t.Fatalf("Wait = (%d, %v), want (137, nil)", code, err)
	}
	fx.pool.Wait()
}

func TestKillGracefulWindowSuffices(t *testing.T) {
	fx := newFixture(t, Config{})
	fx.fac.onGraceful = func() {
		go func() {
			fx.fac.resolve(0)
			fx.closeOutputs()
		}()
	}

	if err := fx.proc.Kill(context.Background(), 5*time.Second); err != nil {
		t.Fatalf("Kill: %v", err)
	}
	if g, f := fx.fac.counts(); g != 1 || f != 0 {
		t.Fatalf("graceful=%d forceful=%d, want 1 and 0", g, f)
	}

	if _, err := fx.proc.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	fx.pool.Wait()
}

func TestWaitCancellationCompensatesWithForcefulKill(t *testing.T) {
	fx := newFixture(t, Config{})
	fx.fac.onForceful = func() {
		go func() {
			fx.fac.resolve(137)
			fx.closeOutputs()
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := fx.proc.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Wait = %v, want context.Canceled", err)
	}
	if g, f := fx.fac.counts(); g != 0 || f != 1 {
		t.Fatalf("graceful=%d forceful=%d, want 0 and exactly 1", g, f)
	}
	fx.pool.Wait()
}

func TestKillWithoutCapableBackendFails(t *testing.T) {
	fx := newFixture(t, Config{})
	fx.fac.forcefulSupported = false

	err := fx.proc.Kill(context.Background(), 0)
	var unsupported *facade.UnsupportedError
	if !errors.As(err, &unsupported) {
		t.Fatalf("Kill = %v, want UnsupportedError", err)
	}
	if unsupported.Capability != facade.CapabilityKillForcefully {
		t.Fatalf("capability = %q, want %q", unsupported.Capability, facade.CapabilityKillForcefully)
	}

	fx.fac.resolve(0)
	fx.closeOutputs()
	if _, err := fx.proc.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	fx.pool.Wait()
}

func TestNewRequiresExitNotification(t *testing.T) {
	stdoutR, stdoutW := io.Pipe()
	stderrR, stderrW := io.Pipe()
	fac := newFakeFacade()
	fac.notifySupported = false
	pool := dispatch.New()

	_, err := New(&fakeHandle{stdout: stdoutR, stderr: stderrR, stdin: &syncBuffer{}}, fac, Config{}, pool)
	var unsupported *facade.UnsupportedError
	if !errors.As(err, &unsupported) {
		t.Fatalf("New = %v, want UnsupportedError", err)
	}
	if unsupported.Capability != facade.CapabilityNotifyExit {
		t.Fatalf("capability = %q, want %q", unsupported.Capability, facade.CapabilityNotifyExit)
	}

	_ = stdoutW.Close()
	_ = stderrW.Close()
	pool.Wait()
}

func TestSendAppendsSeparator(t *testing.T) {
	fx := newFixture(t, Config{LineSeparator: "\n"})

	if err := fx.proc.Send(context.Background(), "hello"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		if got, _ := fx.stdin.snapshot(); got == "hello\n" {
			break
		}
		if time.Now().After(deadline) {
			got, _ := fx.stdin.snapshot()
			t.Fatalf("stdin saw %q, want %q", got, "hello\n")
		}
		time.Sleep(time.Millisecond)
	}

	fx.proc.CloseStdin()
	for {
		if _, closed := fx.stdin.snapshot(); closed {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("stdin never closed after CloseStdin")
		}
		time.Sleep(time.Millisecond)
	}

	if err := fx.proc.Send(context.Background(), "late"); !errors.Is(err, ErrStdinClosed) {
		t.Fatalf("Send after close = %v, want ErrStdinClosed", err)
	}
	if fx.proc.TrySend("late") {
		t.Fatal("TrySend accepted input after CloseStdin")
	}

	fx.fac.resolve(0)
	fx.closeOutputs()
	if _, err := fx.proc.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	fx.pool.Wait()
}

func TestKillZeroGraceSkipsGraceful(t *testing.T) {
	fx := newFixture(t, Config{})
	fx.fac.onForceful = func() {
		go func() {
			fx.fac.resolve(137)
			fx.closeOutputs()
		}()
	}

	if err := fx.proc.Kill(context.Background(), 0); err != nil {
		t.Fatalf("Kill: %v", err)
	}
	if g, f := fx.fac.counts(); g != 0 || f != 1 {
		t.Fatalf("graceful=%d forceful=%d, want 0 and 1", g, f)
	}

	if code, err := fx.proc.Wait(context.Background()); err != nil || code != 137 {
		t.Fatalf("Wait = (%d, %v), want (137, nil)", code, err)
	}
	fx.pool.Wait()
}
