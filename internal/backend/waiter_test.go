package backend

import (
	"os/exec"
	stdruntime "runtime"
	"testing"
	"time"

	"github.com/mxslade/procmux/internal/dispatch"
)

func waitForCode(t *testing.T, cmd *exec.Cmd) int {
	t.Helper()
	pool := dispatch.New()
	w := NewWaiter(pool, cmd)

	if w.Pid().IsSupported() {
		t.Fatal("waiter unexpectedly supports pid lookup")
	}

	if err := cmd.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	codeCh := make(chan int, 1)
	if res := w.NotifyExit(func(code int) { codeCh <- code }); !res.IsSupported() {
		t.Fatal("waiter must support exit notification")
	}

	select {
	case code := <-codeCh:
		pool.Wait()
		return code
	case <-time.After(10 * time.Second):
		t.Fatal("exit callback never invoked")
		return 0
	}
}

func TestWaiterReportsZeroExit(t *testing.T) {
	if stdruntime.GOOS == "windows" {
		t.Skip("uses /bin/sh")
	}
	if code := waitForCode(t, exec.Command("/bin/sh", "-c", "exit 0")); code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
}

func TestWaiterReportsNonZeroExit(t *testing.T) {
	if stdruntime.GOOS == "windows" {
		t.Skip("uses /bin/sh")
	}
	if code := waitForCode(t, exec.Command("/bin/sh", "-c", "exit 3")); code != 3 {
		t.Fatalf("exit code = %d, want 3", code)
	}
}
