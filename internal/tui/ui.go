// Package tui renders the merged event stream of one running process in an
// interactive terminal viewer.
package tui

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/mxslade/procmux/internal/proc"
)

// UI streams process events into a scrolling text view. Pressing q or
// Ctrl-C requests a two-phase kill; the view shuts down once the terminal
// exit event arrives.
type UI struct {
	app   *tview.Application
	view  *tview.TextView
	proc  *proc.Process
	grace time.Duration

	killOnce sync.Once
}

// New builds a viewer for p. grace is the graceful-kill window applied when
// the user requests termination.
func New(p *proc.Process, title string, grace time.Duration) *UI {
	app := tview.NewApplication()
	view := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	view.SetChangedFunc(func() {
		app.Draw()
	})
	view.SetBorder(true)
	view.SetTitle(fmt.Sprintf(" %s ", title))

	ui := &UI{app: app, view: view, proc: p, grace: grace}

	app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyCtrlC || (event.Key() == tcell.KeyRune && event.Rune() == 'q') {
			ui.requestKill()
			return nil
		}
		return event
	})
	app.SetRoot(view, true)
	return ui
}

// Run blocks until the process exits or the application is stopped.
func (u *UI) Run() error {
	go u.consume()
	return u.app.Run()
}

func (u *UI) consume() {
	for ev := range u.proc.Events() {
		if ev.Type == proc.EventExit {
			code := ev.ExitCode
			u.app.QueueUpdateDraw(func() {
				u.view.SetTitle(fmt.Sprintf(" exited with code %d ", code))
			})
			continue
		}
		fmt.Fprintf(u.view, "%s\n", FormatEvent(ev))
	}
	u.app.Stop()
}

// requestKill fires the two-phase kill once; repeated keypresses while the
// kill is in flight are ignored.
func (u *UI) requestKill() {
	u.killOnce.Do(func() {
		go func() {
			_ = u.proc.Kill(context.Background(), u.grace)
		}()
	})
}

// FormatEvent renders one line event with tview color tags, stderr in
// yellow so it stands out from stdout.
func FormatEvent(ev proc.Event) string {
	if ev.Type == proc.EventStderr {
		return fmt.Sprintf("[yellow]%s[-]", tview.Escape(ev.Line))
	}
	return tview.Escape(ev.Line)
}
