package proc

import "errors"

// ErrStdinClosed is returned by Send once CloseStdin has been called.
var ErrStdinClosed = errors.New("proc: stdin closed")

// Events returns the merged event stream: stderr lines, stdout lines and the
// terminal exit event. The merge stage starts on the first call and there is
// a single stream per process; all calls return the same channel.
//
// The merge selects fairly among whichever sources are ready, so lines from
// the two streams interleave in no guaranteed order; within one stream,
// source order is preserved. Once the exit code is selected the Exit event
// is emitted and the stream ends, even if lines are still buffered behind
// it. Exit deliberately races ahead of buffered output: consumers that must
// not miss output should drain Events up to the point they stop caring, not
// assume every line precedes the exit event.
func (p *Process) Events() <-chan Event {
	p.eventsOnce.Do(func() {
		p.events = make(chan Event)
		go p.merge()
	})
	return p.events
}

func (p *Process) merge() {
	defer close(p.events)

	stdout, stderr := p.stdoutLines, p.stderrLines
	for {
		select {
		case line, ok := <-stderr:
			if !ok {
				stderr = nil
				continue
			}
			p.events <- Event{Type: EventStderr, Line: line}
		case line, ok := <-stdout:
			if !ok {
				stdout = nil
				continue
			}
			p.events <- Event{Type: EventStdout, Line: line}
		case <-p.exitDone:
			p.events <- Event{Type: EventExit, ExitCode: p.exitCode}
			return
		}
	}
}
