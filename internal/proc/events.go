package proc

// EventType tags entries on the merged process event stream.
type EventType string

const (
	EventStdout EventType = "stdout"
	EventStderr EventType = "stderr"
	EventExit   EventType = "exit"
)

// Event is one entry on the merged stream: a completed line from one of the
// output streams, or the terminal exit notification. An Exit event appears
// at most once and is always the final event.
type Event struct {
	Type     EventType
	Line     string
	ExitCode int
}
