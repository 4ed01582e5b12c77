package proc

import (
	"runtime"

	"golang.org/x/text/encoding"
)

// Config is the immutable per-process snapshot recorded when the engine is
// constructed. The engine copies it by value and never reads it from shared
// state afterwards.
type Config struct {
	// Encoding decodes stdout/stderr bytes and encodes stdin. nil means
	// UTF-8 passthrough.
	Encoding encoding.Encoding

	// KillTree extends kill requests to descendant processes.
	KillTree bool

	// LineSeparator terminates lines written via Send. Empty selects the
	// platform default.
	LineSeparator string
}

func platformSeparator() string {
	if runtime.GOOS == "windows" {
		return "\r\n"
	}
	return "\n"
}
