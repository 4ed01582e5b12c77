// Package cliutil renders merged process events for terminal consumers.
package cliutil

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mxslade/procmux/internal/proc"
)

// Record represents a structured process event ready for JSON encoding.
type Record struct {
	Timestamp time.Time `json:"ts"`
	Source    string    `json:"source"`
	Level     string    `json:"level"`
	Message   string    `json:"msg,omitempty"`
	ExitCode  *int      `json:"exitCode,omitempty"`
}

// NewRecord converts a process event into a structured record. Stderr lines
// are tagged warn, stdout lines info; the exit event reports the code both
// as a field and in the message.
func NewRecord(event proc.Event) Record {
	rec := Record{Timestamp: time.Now()}
	switch event.Type {
	case proc.EventStderr:
		rec.Source = "stderr"
		rec.Level = "warn"
		rec.Message = event.Line
	case proc.EventExit:
		code := event.ExitCode
		rec.Source = "system"
		rec.Level = "info"
		rec.Message = fmt.Sprintf("process exited with code %d", code)
		rec.ExitCode = &code
	default:
		rec.Source = "stdout"
		rec.Level = "info"
		rec.Message = event.Line
	}
	return rec
}

// Format renders the record as a single JSON line.
func (r Record) Format() (string, error) {
	payload, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encode record: %w", err)
	}
	return string(payload), nil
}

// FormatPretty renders the record as plain text for interactive terminals.
func (r Record) FormatPretty() string {
	return fmt.Sprintf("[%s] %s", r.Source, r.Message)
}
