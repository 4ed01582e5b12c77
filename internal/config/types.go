// Package config loads the procmux.yaml manifest describing how spawned
// processes are wrapped.
package config

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"

	"github.com/mxslade/procmux/internal/proc"
)

// Duration wraps time.Duration for YAML unmarshalling.
type Duration struct {
	time.Duration
}

// UnmarshalText parses durations in time.ParseDuration notation.
func (d *Duration) UnmarshalText(text []byte) error {
	trimmed := string(text)
	if trimmed == "" {
		d.Duration = 0
		return nil
	}
	dur, err := time.ParseDuration(trimmed)
	if err != nil {
		return err
	}
	d.Duration = dur
	return nil
}

// MarshalText renders the duration using time.Duration formatting.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// File is the root of the manifest.
type File struct {
	Process Process `yaml:"process"`
}

// Process holds the per-process settings applied to every spawned child.
type Process struct {
	// Encoding is the IANA charset name used for all three streams.
	Encoding string `yaml:"encoding"`

	// KillDescendants extends kill requests to the child's descendants.
	KillDescendants bool `yaml:"killDescendants"`

	// GracefulTimeout is the window a graceful kill gets before escalation.
	GracefulTimeout Duration `yaml:"gracefulTimeout"`

	// LineSeparator terminates lines sent to stdin: "auto", "lf", "crlf"
	// or "cr".
	LineSeparator string `yaml:"lineSeparator"`
}

const defaultGracefulTimeout = 5 * time.Second

func (p *Process) applyDefaults() {
	if p.Encoding == "" {
		p.Encoding = "utf-8"
	}
	if p.GracefulTimeout.Duration == 0 {
		p.GracefulTimeout.Duration = defaultGracefulTimeout
	}
	if p.LineSeparator == "" {
		p.LineSeparator = "auto"
	}
}

func (p *Process) validate() error {
	if p.GracefulTimeout.Duration < 0 {
		return fmt.Errorf("process.gracefulTimeout: must not be negative")
	}
	if _, err := resolveEncoding(p.Encoding); err != nil {
		return err
	}
	if _, err := resolveSeparator(p.LineSeparator); err != nil {
		return err
	}
	return nil
}

// Resolve converts the manifest settings into an engine configuration plus
// the graceful-kill window.
func (p Process) Resolve() (proc.Config, time.Duration, error) {
	enc, err := resolveEncoding(p.Encoding)
	if err != nil {
		return proc.Config{}, 0, err
	}
	sep, err := resolveSeparator(p.LineSeparator)
	if err != nil {
		return proc.Config{}, 0, err
	}
	cfg := proc.Config{
		Encoding:      enc,
		KillTree:      p.KillDescendants,
		LineSeparator: sep,
	}
	return cfg, p.GracefulTimeout.Duration, nil
}

func resolveEncoding(name string) (encoding.Encoding, error) {
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("process.encoding: unknown charset %q: %w", name, err)
	}
	// The index knows some charsets it cannot instantiate and returns a nil
	// encoding for them. Downstream a nil means UTF-8 passthrough, so only
	// names that genuinely are UTF-8 safe may resolve to it.
	if enc == nil && !utf8Passthrough(name) {
		return nil, fmt.Errorf("process.encoding: unsupported charset %q", name)
	}
	return enc, nil
}

func utf8Passthrough(name string) bool {
	switch strings.ToLower(name) {
	case "utf-8", "utf8", "us-ascii", "ascii":
		return true
	}
	return false
}

func resolveSeparator(name string) (string, error) {
	switch name {
	case "auto", "":
		return "", nil
	case "lf":
		return "\n", nil
	case "crlf":
		return "\r\n", nil
	case "cr":
		return "\r", nil
	default:
		return "", fmt.Errorf("process.lineSeparator: invalid value %q (want auto, lf, crlf or cr)", name)
	}
}
