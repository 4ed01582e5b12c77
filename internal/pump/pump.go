// Package pump converts blocking byte streams into suspendable rune channels
// and back. Each pump runs on a dedicated dispatch worker so the blocking
// read or write never occupies the caller.
package pump

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"
	"syscall"

	"golang.org/x/text/encoding"

	"github.com/mxslade/procmux/internal/dispatch"
)

// Reader pumps a blocking byte stream into a rune channel. A dedicated
// worker blocks on reads, decodes bytes using enc (nil means UTF-8
// passthrough) and forwards runes one at a time until end of stream, then
// closes the channel. The channel has unbounded capacity: the OS pipe
// buffer upstream is the real bound, so a slow consumer stalls the producer
// at the pipe, not here.
//
// The returned done channel observes the pump's completion: it delivers at
// most one error (end-of-stream and close races are not errors) and is then
// closed.
func Reader(pool *dispatch.Pool, r io.Reader, enc encoding.Encoding) (<-chan rune, <-chan error) {
	in := make(chan rune)
	out := make(chan rune)
	done := make(chan error, 1)

	pool.Go(func() { bridge(in, out) })
	pool.Go(func() {
		defer close(done)
		defer close(in)

		src := r
		if enc != nil {
			src = enc.NewDecoder().Reader(r)
		}
		br := bufio.NewReader(src)
		for {
			ch, _, err := br.ReadRune()
			if err != nil {
				if !errors.Is(err, io.EOF) && !isClosedStream(err) {
					done <- err
				}
				return
			}
			in <- ch
		}
	})
	return out, done
}

// Writer pumps runes from ch onto a blocking byte stream. The worker encodes
// and writes each rune and flushes after every line feed so line-buffered
// consumers observe output promptly. A write that fails because the stream
// is no longer available (the process already exited) ends the pump cleanly;
// that race between close and write is normal. Any other failure is
// delivered on the returned channel, which closes when the pump finishes.
//
// The pump keeps draining ch after a terminal write failure so producers
// blocked on the channel are released; it stops only when ch is closed.
func Writer(pool *dispatch.Pool, ch <-chan rune, w io.Writer, enc encoding.Encoding) <-chan error {
	done := make(chan error, 1)
	pool.Go(func() {
		defer close(done)

		dst := w
		if enc != nil {
			dst = enc.NewEncoder().Writer(w)
		}
		bw := bufio.NewWriter(dst)
		for r := range ch {
			if _, err := bw.WriteRune(r); err != nil {
				report(done, err)
				drain(ch)
				return
			}
			if r == '\n' {
				if err := bw.Flush(); err != nil {
					report(done, err)
					drain(ch)
					return
				}
			}
		}
		if err := bw.Flush(); err != nil {
			report(done, err)
		}
	})
	return done
}

func report(done chan<- error, err error) {
	if isClosedStream(err) {
		return
	}
	done <- err
}

func drain(ch <-chan rune) {
	for range ch {
	}
}

// isClosedStream reports whether err indicates the other end of the stream
// went away, which during shutdown is expected rather than exceptional.
func isClosedStream(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, os.ErrClosed) || errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EIO) {
		return true
	}
	return strings.Contains(err.Error(), "file already closed")
}
