// Package lines turns rune channels into channels of completed lines with
// cross-platform newline handling.
package lines

// Split consumes runes from in and produces one string per completed line,
// treating "\r", "\n" and "\r\n" each as a single line break. The resulting
// channel is lazy, finite and closes when in closes. Input that ends without
// a trailing terminator does not yield a final partial line: only terminated
// lines are emitted.
func Split(in <-chan rune) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)

		var buf []rune
		pendingCR := false
		for r := range in {
			switch r {
			case '\r':
				out <- string(buf)
				buf = buf[:0]
				pendingCR = true
			case '\n':
				// A line feed directly after a carriage return is the
				// second half of one CRLF break, not an empty line.
				if !pendingCR {
					out <- string(buf)
					buf = buf[:0]
				}
				pendingCR = false
			default:
				buf = append(buf, r)
				pendingCR = false
			}
		}
	}()
	return out
}
