package pump

// bridge links in to out through an elastic queue so sends on in never
// block. Go channels have fixed capacity; the queue supplies the unbounded
// capacity the read pump requires. It forwards in order, and closes out once
// in is closed and the queue has drained.
func bridge(in <-chan rune, out chan<- rune) {
	defer close(out)

	var queue []rune
	for in != nil || len(queue) > 0 {
		var (
			send chan<- rune
			next rune
		)
		if len(queue) > 0 {
			send = out
			next = queue[0]
		}
		select {
		case r, ok := <-in:
			if !ok {
				in = nil
				continue
			}
			queue = append(queue, r)
		case send <- next:
			queue = queue[1:]
		}
	}
}
