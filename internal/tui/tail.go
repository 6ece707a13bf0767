package tui

// lineRing keeps the last N rendered log lines. It is owned by the program
// goroutine and needs no locking.
type lineRing struct {
	size  int
	lines []string
	next  int
	full  bool
}

func newLineRing(size int) *lineRing {
	if size <= 0 {
		size = 1
	}
	return &lineRing{size: size, lines: make([]string, size)}
}

func (r *lineRing) add(line string) {
	r.lines[r.next] = line
	r.next++
	if r.next >= r.size {
		r.next = 0
		r.full = true
	}
}

// snapshot returns the buffered lines oldest first.
func (r *lineRing) snapshot() []string {
	if !r.full {
		out := make([]string, r.next)
		copy(out, r.lines[:r.next])
		return out
	}
	out := make([]string, r.size)
	copy(out, r.lines[r.next:])
	copy(out[r.size-r.next:], r.lines[:r.next])
	return out
}
