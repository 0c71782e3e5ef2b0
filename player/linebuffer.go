package player

// LineBuffer reassembles lines from arbitrarily chunked output.
//
// A line ends at "\n", "\r" or "\r\n". A "\r" that ends a chunk is held back
// until the next byte arrives, so a "\r\n" split across two reads still counts
// as one terminator.
type LineBuffer struct {
	tail []byte
	cr   bool
}

// Feed appends chunk and returns every line it completes, without terminators.
func (b *LineBuffer) Feed(chunk []byte) []string {
	var lines []string

	for _, c := range chunk {
		if b.cr {
			b.cr = false
			lines = append(lines, b.take())
			if c == '\n' {
				continue
			}
		}

		switch c {
		case '\n':
			lines = append(lines, b.take())
		case '\r':
			b.cr = true
		default:
			b.tail = append(b.tail, c)
		}
	}

	return lines
}

// Pending returns the unterminated remainder.
func (b *LineBuffer) Pending() string {
	return string(b.tail)
}

// Flush returns the remainder as a final line and clears the buffer.
// ok is false when there was nothing to return.
func (b *LineBuffer) Flush() (line string, ok bool) {
	if !b.cr && len(b.tail) == 0 {
		return "", false
	}
	b.cr = false
	return b.take(), true
}

// Reset discards the remainder.
func (b *LineBuffer) Reset() {
	b.tail = b.tail[:0]
	b.cr = false
}

func (b *LineBuffer) take() string {
	line := string(b.tail)
	b.tail = b.tail[:0]
	return line
}
