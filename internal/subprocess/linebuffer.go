package subprocess

import "bytes"

// lineBuffer accumulates stdout chunks and splits them into complete lines.
//
// The buffer never holds a complete line between calls: every newline-terminated
// segment is returned as soon as its terminator arrives and only the trailing
// partial segment is retained.
type lineBuffer struct {
	buf     []byte
	maxLine int
	// discarding is set while skipping the rest of an oversized line.
	discarding bool
}

// newLineBuffer creates a line buffer that drops lines longer than maxLine bytes.
func newLineBuffer(maxLine int) *lineBuffer {
	return &lineBuffer{maxLine: maxLine}
}

// Feed appends chunk and returns every line completed by it, in arrival order.
// Returned lines exclude the terminator and a trailing carriage return, and are
// owned by the caller. dropped counts oversized lines discarded by this call.
func (b *lineBuffer) Feed(chunk []byte) (lines [][]byte, dropped int) {
	for len(chunk) > 0 {
		idx := bytes.IndexByte(chunk, '\n')
		if idx < 0 {
			if !b.discarding {
				b.buf = append(b.buf, chunk...)
				if b.maxLine > 0 && len(b.buf) > b.maxLine {
					b.buf = b.buf[:0]
					b.discarding = true
					dropped++
				}
			}

			return lines, dropped
		}

		segment := chunk[:idx]
		chunk = chunk[idx+1:]

		if b.discarding {
			b.discarding = false

			continue
		}

		var line []byte
		if len(b.buf) == 0 {
			line = bytes.Clone(segment)
		} else {
			line = append(b.buf, segment...)
			b.buf = nil
		}

		if b.maxLine > 0 && len(line) > b.maxLine {
			dropped++

			continue
		}

		lines = append(lines, bytes.TrimSuffix(line, []byte{'\r'}))
	}

	return lines, dropped
}

// Pending returns the number of bytes of the incomplete trailing line.
func (b *lineBuffer) Pending() int {
	return len(b.buf)
}

// Reset discards any partial line.
func (b *lineBuffer) Reset() {
	b.buf = nil
	b.discarding = false
}
