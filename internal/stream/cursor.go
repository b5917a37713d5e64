package stream

// Cursor pairs a scratch buffer with the cumulative number of input bytes seen.
// It provides the two suspension primitives every tail or body state needs:
// buffering until an absolute input offset and buffering an exact length,
// independent of how the input was chunked.
type Cursor struct {
	buf    []byte
	offset int64
}

// Offset returns the cumulative input offset.
func (c *Cursor) Offset() int64 {
	return c.offset
}

// Advance records n input bytes consumed without buffering them.
func (c *Cursor) Advance(n int) {
	c.offset += int64(n)
}

// UntilOffset buffers bytes from p until the cumulative offset reaches target.
// It returns the unconsumed remainder of p and whether target was reached.
func (c *Cursor) UntilOffset(p []byte, target int64) ([]byte, bool) {
	if c.offset >= target {
		return p, true
	}

	take := min(int64(len(p)), target-c.offset)

	c.buf = append(c.buf, p[:take]...)
	c.offset += take

	return p[take:], c.offset >= target
}

// UntilLength buffers bytes from p until the scratch buffer holds n bytes.
// It returns the unconsumed remainder of p and whether n bytes are available.
func (c *Cursor) UntilLength(p []byte, n int) ([]byte, bool) {
	need := n - len(c.buf)
	if need <= 0 {
		return p, true
	}

	take := min(len(p), need)

	c.buf = append(c.buf, p[:take]...)
	c.offset += int64(take)

	return p[take:], len(c.buf) >= n
}

// Bytes returns the buffered bytes. The slice is valid until the next Reset.
func (c *Cursor) Bytes() []byte {
	return c.buf
}

// Reset clears the scratch buffer; the cumulative offset is kept.
func (c *Cursor) Reset() {
	c.buf = c.buf[:0]
}
