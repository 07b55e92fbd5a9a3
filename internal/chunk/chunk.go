// Package chunk slices a stream of encoded audio bytes into fixed-size
// transport frames.
package chunk

// DefaultFrameSize is the number of bytes sent per binary audio message:
// 1024 LINEAR16 samples, 64 ms at 16 kHz.
const DefaultFrameSize = 2048

// Buffer accumulates bytes and hands them out in frames of a fixed size,
// oldest first. Bytes that do not yet fill a frame are kept for the next
// call. A Buffer is owned by a single goroutine and is not safe for
// concurrent use.
type Buffer struct {
	buf []byte
	// off is the read position in buf; bytes before it were already drained.
	off int
}

// Append adds b to the end of the buffer. b is copied.
func (c *Buffer) Append(b []byte) {
	if c.off > 0 && c.off == len(c.buf) {
		c.buf = c.buf[:0]
		c.off = 0
	}
	c.buf = append(c.buf, b...)
}

// DrainReady removes and returns as many complete frames of frameSize bytes
// as are buffered. Each frame is an independent copy. When fewer than
// frameSize bytes are buffered it returns nil. frameSize must be positive.
func (c *Buffer) DrainReady(frameSize int) [][]byte {
	if frameSize <= 0 {
		panic("chunk: non-positive frame size")
	}
	n := (len(c.buf) - c.off) / frameSize
	if n == 0 {
		return nil
	}
	frames := make([][]byte, n)
	for i := range frames {
		frame := make([]byte, frameSize)
		copy(frame, c.buf[c.off:c.off+frameSize])
		frames[i] = frame
		c.off += frameSize
	}
	c.compact()
	return frames
}

// Len returns the number of buffered bytes not yet drained.
func (c *Buffer) Len() int { return len(c.buf) - c.off }

// Reset discards all buffered bytes.
func (c *Buffer) Reset() {
	c.buf = c.buf[:0]
	c.off = 0
}

// compact moves the remainder to the front once the drained prefix dominates
// the backing array, so the buffer does not grow without bound.
func (c *Buffer) compact() {
	if c.off == 0 {
		return
	}
	rest := len(c.buf) - c.off
	if c.off < rest {
		return
	}
	copy(c.buf, c.buf[c.off:])
	c.buf = c.buf[:rest]
	c.off = 0
}
