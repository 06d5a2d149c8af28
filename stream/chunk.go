package stream

import (
	"io"
)

// chunkSize matches the read granularity used by the engine's own tooling.
const chunkSize = 32 * 1024

// Chunks wraps a response body as a pull-driven sequence of byte buffers in
// network-arrival order. No read is issued against the connection before the
// previous buffer has been yielded, which bounds in-flight data to one chunk.
// The sequence is finite for ordinary bodies and effectively unbounded for
// follow-mode endpoints such as event feeds and live stats.
type Chunks struct {
	body io.ReadCloser
	buf  []byte
	err  error
}

// NewChunks takes ownership of body. The caller must not read from it again.
func NewChunks(body io.ReadCloser) *Chunks {
	return &Chunks{
		body: body,
		buf:  make([]byte, chunkSize),
	}
}

// Next blocks until the next buffer arrives and returns it. It returns
// io.EOF when the body is exhausted and the underlying read error otherwise;
// after either, every subsequent call returns the same error. The returned
// slice is only valid until the next call to Next.
func (c *Chunks) Next() ([]byte, error) {
	if c.err != nil {
		return nil, c.err
	}

	for {
		n, err := c.body.Read(c.buf)
		if n > 0 {
			// Deliver the bytes first; a read error, io.EOF included,
			// surfaces on the following call.
			return c.buf[:n], nil
		}
		if err != nil {
			c.err = err
			return nil, c.err
		}
	}
}

// Close releases the underlying connection. Dropping the stream this way is
// the cancellation mechanism; no further buffers are produced afterwards.
func (c *Chunks) Close() error {
	if c.err == nil {
		c.err = io.EOF
	}
	return c.body.Close()
}
