package stream

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

// StdType tags which logical stream a frame's payload belongs to.
type StdType byte

const (
	Stdin StdType = iota
	Stdout
	Stderr
)

func (t StdType) String() string {
	switch t {
	case Stdin:
		return "stdin"
	case Stdout:
		return "stdout"
	case Stderr:
		return "stderr"
	default:
		return "unknown"
	}
}

// Frame is one unit of the engine's multiplexed output protocol: a stream
// tag and its payload bytes.
type Frame struct {
	Type    StdType
	Payload []byte
}

// ErrTruncated is returned by a Demuxer whose underlying stream ended
// mid-header or mid-payload.
var ErrTruncated = errors.New("multiplexed stream ended inside a frame")

// headerLen is the fixed frame header size:
// [tag:1][reserved:3][payload length:4 big-endian].
const headerLen = 8

// Demuxer decodes the engine's multiplexed stdout/stderr framing into a
// pull-driven sequence of frames. Bytes received but not yet consumed into a
// complete header or payload accumulate in a residual buffer, so the decoded
// frames are identical regardless of how the byte stream was chunked in
// transit. A frame is only ever emitted once its full header and payload
// have been observed.
type Demuxer struct {
	chunks   *Chunks
	residual bytes.Buffer
	err      error

	// decoding state: either awaiting a header, or awaiting payload bytes
	// for the frame described by frameType and remaining.
	awaitingPayload bool
	frameType       StdType
	remaining       uint32
}

// NewDemuxer takes ownership of the chunk stream.
func NewDemuxer(chunks *Chunks) *Demuxer {
	return &Demuxer{chunks: chunks}
}

// Next returns the next complete frame. It returns io.EOF when the stream
// ends cleanly at a frame boundary, ErrTruncated when it ends inside a
// frame, and the underlying transport error otherwise; after any of these,
// every subsequent call returns the same error.
func (d *Demuxer) Next() (Frame, error) {
	if d.err != nil {
		return Frame{}, d.err
	}

	for {
		if d.awaitingPayload {
			if d.residual.Len() >= int(d.remaining) {
				payload := make([]byte, d.remaining)
				_, _ = d.residual.Read(payload)
				d.awaitingPayload = false
				return Frame{Type: d.frameType, Payload: payload}, nil
			}
		} else if d.residual.Len() >= headerLen {
			var header [headerLen]byte
			_, _ = d.residual.Read(header[:])
			d.frameType = StdType(header[0])
			d.remaining = binary.BigEndian.Uint32(header[4:8])
			d.awaitingPayload = true
			continue
		}

		chunk, err := d.chunks.Next()
		if err != nil {
			if err == io.EOF && (d.awaitingPayload || d.residual.Len() > 0) {
				err = ErrTruncated
			}
			d.err = err
			return Frame{}, d.err
		}
		d.residual.Write(chunk)
	}
}

// Close releases the underlying connection without waiting for the stream to
// end; no further frames are produced.
func (d *Demuxer) Close() error {
	if d.err == nil {
		d.err = io.EOF
	}
	return d.chunks.Close()
}

// Copy drains the demuxer, writing stdout payloads to dst and stderr
// payloads to dsterr, until the stream ends. Stdin-tagged frames, which only
// appear on logs of a stdin-attached container, go to dst. It returns the
// number of payload bytes written.
func Copy(dst, dsterr io.Writer, d *Demuxer) (int64, error) {
	var written int64
	for {
		frame, err := d.Next()
		if err != nil {
			if err == io.EOF {
				return written, nil
			}
			return written, err
		}

		target := dst
		if frame.Type == Stderr {
			target = dsterr
		}

		n, err := target.Write(frame.Payload)
		written += int64(n)
		if err != nil {
			return written, err
		}
	}
}
