package stream_test

// scriptedBody plays back a fixed sequence of reads, ending with io.EOF or a
// scripted error, standing in for a response body delivered in known chunks.

import (
	"io"
)

type scriptedBody struct {
	chunks   [][]byte
	finalErr error
	closed   bool
}

func newScriptedBody(chunks [][]byte, finalErr error) *scriptedBody {
	return &scriptedBody{chunks: chunks, finalErr: finalErr}
}

func (b *scriptedBody) Read(p []byte) (int, error) {
	if len(b.chunks) == 0 {
		if b.finalErr != nil {
			return 0, b.finalErr
		}
		return 0, io.EOF
	}

	chunk := b.chunks[0]
	b.chunks = b.chunks[1:]
	n := copy(p, chunk)
	return n, nil
}

func (b *scriptedBody) Close() error {
	b.closed = true
	return nil
}
