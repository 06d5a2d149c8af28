package stream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// JSON layers an incremental JSON parse over a chunk stream, yielding every
// complete top-level value of each delivered buffer in document order before
// the next buffer is requested.
//
// A single document is assumed never to be split across two delivered
// buffers; the endpoints this serves emit whole values per chunk. If the
// transport does fragment a document, parsing fails and the stream ends with
// that error.
type JSON struct {
	chunks *Chunks
	dec    *json.Decoder
	err    error
}

// NewJSON takes ownership of the chunk stream.
func NewJSON(chunks *Chunks) *JSON {
	return &JSON{chunks: chunks}
}

// Next returns the next top-level JSON value. It returns io.EOF on clean
// exhaustion and a parse or transport error otherwise; after either, every
// subsequent call returns the same error.
func (j *JSON) Next() (json.RawMessage, error) {
	if j.err != nil {
		return nil, j.err
	}

	for {
		if j.dec != nil && j.dec.More() {
			var value json.RawMessage
			err := j.dec.Decode(&value)
			if err != nil {
				j.err = fmt.Errorf("failed to parse JSON value from stream: %w", err)
				return nil, j.err
			}
			return value, nil
		}

		chunk, err := j.chunks.Next()
		if err != nil {
			j.err = err
			return nil, j.err
		}
		j.dec = json.NewDecoder(bytes.NewReader(chunk))
	}
}

// Decode unmarshals the next value into v.
func (j *JSON) Decode(v any) error {
	value, err := j.Next()
	if err != nil {
		return err
	}
	if err := json.Unmarshal(value, v); err != nil {
		j.err = fmt.Errorf("failed to decode JSON value from stream: %w", err)
		return j.err
	}
	return nil
}

// Close releases the underlying connection.
func (j *JSON) Close() error {
	if j.err == nil {
		j.err = io.EOF
	}
	return j.chunks.Close()
}
