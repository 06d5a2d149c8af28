package stream_test

import (
	"io"
	"testing"

	"github.com/ryanmoran/dockhand/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunks(t *testing.T) {
	t.Run("yields buffers in arrival order", func(t *testing.T) {
		chunks := stream.NewChunks(newScriptedBody([][]byte{
			[]byte("first"),
			[]byte("second"),
			[]byte("third"),
		}, nil))

		var received []string
		for {
			chunk, err := chunks.Next()
			if err == io.EOF {
				break
			}
			require.NoError(t, err)
			received = append(received, string(chunk))
		}

		assert.Equal(t, []string{"first", "second", "third"}, received)
	})

	t.Run("skips empty reads without ending the stream", func(t *testing.T) {
		chunks := stream.NewChunks(newScriptedBody([][]byte{
			[]byte("data"),
			{},
			[]byte("more"),
		}, nil))

		chunk, err := chunks.Next()
		require.NoError(t, err)
		assert.Equal(t, "data", string(chunk))

		chunk, err = chunks.Next()
		require.NoError(t, err)
		assert.Equal(t, "more", string(chunk))
	})

	t.Run("surfaces read errors as terminal", func(t *testing.T) {
		chunks := stream.NewChunks(newScriptedBody([][]byte{
			[]byte("partial"),
		}, assert.AnError))

		_, err := chunks.Next()
		require.NoError(t, err)

		_, err = chunks.Next()
		require.ErrorIs(t, err, assert.AnError)

		_, err = chunks.Next()
		require.ErrorIs(t, err, assert.AnError)
	})

	t.Run("close releases the body and ends the stream", func(t *testing.T) {
		body := newScriptedBody([][]byte{[]byte("unread")}, nil)
		chunks := stream.NewChunks(body)

		require.NoError(t, chunks.Close())
		assert.True(t, body.closed)

		_, err := chunks.Next()
		require.ErrorIs(t, err, io.EOF)
	})
}
