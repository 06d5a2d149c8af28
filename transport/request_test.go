package transport_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ryanmoran/dockhand/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTCPTransport(t *testing.T, handler http.Handler) *transport.Transport {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	tr, err := transport.New(transport.Descriptor{
		Scheme: "tcp",
		Host:   server.Listener.Addr().String(),
	})
	require.NoError(t, err)
	return tr
}

func TestDo(t *testing.T) {
	t.Run("passes successful bodies through un-consumed", func(t *testing.T) {
		tr := newTCPTransport(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{"Containers":4}`)
		}))

		body, err := tr.Do(context.Background(), transport.Request{
			Method: http.MethodGet,
			Path:   "/info",
		})
		require.NoError(t, err)
		defer body.Close()

		buf, err := io.ReadAll(body)
		require.NoError(t, err)
		assert.Equal(t, `{"Containers":4}`, string(buf))
	})

	t.Run("treats 204 as success", func(t *testing.T) {
		tr := newTCPTransport(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))

		body, err := tr.Do(context.Background(), transport.Request{
			Method: http.MethodPost,
			Path:   "/containers/abc/start",
		})
		require.NoError(t, err)
		body.Close()
	})

	t.Run("sends the request body with its content type", func(t *testing.T) {
		var sawContentType, sawBody string
		tr := newTCPTransport(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sawContentType = r.Header.Get("Content-Type")
			buf, _ := io.ReadAll(r.Body)
			sawBody = string(buf)
			w.WriteHeader(http.StatusCreated)
		}))

		_, err := tr.DoString(context.Background(), transport.Request{
			Method:      http.MethodPost,
			Path:        "/containers/create",
			Body:        strings.NewReader(`{"Image":"alpine"}`),
			ContentType: "application/json",
		})
		require.NoError(t, err)
		assert.Equal(t, "application/json", sawContentType)
		assert.Equal(t, `{"Image":"alpine"}`, sawBody)
	})

	t.Run("attaches extra headers", func(t *testing.T) {
		var sawAuth string
		tr := newTCPTransport(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sawAuth = r.Header.Get("X-Registry-Auth")
		}))

		_, err := tr.DoString(context.Background(), transport.Request{
			Method:  http.MethodPost,
			Path:    "/images/create",
			Headers: http.Header{"X-Registry-Auth": []string{"c2VjcmV0"}},
		})
		require.NoError(t, err)
		assert.Equal(t, "c2VjcmV0", sawAuth)
	})

	t.Run("extracts the engine's error envelope", func(t *testing.T) {
		tr := newTCPTransport(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `{"message":"no such container"}`)
		}))

		_, err := tr.Do(context.Background(), transport.Request{
			Method: http.MethodGet,
			Path:   "/containers/nope/json",
		})

		var fault *transport.Fault
		require.ErrorAs(t, err, &fault)
		assert.Equal(t, http.StatusNotFound, fault.StatusCode)
		assert.Equal(t, "no such container", fault.Message)
	})

	t.Run("falls back to the reason phrase for unparseable error bodies", func(t *testing.T) {
		tr := newTCPTransport(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			io.WriteString(w, "something exploded")
		}))

		_, err := tr.Do(context.Background(), transport.Request{
			Method: http.MethodGet,
			Path:   "/info",
		})

		var fault *transport.Fault
		require.ErrorAs(t, err, &fault)
		assert.Equal(t, http.StatusInternalServerError, fault.StatusCode)
		assert.Equal(t, "Internal Server Error", fault.Message)
	})

	t.Run("falls back to a fixed message for unknown status codes", func(t *testing.T) {
		tr := newTCPTransport(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(599)
		}))

		_, err := tr.Do(context.Background(), transport.Request{
			Method: http.MethodGet,
			Path:   "/info",
		})

		var fault *transport.Fault
		require.ErrorAs(t, err, &fault)
		assert.Equal(t, 599, fault.StatusCode)
		assert.Equal(t, "unknown error code", fault.Message)
	})

	t.Run("surfaces network failures", func(t *testing.T) {
		tr, err := transport.New(transport.Descriptor{Scheme: "tcp", Host: "127.0.0.1:1"})
		require.NoError(t, err)

		_, err = tr.Do(context.Background(), transport.Request{
			Method: http.MethodGet,
			Path:   "/_ping",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to reach docker engine")
	})
}

func TestDoString(t *testing.T) {
	t.Run("buffers the whole response", func(t *testing.T) {
		tr := newTCPTransport(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "a large body")
		}))

		body, err := tr.DoString(context.Background(), transport.Request{
			Method: http.MethodGet,
			Path:   "/version",
		})
		require.NoError(t, err)
		assert.Equal(t, "a large body", body)
	})
}
