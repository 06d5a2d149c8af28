package dockhand_test

import (
	"context"
	"encoding/binary"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/moby/moby/api/types/container"
	"github.com/ryanmoran/dockhand"
	"github.com/ryanmoran/dockhand/stream"
	"github.com/ryanmoran/dockhand/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newFakeEngine stands up an HTTP server playing the role of the engine and
// returns a client connected to it over plain TCP.
func newFakeEngine(t *testing.T, handler http.Handler) *dockhand.Docker {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	docker, err := dockhand.New(dockhand.Config{
		Host: "tcp://" + server.Listener.Addr().String(),
	})
	require.NoError(t, err)
	return docker
}

func muxFrame(streamType byte, payload string) []byte {
	header := make([]byte, 8)
	header[0] = streamType
	binary.BigEndian.PutUint32(header[4:8], uint32(len(payload)))
	return append(header, payload...)
}

func TestContainers(t *testing.T) {
	t.Run("List decodes container summaries", func(t *testing.T) {
		docker := newFakeEngine(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/containers/json", r.URL.Path)
			assert.Equal(t, "1", r.URL.Query().Get("all"))
			io.WriteString(w, `[{"Id":"abc123","Image":"alpine","State":"running","Names":["/busy"]}]`)
		}))

		summaries, err := docker.Containers().List(context.Background(), &dockhand.ContainerListOptions{All: true})
		require.NoError(t, err)
		require.Len(t, summaries, 1)
		assert.Equal(t, "abc123", summaries[0].ID)
		assert.Equal(t, "alpine", summaries[0].Image)
	})

	t.Run("List encodes filters", func(t *testing.T) {
		docker := newFakeEngine(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.JSONEq(t, `{"label":["env=prod"]}`, r.URL.Query().Get("filters"))
			io.WriteString(w, `[]`)
		}))

		_, err := docker.Containers().List(context.Background(), &dockhand.ContainerListOptions{
			Filters: map[string][]string{"label": {"env=prod"}},
		})
		require.NoError(t, err)
	})

	t.Run("Inspect surfaces engine faults", func(t *testing.T) {
		docker := newFakeEngine(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `{"message":"no such container"}`)
		}))

		_, err := docker.Containers().Get("nope").Inspect(context.Background())

		var fault *transport.Fault
		require.ErrorAs(t, err, &fault)
		assert.Equal(t, http.StatusNotFound, fault.StatusCode)
		assert.Equal(t, "no such container", fault.Message)
	})

	t.Run("Create names the container and returns a handle", func(t *testing.T) {
		docker := newFakeEngine(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/containers/create", r.URL.Path)
			assert.Equal(t, "worker", r.URL.Query().Get("name"))
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

			body, _ := io.ReadAll(r.Body)
			assert.Contains(t, string(body), `"Image":"alpine"`)

			w.WriteHeader(http.StatusCreated)
			io.WriteString(w, `{"Id":"created123","Warnings":[]}`)
		}))

		created, err := docker.Containers().Create(context.Background(), "worker", &container.Config{Image: "alpine"}, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, "created123", created.ID())
	})

	t.Run("Logs demultiplexes the output stream", func(t *testing.T) {
		docker := newFakeEngine(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/containers/abc/logs", r.URL.Path)
			assert.Equal(t, "1", r.URL.Query().Get("stdout"))

			w.Write(muxFrame(1, "hello from stdout\n"))
			w.Write(muxFrame(2, "hello from stderr\n"))
		}))

		logs, err := docker.Containers().Get("abc").Logs(context.Background(), &dockhand.LogsOptions{
			Stdout: true,
			Stderr: true,
		})
		require.NoError(t, err)
		defer logs.Close()

		frame, err := logs.Next()
		require.NoError(t, err)
		assert.Equal(t, stream.Stdout, frame.Type)
		assert.Equal(t, "hello from stdout\n", string(frame.Payload))

		frame, err = logs.Next()
		require.NoError(t, err)
		assert.Equal(t, stream.Stderr, frame.Type)

		_, err = logs.Next()
		require.ErrorIs(t, err, io.EOF)
	})

	t.Run("Stats yields one JSON value per sample", func(t *testing.T) {
		docker := newFakeEngine(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			flusher := w.(http.Flusher)
			io.WriteString(w, `{"cpu_stats":{"online_cpus":2}}`+"\n")
			flusher.Flush()
			io.WriteString(w, `{"cpu_stats":{"online_cpus":4}}`+"\n")
		}))

		stats, err := docker.Containers().Get("abc").Stats(context.Background())
		require.NoError(t, err)
		defer stats.Close()

		var sample struct {
			CPUStats struct {
				OnlineCPUs int `json:"online_cpus"`
			} `json:"cpu_stats"`
		}
		require.NoError(t, stats.Decode(&sample))
		assert.Equal(t, 2, sample.CPUStats.OnlineCPUs)

		require.NoError(t, stats.Decode(&sample))
		assert.Equal(t, 4, sample.CPUStats.OnlineCPUs)
	})

	t.Run("Stop encodes the timeout", func(t *testing.T) {
		docker := newFakeEngine(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/containers/abc/stop", r.URL.Path)
			assert.Equal(t, "10", r.URL.Query().Get("t"))
			w.WriteHeader(http.StatusNoContent)
		}))

		require.NoError(t, docker.Containers().Get("abc").Stop(context.Background(), 10))
	})

	t.Run("Wait returns the exit status", func(t *testing.T) {
		docker := newFakeEngine(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			io.WriteString(w, `{"StatusCode":137}`)
		}))

		response, err := docker.Containers().Get("abc").Wait(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(137), response.StatusCode)
	})

	t.Run("CopyTo uploads a tar archive with PUT", func(t *testing.T) {
		docker := newFakeEngine(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPut, r.Method)
			assert.Equal(t, "/containers/abc/archive", r.URL.Path)
			assert.Equal(t, "/app", r.URL.Query().Get("path"))
			assert.Equal(t, "application/x-tar", r.Header.Get("Content-Type"))
		}))

		err := docker.Containers().Get("abc").CopyTo(context.Background(), "/app", strings.NewReader("tarball"))
		require.NoError(t, err)
	})
}

func TestExec(t *testing.T) {
	t.Run("creates and attaches to an exec instance", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/containers/abc/exec", func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			assert.Contains(t, string(body), `"Cmd":["ls","-la"]`)
			w.WriteHeader(http.StatusCreated)
			io.WriteString(w, `{"Id":"exec456"}`)
		})
		mux.HandleFunc("/exec/exec456/start", func(w http.ResponseWriter, r *http.Request) {
			conn, _, err := w.(http.Hijacker).Hijack()
			require.NoError(t, err)
			defer conn.Close()

			io.WriteString(conn, "HTTP/1.1 101 UPGRADED\r\nConnection: Upgrade\r\nUpgrade: tcp\r\n\r\n")
			conn.Write(muxFrame(1, "total 0\n"))
		})

		docker := newFakeEngine(t, mux)

		exec, err := docker.Containers().Get("abc").ExecCreate(context.Background(), container.ExecCreateRequest{
			Cmd:          []string{"ls", "-la"},
			AttachStdout: true,
		})
		require.NoError(t, err)
		assert.Equal(t, "exec456", exec.ID())

		conn, err := exec.Start(context.Background(), false)
		require.NoError(t, err)
		defer conn.Close()

		output := stream.NewDemuxer(stream.NewChunks(conn))
		frame, err := output.Next()
		require.NoError(t, err)
		assert.Equal(t, stream.Stdout, frame.Type)
		assert.Equal(t, "total 0\n", string(frame.Payload))
	})
}

func TestImages(t *testing.T) {
	t.Run("Pull streams progress updates and forwards auth", func(t *testing.T) {
		docker := newFakeEngine(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/images/create", r.URL.Path)
			assert.Equal(t, "alpine:latest", r.URL.Query().Get("fromImage"))
			assert.Equal(t, "c2VjcmV0", r.Header.Get("X-Registry-Auth"))

			io.WriteString(w, `{"status":"Pulling from library/alpine"}`+"\n")
			io.WriteString(w, `{"status":"Download complete"}`+"\n")
		}))

		progress, err := docker.Images().Pull(context.Background(), "alpine:latest", "c2VjcmV0")
		require.NoError(t, err)
		defer progress.Close()

		var statuses []string
		for {
			var update struct {
				Status string `json:"status"`
			}
			err := progress.Decode(&update)
			if err == io.EOF {
				break
			}
			require.NoError(t, err)
			statuses = append(statuses, update.Status)
		}

		assert.Equal(t, []string{"Pulling from library/alpine", "Download complete"}, statuses)
	})

	t.Run("Remove reports untagged references", func(t *testing.T) {
		docker := newFakeEngine(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodDelete, r.Method)
			assert.Equal(t, "/images/alpine", r.URL.Path)
			io.WriteString(w, `[{"Untagged":"alpine:latest"}]`)
		}))

		responses, err := docker.Images().Get("alpine").Remove(context.Background(), false)
		require.NoError(t, err)
		require.Len(t, responses, 1)
		assert.Equal(t, "alpine:latest", responses[0].Untagged)
	})
}

func TestEvents(t *testing.T) {
	docker := newFakeEngine(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/events", r.URL.Path)
		io.WriteString(w, `{"Type":"container","Action":"start","Actor":{"ID":"abc123"}}`+"\n")
		io.WriteString(w, `{"Type":"container","Action":"die","Actor":{"ID":"abc123"}}`+"\n")
	}))

	feed, err := docker.Events(context.Background(), nil)
	require.NoError(t, err)
	defer feed.Close()

	first, err := dockhand.NextEvent(feed)
	require.NoError(t, err)
	assert.Equal(t, "start", string(first.Action))
	assert.Equal(t, "abc123", first.Actor.ID)

	second, err := dockhand.NextEvent(feed)
	require.NoError(t, err)
	assert.Equal(t, "die", string(second.Action))

	_, err = dockhand.NextEvent(feed)
	require.ErrorIs(t, err, io.EOF)
}

func TestEngineStatus(t *testing.T) {
	t.Run("Version decodes engine details", func(t *testing.T) {
		docker := newFakeEngine(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/version", r.URL.Path)
			io.WriteString(w, `{"Version":"27.0.1","ApiVersion":"1.46","Os":"linux","Arch":"amd64"}`)
		}))

		version, err := docker.Version(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "27.0.1", version.Version)
		assert.Equal(t, "1.46", version.APIVersion)
	})

	t.Run("Info decodes host details", func(t *testing.T) {
		docker := newFakeEngine(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/info", r.URL.Path)
			io.WriteString(w, `{"ID":"engine-1","Containers":3,"ContainersRunning":2,"ServerVersion":"27.0.1","OperatingSystem":"Alpine Linux"}`)
		}))

		info, err := docker.Info(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "engine-1", info.ID)
		assert.Equal(t, 3, info.Containers)
		assert.Equal(t, "27.0.1", info.ServerVersion)
	})

	t.Run("Ping succeeds against a healthy engine", func(t *testing.T) {
		docker := newFakeEngine(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "OK")
		}))

		require.NoError(t, docker.Ping(context.Background()))
	})
}

func TestConfiguredHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "custom-value", r.Header.Get("X-Custom"))
		io.WriteString(w, "OK")
	}))
	defer server.Close()

	docker, err := dockhand.New(dockhand.Config{
		Host:    "tcp://" + server.Listener.Addr().String(),
		Headers: map[string]string{"X-Custom": "custom-value"},
	})
	require.NoError(t, err)

	require.NoError(t, docker.Ping(context.Background()))
}
