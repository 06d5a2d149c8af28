package dockhand

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/moby/moby/api/types/container"
	"github.com/moby/moby/api/types/network"
	"github.com/ryanmoran/dockhand/stream"
	"github.com/ryanmoran/dockhand/transport"
)

// Containers is the resource group for container endpoints.
type Containers struct {
	docker *Docker
}

// ContainerListOptions narrows the result of List.
type ContainerListOptions struct {
	All     bool
	Limit   int
	Since   string
	Before  string
	Size    bool
	Filters map[string][]string
}

func (o *ContainerListOptions) values() url.Values {
	values := url.Values{}
	if o == nil {
		return values
	}
	if o.All {
		values.Set("all", "1")
	}
	if o.Limit > 0 {
		values.Set("limit", strconv.Itoa(o.Limit))
	}
	if o.Since != "" {
		values.Set("since", o.Since)
	}
	if o.Before != "" {
		values.Set("before", o.Before)
	}
	if o.Size {
		values.Set("size", "1")
	}
	encodeFilters(values, o.Filters)
	return values
}

// List returns summaries of containers known to the engine.
func (c *Containers) List(ctx context.Context, options *ContainerListOptions) ([]container.Summary, error) {
	var summaries []container.Summary
	err := c.docker.getJSON(ctx, withQuery("/containers/json", options.values()), &summaries)
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}
	return summaries, nil
}

// Create creates a container and returns a handle to it. The name may be
// empty, in which case the engine picks one.
func (c *Containers) Create(ctx context.Context, name string, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig) (*Container, error) {
	values := url.Values{}
	if name != "" {
		values.Set("name", name)
	}

	payload := struct {
		*container.Config
		HostConfig       *container.HostConfig     `json:"HostConfig,omitempty"`
		NetworkingConfig *network.NetworkingConfig `json:"NetworkingConfig,omitempty"`
	}{
		Config:           config,
		HostConfig:       hostConfig,
		NetworkingConfig: networkingConfig,
	}

	var response container.CreateResponse
	err := c.docker.postJSON(ctx, withQuery("/containers/create", values), payload, &response)
	if err != nil {
		return nil, fmt.Errorf("failed to create container %q: %w", name, err)
	}

	return c.Get(response.ID), nil
}

// Get returns a handle for the container with the given id or name. No
// request is issued; a handle to a nonexistent container fails on first use.
func (c *Containers) Get(id string) *Container {
	return &Container{docker: c.docker, id: id}
}

// Container is a handle for one container.
type Container struct {
	docker *Docker
	id     string
}

// ID returns the id or name this handle was built with.
func (c *Container) ID() string {
	return c.id
}

// Inspect returns the engine's full view of the container.
func (c *Container) Inspect(ctx context.Context) (container.InspectResponse, error) {
	var response container.InspectResponse
	err := c.docker.getJSON(ctx, "/containers/"+c.id+"/json", &response)
	if err != nil {
		return container.InspectResponse{}, fmt.Errorf("failed to inspect container %q: %w", c.id, err)
	}
	return response, nil
}

// Top lists the processes running inside the container.
func (c *Container) Top(ctx context.Context, psArgs string) (container.TopResponse, error) {
	values := url.Values{}
	if psArgs != "" {
		values.Set("ps_args", psArgs)
	}

	var response container.TopResponse
	err := c.docker.getJSON(ctx, withQuery("/containers/"+c.id+"/top", values), &response)
	if err != nil {
		return container.TopResponse{}, fmt.Errorf("failed to list processes in container %q: %w", c.id, err)
	}
	return response, nil
}

// LogsOptions narrows the result of Logs.
type LogsOptions struct {
	Follow     bool
	Stdout     bool
	Stderr     bool
	Timestamps bool
	Tail       string
	Since      string
}

func (o *LogsOptions) values() url.Values {
	values := url.Values{}
	if o == nil {
		// Logs with no options still needs at least one stream selected.
		values.Set("stdout", "1")
		values.Set("stderr", "1")
		return values
	}
	if o.Follow {
		values.Set("follow", "1")
	}
	if o.Stdout {
		values.Set("stdout", "1")
	}
	if o.Stderr {
		values.Set("stderr", "1")
	}
	if o.Timestamps {
		values.Set("timestamps", "1")
	}
	if o.Tail != "" {
		values.Set("tail", o.Tail)
	}
	if o.Since != "" {
		values.Set("since", o.Since)
	}
	return values
}

// Logs streams the container's output, demultiplexed into stdout and stderr
// frames. With Follow set the sequence does not end until the container
// stops or the demuxer is closed.
func (c *Container) Logs(ctx context.Context, options *LogsOptions) (*stream.Demuxer, error) {
	chunks, err := c.docker.streamGet(ctx, withQuery("/containers/"+c.id+"/logs", options.values()))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch logs for container %q: %w", c.id, err)
	}
	return stream.NewDemuxer(chunks), nil
}

// Stats streams the container's live resource statistics as JSON values, one
// sample per value, until closed.
func (c *Container) Stats(ctx context.Context) (*stream.JSON, error) {
	chunks, err := c.docker.streamGet(ctx, "/containers/"+c.id+"/stats")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch stats for container %q: %w", c.id, err)
	}
	return stream.NewJSON(chunks), nil
}

// Export streams the container's filesystem as a tar archive.
func (c *Container) Export(ctx context.Context) (*stream.Chunks, error) {
	chunks, err := c.docker.streamGet(ctx, "/containers/"+c.id+"/export")
	if err != nil {
		return nil, fmt.Errorf("failed to export container %q: %w", c.id, err)
	}
	return chunks, nil
}

// Changes lists filesystem changes made since the container was created.
func (c *Container) Changes(ctx context.Context) ([]container.FilesystemChange, error) {
	var changes []container.FilesystemChange
	err := c.docker.getJSON(ctx, "/containers/"+c.id+"/changes", &changes)
	if err != nil {
		return nil, fmt.Errorf("failed to list changes in container %q: %w", c.id, err)
	}
	return changes, nil
}

// Start starts the container.
func (c *Container) Start(ctx context.Context) error {
	_, err := c.docker.post(ctx, "/containers/"+c.id+"/start", nil, "")
	if err != nil {
		return fmt.Errorf("failed to start container %q: %w", c.id, err)
	}
	return nil
}

// Stop gracefully stops the container, waiting up to timeout seconds before
// the engine kills it. A negative timeout uses the engine default.
func (c *Container) Stop(ctx context.Context, timeout int) error {
	values := url.Values{}
	if timeout >= 0 {
		values.Set("t", strconv.Itoa(timeout))
	}
	_, err := c.docker.post(ctx, withQuery("/containers/"+c.id+"/stop", values), nil, "")
	if err != nil {
		return fmt.Errorf("failed to stop container %q: %w", c.id, err)
	}
	return nil
}

// Restart stops and restarts the container.
func (c *Container) Restart(ctx context.Context, timeout int) error {
	values := url.Values{}
	if timeout >= 0 {
		values.Set("t", strconv.Itoa(timeout))
	}
	_, err := c.docker.post(ctx, withQuery("/containers/"+c.id+"/restart", values), nil, "")
	if err != nil {
		return fmt.Errorf("failed to restart container %q: %w", c.id, err)
	}
	return nil
}

// Kill sends a signal to the container, SIGKILL when signal is empty.
func (c *Container) Kill(ctx context.Context, signal string) error {
	values := url.Values{}
	if signal != "" {
		values.Set("signal", signal)
	}
	_, err := c.docker.post(ctx, withQuery("/containers/"+c.id+"/kill", values), nil, "")
	if err != nil {
		return fmt.Errorf("failed to kill container %q: %w", c.id, err)
	}
	return nil
}

// Rename gives the container a new name.
func (c *Container) Rename(ctx context.Context, name string) error {
	values := url.Values{}
	values.Set("name", name)
	_, err := c.docker.post(ctx, withQuery("/containers/"+c.id+"/rename", values), nil, "")
	if err != nil {
		return fmt.Errorf("failed to rename container %q to %q: %w", c.id, name, err)
	}
	return nil
}

// Pause suspends all processes in the container.
func (c *Container) Pause(ctx context.Context) error {
	_, err := c.docker.post(ctx, "/containers/"+c.id+"/pause", nil, "")
	if err != nil {
		return fmt.Errorf("failed to pause container %q: %w", c.id, err)
	}
	return nil
}

// Unpause resumes a paused container.
func (c *Container) Unpause(ctx context.Context) error {
	_, err := c.docker.post(ctx, "/containers/"+c.id+"/unpause", nil, "")
	if err != nil {
		return fmt.Errorf("failed to unpause container %q: %w", c.id, err)
	}
	return nil
}

// Wait blocks until the container stops and returns its exit status. Bound
// the wait with the context if needed; no timeout is enforced here.
func (c *Container) Wait(ctx context.Context) (container.WaitResponse, error) {
	var response container.WaitResponse
	err := c.docker.postJSON(ctx, "/containers/"+c.id+"/wait", nil, &response)
	if err != nil {
		return container.WaitResponse{}, fmt.Errorf("failed to wait for container %q: %w", c.id, err)
	}
	return response, nil
}

// ContainerRemoveOptions controls Remove.
type ContainerRemoveOptions struct {
	Force         bool
	RemoveVolumes bool
	RemoveLinks   bool
}

// Remove deletes the container. Removing a running container requires Force.
func (c *Container) Remove(ctx context.Context, options ContainerRemoveOptions) error {
	values := url.Values{}
	if options.Force {
		values.Set("force", "1")
	}
	if options.RemoveVolumes {
		values.Set("v", "1")
	}
	if options.RemoveLinks {
		values.Set("link", "1")
	}
	_, err := c.docker.delete(ctx, withQuery("/containers/"+c.id, values))
	if err != nil {
		return fmt.Errorf("failed to remove container %q: %w", c.id, err)
	}
	return nil
}

// Resize resizes the container's TTY.
func (c *Container) Resize(ctx context.Context, height, width uint) error {
	values := url.Values{}
	values.Set("h", strconv.FormatUint(uint64(height), 10))
	values.Set("w", strconv.FormatUint(uint64(width), 10))
	_, err := c.docker.post(ctx, withQuery("/containers/"+c.id+"/resize", values), nil, "")
	if err != nil {
		return fmt.Errorf("failed to resize tty for container %q: %w", c.id, err)
	}
	return nil
}

// AttachOptions controls Attach and AttachWS.
type AttachOptions struct {
	Stream     bool
	Stdin      bool
	Stdout     bool
	Stderr     bool
	Logs       bool
	DetachKeys string
}

func (o AttachOptions) values() url.Values {
	values := url.Values{}
	if o.Stream {
		values.Set("stream", "1")
	}
	if o.Stdin {
		values.Set("stdin", "1")
	}
	if o.Stdout {
		values.Set("stdout", "1")
	}
	if o.Stderr {
		values.Set("stderr", "1")
	}
	if o.Logs {
		values.Set("logs", "1")
	}
	if o.DetachKeys != "" {
		values.Set("detachKeys", o.DetachKeys)
	}
	return values
}

// Attach upgrades the connection and returns the raw duplex stream attached
// to the container. Writes reach the container's stdin; the read side
// carries multiplexed output unless the container runs with a TTY, in which
// case it is a single raw stream.
func (c *Container) Attach(ctx context.Context, options AttachOptions) (*transport.UpgradedConn, error) {
	conn, err := c.docker.upgrade(ctx, withQuery("/containers/"+c.id+"/attach", options.values()), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to attach to container %q: %w", c.id, err)
	}
	return conn, nil
}

// AttachWS attaches over the engine's websocket endpoint instead of an HTTP
// upgrade. The dial is routed through the configured backend, so it works
// over local sockets and TLS endpoints as well.
func (c *Container) AttachWS(ctx context.Context, options AttachOptions) (*websocket.Conn, error) {
	endpoint := withQuery("/containers/"+c.id+"/attach/ws", options.values())
	wsURL := "ws" + strings.TrimPrefix(c.docker.transport.URL(endpoint), "http")

	dial := func(ctx context.Context, _, _ string) (net.Conn, error) {
		return c.docker.transport.DialContext(ctx)
	}
	dialer := websocket.Dialer{
		NetDialContext:    dial,
		NetDialTLSContext: dial,
	}

	conn, response, err := dialer.DialContext(ctx, wsURL, http.Header{})
	if err != nil {
		if response != nil && response.Body != nil {
			_, _ = io.Copy(io.Discard, response.Body)
			response.Body.Close()
		}
		return nil, fmt.Errorf("failed to attach websocket to container %q: %w", c.id, err)
	}
	return conn, nil
}

// CopyTo extracts a tar archive into the container at path.
func (c *Container) CopyTo(ctx context.Context, path string, content io.Reader) error {
	values := url.Values{}
	values.Set("path", path)

	_, err := c.docker.transport.DoString(ctx, transport.Request{
		Method:      http.MethodPut,
		Path:        withQuery("/containers/"+c.id+"/archive", values),
		Body:        content,
		ContentType: "application/x-tar",
		Headers:     c.docker.headers,
	})
	if err != nil {
		return fmt.Errorf("failed to copy archive into container %q at %q: %w", c.id, path, err)
	}
	return nil
}

// CopyFrom streams a path inside the container out as a tar archive.
func (c *Container) CopyFrom(ctx context.Context, path string) (*stream.Chunks, error) {
	values := url.Values{}
	values.Set("path", path)

	chunks, err := c.docker.streamGet(ctx, withQuery("/containers/"+c.id+"/archive", values))
	if err != nil {
		return nil, fmt.Errorf("failed to copy %q out of container %q: %w", path, c.id, err)
	}
	return chunks, nil
}

// withQuery appends the encoded query to the endpoint path when non-empty.
func withQuery(path string, values url.Values) string {
	if len(values) == 0 {
		return path
	}
	return path + "?" + values.Encode()
}

// encodeFilters serializes the engine's filters parameter, a JSON map of
// filter name to values.
func encodeFilters(values url.Values, filters map[string][]string) {
	if len(filters) == 0 {
		return
	}
	encoded, err := json.Marshal(filters)
	if err != nil {
		return
	}
	values.Set("filters", string(encoded))
}
