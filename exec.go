package dockhand

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/moby/moby/api/types/container"
	"github.com/ryanmoran/dockhand/transport"
)

// ExecCreate registers a new exec instance in the container. The returned
// handle must be started before the process runs.
func (c *Container) ExecCreate(ctx context.Context, options container.ExecCreateRequest) (*Exec, error) {
	var response container.ExecCreateResponse
	err := c.docker.postJSON(ctx, "/containers/"+c.id+"/exec", options, &response)
	if err != nil {
		return nil, fmt.Errorf("failed to create exec in container %q: %w", c.id, err)
	}

	return &Exec{docker: c.docker, id: response.ID}, nil
}

// Exec is a handle for one exec instance.
type Exec struct {
	docker *Docker
	id     string
}

// ID returns the exec instance identifier assigned by the engine.
func (e *Exec) ID() string {
	return e.id
}

// Start runs the exec instance and upgrades the connection to its raw duplex
// stream. Writes reach the process's stdin; the read side carries
// multiplexed output unless the instance was created with a TTY.
func (e *Exec) Start(ctx context.Context, tty bool) (*transport.UpgradedConn, error) {
	payload := struct {
		Detach bool
		Tty    bool
	}{
		Detach: false,
		Tty:    tty,
	}

	conn, err := e.docker.upgrade(ctx, "/exec/"+e.id+"/start", payload)
	if err != nil {
		return nil, fmt.Errorf("failed to start exec %q: %w", e.id, err)
	}
	return conn, nil
}

// StartDetached runs the exec instance without attaching to it.
func (e *Exec) StartDetached(ctx context.Context) error {
	payload := struct {
		Detach bool
		Tty    bool
	}{
		Detach: true,
	}

	err := e.docker.postJSON(ctx, "/exec/"+e.id+"/start", payload, nil)
	if err != nil {
		return fmt.Errorf("failed to start detached exec %q: %w", e.id, err)
	}
	return nil
}

// Inspect returns the engine's view of the exec instance, including its exit
// code once the process has finished.
func (e *Exec) Inspect(ctx context.Context) (container.ExecInspectResponse, error) {
	var response container.ExecInspectResponse
	err := e.docker.getJSON(ctx, "/exec/"+e.id+"/json", &response)
	if err != nil {
		return container.ExecInspectResponse{}, fmt.Errorf("failed to inspect exec %q: %w", e.id, err)
	}
	return response, nil
}

// Resize resizes the exec instance's TTY.
func (e *Exec) Resize(ctx context.Context, height, width uint) error {
	values := url.Values{}
	values.Set("h", strconv.FormatUint(uint64(height), 10))
	values.Set("w", strconv.FormatUint(uint64(width), 10))
	_, err := e.docker.post(ctx, withQuery("/exec/"+e.id+"/resize", values), nil, "")
	if err != nil {
		return fmt.Errorf("failed to resize tty for exec %q: %w", e.id, err)
	}
	return nil
}
