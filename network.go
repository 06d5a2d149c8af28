package dockhand

import (
	"context"
	"fmt"

	"github.com/moby/moby/api/types/network"
)

// Networks is the resource group for network endpoints.
type Networks struct {
	docker *Docker
}

// List returns summaries of the networks known to the engine.
func (n *Networks) List(ctx context.Context) ([]network.Summary, error) {
	var summaries []network.Summary
	err := n.docker.getJSON(ctx, "/networks", &summaries)
	if err != nil {
		return nil, fmt.Errorf("failed to list networks: %w", err)
	}
	return summaries, nil
}

// Create creates a network with the given name.
func (n *Networks) Create(ctx context.Context, name string, options network.CreateRequest) (network.CreateResponse, error) {
	payload := struct {
		Name string
		network.CreateRequest
	}{
		Name:          name,
		CreateRequest: options,
	}

	var response network.CreateResponse
	err := n.docker.postJSON(ctx, "/networks/create", payload, &response)
	if err != nil {
		return network.CreateResponse{}, fmt.Errorf("failed to create network %q: %w", name, err)
	}
	return response, nil
}

// Inspect returns the engine's view of one network.
func (n *Networks) Inspect(ctx context.Context, id string) (network.Inspect, error) {
	var found network.Inspect
	err := n.docker.getJSON(ctx, "/networks/"+id, &found)
	if err != nil {
		return network.Inspect{}, fmt.Errorf("failed to inspect network %q: %w", id, err)
	}
	return found, nil
}

// Remove deletes a network.
func (n *Networks) Remove(ctx context.Context, id string) error {
	_, err := n.docker.delete(ctx, "/networks/"+id)
	if err != nil {
		return fmt.Errorf("failed to remove network %q: %w", id, err)
	}
	return nil
}

// Connect attaches a container to the network.
func (n *Networks) Connect(ctx context.Context, id, containerID string, endpoint *network.EndpointSettings) error {
	payload := struct {
		Container      string
		EndpointConfig *network.EndpointSettings `json:",omitempty"`
	}{
		Container:      containerID,
		EndpointConfig: endpoint,
	}

	err := n.docker.postJSON(ctx, "/networks/"+id+"/connect", payload, nil)
	if err != nil {
		return fmt.Errorf("failed to connect container %q to network %q: %w", containerID, id, err)
	}
	return nil
}

// Disconnect detaches a container from the network.
func (n *Networks) Disconnect(ctx context.Context, id, containerID string, force bool) error {
	payload := struct {
		Container string
		Force     bool
	}{
		Container: containerID,
		Force:     force,
	}

	err := n.docker.postJSON(ctx, "/networks/"+id+"/disconnect", payload, nil)
	if err != nil {
		return fmt.Errorf("failed to disconnect container %q from network %q: %w", containerID, id, err)
	}
	return nil
}
