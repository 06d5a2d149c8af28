package dockhand

import (
	"context"
	"fmt"
	"net/url"

	"github.com/moby/moby/api/types/volume"
)

// Volumes is the resource group for volume endpoints.
type Volumes struct {
	docker *Docker
}

// List returns the volumes known to the engine, along with any warnings it
// reports.
func (v *Volumes) List(ctx context.Context) (volume.ListResponse, error) {
	var response volume.ListResponse
	err := v.docker.getJSON(ctx, "/volumes", &response)
	if err != nil {
		return volume.ListResponse{}, fmt.Errorf("failed to list volumes: %w", err)
	}
	return response, nil
}

// Create creates a volume.
func (v *Volumes) Create(ctx context.Context, options volume.CreateRequest) (volume.Volume, error) {
	var created volume.Volume
	err := v.docker.postJSON(ctx, "/volumes/create", options, &created)
	if err != nil {
		return volume.Volume{}, fmt.Errorf("failed to create volume %q: %w", options.Name, err)
	}
	return created, nil
}

// Inspect returns the engine's view of one volume.
func (v *Volumes) Inspect(ctx context.Context, name string) (volume.Volume, error) {
	var found volume.Volume
	err := v.docker.getJSON(ctx, "/volumes/"+name, &found)
	if err != nil {
		return volume.Volume{}, fmt.Errorf("failed to inspect volume %q: %w", name, err)
	}
	return found, nil
}

// Remove deletes a volume. Volumes in use by a container cannot be removed
// without force.
func (v *Volumes) Remove(ctx context.Context, name string, force bool) error {
	values := url.Values{}
	if force {
		values.Set("force", "1")
	}
	_, err := v.docker.delete(ctx, withQuery("/volumes/"+name, values))
	if err != nil {
		return fmt.Errorf("failed to remove volume %q: %w", name, err)
	}
	return nil
}
