package dockhand

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/moby/moby/api/types/image"
	"github.com/ryanmoran/dockhand/stream"
)

// Images is the resource group for image endpoints.
type Images struct {
	docker *Docker
}

// ImageListOptions narrows the result of List.
type ImageListOptions struct {
	All     bool
	Filters map[string][]string
}

func (o *ImageListOptions) values() url.Values {
	values := url.Values{}
	if o == nil {
		return values
	}
	if o.All {
		values.Set("all", "1")
	}
	encodeFilters(values, o.Filters)
	return values
}

// List returns summaries of images known to the engine.
func (i *Images) List(ctx context.Context, options *ImageListOptions) ([]image.Summary, error) {
	var summaries []image.Summary
	err := i.docker.getJSON(ctx, withQuery("/images/json", options.values()), &summaries)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	return summaries, nil
}

// Pull downloads an image from a registry, returning the engine's progress
// feed as a stream of JSON values. The pull is not complete until the stream
// is drained. The auth parameter, when non-empty, is a pre-built
// X-Registry-Auth header value.
func (i *Images) Pull(ctx context.Context, ref, auth string) (*stream.JSON, error) {
	values := url.Values{}
	values.Set("fromImage", ref)

	var headers http.Header
	if auth != "" {
		headers = http.Header{"X-Registry-Auth": []string{auth}}
	}

	chunks, err := i.docker.streamPost(ctx, withQuery("/images/create", values), nil, "", headers)
	if err != nil {
		return nil, fmt.Errorf("failed to pull image %q: %w", ref, err)
	}
	return stream.NewJSON(chunks), nil
}

// Build sends a tar build context to the engine and returns the build output
// as a stream of JSON values. The build is not complete until the stream is
// drained.
func (i *Images) Build(ctx context.Context, tag string, buildContext io.Reader) (*stream.JSON, error) {
	values := url.Values{}
	if tag != "" {
		values.Set("t", tag)
	}

	chunks, err := i.docker.streamPost(ctx, withQuery("/build", values), buildContext, "application/x-tar", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build image %q: %w", tag, err)
	}
	return stream.NewJSON(chunks), nil
}

// Get returns a handle for the image with the given id, name, or reference.
func (i *Images) Get(name string) *Image {
	return &Image{docker: i.docker, name: name}
}

// Image is a handle for one image.
type Image struct {
	docker *Docker
	name   string
}

// Name returns the reference this handle was built with.
func (i *Image) Name() string {
	return i.name
}

// Inspect returns the engine's full view of the image.
func (i *Image) Inspect(ctx context.Context) (image.InspectResponse, error) {
	var response image.InspectResponse
	err := i.docker.getJSON(ctx, "/images/"+i.name+"/json", &response)
	if err != nil {
		return image.InspectResponse{}, fmt.Errorf("failed to inspect image %q: %w", i.name, err)
	}
	return response, nil
}

// History lists the image's layer history.
func (i *Image) History(ctx context.Context) ([]image.HistoryResponseItem, error) {
	var items []image.HistoryResponseItem
	err := i.docker.getJSON(ctx, "/images/"+i.name+"/history", &items)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history for image %q: %w", i.name, err)
	}
	return items, nil
}

// Remove deletes the image, reporting which references were untagged or
// deleted.
func (i *Image) Remove(ctx context.Context, force bool) ([]image.DeleteResponse, error) {
	values := url.Values{}
	if force {
		values.Set("force", "1")
	}

	body, err := i.docker.delete(ctx, withQuery("/images/"+i.name, values))
	if err != nil {
		return nil, fmt.Errorf("failed to remove image %q: %w", i.name, err)
	}

	var responses []image.DeleteResponse
	if err := decodeString(body, &responses); err != nil {
		return nil, fmt.Errorf("failed to decode removal report for image %q: %w", i.name, err)
	}
	return responses, nil
}

// Export streams the image as a tar archive.
func (i *Image) Export(ctx context.Context) (*stream.Chunks, error) {
	chunks, err := i.docker.streamGet(ctx, "/images/"+i.name+"/get")
	if err != nil {
		return nil, fmt.Errorf("failed to export image %q: %w", i.name, err)
	}
	return chunks, nil
}
