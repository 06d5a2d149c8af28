package dockhand

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/docker/go-connections/tlsconfig"
	"github.com/moby/moby/api/types/system"
	"github.com/ryanmoran/dockhand/stream"
	"github.com/ryanmoran/dockhand/transport"
)

// Docker is the entry point for communicating with an engine. It is safe for
// concurrent use; all requests share the transport's connection pool.
type Docker struct {
	transport *transport.Transport
	headers   http.Header
}

// NewFromEnv builds a client from the current process environment, falling
// back to the default local socket.
func NewFromEnv() (*Docker, error) {
	return New(ParseEnv(os.Environ()))
}

// New builds a client for the configured endpoint. TLS material, when
// configured, is loaded here so that misconfiguration surfaces immediately
// rather than on first request.
func New(config Config) (*Docker, error) {
	host := config.Host
	if host == "" {
		host = DefaultHost
	}

	descriptor, err := transport.DescriptorFromHost(host)
	if err != nil {
		return nil, err
	}

	tcpFamily := descriptor.Scheme != "unix" && descriptor.Scheme != "npipe"
	if tcpFamily && config.CertPath != "" {
		options := tlsconfig.Options{
			CertFile:           filepath.Join(config.CertPath, "cert.pem"),
			KeyFile:            filepath.Join(config.CertPath, "key.pem"),
			InsecureSkipVerify: !config.TLSVerify,
		}
		if config.TLSVerify {
			options.CAFile = filepath.Join(config.CertPath, "ca.pem")
		}

		descriptor.TLS, err = tlsconfig.Client(options)
		if err != nil {
			return nil, fmt.Errorf("failed to load TLS material from %q: %w", config.CertPath, err)
		}
	}

	t, err := transport.New(descriptor)
	if err != nil {
		return nil, err
	}

	headers := make(http.Header)
	for key, value := range config.Headers {
		headers.Set(key, value)
	}

	return &Docker{transport: t, headers: headers}, nil
}

// Transport exposes the underlying connection layer for callers that need to
// issue requests outside the resource groups.
func (d *Docker) Transport() *transport.Transport {
	return d.transport
}

// Containers returns the container resource group.
func (d *Docker) Containers() *Containers {
	return &Containers{docker: d}
}

// Images returns the image resource group.
func (d *Docker) Images() *Images {
	return &Images{docker: d}
}

// Volumes returns the volume resource group.
func (d *Docker) Volumes() *Volumes {
	return &Volumes{docker: d}
}

// Networks returns the network resource group.
func (d *Docker) Networks() *Networks {
	return &Networks{docker: d}
}

// Version reports the engine's version details.
func (d *Docker) Version(ctx context.Context) (Version, error) {
	var version Version
	err := d.getJSON(ctx, "/version", &version)
	if err != nil {
		return Version{}, fmt.Errorf("failed to fetch engine version: %w", err)
	}
	return version, nil
}

// Info reports system-wide information about the engine host.
func (d *Docker) Info(ctx context.Context) (system.Info, error) {
	var info system.Info
	err := d.getJSON(ctx, "/info", &info)
	if err != nil {
		return system.Info{}, fmt.Errorf("failed to fetch engine info: %w", err)
	}
	return info, nil
}

// Ping checks that the engine is reachable and responding.
func (d *Docker) Ping(ctx context.Context) error {
	_, err := d.get(ctx, "/_ping")
	if err != nil {
		return fmt.Errorf("failed to ping docker engine: %w", err)
	}
	return nil
}

// Version describes the engine build answering /version.
type Version struct {
	Version       string `json:"Version"`
	APIVersion    string `json:"ApiVersion"`
	MinAPIVersion string `json:"MinAPIVersion"`
	GitCommit     string `json:"GitCommit"`
	GoVersion     string `json:"GoVersion"`
	Os            string `json:"Os"`
	Arch          string `json:"Arch"`
	KernelVersion string `json:"KernelVersion"`
	BuildTime     string `json:"BuildTime"`
}

// request helpers shared by the resource groups. Buffered calls go through
// get/post/delete; streaming endpoints wrap the raw body handle in a chunk
// stream; interactive endpoints upgrade the connection.

func (d *Docker) get(ctx context.Context, path string) (string, error) {
	return d.transport.DoString(ctx, transport.Request{
		Method:  http.MethodGet,
		Path:    path,
		Headers: d.headers,
	})
}

func (d *Docker) getJSON(ctx context.Context, path string, v any) error {
	body, err := d.get(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(body), v); err != nil {
		return fmt.Errorf("failed to decode engine response for %q: %w", path, err)
	}
	return nil
}

func decodeString(body string, v any) error {
	return json.Unmarshal([]byte(body), v)
}

func (d *Docker) post(ctx context.Context, path string, body io.Reader, contentType string) (string, error) {
	return d.transport.DoString(ctx, transport.Request{
		Method:      http.MethodPost,
		Path:        path,
		Body:        body,
		ContentType: contentType,
		Headers:     d.headers,
	})
}

func (d *Docker) postJSON(ctx context.Context, path string, payload, result any) error {
	encoded, err := encodeBody(path, payload)
	if err != nil {
		return err
	}

	body, err := d.post(ctx, path, encoded, "application/json")
	if err != nil {
		return err
	}
	if result == nil || body == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(body), result); err != nil {
		return fmt.Errorf("failed to decode engine response for %q: %w", path, err)
	}
	return nil
}

func (d *Docker) delete(ctx context.Context, path string) (string, error) {
	return d.transport.DoString(ctx, transport.Request{
		Method:  http.MethodDelete,
		Path:    path,
		Headers: d.headers,
	})
}

func (d *Docker) streamGet(ctx context.Context, path string) (*stream.Chunks, error) {
	body, err := d.transport.Do(ctx, transport.Request{
		Method:  http.MethodGet,
		Path:    path,
		Headers: d.headers,
	})
	if err != nil {
		return nil, err
	}
	return stream.NewChunks(body), nil
}

func (d *Docker) streamPost(ctx context.Context, path string, body io.Reader, contentType string, headers http.Header) (*stream.Chunks, error) {
	merged := make(http.Header)
	for key, values := range d.headers {
		merged[key] = values
	}
	for key, values := range headers {
		merged[key] = values
	}

	responseBody, err := d.transport.Do(ctx, transport.Request{
		Method:      http.MethodPost,
		Path:        path,
		Body:        body,
		ContentType: contentType,
		Headers:     merged,
	})
	if err != nil {
		return nil, err
	}
	return stream.NewChunks(responseBody), nil
}

func (d *Docker) upgrade(ctx context.Context, path string, payload any) (*transport.UpgradedConn, error) {
	req := transport.Request{
		Method:  http.MethodPost,
		Path:    path,
		Headers: d.headers,
	}
	if payload != nil {
		encoded, err := encodeBody(path, payload)
		if err != nil {
			return nil, err
		}
		req.Body = encoded
		req.ContentType = "application/json"
	}
	return d.transport.Upgrade(ctx, req)
}

func encodeBody(path string, payload any) (io.Reader, error) {
	if payload == nil {
		return nil, nil
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body for %q: %w", path, err)
	}
	return bytes.NewReader(encoded), nil
}
