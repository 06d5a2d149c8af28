package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/docker/go-connections/sockets"
)

// apiHost is the placeholder host used in request targets for socket-backed
// connections. The engine ignores it; it only exists because an HTTP/1.1
// request must carry a host.
const apiHost = "api.moby.localhost"

// defaultDialTimeout bounds the raw dial performed for protocol upgrades.
const defaultDialTimeout = 30 * time.Second

// Descriptor identifies where and how to reach the engine. It is resolved
// into a backend exactly once, by New; unsupported combinations fail there.
type Descriptor struct {
	// Scheme is one of "tcp", "http", "https", "unix", or "npipe".
	Scheme string

	// Host is the host:port of the engine for the TCP family of schemes.
	Host string

	// Path is the filesystem path of the local socket for "unix" and "npipe".
	Path string

	// TLS selects the encrypted TCP backend when non-nil. It is ignored for
	// socket schemes.
	TLS *tls.Config
}

// DescriptorFromHost parses an engine host string such as
// "unix:///var/run/docker.sock" or "tcp://10.0.0.2:2376" into a Descriptor.
func DescriptorFromHost(host string) (Descriptor, error) {
	u, err := url.Parse(host)
	if err != nil {
		return Descriptor{}, ConfigError(fmt.Sprintf("invalid engine host %q: %v", host, err))
	}

	switch u.Scheme {
	case "unix", "npipe":
		return Descriptor{Scheme: u.Scheme, Path: u.Path}, nil
	case "tcp", "http", "https":
		if u.Host == "" {
			return Descriptor{}, ConfigError(fmt.Sprintf("engine host %q is missing an address", host))
		}
		return Descriptor{Scheme: u.Scheme, Host: u.Host}, nil
	default:
		return Descriptor{}, ConfigError(fmt.Sprintf("unsupported engine host scheme %q", u.Scheme))
	}
}

// Transport abstracts the three connection kinds behind one request contract.
// A Transport is safe for concurrent use; its backend owns the connection
// pool shared by all requests.
type Transport struct {
	backend backend
}

// backend is the capability set every connection kind provides: build an
// absolute request target, expose the pooled client, and open a raw
// connection for protocol upgrades.
type backend interface {
	URL(endpoint string) string
	Client() *http.Client
	Dial(ctx context.Context) (net.Conn, error)
}

// New selects a backend for the descriptor. Socket schemes map to the socket
// backend and fail with a ConfigError when the protocol is unavailable on
// this platform. The TCP family maps to the encrypted backend when TLS
// material is present, otherwise to plain TCP.
func New(desc Descriptor) (*Transport, error) {
	switch desc.Scheme {
	case "unix", "npipe":
		b, err := newSocketBackend(desc.Scheme, desc.Path)
		if err != nil {
			return nil, err
		}
		return &Transport{backend: b}, nil
	case "tcp", "http", "https":
		if desc.Host == "" {
			return nil, ConfigError("tcp connections require a host address")
		}
		if desc.TLS != nil || desc.Scheme == "https" {
			return &Transport{backend: newTLSBackend(desc.Host, desc.TLS)}, nil
		}
		return &Transport{backend: newTCPBackend(desc.Host)}, nil
	default:
		return nil, ConfigError(fmt.Sprintf("unsupported connection scheme %q", desc.Scheme))
	}
}

// URL returns the absolute request target for an API endpoint path.
func (t *Transport) URL(endpoint string) string {
	return t.backend.URL(endpoint)
}

// DialContext opens a raw connection to the engine, bypassing the pooled
// client. It is used for protocol upgrades and websocket endpoints.
func (t *Transport) DialContext(ctx context.Context) (net.Conn, error) {
	return t.backend.Dial(ctx)
}

// tcpBackend speaks plain HTTP to a host:port address.
type tcpBackend struct {
	host   string
	client *http.Client
}

func newTCPBackend(addr string) *tcpBackend {
	return &tcpBackend{
		host: addr,
		client: &http.Client{
			Transport: &http.Transport{},
		},
	}
}

func (b *tcpBackend) URL(endpoint string) string {
	return "http://" + b.host + endpoint
}

func (b *tcpBackend) Client() *http.Client {
	return b.client
}

func (b *tcpBackend) Dial(ctx context.Context) (net.Conn, error) {
	dialer := net.Dialer{Timeout: defaultDialTimeout}
	return dialer.DialContext(ctx, "tcp", b.host)
}

// tlsBackend speaks HTTPS to a host:port address. The scheme used for
// outbound requests is rewritten to the secure form regardless of what the
// descriptor carried.
type tlsBackend struct {
	host   string
	config *tls.Config
	client *http.Client
}

func newTLSBackend(addr string, config *tls.Config) *tlsBackend {
	return &tlsBackend{
		host:   addr,
		config: config,
		client: &http.Client{
			Transport: &http.Transport{TLSClientConfig: config},
		},
	}
}

func (b *tlsBackend) URL(endpoint string) string {
	return "https://" + b.host + endpoint
}

func (b *tlsBackend) Client() *http.Client {
	return b.client
}

func (b *tlsBackend) Dial(ctx context.Context) (net.Conn, error) {
	dialer := tls.Dialer{
		NetDialer: &net.Dialer{Timeout: defaultDialTimeout},
		Config:    b.config,
	}
	return dialer.DialContext(ctx, "tcp", b.host)
}

// socketBackend speaks HTTP over a local socket. Its pool deliberately keeps
// no idle connections: the daemon's socket semantics make idle reuse
// undesirable.
type socketBackend struct {
	proto  string
	path   string
	client *http.Client
}

func newSocketBackend(proto, path string) (*socketBackend, error) {
	if path == "" {
		return nil, ConfigError("socket connections require a filesystem path")
	}

	httpTransport := &http.Transport{
		DisableKeepAlives: true,
	}
	err := sockets.ConfigureTransport(httpTransport, proto, path)
	if err != nil {
		return nil, ConfigError(fmt.Sprintf("cannot connect over %s socket %q: %v", proto, path, err))
	}

	return &socketBackend{
		proto:  proto,
		path:   path,
		client: &http.Client{Transport: httpTransport},
	}, nil
}

func (b *socketBackend) URL(endpoint string) string {
	return "http://" + apiHost + endpoint
}

func (b *socketBackend) Client() *http.Client {
	return b.client
}

func (b *socketBackend) Dial(ctx context.Context) (net.Conn, error) {
	if b.proto == "npipe" {
		return sockets.DialPipe(b.path, defaultDialTimeout)
	}
	dialer := net.Dialer{Timeout: defaultDialTimeout}
	return dialer.DialContext(ctx, "unix", b.path)
}
