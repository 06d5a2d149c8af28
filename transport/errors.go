package transport

import (
	"errors"
	"fmt"
)

// ConfigError reports a connection descriptor that cannot be served, such as
// an unknown scheme or a socket protocol unavailable on this platform. It is
// returned eagerly from New, never deferred to request time.
type ConfigError string

func (e ConfigError) Error() string {
	return string(e)
}

// Fault is a non-success HTTP status returned by the engine, carrying the
// numeric status and the message extracted from the engine's error envelope.
type Fault struct {
	StatusCode int
	Message    string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("docker engine responded with status %d: %s", f.StatusCode, f.Message)
}

// ErrUpgradeRejected is returned by Upgrade when the engine answers with any
// status other than 101 Switching Protocols.
var ErrUpgradeRejected = errors.New("connection was not upgraded by the engine")
