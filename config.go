package dockhand

import (
	"strings"
)

// DefaultHost is the engine endpoint used when no other is configured.
const DefaultHost = "unix:///var/run/docker.sock"

// Config holds everything needed to reach an engine. It replaces
// process-global environment lookups: build one explicitly, or derive one
// from an environment snapshot with ParseEnv, and hand it to New.
type Config struct {
	// Host is the engine endpoint, e.g. "unix:///var/run/docker.sock" or
	// "tcp://10.0.0.2:2376". Empty means DefaultHost.
	Host string

	// CertPath is a directory of PEM files (cert.pem, key.pem, ca.pem)
	// enabling TLS for TCP endpoints when non-empty.
	CertPath string

	// TLSVerify controls verification of the engine's certificate against
	// ca.pem. When false the certificate is not verified.
	TLSVerify bool

	// Headers are attached to every request, e.g. a pre-built registry
	// authentication header.
	Headers map[string]string
}

// ParseEnv derives a Config from an environment snapshot as produced by
// os.Environ, honoring DOCKER_HOST, DOCKER_CERT_PATH, and DOCKER_TLS_VERIFY.
func ParseEnv(environ []string) Config {
	lookup := make(map[string]string)
	for _, variable := range environ {
		key, value, ok := strings.Cut(variable, "=")
		if ok {
			lookup[key] = value
		}
	}

	host := lookup["DOCKER_HOST"]
	if host == "" {
		host = DefaultHost
	}

	return Config{
		Host:      host,
		CertPath:  lookup["DOCKER_CERT_PATH"],
		TLSVerify: lookup["DOCKER_TLS_VERIFY"] != "",
	}
}
