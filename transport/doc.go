// Package transport implements the connection layer for the Docker Engine
// API. It selects one of three connection kinds (plain TCP, TLS-wrapped TCP,
// or a local socket) at construction time, sends requests through a pooled
// HTTP client, classifies responses into success or engine faults, and
// performs the HTTP protocol upgrade used for interactive sessions.
package transport
